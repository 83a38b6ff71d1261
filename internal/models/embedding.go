// ABOUTME: Vector store records written by the indexer and read back by retrieval
// ABOUTME: Defines IndexedPoint, its payload, RetrievedMatch and Collection
package models

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// DistanceCosine is the only metric collections are created with.
const DistanceCosine = "Cosine"

// Collection describes a named vector collection
type Collection struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Distance  string `json:"distance"`
}

// PointPayload is the metadata stored with every vector
type PointPayload struct {
	Path    string `json:"path"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
	Preview string `json:"preview"`
}

// IndexedPoint is one chunk's embedding plus its payload
type IndexedPoint struct {
	ID      string       `json:"id"`
	Seq     int          `json:"-"`
	Vector  []float64    `json:"vector"`
	Payload PointPayload `json:"payload"`
}

// RetrievedMatch is a search hit projected from a point's payload
type RetrievedMatch struct {
	Path    string  `json:"path"`
	Start   int     `json:"start"`
	End     int     `json:"end"`
	Preview string  `json:"preview"`
	Score   float64 `json:"score"`
}

// Range formats the match's line span as L<start>-<end>
func (m RetrievedMatch) Range() string {
	return fmt.Sprintf("L%d-%d", m.Start, m.End)
}

// PointID derives a stable identifier for a chunk of a file within a collection.
// Re-indexing the same range produces the same id, so writes overwrite.
func PointID(collection, path string, start, end int) string {
	key := collection + "\x00" + path + "\x00" + strconv.Itoa(start) + "\x00" + strconv.Itoa(end)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

// NewIndexedPoint builds a point for a chunk of path
func NewIndexedPoint(collection, path string, seq int, chunk Chunk, vector []float64) IndexedPoint {
	return IndexedPoint{
		ID:     PointID(collection, path, chunk.Start, chunk.End),
		Seq:    seq,
		Vector: vector,
		Payload: PointPayload{
			Path:    path,
			Start:   chunk.Start,
			End:     chunk.End,
			Preview: chunk.Preview,
		},
	}
}

// Match converts a stored payload into a search hit with the given score
func (p PointPayload) Match(score float64) RetrievedMatch {
	return RetrievedMatch{
		Path:    p.Path,
		Start:   p.Start,
		End:     p.End,
		Preview: p.Preview,
		Score:   score,
	}
}
