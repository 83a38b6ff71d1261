// ABOUTME: Vector store backend on SQLite
// ABOUTME: Stores vectors as BLOBs and ranks by cosine similarity computed in Go
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/harper/repoagent/internal/models"
	"github.com/harper/repoagent/internal/storage"
)

// Backend is a storage.Backend over a SQLite database
type Backend struct {
	db *DB
}

// NewBackend creates a backend over an open database
func NewBackend(db *DB) *Backend {
	return &Backend{db: db}
}

// Name implements storage.Backend
func (b *Backend) Name() string { return "sqlite" }

// Close closes the underlying database
func (b *Backend) Close() error {
	return b.db.Close()
}

// CollectionExists implements storage.Backend
func (b *Backend) CollectionExists(ctx context.Context, name string) (bool, error) {
	var dim int
	err := b.db.QueryRow(ctx, `SELECT dimension FROM collections WHERE name = ?`, name).Scan(&dim)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateCollection implements storage.Backend
func (b *Backend) CreateCollection(ctx context.Context, c models.Collection) error {
	_, err := b.db.Exec(ctx, `
		INSERT INTO collections (name, dimension, distance, created_at)
		VALUES (?, ?, ?, ?)
	`, c.Name, c.Dimension, c.Distance, time.Now())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %s", storage.ErrCollectionExists, c.Name)
		}
		return err
	}
	return nil
}

// DeleteCollection implements storage.Backend
func (b *Backend) DeleteCollection(ctx context.Context, name string) error {
	return b.db.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM points WHERE collection = ?`, name); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, name)
		return err
	})
}

// Upsert implements storage.Backend; the whole batch commits or none of it does
func (b *Backend) Upsert(ctx context.Context, name string, points []models.IndexedPoint) error {
	return b.db.Tx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO points (collection, id, vector, path, start_line, end_line, preview, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(collection, id) DO UPDATE SET
				vector = excluded.vector,
				path = excluded.path,
				start_line = excluded.start_line,
				end_line = excluded.end_line,
				preview = excluded.preview,
				updated_at = excluded.updated_at
		`)
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()

		now := time.Now()
		for _, p := range points {
			if _, err := stmt.ExecContext(ctx, name, p.ID, vectorToBlob(p.Vector),
				p.Payload.Path, p.Payload.Start, p.Payload.End, p.Payload.Preview, now); err != nil {
				return fmt.Errorf("point %s: %w", p.ID, err)
			}
		}
		return nil
	})
}

// Search implements storage.Backend with an exhaustive cosine scan
func (b *Backend) Search(ctx context.Context, name string, vector []float64, k int) ([]models.RetrievedMatch, error) {
	exists, err := b.CollectionExists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("collection %s not found", name)
	}

	rows, err := b.db.Query(ctx, `
		SELECT vector, path, start_line, end_line, preview
		FROM points
		WHERE collection = ?
	`, name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []models.RetrievedMatch
	for rows.Next() {
		var (
			blob    []byte
			payload models.PointPayload
			preview sql.NullString
		)
		if err := rows.Scan(&blob, &payload.Path, &payload.Start, &payload.End, &preview); err != nil {
			return nil, err
		}
		payload.Preview = preview.String
		results = append(results, payload.Match(CosineSimilarity(vector, blobToVector(blob))))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Sort by similarity descending
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	// Limit results
	if len(results) > k {
		results = results[:k]
	}

	return results, nil
}

// Count implements storage.Backend
func (b *Backend) Count(ctx context.Context, name string) (int, error) {
	var n int
	err := b.db.QueryRow(ctx, `SELECT COUNT(*) FROM points WHERE collection = ?`, name).Scan(&n)
	return n, err
}

// vectorToBlob converts a float64 slice to binary blob
func vectorToBlob(vector []float64) []byte {
	blob := make([]byte, len(vector)*8)
	for i, v := range vector {
		binary.LittleEndian.PutUint64(blob[i*8:], math.Float64bits(v))
	}
	return blob
}

// blobToVector converts a binary blob to float64 slice
func blobToVector(blob []byte) []float64 {
	count := len(blob) / 8
	vector := make([]float64, count)
	for i := 0; i < count; i++ {
		bits := binary.LittleEndian.Uint64(blob[i*8:])
		vector[i] = math.Float64frombits(bits)
	}
	return vector
}

// CosineSimilarity calculates cosine similarity between two vectors
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
