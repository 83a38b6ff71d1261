// ABOUTME: ChunkEngine splits file text into overlapping fixed-size line windows
// ABOUTME: Windows are 1-indexed inclusive ranges produced lazily and restartably
package core

import (
	"fmt"
	"iter"
	"strings"

	"github.com/harper/repoagent/internal/models"
)

// ChunkEngine holds a validated window/overlap pair
type ChunkEngine struct {
	window  int
	overlap int
}

// NewChunkEngine creates a ChunkEngine. It fails with ErrInvalidWindow unless
// window > 0 and 0 <= overlap < window.
func NewChunkEngine(window, overlap int) (*ChunkEngine, error) {
	if window <= 0 {
		return nil, fmt.Errorf("%w: lines must be > 0, got %d", ErrInvalidWindow, window)
	}
	if overlap < 0 || overlap >= window {
		return nil, fmt.Errorf("%w: need 0 <= overlap < lines, got overlap %d for lines %d", ErrInvalidWindow, overlap, window)
	}
	return &ChunkEngine{window: window, overlap: overlap}, nil
}

// Chunk returns the window sequence for text
func (ce *ChunkEngine) Chunk(text string) *ChunkSeq {
	return &ChunkSeq{lines: splitLines(text), window: ce.window, step: ce.window - ce.overlap}
}

// ChunkLines is a convenience wrapper around NewChunkEngine and Chunk
func ChunkLines(text string, window, overlap int) (*ChunkSeq, error) {
	ce, err := NewChunkEngine(window, overlap)
	if err != nil {
		return nil, err
	}
	return ce.Chunk(text), nil
}

// ChunkSeq is a finite, restartable sequence of chunks over one text
type ChunkSeq struct {
	lines  []string
	window int
	step   int
}

// TotalLines returns the number of lines the text was split into
func (s *ChunkSeq) TotalLines() int {
	return len(s.lines)
}

// All yields chunks in ascending start order. Each call starts over.
func (s *ChunkSeq) All() iter.Seq[models.Chunk] {
	return func(yield func(models.Chunk) bool) {
		n := len(s.lines)
		for start := 0; start < n; start += s.step {
			end := min(start+s.window, n)
			text := strings.Join(s.lines[start:end], "\n")
			c := models.Chunk{
				Start:   start + 1,
				End:     end,
				Text:    text,
				Preview: models.Preview(text, models.PreviewBytes),
			}
			if !yield(c) {
				return
			}
		}
	}
}

// Collect materialises the whole sequence
func (s *ChunkSeq) Collect() []models.Chunk {
	var out []models.Chunk
	for c := range s.All() {
		out = append(out, c)
	}
	return out
}

// splitLines treats "\n" and "\r\n" alike. A single trailing terminator ends
// the last line instead of opening an empty one; empty text has no lines.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}
