// ABOUTME: Vector store gateway: collection lifecycle policy over a pluggable backend
// ABOUTME: Ensures collections idempotently and recovers once from stale "already exists" state
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"

	"github.com/charmbracelet/log"
	"github.com/harper/repoagent/internal/models"
)

var (
	// ErrCollectionExists is returned by a backend when a create collides with an existing name
	ErrCollectionExists = errors.New("collection already exists")
	// ErrCollectionUnrecoverable is returned when delete-and-recreate also failed
	ErrCollectionUnrecoverable = errors.New("collection cannot be recreated")
	// ErrInvalidDimension is returned for non-positive vector sizes
	ErrInvalidDimension = errors.New("invalid vector dimension")
)

var existsPattern = regexp.MustCompile(`(?i)File exists \(os error 17\)|already exists|EEXIST`)

// LooksLikeExists reports whether a backend error message describes a name
// that is already reserved, including a half-created collection on disk.
func LooksLikeExists(msg string) bool {
	return existsPattern.MatchString(msg)
}

// VectorStore is what the pipeline needs from a vector database
type VectorStore interface {
	EnsureCollection(ctx context.Context, name string, dim int) error
	Upsert(ctx context.Context, name string, points []models.IndexedPoint) error
	Search(ctx context.Context, name string, vector []float64, k int) ([]models.RetrievedMatch, error)
	DeleteCollection(ctx context.Context, name string) error
	Count(ctx context.Context, name string) (int, error)
}

// Backend is one concrete vector database. Implementations report a create
// collision by wrapping ErrCollectionExists; everything else is a plain error.
type Backend interface {
	Name() string
	CollectionExists(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, c models.Collection) error
	DeleteCollection(ctx context.Context, name string) error
	Upsert(ctx context.Context, name string, points []models.IndexedPoint) error
	Search(ctx context.Context, name string, vector []float64, k int) ([]models.RetrievedMatch, error)
	Count(ctx context.Context, name string) (int, error)
}

// Gateway implements VectorStore over a Backend
type Gateway struct {
	backend Backend
	logger  *log.Logger
}

// NewGateway wraps backend
func NewGateway(backend Backend, logger *log.Logger) *Gateway {
	if logger == nil {
		logger = log.Default()
	}
	return &Gateway{backend: backend, logger: logger}
}

// Backend returns the wrapped backend
func (g *Gateway) Backend() Backend {
	return g.backend
}

// EnsureCollection makes sure name exists. An existing collection is accepted
// whatever its recorded dimension; callers validate vectors themselves.
func (g *Gateway) EnsureCollection(ctx context.Context, name string, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidDimension, dim)
	}

	exists, err := g.backend.CollectionExists(ctx, name)
	if err != nil {
		g.logger.Debug("collection lookup failed, will try create", "collection", name, "err", err)
	} else if exists {
		return nil
	}

	coll := models.Collection{Name: name, Dimension: dim, Distance: models.DistanceCosine}
	err = g.backend.CreateCollection(ctx, coll)
	if err == nil {
		g.logger.Info("created collection", "collection", name, "dim", dim, "backend", g.backend.Name())
		return nil
	}
	if !errors.Is(err, ErrCollectionExists) {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}

	g.logger.Warn("collection name reserved but unusable, recreating", "collection", name, "err", err)
	if err := g.backend.DeleteCollection(ctx, name); err != nil {
		return fmt.Errorf("%w: %s: delete failed: %w", ErrCollectionUnrecoverable, name, err)
	}
	if err := g.backend.CreateCollection(ctx, coll); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCollectionUnrecoverable, name, err)
	}
	return nil
}

// Upsert writes one batch. The batch is durable when this returns nil.
func (g *Gateway) Upsert(ctx context.Context, name string, points []models.IndexedPoint) error {
	if len(points) == 0 {
		return nil
	}
	if err := g.backend.Upsert(ctx, name, points); err != nil {
		return fmt.Errorf("failed to upsert %d points into %s: %w", len(points), name, err)
	}
	return nil
}

// Search returns at most k matches ordered by descending score
func (g *Gateway) Search(ctx context.Context, name string, vector []float64, k int) ([]models.RetrievedMatch, error) {
	if k <= 0 {
		return nil, nil
	}
	matches, err := g.backend.Search(ctx, name, vector, k)
	if err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", name, err)
	}
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// DeleteCollection drops name; a missing collection is not an error
func (g *Gateway) DeleteCollection(ctx context.Context, name string) error {
	if err := g.backend.DeleteCollection(ctx, name); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", name, err)
	}
	return nil
}

// Count returns the number of points stored in name
func (g *Gateway) Count(ctx context.Context, name string) (int, error) {
	n, err := g.backend.Count(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", name, err)
	}
	return n, nil
}

// Close releases the backend's resources when it holds any
func (g *Gateway) Close() error {
	if c, ok := g.backend.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
