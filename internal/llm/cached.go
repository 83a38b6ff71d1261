// ABOUTME: Embedder decorator that consults a cache before the embedding service
// ABOUTME: Cache failures are logged and bypassed, never fatal
package llm

import (
	"context"

	"github.com/charmbracelet/log"
)

// EmbeddingCache stores vectors keyed by model and input text
type EmbeddingCache interface {
	Get(ctx context.Context, model, text string) ([]float64, bool, error)
	Set(ctx context.Context, model, text string, vector []float64) error
}

// CachedEmbedder wraps an Embedder with an EmbeddingCache
type CachedEmbedder struct {
	next   Embedder
	cache  EmbeddingCache
	logger *log.Logger
}

// NewCachedEmbedder returns next decorated with cache
func NewCachedEmbedder(next Embedder, cache EmbeddingCache, logger *log.Logger) *CachedEmbedder {
	if logger == nil {
		logger = log.Default()
	}
	return &CachedEmbedder{next: next, cache: cache, logger: logger}
}

// Embed returns the cached vector for (model, text) or computes and stores it
func (c *CachedEmbedder) Embed(ctx context.Context, model, text string) ([]float64, error) {
	text = TruncateInput(text)

	vec, ok, err := c.cache.Get(ctx, model, text)
	if err != nil {
		c.logger.Warn("embedding cache read failed", "err", err)
	} else if ok && len(vec) > 0 {
		return vec, nil
	}

	vec, err = c.next.Embed(ctx, model, text)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, model, text, vec); err != nil {
		c.logger.Warn("embedding cache write failed", "err", err)
	}
	return vec, nil
}
