// ABOUTME: Retriever embeds a natural-language query and searches the collection
// ABOUTME: An empty query vector is an error while an empty result is not
package core

import (
	"context"
	"fmt"

	"github.com/harper/repoagent/internal/llm"
	"github.com/harper/repoagent/internal/models"
	"github.com/harper/repoagent/internal/storage"
)

// Default result counts for request-time retrieval
const (
	DefaultTopK = 12
	AskTopK     = 10
)

// Searcher is anything that can answer a top-k query
type Searcher interface {
	Retrieve(ctx context.Context, collection, model, query string, k int) ([]models.RetrievedMatch, error)
}

// Retriever performs single-query nearest-neighbour retrieval
type Retriever struct {
	embedder llm.Embedder
	store    storage.VectorStore
}

// NewRetriever creates a Retriever
func NewRetriever(embedder llm.Embedder, store storage.VectorStore) *Retriever {
	return &Retriever{embedder: embedder, store: store}
}

// Retrieve returns up to k chunks ranked by similarity to query
func (r *Retriever) Retrieve(ctx context.Context, collection, model, query string, k int) ([]models.RetrievedMatch, error) {
	vec, err := r.embedder.Embed(ctx, model, llm.TruncateInput(query))
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vec) == 0 {
		return nil, ErrEmptyVector
	}

	matches, err := r.store.Search(ctx, collection, vec, k)
	if err != nil {
		return nil, err
	}
	return matches, nil
}
