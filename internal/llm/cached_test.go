// ABOUTME: Tests for the cache-first embedder decorator
// ABOUTME: Hits skip the inner embedder and cache errors degrade to a plain embed
package llm

import (
	"context"
	"errors"
	"testing"
)

type mapCache struct {
	data    map[string][]float64
	getErr  error
	setErr  error
	setHits int
}

func newMapCache() *mapCache {
	return &mapCache{data: map[string][]float64{}}
}

func (m *mapCache) Get(ctx context.Context, model, text string) ([]float64, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	v, ok := m.data[model+"|"+text]
	return v, ok, nil
}

func (m *mapCache) Set(ctx context.Context, model, text string, vector []float64) error {
	m.setHits++
	if m.setErr != nil {
		return m.setErr
	}
	m.data[model+"|"+text] = vector
	return nil
}

func TestCachedEmbedder_MissThenHit(t *testing.T) {
	inner := &stubDialect{name: "inner", vec: []float64{1, 2, 3}}
	cache := newMapCache()
	e := NewCachedEmbedder(inner, cache, quietLogger())

	for i := 0; i < 3; i++ {
		vec, err := e.Embed(context.Background(), "m", "same text")
		if err != nil {
			t.Fatalf("Embed() error = %v", err)
		}
		if len(vec) != 3 {
			t.Fatalf("vec = %v", vec)
		}
	}
	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls)
	}
}

func TestCachedEmbedder_CacheErrorsBypassed(t *testing.T) {
	inner := &stubDialect{name: "inner", vec: []float64{1}}
	cache := newMapCache()
	cache.getErr = errors.New("redis down")
	cache.setErr = errors.New("redis down")

	vec, err := NewCachedEmbedder(inner, cache, quietLogger()).Embed(context.Background(), "m", "t")
	if err != nil || len(vec) != 1 {
		t.Fatalf("Embed() = %v, %v", vec, err)
	}
}

func TestCachedEmbedder_InnerErrorNotCached(t *testing.T) {
	inner := &stubDialect{name: "inner", err: ErrEmbeddingUnavailable}
	cache := newMapCache()

	_, err := NewCachedEmbedder(inner, cache, quietLogger()).Embed(context.Background(), "m", "t")
	if !errors.Is(err, ErrEmbeddingUnavailable) {
		t.Errorf("Embed() error = %v", err)
	}
	if cache.setHits != 0 {
		t.Error("failed embeddings must not be cached")
	}
}
