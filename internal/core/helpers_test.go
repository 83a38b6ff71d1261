// ABOUTME: Shared fakes for pipeline tests
// ABOUTME: Deterministic embedder, recording vector store and repository builders
package core

import (
	"context"
	"errors"
	"hash/fnv"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/harper/repoagent/internal/config"
	"github.com/harper/repoagent/internal/models"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

// fakeEmbedder returns a deterministic vector of dim values per text.
// Texts containing a key of sizes get that many values instead.
type fakeEmbedder struct {
	mu      sync.Mutex
	dim     int
	sizes   map[string]int
	failOn  string
	probeOK bool
	calls   []string
}

func newFakeEmbedder(dim int) *fakeEmbedder {
	return &fakeEmbedder{dim: dim, probeOK: true}
}

func (f *fakeEmbedder) Embed(ctx context.Context, model, text string) ([]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, text)

	if text == ProbeText && !f.probeOK {
		return nil, errors.New("model not pulled")
	}
	if f.failOn != "" && strings.Contains(text, f.failOn) {
		return nil, errors.New("embedding service down")
	}

	n := f.dim
	for key, size := range f.sizes {
		if strings.Contains(text, key) {
			n = size
		}
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float64, n)
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float64(seed>>40)/float64(1<<24) - 0.5
	}
	return vec, nil
}

func (f *fakeEmbedder) embedded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// recordingStore keeps every call in memory
type recordingStore struct {
	mu          sync.Mutex
	collections map[string]int
	batches     [][]models.IndexedPoint
	deleted     []string
	results     map[string][]models.RetrievedMatch
	searches    int
	searchErr   error
}

func newRecordingStore() *recordingStore {
	return &recordingStore{collections: map[string]int{}, results: map[string][]models.RetrievedMatch{}}
}

func (s *recordingStore) EnsureCollection(ctx context.Context, name string, dim int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; !ok {
		s.collections[name] = dim
	}
	return nil
}

func (s *recordingStore) Upsert(ctx context.Context, name string, points []models.IndexedPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, append([]models.IndexedPoint(nil), points...))
	return nil
}

func (s *recordingStore) Search(ctx context.Context, name string, vector []float64, k int) ([]models.RetrievedMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searches++
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	matches := s.results[name]
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func (s *recordingStore) DeleteCollection(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, name)
	delete(s.collections, name)
	return nil
}

func (s *recordingStore) Count(ctx context.Context, name string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n, nil
}

func (s *recordingStore) points() []models.IndexedPoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []models.IndexedPoint
	for _, b := range s.batches {
		all = append(all, b...)
	}
	return all
}

// writeRepo creates files (relative path -> content) under a temp dir
func writeRepo(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func testConfig(root string) *config.Config {
	cfg := config.Defaults()
	cfg.CodebasePath = root
	cfg.Collection = "test_chunks"
	cfg.Workers = 2
	return cfg
}
