// ABOUTME: Tests for the Qdrant backend against a fake REST server
// ABOUTME: Exercises create, recovery, upsert, search and count through the gateway
package qdrant

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harper/repoagent/internal/models"
	"github.com/harper/repoagent/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQdrant struct {
	mu          sync.Mutex
	collections map[string]int
	points      map[string][]point
	stuck       int
	apiKeys     []string
	deletes     int
}

func newFakeQdrant() *fakeQdrant {
	return &fakeQdrant{collections: map[string]int{}, points: map[string][]point{}}
}

func writeStatusError(w http.ResponseWriter, code int, msg string) {
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"status": map[string]string{"error": msg}})
}

func (f *fakeQdrant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apiKeys = append(f.apiKeys, r.Header.Get("api-key"))

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 2 || parts[0] != "collections" {
		http.NotFound(w, r)
		return
	}
	name := parts[1]

	switch {
	case len(parts) == 2 && r.Method == http.MethodGet:
		dim, ok := f.collections[name]
		if !ok {
			writeStatusError(w, http.StatusNotFound, "Not found: Collection `"+name+"` doesn't exist!")
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{
			"config": map[string]any{"params": map[string]any{"vectors": map[string]any{"size": dim, "distance": "Cosine"}}},
		}})
	case len(parts) == 2 && r.Method == http.MethodPut:
		if f.stuck > 0 {
			f.stuck--
			writeStatusError(w, http.StatusInternalServerError, "Service internal error: File exists (os error 17)")
			return
		}
		var body struct {
			Vectors struct {
				Size int `json:"size"`
			} `json:"vectors"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.collections[name] = body.Vectors.Size
		_, _ = w.Write([]byte(`{"result":true,"status":"ok"}`))
	case len(parts) == 2 && r.Method == http.MethodDelete:
		f.deletes++
		delete(f.collections, name)
		delete(f.points, name)
		_, _ = w.Write([]byte(`{"result":true,"status":"ok"}`))
	case len(parts) == 3 && parts[2] == "points" && r.Method == http.MethodPut:
		if r.URL.Query().Get("wait") != "true" {
			writeStatusError(w, http.StatusBadRequest, "expected wait=true")
			return
		}
		var body struct {
			Points []point `json:"points"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		existing := f.points[name]
		for _, p := range body.Points {
			replaced := false
			for i := range existing {
				if existing[i].ID == p.ID {
					existing[i] = p
					replaced = true
				}
			}
			if !replaced {
				existing = append(existing, p)
			}
		}
		f.points[name] = existing
		_, _ = w.Write([]byte(`{"result":{"status":"completed"},"status":"ok"}`))
	case len(parts) == 4 && parts[3] == "search":
		if _, ok := f.collections[name]; !ok {
			writeStatusError(w, http.StatusNotFound, "Not found: Collection `"+name+"` doesn't exist!")
			return
		}
		var body struct {
			Limit int `json:"limit"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		var result []map[string]any
		for i, p := range f.points[name] {
			if i >= body.Limit {
				break
			}
			result = append(result, map[string]any{"id": p.ID, "score": 1.0 - float64(i)*0.1, "payload": p.Payload})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": result})
	case len(parts) == 4 && parts[3] == "count":
		_ = json.NewEncoder(w).Encode(map[string]any{"result": map[string]int{"count": len(f.points[name])}})
	default:
		http.NotFound(w, r)
	}
}

func newGateway(t *testing.T, fake *fakeQdrant) *storage.Gateway {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	backend := New(Config{URL: srv.URL, APIKey: "secret", Timeout: 5 * time.Second})
	return storage.NewGateway(backend, log.New(io.Discard))
}

func testPoints(paths ...string) []models.IndexedPoint {
	var pts []models.IndexedPoint
	for i, p := range paths {
		chunk := models.Chunk{Start: 1, End: 10, Preview: "preview " + p}
		pts = append(pts, models.NewIndexedPoint("code", p, i+1, chunk, []float64{0.1, 0.2, 0.3}))
	}
	return pts
}

func TestQdrant_Lifecycle(t *testing.T) {
	fake := newFakeQdrant()
	g := newGateway(t, fake)
	ctx := context.Background()

	require.NoError(t, g.EnsureCollection(ctx, "code", 3))
	assert.Equal(t, 3, fake.collections["code"])

	// idempotent
	require.NoError(t, g.EnsureCollection(ctx, "code", 3))

	require.NoError(t, g.Upsert(ctx, "code", testPoints("a.go", "b.go", "c.go")))
	// stable ids overwrite
	require.NoError(t, g.Upsert(ctx, "code", testPoints("a.go")))

	n, err := g.Count(ctx, "code")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	matches, err := g.Search(ctx, "code", []float64{0.1, 0.2, 0.3}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "a.go", matches[0].Path)
	assert.Equal(t, 1, matches[0].Start)
	assert.Equal(t, 10, matches[0].End)
	assert.Greater(t, matches[0].Score, matches[1].Score)

	require.NoError(t, g.DeleteCollection(ctx, "code"))
	require.NoError(t, g.DeleteCollection(ctx, "code"))
	assert.NotContains(t, fake.apiKeys, "")
}

func TestQdrant_RecoversFromStaleDirectory(t *testing.T) {
	fake := newFakeQdrant()
	fake.stuck = 1
	g := newGateway(t, fake)

	require.NoError(t, g.EnsureCollection(context.Background(), "code", 768))
	assert.Equal(t, 1, fake.deletes)
	assert.Equal(t, 768, fake.collections["code"])
}

func TestQdrant_UnrecoverableCollection(t *testing.T) {
	fake := newFakeQdrant()
	fake.stuck = 2
	g := newGateway(t, fake)

	err := g.EnsureCollection(context.Background(), "code", 768)
	assert.ErrorIs(t, err, storage.ErrCollectionUnrecoverable)
}

func TestQdrant_SearchMissingCollection(t *testing.T) {
	g := newGateway(t, newFakeQdrant())
	_, err := g.Search(context.Background(), "missing", []float64{1}, 5)
	assert.Error(t, err)
}
