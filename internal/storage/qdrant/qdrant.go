// ABOUTME: Qdrant REST backend for the vector store gateway
// ABOUTME: Minimal JSON-over-HTTP client for collections, points, search and count
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/harper/repoagent/internal/models"
	"github.com/harper/repoagent/internal/storage"
)

// Config holds connection settings
type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// Backend is a storage.Backend speaking Qdrant's REST API
type Backend struct {
	url     string
	apiKey  string
	timeout time.Duration
	client  *http.Client
}

// New creates a Qdrant backend
func New(cfg Config) *Backend {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Backend{
		url:     strings.TrimRight(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		timeout: timeout,
		client:  &http.Client{},
	}
}

// Name implements storage.Backend
func (b *Backend) Name() string { return "qdrant" }

type statusBody struct {
	Status json.RawMessage `json:"status"`
}

// apiError carries the HTTP status and Qdrant's status.error message
type apiError struct {
	Method string
	Path   string
	Code   int
	Msg    string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("qdrant %s %s: %d: %s", e.Method, e.Path, e.Code, e.Msg)
}

func (b *Backend) collectionPath(name string, suffix string) string {
	return "/collections/" + url.PathEscape(name) + suffix
}

// do sends a JSON request and decodes a 2xx body into out when non-nil
func (b *Backend) do(ctx context.Context, method, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.url+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if b.apiKey != "" {
		req.Header.Set("api-key", b.apiKey)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read qdrant response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return &apiError{Method: method, Path: path, Code: resp.StatusCode, Msg: errorMessage(data, resp.Status)}
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode qdrant response: %w", err)
		}
	}
	return nil
}

// errorMessage extracts status.error from a Qdrant error body
func errorMessage(data []byte, fallback string) string {
	var sb statusBody
	if err := json.Unmarshal(data, &sb); err == nil && len(sb.Status) > 0 {
		var obj struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(sb.Status, &obj) == nil && obj.Error != "" {
			return obj.Error
		}
	}
	if len(data) > 0 {
		return string(data)
	}
	return fallback
}

// CollectionExists implements storage.Backend. A collection without a vectors
// config is treated as absent so the gateway will (re)create it.
func (b *Backend) CollectionExists(ctx context.Context, name string) (bool, error) {
	var out struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors json.RawMessage `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	err := b.do(ctx, http.MethodGet, b.collectionPath(name, ""), nil, &out)
	if err != nil {
		if ae, ok := err.(*apiError); ok && ae.Code == http.StatusNotFound {
			return false, nil
		}
		return false, err
	}
	v := out.Result.Config.Params.Vectors
	return len(v) > 0 && string(v) != "null", nil
}

// CreateCollection implements storage.Backend
func (b *Backend) CreateCollection(ctx context.Context, c models.Collection) error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     c.Dimension,
			"distance": c.Distance,
		},
	}
	err := b.do(ctx, http.MethodPut, b.collectionPath(c.Name, ""), body, nil)
	if err != nil && storage.LooksLikeExists(err.Error()) {
		return fmt.Errorf("%w: %w", storage.ErrCollectionExists, err)
	}
	return err
}

// DeleteCollection implements storage.Backend
func (b *Backend) DeleteCollection(ctx context.Context, name string) error {
	err := b.do(ctx, http.MethodDelete, b.collectionPath(name, ""), nil, nil)
	if ae, ok := err.(*apiError); ok && ae.Code == http.StatusNotFound {
		return nil
	}
	return err
}

type point struct {
	ID      string              `json:"id"`
	Vector  []float64           `json:"vector"`
	Payload models.PointPayload `json:"payload"`
}

// Upsert implements storage.Backend; wait=true makes the batch durable on return
func (b *Backend) Upsert(ctx context.Context, name string, points []models.IndexedPoint) error {
	body := struct {
		Points []point `json:"points"`
	}{Points: make([]point, len(points))}
	for i, p := range points {
		body.Points[i] = point{ID: p.ID, Vector: p.Vector, Payload: p.Payload}
	}
	return b.do(ctx, http.MethodPut, b.collectionPath(name, "/points?wait=true"), body, nil)
}

// Search implements storage.Backend
func (b *Backend) Search(ctx context.Context, name string, vector []float64, k int) ([]models.RetrievedMatch, error) {
	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
		"with_vector":  false,
	}
	var resp struct {
		Result []struct {
			Score   float64             `json:"score"`
			Payload models.PointPayload `json:"payload"`
		} `json:"result"`
	}
	if err := b.do(ctx, http.MethodPost, b.collectionPath(name, "/points/search"), req, &resp); err != nil {
		return nil, err
	}
	matches := make([]models.RetrievedMatch, 0, len(resp.Result))
	for _, r := range resp.Result {
		matches = append(matches, r.Payload.Match(r.Score))
	}
	return matches, nil
}

// Count implements storage.Backend
func (b *Backend) Count(ctx context.Context, name string) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if err := b.do(ctx, http.MethodPost, b.collectionPath(name, "/points/count"), map[string]any{"exact": true}, &resp); err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}
