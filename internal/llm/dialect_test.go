// ABOUTME: Tests for ordered dialect fallback and the unified failure
// ABOUTME: Each dialect is tried in order until one yields a non-empty vector
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/charmbracelet/log"
)

type stubDialect struct {
	name  string
	vec   []float64
	err   error
	calls int
	seen  string
}

func (s *stubDialect) Name() string { return s.name }

func (s *stubDialect) Embed(ctx context.Context, model, text string) ([]float64, error) {
	s.calls++
	s.seen = text
	return s.vec, s.err
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func TestDialectEmbedder_FirstSuccessWins(t *testing.T) {
	first := &stubDialect{name: "a", err: errors.New("unsupported field")}
	second := &stubDialect{name: "b", vec: []float64{1, 2}}
	third := &stubDialect{name: "c", vec: []float64{3}}

	e := NewDialectEmbedder(quietLogger(), first, second, third)
	vec, err := e.Embed(context.Background(), "m", "text")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vec) != 2 {
		t.Errorf("vec = %v, want second dialect's", vec)
	}
	if third.calls != 0 {
		t.Error("third dialect should not be tried")
	}
}

func TestDialectEmbedder_EmptyVectorFallsThrough(t *testing.T) {
	empty := &stubDialect{name: "empty", vec: []float64{}}
	good := &stubDialect{name: "good", vec: []float64{0.5}}

	vec, err := NewDialectEmbedder(quietLogger(), empty, good).Embed(context.Background(), "m", "t")
	if err != nil || len(vec) != 1 {
		t.Fatalf("Embed() = %v, %v", vec, err)
	}
}

func TestDialectEmbedder_AllFail(t *testing.T) {
	a := &stubDialect{name: "a", err: errors.New("connection refused")}
	b := &stubDialect{name: "b", vec: nil}

	_, err := NewDialectEmbedder(quietLogger(), a, b).Embed(context.Background(), "m", "t")
	if !errors.Is(err, ErrEmbeddingUnavailable) {
		t.Fatalf("Embed() error = %v, want ErrEmbeddingUnavailable", err)
	}
	if !strings.Contains(err.Error(), "connection refused") || !strings.Contains(err.Error(), "b: empty vector") {
		t.Errorf("error should carry every cause: %v", err)
	}
}

func TestDialectEmbedder_NoDialects(t *testing.T) {
	_, err := NewDialectEmbedder(quietLogger()).Embed(context.Background(), "m", "t")
	if !errors.Is(err, ErrEmbeddingUnavailable) {
		t.Errorf("Embed() error = %v, want ErrEmbeddingUnavailable", err)
	}
}

func TestDialectEmbedder_TruncatesInput(t *testing.T) {
	d := &stubDialect{name: "d", vec: []float64{1}}
	long := strings.Repeat("é", MaxEmbedChars+500)

	if _, err := NewDialectEmbedder(quietLogger(), d).Embed(context.Background(), "m", long); err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if n := utf8.RuneCountInString(d.seen); n != MaxEmbedChars {
		t.Errorf("dialect saw %d runes, want %d", n, MaxEmbedChars)
	}
}

func TestDialectEmbedder_OllamaFallback(t *testing.T) {
	client := newOllamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if _, ok := body["prompt"]; ok {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"prompt not supported"}`))
			return
		}
		_, _ = w.Write([]byte(`{"embedding":[0.25,0.5]}`))
	})

	e := NewDialectEmbedder(quietLogger(), client.PromptDialect(), client.InputDialect())
	vec, err := e.Embed(context.Background(), "m", "hi")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vec) != 2 {
		t.Errorf("vec = %v", vec)
	}
}
