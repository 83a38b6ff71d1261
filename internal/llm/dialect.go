// ABOUTME: Ordered embedding dialect strategies with first-success semantics
// ABOUTME: All failures collapse into ErrEmbeddingUnavailable carrying every cause
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
)

// EmbedDialect is one request/response shape for obtaining an embedding
type EmbedDialect interface {
	Name() string
	Embed(ctx context.Context, model, text string) ([]float64, error)
}

// DialectEmbedder tries each dialect in order and returns the first
// non-empty vector.
type DialectEmbedder struct {
	dialects []EmbedDialect
	logger   *log.Logger
}

// NewDialectEmbedder creates an embedder over the given dialects.
func NewDialectEmbedder(logger *log.Logger, dialects ...EmbedDialect) *DialectEmbedder {
	if logger == nil {
		logger = log.Default()
	}
	return &DialectEmbedder{dialects: dialects, logger: logger}
}

// Embed truncates text to MaxEmbedChars and returns the first vector any dialect yields
func (e *DialectEmbedder) Embed(ctx context.Context, model, text string) ([]float64, error) {
	text = TruncateInput(text)

	var errs []error
	for _, d := range e.dialects {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		vec, err := d.Embed(ctx, model, text)
		if err != nil {
			e.logger.Debug("embedding dialect failed", "dialect", d.Name(), "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", d.Name(), err))
			continue
		}
		if len(vec) == 0 {
			errs = append(errs, fmt.Errorf("%s: empty vector", d.Name()))
			continue
		}
		return vec, nil
	}

	if len(errs) == 0 {
		errs = append(errs, errors.New("no embedding dialects configured"))
	}
	return nil, fmt.Errorf("%w (is the model pulled and the server running?): %w", ErrEmbeddingUnavailable, errors.Join(errs...))
}
