// ABOUTME: Contracts for the language-model collaborators of the pipeline
// ABOUTME: Embedder turns text into vectors, ChatClient turns messages into a reply
package llm

import (
	"context"
	"errors"

	"github.com/harper/repoagent/internal/util"
)

// MaxEmbedChars caps every embedding input, in runes. Longer inputs are truncated.
const MaxEmbedChars = 4000

var (
	// ErrEmbeddingUnavailable is returned when no dialect produced a vector
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
	// ErrChatFailed wraps transport and decoding failures of a chat call
	ErrChatFailed = errors.New("chat request failed")
)

// Roles understood by every chat backend
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one chat turn
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Embedder maps text to a vector
type Embedder interface {
	Embed(ctx context.Context, model, text string) ([]float64, error)
}

// ChatClient sends a non-streaming chat request and returns the reply text
type ChatClient interface {
	Chat(ctx context.Context, model string, messages []Message) (string, error)
}

// TruncateInput applies the embedding input bound
func TruncateInput(text string) string {
	return util.TruncateRunes(text, MaxEmbedChars)
}
