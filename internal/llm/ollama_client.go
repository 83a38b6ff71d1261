// ABOUTME: Ollama HTTP client for embeddings and non-streaming chat
// ABOUTME: Provides the prompt and input embedding dialects
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OllamaClient talks to an Ollama server's native API
type OllamaClient struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

// NewOllamaClient creates a client for baseURL. Every request is bounded by timeout.
func NewOllamaClient(baseURL string, timeout time.Duration) *OllamaClient {
	return &OllamaClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		timeout: timeout,
	}
}

type embeddingResponse struct {
	Embedding  []float64   `json:"embedding"`
	Embeddings [][]float64 `json:"embeddings"`
	Error      string      `json:"error"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type chatResponse struct {
	Message *Message `json:"message"`
	Error   string   `json:"error"`
}

// post sends body as JSON and decodes the reply into out. Ollama reports
// failures as {"error": "..."}, with or without a non-2xx status.
func (c *OllamaClient) post(ctx context.Context, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("POST %s: status %d: unexpected body %q", path, resp.StatusCode, truncateBody(data))
	}
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("POST %s: status %d: %s", path, resp.StatusCode, truncateBody(data))
	}
	return nil
}

func (c *OllamaClient) embed(ctx context.Context, body map[string]string) ([]float64, error) {
	var out embeddingResponse
	if err := c.post(ctx, "/api/embeddings", body, &out); err != nil {
		if out.Error != "" {
			return nil, fmt.Errorf("%s", out.Error)
		}
		return nil, err
	}
	if out.Error != "" {
		return nil, fmt.Errorf("%s", out.Error)
	}
	if len(out.Embedding) > 0 {
		return out.Embedding, nil
	}
	if len(out.Embeddings) > 0 && len(out.Embeddings[0]) > 0 {
		return out.Embeddings[0], nil
	}
	return nil, fmt.Errorf("response has no embedding array")
}

// Chat implements ChatClient against /api/chat with streaming disabled
func (c *OllamaClient) Chat(ctx context.Context, model string, messages []Message) (string, error) {
	var out chatResponse
	err := c.post(ctx, "/api/chat", chatRequest{Model: model, Messages: messages, Stream: false}, &out)
	if out.Error != "" {
		return "", fmt.Errorf("%w: %s", ErrChatFailed, out.Error)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrChatFailed, err)
	}
	if out.Message == nil {
		return "", nil
	}
	return out.Message.Content, nil
}

// ollamaDialect sends the text under a single request field
type ollamaDialect struct {
	client *OllamaClient
	field  string
}

func (d ollamaDialect) Name() string { return "ollama-" + d.field }

func (d ollamaDialect) Embed(ctx context.Context, model, text string) ([]float64, error) {
	return d.client.embed(ctx, map[string]string{"model": model, d.field: text})
}

// PromptDialect posts {model, prompt}
func (c *OllamaClient) PromptDialect() EmbedDialect {
	return ollamaDialect{client: c, field: "prompt"}
}

// InputDialect posts {model, input}
func (c *OllamaClient) InputDialect() EmbedDialect {
	return ollamaDialect{client: c, field: "input"}
}

func truncateBody(b []byte) string {
	const limit = 300
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
