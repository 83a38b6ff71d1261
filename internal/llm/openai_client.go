// ABOUTME: OpenAI-compatible client for chat completions and embeddings
// ABOUTME: Works against api.openai.com or any server exposing the same API (vLLM, LM Studio, Ollama /v1)
package llm

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// ClientConfig holds configuration for the OpenAI client
type ClientConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// OpenAIClient wraps the go-openai client. Calls are bounded by Timeout and never retried.
type OpenAIClient struct {
	client  *openai.Client
	timeout time.Duration
}

// NewOpenAIClient creates a client. An empty API key is accepted when a
// BaseURL points at a local server that ignores it.
func NewOpenAIClient(config ClientConfig) (*OpenAIClient, error) {
	if config.APIKey == "" && config.BaseURL == "" {
		return nil, fmt.Errorf("OpenAI API key or base URL is required")
	}

	cfg := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		cfg.BaseURL = config.BaseURL
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &OpenAIClient{
		client:  openai.NewClientWithConfig(cfg),
		timeout: timeout,
	}, nil
}

// Name identifies the client as an embedding dialect
func (c *OpenAIClient) Name() string { return "openai" }

// Embed requests a single embedding from /v1/embeddings
func (c *OpenAIClient) Embed(ctx context.Context, model, text string) ([]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: []string{text},
		Model: openai.EmbeddingModel(model),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}

	// Convert []float32 to []float64
	embedding32 := resp.Data[0].Embedding
	embedding64 := make([]float64, len(embedding32))
	for i, v := range embedding32 {
		embedding64[i] = float64(v)
	}
	return embedding64, nil
}

// Chat implements ChatClient with a single chat completion
func (c *OpenAIClient) Chat(ctx context.Context, model string, messages []Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	msgs := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		if m.Role == RoleSystem {
			role = openai.ChatMessageRoleSystem
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: 0.1,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrChatFailed, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no completion choices returned", ErrChatFailed)
	}
	return resp.Choices[0].Message.Content, nil
}
