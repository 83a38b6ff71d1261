// ABOUTME: Tests for the OpenAI-compatible client against a fake /v1 server
// ABOUTME: Covers chat replies, embeddings and error wrapping
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newOpenAIServer(t *testing.T) *OpenAIClient {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/embeddings", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["model"] != "text-embedding-3-small" {
			t.Errorf("model = %v", req["model"])
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.5,0.25]}],"model":"text-embedding-3-small"}`))
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []Message `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("messages = %+v", req.Messages)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"answer"},"finish_reason":"stop"}]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client, err := NewOpenAIClient(ClientConfig{APIKey: "test-key", BaseURL: srv.URL + "/v1", Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewOpenAIClient() error = %v", err)
	}
	return client
}

func TestNewOpenAIClient_RequiresKeyOrURL(t *testing.T) {
	if _, err := NewOpenAIClient(ClientConfig{}); err == nil {
		t.Error("NewOpenAIClient() should fail without key or base URL")
	}
	if _, err := NewOpenAIClient(ClientConfig{BaseURL: "http://localhost:1234/v1"}); err != nil {
		t.Errorf("NewOpenAIClient() with base URL error = %v", err)
	}
}

func TestOpenAIClient_Embed(t *testing.T) {
	client := newOpenAIServer(t)

	vec, err := client.Embed(context.Background(), "text-embedding-3-small", "hello")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vec) != 2 || vec[0] != 0.5 {
		t.Errorf("vec = %v", vec)
	}
	if client.Name() != "openai" {
		t.Errorf("Name() = %s", client.Name())
	}
}

func TestOpenAIClient_Chat(t *testing.T) {
	client := newOpenAIServer(t)

	out, err := client.Chat(context.Background(), "gpt-4o-mini", []Message{
		{Role: RoleSystem, Content: "be terse"},
		{Role: RoleUser, Content: "hi"},
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if out != "answer" {
		t.Errorf("Chat() = %q, want answer", out)
	}
}

func TestOpenAIClient_ChatError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	client, _ := NewOpenAIClient(ClientConfig{APIKey: "k", BaseURL: srv.URL + "/v1"})
	_, err := client.Chat(context.Background(), "m", []Message{{Role: RoleUser, Content: "x"}})
	if !errors.Is(err, ErrChatFailed) {
		t.Errorf("Chat() error = %v, want ErrChatFailed", err)
	}
}
