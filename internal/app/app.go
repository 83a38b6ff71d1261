// ABOUTME: Builds the pipeline's collaborators from a Config
// ABOUTME: Shared by the CLI, the MCP server and the benchmark runner
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/harper/repoagent/internal/config"
	"github.com/harper/repoagent/internal/core"
	"github.com/harper/repoagent/internal/llm"
	"github.com/harper/repoagent/internal/storage"
	"github.com/harper/repoagent/internal/storage/qdrant"
	"github.com/harper/repoagent/internal/storage/redis"
	"github.com/harper/repoagent/internal/storage/sqlite"
	"github.com/harper/repoagent/internal/storage/weaviate"
	goredis "github.com/redis/go-redis/v9"
)

// lockTries bounds how often an index run retries a held lock
const lockTries = 8

// App holds the long-lived clients for one invocation
type App struct {
	Config   *config.Config
	Embedder llm.Embedder
	Chat     llm.ChatClient
	Store    *storage.Gateway
	Lock     core.IndexLock
	Logger   *log.Logger

	redis *goredis.Client
}

// New connects every collaborator cfg names. Redis is optional: when
// REDIS_ADDR is unset there is no embedding cache and no index lock.
func New(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	if logger == nil {
		logger = log.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	store, err := NewStore(cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Store = store

	var cache llm.EmbeddingCache
	if cfg.RedisAddr != "" {
		client, err := redis.NewClient(ctx, redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.redis = client
		cache = redis.NewEmbeddingCache(client, cfg.CacheTTL)
		a.Lock = redis.NewIndexLock(client, cfg.LockTTL, lockTries)
		logger.Debug("redis enabled", "addr", cfg.RedisAddr)
	}

	embedder, err := NewEmbedder(cfg, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	if cache != nil {
		embedder = llm.NewCachedEmbedder(embedder, cache, logger)
	}
	a.Embedder = embedder

	chat, err := NewChat(cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Chat = chat
	return a, nil
}

// NewStore opens the configured vector store backend behind a Gateway
func NewStore(cfg *config.Config, logger *log.Logger) (*storage.Gateway, error) {
	var backend storage.Backend
	switch cfg.VectorBackend {
	case config.BackendQdrant:
		backend = qdrant.New(qdrant.Config{URL: cfg.QdrantURL, APIKey: cfg.QdrantAPIKey, Timeout: cfg.HTTPTimeout})
	case config.BackendSQLite:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open vector database: %w", err)
		}
		backend = sqlite.NewBackend(db)
	case config.BackendWeaviate:
		b, err := weaviate.New(weaviate.Config{
			Host:    cfg.WeaviateHost,
			Scheme:  cfg.WeaviateScheme,
			APIKey:  cfg.WeaviateAPIKey,
			Timeout: cfg.HTTPTimeout,
		})
		if err != nil {
			return nil, err
		}
		backend = b
	default:
		return nil, fmt.Errorf("%w: unknown vector backend %q", config.ErrInvalidConfig, cfg.VectorBackend)
	}
	return storage.NewGateway(backend, logger), nil
}

// NewEmbedder builds the ordered dialect chain: Ollama prompt, Ollama input,
// then the OpenAI-compatible endpoint when one is configured
func NewEmbedder(cfg *config.Config, logger *log.Logger) (llm.Embedder, error) {
	ollama := llm.NewOllamaClient(cfg.OllamaURL, cfg.HTTPTimeout)
	dialects := []llm.EmbedDialect{ollama.PromptDialect(), ollama.InputDialect()}

	if cfg.OpenAIEmbeddingsEnabled() {
		baseURL := cfg.EmbedOpenAIBaseURL
		if baseURL == "" {
			baseURL = cfg.OpenAIBaseURL
		}
		client, err := llm.NewOpenAIClient(llm.ClientConfig{APIKey: cfg.OpenAIKey, BaseURL: baseURL, Timeout: cfg.HTTPTimeout})
		if err != nil {
			return nil, fmt.Errorf("failed to create embedding client: %w", err)
		}
		dialects = append(dialects, client)
	}
	return llm.NewDialectEmbedder(logger, dialects...), nil
}

// NewChat returns the chat client for the configured provider
func NewChat(cfg *config.Config) (llm.ChatClient, error) {
	if cfg.ChatProvider == config.ProviderOpenAI {
		client, err := llm.NewOpenAIClient(llm.ClientConfig{APIKey: cfg.OpenAIKey, BaseURL: cfg.OpenAIBaseURL, Timeout: cfg.HTTPTimeout})
		if err != nil {
			return nil, fmt.Errorf("failed to create chat client: %w", err)
		}
		return client, nil
	}
	return llm.NewOllamaClient(cfg.OllamaURL, cfg.HTTPTimeout), nil
}

// Retriever returns a single-query retriever over the store
func (a *App) Retriever() *core.Retriever {
	return core.NewRetriever(a.Embedder, a.Store)
}

// Indexer returns an indexer holding the index lock when one is configured
func (a *App) Indexer() (*core.Indexer, error) {
	ix, err := core.NewIndexer(a.Config, a.Embedder, a.Store, a.Logger)
	if err != nil {
		return nil, err
	}
	if a.Lock != nil {
		ix.SetLock(a.Lock)
	}
	return ix, nil
}

// Aggregator returns a topic aggregator for the configured collection
func (a *App) Aggregator() *core.Aggregator {
	return core.NewAggregator(a.Retriever(), a.Config.Collection, a.Config.EmbedModel, a.Logger)
}

// Answerer returns the ask front end
func (a *App) Answerer() *core.Answerer {
	return core.NewAnswerer(a.Retriever(), a.Chat, a.Logger)
}

// Pipeline returns the analyze/apply pipeline
func (a *App) Pipeline() *core.Pipeline {
	return core.NewPipeline(a.Config, a.Retriever(), a.Chat, core.ShellRunner{}, a.Logger)
}

// Close releases the store and the redis connection
func (a *App) Close() error {
	var errs []error
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	return errors.Join(errs...)
}
