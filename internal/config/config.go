// ABOUTME: Centralized configuration for the repoagent pipeline
// ABOUTME: Layers defaults, the agent config file and environment variables, then validates
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
)

// DefaultConfigFile is looked up in the working directory when no path is given.
const DefaultConfigFile = "agent.config.json"

// Vector store backends
const (
	BackendQdrant   = "qdrant"
	BackendSQLite   = "sqlite"
	BackendWeaviate = "weaviate"
)

// Chat providers
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// ErrInvalidConfig is wrapped by every validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all configuration for one pipeline invocation.
// It is built once and passed by value or pointer, never mutated by components.
type Config struct {
	// Repository and indexing
	CodebasePath string
	Collection   string
	Include      []string
	Exclude      []string
	MaxFileBytes int64
	ChunkLines   int
	ChunkOverlap int
	BatchSize    int
	VectorSize   int
	Workers      int

	// Models
	EmbedModel string
	LLMModel   string

	// Request assembly
	PromptFile string
	GitCommits int
	DryRun     bool

	// Endpoints
	OllamaURL          string
	ChatProvider       string
	OpenAIKey          string
	OpenAIBaseURL      string
	EmbedOpenAIBaseURL string

	// Vector store
	VectorBackend  string
	QdrantURL      string
	QdrantAPIKey   string
	SQLitePath     string
	WeaviateHost   string
	WeaviateScheme string
	WeaviateAPIKey string

	// Redis embedding cache and index lock
	RedisAddr     string
	RedisPassword string
	CacheTTL      time.Duration
	LockTTL       time.Duration

	// Timeouts
	HTTPTimeout  time.Duration
	CheckTimeout time.Duration
}

// Defaults returns the configuration used when nothing else is specified
func Defaults() *Config {
	return &Config{
		CodebasePath:   ".",
		Collection:     "code_chunks",
		Include:        []string{"**/*.{ts,tsx,js,jsx,md,mjs,cjs,py,go,rs,java,kt,json}"},
		Exclude:        MergeExcludes(nil),
		MaxFileBytes:   1_000_000,
		ChunkLines:     40,
		ChunkOverlap:   10,
		BatchSize:      64,
		Workers:        4,
		EmbedModel:     "nomic-embed-text",
		LLMModel:       "llama3.1",
		PromptFile:     "prompt.txt",
		GitCommits:     20,
		OllamaURL:      "http://127.0.0.1:11434",
		ChatProvider:   ProviderOllama,
		VectorBackend:  BackendQdrant,
		QdrantURL:      "http://127.0.0.1:6333",
		SQLitePath:     DefaultSQLitePath(),
		WeaviateHost:   "127.0.0.1:8080",
		WeaviateScheme: "http",
		CacheTTL:       24 * time.Hour,
		LockTTL:        30 * time.Minute,
		HTTPTimeout:    60 * time.Second,
		CheckTimeout:   5 * time.Minute,
	}
}

// Load reads the config file at path (or agent.config.json in the working
// directory when path is empty and the file exists), applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}
	if err := cfg.applyFile(path, explicit); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	c.OllamaURL = getEnv("OLLAMA_URL", c.OllamaURL)
	c.ChatProvider = getEnv("CHAT_PROVIDER", c.ChatProvider)
	c.OpenAIKey = getEnv("OPENAI_API_KEY", c.OpenAIKey)
	c.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", c.OpenAIBaseURL)
	c.EmbedOpenAIBaseURL = getEnv("EMBED_OPENAI_BASE_URL", c.EmbedOpenAIBaseURL)

	c.VectorBackend = getEnv("VECTOR_BACKEND", c.VectorBackend)
	c.QdrantURL = getEnv("QDRANT_URL", c.QdrantURL)
	c.QdrantAPIKey = getEnv("QDRANT_API_KEY", c.QdrantAPIKey)
	c.SQLitePath = getEnv("SQLITE_PATH", c.SQLitePath)
	c.WeaviateHost = getEnv("WEAVIATE_HOST", c.WeaviateHost)
	c.WeaviateScheme = getEnv("WEAVIATE_SCHEME", c.WeaviateScheme)
	c.WeaviateAPIKey = getEnv("WEAVIATE_API_KEY", c.WeaviateAPIKey)

	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	c.CacheTTL = getEnvDuration("EMBED_CACHE_TTL", c.CacheTTL)

	c.VectorSize = getEnvInt("VECTOR_SIZE", c.VectorSize)
	c.BatchSize = getEnvInt("BATCH_SIZE", c.BatchSize)
	c.Workers = getEnvInt("INDEX_WORKERS", c.Workers)
	c.DryRun = getEnvBool("DRY_RUN", c.DryRun)

	c.HTTPTimeout = getEnvDuration("HTTP_TIMEOUT", c.HTTPTimeout)
	c.CheckTimeout = getEnvDuration("CHECK_TIMEOUT", c.CheckTimeout)
}

// Validate checks ranges and enumerations
func (c *Config) Validate() error {
	if c.ChunkLines <= 0 {
		return fmt.Errorf("%w: chunk.lines must be > 0, got %d", ErrInvalidConfig, c.ChunkLines)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkLines {
		return fmt.Errorf("%w: chunk.overlap must be 0 <= overlap < lines, got %d", ErrInvalidConfig, c.ChunkOverlap)
	}
	if c.BatchSize <= 0 || c.BatchSize > 1024 {
		return fmt.Errorf("%w: BATCH_SIZE must be 1-1024, got %d", ErrInvalidConfig, c.BatchSize)
	}
	if c.VectorSize < 0 {
		return fmt.Errorf("%w: VECTOR_SIZE must be >= 0, got %d", ErrInvalidConfig, c.VectorSize)
	}
	if c.Workers <= 0 || c.Workers > 64 {
		return fmt.Errorf("%w: INDEX_WORKERS must be 1-64, got %d", ErrInvalidConfig, c.Workers)
	}
	if c.MaxFileBytes <= 0 {
		return fmt.Errorf("%w: maxFileBytes must be > 0, got %d", ErrInvalidConfig, c.MaxFileBytes)
	}
	if c.Collection == "" {
		return fmt.Errorf("%w: collection cannot be empty", ErrInvalidConfig)
	}
	if len(c.Include) == 0 {
		return fmt.Errorf("%w: include cannot be empty", ErrInvalidConfig)
	}
	switch c.VectorBackend {
	case BackendQdrant, BackendSQLite, BackendWeaviate:
	default:
		return fmt.Errorf("%w: VECTOR_BACKEND must be qdrant, sqlite or weaviate, got %q", ErrInvalidConfig, c.VectorBackend)
	}
	switch c.ChatProvider {
	case ProviderOllama:
	case ProviderOpenAI:
		if c.OpenAIKey == "" && c.OpenAIBaseURL == "" {
			return fmt.Errorf("%w: CHAT_PROVIDER=openai requires OPENAI_API_KEY or OPENAI_BASE_URL", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: CHAT_PROVIDER must be ollama or openai, got %q", ErrInvalidConfig, c.ChatProvider)
	}
	if c.HTTPTimeout <= 0 || c.CheckTimeout <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidConfig)
	}
	return nil
}

// OpenAIEmbeddingsEnabled reports whether the OpenAI-compatible embedding dialect is configured
func (c *Config) OpenAIEmbeddingsEnabled() bool {
	return c.EmbedOpenAIBaseURL != "" || c.OpenAIKey != ""
}

// RepoRoot returns the absolute codebase path
func (c *Config) RepoRoot() (string, error) {
	abs, err := filepath.Abs(c.CodebasePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve codebase path: %w", err)
	}
	return abs, nil
}

// DefaultDataDir returns the XDG data directory for repoagent.
// XDG_DATA_HOME is honoured at call time so tests can redirect it.
func DefaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		dataHome = xdg.DataHome
	}
	return filepath.Join(dataHome, "repoagent")
}

// DefaultSQLitePath returns the default location of the local vector database
func DefaultSQLitePath() string {
	return filepath.Join(DefaultDataDir(), "vectors.db")
}

// Helper functions
func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v == "true" || v == "1"
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
