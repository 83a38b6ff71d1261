// ABOUTME: Tests for centralized configuration system
// ABOUTME: Verifies file parsing, environment overrides and validation
package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// Clear environment to test defaults
	os.Clearenv()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Collection != "code_chunks" {
		t.Errorf("Collection = %s, want code_chunks", cfg.Collection)
	}
	if cfg.EmbedModel != "nomic-embed-text" {
		t.Errorf("EmbedModel = %s, want nomic-embed-text", cfg.EmbedModel)
	}
	if cfg.ChunkLines != 40 || cfg.ChunkOverlap != 10 {
		t.Errorf("chunk = %d/%d, want 40/10", cfg.ChunkLines, cfg.ChunkOverlap)
	}
	if cfg.BatchSize != 64 {
		t.Errorf("BatchSize = %d, want 64", cfg.BatchSize)
	}
	if cfg.MaxFileBytes != 1_000_000 {
		t.Errorf("MaxFileBytes = %d, want 1000000", cfg.MaxFileBytes)
	}
	if cfg.VectorBackend != BackendQdrant {
		t.Errorf("VectorBackend = %s, want qdrant", cfg.VectorBackend)
	}
	if cfg.QdrantURL != "http://127.0.0.1:6333" {
		t.Errorf("QdrantURL = %s", cfg.QdrantURL)
	}
	if cfg.HTTPTimeout != 60*time.Second {
		t.Errorf("HTTPTimeout = %v, want 60s", cfg.HTTPTimeout)
	}
	if cfg.CheckTimeout != 5*time.Minute {
		t.Errorf("CheckTimeout = %v, want 5m", cfg.CheckTimeout)
	}
	if len(cfg.Exclude) != len(DefaultExcludes) {
		t.Errorf("Exclude = %v, want defaults", cfg.Exclude)
	}
}

func TestLoad_File(t *testing.T) {
	os.Clearenv()
	dir := t.TempDir()
	path := filepath.Join(dir, "agent.config.json")
	content := `{
  "codebasePath": "/src/app",
  "collection": "app_chunks",
  "embedModel": "mxbai-embed-large",
  "llmModel": "qwen2.5-coder",
  "include": ["**/*.go"],
  "exclude": ["vendor", "**/*_gen.go"],
  "maxFileBytes": 2048,
  "chunk": {"lines": 20, "overlap": 5},
  "dryRun": true
}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.CodebasePath != "/src/app" || cfg.Collection != "app_chunks" {
		t.Errorf("paths = %s/%s", cfg.CodebasePath, cfg.Collection)
	}
	if cfg.LLMModel != "qwen2.5-coder" || cfg.EmbedModel != "mxbai-embed-large" {
		t.Errorf("models = %s/%s", cfg.LLMModel, cfg.EmbedModel)
	}
	if cfg.ChunkLines != 20 || cfg.ChunkOverlap != 5 {
		t.Errorf("chunk = %d/%d, want 20/5", cfg.ChunkLines, cfg.ChunkOverlap)
	}
	if !cfg.DryRun {
		t.Error("DryRun = false, want true")
	}
	if cfg.MaxFileBytes != 2048 {
		t.Errorf("MaxFileBytes = %d, want 2048", cfg.MaxFileBytes)
	}
	wantTail := []string{"**/vendor/**", "**/*_gen.go"}
	got := cfg.Exclude[len(DefaultExcludes):]
	if len(got) != 2 || got[0] != wantTail[0] || got[1] != wantTail[1] {
		t.Errorf("user excludes = %v, want %v", got, wantTail)
	}
}

func TestLoad_ExludeTypo(t *testing.T) {
	os.Clearenv()
	path := filepath.Join(t.TempDir(), "agent.config.yaml")
	content := "collection: typo\nexlude:\n  - tmp\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	last := cfg.Exclude[len(cfg.Exclude)-1]
	if last != "**/tmp/**" {
		t.Errorf("last exclude = %s, want **/tmp/**", last)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	os.Clearenv()
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err == nil {
		t.Fatal("Load() should fail for a missing explicit file")
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	os.Clearenv()
	path := filepath.Join(t.TempDir(), "agent.config.json")
	if err := os.WriteFile(path, []byte("{not: [valid"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Load() error = %v, want ErrInvalidConfig", err)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	os.Clearenv()
	path := filepath.Join(t.TempDir(), "agent.config.json")
	if err := os.WriteFile(path, []byte(`{"batchSize": 8}`), 0644); err != nil {
		t.Fatal(err)
	}
	os.Setenv("BATCH_SIZE", "16")
	os.Setenv("VECTOR_SIZE", "768")
	os.Setenv("VECTOR_BACKEND", "sqlite")
	os.Setenv("SQLITE_PATH", "/tmp/v.db")
	os.Setenv("HTTP_TIMEOUT", "5s")
	os.Setenv("QDRANT_API_KEY", "secret")
	defer os.Clearenv()

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.BatchSize != 16 {
		t.Errorf("BatchSize = %d, want 16", cfg.BatchSize)
	}
	if cfg.VectorSize != 768 {
		t.Errorf("VectorSize = %d, want 768", cfg.VectorSize)
	}
	if cfg.VectorBackend != BackendSQLite || cfg.SQLitePath != "/tmp/v.db" {
		t.Errorf("backend = %s at %s", cfg.VectorBackend, cfg.SQLitePath)
	}
	if cfg.HTTPTimeout != 5*time.Second {
		t.Errorf("HTTPTimeout = %v, want 5s", cfg.HTTPTimeout)
	}
	if cfg.QdrantAPIKey != "secret" {
		t.Errorf("QdrantAPIKey = %q", cfg.QdrantAPIKey)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "zero window", mutate: func(c *Config) { c.ChunkLines = 0 }, wantErr: true},
		{name: "negative overlap", mutate: func(c *Config) { c.ChunkOverlap = -1 }, wantErr: true},
		{name: "overlap equals window", mutate: func(c *Config) { c.ChunkOverlap = c.ChunkLines }, wantErr: true},
		{name: "zero batch", mutate: func(c *Config) { c.BatchSize = 0 }, wantErr: true},
		{name: "unknown backend", mutate: func(c *Config) { c.VectorBackend = "pinecone" }, wantErr: true},
		{name: "unknown provider", mutate: func(c *Config) { c.ChatProvider = "bard" }, wantErr: true},
		{name: "openai without key", mutate: func(c *Config) { c.ChatProvider = ProviderOpenAI }, wantErr: true},
		{name: "openai with key", mutate: func(c *Config) { c.ChatProvider = ProviderOpenAI; c.OpenAIKey = "k" }},
		{name: "empty collection", mutate: func(c *Config) { c.Collection = "" }, wantErr: true},
		{name: "negative vector size", mutate: func(c *Config) { c.VectorSize = -3 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestNormalizePattern(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"vendor", "**/vendor/**"},
		{" tmp ", "**/tmp/**"},
		{"**/*.min.js", "**/*.min.js"},
		{"docs/api", "docs/api"},
		{"src\\gen", "src/gen"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizePattern(tt.in); got != tt.want {
			t.Errorf("NormalizePattern(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMergeExcludes_Dedup(t *testing.T) {
	got := MergeExcludes([]string{"node_modules", "vendor", "vendor", ""})
	if len(got) != len(DefaultExcludes)+1 {
		t.Errorf("MergeExcludes() = %v", got)
	}
}

func TestDefaultSQLitePath_HonoursXDG(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	if got := DefaultSQLitePath(); got != filepath.Join("/data", "repoagent", "vectors.db") {
		t.Errorf("DefaultSQLitePath() = %s", got)
	}
}
