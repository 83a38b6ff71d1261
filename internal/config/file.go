// ABOUTME: Reads the agent config file (JSON or YAML) into a Config
// ABOUTME: Missing optional keys keep their defaults; the "exlude" typo is accepted
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

type chunkFile struct {
	Lines   *int `yaml:"lines"`
	Overlap *int `yaml:"overlap"`
}

// fileConfig mirrors agent.config.json. JSON is a subset of YAML, so one
// decoder reads both formats.
type fileConfig struct {
	CodebasePath string     `yaml:"codebasePath"`
	Collection   string     `yaml:"collection"`
	EmbedModel   string     `yaml:"embedModel"`
	LLMModel     string     `yaml:"llmModel"`
	Include      []string   `yaml:"include"`
	Exclude      []string   `yaml:"exclude"`
	Exlude       []string   `yaml:"exlude"`
	MaxFileBytes *int64     `yaml:"maxFileBytes"`
	Chunk        *chunkFile `yaml:"chunk"`
	DryRun       *bool      `yaml:"dryRun"`
	PromptFile   string     `yaml:"promptFile"`
	GitCommits   *int       `yaml:"gitCommits"`
	VectorSize   *int       `yaml:"vectorSize"`
	BatchSize    *int       `yaml:"batchSize"`
}

// applyFile merges the file at path into c. A missing file is an error only
// when the caller named it explicitly.
func (c *Config) applyFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("%w: failed to parse %s: %v", ErrInvalidConfig, path, err)
	}
	c.merge(fc)
	return nil
}

func (c *Config) merge(fc fileConfig) {
	if fc.CodebasePath != "" {
		c.CodebasePath = fc.CodebasePath
	}
	if fc.Collection != "" {
		c.Collection = fc.Collection
	}
	if fc.EmbedModel != "" {
		c.EmbedModel = fc.EmbedModel
	}
	if fc.LLMModel != "" {
		c.LLMModel = fc.LLMModel
	}
	if len(fc.Include) > 0 {
		c.Include = fc.Include
	}

	userExclude := fc.Exclude
	if userExclude == nil {
		userExclude = fc.Exlude
	}
	c.Exclude = MergeExcludes(userExclude)

	if fc.MaxFileBytes != nil {
		c.MaxFileBytes = *fc.MaxFileBytes
	}
	if fc.Chunk != nil {
		if fc.Chunk.Lines != nil {
			c.ChunkLines = *fc.Chunk.Lines
		}
		if fc.Chunk.Overlap != nil {
			c.ChunkOverlap = *fc.Chunk.Overlap
		}
	}
	if fc.DryRun != nil {
		c.DryRun = *fc.DryRun
	}
	if fc.PromptFile != "" {
		c.PromptFile = fc.PromptFile
	}
	if fc.GitCommits != nil {
		c.GitCommits = *fc.GitCommits
	}
	if fc.VectorSize != nil {
		c.VectorSize = *fc.VectorSize
	}
	if fc.BatchSize != nil {
		c.BatchSize = *fc.BatchSize
	}
}
