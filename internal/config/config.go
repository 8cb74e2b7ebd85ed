// Package config loads corelens's layered configuration: built-in
// defaults, an optional project `.corelens.yaml`, then environment
// variable overrides, each layer taking precedence over the last.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the complete, merged corelens configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Paths      PathsConfig      `yaml:"paths" json:"paths"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Index      IndexConfig      `yaml:"index" json:"index"`
}

// PathsConfig controls which files the walker visits.
type PathsConfig struct {
	Extensions     []string `yaml:"extensions" json:"extensions"`
	ExcludeGlobs   []string `yaml:"exclude" json:"exclude"`
	FollowHidden   bool     `yaml:"follow_hidden" json:"follow_hidden"`
	FollowSymlinks bool     `yaml:"follow_symlinks" json:"follow_symlinks"`
	MaxFileSizeMB  int      `yaml:"max_file_size_mb" json:"max_file_size_mb"`
}

// SearchConfig controls retrieval fan-out and boost tuning. The
// defaults are starting points chosen to be conservative and are
// meant to be tuned per project once real query traffic is observed.
type SearchConfig struct {
	ScopedOverfetch   int     `yaml:"scoped_overfetch" json:"scoped_overfetch"`
	UnscopedOverfetch int     `yaml:"unscoped_overfetch" json:"unscoped_overfetch"`
	BoostCap          float64 `yaml:"boost_cap" json:"boost_cap"`
}

// EmbeddingsConfig selects and configures the embedder.
type EmbeddingsConfig struct {
	Provider string `yaml:"provider" json:"provider"` // "static" | "ollama"
	Model    string `yaml:"model" json:"model"`
	Host     string `yaml:"host" json:"host"` // ollama host, if applicable
}

// IndexConfig controls index directory naming and concurrency.
type IndexConfig struct {
	MarkerDir  string `yaml:"marker_dir" json:"marker_dir"`
	BatchSize  int    `yaml:"batch_size" json:"batch_size"`
	AutoBuild  bool   `yaml:"-" json:"-"` // env-only, see applyEnvOverrides
}

// Default returns the built-in configuration defaults.
func Default() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			Extensions:     []string{".go", ".js", ".jsx", ".mjs", ".ts", ".tsx", ".py", ".md", ".rst", ".txt"},
			ExcludeGlobs:   []string{},
			FollowHidden:   false,
			FollowSymlinks: false,
			MaxFileSizeMB:  1,
		},
		Search: SearchConfig{
			ScopedOverfetch:   5,
			UnscopedOverfetch: 1,
			BoostCap:          4.0,
		},
		Embeddings: EmbeddingsConfig{
			Provider: "static",
			Model:    "corelens-static-v1",
			Host:     "http://127.0.0.1:11434",
		},
		Index: IndexConfig{
			MarkerDir: ".corelens",
			BatchSize: 32,
		},
	}
}

// ConfigFileName is the project-local config file corelens looks for.
const ConfigFileName = ".corelens.yaml"

// Load resolves configuration for the project rooted at dir: defaults,
// then dir/.corelens.yaml if present, then environment variables.
func Load(dir string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFromFile(dir string) error {
	path := filepath.Join(dir, ConfigFileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	c.mergeWith(&parsed)
	return nil
}

// mergeWith overlays non-zero fields of other onto c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}
	if len(other.Paths.Extensions) > 0 {
		c.Paths.Extensions = other.Paths.Extensions
	}
	if len(other.Paths.ExcludeGlobs) > 0 {
		c.Paths.ExcludeGlobs = other.Paths.ExcludeGlobs
	}
	if other.Paths.MaxFileSizeMB != 0 {
		c.Paths.MaxFileSizeMB = other.Paths.MaxFileSizeMB
	}
	c.Paths.FollowHidden = other.Paths.FollowHidden || c.Paths.FollowHidden
	c.Paths.FollowSymlinks = other.Paths.FollowSymlinks || c.Paths.FollowSymlinks

	if other.Search.ScopedOverfetch != 0 {
		c.Search.ScopedOverfetch = other.Search.ScopedOverfetch
	}
	if other.Search.UnscopedOverfetch != 0 {
		c.Search.UnscopedOverfetch = other.Search.UnscopedOverfetch
	}
	if other.Search.BoostCap != 0 {
		c.Search.BoostCap = other.Search.BoostCap
	}

	if other.Embeddings.Provider != "" {
		c.Embeddings.Provider = other.Embeddings.Provider
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.Host != "" {
		c.Embeddings.Host = other.Embeddings.Host
	}

	if other.Index.MarkerDir != "" {
		c.Index.MarkerDir = other.Index.MarkerDir
	}
	if other.Index.BatchSize != 0 {
		c.Index.BatchSize = other.Index.BatchSize
	}
}

// applyEnvOverrides applies CORELENS_* environment variables, which
// take precedence over both defaults and the project config file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CORELENS_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("CORELENS_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("CORELENS_OLLAMA_HOST"); v != "" {
		c.Embeddings.Host = v
	}
	if v := os.Getenv("CORELENS_BOOST_CAP"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Search.BoostCap = f
		}
	}
	// CORELENS_AUTO_BUILD=1 builds automatically on search if no index exists.
	if v := os.Getenv("CORELENS_AUTO_BUILD"); v == "1" || v == "true" {
		c.Index.AutoBuild = true
	}
}

// Validate rejects nonsensical configuration.
func (c *Config) Validate() error {
	if c.Paths.MaxFileSizeMB <= 0 {
		return fmt.Errorf("paths.max_file_size_mb must be positive, got %d", c.Paths.MaxFileSizeMB)
	}
	if c.Search.ScopedOverfetch < 1 || c.Search.UnscopedOverfetch < 1 {
		return fmt.Errorf("search overfetch factors must be >= 1")
	}
	if c.Search.BoostCap < 1.0 {
		return fmt.Errorf("search.boost_cap must be >= 1.0, got %f", c.Search.BoostCap)
	}
	if c.Index.BatchSize < 1 {
		return fmt.Errorf("index.batch_size must be >= 1")
	}
	return nil
}

// MaxFileSizeBytes converts the configured cap to bytes.
func (c *Config) MaxFileSizeBytes() int64 {
	return int64(c.Paths.MaxFileSizeMB) * 1024 * 1024
}
