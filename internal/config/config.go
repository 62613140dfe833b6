// Package config provides configuration loading and structs for the wordvec server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug   bool          `yaml:"debug"`
	Server  ServerConfig  `yaml:"server"`
	Vectors VectorsConfig `yaml:"vectors"`
	Index   IndexConfig   `yaml:"index"`
	Search  SearchConfig  `yaml:"search"`
	Suggest SuggestConfig `yaml:"suggest"`
	Watch   WatchConfig   `yaml:"watch"`
}

// ServerConfig holds HTTP server settings. An empty Host listens on all interfaces.
type ServerConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	CacheSize int    `yaml:"cache_size"` // similar-word result cache entries; negative disables
}

// VectorsConfig describes the embedding file loaded at startup.
type VectorsConfig struct {
	Path       string `yaml:"path"`
	Format     string `yaml:"format"` // auto, binary, text, sqlite
	Compressed bool   `yaml:"compressed"`
	Limit      int    `yaml:"limit"`     // max records ingested; negative means no limit
	ZeroNorm   string `yaml:"zero_norm"` // reject or keep
}

// IndexConfig selects the nearest-neighbor index.
type IndexConfig struct {
	Type   string  `yaml:"type"` // lsh or memory
	Tables int     `yaml:"tables"`
	Planes int     `yaml:"planes"`
	Seed   *uint64 `yaml:"seed"` // unset draws a random seed at startup
}

// SearchConfig holds the result-count policy.
type SearchConfig struct {
	DefaultCount int `yaml:"default_count"`
	MaxCount     int `yaml:"max_count"`
}

// SuggestConfig controls vocabulary suggestions for unknown words.
type SuggestConfig struct {
	Enabled      bool `yaml:"enabled"`
	MaxDistance  int  `yaml:"max_distance"`
	DefaultCount int  `yaml:"default_count"`
}

// WatchConfig controls the embedding file watcher.
type WatchConfig struct {
	Enabled *bool `yaml:"enabled"`
}

// EnabledOrDefault returns whether to watch the embedding file; defaults to true when unset.
func (w *WatchConfig) EnabledOrDefault() bool {
	if w.Enabled != nil {
		return *w.Enabled
	}
	return true
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Vectors.Path = expandPath(cfg.Vectors.Path, configDir)

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate reports settings that cannot be served.
func (c *Config) Validate() error {
	if c.Vectors.Path == "" {
		return fmt.Errorf("vectors.path is required")
	}
	if c.Index.Tables < 1 {
		return fmt.Errorf("index.tables must be at least 1, got %d", c.Index.Tables)
	}
	if c.Index.Planes < 1 || c.Index.Planes > 64 {
		return fmt.Errorf("index.planes must be in [1, 64], got %d", c.Index.Planes)
	}
	if c.Search.DefaultCount < 1 || c.Search.DefaultCount > c.Search.MaxCount {
		return fmt.Errorf("search.default_count must be in [1, max_count], got %d", c.Search.DefaultCount)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
