// Package config provides configuration loading and structs for the Tsunagu server.
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
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Remote    RemoteConfig    `yaml:"remote"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// EmbeddingConfig holds embedder settings. Model is a path to an ONNX
// model file, or "mock" for the deterministic test embedder. Empty means
// no embedder: searches fall back to keyword matching.
type EmbeddingConfig struct {
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
}

// RetrievalConfig holds local index discovery and query settings.
type RetrievalConfig struct {
	Roots               []string `yaml:"roots"`
	DefaultTopK         int      `yaml:"default_top_k"`
	CacheCapacity       int      `yaml:"cache_capacity"`
	DiscoveryTTLSeconds int      `yaml:"discovery_ttl_seconds"`
	Watch               bool     `yaml:"watch"`
}

// RemoteConfig holds the remote vector service connection settings.
type RemoteConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Endpoint       string `yaml:"endpoint"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	BatchSize      int    `yaml:"batch_size"`
}

// Load reads and parses the config file at path, applies environment
// overrides and defaults, and expands paths. Returns an error if the file
// cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnv(&cfg)
	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	if cfg.Embedding.Model != "" && cfg.Embedding.Model != "mock" {
		cfg.Embedding.Model = expandPath(cfg.Embedding.Model, configDir)
	}
	for i := range cfg.Retrieval.Roots {
		cfg.Retrieval.Roots[i] = expandPath(cfg.Retrieval.Roots[i], configDir)
	}

	return &cfg, nil
}

// FromEnv builds a config without a file, from environment overrides and
// defaults alone. Used when no config file is given on the command line.
func FromEnv() *Config {
	var cfg Config
	applyEnv(&cfg)
	ApplyDefaults(&cfg)
	return &cfg
}

// applyEnv overrides file values from the environment. Environment wins
// over the file so deployments can reroute a binary without editing it.
func applyEnv(cfg *Config) {
	if v := os.Getenv("TSUNAGU_INDEX_ROOTS"); v != "" {
		roots := make([]string, 0)
		for _, r := range strings.Split(v, ",") {
			if r = strings.TrimSpace(r); r != "" {
				roots = append(roots, r)
			}
		}
		cfg.Retrieval.Roots = roots
	}
	if v := os.Getenv("TSUNAGU_REMOTE_ENDPOINT"); v != "" {
		cfg.Remote.Endpoint = v
		cfg.Remote.Enabled = true
	}
	if v := os.Getenv("TSUNAGU_REMOTE_API_KEY"); v != "" {
		cfg.Remote.APIKey = v
	}
	if v := os.Getenv("TSUNAGU_REMOTE_ENABLED"); v != "" {
		cfg.Remote.Enabled = v == "1" || strings.EqualFold(v, "true")
	}
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
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
