package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
retrieval:
  roots: ["/var/lib/tsunagu/indexes"]
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if len(cfg.Retrieval.Roots) != 1 || cfg.Retrieval.Roots[0] != "/var/lib/tsunagu/indexes" {
		t.Errorf("unexpected roots: %v", cfg.Retrieval.Roots)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_defaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("debug: true\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port default = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Retrieval.DefaultTopK != 4 {
		t.Errorf("default_top_k default = %d, want 4", cfg.Retrieval.DefaultTopK)
	}
	if cfg.Retrieval.CacheCapacity != 16 {
		t.Errorf("cache_capacity default = %d, want 16", cfg.Retrieval.CacheCapacity)
	}
	if cfg.Remote.TimeoutSeconds != 30 || cfg.Remote.BatchSize != 100 {
		t.Errorf("unexpected remote defaults: %+v", cfg.Remote)
	}
	if cfg.Remote.Enabled {
		t.Error("remote should be disabled by default")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
retrieval:
  roots: ["./indexes"]
embedding:
  model: "./models/all-MiniLM-L6-v2.onnx"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	wantRoot := filepath.Join(dir, "indexes")
	if cfg.Retrieval.Roots[0] != wantRoot {
		t.Errorf("root = %q, want %q", cfg.Retrieval.Roots[0], wantRoot)
	}
	wantModel := filepath.Join(dir, "models", "all-MiniLM-L6-v2.onnx")
	if cfg.Embedding.Model != wantModel {
		t.Errorf("model = %q, want %q", cfg.Embedding.Model, wantModel)
	}
}

func TestLoad_mockModelNotExpanded(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("embedding:\n  model: \"mock\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Embedding.Model != "mock" {
		t.Errorf("model = %q, want mock", cfg.Embedding.Model)
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_invalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server: [not a map"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid yaml")
	}
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
retrieval:
  roots: ["/from/file"]
remote:
  enabled: false
  endpoint: "http://file:9999"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TSUNAGU_INDEX_ROOTS", "/a, /b ,")
	t.Setenv("TSUNAGU_REMOTE_ENDPOINT", "http://env:8000")
	t.Setenv("TSUNAGU_REMOTE_API_KEY", "secret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Retrieval.Roots) != 2 || cfg.Retrieval.Roots[0] != "/a" || cfg.Retrieval.Roots[1] != "/b" {
		t.Errorf("roots = %v, want [/a /b]", cfg.Retrieval.Roots)
	}
	if cfg.Remote.Endpoint != "http://env:8000" {
		t.Errorf("endpoint = %q", cfg.Remote.Endpoint)
	}
	if !cfg.Remote.Enabled {
		t.Error("setting TSUNAGU_REMOTE_ENDPOINT should enable remote")
	}
	if cfg.Remote.APIKey != "secret" {
		t.Errorf("api key = %q", cfg.Remote.APIKey)
	}
}

func TestEnvRemoteEnabledFlag(t *testing.T) {
	t.Setenv("TSUNAGU_REMOTE_ENABLED", "false")
	t.Setenv("TSUNAGU_REMOTE_ENDPOINT", "http://env:8000")
	cfg := FromEnv()
	if cfg.Remote.Enabled {
		t.Error("explicit TSUNAGU_REMOTE_ENABLED=false should win over endpoint implication")
	}
}
