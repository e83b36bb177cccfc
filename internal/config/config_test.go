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
debug: true
server:
  host: "0.0.0.0"
  port: 9090
storage:
  database_path: "./data/documents.db"
  vector_backend: "qdrant"
embedding:
  provider: "hash"
  dimensions: 128
qa:
  text_limit: 7
watch:
  directories:
    - "./inbox"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true")
	}
	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 9090 {
		t.Errorf("server: %+v", cfg.Server)
	}
	if cfg.Storage.VectorBackend != "qdrant" {
		t.Errorf("vector_backend: %q", cfg.Storage.VectorBackend)
	}
	if cfg.Storage.DatabasePath != filepath.Join(dir, "data/documents.db") {
		t.Errorf("database_path not expanded: %q", cfg.Storage.DatabasePath)
	}
	if cfg.Watch.Directories[0] != filepath.Join(dir, "inbox") {
		t.Errorf("watch directory not expanded: %q", cfg.Watch.Directories[0])
	}
	if cfg.Embedding.Dimensions != 128 {
		t.Errorf("dimensions: %d", cfg.Embedding.Dimensions)
	}
	// Unset fields get defaults.
	if cfg.QA.TextLimit != 7 || cfg.QA.TableLimit != 3 {
		t.Errorf("qa limits: %+v", cfg.QA)
	}
	if cfg.LLM.Model != "llama-3.3-70b-versatile" {
		t.Errorf("llm model default: %q", cfg.LLM.Model)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" || cfg.Server.Port != 8080 {
		t.Errorf("server defaults: %+v", cfg.Server)
	}
	if cfg.Storage.VectorBackend != "local" {
		t.Errorf("vector_backend default: %q", cfg.Storage.VectorBackend)
	}
	if cfg.Embedding.Provider != "hash" || cfg.Embedding.Dimensions != 384 {
		t.Errorf("embedding defaults: %+v", cfg.Embedding)
	}
	if cfg.QA.TextLimit != 5 || cfg.QA.TableLimit != 3 ||
		cfg.QA.TextPromptLimit != 3 || cfg.QA.TablePromptLimit != 2 {
		t.Errorf("qa defaults: %+v", cfg.QA)
	}
	if cfg.Ingest.ChunkSize != 500 {
		t.Errorf("chunk_size default: %d", cfg.Ingest.ChunkSize)
	}
	if len(cfg.Watch.Extensions) == 0 {
		t.Error("watch extensions default missing")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Watch.Directories = []string{"/tmp/inbox"}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded.Watch.Directories) != 1 || loaded.Watch.Directories[0] != "/tmp/inbox" {
		t.Errorf("watch directories: %v", loaded.Watch.Directories)
	}
	if loaded.Server.Port != cfg.Server.Port {
		t.Errorf("port: %d vs %d", loaded.Server.Port, cfg.Server.Port)
	}
}

func TestRecursiveOrDefault(t *testing.T) {
	w := WatchConfig{}
	if !w.RecursiveOrDefault() {
		t.Error("unset recursive should default to true")
	}
	f := false
	w.Recursive = &f
	if w.RecursiveOrDefault() {
		t.Error("explicit false should be respected")
	}
}
