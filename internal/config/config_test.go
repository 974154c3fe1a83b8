package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.App.Port != 8080 {
		t.Errorf("App.Port = %d", cfg.App.Port)
	}
	if cfg.RAG.ChunkSize != 500 || cfg.RAG.ChunkOverlap != 50 {
		t.Errorf("RAG chunking defaults = %d/%d", cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	}
	if cfg.RAG.SimilarityThreshold != 0.7 {
		t.Errorf("RAG.SimilarityThreshold = %v", cfg.RAG.SimilarityThreshold)
	}
	if cfg.RAG.FallbackScanLimit != 1000 {
		t.Errorf("RAG.FallbackScanLimit = %d", cfg.RAG.FallbackScanLimit)
	}
	if cfg.LLM.EmbeddingDimension != 1536 {
		t.Errorf("LLM.EmbeddingDimension = %d", cfg.LLM.EmbeddingDimension)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[app]
port = 9090

[rag]
chunk_size = 800
top_k = 3
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.App.Port != 9090 {
		t.Errorf("App.Port = %d, want file value", cfg.App.Port)
	}
	if cfg.RAG.ChunkSize != 800 || cfg.RAG.TopK != 3 {
		t.Errorf("RAG = %+v, want file values", cfg.RAG)
	}
	// Keys absent from the file keep their defaults.
	if cfg.RAG.ChunkOverlap != 50 {
		t.Errorf("RAG.ChunkOverlap = %d, want default", cfg.RAG.ChunkOverlap)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("RAG_TOP_K", "9")
	t.Setenv("RAG_SIMILARITY_THRESHOLD", "0.55")
	t.Setenv("LLM_MODEL", "test-model")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RAG.TopK != 9 {
		t.Errorf("RAG.TopK = %d", cfg.RAG.TopK)
	}
	if cfg.RAG.SimilarityThreshold != 0.55 {
		t.Errorf("RAG.SimilarityThreshold = %v", cfg.RAG.SimilarityThreshold)
	}
	if cfg.LLM.Model != "test-model" {
		t.Errorf("LLM.Model = %q", cfg.LLM.Model)
	}
}

func TestMySQLDSN(t *testing.T) {
	cfg := defaultConfig()
	cfg.MySQL.User = "svc"
	cfg.MySQL.Password = "pw"
	cfg.MySQL.Host = "db.internal"
	cfg.MySQL.Port = 3307
	cfg.MySQL.DB = "aimsite"
	cfg.MySQL.Params = "parseTime=true"

	want := "svc:pw@tcp(db.internal:3307)/aimsite?parseTime=true"
	if got := cfg.MySQLDSN(); got != want {
		t.Fatalf("MySQLDSN() = %q, want %q", got, want)
	}
}
