package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgallion1/docsplit/internal/chunker"
	"github.com/dgallion1/docsplit/internal/doctree"
)

// isolate points HOME at an empty directory so no user config is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8090" {
		t.Errorf("expected port 8090, got %q", cfg.Port)
	}
	got := cfg.Chunking()
	want := chunker.DefaultConfig()
	if got != want {
		t.Errorf("expected chunking %+v, got %+v", want, got)
	}
	if cfg.Language != "danish" {
		t.Errorf("expected language danish, got %q", cfg.Language)
	}
	if cfg.Index.Kind != IndexBM25 {
		t.Errorf("expected index kind %q, got %q", IndexBM25, cfg.Index.Kind)
	}
	if cfg.JobTTL != time.Hour {
		t.Errorf("expected job TTL 1h, got %v", cfg.JobTTL)
	}
	if !cfg.Parser.PDFFallbackPdftotext {
		t.Error("expected pdftotext fallback enabled by default")
	}
	if err := cfg.ValidateLocal(); err != nil {
		t.Errorf("expected defaults to validate, got %v", err)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("DOCSPLIT_CHUNKING_METHOD", "naive")
	t.Setenv("DOCSPLIT_CHUNKING_MAX_CHUNK_SIZE", "64")
	t.Setenv("DOCSPLIT_CHUNKING_OVERLAP", "8")
	t.Setenv("DOCSPLIT_INDEX_KIND", "VECTOR")
	t.Setenv("DOCSPLIT_JOB_TTL", "30m")
	t.Setenv("DOCSPLIT_API_KEY", "k")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := chunker.Config{Method: doctree.MethodNaive, MaxChunkSize: 64, Overlap: 8}
	if got := cfg.Chunking(); got != want {
		t.Errorf("expected chunking %+v, got %+v", want, got)
	}
	if cfg.Index.Kind != IndexVector {
		t.Errorf("expected index kind %q, got %q", IndexVector, cfg.Index.Kind)
	}
	if cfg.JobTTL != 30*time.Minute {
		t.Errorf("expected job TTL 30m, got %v", cfg.JobTTL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "docsplit.yaml")
	body := "api_key: file-key\nlanguage: english\nchunking:\n  max_chunk_size: 200\npathstore:\n  url: http://ps:8080\n  api_key: ps-key\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIKey != "file-key" || cfg.Language != "english" {
		t.Errorf("expected file values, got api_key=%q language=%q", cfg.APIKey, cfg.Language)
	}
	if cfg.Chunk.MaxChunkSize != 200 {
		t.Errorf("expected max chunk size 200, got %d", cfg.Chunk.MaxChunkSize)
	}
	if cfg.Chunk.Method != "paragraph" {
		t.Errorf("expected default method to survive, got %q", cfg.Chunk.Method)
	}
	if cfg.Pathstore.URL != "http://ps:8080" || cfg.Pathstore.APIKey != "ps-key" {
		t.Errorf("expected pathstore settings, got %+v", cfg.Pathstore)
	}
}

func TestLoad_HomeConfig(t *testing.T) {
	dir := isolate(t)
	if err := os.MkdirAll(filepath.Join(dir, ".docsplit"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".docsplit", "config.yaml"), []byte("port: \"9999\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9999" {
		t.Errorf("expected port from home config, got %q", cfg.Port)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	dir := isolate(t)
	if _, err := Load(filepath.Join(dir, "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	base := func(t *testing.T) Config {
		isolate(t)
		cfg, err := Load("")
		if err != nil {
			t.Fatal(err)
		}
		cfg.APIKey = "k"
		return cfg
	}

	t.Run("missing api key", func(t *testing.T) {
		cfg := base(t)
		cfg.APIKey = ""
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for missing api key")
		}
	})
	t.Run("pathstore without key", func(t *testing.T) {
		cfg := base(t)
		cfg.Pathstore.URL = "http://ps"
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for pathstore url without api key")
		}
	})
	t.Run("overlap not below window", func(t *testing.T) {
		cfg := base(t)
		cfg.Chunk = ChunkSettings{Method: "naive", MaxChunkSize: 10, Overlap: 10}
		err := cfg.Validate()
		if !errors.Is(err, chunker.ErrConfiguration) {
			t.Errorf("expected configuration error, got %v", err)
		}
	})
	t.Run("unknown language", func(t *testing.T) {
		cfg := base(t)
		cfg.Language = "klingon"
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for unknown language")
		}
	})
	t.Run("unknown index kind", func(t *testing.T) {
		cfg := base(t)
		cfg.Index.Kind = "faiss"
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for unknown index kind")
		}
	})
	t.Run("unknown llm provider", func(t *testing.T) {
		cfg := base(t)
		cfg.LLM.Provider = "mistral"
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for unknown llm provider")
		}
	})
}

func TestLoad_LLMKeys(t *testing.T) {
	isolate(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.Provider != "" || cfg.LLM.Temperature != 0.1 {
		t.Errorf("expected generation off at temperature 0.1, got %q/%v", cfg.LLM.Provider, cfg.LLM.Temperature)
	}

	t.Setenv("DOCSPLIT_LLM_PROVIDER", "OpenAI")
	t.Setenv("OPENAI_API_KEY", "sk-shared")
	t.Setenv("DOCSPLIT_LLM_MODEL", "gpt-4o-mini")
	cfg, err = Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.Provider != ProviderOpenAI || cfg.LLM.APIKey != "sk-shared" || cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("expected openai/sk-shared/gpt-4o-mini, got %q/%q/%q", cfg.LLM.Provider, cfg.LLM.APIKey, cfg.LLM.Model)
	}

	t.Setenv("DOCSPLIT_LLM_PROVIDER", "anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	cfg, err = Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.APIKey != "sk-ant" {
		t.Errorf("expected anthropic key from the environment, got %q", cfg.LLM.APIKey)
	}
}
