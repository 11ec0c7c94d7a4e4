// Package config loads service and CLI settings from defaults, an optional
// config.yaml and DOCSPLIT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/docsplit/internal/chunker"
	"github.com/dgallion1/docsplit/internal/doctree"
	"github.com/dgallion1/docsplit/internal/sentence"
	"github.com/spf13/viper"
)

// Index kinds.
const (
	IndexBM25   = "bm25"
	IndexVector = "vector"
)

// Chat providers for answer generation.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

type Config struct {
	Port string `mapstructure:"port"`

	// Auth
	APIKey string `mapstructure:"api_key"`

	// Worker pool
	WorkerCount        int `mapstructure:"worker_count"`
	MaxQueueSize       int `mapstructure:"max_queue_size"`
	MaxConcurrentEmbed int `mapstructure:"max_concurrent_embed"`

	// Upload limits
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes"`

	// Chunking defaults
	Chunk    ChunkSettings `mapstructure:"chunking"`
	Language string        `mapstructure:"language"`

	// Job state
	JobTTL time.Duration `mapstructure:"job_ttl"`

	// Optional remote store; empty URL keeps documents in memory only
	Pathstore struct {
		URL    string `mapstructure:"url"`
		APIKey string `mapstructure:"api_key"`
		Prefix string `mapstructure:"prefix"`
	} `mapstructure:"pathstore"`

	// Retrieval
	Index struct {
		Kind string `mapstructure:"kind"`
	} `mapstructure:"index"`
	OpenAI struct {
		APIKey  string `mapstructure:"api_key"`
		Model   string `mapstructure:"model"`
		BaseURL string `mapstructure:"base_url"`
	} `mapstructure:"openai"`
	Embed struct {
		Dimensions int `mapstructure:"dimensions"`
	} `mapstructure:"embed"`

	// Answer generation; an empty provider disables it
	LLM struct {
		Provider    string  `mapstructure:"provider"`
		APIKey      string  `mapstructure:"api_key"`
		Model       string  `mapstructure:"model"`
		BaseURL     string  `mapstructure:"base_url"`
		Temperature float64 `mapstructure:"temperature"`
	} `mapstructure:"llm"`

	// Parsing
	Parser struct {
		NormalizeMarkdown    bool `mapstructure:"normalize_markdown"`
		PDFFallbackPdftotext bool `mapstructure:"pdf_fallback_pdftotext"`
	} `mapstructure:"parser"`
}

// ChunkSettings is the chunking section of the configuration.
type ChunkSettings struct {
	Method       string `mapstructure:"method"`
	MaxChunkSize int    `mapstructure:"max_chunk_size"`
	Overlap      int    `mapstructure:"overlap"`
}

// Every key gets a default so AutomaticEnv can override it during Unmarshal.
// Nested keys use '_' in the environment: chunking.max_chunk_size is
// DOCSPLIT_CHUNKING_MAX_CHUNK_SIZE.
func setDefaults(v *viper.Viper) {
	def := chunker.DefaultConfig()
	v.SetDefault("port", "8090")
	v.SetDefault("api_key", "")
	v.SetDefault("worker_count", 4)
	v.SetDefault("max_queue_size", 100)
	v.SetDefault("max_concurrent_embed", 2)
	v.SetDefault("max_upload_bytes", int64(52428800)) // 50MB
	v.SetDefault("chunking.method", string(def.Method))
	v.SetDefault("chunking.max_chunk_size", def.MaxChunkSize)
	v.SetDefault("chunking.overlap", def.Overlap)
	v.SetDefault("language", "danish")
	v.SetDefault("job_ttl", time.Hour)
	v.SetDefault("pathstore.url", "")
	v.SetDefault("pathstore.api_key", "")
	v.SetDefault("pathstore.prefix", "docsplit")
	v.SetDefault("index.kind", IndexBM25)
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model", "text-embedding-3-small")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("embed.dimensions", 256)
	v.SetDefault("llm.provider", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("parser.normalize_markdown", false)
	v.SetDefault("parser.pdf_fallback_pdftotext", true)
}

// Load reads the configuration. An explicit path must exist; otherwise
// config.yaml is looked up in $HOME/.docsplit and the working directory and
// may be absent.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DOCSPLIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(configDir())
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Index.Kind = strings.ToLower(cfg.Index.Kind)
	if cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	cfg.LLM.Provider = strings.ToLower(cfg.LLM.Provider)
	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Provider {
		case ProviderOpenAI:
			cfg.LLM.APIKey = cfg.OpenAI.APIKey
		case ProviderAnthropic:
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxConcurrentEmbed <= 0 {
		cfg.MaxConcurrentEmbed = 2
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = time.Hour
	}
	return cfg, nil
}

// Chunking returns the chunker configuration.
func (c Config) Chunking() chunker.Config {
	return chunker.Config{
		Method:       doctree.ChunkingMethod(strings.ToLower(c.Chunk.Method)),
		MaxChunkSize: c.Chunk.MaxChunkSize,
		Overlap:      c.Chunk.Overlap,
	}
}

// ValidateLocal checks the settings every entry point needs: chunking
// parameters, language, index kind and chat provider.
func (c Config) ValidateLocal() error {
	if err := c.Chunking().Validate(); err != nil {
		return err
	}
	if _, err := sentence.LoadModel(c.Language); err != nil {
		return err
	}
	switch c.Index.Kind {
	case IndexBM25, IndexVector:
	default:
		return fmt.Errorf("index.kind must be %q or %q, got %q", IndexBM25, IndexVector, c.Index.Kind)
	}
	switch c.LLM.Provider {
	case "", ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("llm.provider must be %q or %q, got %q", ProviderOpenAI, ProviderAnthropic, c.LLM.Provider)
	}
	return nil
}

// Validate checks everything the HTTP service needs.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("DOCSPLIT_API_KEY is required")
	}
	if c.Pathstore.URL != "" && c.Pathstore.APIKey == "" {
		return fmt.Errorf("DOCSPLIT_PATHSTORE_API_KEY is required when pathstore.url is set")
	}
	return c.ValidateLocal()
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".docsplit"
	}
	return filepath.Join(home, ".docsplit")
}
