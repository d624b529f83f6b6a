package folio

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the full configuration surface, constructed once and passed
// through the pipeline explicitly. Nothing in the module reads the process
// environment at call sites; LoadConfig applies env overrides exactly once.
type Config struct {
	Chunking      ChunkingConfig      `toml:"chunking"`
	Query         QueryConfig         `toml:"query"`
	Embedding     EmbeddingConfig     `toml:"embedding"`
	Database      DatabaseConfig      `toml:"database"`
	Observability ObservabilityConfig `toml:"observability"`
}

// ChunkingConfig controls ingestion-time chunk production. The threshold and
// size bounds are fixed for an entire run and recorded on every chunk it
// produces.
type ChunkingConfig struct {
	// SimilarityThreshold is τ ∈ (0, 1]. Adjacent sentences whose embedding
	// cosine similarity falls below it are separated by a topic boundary.
	// Lower values tolerate more drift (argument-dense text); higher values
	// split more eagerly (narrative text).
	SimilarityThreshold float64 `toml:"similarity_threshold"`
	// MinChunkSize and MaxChunkSize bound child chunk sizes, counted in the
	// run's size unit. Min must be strictly less than max.
	MinChunkSize int `toml:"min_chunk_size"`
	MaxChunkSize int `toml:"max_chunk_size"`
	// Hierarchical toggles two-level (parent/child) vs flat output.
	Hierarchical bool `toml:"hierarchical"`
	// ParentEmbedCap bounds the prefix of a section's full text used for the
	// parent's own embedding. The full text itself is never truncated.
	ParentEmbedCap int `toml:"parent_embed_cap"`
	// BatchSize is the number of texts per Embed call.
	BatchSize int `toml:"batch_size"`
}

// QueryConfig controls query-time context expansion.
type QueryConfig struct {
	Mode ContextMode `toml:"context_mode"`
	// SiblingWindow is N in the ±N sibling window (comprehensive mode only).
	SiblingWindow int `toml:"sibling_window"`
	// TimeoutSeconds caps a single expansion; exceeding it fails the whole
	// query rather than returning a partial result. 0 = no timeout.
	TimeoutSeconds int `toml:"timeout_seconds"`
}

type EmbeddingConfig struct {
	// Provider selects the backend: "ollama", "openai", "gemini", or any
	// OpenAI-compatible server via BaseURL.
	Provider   string `toml:"provider"`
	APIKey     string `toml:"api_key"`
	BaseURL    string `toml:"base_url"`
	Model      string `toml:"model"`
	Dimensions int    `toml:"dimensions"`
	// RequestsPerMinute and TextsPerMinute throttle calls to the provider.
	// 0 disables the respective limit.
	RequestsPerMinute int `toml:"requests_per_minute"`
	TextsPerMinute    int `toml:"texts_per_minute"`
}

// ObservabilityConfig toggles OTEL instrumentation. Exporter endpoints come
// from the standard OTEL_EXPORTER_OTLP_* environment variables.
type ObservabilityConfig struct {
	Enabled bool `toml:"enabled"`
}

type DatabaseConfig struct {
	Path        string `toml:"path"`
	PostgresURL string `toml:"postgres_url"`
}

// Timeout returns the query timeout as a duration.
func (q QueryConfig) Timeout() time.Duration {
	return time.Duration(q.TimeoutSeconds) * time.Second
}

// DefaultConfig returns a Config with all defaults applied.
func DefaultConfig() Config {
	return Config{
		Chunking: ChunkingConfig{
			SimilarityThreshold: 0.55,
			MinChunkSize:        80,
			MaxChunkSize:        400,
			Hierarchical:        true,
			ParentEmbedCap:      1600,
			BatchSize:           64,
		},
		Query: QueryConfig{
			Mode:          ModeContextual,
			SiblingWindow: 2,
		},
		Embedding: EmbeddingConfig{Provider: "ollama", Model: "nomic-embed-text", Dimensions: 768},
		Database:  DatabaseConfig{Path: "folio.db"},
	}
}

// LoadConfig reads config: defaults -> TOML file -> env vars (env wins),
// then validates. A missing file is not an error; invalid values are.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = "folio.toml"
	}
	if data, err := os.ReadFile(path); err == nil {
		_ = toml.Unmarshal(data, &cfg)
	}

	// Env overrides
	if v := os.Getenv("FOLIO_SIMILARITY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Chunking.SimilarityThreshold = f
		}
	}
	if v := os.Getenv("FOLIO_MIN_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Chunking.MinChunkSize = n
		}
	}
	if v := os.Getenv("FOLIO_MAX_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Chunking.MaxChunkSize = n
		}
	}
	if v := os.Getenv("FOLIO_EMBEDDING_PROVIDER"); v != "" {
		cfg.Embedding.Provider = v
	}
	if v := os.Getenv("FOLIO_EMBEDDING_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("FOLIO_EMBEDDING_BASE_URL"); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := os.Getenv("FOLIO_EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("FOLIO_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("FOLIO_POSTGRES_URL"); v != "" {
		cfg.Database.PostgresURL = v
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every constraint once, before any processing. A violation
// is fatal for the run that supplied the config, never a per-chunk fallback.
func (c Config) Validate() error {
	if err := c.Chunking.Validate(); err != nil {
		return err
	}
	if err := c.Query.Validate(); err != nil {
		return err
	}
	return c.Embedding.Validate()
}

// Validate checks embedding throttle constraints.
func (e EmbeddingConfig) Validate() error {
	if e.RequestsPerMinute < 0 {
		return &ConfigError{Field: "requests_per_minute", Message: "must be >= 0"}
	}
	if e.TextsPerMinute < 0 {
		return &ConfigError{Field: "texts_per_minute", Message: "must be >= 0"}
	}
	return nil
}

// Validate checks chunking constraints.
func (c ChunkingConfig) Validate() error {
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		return &ConfigError{Field: "similarity_threshold", Message: "must be in (0, 1]"}
	}
	if c.MinChunkSize <= 0 {
		return &ConfigError{Field: "min_chunk_size", Message: "must be positive"}
	}
	if c.MinChunkSize >= c.MaxChunkSize {
		return &ConfigError{Field: "min_chunk_size", Message: "must be less than max_chunk_size"}
	}
	if c.ParentEmbedCap <= 0 {
		return &ConfigError{Field: "parent_embed_cap", Message: "must be positive"}
	}
	if c.BatchSize <= 0 {
		return &ConfigError{Field: "batch_size", Message: "must be positive"}
	}
	return nil
}

// Validate checks query constraints.
func (q QueryConfig) Validate() error {
	switch q.Mode {
	case ModePrecise, ModeContextual, ModeComprehensive:
	default:
		return &ConfigError{Field: "context_mode", Message: "must be precise, contextual, or comprehensive"}
	}
	if q.SiblingWindow < 0 {
		return &ConfigError{Field: "sibling_window", Message: "must be >= 0"}
	}
	if q.TimeoutSeconds < 0 {
		return &ConfigError{Field: "timeout_seconds", Message: "must be >= 0"}
	}
	return nil
}
