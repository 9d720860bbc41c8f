// Package config loads manifestd/manifestctl configuration from
// environment variables, validated once at process startup.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete process configuration.
type Config struct {
	Extraction  ExtractionConfig
	Embedding   EmbeddingConfig
	Synthesis   SynthesisConfig
	VectorStore VectorStoreConfig
	Solver      SolverConfig
	Server      ServerConfig
	Logging     LoggingConfig
	Telemetry   TelemetryConfig
}

// ExtractionConfig configures the Context Extractor's vision-LLM
// client. Provider "anthropic" is the only live option; with
// "disabled" every extraction call returns an error, so ingest fails.
type ExtractionConfig struct {
	Provider        string `koanf:"provider"`
	Model           string `koanf:"model"`
	APIKey          Secret `koanf:"api_key"`
	BaseURL         string `koanf:"base_url"`
	MaxTokens       int    `koanf:"max_tokens"`
	ReasoningEffort string `koanf:"reasoning_effort"`
	TimeoutSeconds  int    `koanf:"timeout_seconds"`
}

// EmbeddingConfig configures the Multimodal Embedder. Provider
// "voyage" hits the hosted Voyage API; "clip_local" runs the
// fastembed-go fallback entirely offline.
type EmbeddingConfig struct {
	Provider          string `koanf:"provider"`
	VoyageAPIKey      Secret `koanf:"voyage_api_key"`
	VoyageModel       string `koanf:"voyage_model"`
	OutputDimension   int    `koanf:"output_dimension"`
	FastEmbedModel    string `koanf:"fastembed_model"`
	FastEmbedCacheDir string `koanf:"fastembed_cache_dir"`
}

// SynthesisConfig configures the Mission Synthesizer, the optional
// curation pass over search/pack results. Shares the extraction
// package's provider taxonomy ("anthropic" or "disabled").
type SynthesisConfig struct {
	Provider        string `koanf:"provider"`
	Model           string `koanf:"model"`
	APIKey          Secret `koanf:"api_key"`
	BaseURL         string `koanf:"base_url"`
	MaxTokens       int    `koanf:"max_tokens"`
	ReasoningEffort string `koanf:"reasoning_effort"`
}

// VectorStoreConfig configures the Qdrant-backed item store.
type VectorStoreConfig struct {
	URL            string `koanf:"url"`
	APIKey         Secret `koanf:"api_key"`
	CollectionName string `koanf:"collection_name"`
	Dimension      int    `koanf:"dimension"`
}

// SolverConfig configures the Knapsack Optimizer's wall-clock budget.
type SolverConfig struct {
	TimeLimitSeconds float64 `koanf:"time_limit_seconds"`
}

// ServerConfig configures manifestd's ambient HTTP surface
// (/healthz, /metrics) — the business operations never go over HTTP;
// see spec §1.
type ServerConfig struct {
	Port int `koanf:"port"`
	// ShutdownTimeout is a plain time.Duration, not the Secret-style
	// config.Duration wrapper: koanf's default decode hooks convert a
	// duration string straight into time.Duration, and a named wrapper
	// type would need its own hook wired into the env loader.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`  // "debug", "info", "warn", "error"
	Format string `koanf:"format"` // "json" or "console"
}

// TelemetryConfig configures OpenTelemetry tracing and the Prometheus
// metrics exporter.
type TelemetryConfig struct {
	Enabled      bool   `koanf:"enabled"`
	ServiceName  string `koanf:"service_name"`
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	OTLPInsecure bool   `koanf:"otlp_insecure"`
}

const (
	defaultExtractionModel = "claude-sonnet-4-5"
	defaultSynthesisModel  = "claude-sonnet-4-5"
	defaultVoyageModel     = "voyage-multimodal-3"
)

// applyDefaults fills in zero-valued fields the way the teacher's
// applyDefaults does: only where the field was left unset by both env
// vars and hardcoded fallback.
func applyDefaults(cfg *Config) {
	if cfg.Extraction.Provider == "" {
		cfg.Extraction.Provider = "anthropic"
	}
	if cfg.Extraction.Model == "" {
		cfg.Extraction.Model = defaultExtractionModel
	}
	if cfg.Extraction.MaxTokens == 0 {
		cfg.Extraction.MaxTokens = 4096
	}
	if cfg.Extraction.TimeoutSeconds == 0 {
		cfg.Extraction.TimeoutSeconds = 60
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "voyage"
	}
	if cfg.Embedding.VoyageModel == "" {
		cfg.Embedding.VoyageModel = defaultVoyageModel
	}

	if cfg.Synthesis.Provider == "" {
		cfg.Synthesis.Provider = "disabled"
	}
	if cfg.Synthesis.Model == "" {
		cfg.Synthesis.Model = defaultSynthesisModel
	}
	if cfg.Synthesis.MaxTokens == 0 {
		cfg.Synthesis.MaxTokens = 4000
	}

	if cfg.VectorStore.URL == "" {
		cfg.VectorStore.URL = "http://localhost:6333"
	}
	if cfg.VectorStore.CollectionName == "" {
		cfg.VectorStore.CollectionName = "manifest_items"
	}
	// Dimension is left unset here and derived from the active embedder
	// in Validate: the store must match whichever provider is actually
	// running, not a fixed guess.

	if cfg.Solver.TimeLimitSeconds == 0 {
		cfg.Solver.TimeLimitSeconds = 5.0
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9090
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "manifestd"
	}
}

// Validate checks that the configuration is complete enough to
// construct the three provider singletons, per the Config error
// category in the error taxonomy: missing credential, unknown
// provider, and embedder/store dimension mismatch are all fatal at
// startup rather than surfaced lazily on first request.
func (c *Config) Validate() error {
	switch c.Extraction.Provider {
	case "disabled":
	case "anthropic":
		if !c.Extraction.APIKey.IsSet() {
			return errors.New("config: EXTRACTION_API_KEY is required when EXTRACTION_PROVIDER=anthropic")
		}
	default:
		return fmt.Errorf("config: unsupported EXTRACTION_PROVIDER %q (supported: anthropic, disabled)", c.Extraction.Provider)
	}

	switch c.Synthesis.Provider {
	case "disabled":
	case "anthropic":
		if !c.Synthesis.APIKey.IsSet() {
			return errors.New("config: SYNTHESIS_API_KEY is required when SYNTHESIS_PROVIDER=anthropic")
		}
	default:
		return fmt.Errorf("config: unsupported SYNTHESIS_PROVIDER %q (supported: anthropic, disabled)", c.Synthesis.Provider)
	}

	var embeddingDim int
	switch c.Embedding.Provider {
	case "voyage":
		if !c.Embedding.VoyageAPIKey.IsSet() {
			return errors.New("config: EMBEDDING_VOYAGE_API_KEY is required when EMBEDDING_PROVIDER=voyage")
		}
		embeddingDim = c.Embedding.OutputDimension
		if embeddingDim == 0 {
			embeddingDim = 1024
		}
	case "clip_local":
		embeddingDim = 384
	default:
		return fmt.Errorf("config: unsupported EMBEDDING_PROVIDER %q (supported: voyage, clip_local)", c.Embedding.Provider)
	}

	if c.VectorStore.Dimension == 0 {
		c.VectorStore.Dimension = embeddingDim
	} else if c.VectorStore.Dimension != embeddingDim {
		return fmt.Errorf("config: embedder dimension %d does not match VECTORSTORE_DIMENSION %d", embeddingDim, c.VectorStore.Dimension)
	}

	if c.VectorStore.URL == "" {
		return errors.New("config: VECTORSTORE_URL must not be empty")
	}

	if c.Solver.TimeLimitSeconds <= 0 {
		return errors.New("config: SOLVER_TIME_LIMIT_SECONDS must be positive")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid SERVER_PORT %d (must be 1-65535)", c.Server.Port)
	}

	if c.Telemetry.Enabled && c.Telemetry.ServiceName == "" {
		return errors.New("config: TELEMETRY_SERVICE_NAME is required when TELEMETRY_ENABLED=true")
	}

	return nil
}
