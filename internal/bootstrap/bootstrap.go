// Package bootstrap builds the provider singletons (context extractor,
// embedder, vector store, synthesizer, solver) and the orchestrator
// wiring them together, from internal/config. Both manifestd (which
// constructs one at startup just to fail fast on bad configuration)
// and manifestctl (which constructs one per invocation to run a single
// ingest/search/pack operation) share this construction path so the
// two binaries can never wire a provider differently.
package bootstrap

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fieldcraft-labs/manifest/internal/config"
	"github.com/fieldcraft-labs/manifest/internal/contextextract"
	"github.com/fieldcraft-labs/manifest/internal/embedding"
	"github.com/fieldcraft-labs/manifest/internal/optimizer"
	"github.com/fieldcraft-labs/manifest/internal/pipeline"
	"github.com/fieldcraft-labs/manifest/internal/synth"
	"github.com/fieldcraft-labs/manifest/internal/vectorstore"
)

// Dependencies holds every long-lived provider client. Close releases
// whatever the providers themselves hold open.
type Dependencies struct {
	Extractor   contextextract.Extractor
	Embedder    embedding.Provider
	Store       vectorstore.Store
	Synthesizer synth.Synthesizer
	Optimizer   *optimizer.Optimizer
}

// Close releases provider resources. Safe to call on a zero-value
// Dependencies or after a partially-failed New.
func (d *Dependencies) Close() {
	if d.Embedder != nil {
		_ = d.Embedder.Close()
	}
	if d.Store != nil {
		_ = d.Store.Close()
	}
}

// New constructs every provider client from cfg. A provider configured
// with "disabled" still yields a working no-op implementation; only
// malformed configuration (bad URL, unknown provider name) is a hard
// failure here.
func New(cfg *config.Config) (*Dependencies, error) {
	extractor, err := contextextract.NewExtractor(contextextract.Config{
		Provider:        cfg.Extraction.Provider,
		Model:           cfg.Extraction.Model,
		APIKey:          cfg.Extraction.APIKey.Value(),
		BaseURL:         cfg.Extraction.BaseURL,
		MaxTokens:       cfg.Extraction.MaxTokens,
		ReasoningEffort: cfg.Extraction.ReasoningEffort,
		Timeout:         cfg.Extraction.TimeoutSeconds,
	})
	if err != nil {
		return nil, fmt.Errorf("context extractor: %w", err)
	}

	embedder, err := embedding.NewProvider(embedding.Config{
		Provider:          cfg.Embedding.Provider,
		VoyageAPIKey:      cfg.Embedding.VoyageAPIKey.Value(),
		VoyageModel:       cfg.Embedding.VoyageModel,
		OutputDimension:   cfg.Embedding.OutputDimension,
		FastEmbedModel:    cfg.Embedding.FastEmbedModel,
		FastEmbedCacheDir: cfg.Embedding.FastEmbedCacheDir,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding provider: %w", err)
	}

	store, err := vectorstore.NewQdrantStore(vectorstore.Config{
		URL:            cfg.VectorStore.URL,
		CollectionName: cfg.VectorStore.CollectionName,
		Dimension:      cfg.VectorStore.Dimension,
	})
	if err != nil {
		_ = embedder.Close()
		return nil, fmt.Errorf("vector store: %w", err)
	}

	synthesizer, err := synth.NewSynthesizer(synth.Config{
		Provider:        cfg.Synthesis.Provider,
		Model:           cfg.Synthesis.Model,
		APIKey:          cfg.Synthesis.APIKey.Value(),
		BaseURL:         cfg.Synthesis.BaseURL,
		MaxTokens:       cfg.Synthesis.MaxTokens,
		ReasoningEffort: cfg.Synthesis.ReasoningEffort,
	})
	if err != nil {
		_ = embedder.Close()
		return nil, fmt.Errorf("synthesizer: %w", err)
	}

	timeLimit := time.Duration(cfg.Solver.TimeLimitSeconds * float64(time.Second))

	return &Dependencies{
		Extractor:   extractor,
		Embedder:    embedder,
		Store:       store,
		Synthesizer: synthesizer,
		Optimizer:   optimizer.New(timeLimit),
	}, nil
}

// NewOrchestrator is a convenience wrapper that builds Dependencies and
// an Orchestrator in one call. The caller is still responsible for
// calling deps.Close() when done.
func NewOrchestrator(cfg *config.Config, logger *zap.Logger) (*pipeline.Orchestrator, *Dependencies, error) {
	deps, err := New(cfg)
	if err != nil {
		return nil, nil, err
	}
	orch := pipeline.New(pipeline.Dependencies{
		Extractor:   deps.Extractor,
		Embedder:    deps.Embedder,
		Store:       deps.Store,
		Synthesizer: deps.Synthesizer,
		Optimizer:   deps.Optimizer,
		Logger:      logger,
	})
	return orch, deps, nil
}
