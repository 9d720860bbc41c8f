// Package embedding produces unit-normalized vectors for items and
// queries, via either a hosted multimodal provider or a local
// CLIP-style fallback, behind a single capability interface.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/fieldcraft-labs/manifest/internal/model"
)

var (
	// ErrInvalidConfig indicates a missing credential or malformed
	// provider configuration.
	ErrInvalidConfig = errors.New("embedding: invalid configuration")

	// ErrEmbedderUnavailable indicates a provider request failed; the
	// request is made once and is not retried.
	ErrEmbedderUnavailable = errors.New("embedding: provider unavailable")

	// ErrEmptyInput indicates an empty text or image was passed in.
	ErrEmptyInput = errors.New("embedding: empty input")
)

// Provider is the embedder capability: embed an item (image + its
// extracted context), embed a bare text query, and report the fixed
// dimension of vectors it returns.
type Provider interface {
	EmbedItem(ctx context.Context, image Image, itemCtx model.ItemContext) ([]float32, error)
	EmbedText(ctx context.Context, text string) ([]float32, error)
	Dimension() int
	Close() error
}

// Image mirrors contextextract.Image so the embedder can load the same
// photo without the two packages importing each other.
type Image struct {
	Bytes []byte
	Path  string
	URL   string
}

// Config selects and configures a Provider.
type Config struct {
	Provider       string // "voyage" or "clip_local"
	VoyageAPIKey   string
	VoyageModel    string
	OutputDimension int // voyage only; 0 uses the provider default

	FastEmbedModel    string
	FastEmbedCacheDir string
}

const (
	ProviderVoyage    = "voyage"
	ProviderCLIPLocal = "clip_local"
)

// EmbeddingDimensions is the per-provider dimension table. Nothing in
// this module reads it; config validation checks the same figures on
// its own.
var EmbeddingDimensions = map[string]int{
	ProviderVoyage:    1024,
	ProviderCLIPLocal: 384,
}

// NewProvider selects a Provider implementation from cfg.Provider.
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "", ProviderVoyage:
		return newVoyageProvider(cfg)
	case ProviderCLIPLocal:
		return newLocalProvider(cfg)
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", ErrInvalidConfig, cfg.Provider)
	}
}

// buildContextText serializes an ItemContext into the labeled-line text
// both providers embed alongside the image, per the fusion contract:
// Item, Category, Utility always present, then optional lines.
func buildContextText(ctx model.ItemContext) string {
	var lines []string
	lines = append(lines, fmt.Sprintf("Item: %s", ctx.Name))
	lines = append(lines, fmt.Sprintf("Category: %s", ctx.InferredCategory))
	lines = append(lines, fmt.Sprintf("Utility: %s", ctx.UtilitySummary))

	if ctx.PrimaryMaterial != "" {
		lines = append(lines, fmt.Sprintf("Material: %s", ctx.PrimaryMaterial))
	}
	if ctx.ThermalRating != "" {
		lines = append(lines, fmt.Sprintf("Thermal: %s", ctx.ThermalRating))
	}
	if ctx.WaterResistance != "" {
		lines = append(lines, fmt.Sprintf("Water resistance: %s", ctx.WaterResistance))
	}
	if ctx.MedicalApplication != "" {
		lines = append(lines, fmt.Sprintf("Medical use: %s", ctx.MedicalApplication))
	}
	if len(ctx.SemanticTags) > 0 {
		lines = append(lines, fmt.Sprintf("Tags: %s", strings.Join(ctx.SemanticTags, ", ")))
	}

	return strings.Join(lines, ". ")
}

func normalizeL2(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return v
	}
	norm := math.Sqrt(sumSq)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
