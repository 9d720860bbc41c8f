// Package contextextract turns a photo of a physical item into a
// structured ItemContext using a vision-capable LLM, matching the
// fixed JSON schema the rest of the pipeline depends on.
package contextextract

import (
	"context"
	"errors"

	"github.com/fieldcraft-labs/manifest/internal/model"
)

// Sentinel errors surfaced by Extract, matching the taxonomy the rest
// of the pipeline switches on.
var (
	// ErrExtractionEmpty means the vision model returned no content.
	ErrExtractionEmpty = errors.New("contextextract: empty response from vision model")

	// ErrExtractionBadJSON means the response did not parse as the
	// ItemContext schema. The error message carries the raw tail.
	ErrExtractionBadJSON = errors.New("contextextract: response did not parse as JSON")

	// ErrInvalidConfig indicates a missing credential or malformed
	// provider configuration, detected at construction time.
	ErrInvalidConfig = errors.New("contextextract: invalid configuration")
)

// Image is the tagged union of ways a caller may supply an item photo.
type Image struct {
	// Bytes, Path, and URL are mutually exclusive; exactly one should
	// be set. MimeHint overrides the extension-derived mime type for
	// Bytes input; it is ignored for Path and URL.
	Bytes    []byte
	Path     string
	URL      string
	MimeHint string
}

// Extractor produces a fully populated ItemContext from a photo.
type Extractor interface {
	// Extract sends a single vision request and parses the result.
	Extract(ctx context.Context, image Image) (model.ItemContext, error)

	// ExtractBatch dispatches Extract concurrently for every image and
	// returns results in input order. A failure on one image does not
	// abort the others; the corresponding error is returned alongside
	// a zero-value ItemContext at the same index.
	ExtractBatch(ctx context.Context, images []Image) ([]model.ItemContext, []error)

	// Available reports whether the extractor is configured and ready.
	Available() bool
}

// Config holds provider configuration for the vision extractor.
type Config struct {
	Provider        string // "anthropic" or "disabled"
	Model           string
	APIKey          string
	BaseURL         string
	MaxTokens       int
	ReasoningEffort string
	Timeout         int // seconds
}

const (
	defaultModel     = "claude-sonnet-4-5"
	defaultMaxTokens = 4096
	defaultTimeout   = 60
)

// DefaultConfig returns extraction configuration with the teacher's
// usual defaults filled in; callers still need to supply an API key.
func DefaultConfig() Config {
	return Config{
		Provider:        "anthropic",
		Model:           defaultModel,
		MaxTokens:       defaultMaxTokens,
		ReasoningEffort: "medium",
		Timeout:         defaultTimeout,
	}
}
