package contextextract

import (
	"context"
	"fmt"

	"github.com/fieldcraft-labs/manifest/internal/model"
)

// disabledExtractor is returned when extraction is configured off; it
// fails loudly rather than silently skipping ingest.
type disabledExtractor struct{}

func (disabledExtractor) Available() bool { return false }

func (disabledExtractor) Extract(context.Context, Image) (model.ItemContext, error) {
	return model.ItemContext{}, fmt.Errorf("contextextract: extractor disabled")
}

func (d disabledExtractor) ExtractBatch(ctx context.Context, images []Image) ([]model.ItemContext, []error) {
	results := make([]model.ItemContext, len(images))
	errs := make([]error, len(images))
	for i := range images {
		results[i], errs[i] = d.Extract(ctx, images[i])
	}
	return results, errs
}

var _ Extractor = disabledExtractor{}
