package vectorstore

import (
	"context"
	"errors"

	"github.com/fieldcraft-labs/manifest/internal/model"
)

// Sentinel errors matching the spec's store failure taxonomy:
// transient backend errors are StoreUnavailable, structural mismatches
// (e.g. embedding dimension) are StoreSchema.
var (
	ErrStoreUnavailable = errors.New("vectorstore: store unavailable")
	ErrStoreSchema      = errors.New("vectorstore: schema mismatch")
	ErrInvalidConfig    = errors.New("vectorstore: invalid configuration")
)

// Store is the manifest_items adapter contract: upsert, similarity
// search behind the match_manifest_items RPC shape, delete, and count.
type Store interface {
	Upsert(ctx context.Context, result model.EmbeddingResult, imageURL, userID string) (string, error)
	Search(ctx context.Context, queryVector []float32, topK int, categoryFilter, userID string) ([]model.RetrievedItem, error)
	Delete(ctx context.Context, itemID string) error
	Count(ctx context.Context) (int, error)
	Close() error
}

// Config configures the qdrant-backed Store.
type Config struct {
	URL            string
	CollectionName string
	Dimension      int
}

const defaultCollectionName = "manifest_items"

func (c Config) withDefaults() Config {
	if c.CollectionName == "" {
		c.CollectionName = defaultCollectionName
	}
	return c
}
