package vectorstore

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"sync"

	qdrantgo "github.com/qdrant/go-client/qdrant"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
	"github.com/tmc/langchaingo/vectorstores/qdrant"

	"github.com/fieldcraft-labs/manifest/internal/model"
)

// passthroughEmbedder satisfies langchaingo's embeddings.Embedder
// interface without re-embedding anything: the vectors for this
// adapter are always produced upstream by the Multimodal Embedder, so
// the qdrant store is only ever asked to persist or search a vector we
// already computed. Each call stashes exactly the vectors the
// in-flight Upsert/Search call needs; it is not meant for concurrent
// reuse across calls (the adapter holds a lock around each use).
type passthroughEmbedder struct {
	mu      sync.Mutex
	vectors [][]float32
}

func (p *passthroughEmbedder) set(vectors [][]float32) {
	p.mu.Lock()
	p.vectors = vectors
	p.mu.Unlock()
}

func (p *passthroughEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.vectors) != len(texts) {
		return nil, fmt.Errorf("%w: passthrough embedder vector/text count mismatch", ErrInvalidConfig)
	}
	return p.vectors, nil
}

func (p *passthroughEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.vectors) == 0 {
		return nil, fmt.Errorf("%w: passthrough embedder has no stashed query vector", ErrInvalidConfig)
	}
	return p.vectors[0], nil
}

// qdrantStore is the Store implementation: a single "manifest_items"
// collection accessed through langchaingo's qdrant vectorstore, with
// the passthrough embedder above standing in for langchaingo's usual
// text-embedding step.
type qdrantStore struct {
	cfg      Config
	embedder *passthroughEmbedder
	store    vectorstores.VectorStore
	// points is a direct gRPC client used only for the two operations
	// langchaingo's VectorStore interface does not expose: point
	// deletion and collection counts. Upsert and Search go through
	// langchaingo above.
	points *qdrantgo.Client
}

// NewQdrantStore builds a Store backed by a Qdrant collection reachable
// at cfg.URL. The collection's vector dimension is expected to already
// match cfg.Dimension — creating/validating the collection's schema is
// an operational concern handled at deploy time, not here.
func NewQdrantStore(cfg Config) (Store, error) {
	cfg = cfg.withDefaults()
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: missing qdrant url", ErrInvalidConfig)
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("%w: missing embedding dimension", ErrInvalidConfig)
	}

	qdrantURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing qdrant url: %v", ErrInvalidConfig, err)
	}

	embedder := &passthroughEmbedder{}
	store, err := qdrant.New(
		qdrant.WithURL(*qdrantURL),
		qdrant.WithCollectionName(cfg.CollectionName),
		qdrant.WithEmbedder(embedder),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	host, portStr, err := net.SplitHostPort(qdrantURL.Host)
	if err != nil {
		host = qdrantURL.Host
		portStr = "6334"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		port = 6334
	}
	points, err := qdrantgo.NewClient(&qdrantgo.Config{Host: host, Port: port})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return &qdrantStore{cfg: cfg, embedder: embedder, store: store, points: points}, nil
}

func (s *qdrantStore) Close() error { return nil }

func (s *qdrantStore) Upsert(ctx context.Context, result model.EmbeddingResult, imageURL, userID string) (string, error) {
	if result.Dimension != s.cfg.Dimension {
		return "", fmt.Errorf("%w: embedding dimension %d does not match store dimension %d",
			ErrStoreSchema, result.Dimension, s.cfg.Dimension)
	}

	r := RowFromEmbeddingResult(result, imageURL, userID)
	doc := schema.Document{
		PageContent: r.UtilitySummary,
		Metadata:    rowToPayload(r),
	}
	doc.Metadata["id"] = r.ID

	s.embedder.set([][]float32{result.Vector})
	if _, err := s.store.AddDocuments(ctx, []schema.Document{doc}); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return r.ID, nil
}

func (s *qdrantStore) Search(ctx context.Context, queryVector []float32, topK int, categoryFilter, userID string) ([]model.RetrievedItem, error) {
	if len(queryVector) != s.cfg.Dimension {
		return nil, fmt.Errorf("%w: query vector dimension %d does not match store dimension %d",
			ErrStoreSchema, len(queryVector), s.cfg.Dimension)
	}

	filters := map[string]any{}
	if categoryFilter != "" {
		filters["category"] = categoryFilter
	}
	if userID != "" {
		filters["user_id"] = userID
	}

	s.embedder.set([][]float32{queryVector})
	var opts []vectorstores.Option
	if len(filters) > 0 {
		opts = append(opts, vectorstores.WithFilters(filters))
	}

	docs, err := s.store.SimilaritySearch(ctx, "", topK, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	items := make([]model.RetrievedItem, 0, len(docs))
	for _, d := range docs {
		id, _ := d.Metadata["id"].(string)
		r := rowFromPayload(id, d.Metadata)
		items = append(items, ItemFromRow(r, float32(d.Score)))
	}
	return items, nil
}

func (s *qdrantStore) Delete(ctx context.Context, itemID string) error {
	_, err := s.points.Delete(ctx, &qdrantgo.DeletePoints{
		CollectionName: s.cfg.CollectionName,
		Points: qdrantgo.NewPointsSelectorIDs([]*qdrantgo.PointId{
			qdrantgo.NewID(itemID),
		}),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *qdrantStore) Count(ctx context.Context) (int, error) {
	count, err := s.points.Count(ctx, &qdrantgo.CountPoints{
		CollectionName: s.cfg.CollectionName,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return int(count), nil
}
