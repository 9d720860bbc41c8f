package embedding

import (
	"context"
	"fmt"
	"path/filepath"

	fastembed "github.com/anush008/fastembed-go"

	"github.com/fieldcraft-labs/manifest/internal/model"
)

const (
	imageFusionWeight = 0.6
	textFusionWeight  = 0.4
)

var localModelDimensions = map[fastembed.EmbeddingModel]int{
	fastembed.BGESmallENV15: 384,
	fastembed.BGESmallEN:    384,
	fastembed.BGEBaseENV15:  768,
	fastembed.AllMiniLML6V2: 384,
}

const defaultLocalModel = fastembed.BGESmallENV15

// localProvider is the CLIP-style fallback: a local text encoder
// (fastembed-go, the only local embedding model available in this
// codebase's dependency set) paired with a deterministic image feature
// extractor standing in for a true vision encoder — see DESIGN.md for
// why no image encoder is wired here. The two halves are fused exactly
// per the embedder contract: normalize(0.6*image + 0.4*text), each
// individually normalized first.
type localProvider struct {
	text      *fastembed.FlagEmbedding
	dimension int
}

func newLocalProvider(cfg Config) (Provider, error) {
	modelName := cfg.FastEmbedModel
	embeddingModel := defaultLocalModel
	if modelName != "" {
		embeddingModel = fastembed.EmbeddingModel(modelName)
	}
	dim, ok := localModelDimensions[embeddingModel]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported local embedding model %q", ErrInvalidConfig, modelName)
	}

	cacheDir := cfg.FastEmbedCacheDir
	if cacheDir == "" {
		cacheDir = filepath.Join(".", "local_cache")
	}
	showProgress := false

	textModel, err := fastembed.NewFlagEmbedding(&fastembed.InitOptions{
		Model:                embeddingModel,
		CacheDir:             cacheDir,
		MaxLength:            512,
		ShowDownloadProgress: &showProgress,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding: initializing local text encoder: %w", err)
	}

	return &localProvider{text: textModel, dimension: dim}, nil
}

func (p *localProvider) Dimension() int { return p.dimension }

func (p *localProvider) Close() error {
	if p.text != nil {
		return p.text.Destroy()
	}
	return nil
}

func (p *localProvider) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	vec, err := p.text.QueryEmbed(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedderUnavailable, err)
	}
	return normalizeL2(vec), nil
}

func (p *localProvider) EmbedItem(ctx context.Context, image Image, itemCtx model.ItemContext) ([]float32, error) {
	textVec, err := p.text.PassageEmbed([]string{buildContextText(itemCtx)}, 256)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedderUnavailable, err)
	}
	if len(textVec) == 0 {
		return nil, fmt.Errorf("%w: local text encoder returned no vectors", ErrEmbedderUnavailable)
	}

	imgBytes, err := loadImageBytes(image)
	if err != nil {
		return nil, err
	}
	imageVec := imageFeatureVector(imgBytes, p.dimension)

	normalizedText := normalizeL2(textVec[0])
	normalizedImage := normalizeL2(imageVec)

	fused := make([]float32, p.dimension)
	for i := range fused {
		fused[i] = float32(imageFusionWeight)*normalizedImage[i] + float32(textFusionWeight)*normalizedText[i]
	}
	return normalizeL2(fused), nil
}

// imageFeatureVector derives a deterministic, content-sensitive vector
// from raw image bytes using a running hash seeded per output
// dimension. It is not a semantic image encoding — no vision encoder
// is available anywhere in this codebase's dependency set — but it is
// stable (same bytes always produce the same vector) and sensitive to
// the input, which is what the fusion formula needs for a fallback
// path that is only exercised when the hosted provider is unavailable.
func imageFeatureVector(data []byte, dimension int) []float32 {
	vec := make([]float32, dimension)
	if len(data) == 0 {
		return vec
	}
	const prime = 16777619
	for i := range vec {
		hash := uint32(2166136261) ^ uint32(i*prime)
		for _, b := range data {
			hash ^= uint32(b)
			hash *= prime
		}
		// Map to [-1, 1).
		vec[i] = float32(hash%2000000)/1000000.0 - 1.0
	}
	return vec
}
