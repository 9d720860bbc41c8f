package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fieldcraft-labs/manifest/internal/model"
)

const (
	voyageBaseURL      = "https://api.voyageai.com/v1/multimodalembeddings"
	defaultVoyageModel = "voyage-multimodal-3.5"
	defaultOutputDim   = 1024
)

// voyageProvider calls the hosted multimodal embedding API: a single
// request carrying an interleaved (image, text) input, tagged
// "document" for ingest and "query" for search. There is no Go SDK for
// this API in the example corpus, so the request is built the same
// way the teacher's TEI client builds its POST: a small typed
// request/response pair over net/http.
type voyageProvider struct {
	apiKey    string
	model     string
	outputDim int
	client    *http.Client
}

func newVoyageProvider(cfg Config) (Provider, error) {
	if cfg.VoyageAPIKey == "" {
		return nil, fmt.Errorf("%w: missing voyage api key", ErrInvalidConfig)
	}
	modelName := cfg.VoyageModel
	if modelName == "" {
		modelName = defaultVoyageModel
	}
	dim := cfg.OutputDimension
	if dim == 0 {
		dim = defaultOutputDim
	}
	return &voyageProvider{
		apiKey:    cfg.VoyageAPIKey,
		model:     modelName,
		outputDim: dim,
		client:    &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (v *voyageProvider) Dimension() int { return v.outputDim }

func (v *voyageProvider) Close() error { return nil }

type voyageContentItem struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
	ImageBase64 string `json:"image_base64,omitempty"`
}

type voyageInput struct {
	Content []voyageContentItem `json:"content"`
}

type voyageRequest struct {
	Inputs          []voyageInput `json:"inputs"`
	Model           string        `json:"model"`
	InputType       string        `json:"input_type"`
	OutputDimension int           `json:"output_dimension,omitempty"`
}

type voyageEmbeddingData struct {
	Embedding []float32 `json:"embedding"`
}

type voyageResponse struct {
	Data []voyageEmbeddingData `json:"data"`
}

func (v *voyageProvider) EmbedItem(ctx context.Context, image Image, itemCtx model.ItemContext) ([]float32, error) {
	imageItem, err := imageContentItem(image)
	if err != nil {
		return nil, err
	}
	req := voyageRequest{
		Inputs: []voyageInput{{
			Content: []voyageContentItem{
				imageItem,
				{Type: "text", Text: buildContextText(itemCtx)},
			},
		}},
		Model:           v.model,
		InputType:       "document",
		OutputDimension: v.outputDim,
	}
	vec, err := v.embed(ctx, req)
	if err != nil {
		return nil, err
	}
	return normalizeL2(vec), nil
}

func (v *voyageProvider) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}
	req := voyageRequest{
		Inputs: []voyageInput{{
			Content: []voyageContentItem{{Type: "text", Text: text}},
		}},
		Model:           v.model,
		InputType:       "query",
		OutputDimension: v.outputDim,
	}
	vec, err := v.embed(ctx, req)
	if err != nil {
		return nil, err
	}
	return normalizeL2(vec), nil
}

func imageContentItem(image Image) (voyageContentItem, error) {
	switch {
	case image.URL != "":
		return voyageContentItem{Type: "image_url", ImageURL: image.URL}, nil
	case image.Path != "":
		data, err := loadPath(image.Path)
		if err != nil {
			return voyageContentItem{}, err
		}
		return voyageContentItem{Type: "image_base64", ImageBase64: toBase64(data)}, nil
	case len(image.Bytes) > 0:
		return voyageContentItem{Type: "image_base64", ImageBase64: toBase64(image.Bytes)}, nil
	default:
		return voyageContentItem{}, fmt.Errorf("%w: image has no bytes, path, or url", ErrInvalidConfig)
	}
}

func (v *voyageProvider) embed(ctx context.Context, reqBody voyageRequest) ([]float32, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("embedding: marshaling voyage request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, voyageBaseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("embedding: building voyage request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+v.apiKey)

	resp, err := v.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: voyage returned status %d", ErrEmbedderUnavailable, resp.StatusCode)
	}

	var parsed voyageResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decoding voyage response: %v", ErrEmbedderUnavailable, err)
	}
	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("%w: voyage returned no embeddings", ErrEmbedderUnavailable)
	}
	return parsed.Data[0].Embedding, nil
}
