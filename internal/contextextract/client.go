package contextextract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/fieldcraft-labs/manifest/internal/model"
)

const (
	defaultBaseURL    = "https://api.anthropic.com"
	defaultMaxRetries = 3
	defaultBaseBackoff = time.Second
	// defaultRateLimit mirrors the teacher's outbound LLM pacing: a
	// conservative steady rate with a small burst allowance.
	defaultRateLimit = 50.0 / 60.0
	defaultBurst     = 5
)

// anthropicExtractor implements Extractor against Anthropic's vision
// models using strict JSON-object decoding.
type anthropicExtractor struct {
	client     anthropic.Client
	model      string
	maxTokens  int
	effort     string
	maxRetries int
	limiter    *rate.Limiter
}

// NewAnthropicExtractor validates cfg and constructs an Extractor
// backed by the Anthropic API.
func NewAnthropicExtractor(cfg Config) (Extractor, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: missing api key", ErrInvalidConfig)
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = defaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &anthropicExtractor{
		client:     anthropic.NewClient(opts...),
		model:      modelName,
		maxTokens:  maxTokens,
		effort:     cfg.ReasoningEffort,
		maxRetries: defaultMaxRetries,
		limiter:    rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst),
	}, nil
}

func (a *anthropicExtractor) Available() bool { return true }

var tracer = otel.Tracer("github.com/fieldcraft-labs/manifest/internal/contextextract")

func (a *anthropicExtractor) Extract(ctx context.Context, img Image) (model.ItemContext, error) {
	ctx, span := tracer.Start(ctx, "contextextract.extract",
		trace.WithAttributes(attribute.String("model", a.model)))
	defer span.End()

	if err := a.limiter.Wait(ctx); err != nil {
		span.RecordError(err)
		return model.ItemContext{}, err
	}

	resolved, err := resolveImage(img)
	if err != nil {
		span.RecordError(err)
		return model.ItemContext{}, err
	}

	var blocks []anthropic.BetaContentBlockParamUnion
	if resolved.URL != "" {
		blocks = append(blocks, anthropic.BetaContentBlockParamOfText(
			fmt.Sprintf("Item photo URL: %s", resolved.URL)))
	} else {
		mediaType, data := splitDataURI(resolved.DataURI)
		blocks = append(blocks, anthropic.NewBetaImageBlockBase64(mediaType, data))
	}
	blocks = append(blocks, anthropic.BetaContentBlockParamOfText(
		"Classify and describe the item shown."))

	req := anthropic.BetaMessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: int64(a.maxTokens),
		System: []anthropic.BetaTextBlockParam{
			{Text: extractionPrompt},
		},
		Messages: []anthropic.BetaMessageParam{
			{Role: anthropic.BetaMessageParamRoleUser, Content: blocks},
		},
	}

	var resp *anthropic.BetaMessage
	var lastErr error
	for attempt := 0; attempt < a.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := defaultBaseBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				span.RecordError(ctx.Err())
				return model.ItemContext{}, ctx.Err()
			}
		}
		resp, lastErr = a.client.Beta.Messages.New(ctx, req)
		if lastErr == nil {
			break
		}
		if !isRetryableError(lastErr) {
			break
		}
	}
	if lastErr != nil {
		span.RecordError(lastErr)
		span.SetStatus(codes.Error, lastErr.Error())
		return model.ItemContext{}, fmt.Errorf("contextextract: vision request failed: %w", lastErr)
	}

	text := extractText(resp)
	if strings.TrimSpace(text) == "" {
		span.RecordError(ErrExtractionEmpty)
		return model.ItemContext{}, ErrExtractionEmpty
	}

	ctxResult, err := parseItemContext(text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return model.ItemContext{}, err
	}
	span.SetStatus(codes.Ok, "")
	return ctxResult, nil
}

func (a *anthropicExtractor) ExtractBatch(ctx context.Context, images []Image) ([]model.ItemContext, []error) {
	results := make([]model.ItemContext, len(images))
	errs := make([]error, len(images))

	var wg sync.WaitGroup
	for i, img := range images {
		wg.Add(1)
		go func(i int, img Image) {
			defer wg.Done()
			results[i], errs[i] = a.Extract(ctx, img)
		}(i, img)
	}
	wg.Wait()
	return results, errs
}

func splitDataURI(uri string) (mediaType, data string) {
	const prefix = "data:"
	rest := strings.TrimPrefix(uri, prefix)
	parts := strings.SplitN(rest, ";base64,", 2)
	if len(parts) != 2 {
		return defaultImageMime, rest
	}
	return parts[0], parts[1]
}

// extractText concatenates every text block in the response.
func extractText(resp *anthropic.BetaMessage) string {
	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String()
}

// parseItemContext parses a JSON-object response into an ItemContext,
// backfilling name from utility_summary when absent and rejecting
// anything that does not parse at all.
func parseItemContext(raw string) (model.ItemContext, error) {
	cleaned := stripFences(raw)

	var parsed model.ItemContext
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		tail := cleaned
		if len(tail) > 200 {
			tail = tail[len(tail)-200:]
		}
		return model.ItemContext{}, fmt.Errorf("%w: %v (tail: %q)", ErrExtractionBadJSON, err, tail)
	}

	if strings.TrimSpace(parsed.Name) == "" {
		parsed.Name = backfillName(parsed.UtilitySummary)
	}
	if parsed.Quantity <= 0 {
		parsed.Quantity = 1
	}
	return parsed, nil
}

func backfillName(utilitySummary string) string {
	s := strings.TrimSpace(utilitySummary)
	if s == "" {
		return "Unnamed item"
	}
	if len(s) > 80 {
		return s[:80]
	}
	return s
}

// stripFences removes a leading/trailing ```json fence if the model
// ignored the JSON-only instruction.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, substr := range []string{"rate_limit", "overloaded", "timeout", "connection reset", "503", "529"} {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}
