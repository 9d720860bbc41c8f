// Package synth curates a retrieved item set into a MissionPlan using
// an LLM: rejecting poor fits, explaining selections, and flagging
// cross-domain gaps.
package synth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
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

// Sentinel errors matching the spec's synthesis failure taxonomy.
var (
	ErrSynthesisEmpty   = errors.New("synth: empty response from synthesis model")
	ErrSynthesisBadJSON = errors.New("synth: response did not parse as JSON")
	ErrInvalidConfig    = errors.New("synth: invalid configuration")
)

// Synthesizer curates a retrieved item set for a query into a plan.
type Synthesizer interface {
	Synthesize(ctx context.Context, query string, items []model.RetrievedItem) (model.MissionPlan, error)
	Available() bool
}

// Config configures the Anthropic-backed Synthesizer.
type Config struct {
	Provider        string // "anthropic" or "disabled"
	Model           string
	APIKey          string
	BaseURL         string
	MaxTokens       int
	ReasoningEffort string
}

const (
	defaultModel     = "claude-sonnet-4-5"
	defaultMaxTokens = 4000
)

// NewSynthesizer selects a Synthesizer implementation from cfg.Provider.
func NewSynthesizer(cfg Config) (Synthesizer, error) {
	switch cfg.Provider {
	case "", "disabled":
		return disabledSynthesizer{}, nil
	case "anthropic":
		return newAnthropicSynthesizer(cfg)
	default:
		return nil, fmt.Errorf("%w: unknown synthesis provider %q", ErrInvalidConfig, cfg.Provider)
	}
}

type disabledSynthesizer struct{}

func (disabledSynthesizer) Available() bool { return false }

func (disabledSynthesizer) Synthesize(context.Context, string, []model.RetrievedItem) (model.MissionPlan, error) {
	return model.MissionPlan{}, fmt.Errorf("synth: synthesizer disabled")
}

var tracer = otel.Tracer("github.com/fieldcraft-labs/manifest/internal/synth")

type anthropicSynthesizer struct {
	client     anthropic.Client
	model      string
	maxTokens  int
	limiter    *rate.Limiter
	maxRetries int
}

const (
	defaultRateLimit  = 50.0 / 60.0
	defaultBurst      = 5
	defaultMaxRetries = 3
	defaultBaseBackoff = time.Second
)

func newAnthropicSynthesizer(cfg Config) (Synthesizer, error) {
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

	return &anthropicSynthesizer{
		client:     anthropic.NewClient(opts...),
		model:      modelName,
		maxTokens:  maxTokens,
		limiter:    rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst),
		maxRetries: defaultMaxRetries,
	}, nil
}

func (a *anthropicSynthesizer) Available() bool { return true }

func (a *anthropicSynthesizer) Synthesize(ctx context.Context, query string, items []model.RetrievedItem) (model.MissionPlan, error) {
	ctx, span := tracer.Start(ctx, "synth.synthesize",
		trace.WithAttributes(attribute.String("model", a.model), attribute.Int("candidate_count", len(items))))
	defer span.End()

	if err := a.limiter.Wait(ctx); err != nil {
		span.RecordError(err)
		return model.MissionPlan{}, err
	}

	prompt := buildSynthesisPrompt(query, items)

	req := anthropic.BetaMessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: int64(a.maxTokens),
		Messages: []anthropic.BetaMessageParam{
			{
				Role:    anthropic.BetaMessageParamRoleUser,
				Content: []anthropic.BetaContentBlockParamUnion{anthropic.BetaContentBlockParamOfText(prompt)},
			},
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
				return model.MissionPlan{}, ctx.Err()
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
		return model.MissionPlan{}, fmt.Errorf("synth: request failed: %w", lastErr)
	}

	text := extractText(resp)
	if strings.TrimSpace(text) == "" {
		span.RecordError(ErrSynthesisEmpty)
		return model.MissionPlan{}, ErrSynthesisEmpty
	}

	plan, err := parsePlan(text, items)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return model.MissionPlan{}, err
	}
	span.SetStatus(codes.Ok, "")
	return plan, nil
}

func extractText(resp *anthropic.BetaMessage) string {
	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String()
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

// synthesisResponse is the strict JSON schema the prompt requires.
type synthesisResponse struct {
	MissionSummary string `json:"mission_summary"`
	SelectedItems  []struct {
		ItemID string `json:"item_id"`
		Name   string `json:"name"`
		Reason string `json:"reason"`
	} `json:"selected_items"`
	RejectedItems []struct {
		ItemID string `json:"item_id"`
		Name   string `json:"name"`
		Reason string `json:"reason"`
	} `json:"rejected_items"`
	Warnings             []string `json:"warnings"`
	CrossDomainInsights  []string `json:"cross_domain_insights"`
}

func parsePlan(raw string, items []model.RetrievedItem) (model.MissionPlan, error) {
	cleaned := stripFences(raw)

	var parsed synthesisResponse
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		tail := cleaned
		if len(tail) > 200 {
			tail = tail[len(tail)-200:]
		}
		return model.MissionPlan{}, fmt.Errorf("%w: %v (tail: %q)", ErrSynthesisBadJSON, err, tail)
	}

	known := make(map[string]bool, len(items))
	for _, it := range items {
		known[it.ItemID] = true
	}

	plan := model.MissionPlan{
		MissionSummary: parsed.MissionSummary,
		Reasoning:      map[string]string{},
	}

	for _, s := range parsed.SelectedItems {
		if !known[s.ItemID] {
			continue
		}
		plan.SelectedItems = append(plan.SelectedItems, s.ItemID)
		plan.Reasoning[s.ItemID] = s.Reason
	}
	for _, r := range parsed.RejectedItems {
		if !known[r.ItemID] {
			continue
		}
		plan.RejectedItems = append(plan.RejectedItems, r.ItemID)
		plan.Reasoning[r.ItemID] = "REJECTED: " + r.Reason
	}

	plan.Warnings = append(plan.Warnings, parsed.Warnings...)
	for _, insight := range parsed.CrossDomainInsights {
		plan.Warnings = append(plan.Warnings, "[INSIGHT] "+insight)
	}

	return plan, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
