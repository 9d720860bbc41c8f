package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fieldcraft-labs/manifest/internal/contextextract"
	"github.com/fieldcraft-labs/manifest/internal/embedding"
	"github.com/fieldcraft-labs/manifest/internal/model"
	"github.com/fieldcraft-labs/manifest/internal/optimizer"
	"github.com/fieldcraft-labs/manifest/internal/synth"
	"github.com/fieldcraft-labs/manifest/internal/vectorstore"
)

var ErrNoItems = errors.New("pipeline: no candidate items to pack")

// interBatchDelay paces IngestBatch so sequential requests to the
// extraction/embedding providers stay under their rate limits.
const interBatchDelay = 500 * time.Millisecond

// maxUnpackedForExplain bounds how many unpacked items PackAndExplain
// feeds to the synthesizer alongside the packed set, keeping the
// augmented prompt a manageable size.
const maxUnpackedForExplain = 10

var tracer = otel.Tracer("github.com/fieldcraft-labs/manifest/internal/pipeline")

// Dependencies are the long-lived singleton clients the Orchestrator
// wires together. Each is constructed once at process startup and is
// safe for concurrent use across requests.
type Dependencies struct {
	Extractor   contextextract.Extractor
	Embedder    embedding.Provider
	Store       vectorstore.Store
	Synthesizer synth.Synthesizer
	Optimizer   *optimizer.Optimizer
	Logger      *zap.Logger
}

// Orchestrator is the pipeline's entry point: ingest, search, and pack.
type Orchestrator struct {
	extractor   contextextract.Extractor
	embedder    embedding.Provider
	store       vectorstore.Store
	synthesizer synth.Synthesizer
	optimizer   *optimizer.Optimizer
	logger      *zap.Logger
}

// New builds an Orchestrator from its Dependencies. A nil Logger falls
// back to zap.NewNop() so callers never need a nil check.
func New(deps Dependencies) *Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	opt := deps.Optimizer
	if opt == nil {
		opt = optimizer.New(optimizer.DefaultTimeLimit)
	}
	return &Orchestrator{
		extractor:   deps.Extractor,
		embedder:    deps.Embedder,
		store:       deps.Store,
		synthesizer: deps.Synthesizer,
		optimizer:   opt,
		logger:      logger,
	}
}

// Ingest runs one item through Extractor -> Embedder -> Store.Upsert
// and returns the assigned id and the extracted context so the caller
// can confirm or display what was recorded.
func (o *Orchestrator) Ingest(ctx context.Context, image contextextract.Image, imageURL, userID string) (string, model.ItemContext, error) {
	ctx, span := tracer.Start(ctx, "pipeline.ingest")
	defer span.End()

	itemCtx, err := o.extractor.Extract(ctx, image)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", model.ItemContext{}, fmt.Errorf("pipeline: extraction failed: %w", err)
	}

	embeddingImage := embedding.Image{Bytes: image.Bytes, Path: image.Path, URL: image.URL}
	vector, err := o.embedder.EmbedItem(ctx, embeddingImage, itemCtx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", model.ItemContext{}, fmt.Errorf("pipeline: embedding failed: %w", err)
	}

	result := model.NewEmbeddingResult(vector, itemCtx, imageURL)
	itemID, err := o.store.Upsert(ctx, result, imageURL, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", model.ItemContext{}, fmt.Errorf("pipeline: store upsert failed: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return itemID, itemCtx, nil
}

// IngestItem pairs an Image with the image_url/user_id IngestBatch
// needs to process it.
type IngestItem struct {
	Image    contextextract.Image
	ImageURL string
	UserID   string
}

// IngestOutcome is one IngestBatch result: either an assigned item id
// and context, or the error that item failed with.
type IngestOutcome struct {
	ItemID  string
	Context model.ItemContext
	Err     error
}

// IngestBatch processes items sequentially with a small inter-item
// delay to stay under provider rate limits. A per-item failure is
// recorded in that item's outcome and does not stop the batch.
func (o *Orchestrator) IngestBatch(ctx context.Context, items []IngestItem) []IngestOutcome {
	outcomes := make([]IngestOutcome, len(items))
	for i, item := range items {
		if ctx.Err() != nil {
			outcomes[i] = IngestOutcome{Err: ctx.Err()}
			continue
		}

		itemID, itemCtx, err := o.Ingest(ctx, item.Image, item.ImageURL, item.UserID)
		if err != nil {
			o.logger.Warn("ingest batch item failed", zap.Int("index", i), zap.Error(err))
		}
		outcomes[i] = IngestOutcome{ItemID: itemID, Context: itemCtx, Err: err}

		if i < len(items)-1 {
			select {
			case <-ctx.Done():
			case <-time.After(interBatchDelay):
			}
		}
	}
	return outcomes
}

// SearchResult is the typed union Search returns: either a curated
// MissionPlan (when synthesis ran) or the raw retrieved list.
type SearchResult struct {
	Plan      *model.MissionPlan
	Retrieved []model.RetrievedItem
}

// Search embeds the query text, runs a similarity search, and
// optionally curates the result through the synthesizer.
func (o *Orchestrator) Search(ctx context.Context, query model.SearchQuery, synthesize bool) (SearchResult, error) {
	ctx, span := tracer.Start(ctx, "pipeline.search",
		trace.WithAttributes(attribute.Bool("synthesize", synthesize), attribute.Int("top_k", query.TopK)))
	defer span.End()

	topK := query.TopK
	if topK <= 0 {
		topK = model.DefaultTopK
	}

	queryVector, err := o.embedder.EmbedText(ctx, query.QueryText)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return SearchResult{}, fmt.Errorf("pipeline: query embedding failed: %w", err)
	}

	items, err := o.store.Search(ctx, queryVector, topK, query.CategoryFilter, query.UserID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return SearchResult{}, fmt.Errorf("pipeline: store search failed: %w", err)
	}

	if !synthesize || !o.synthesizer.Available() {
		span.SetStatus(codes.Ok, "")
		return SearchResult{Retrieved: items}, nil
	}

	plan, err := o.synthesizer.Synthesize(ctx, query.QueryText, items)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return SearchResult{}, fmt.Errorf("pipeline: synthesis failed: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return SearchResult{Plan: &plan}, nil
}

// PackOptions configures Pack/PackAndExplain.
type PackOptions struct {
	TopK            int
	Inventory       map[string]int
	WeightOverrides map[string]int
}

// Optimizer exposes the orchestrator's solver so a caller that needs
// to drive it directly — "manifestctl pack --watch" attaching a live
// dashboard via optimizer.WithObserver — can do so without duplicating
// the orchestrator's own construction logic.
func (o *Orchestrator) Optimizer() *optimizer.Optimizer {
	return o.optimizer
}

// Candidates runs the search-and-convert half of Pack on its own: embed
// the query, retrieve topK candidates, and convert them to
// PackableItems. Exported so a caller that wants to call o.Optimizer().
// Solve directly (to attach a WithObserver, for instance) can get the
// same candidate set Pack would have built.
func (o *Orchestrator) Candidates(ctx context.Context, queryText string, opts PackOptions) ([]model.PackableItem, error) {
	topK := opts.TopK
	if topK <= 0 {
		topK = 30
	}

	result, err := o.Search(ctx, model.SearchQuery{QueryText: queryText, TopK: topK}, false)
	if err != nil {
		return nil, err
	}
	if len(result.Retrieved) == 0 {
		return nil, ErrNoItems
	}

	packable := make([]model.PackableItem, len(result.Retrieved))
	for i, item := range result.Retrieved {
		packable[i] = model.RetrievedToPackable(item, opts.Inventory, opts.WeightOverrides)
	}
	return packable, nil
}

// Pack searches without synthesis, converts the retrieved candidates
// to packable items, and runs the optimizer against constraints.
func (o *Orchestrator) Pack(ctx context.Context, queryText string, constraints model.PackingConstraints, opts PackOptions) (model.PackingResult, error) {
	ctx, span := tracer.Start(ctx, "pipeline.pack")
	defer span.End()

	packable, err := o.Candidates(ctx, queryText, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return model.PackingResult{}, err
	}

	packed := o.optimizer.Solve(ctx, packable, constraints)
	span.SetStatus(codes.Ok, "")
	return packed, nil
}

// PackMulti searches without synthesis, converts the retrieved
// candidates to packable items, and runs the multi-bin optimizer
// against several containers at once, distributing items across them
// under a single set of diversity constraints held cumulatively across
// every container.
func (o *Orchestrator) PackMulti(ctx context.Context, queryText string, containers []model.ContainerSpec, constraints model.PackingConstraints, opts PackOptions) (model.PackingResult, error) {
	ctx, span := tracer.Start(ctx, "pipeline.pack_multi",
		trace.WithAttributes(attribute.Int("container_count", len(containers))))
	defer span.End()

	packable, err := o.Candidates(ctx, queryText, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return model.PackingResult{}, err
	}

	packed := o.optimizer.SolveMulti(ctx, packable, containers, constraints)
	span.SetStatus(codes.Ok, "")
	return packed, nil
}

// PackAndExplainMulti runs PackMulti and then asks the synthesizer to
// explain the result across every container, the same way
// PackAndExplain does for a single bin.
func (o *Orchestrator) PackAndExplainMulti(ctx context.Context, queryText string, containers []model.ContainerSpec, constraints model.PackingConstraints, opts PackOptions) (model.PackingResult, model.MissionPlan, error) {
	ctx, span := tracer.Start(ctx, "pipeline.pack_and_explain_multi")
	defer span.End()

	packed, err := o.PackMulti(ctx, queryText, containers, constraints, opts)
	if err != nil {
		span.RecordError(err)
		return model.PackingResult{}, model.MissionPlan{}, err
	}

	if !o.synthesizer.Available() {
		span.SetStatus(codes.Ok, "")
		return packed, model.MissionPlan{}, nil
	}

	explainItems := make([]model.RetrievedItem, 0, len(packed.UnpackedItems))
	for _, entries := range packed.ContainerPackedItems {
		for _, entry := range entries {
			explainItems = append(explainItems, packableToRetrieved(entry.Item))
		}
	}
	unpackedLimit := len(packed.UnpackedItems)
	if unpackedLimit > maxUnpackedForExplain {
		unpackedLimit = maxUnpackedForExplain
	}
	for _, item := range packed.UnpackedItems[:unpackedLimit] {
		explainItems = append(explainItems, packableToRetrieved(item))
	}

	minimums := ""
	if len(constraints.CategoryMinimums) > 0 || len(constraints.TagMinimums) > 0 {
		minimums = fmt.Sprintf(" Category minimums %v, tag minimums %v.", constraints.CategoryMinimums, constraints.TagMinimums)
	}
	augmented := fmt.Sprintf(
		"%s\n\nOptimizer result across %d containers: weight utilization %.0f%%, status %s.%s%s",
		queryText, len(containers), packed.WeightUtilization*100, packed.Status, minimums, relaxationSummary(packed.RelaxedConstraints),
	)

	plan, err := o.synthesizer.Synthesize(ctx, augmented, explainItems)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return packed, model.MissionPlan{}, fmt.Errorf("pipeline: explain synthesis failed: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return packed, plan, nil
}

// PackAndExplain runs Pack and then asks the synthesizer to explain
// the optimizer's numeric result: it is given the packed items plus up
// to maxUnpackedForExplain unpacked candidates, and an augmented query
// describing weight utilization, diversity minimums, and any
// relaxations, so the LLM's narrative matches what the solver actually
// did instead of re-deciding the selection itself.
func (o *Orchestrator) PackAndExplain(ctx context.Context, queryText string, constraints model.PackingConstraints, opts PackOptions) (model.PackingResult, model.MissionPlan, error) {
	ctx, span := tracer.Start(ctx, "pipeline.pack_and_explain")
	defer span.End()

	packed, err := o.Pack(ctx, queryText, constraints, opts)
	if err != nil {
		span.RecordError(err)
		return model.PackingResult{}, model.MissionPlan{}, err
	}

	if !o.synthesizer.Available() {
		span.SetStatus(codes.Ok, "")
		return packed, model.MissionPlan{}, nil
	}

	explainItems := make([]model.RetrievedItem, 0, len(packed.PackedItems)+maxUnpackedForExplain)
	for _, entry := range packed.PackedItems {
		explainItems = append(explainItems, packableToRetrieved(entry.Item))
	}
	unpackedLimit := len(packed.UnpackedItems)
	if unpackedLimit > maxUnpackedForExplain {
		unpackedLimit = maxUnpackedForExplain
	}
	for _, item := range packed.UnpackedItems[:unpackedLimit] {
		explainItems = append(explainItems, packableToRetrieved(item))
	}

	minimums := ""
	if len(constraints.CategoryMinimums) > 0 || len(constraints.TagMinimums) > 0 {
		minimums = fmt.Sprintf(" Category minimums %v, tag minimums %v.", constraints.CategoryMinimums, constraints.TagMinimums)
	}
	augmented := fmt.Sprintf(
		"%s\n\nOptimizer result: weight utilization %.0f%%, status %s.%s%s",
		queryText, packed.WeightUtilization*100, packed.Status, minimums, relaxationSummary(packed.RelaxedConstraints),
	)

	plan, err := o.synthesizer.Synthesize(ctx, augmented, explainItems)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return packed, model.MissionPlan{}, fmt.Errorf("pipeline: explain synthesis failed: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return packed, plan, nil
}

// ResolvePreset looks up a named constraint preset (carry_on_luggage,
// checked_bag, drone_delivery, medical_relief, hiking_day_trip,
// bug_out_bag). It is a thin pass-through to model.Preset kept in the
// pipeline package so callers (the CLI, an HTTP handler) have one place to
// resolve a preset name into constraints without importing the model
// package's constant set directly.
func ResolvePreset(name string) (model.PackingConstraints, bool) {
	return model.Preset(name)
}

func relaxationSummary(notes []string) string {
	if len(notes) == 0 {
		return ""
	}
	summary := " Relaxed constraints:"
	for _, note := range notes {
		summary += " " + note + ";"
	}
	return summary
}

func packableToRetrieved(item model.PackableItem) model.RetrievedItem {
	weight := item.WeightGrams
	return model.RetrievedItem{
		ItemID:      item.ItemID,
		Score:       float32(item.SimilarityScore),
		WeightGrams: &weight,
		Context: model.ItemContext{
			Name:             item.Name,
			InferredCategory: item.Category,
			SemanticTags:     item.SemanticTags,
		},
	}
}
