// Package pipeline wires the Context Extractor, Multimodal Embedder,
// Vector Store Adapter, Mission Synthesizer, and Knapsack Optimizer
// into the three operations an operator actually calls: ingest,
// search, and pack.
//
// # Architecture
//
// The Orchestrator holds long-lived singleton clients for each stage
// and exposes:
//
//	Ingest / IngestBatch  — Extractor → Embedder → Store.Upsert
//	Search                — Embedder.EmbedText → Store.Search → (optional) Synthesizer
//	Pack / PackAndExplain — Search(synthesize=false) → RetrievedToPackable → Optimizer.Solve
//
// Each stage is a suspension point: extraction and embedding call out
// to a model provider, the store call is a network round trip, and
// the optimizer runs synchronously on the calling goroutine, bounded by
// its time limit; callers on other goroutines are not held up by it.
//
// # Usage
//
//	orch := pipeline.New(pipeline.Dependencies{
//	    Extractor:   extractor,
//	    Embedder:    embedder,
//	    Store:       store,
//	    Synthesizer: synthesizer,
//	    Optimizer:   optimizer.New(optimizer.DefaultTimeLimit),
//	})
//	itemID, itemCtx, err := orch.Ingest(ctx, contextextract.Image{Path: "boots.jpg"}, "", "user-1")
package pipeline
