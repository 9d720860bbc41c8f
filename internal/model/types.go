// Package model holds the data shapes shared by every stage of the
// ingest → retrieval → packing pipeline: the semantic profile produced
// by context extraction, the vectors produced by embedding, the rows
// persisted by the store, and the structures consumed and produced by
// the synthesizer and the optimizer.
package model

import "github.com/google/uuid"

// ItemContext is the semantic profile of a single physical item, as
// produced by the context extractor and denormalized into the store.
type ItemContext struct {
	Name                string   `json:"name"`
	InferredCategory    string   `json:"inferred_category"`
	PrimaryMaterial     string   `json:"primary_material,omitempty"`
	WeightEstimate      string   `json:"weight_estimate,omitempty"`
	ThermalRating       string   `json:"thermal_rating,omitempty"`
	WaterResistance     string   `json:"water_resistance,omitempty"`
	MedicalApplication  string   `json:"medical_application,omitempty"`
	UtilitySummary      string   `json:"utility_summary"`
	SemanticTags        []string `json:"semantic_tags,omitempty"`
	Durability          string   `json:"durability,omitempty"`
	Compressibility     string   `json:"compressibility,omitempty"`
	Quantity            int      `json:"quantity"`

	// EnvironmentalSuitability and LimitationsAndFailureModes are
	// populated when the vision model reports them; absence is not an
	// error, callers should treat both as optional free text.
	EnvironmentalSuitability string `json:"environmental_suitability,omitempty"`
	LimitationsAndFailureModes string `json:"limitations_and_failure_modes,omitempty"`
}

// Categories enumerated for InferredCategory. Extraction is expected to
// pick one of these; anything else still round-trips, it just won't
// match a domain bucket in CategoryToDomain.
const (
	CategoryClothing = "clothing"
	CategoryMedical  = "medical"
	CategoryTech     = "tech"
	CategoryCamping  = "camping"
	CategoryFood     = "food"
	CategoryMisc     = "misc"
)

// Weight-estimate vocabulary.
const (
	WeightUltralight = "ultralight"
	WeightLight      = "light"
	WeightMedium     = "medium"
	WeightHeavy      = "heavy"
)

// weightEstimateGrams maps a WeightEstimate label to a representative
// gram figure. Unknown labels fall back to 500g (see EstimateWeight).
var weightEstimateGrams = map[string]int{
	WeightUltralight: 100,
	WeightLight:      300,
	WeightMedium:     700,
	WeightHeavy:      1500,
}

// unknownWeightEstimateGrams is the fallback for a non-empty but
// unrecognized weight_estimate label.
const unknownWeightEstimateGrams = 500

// EstimateWeight resolves a weight_estimate label to grams. An empty
// label is treated as "medium".
func EstimateWeight(weightEstimate string) int {
	label := weightEstimate
	if label == "" {
		label = WeightMedium
	}
	if grams, ok := weightEstimateGrams[lower(label)]; ok {
		return grams
	}
	return unknownWeightEstimateGrams
}

// domainMap backs CategoryToDomain: substring match, case-insensitive,
// default "general".
var domainMap = map[string]string{
	"clothing": "clothing",
	"medical":  "medical",
	"tech":     "tech",
	"camping":  "camping",
	"food":     "food",
}

const defaultDomain = "general"

// CategoryToDomain derives the coarse domain bucket for a category via
// substring match against the fixed domain vocabulary. The match is
// case-insensitive and total: an unmatched category always yields
// "general".
func CategoryToDomain(category string) string {
	c := lower(category)
	for substr, domain := range domainMap {
		if contains(c, substr) {
			return domain
		}
	}
	return defaultDomain
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func contains(haystack, needle string) bool {
	if len(needle) == 0 {
		return true
	}
	if len(needle) > len(haystack) {
		return false
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}

// EmbeddingResult is the output of ingest: a context plus its vector.
type EmbeddingResult struct {
	ItemID    string      `json:"item_id"`
	Vector    []float32   `json:"vector"`
	Dimension int         `json:"dimension"`
	Context   ItemContext `json:"context"`
	ImageURL  string      `json:"image_url,omitempty"`
}

// NewEmbeddingResult fills in a fresh ItemID when none is supplied,
// matching the store's upsert-by-id semantics.
func NewEmbeddingResult(vector []float32, ctx ItemContext, imageURL string) EmbeddingResult {
	return EmbeddingResult{
		ItemID:    uuid.New().String(),
		Vector:    vector,
		Dimension: len(vector),
		Context:   ctx,
		ImageURL:  imageURL,
	}
}

// SearchQuery is the typed argument to a retrieval request, carried
// through the pipeline instead of a bag of positional parameters.
type SearchQuery struct {
	QueryText      string `json:"query_text"`
	TopK           int    `json:"top_k"`
	CategoryFilter string `json:"category_filter,omitempty"`
	UserID         string `json:"user_id,omitempty"`
}

// DefaultTopK is used when a SearchQuery omits TopK.
const DefaultTopK = 15

// SimilarityThreshold is advisory only; the core does not enforce it.
const SimilarityThreshold = 0.25

// RetrievedItem is a single row returned from a similarity search.
type RetrievedItem struct {
	ItemID      string      `json:"item_id"`
	Score       float32     `json:"score"`
	ImageURL    string      `json:"image_url,omitempty"`
	WeightGrams *int        `json:"weight_grams,omitempty"`
	Context     ItemContext `json:"context"`
}

// PackableItem is the optimizer's view of a candidate: enough to build
// constraints and score the objective, nothing more.
type PackableItem struct {
	ItemID          string   `json:"item_id"`
	Name            string   `json:"name"`
	SimilarityScore float64  `json:"similarity_score"`
	WeightGrams     int      `json:"weight_grams"`
	QuantityOwned   int      `json:"quantity_owned"`
	Category        string   `json:"category"`
	SemanticTags    []string `json:"semantic_tags,omitempty"`
}

// RetrievedToPackable converts a RetrievedItem into a PackableItem.
// Weight resolution order is override → stored explicit → estimate;
// quantity resolution is inventory map → 1.
func RetrievedToPackable(item RetrievedItem, inventory map[string]int, weightOverrides map[string]int) PackableItem {
	weight := 0
	if weightOverrides != nil {
		if w, ok := weightOverrides[item.ItemID]; ok && w > 0 {
			weight = w
		}
	}
	if weight == 0 && item.WeightGrams != nil && *item.WeightGrams > 0 {
		weight = *item.WeightGrams
	}
	if weight == 0 {
		weight = EstimateWeight(item.Context.WeightEstimate)
	}

	qty := 1
	if inventory != nil {
		if q, ok := inventory[item.ItemID]; ok && q > 0 {
			qty = q
		}
	}

	return PackableItem{
		ItemID:          item.ItemID,
		Name:            item.Context.Name,
		SimilarityScore: float64(item.Score),
		WeightGrams:     weight,
		QuantityOwned:   qty,
		Category:        item.Context.InferredCategory,
		SemanticTags:    item.Context.SemanticTags,
	}
}

// PackingConstraints bounds a single-bin solve.
type PackingConstraints struct {
	MaxWeightGrams    int            `json:"max_weight_grams"`
	CategoryMinimums  map[string]int `json:"category_minimums,omitempty"`
	CategoryMaximums  map[string]int `json:"category_maximums,omitempty"`
	TagMinimums       map[string]int `json:"tag_minimums,omitempty"`
	MaxPerItem        *int           `json:"max_per_item,omitempty"`
	PinnedItems       []string       `json:"pinned_items,omitempty"`
}

// ContainerSpec is one bin in a multi-bin solve. MaxWeightGrams is the
// effective capacity (declared max minus tare); a container with
// Quantity > 1 must be expanded into that many ContainerSpecs by the
// caller before calling SolveMulti.
type ContainerSpec struct {
	ContainerID    string `json:"container_id"`
	Name           string `json:"name"`
	MaxWeightGrams int    `json:"max_weight_grams"`
}

// PackedEntry is an (item, quantity) pair in a PackingResult.
type PackedEntry struct {
	Item     PackableItem `json:"item"`
	Quantity int          `json:"quantity"`
}

// PackingResult is the optimizer's output.
type PackingResult struct {
	PackedItems        []PackedEntry  `json:"packed_items"`
	UnpackedItems      []PackableItem `json:"unpacked_items"`
	TotalWeightGrams   int            `json:"total_weight_grams"`
	TotalSimilarity    float64        `json:"total_similarity_score"`
	WeightUtilization  float64        `json:"weight_utilization"`
	Status             string         `json:"status"`
	SolverTimeMS       int64          `json:"solver_time_ms"`
	RelaxedConstraints []string       `json:"relaxed_constraints,omitempty"`

	// ContainerPackedItems is populated only by SolveMulti: packed
	// entries grouped by ContainerSpec.ContainerID.
	ContainerPackedItems map[string][]PackedEntry `json:"container_packed_items,omitempty"`
}

// Packing statuses.
const (
	StatusOptimal    = "optimal"
	StatusFeasible   = "feasible"
	StatusInfeasible = "infeasible"
)

// MissionPlan is the synthesizer's curated recommendation.
type MissionPlan struct {
	MissionSummary string            `json:"mission_summary"`
	SelectedItems  []string          `json:"selected_items"`
	RejectedItems  []string          `json:"rejected_items"`
	Reasoning      map[string]string `json:"reasoning"`
	Warnings       []string          `json:"warnings"`
}
