// Package vectorstore adapts the manifest_items collection to a
// single cosine-similarity store with a category/user filter, modeled
// on the server-side match_manifest_items RPC described by the spec.
package vectorstore

import (
	"github.com/fieldcraft-labs/manifest/internal/model"
)

// Row is the flat shape persisted per item: ItemContext denormalized
// alongside embedding, image_url, optional user_id, and the two
// derived columns (domain, weight_grams).
type Row struct {
	ID                 string
	UserID             string
	ImageURL           string
	Embedding          []float32
	Name               string
	Domain             string
	Category           string
	PrimaryMaterial    string
	WeightEstimate     string
	WeightGrams        *int
	ThermalRating      string
	WaterResistance    string
	MedicalApplication string
	UtilitySummary     string
	SemanticTags       []string
	Durability         string
	Compressibility    string
	Quantity           int
}

// RowFromEmbeddingResult builds the row to upsert, deriving domain and
// weight_grams the same way the store's RPC schema expects. It is a
// pure function so the upsert row shape is unit-testable without a
// live backend.
func RowFromEmbeddingResult(result model.EmbeddingResult, imageURL, userID string) Row {
	ctx := result.Context

	var weightGrams *int
	if ctx.WeightEstimate != "" {
		g := model.EstimateWeight(ctx.WeightEstimate)
		weightGrams = &g
	}

	return Row{
		ID:                 result.ItemID,
		UserID:             userID,
		ImageURL:           imageURL,
		Embedding:          result.Vector,
		Name:               ctx.Name,
		Domain:             model.CategoryToDomain(ctx.InferredCategory),
		Category:           ctx.InferredCategory,
		PrimaryMaterial:    ctx.PrimaryMaterial,
		WeightEstimate:     ctx.WeightEstimate,
		WeightGrams:        weightGrams,
		ThermalRating:      ctx.ThermalRating,
		WaterResistance:    ctx.WaterResistance,
		MedicalApplication: ctx.MedicalApplication,
		UtilitySummary:     ctx.UtilitySummary,
		SemanticTags:       ctx.SemanticTags,
		Durability:         ctx.Durability,
		Compressibility:    ctx.Compressibility,
		Quantity:           ctx.Quantity,
	}
}

// ItemFromRow reconstructs a RetrievedItem from a returned row plus its
// similarity score, the inverse of RowFromEmbeddingResult for the
// columns a RetrievedItem needs.
func ItemFromRow(r Row, score float32) model.RetrievedItem {
	return model.RetrievedItem{
		ItemID:      r.ID,
		Score:       score,
		ImageURL:    r.ImageURL,
		WeightGrams: r.WeightGrams,
		Context: model.ItemContext{
			Name:                r.Name,
			InferredCategory:    r.Category,
			PrimaryMaterial:     r.PrimaryMaterial,
			WeightEstimate:      r.WeightEstimate,
			ThermalRating:       r.ThermalRating,
			WaterResistance:     r.WaterResistance,
			MedicalApplication:  r.MedicalApplication,
			UtilitySummary:      r.UtilitySummary,
			SemanticTags:        r.SemanticTags,
			Durability:          r.Durability,
			Compressibility:     r.Compressibility,
			Quantity:            r.Quantity,
		},
	}
}

// rowToPayload flattens a row into the metadata map langchaingo's
// schema.Document carries, used on the write path.
func rowToPayload(r Row) map[string]any {
	payload := map[string]any{
		"name":             r.Name,
		"domain":           r.Domain,
		"category":         r.Category,
		"primary_material": r.PrimaryMaterial,
		"weight_estimate":  r.WeightEstimate,
		"thermal_rating":   r.ThermalRating,
		"water_resistance": r.WaterResistance,
		"medical_application": r.MedicalApplication,
		"utility_summary":  r.UtilitySummary,
		"semantic_tags":    r.SemanticTags,
		"durability":       r.Durability,
		"compressibility":  r.Compressibility,
		"quantity":         r.Quantity,
		"image_url":        r.ImageURL,
	}
	if r.UserID != "" {
		payload["user_id"] = r.UserID
	}
	if r.WeightGrams != nil {
		payload["weight_grams"] = *r.WeightGrams
	}
	return payload
}

// rowFromPayload is the read-path inverse of rowToPayload.
func rowFromPayload(id string, payload map[string]any) Row {
	r := Row{ID: id}
	r.Name, _ = payload["name"].(string)
	r.Domain, _ = payload["domain"].(string)
	r.Category, _ = payload["category"].(string)
	r.PrimaryMaterial, _ = payload["primary_material"].(string)
	r.WeightEstimate, _ = payload["weight_estimate"].(string)
	r.ThermalRating, _ = payload["thermal_rating"].(string)
	r.WaterResistance, _ = payload["water_resistance"].(string)
	r.MedicalApplication, _ = payload["medical_application"].(string)
	r.UtilitySummary, _ = payload["utility_summary"].(string)
	r.Durability, _ = payload["durability"].(string)
	r.Compressibility, _ = payload["compressibility"].(string)
	r.ImageURL, _ = payload["image_url"].(string)
	r.UserID, _ = payload["user_id"].(string)

	if tags, ok := payload["semantic_tags"].([]string); ok {
		r.SemanticTags = tags
	} else if tagsAny, ok := payload["semantic_tags"].([]any); ok {
		for _, t := range tagsAny {
			if s, ok := t.(string); ok {
				r.SemanticTags = append(r.SemanticTags, s)
			}
		}
	}

	if q, ok := payload["quantity"].(int); ok {
		r.Quantity = q
	} else if qf, ok := payload["quantity"].(float64); ok {
		r.Quantity = int(qf)
	}

	if wg, ok := payload["weight_grams"].(int); ok {
		r.WeightGrams = &wg
	} else if wgf, ok := payload["weight_grams"].(float64); ok {
		g := int(wgf)
		r.WeightGrams = &g
	}

	return r
}
