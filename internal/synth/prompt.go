package synth

import (
	"encoding/json"
	"strings"

	"github.com/fieldcraft-labs/manifest/internal/model"
)

const synthesisInstructions = `You are curating a physical inventory for a specific mission. You are
given the mission query and a candidate list of retrieved items, each
with its similarity score to the query.

Curate, don't just rank: reject items that are a poor fit even if
their similarity score is high (e.g. cotton clothing for a cold-weather
mission, summer gear for winter conditions, expired or single-use
medical items already spent, redundant duplicates of an already-selected
item). For every selected item, give a one-sentence reason that
considers its fit across domains, not just its category. Flag any
critical gap the candidate set does not cover.

Respond with a single JSON object only — no markdown fences, no
commentary. Schema:
{
  "mission_summary": string,
  "selected_items":  [{ "item_id": string, "name": string, "reason": string }],
  "rejected_items":  [{ "item_id": string, "name": string, "reason": string }],
  "warnings":        [string],
  "cross_domain_insights": [string]
}`

type candidateRecord struct {
	ItemID             string  `json:"item_id"`
	Name               string  `json:"name"`
	Category           string  `json:"category"`
	SimilarityScore    float64 `json:"similarity_score"`
	Material           string  `json:"material,omitempty"`
	ThermalRating      string  `json:"thermal_rating,omitempty"`
	WaterResistance    string  `json:"water_resistance,omitempty"`
	MedicalApplication string  `json:"medical_application,omitempty"`
	Utility            string  `json:"utility"`
	Tags               []string `json:"tags,omitempty"`
}

func buildSynthesisPrompt(query string, items []model.RetrievedItem) string {
	records := make([]candidateRecord, 0, len(items))
	for _, it := range items {
		ctx := it.Context
		records = append(records, candidateRecord{
			ItemID:             it.ItemID,
			Name:               ctx.Name,
			Category:           ctx.InferredCategory,
			SimilarityScore:    roundTo4(float64(it.Score)),
			Material:           ctx.PrimaryMaterial,
			ThermalRating:      ctx.ThermalRating,
			WaterResistance:    ctx.WaterResistance,
			MedicalApplication: ctx.MedicalApplication,
			Utility:            ctx.UtilitySummary,
			Tags:               ctx.SemanticTags,
		})
	}

	payload, _ := json.Marshal(records)

	var sb strings.Builder
	sb.WriteString(synthesisInstructions)
	sb.WriteString("\n\nMission query: ")
	sb.WriteString(query)
	sb.WriteString("\n\nCandidates:\n")
	sb.Write(payload)
	return sb.String()
}

func roundTo4(v float64) float64 {
	return float64(int(v*10000+sign(v)*0.5)) / 10000
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
