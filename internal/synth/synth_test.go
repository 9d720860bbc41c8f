package synth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldcraft-labs/manifest/internal/model"
)

func sampleItems() []model.RetrievedItem {
	return []model.RetrievedItem{
		{ItemID: "item-1", Score: 0.91, Context: model.ItemContext{Name: "Wool Socks", InferredCategory: "clothing"}},
		{ItemID: "item-2", Score: 0.80, Context: model.ItemContext{Name: "Cotton T-Shirt", InferredCategory: "clothing"}},
	}
}

func TestParsePlan_ValidResponse(t *testing.T) {
	raw := `{
		"mission_summary": "Cold weather pack",
		"selected_items": [{"item_id": "item-1", "name": "Wool Socks", "reason": "Retains warmth when wet."}],
		"rejected_items": [{"item_id": "item-2", "name": "Cotton T-Shirt", "reason": "Cotton kills in cold conditions."}],
		"warnings": ["No waterproof layer in candidate set."],
		"cross_domain_insights": ["Consider pairing socks with insulated boots."]
	}`

	plan, err := parsePlan(raw, sampleItems())
	require.NoError(t, err)

	assert.Equal(t, "Cold weather pack", plan.MissionSummary)
	assert.Equal(t, []string{"item-1"}, plan.SelectedItems)
	assert.Equal(t, []string{"item-2"}, plan.RejectedItems)
	assert.Equal(t, "Retains warmth when wet.", plan.Reasoning["item-1"])
	assert.Equal(t, "REJECTED: Cotton kills in cold conditions.", plan.Reasoning["item-2"])
	assert.Contains(t, plan.Warnings, "No waterproof layer in candidate set.")
	assert.Contains(t, plan.Warnings, "[INSIGHT] Consider pairing socks with insulated boots.")
}

func TestParsePlan_FiltersHallucinatedIDs(t *testing.T) {
	raw := `{
		"mission_summary": "Cold weather pack",
		"selected_items": [
			{"item_id": "item-1", "name": "Wool Socks", "reason": "Good fit."},
			{"item_id": "item-999", "name": "Imaginary Jacket", "reason": "Does not exist."}
		],
		"rejected_items": [],
		"warnings": [],
		"cross_domain_insights": []
	}`

	plan, err := parsePlan(raw, sampleItems())
	require.NoError(t, err)

	assert.Equal(t, []string{"item-1"}, plan.SelectedItems)
	_, hallucinatedPresent := plan.Reasoning["item-999"]
	assert.False(t, hallucinatedPresent)
}

func TestParsePlan_StripsMarkdownFences(t *testing.T) {
	raw := "```json\n{\"mission_summary\": \"ok\", \"selected_items\": [], \"rejected_items\": [], \"warnings\": [], \"cross_domain_insights\": []}\n```"

	plan, err := parsePlan(raw, sampleItems())
	require.NoError(t, err)
	assert.Equal(t, "ok", plan.MissionSummary)
}

func TestParsePlan_RejectsBadJSON(t *testing.T) {
	_, err := parsePlan("not json at all", sampleItems())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSynthesisBadJSON)
}

func TestNewSynthesizer_Disabled(t *testing.T) {
	s, err := NewSynthesizer(Config{})
	require.NoError(t, err)
	assert.False(t, s.Available())

	_, err = s.Synthesize(context.Background(), "query", sampleItems())
	assert.Error(t, err)
}

func TestNewSynthesizer_UnknownProvider(t *testing.T) {
	_, err := NewSynthesizer(Config{Provider: "bogus"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewAnthropicSynthesizer_RequiresAPIKey(t *testing.T) {
	_, err := NewSynthesizer(Config{Provider: "anthropic"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestBuildSynthesisPrompt_IncludesQueryAndCandidates(t *testing.T) {
	prompt := buildSynthesisPrompt("cold weather expedition", sampleItems())
	assert.Contains(t, prompt, "cold weather expedition")
	assert.Contains(t, prompt, "item-1")
	assert.Contains(t, prompt, "item-2")
}
