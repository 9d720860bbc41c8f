package embedding

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldcraft-labs/manifest/internal/model"
)

func TestBuildContextText_IncludesRequiredLines(t *testing.T) {
	ctx := model.ItemContext{
		Name:             "Gore-Tex Rain Jacket",
		InferredCategory: "clothing",
		UtilitySummary:   "Waterproof shell for wet hikes.",
	}
	text := buildContextText(ctx)
	assert.Contains(t, text, "Item: Gore-Tex Rain Jacket")
	assert.Contains(t, text, "Category: clothing")
	assert.Contains(t, text, "Utility: Waterproof shell for wet hikes.")
}

func TestBuildContextText_IncludesOptionalLinesWhenPresent(t *testing.T) {
	ctx := model.ItemContext{
		Name:             "Wool Coat",
		InferredCategory: "clothing",
		UtilitySummary:   "Heavy winter coat.",
		PrimaryMaterial:  "wool",
		ThermalRating:    "high",
		SemanticTags:     []string{"warmth", "winter"},
	}
	text := buildContextText(ctx)
	assert.Contains(t, text, "Material: wool")
	assert.Contains(t, text, "Thermal: high")
	assert.Contains(t, text, "Tags: warmth, winter")
}

func TestNormalizeL2_UnitNorm(t *testing.T) {
	v := []float32{3, 4}
	norm := normalizeL2(v)

	var sumSq float64
	for _, x := range norm {
		sumSq += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sumSq), 1e-6)
}

func TestNewProvider_UnknownProvider(t *testing.T) {
	_, err := NewProvider(Config{Provider: "bogus"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewProvider_VoyageRequiresAPIKey(t *testing.T) {
	_, err := NewProvider(Config{Provider: ProviderVoyage})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestImageFeatureVector_DeterministicAndDimensioned(t *testing.T) {
	data := []byte("a small multitool")
	v1 := imageFeatureVector(data, 384)
	v2 := imageFeatureVector(data, 384)
	assert.Equal(t, v1, v2)
	assert.Len(t, v1, 384)
}

func TestImageFeatureVector_DifferentInputsDiffer(t *testing.T) {
	v1 := imageFeatureVector([]byte("jacket"), 32)
	v2 := imageFeatureVector([]byte("bandage"), 32)
	assert.NotEqual(t, v1, v2)
}
