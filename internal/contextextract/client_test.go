package contextextract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseItemContext_Valid(t *testing.T) {
	raw := `{"name":"Gore-Tex Rain Jacket","inferred_category":"clothing","utility_summary":"Waterproof rain shell for hiking.","semantic_tags":["waterproof","rain"],"quantity":1}`

	ctx, err := parseItemContext(raw)
	require.NoError(t, err)
	assert.Equal(t, "Gore-Tex Rain Jacket", ctx.Name)
	assert.Equal(t, "clothing", ctx.InferredCategory)
	assert.Equal(t, []string{"waterproof", "rain"}, ctx.SemanticTags)
	assert.Equal(t, 1, ctx.Quantity)
}

func TestParseItemContext_BackfillsName(t *testing.T) {
	raw := `{"inferred_category":"misc","utility_summary":"A small multitool with pliers and a blade."}`

	ctx, err := parseItemContext(raw)
	require.NoError(t, err)
	assert.Equal(t, "A small multitool with pliers and a blade.", ctx.Name)
}

func TestParseItemContext_BackfillsDefaultName(t *testing.T) {
	raw := `{"inferred_category":"misc"}`

	ctx, err := parseItemContext(raw)
	require.NoError(t, err)
	assert.Equal(t, "Unnamed item", ctx.Name)
}

func TestParseItemContext_RejectsBadJSON(t *testing.T) {
	_, err := parseItemContext(`not json at all`)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtractionBadJSON)
}

func TestParseItemContext_StripsMarkdownFences(t *testing.T) {
	raw := "```json\n{\"inferred_category\":\"tech\",\"utility_summary\":\"A headlamp.\"}\n```"

	ctx, err := parseItemContext(raw)
	require.NoError(t, err)
	assert.Equal(t, "tech", ctx.InferredCategory)
}

func TestNewExtractor_Disabled(t *testing.T) {
	ex, err := NewExtractor(Config{Provider: "disabled"})
	require.NoError(t, err)
	assert.False(t, ex.Available())
}

func TestNewExtractor_UnknownProvider(t *testing.T) {
	_, err := NewExtractor(Config{Provider: "bogus"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewAnthropicExtractor_RequiresAPIKey(t *testing.T) {
	_, err := NewAnthropicExtractor(Config{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestExtractBatch_PreservesOrderAndIsolatesFailures(t *testing.T) {
	ex := disabledExtractor{}
	results, errs := ex.ExtractBatch(nil, make([]Image, 3))
	require.Len(t, results, 3)
	require.Len(t, errs, 3)
	for _, err := range errs {
		assert.Error(t, err)
	}
}
