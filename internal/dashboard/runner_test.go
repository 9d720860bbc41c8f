package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldcraft-labs/manifest/internal/model"
	"github.com/fieldcraft-labs/manifest/internal/optimizer"
)

func TestRun_DeliversFinalResult(t *testing.T) {
	opt := optimizer.New(time.Second)
	items := []model.PackableItem{
		{ItemID: "tent", SimilarityScore: 0.9, WeightGrams: 2000, QuantityOwned: 1},
		{ItemID: "stove", SimilarityScore: 0.7, WeightGrams: 800, QuantityOwned: 1},
	}
	constraints := model.PackingConstraints{MaxWeightGrams: 5000}

	ch := Run(context.Background(), opt, items, constraints)

	var last Event
	for ev := range ch {
		last = ev
	}

	require.NotNil(t, last.Result)
	assert.Equal(t, model.StatusOptimal, last.Result.Status)
	assert.Len(t, last.Result.PackedItems, 2)
}

func TestRun_ChannelClosesAfterResult(t *testing.T) {
	opt := optimizer.New(time.Second)
	items := []model.PackableItem{{ItemID: "a", SimilarityScore: 1.0, WeightGrams: 100, QuantityOwned: 1}}
	constraints := model.PackingConstraints{MaxWeightGrams: 1000}

	ch := Run(context.Background(), opt, items, constraints)

	sawResult := false
	for ev := range ch {
		if ev.Result != nil {
			sawResult = true
		}
	}
	assert.True(t, sawResult)
}
