package dashboard

import (
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldcraft-labs/manifest/internal/model"
	"github.com/fieldcraft-labs/manifest/internal/optimizer"
)

func TestNewModel(t *testing.T) {
	ch := make(chan Event)
	m := NewModel(ch, 5000)
	assert.Equal(t, 5000, m.maxWeightGrams)
	assert.False(t, m.quitting)
	assert.False(t, m.done)
}

func TestModel_Init(t *testing.T) {
	ch := make(chan Event, 1)
	ch <- Event{Result: &model.PackingResult{Status: model.StatusOptimal}}
	close(ch)
	m := NewModel(ch, 5000)
	cmd := m.Init()
	require.NotNil(t, cmd)
}

func TestModel_Update_QuitKey(t *testing.T) {
	m := NewModel(make(chan Event), 5000)
	keyMsg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}
	updated, cmd := m.Update(keyMsg)
	um := updated.(Model)
	assert.True(t, um.quitting)
	assert.NotNil(t, cmd)
}

func TestModel_Update_ProgressEvent(t *testing.T) {
	m := NewModel(make(chan Event), 5000)
	p := optimizer.Progress{NodesExplored: 128, BestScore: 1.25, BestWeight: 900, Bound: 1.5}
	updated, cmd := m.Update(eventMsg{ok: true, event: Event{Progress: &p}})
	um := updated.(Model)
	assert.True(t, um.haveProgress)
	assert.Equal(t, 128, um.latest.NodesExplored)
	assert.Equal(t, 1.25, um.latest.BestScore)
	assert.Len(t, um.scoreHistory, 1)
	assert.NotNil(t, cmd) // should re-subscribe via waitForEvent
}

func TestModel_Update_ResultEvent(t *testing.T) {
	m := NewModel(make(chan Event), 5000)
	result := model.PackingResult{Status: model.StatusOptimal, TotalSimilarity: 3.5}
	updated, cmd := m.Update(eventMsg{ok: true, event: Event{Result: &result}})
	um := updated.(Model)
	assert.True(t, um.done)
	assert.Equal(t, model.StatusOptimal, um.result.Status)
	assert.Nil(t, cmd)
}

func TestModel_Update_ErrEvent(t *testing.T) {
	m := NewModel(make(chan Event), 5000)
	updated, cmd := m.Update(eventMsg{ok: true, event: Event{Err: fmt.Errorf("solver panicked")}})
	um := updated.(Model)
	require.Error(t, um.err)
	assert.Contains(t, um.err.Error(), "solver panicked")
	assert.Nil(t, cmd)
}

func TestModel_Update_ChannelClosed(t *testing.T) {
	m := NewModel(make(chan Event), 5000)
	updated, cmd := m.Update(eventMsg{ok: false})
	um := updated.(Model)
	assert.True(t, um.done)
	assert.Nil(t, cmd)
}

func TestModel_View_Progress(t *testing.T) {
	m := NewModel(make(chan Event), 5000)
	m.applyProgress(optimizer.Progress{NodesExplored: 64, BestScore: 2.0, Bound: 2.5, BestWeight: 1000})

	view := m.View()
	assert.Contains(t, view, "manifest Solver")
	assert.Contains(t, view, "Search")
	assert.Contains(t, view, "Objective")
	assert.Contains(t, view, "Weight")
}

func TestModel_View_Result(t *testing.T) {
	m := NewModel(make(chan Event), 5000)
	m.done = true
	m.result = model.PackingResult{
		Status:           model.StatusOptimal,
		TotalWeightGrams: 4800,
		TotalSimilarity:  3.21,
		SolverTimeMS:     42,
		PackedItems:      []model.PackedEntry{{Item: model.PackableItem{ItemID: "tent"}, Quantity: 1}},
	}

	view := m.View()
	assert.Contains(t, view, "OPTIMAL")
	assert.Contains(t, view, "Result")
	assert.Contains(t, view, "42ms")
	assert.Contains(t, view, "[q]")
}

func TestModel_View_Error(t *testing.T) {
	m := NewModel(make(chan Event), 5000)
	m.err = fmt.Errorf("context canceled")

	view := m.View()
	assert.Contains(t, view, "Solve failed")
	assert.Contains(t, view, "context canceled")
}
