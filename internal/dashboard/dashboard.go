package dashboard

import (
	"fmt"
	"time"

	"github.com/NimbleMarkets/ntcharts/sparkline"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fieldcraft-labs/manifest/internal/model"
	"github.com/fieldcraft-labs/manifest/internal/optimizer"
)

const (
	sparklineWidth  = 30
	sparklineHeight = 3
	historySize     = 30
)

// Model is the BubbleTea model driving "pack --watch". It consumes an
// Event channel produced by Run and renders the solve's progress until
// the final PackingResult arrives.
type Model struct {
	events   <-chan Event
	started  time.Time
	done     bool
	result   model.PackingResult
	err      error
	quitting bool

	maxWeightGrams int
	latest         optimizer.Progress
	haveProgress   bool

	scoreHistory []float64
	gapHistory   []float64
	nodeRate     float64
	lastNodes    int
	lastSample   time.Time

	scoreProgress progress.Model
}

// NewModel creates a dashboard model for a solve bounded by
// maxWeightGrams, consuming events from ch until it closes.
func NewModel(ch <-chan Event, maxWeightGrams int) Model {
	return Model{
		events:         ch,
		started:        time.Now(),
		maxWeightGrams: maxWeightGrams,
		scoreHistory:   make([]float64, 0, historySize),
		gapHistory:     make([]float64, 0, historySize),
		scoreProgress: progress.New(
			progress.WithGradient("#00ff00", "#ffff00"),
			progress.WithWidth(40),
		),
	}
}

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true).
			MarginTop(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	healthyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	containerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(1, 2)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			MarginTop(1)

	footerKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)

	sparklineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51"))
)

func appendToHistory(history []float64, value float64) []float64 {
	history = append(history, value)
	if len(history) > historySize {
		history = history[1:]
	}
	return history
}

func createSparkline(data []float64) string {
	if len(data) == 0 {
		return dimStyle.Render(fmt.Sprintf("%*s", sparklineWidth, "no data"))
	}
	spark := sparkline.New(sparklineWidth, sparklineHeight)
	for _, v := range data {
		spark.Push(v)
	}
	return sparklineStyle.Render(spark.View())
}

// Message types.
type eventMsg struct {
	event Event
	ok    bool
}

// waitForEvent returns a command that blocks on the next Event from
// ch. Re-issuing it after every non-terminal message keeps the model
// subscribed for the lifetime of the solve.
func waitForEvent(ch <-chan Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		return eventMsg{event: ev, ok: ok}
	}
}

// Init starts listening for solve events.
func (m Model) Init() tea.Cmd {
	return waitForEvent(m.events)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case eventMsg:
		if !msg.ok {
			// Channel closed with no terminal Result event; treat as done.
			m.done = true
			return m, nil
		}
		ev := msg.event
		switch {
		case ev.Err != nil:
			m.err = ev.Err
			m.done = true
			return m, nil
		case ev.Progress != nil:
			m.applyProgress(*ev.Progress)
			return m, waitForEvent(m.events)
		case ev.Result != nil:
			m.result = *ev.Result
			m.done = true
			return m, nil
		}
		return m, waitForEvent(m.events)
	}

	return m, nil
}

func (m *Model) applyProgress(p optimizer.Progress) {
	now := time.Now()
	if !m.lastSample.IsZero() {
		elapsed := now.Sub(m.lastSample).Seconds()
		if elapsed > 0 {
			m.nodeRate = float64(p.NodesExplored-m.lastNodes) / elapsed
		}
	}
	m.lastNodes = p.NodesExplored
	m.lastSample = now

	m.latest = p
	m.haveProgress = true
	m.scoreHistory = appendToHistory(m.scoreHistory, p.BestScore)
	gap := p.Bound - p.BestScore
	if gap < 0 {
		gap = 0
	}
	m.gapHistory = appendToHistory(m.gapHistory, gap)
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.err != nil {
		return m.renderError()
	}
	if m.done {
		return m.renderResult()
	}
	return m.renderProgress()
}

func (m Model) renderError() string {
	header := headerStyle.Render(" manifest Solver ")
	content := "\n" + errorStyle.Render("⚠ Solve failed") + "\n\n" +
		dimStyle.Render("Error: ") + errorStyle.Render(m.err.Error()) + "\n\n" +
		footerStyle.Render("[q] quit") + "\n"
	return containerStyle.Render(header + "\n" + content)
}

func (m Model) renderProgress() string {
	header := headerStyle.Render(" manifest Solver ")
	elapsed := time.Since(m.started)

	var content string
	content += header + "\n"
	content += labelStyle.Render("  Elapsed: ") + valueStyle.Render(FormatDuration(elapsed)) + "\n"

	content += "\n" + sectionStyle.Render("┃ Search") + "\n"
	content += labelStyle.Render("  Nodes: ") + valueStyle.Render(fmt.Sprintf("%d", m.latest.NodesExplored)) +
		"   " + labelStyle.Render("Rate: ") + valueStyle.Render(FormatNodeRate(m.nodeRate)) + "\n"

	content += "\n" + sectionStyle.Render("┃ Objective") + "\n"
	scoreSparkline := createSparkline(m.scoreHistory)
	content += labelStyle.Render("  Best score: ") + valueStyle.Render(fmt.Sprintf("%.4f", m.latest.BestScore)) +
		"   " + scoreSparkline + "\n"

	gap := m.latest.Bound - m.latest.BestScore
	if gap < 0 {
		gap = 0
	}
	gapPct := 0.0
	if m.latest.Bound > 0 {
		gapPct = gap / m.latest.Bound
	}
	gapSparkline := createSparkline(m.gapHistory)
	content += labelStyle.Render("  Gap: ") + valueStyle.Render(FormatPercentage(gapPct)) +
		" " + gapBadge(gapPct) + "   " + gapSparkline + "\n"

	content += "\n" + sectionStyle.Render("┃ Weight") + "\n"
	weightPercent := 0.0
	if m.maxWeightGrams > 0 {
		weightPercent = float64(m.latest.BestWeight) / float64(m.maxWeightGrams)
		if weightPercent > 1.0 {
			weightPercent = 1.0
		}
	}
	content += labelStyle.Render("  Load: ") +
		m.scoreProgress.ViewAs(weightPercent) +
		" " + dimStyle.Render(fmt.Sprintf("%dg / %dg", m.latest.BestWeight, m.maxWeightGrams)) + "\n"

	footer := footerKeyStyle.Render("[q]") + footerStyle.Render(" quit  ") +
		footerStyle.Render("solving...")
	content += "\n" + footer

	return containerStyle.Render(content)
}

func (m Model) renderResult() string {
	header := headerStyle.Render(" manifest Solver ")
	statusBadge := statusBadgeFor(m.result.Status)

	var content string
	content += header + "\n"
	content += statusBadge + "   " + dimStyle.Render("Solve time: ") +
		valueStyle.Render(fmt.Sprintf("%dms", m.result.SolverTimeMS)) + "\n"

	content += "\n" + sectionStyle.Render("┃ Result") + "\n"
	content += labelStyle.Render("  Packed: ") + valueStyle.Render(fmt.Sprintf("%d items", len(m.result.PackedItems))) +
		"   " + labelStyle.Render("Unpacked: ") + valueStyle.Render(fmt.Sprintf("%d", len(m.result.UnpackedItems))) + "\n"
	content += labelStyle.Render("  Weight: ") +
		valueStyle.Render(fmt.Sprintf("%dg / %dg", m.result.TotalWeightGrams, m.maxWeightGrams)) +
		" " + dimStyle.Render(FormatPercentage(m.result.WeightUtilization)) + "\n"
	content += labelStyle.Render("  Score: ") + valueStyle.Render(fmt.Sprintf("%.4f", m.result.TotalSimilarity)) + "\n"

	if len(m.result.RelaxedConstraints) > 0 {
		content += "\n" + sectionStyle.Render("┃ Notes") + "\n"
		for _, note := range m.result.RelaxedConstraints {
			content += labelStyle.Render("  - ") + dimStyle.Render(note) + "\n"
		}
	}

	footer := footerKeyStyle.Render("[q]") + footerStyle.Render(" quit")
	content += "\n" + footer

	return containerStyle.Render(content)
}

func gapBadge(gapPct float64) string {
	if gapPct <= 0.01 {
		return healthyStyle.Render("[✓]")
	} else if gapPct <= 0.1 {
		return warningStyle.Render("[⚠]")
	}
	return errorStyle.Render("[…]")
}

func statusBadgeFor(status string) string {
	switch status {
	case model.StatusOptimal:
		return healthyStyle.Render("✓ OPTIMAL")
	case model.StatusFeasible:
		return warningStyle.Render("⚠ FEASIBLE")
	default:
		return errorStyle.Render("✗ INFEASIBLE")
	}
}
