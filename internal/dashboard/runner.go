// Package dashboard renders a live view of a single-bin solve for
// "manifestctl pack --watch": a bubbletea/lipgloss/ntcharts terminal UI
// fed directly by the optimizer's Observer hook rather than by polling
// a metrics backend, since a CLI-driven solve has no standing service
// to scrape.
package dashboard

import (
	"context"

	"github.com/fieldcraft-labs/manifest/internal/model"
	"github.com/fieldcraft-labs/manifest/internal/optimizer"
)

// Event is one message from a running solve: either a progress
// snapshot, the final result, or a terminal error. Exactly one field
// is set.
type Event struct {
	Progress *optimizer.Progress
	Result   *model.PackingResult
	Err      error
}

// Run starts opt.Solve in its own goroutine and returns a channel of
// Events: zero or more Progress events followed by exactly one Result
// event, after which the channel is closed. The caller is expected to
// feed the channel into a bubbletea program via waitForEvent.
func Run(ctx context.Context, opt *optimizer.Optimizer, items []model.PackableItem, constraints model.PackingConstraints) <-chan Event {
	events := make(chan Event, 8)

	observer := func(p optimizer.Progress) {
		select {
		case events <- Event{Progress: &p}:
		default:
			// Dashboard is behind; drop this snapshot rather than stall the solve.
		}
	}

	go func() {
		defer close(events)
		result := opt.Solve(ctx, items, constraints, optimizer.WithObserver(observer))
		events <- Event{Result: &result}
	}()

	return events
}
