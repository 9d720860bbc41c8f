package dashboard

import (
	"fmt"
	"time"
)

// FormatNodeRate formats a branch-and-bound node rate as "X.X nodes/sec".
func FormatNodeRate(rate float64) string {
	return fmt.Sprintf("%.1f nodes/sec", rate)
}

// FormatPercentage formats a ratio (0-1) as a percentage.
func FormatPercentage(ratio float64) string {
	return fmt.Sprintf("%.1f%%", ratio*100)
}

// FormatDuration formats a time.Duration as "Xms", "X.Xs" or "Xm Ys"
// (minutes are not rolled up into hours),
// matching the granularity a human watching a short-lived solve cares about.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	minutes := int64(d.Minutes())
	seconds := int64(d.Seconds()) % 60
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
