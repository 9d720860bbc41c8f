package dashboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatNodeRate(t *testing.T) {
	tests := []struct {
		name     string
		rate     float64
		expected string
	}{
		{"normal", 1234.5, "1234.5 nodes/sec"},
		{"zero", 0.0, "0.0 nodes/sec"},
		{"fractional", 0.3, "0.3 nodes/sec"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatNodeRate(tt.rate))
		})
	}
}

func TestFormatPercentage(t *testing.T) {
	tests := []struct {
		name     string
		ratio    float64
		expected string
	}{
		{"normal", 0.985, "98.5%"},
		{"zero", 0.0, "0.0%"},
		{"one", 1.0, "100.0%"},
		{"small", 0.012, "1.2%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatPercentage(tt.ratio))
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name     string
		d        time.Duration
		expected string
	}{
		{"milliseconds", 450 * time.Millisecond, "450ms"},
		{"sub_second_zero", 0, "0ms"},
		{"seconds", 3*time.Second + 400*time.Millisecond, "3.4s"},
		{"minutes_and_seconds", 2*time.Minute + 15*time.Second, "2m 15s"},
		{"exact_minute", time.Minute, "1m 0s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatDuration(tt.d))
		})
	}
}
