package telegram

import (
	"testing"

	"github.com/MallardLabs/celeris/internal/domain/schedule"

	"github.com/stretchr/testify/require"
)

func TestProgressBar(t *testing.T) {
	progress, bar := ProgressBar(0, 1000)
	require.Equal(t, 0.0, progress)
	require.Equal(t, "░░░░░░░░░░", bar)

	progress, bar = ProgressBar(500, 1000)
	require.Equal(t, 50.0, progress)
	require.Equal(t, "█████░░░░░", bar)

	progress, bar = ProgressBar(1000, 1000)
	require.Equal(t, 100.0, progress)
	require.Equal(t, "██████████", bar)

	// Out-of-range input never panics or overflows the bar.
	_, bar = ProgressBar(10, 0)
	require.Equal(t, "░░░░░░░░░░", bar)
	_, bar = ProgressBar(2000, 1000)
	require.Equal(t, "██████████", bar)
}

func TestIntervalNoun(t *testing.T) {
	require.Equal(t, "seconds", intervalNoun(schedule.IntervalSeconds))
	require.Equal(t, "months", intervalNoun(schedule.IntervalMonths))
	require.Equal(t, "x", intervalNoun(schedule.IntervalType("x")))
}
