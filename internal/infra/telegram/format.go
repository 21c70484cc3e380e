package telegram

import (
	"fmt"
	"strings"

	"github.com/MallardLabs/celeris/internal/domain/schedule"
)

const progressBarBlocks = 10

// ProgressBar renders the schedule's pool progress as a percentage and a
// ten-block bar, e.g. "███░░░░░░░".
func ProgressBar(pointsPaid, totalPoints int64) (float64, string) {
	if totalPoints <= 0 {
		return 0, strings.Repeat("░", progressBarBlocks)
	}
	progress := float64(pointsPaid) / float64(totalPoints) * 100
	filled := int(progress / 100 * progressBarBlocks)
	if filled > progressBarBlocks {
		filled = progressBarBlocks
	}
	return progress, strings.Repeat("█", filled) + strings.Repeat("░", progressBarBlocks-filled)
}

// intervalNoun maps an interval unit to its human-readable name.
func intervalNoun(it schedule.IntervalType) string {
	switch it {
	case schedule.IntervalSeconds:
		return "seconds"
	case schedule.IntervalMinutes:
		return "minutes"
	case schedule.IntervalHours:
		return "hours"
	case schedule.IntervalDays:
		return "days"
	case schedule.IntervalMonths:
		return "months"
	default:
		return string(it)
	}
}

func formatScheduleSummary(s *schedule.Schedule) string {
	progress, bar := ProgressBar(s.PointsPaid, s.TotalPoints)
	target := "individual"
	if s.IsOrganization() {
		target = "organization"
	}
	return fmt.Sprintf(
		"Schedule #%d (%s)\nAmount: %d points every %d %s\nProgress: %s %.1f%% (%d/%d points)",
		s.ID, target, s.Amount, s.IntervalValue, intervalNoun(s.IntervalType),
		bar, progress, s.PointsPaid, s.TotalPoints,
	)
}
