package schedule

import "time"

// unitDuration returns the fixed duration of one interval unit. Months have
// no fixed duration and return 0; they use calendar arithmetic instead.
func unitDuration(it IntervalType) time.Duration {
	switch it {
	case IntervalSeconds:
		return time.Second
	case IntervalMinutes:
		return time.Minute
	case IntervalHours:
		return time.Hour
	case IntervalDays:
		return 24 * time.Hour
	default:
		return 0
	}
}

// ElapsedTicks returns how many full intervals have passed between lastPaidAt
// and now. Month intervals count calendar months ((year*12+month) difference),
// because month lengths vary; all other units use fixed-duration division.
// The result is never negative.
func ElapsedTicks(it IntervalType, value int, lastPaidAt, now time.Time) int {
	if value <= 0 || lastPaidAt.IsZero() || !now.After(lastPaidAt) {
		return 0
	}

	if it == IntervalMonths {
		months := (now.Year()*12 + int(now.Month())) - (lastPaidAt.Year()*12 + int(lastPaidAt.Month()))
		if months <= 0 {
			return 0
		}
		return months / value
	}

	unit := unitDuration(it)
	if unit == 0 {
		return 0
	}
	return int(now.Sub(lastPaidAt) / (unit * time.Duration(value)))
}

// IsDue reports whether at least one full interval has elapsed since
// lastPaidAt. A schedule is never due at the instant it was created:
// LastPaidAt is initialised to the creation time, so the first scheduled
// tick happens one full interval after the initial payment.
func IsDue(it IntervalType, value int, lastPaidAt, now time.Time) bool {
	return ElapsedTicks(it, value, lastPaidAt, now) >= 1
}

// ApproximateUnit returns a fixed duration usable for poll-frequency
// estimation. Months are approximated as 30 days; the approximation is only
// used to pick a scan sleep, never to decide whether a tick is due.
func ApproximateUnit(it IntervalType) time.Duration {
	if it == IntervalMonths {
		return 30 * 24 * time.Hour
	}
	return unitDuration(it)
}
