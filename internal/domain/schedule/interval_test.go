package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseIntervalType(t *testing.T) {
	for _, raw := range []string{"s", "m", "h", "d", "mm"} {
		it, ok := ParseIntervalType(raw)
		require.True(t, ok, raw)
		require.Equal(t, IntervalType(raw), it)
	}
	for _, raw := range []string{"", "w", "y", "M", "sec"} {
		_, ok := ParseIntervalType(raw)
		require.False(t, ok, raw)
	}
}

func TestElapsedTicksFixedUnits(t *testing.T) {
	base := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		it      IntervalType
		value   int
		elapsed time.Duration
		want    int
	}{
		{name: "seconds not yet due", it: IntervalSeconds, value: 30, elapsed: 29 * time.Second, want: 0},
		{name: "seconds exactly due", it: IntervalSeconds, value: 30, elapsed: 30 * time.Second, want: 1},
		{name: "seconds multiple intervals", it: IntervalSeconds, value: 30, elapsed: 95 * time.Second, want: 3},
		{name: "minutes", it: IntervalMinutes, value: 5, elapsed: 11 * time.Minute, want: 2},
		{name: "hours", it: IntervalHours, value: 2, elapsed: 3 * time.Hour, want: 1},
		{name: "days", it: IntervalDays, value: 1, elapsed: 49 * time.Hour, want: 2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ElapsedTicks(tc.it, tc.value, base, base.Add(tc.elapsed)))
		})
	}
}

func TestElapsedTicksNeverDueAtCreationInstant(t *testing.T) {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	require.Equal(t, 0, ElapsedTicks(IntervalSeconds, 1, now, now))
	require.False(t, IsDue(IntervalSeconds, 1, now, now))
}

func TestElapsedTicksIgnoresInvalidInput(t *testing.T) {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	require.Equal(t, 0, ElapsedTicks(IntervalSeconds, 0, now.Add(-time.Hour), now))
	require.Equal(t, 0, ElapsedTicks(IntervalSeconds, -1, now.Add(-time.Hour), now))
	require.Equal(t, 0, ElapsedTicks(IntervalSeconds, 1, time.Time{}, now))
	require.Equal(t, 0, ElapsedTicks(IntervalSeconds, 1, now.Add(time.Hour), now))
}

func TestElapsedTicksCalendarMonths(t *testing.T) {
	cases := []struct {
		name  string
		value int
		last  time.Time
		now   time.Time
		want  int
	}{
		{
			name:  "same calendar month",
			value: 1,
			last:  time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
			now:   time.Date(2026, time.January, 31, 23, 59, 0, 0, time.UTC),
			want:  0,
		},
		{
			// Month boundaries count, not day-of-month distances: a payment on
			// January 31st is due again as soon as February starts.
			name:  "short month does not starve the schedule",
			value: 1,
			last:  time.Date(2026, time.January, 31, 10, 0, 0, 0, time.UTC),
			now:   time.Date(2026, time.February, 1, 0, 0, 1, 0, time.UTC),
			want:  1,
		},
		{
			name:  "two month interval half elapsed",
			value: 2,
			last:  time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC),
			now:   time.Date(2026, time.February, 20, 0, 0, 0, 0, time.UTC),
			want:  0,
		},
		{
			name:  "two month interval elapsed",
			value: 2,
			last:  time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC),
			now:   time.Date(2026, time.March, 20, 0, 0, 0, 0, time.UTC),
			want:  1,
		},
		{
			name:  "across year boundary",
			value: 1,
			last:  time.Date(2025, time.December, 5, 0, 0, 0, 0, time.UTC),
			now:   time.Date(2026, time.February, 5, 0, 0, 0, 0, time.UTC),
			want:  2,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ElapsedTicks(IntervalMonths, tc.value, tc.last, tc.now))
		})
	}
}

func TestApproximateUnit(t *testing.T) {
	require.Equal(t, time.Second, ApproximateUnit(IntervalSeconds))
	require.Equal(t, 24*time.Hour, ApproximateUnit(IntervalDays))
	require.Equal(t, 30*24*time.Hour, ApproximateUnit(IntervalMonths))
}

func TestTickAmountCappedByRemainingPool(t *testing.T) {
	s := &Schedule{Amount: 100, TotalPoints: 250, PointsPaid: 0}
	require.Equal(t, int64(100), s.TickAmount())

	s.PointsPaid = 200
	require.Equal(t, int64(50), s.TickAmount())
	require.False(t, s.Exhausted())

	s.PointsPaid = 250
	require.Equal(t, int64(0), s.TickAmount())
	require.True(t, s.Exhausted())
	require.Equal(t, int64(0), s.Remaining())
}
