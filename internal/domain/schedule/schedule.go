package schedule

import (
	"database/sql"
	"time"
)

// IntervalType is the time unit of a schedule's payment interval.
type IntervalType string

const (
	IntervalSeconds IntervalType = "s"
	IntervalMinutes IntervalType = "m"
	IntervalHours   IntervalType = "h"
	IntervalDays    IntervalType = "d"
	IntervalMonths  IntervalType = "mm"
)

// ParseIntervalType validates a raw interval unit string.
func ParseIntervalType(raw string) (IntervalType, bool) {
	switch IntervalType(raw) {
	case IntervalSeconds, IntervalMinutes, IntervalHours, IntervalDays, IntervalMonths:
		return IntervalType(raw), true
	}
	return "", false
}

// Schedule is one unit of recurring points distribution. Exactly one of
// OrganizationID / UserID is set: a schedule pays either a single user or
// the member snapshot of an organization, never both.
type Schedule struct {
	ID             int64
	OrganizationID sql.NullInt64
	UserID         sql.NullString
	Amount         int64 // points per tick
	IntervalType   IntervalType
	IntervalValue  int
	TotalPoints    int64 // the pool this schedule may distribute in total
	PointsPaid     int64
	LastPaidAt     time.Time
	CreatedBy      string
	CreatedAt      time.Time
}

// Member is one entry of a schedule's frozen recipient snapshot.
type Member struct {
	ID         int64
	ScheduleID int64
	UserID     string
	JoinedAt   time.Time
}

// IsOrganization reports whether the schedule pays an organization snapshot.
func (s *Schedule) IsOrganization() bool {
	return s.OrganizationID.Valid
}

// Remaining returns the undistributed part of the pool.
func (s *Schedule) Remaining() int64 {
	if r := s.TotalPoints - s.PointsPaid; r > 0 {
		return r
	}
	return 0
}

// Exhausted reports whether the schedule has distributed its full pool.
func (s *Schedule) Exhausted() bool {
	return s.PointsPaid >= s.TotalPoints
}

// TickAmount is the amount the next tick should distribute: the per-tick
// amount, capped by what is left in the pool.
func (s *Schedule) TickAmount() int64 {
	remaining := s.Remaining()
	if s.Amount < remaining {
		return s.Amount
	}
	return remaining
}
