package schedule

import (
	"context"
	"time"
)

// Stats is an aggregate snapshot used by the reconciliation job.
type Stats struct {
	ActiveSchedules    int
	ExhaustedSchedules int
	PointsDistributed  int64
}

// Repository defines the durable store for schedules and their recipient
// snapshots. It is the only shared mutable state in the system; every
// mutating operation is atomic with respect to the others for the same
// schedule ID.
type Repository interface {
	// Create persists a schedule together with its recipient snapshot in a
	// single transaction. The snapshot is frozen: later organization
	// membership changes do not affect it.
	Create(ctx context.Context, s *Schedule, recipientIDs []string) error

	GetByID(ctx context.Context, id int64) (*Schedule, error)

	// ListByCreator returns all schedules created by the given user,
	// newest first.
	ListByCreator(ctx context.Context, createdBy string) ([]*Schedule, error)

	// DueSchedules returns every non-exhausted schedule for which a full
	// interval has elapsed since LastPaidAt, evaluated against now. The
	// result is read in one statement so a scan never sees a schedule twice.
	DueSchedules(ctx context.Context, now time.Time) ([]*Schedule, error)

	// Members returns the frozen recipient snapshot of a schedule.
	Members(ctx context.Context, scheduleID int64) ([]*Member, error)

	// CommitTick applies one tick's result: points_paid += amountDistributed
	// and last_paid_at = paidAt, but only if the stored points_paid still
	// equals expectedPointsPaid. If the row changed underneath the caller
	// (or was cancelled), ErrStaleCommit is returned and nothing is written.
	CommitTick(ctx context.Context, scheduleID int64, amountDistributed int64, paidAt time.Time, expectedPointsPaid int64) error

	// Cancel deletes the schedule and its recipient snapshot atomically.
	Cancel(ctx context.Context, scheduleID int64) error

	// ShortestActiveInterval returns the smallest interval among
	// non-exhausted schedules (months approximated as 30 days), or 0 when
	// none exist. Used to tune the engine's scan sleep.
	ShortestActiveInterval(ctx context.Context) (time.Duration, error)

	Stats(ctx context.Context) (*Stats, error)

	// PurgeExhaustedBefore deletes exhausted schedules whose last payment is
	// older than the cutoff, returning how many were removed.
	PurgeExhaustedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
