package notify

import (
	"context"

	"github.com/MallardLabs/celeris/internal/domain/schedule"
)

// Receipt describes one successful per-recipient payment from a committed
// tick. It carries a snapshot of the schedule as of the commit so rendering
// never needs another store read.
type Receipt struct {
	RecipientID   string
	ScheduleID    int64
	Amount        int64 // points this recipient received this tick
	PointsPaid    int64 // schedule total after the commit
	TotalPoints   int64
	IntervalValue int
	IntervalType  schedule.IntervalType
	Organization  bool // true when the schedule pays an organization snapshot
}

// Dispatcher delivers payment receipts to recipients. Delivery is strictly
// best-effort: one attempt, and a failure must never affect ledger or
// schedule state.
type Dispatcher interface {
	DispatchReceipt(ctx context.Context, r Receipt) error
}
