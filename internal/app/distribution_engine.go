package app

import (
	"context"
	"sync"
	"time"

	"github.com/MallardLabs/celeris/internal/domain/ledger"
	"github.com/MallardLabs/celeris/internal/domain/notify"
	"github.com/MallardLabs/celeris/internal/domain/schedule"
	idb "github.com/MallardLabs/celeris/internal/infra/database"

	"github.com/sirupsen/logrus"
)

const (
	defaultCreditTimeout   = 10 * time.Second
	defaultDispatchTimeout = 10 * time.Second
)

// DistributionEngine is the scheduler core: a continuously running polling
// loop that scans for due schedules, splits each tick across the schedule's
// recipient snapshot, credits recipients through the ledger, and commits the
// tick back to the store with compare-and-swap semantics.
//
// The engine keeps no state of its own between scans; every decision is
// derived from the store, so a restart can neither replay nor skip ticks.
type DistributionEngine struct {
	schedules  schedule.Repository
	ledger     ledger.Client
	dispatcher notify.Dispatcher
	logger     *logrus.Entry

	minSleep      time.Duration
	maxSleep      time.Duration
	creditTimeout time.Duration

	// dispatchWG tracks in-flight fire-and-forget receipt deliveries so
	// tests (and shutdown) can wait for them.
	dispatchWG sync.WaitGroup

	now func() time.Time
}

func NewDistributionEngine(
	schedules schedule.Repository,
	ledgerClient ledger.Client,
	dispatcher notify.Dispatcher,
	logger *logrus.Entry,
	minSleep, maxSleep time.Duration,
) *DistributionEngine {
	if minSleep <= 0 {
		minSleep = 500 * time.Millisecond
	}
	if maxSleep < minSleep {
		maxSleep = minSleep
	}
	return &DistributionEngine{
		schedules:     schedules,
		ledger:        ledgerClient,
		dispatcher:    dispatcher,
		logger:        logger,
		minSleep:      minSleep,
		maxSleep:      maxSleep,
		creditTimeout: defaultCreditTimeout,
		now:           time.Now,
	}
}

// Run drives the scan loop until ctx is cancelled. A failing scan never
// stops the loop; store errors are logged and the next scan retries.
func (e *DistributionEngine) Run(ctx context.Context) {
	e.logger.Info("Distribution engine started")
	for {
		e.ScanOnce(ctx)

		sleep := e.nextSleep(ctx)
		select {
		case <-ctx.Done():
			e.dispatchWG.Wait()
			e.logger.Info("Distribution engine stopped")
			return
		case <-time.After(sleep):
		}
	}
}

// ScanOnce performs a single scan-evaluate-distribute-commit cycle. Due
// schedules are processed concurrently; they are independent units of work.
// The call returns only after every tick of this scan has finished, so ticks
// of the same schedule can never overlap within the engine.
func (e *DistributionEngine) ScanOnce(ctx context.Context) {
	now := e.now().UTC()

	due, err := e.schedules.DueSchedules(ctx, now)
	if err != nil {
		e.logger.WithError(err).Error("Failed to scan for due schedules; will retry next cycle")
		return
	}
	if len(due) == 0 {
		return
	}
	e.logger.WithField("due_count", len(due)).Debug("Processing due schedules")

	var wg sync.WaitGroup
	for _, s := range due {
		wg.Add(1)
		go func(s *schedule.Schedule) {
			defer wg.Done()
			e.processTick(ctx, s, now)
		}(s)
	}
	wg.Wait()
}

// processTick runs the tick state machine for one schedule:
// Evaluating -> Distributing -> Committing -> Committed | Aborted.
func (e *DistributionEngine) processTick(ctx context.Context, s *schedule.Schedule, now time.Time) {
	log := e.logger.WithField("schedule_id", s.ID)

	// Evaluating: the snapshot of points_paid taken here is the commit
	// expectation; a concurrent mutation makes the commit stale.
	expected := s.PointsPaid
	tickAmount := s.TickAmount()
	if tickAmount <= 0 {
		return
	}

	members, err := e.schedules.Members(ctx, s.ID)
	if err != nil {
		log.WithError(err).Error("Failed to load recipient snapshot; tick skipped")
		return
	}
	if len(members) == 0 {
		log.Warn("Schedule has no recipients; tick skipped")
		return
	}

	perRecipient := tickAmount / int64(len(members))
	if perRecipient == 0 {
		log.WithFields(logrus.Fields{"tick_amount": tickAmount, "recipients": len(members)}).
			Warn("Tick amount too small to split across recipients; tick skipped")
		return
	}

	// Distributing: each recipient is an isolated unit of work. Credits run
	// concurrently (independent ledger accounts); a failure affects only
	// that recipient, and the undelivered share stays in the pool.
	var mu sync.Mutex
	succeeded := make([]string, 0, len(members))

	var wg sync.WaitGroup
	for _, m := range members {
		wg.Add(1)
		go func(m *schedule.Member) {
			defer wg.Done()
			creditCtx, cancel := context.WithTimeout(ctx, e.creditTimeout)
			defer cancel()

			if err := e.ledger.Credit(creditCtx, m.UserID, perRecipient); err != nil {
				log.WithError(err).WithField("recipient", m.UserID).Warn("Recipient credit failed; will retry on next due tick")
				return
			}
			mu.Lock()
			succeeded = append(succeeded, m.UserID)
			mu.Unlock()
		}(m)
	}
	wg.Wait()

	distributed := perRecipient * int64(len(succeeded))
	if distributed == 0 {
		// Aborted: nothing left the pool, nothing is persisted, and the
		// next scan retries the whole tick.
		log.Warn("All recipient credits failed; tick aborted without state change")
		return
	}

	// Committing: compare-and-swap against the pre-distribution snapshot.
	err = e.schedules.CommitTick(ctx, s.ID, distributed, now, expected)
	if err == idb.ErrStaleCommit {
		// Concurrent tick or cancellation won the race. Credits already
		// issued are intentionally not clawed back: recipients are never
		// shorted at the cost of slight over-delivery in this rare case.
		log.Info("Tick commit was stale; discarding as no-op")
		return
	}
	if err != nil {
		log.WithError(err).Error("Failed to commit tick")
		return
	}

	log.WithFields(logrus.Fields{
		"distributed": distributed,
		"recipients":  len(succeeded),
		"points_paid": expected + distributed,
	}).Info("Tick committed")

	// Committed: fire-and-forget receipts, one per successful recipient.
	for _, userID := range succeeded {
		receipt := notify.Receipt{
			RecipientID:   userID,
			ScheduleID:    s.ID,
			Amount:        perRecipient,
			PointsPaid:    expected + distributed,
			TotalPoints:   s.TotalPoints,
			IntervalValue: s.IntervalValue,
			IntervalType:  s.IntervalType,
			Organization:  s.IsOrganization(),
		}
		e.dispatchWG.Add(1)
		go func(r notify.Receipt) {
			defer e.dispatchWG.Done()
			dispatchCtx, cancel := context.WithTimeout(context.Background(), defaultDispatchTimeout)
			defer cancel()
			if err := e.dispatcher.DispatchReceipt(dispatchCtx, r); err != nil {
				log.WithError(err).WithField("recipient", r.RecipientID).Warn("Receipt dispatch failed; dropped")
			}
		}(receipt)
	}
}

// nextSleep derives the pause before the next scan from the shortest
// interval among active schedules: sub-second when seconds-based schedules
// exist, up to maxSleep when nothing short is tracked.
func (e *DistributionEngine) nextSleep(ctx context.Context) time.Duration {
	shortest, err := e.schedules.ShortestActiveInterval(ctx)
	if err != nil {
		e.logger.WithError(err).Warn("Failed to determine shortest active interval; using max sleep")
		return e.maxSleep
	}
	if shortest <= 0 {
		return e.maxSleep
	}

	sleep := shortest / 2
	if sleep < e.minSleep {
		sleep = e.minSleep
	}
	if sleep > e.maxSleep {
		sleep = e.maxSleep
	}
	return sleep
}

// WaitForDispatches blocks until all in-flight receipt deliveries finish.
func (e *DistributionEngine) WaitForDispatches() {
	e.dispatchWG.Wait()
}
