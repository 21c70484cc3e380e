package scheduler

import (
	"context"
	"time"

	"github.com/MallardLabs/celeris/internal/domain/schedule"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// ReconciliationScheduler runs the periodic maintenance job: it logs
// distribution aggregates and purges schedules that exhausted their pool
// longer ago than the retention window. The distribution engine itself runs
// its own polling loop; this cron only covers housekeeping.
type ReconciliationScheduler struct {
	cronEngine *cron.Cron
	schedules  schedule.Repository
	logger     *logrus.Entry
	cronSpec   string
	retention  time.Duration
}

func NewReconciliationScheduler(
	schedules schedule.Repository,
	logger *logrus.Entry,
	cronSpec string, // e.g., "0 3 * * *" (03:00 daily)
	retention time.Duration,
) *ReconciliationScheduler {
	return &ReconciliationScheduler{
		cronEngine: cron.New(cron.WithLocation(time.Local)), // Use server's local time for cron
		schedules:  schedules,
		logger:     logger,
		cronSpec:   cronSpec,
		retention:  retention,
	}
}

func (s *ReconciliationScheduler) Start() error {
	_, err := s.cronEngine.AddFunc(s.cronSpec, func() {
		s.logger.Info("Reconciliation job triggered")
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		s.runOnce(ctx)
	})
	if err != nil {
		return err
	}

	s.cronEngine.Start()
	s.logger.WithField("cron_spec", s.cronSpec).Info("Reconciliation scheduler started")
	return nil
}

func (s *ReconciliationScheduler) runOnce(ctx context.Context) {
	stats, err := s.schedules.Stats(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Reconciliation: failed to read schedule stats")
	} else {
		s.logger.WithFields(logrus.Fields{
			"active_schedules":    stats.ActiveSchedules,
			"exhausted_schedules": stats.ExhaustedSchedules,
			"points_distributed":  stats.PointsDistributed,
		}).Info("Reconciliation: schedule stats")
	}

	cutoff := time.Now().UTC().Add(-s.retention)
	purged, err := s.schedules.PurgeExhaustedBefore(ctx, cutoff)
	if err != nil {
		s.logger.WithError(err).Error("Reconciliation: failed to purge exhausted schedules")
		return
	}
	if purged > 0 {
		s.logger.WithField("purged", purged).Info("Reconciliation: purged exhausted schedules")
	}
}

func (s *ReconciliationScheduler) Stop() {
	s.logger.Info("Stopping reconciliation scheduler...")
	ctx := s.cronEngine.Stop() // Waits for a running job to finish.
	<-ctx.Done()
	s.logger.Info("Reconciliation scheduler stopped")
}
