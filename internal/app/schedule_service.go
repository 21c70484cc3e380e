package app

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/MallardLabs/celeris/internal/domain/ledger"
	"github.com/MallardLabs/celeris/internal/domain/organization"
	"github.com/MallardLabs/celeris/internal/domain/schedule"
	idb "github.com/MallardLabs/celeris/internal/infra/database"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// Custom application-level errors for the schedule service.
var ErrTotalBelowAmount = fmt.Errorf("total points must be greater than or equal to amount per payment")
var ErrUnknownIntervalType = fmt.Errorf("unknown interval type: valid types are s, m, h, d, mm")
var ErrNotScheduleOwner = fmt.Errorf("only the schedule creator may cancel it")
var ErrNotOrganizationOwner = fmt.Errorf("only the organization owner may create schedules for it")
var ErrNoRecipients = fmt.Errorf("organization has no members to pay")

// CreateScheduleParams carries validated user input for a new schedule.
// TargetUserID and OrganizationName are mutually exclusive; exactly one must
// be set.
type CreateScheduleParams struct {
	TargetUserID     string `validate:"required_without=OrganizationName,excluded_with=OrganizationName"`
	OrganizationName string `validate:"required_without=TargetUserID"`
	Amount           int64  `validate:"required,gt=0"`
	IntervalValue    int    `validate:"required,gt=0"`
	IntervalType     string `validate:"required"`
	TotalPoints      int64  `validate:"required,gt=0"`
	CreatedBy        string `validate:"required"`
}

// InitialPaymentResult reports how the creation-time payment went.
type InitialPaymentResult struct {
	Recipients   int
	Succeeded    int
	PerRecipient int64
}

// ScheduleService handles schedule creation, listing and cancellation. The
// background engine never goes through this service; it owns only the
// command-facing lifecycle.
type ScheduleService struct {
	schedules schedule.Repository
	orgs      organization.Repository
	ledger    ledger.Client
	validate  *validator.Validate
	logger    *logrus.Entry
}

func NewScheduleService(
	schedules schedule.Repository,
	orgs organization.Repository,
	ledgerClient ledger.Client,
	logger *logrus.Entry,
) *ScheduleService {
	return &ScheduleService{
		schedules: schedules,
		orgs:      orgs,
		ledger:    ledgerClient,
		validate:  validator.New(),
		logger:    logger,
	}
}

// Create validates the parameters, persists the schedule with its frozen
// recipient snapshot, and makes the initial payment. LastPaidAt is set to
// the creation time, so the first engine tick comes one full interval later.
func (s *ScheduleService) Create(ctx context.Context, p CreateScheduleParams) (*schedule.Schedule, *InitialPaymentResult, error) {
	if err := s.validate.Struct(p); err != nil {
		return nil, nil, fmt.Errorf("invalid schedule parameters: %w", err)
	}
	intervalType, ok := schedule.ParseIntervalType(p.IntervalType)
	if !ok {
		return nil, nil, ErrUnknownIntervalType
	}
	if p.TotalPoints < p.Amount {
		return nil, nil, ErrTotalBelowAmount
	}

	newSchedule := &schedule.Schedule{
		Amount:        p.Amount,
		IntervalType:  intervalType,
		IntervalValue: p.IntervalValue,
		TotalPoints:   p.TotalPoints,
		CreatedBy:     p.CreatedBy,
		LastPaidAt:    time.Now().UTC(),
	}

	var recipientIDs []string
	if p.OrganizationName != "" {
		org, err := s.orgs.GetByName(ctx, p.OrganizationName)
		if err != nil {
			return nil, nil, err
		}
		if org.OwnerID != p.CreatedBy {
			return nil, nil, ErrNotOrganizationOwner
		}
		members, err := s.orgs.Members(ctx, org.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load organization members: %w", err)
		}
		if len(members) == 0 {
			return nil, nil, ErrNoRecipients
		}
		// Snapshot is frozen here; later membership changes don't apply.
		for _, m := range members {
			recipientIDs = append(recipientIDs, m.UserID)
		}
		newSchedule.OrganizationID = sql.NullInt64{Int64: org.ID, Valid: true}
	} else {
		recipientIDs = []string{p.TargetUserID}
		newSchedule.UserID = sql.NullString{String: p.TargetUserID, Valid: true}
	}

	if err := s.schedules.Create(ctx, newSchedule, recipientIDs); err != nil {
		return nil, nil, fmt.Errorf("failed to create payment schedule: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"schedule_id": newSchedule.ID,
		"recipients":  len(recipientIDs),
		"created_by":  p.CreatedBy,
	}).Info("Payment schedule created")

	initial := s.makeInitialPayment(ctx, newSchedule, recipientIDs)
	return newSchedule, initial, nil
}

// makeInitialPayment distributes the first per-tick amount at creation time,
// outside the engine. It follows the same split and commit rules as an
// engine tick, so the pool accounting stays uniform.
func (s *ScheduleService) makeInitialPayment(ctx context.Context, sched *schedule.Schedule, recipientIDs []string) *InitialPaymentResult {
	perRecipient := sched.TickAmount() / int64(len(recipientIDs))
	result := &InitialPaymentResult{Recipients: len(recipientIDs), PerRecipient: perRecipient}
	if perRecipient == 0 {
		s.logger.WithField("schedule_id", sched.ID).Warn("Initial payment amount too small to split; skipped")
		return result
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, userID := range recipientIDs {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			if err := s.ledger.Credit(ctx, userID, perRecipient); err != nil {
				s.logger.WithError(err).WithFields(logrus.Fields{
					"schedule_id": sched.ID,
					"recipient":   userID,
				}).Warn("Initial payment credit failed")
				return
			}
			mu.Lock()
			result.Succeeded++
			mu.Unlock()
		}(userID)
	}
	wg.Wait()

	distributed := perRecipient * int64(result.Succeeded)
	if distributed == 0 {
		return result
	}

	if err := s.schedules.CommitTick(ctx, sched.ID, distributed, sched.LastPaidAt, 0); err != nil {
		s.logger.WithError(err).WithField("schedule_id", sched.ID).Error("Failed to record initial payment")
		return result
	}
	sched.PointsPaid = distributed
	return result
}

// Cancel deletes a schedule. Only the creator may cancel; an in-flight tick
// racing this call is resolved by the store (its commit turns stale).
// Already-distributed points are never clawed back.
func (s *ScheduleService) Cancel(ctx context.Context, scheduleID int64, requestedBy string) error {
	sched, err := s.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return err
	}
	if sched.CreatedBy != requestedBy {
		return ErrNotScheduleOwner
	}
	if err := s.schedules.Cancel(ctx, scheduleID); err != nil {
		if err == idb.ErrScheduleNotFound {
			// Lost a race with another cancel; the outcome is the same.
			return nil
		}
		return fmt.Errorf("failed to cancel schedule %d: %w", scheduleID, err)
	}
	s.logger.WithFields(logrus.Fields{
		"schedule_id":  scheduleID,
		"requested_by": requestedBy,
	}).Info("Payment schedule cancelled")
	return nil
}

// ListByCreator returns the schedules a user created, newest first.
func (s *ScheduleService) ListByCreator(ctx context.Context, createdBy string) ([]*schedule.Schedule, error) {
	return s.schedules.ListByCreator(ctx, createdBy)
}
