package app

import (
	"context"
	"fmt"

	"github.com/MallardLabs/celeris/internal/domain/ledger"

	"github.com/sirupsen/logrus"
)

// Custom application-level errors for the economy service.
var ErrAdminNotAuthorized = fmt.Errorf("performing user is not authorized as an admin")
var ErrSelfTip = fmt.Errorf("cannot tip yourself")
var ErrNonPositiveAmount = fmt.Errorf("amount must be positive")
var ErrInsufficientBalance = ledger.ErrInsufficientBalance

// EconomyService wraps direct ledger operations behind the command surface:
// balance checks, tips between users and admin adjustments.
type EconomyService struct {
	ledger  ledger.Client
	adminID string
	logger  *logrus.Entry
}

func NewEconomyService(ledgerClient ledger.Client, adminID string, logger *logrus.Entry) *EconomyService {
	return &EconomyService{ledger: ledgerClient, adminID: adminID, logger: logger}
}

func (s *EconomyService) Balance(ctx context.Context, userID string) (int64, error) {
	return s.ledger.GetBalance(ctx, userID)
}

// Tip transfers points between two users. The balance pre-check keeps the
// common failure cheap; the transfer itself still fails atomically if the
// balance changed in between.
func (s *EconomyService) Tip(ctx context.Context, fromID, toID string, amount int64) error {
	if amount <= 0 {
		return ErrNonPositiveAmount
	}
	if fromID == toID {
		return ErrSelfTip
	}

	balance, err := s.ledger.GetBalance(ctx, fromID)
	if err != nil {
		return fmt.Errorf("failed to check sender balance: %w", err)
	}
	if balance < amount {
		return ErrInsufficientBalance
	}

	if err := s.ledger.Transfer(ctx, fromID, toID, amount); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{"from": fromID, "to": toID, "amount": amount}).Info("Tip transferred")
	return nil
}

// AddPoints credits a user's balance. Admin only.
func (s *EconomyService) AddPoints(ctx context.Context, performingUserID, userID string, amount int64) error {
	if performingUserID != s.adminID {
		return ErrAdminNotAuthorized
	}
	if amount <= 0 {
		return ErrNonPositiveAmount
	}
	if err := s.ledger.Credit(ctx, userID, amount); err != nil {
		return fmt.Errorf("failed to add points: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"user_id": userID, "amount": amount}).Info("Points added by admin")
	return nil
}

// RemovePoints debits a user's balance. Admin only; fails when the user does
// not hold the requested amount.
func (s *EconomyService) RemovePoints(ctx context.Context, performingUserID, userID string, amount int64) error {
	if performingUserID != s.adminID {
		return ErrAdminNotAuthorized
	}
	if amount <= 0 {
		return ErrNonPositiveAmount
	}
	if err := s.ledger.Debit(ctx, userID, amount); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{"user_id": userID, "amount": amount}).Info("Points removed by admin")
	return nil
}
