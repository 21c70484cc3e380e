package app

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/MallardLabs/celeris/internal/domain/notify"
	"github.com/MallardLabs/celeris/internal/domain/organization"
	"github.com/MallardLabs/celeris/internal/domain/schedule"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l.WithField("component", "test")
}

type commitCall struct {
	ScheduleID int64
	Amount     int64
	PaidAt     time.Time
	Expected   int64
}

type fakeScheduleRepo struct {
	mu sync.Mutex

	createFn   func(ctx context.Context, s *schedule.Schedule, recipientIDs []string) error
	getByIDFn  func(ctx context.Context, id int64) (*schedule.Schedule, error)
	listFn     func(ctx context.Context, createdBy string) ([]*schedule.Schedule, error)
	dueFn      func(ctx context.Context, now time.Time) ([]*schedule.Schedule, error)
	membersFn  func(ctx context.Context, scheduleID int64) ([]*schedule.Member, error)
	commitFn   func(ctx context.Context, scheduleID, amountDistributed int64, paidAt time.Time, expectedPointsPaid int64) error
	cancelFn   func(ctx context.Context, scheduleID int64) error
	shortestFn func(ctx context.Context) (time.Duration, error)

	commits []commitCall
	cancels []int64
}

func (f *fakeScheduleRepo) Create(ctx context.Context, s *schedule.Schedule, recipientIDs []string) error {
	if f.createFn != nil {
		return f.createFn(ctx, s, recipientIDs)
	}
	return nil
}

func (f *fakeScheduleRepo) GetByID(ctx context.Context, id int64) (*schedule.Schedule, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (f *fakeScheduleRepo) ListByCreator(ctx context.Context, createdBy string) ([]*schedule.Schedule, error) {
	if f.listFn != nil {
		return f.listFn(ctx, createdBy)
	}
	return nil, nil
}

func (f *fakeScheduleRepo) DueSchedules(ctx context.Context, now time.Time) ([]*schedule.Schedule, error) {
	if f.dueFn != nil {
		return f.dueFn(ctx, now)
	}
	return nil, nil
}

func (f *fakeScheduleRepo) Members(ctx context.Context, scheduleID int64) ([]*schedule.Member, error) {
	if f.membersFn != nil {
		return f.membersFn(ctx, scheduleID)
	}
	return nil, nil
}

func (f *fakeScheduleRepo) CommitTick(ctx context.Context, scheduleID, amountDistributed int64, paidAt time.Time, expectedPointsPaid int64) error {
	f.mu.Lock()
	f.commits = append(f.commits, commitCall{
		ScheduleID: scheduleID,
		Amount:     amountDistributed,
		PaidAt:     paidAt,
		Expected:   expectedPointsPaid,
	})
	f.mu.Unlock()
	if f.commitFn != nil {
		return f.commitFn(ctx, scheduleID, amountDistributed, paidAt, expectedPointsPaid)
	}
	return nil
}

func (f *fakeScheduleRepo) Cancel(ctx context.Context, scheduleID int64) error {
	f.mu.Lock()
	f.cancels = append(f.cancels, scheduleID)
	f.mu.Unlock()
	if f.cancelFn != nil {
		return f.cancelFn(ctx, scheduleID)
	}
	return nil
}

func (f *fakeScheduleRepo) ShortestActiveInterval(ctx context.Context) (time.Duration, error) {
	if f.shortestFn != nil {
		return f.shortestFn(ctx)
	}
	return 0, nil
}

func (f *fakeScheduleRepo) Stats(ctx context.Context) (*schedule.Stats, error) {
	return &schedule.Stats{}, nil
}

func (f *fakeScheduleRepo) PurgeExhaustedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeScheduleRepo) committed() []commitCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]commitCall(nil), f.commits...)
}

type creditCall struct {
	MemberID string
	Amount   int64
}

type fakeLedger struct {
	mu sync.Mutex

	balanceFn  func(ctx context.Context, memberID string) (int64, error)
	creditFn   func(ctx context.Context, memberID string, amount int64) error
	debitFn    func(ctx context.Context, memberID string, amount int64) error
	transferFn func(ctx context.Context, fromID, toID string, amount int64) error

	credits   []creditCall
	transfers []string
}

func (f *fakeLedger) GetBalance(ctx context.Context, memberID string) (int64, error) {
	if f.balanceFn != nil {
		return f.balanceFn(ctx, memberID)
	}
	return 0, nil
}

func (f *fakeLedger) Credit(ctx context.Context, memberID string, amount int64) error {
	if f.creditFn != nil {
		if err := f.creditFn(ctx, memberID, amount); err != nil {
			return err
		}
	}
	f.mu.Lock()
	f.credits = append(f.credits, creditCall{MemberID: memberID, Amount: amount})
	f.mu.Unlock()
	return nil
}

func (f *fakeLedger) Debit(ctx context.Context, memberID string, amount int64) error {
	if f.debitFn != nil {
		return f.debitFn(ctx, memberID, amount)
	}
	return nil
}

func (f *fakeLedger) Transfer(ctx context.Context, fromID, toID string, amount int64) error {
	if f.transferFn != nil {
		if err := f.transferFn(ctx, fromID, toID, amount); err != nil {
			return err
		}
	}
	f.mu.Lock()
	f.transfers = append(f.transfers, fromID+"->"+toID)
	f.mu.Unlock()
	return nil
}

func (f *fakeLedger) credited() []creditCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]creditCall(nil), f.credits...)
}

type fakeDispatcher struct {
	mu         sync.Mutex
	dispatchFn func(ctx context.Context, r notify.Receipt) error
	receipts   []notify.Receipt
}

func (f *fakeDispatcher) DispatchReceipt(ctx context.Context, r notify.Receipt) error {
	if f.dispatchFn != nil {
		if err := f.dispatchFn(ctx, r); err != nil {
			return err
		}
	}
	f.mu.Lock()
	f.receipts = append(f.receipts, r)
	f.mu.Unlock()
	return nil
}

func (f *fakeDispatcher) dispatched() []notify.Receipt {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notify.Receipt(nil), f.receipts...)
}

type fakeOrgRepo struct {
	createFn    func(ctx context.Context, org *organization.Organization) error
	getByNameFn func(ctx context.Context, name string) (*organization.Organization, error)
	listFn      func(ctx context.Context, userID string) ([]*organization.Organization, error)
	addFn       func(ctx context.Context, orgID int64, userID string) error
	removeFn    func(ctx context.Context, orgID int64, userID string) error
	isMemberFn  func(ctx context.Context, orgID int64, userID string) (bool, error)
	membersFn   func(ctx context.Context, orgID int64) ([]*organization.Member, error)
	transferFn  func(ctx context.Context, orgID int64, newOwnerID string) error
}

func (f *fakeOrgRepo) Create(ctx context.Context, org *organization.Organization) error {
	if f.createFn != nil {
		return f.createFn(ctx, org)
	}
	return nil
}

func (f *fakeOrgRepo) GetByID(ctx context.Context, id int64) (*organization.Organization, error) {
	return nil, nil
}

func (f *fakeOrgRepo) GetByName(ctx context.Context, name string) (*organization.Organization, error) {
	if f.getByNameFn != nil {
		return f.getByNameFn(ctx, name)
	}
	return nil, nil
}

func (f *fakeOrgRepo) ListByUser(ctx context.Context, userID string) ([]*organization.Organization, error) {
	if f.listFn != nil {
		return f.listFn(ctx, userID)
	}
	return nil, nil
}

func (f *fakeOrgRepo) AddMember(ctx context.Context, orgID int64, userID string) error {
	if f.addFn != nil {
		return f.addFn(ctx, orgID, userID)
	}
	return nil
}

func (f *fakeOrgRepo) RemoveMember(ctx context.Context, orgID int64, userID string) error {
	if f.removeFn != nil {
		return f.removeFn(ctx, orgID, userID)
	}
	return nil
}

func (f *fakeOrgRepo) IsMember(ctx context.Context, orgID int64, userID string) (bool, error) {
	if f.isMemberFn != nil {
		return f.isMemberFn(ctx, orgID, userID)
	}
	return false, nil
}

func (f *fakeOrgRepo) Members(ctx context.Context, orgID int64) ([]*organization.Member, error) {
	if f.membersFn != nil {
		return f.membersFn(ctx, orgID)
	}
	return nil, nil
}

func (f *fakeOrgRepo) TransferOwnership(ctx context.Context, orgID int64, newOwnerID string) error {
	if f.transferFn != nil {
		return f.transferFn(ctx, orgID, newOwnerID)
	}
	return nil
}
