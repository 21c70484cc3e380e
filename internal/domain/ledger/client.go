package ledger

import (
	"context"
	"errors"
)

// ErrInsufficientBalance is returned by Debit and Transfer when the source
// account does not hold the requested amount.
var ErrInsufficientBalance = errors.New("insufficient points balance")

// Client abstracts the external points ledger service. Implementations must
// be safe for concurrent use across different member IDs; the ledger service
// itself serialises operations against the same account.
//
// Credit, Debit and Transfer are only retried by implementations that attach
// a request-idempotency token, so a retry can never double-apply.
type Client interface {
	GetBalance(ctx context.Context, memberID string) (int64, error)
	Credit(ctx context.Context, memberID string, amount int64) error
	Debit(ctx context.Context, memberID string, amount int64) error
	// Transfer moves amount between two accounts atomically: either both
	// sides apply or neither does.
	Transfer(ctx context.Context, fromID, toID string, amount int64) error
}
