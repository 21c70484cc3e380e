package organization

import "context"

// Repository defines persistence operations for organizations and their
// membership. Membership changes here never touch existing schedule
// snapshots; those are frozen at schedule creation.
type Repository interface {
	// Create persists the organization and adds the owner as its first
	// member in one transaction.
	Create(ctx context.Context, org *Organization) error

	GetByID(ctx context.Context, id int64) (*Organization, error)
	GetByName(ctx context.Context, name string) (*Organization, error)

	// ListByUser returns organizations the user owns or is a member of.
	ListByUser(ctx context.Context, userID string) ([]*Organization, error)

	AddMember(ctx context.Context, orgID int64, userID string) error
	RemoveMember(ctx context.Context, orgID int64, userID string) error
	IsMember(ctx context.Context, orgID int64, userID string) (bool, error)
	Members(ctx context.Context, orgID int64) ([]*Member, error)

	// TransferOwnership changes the owner. The new owner must already be a
	// member; callers enforce that rule.
	TransferOwnership(ctx context.Context, orgID int64, newOwnerID string) error
}
