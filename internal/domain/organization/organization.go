package organization

import "time"

// Organization groups users under an owner so that payment schedules can
// target all of its members at once.
type Organization struct {
	ID        int64
	Name      string
	OwnerID   string
	CreatedAt time.Time
}

// Member links a user to an organization.
type Member struct {
	ID             int64
	OrganizationID int64
	UserID         string
	JoinedAt       time.Time
}
