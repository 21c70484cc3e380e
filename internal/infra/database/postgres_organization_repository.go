package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/MallardLabs/celeris/internal/domain/organization"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Custom errors specific to the organization repository.
var ErrOrganizationNotFound = fmt.Errorf("organization not found")
var ErrDuplicateOrganizationName = fmt.Errorf("organization with this name already exists")
var ErrMemberNotFound = fmt.Errorf("organization member not found")
var ErrDuplicateMember = fmt.Errorf("user is already a member of this organization")

type PostgresOrganizationRepository struct {
	db *sql.DB
}

func NewPostgresOrganizationRepository(db *sql.DB) *PostgresOrganizationRepository {
	return &PostgresOrganizationRepository{db: db}
}

func (r *PostgresOrganizationRepository) Create(ctx context.Context, org *organization.Organization) error {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for organization create: %w", err)
	}
	defer txn.Rollback() // Rollback if not committed

	query := `INSERT INTO organizations (name, owner_id)
               VALUES ($1, $2)
               RETURNING id, created_at`
	err = txn.QueryRowContext(ctx, query, org.Name, org.OwnerID).Scan(&org.ID, &org.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "organizations_name_key") {
			return ErrDuplicateOrganizationName
		}
		return fmt.Errorf("error creating organization: %w", err)
	}

	// The owner is always the first member.
	if _, err := txn.ExecContext(ctx,
		`INSERT INTO organization_members (organization_id, user_id, joined_at) VALUES ($1, $2, NOW())`,
		org.ID, org.OwnerID); err != nil {
		return fmt.Errorf("error adding owner as organization member: %w", err)
	}

	return txn.Commit()
}

func (r *PostgresOrganizationRepository) GetByID(ctx context.Context, id int64) (*organization.Organization, error) {
	query := `SELECT id, name, owner_id, created_at FROM organizations WHERE id = $1`
	org := &organization.Organization{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&org.ID, &org.Name, &org.OwnerID, &org.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("error getting organization by ID: %w", err)
	}
	return org, nil
}

func (r *PostgresOrganizationRepository) GetByName(ctx context.Context, name string) (*organization.Organization, error) {
	query := `SELECT id, name, owner_id, created_at FROM organizations WHERE name = $1`
	org := &organization.Organization{}
	err := r.db.QueryRowContext(ctx, query, name).Scan(&org.ID, &org.Name, &org.OwnerID, &org.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("error getting organization by name: %w", err)
	}
	return org, nil
}

func (r *PostgresOrganizationRepository) ListByUser(ctx context.Context, userID string) ([]*organization.Organization, error) {
	query := `SELECT DISTINCT o.id, o.name, o.owner_id, o.created_at
               FROM organizations o
               LEFT JOIN organization_members m ON m.organization_id = o.id
               WHERE o.owner_id = $1 OR m.user_id = $1
               ORDER BY o.id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing organizations for user: %w", err)
	}
	defer rows.Close()

	orgs := make([]*organization.Organization, 0)
	for rows.Next() {
		org := &organization.Organization{}
		if err := rows.Scan(&org.ID, &org.Name, &org.OwnerID, &org.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning organization: %w", err)
		}
		orgs = append(orgs, org)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating organizations: %w", err)
	}
	return orgs, nil
}

func (r *PostgresOrganizationRepository) AddMember(ctx context.Context, orgID int64, userID string) error {
	query := `INSERT INTO organization_members (organization_id, user_id, joined_at) VALUES ($1, $2, NOW())`
	if _, err := r.db.ExecContext(ctx, query, orgID, userID); err != nil {
		if strings.Contains(err.Error(), "organization_members_org_user_unique") {
			return ErrDuplicateMember
		}
		return fmt.Errorf("error adding organization member: %w", err)
	}
	return nil
}

func (r *PostgresOrganizationRepository) RemoveMember(ctx context.Context, orgID int64, userID string) error {
	query := `DELETE FROM organization_members WHERE organization_id = $1 AND user_id = $2`
	res, err := r.db.ExecContext(ctx, query, orgID, userID)
	if err != nil {
		return fmt.Errorf("error removing organization member: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading member removal result: %w", err)
	}
	if affected == 0 {
		return ErrMemberNotFound
	}
	return nil
}

func (r *PostgresOrganizationRepository) IsMember(ctx context.Context, orgID int64, userID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM organization_members WHERE organization_id = $1 AND user_id = $2)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, orgID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("error checking organization membership: %w", err)
	}
	return exists, nil
}

func (r *PostgresOrganizationRepository) Members(ctx context.Context, orgID int64) ([]*organization.Member, error) {
	query := `SELECT id, organization_id, user_id, joined_at FROM organization_members
               WHERE organization_id = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("error listing organization members: %w", err)
	}
	defer rows.Close()

	members := make([]*organization.Member, 0)
	for rows.Next() {
		m := &organization.Member{}
		if err := rows.Scan(&m.ID, &m.OrganizationID, &m.UserID, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("error scanning organization member: %w", err)
		}
		members = append(members, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating organization members: %w", err)
	}
	return members, nil
}

func (r *PostgresOrganizationRepository) TransferOwnership(ctx context.Context, orgID int64, newOwnerID string) error {
	query := `UPDATE organizations SET owner_id = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, orgID, newOwnerID)
	if err != nil {
		return fmt.Errorf("error transferring organization ownership: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading ownership transfer result: %w", err)
	}
	if affected == 0 {
		return ErrOrganizationNotFound
	}
	return nil
}
