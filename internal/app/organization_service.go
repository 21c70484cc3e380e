package app

import (
	"context"
	"fmt"

	"github.com/MallardLabs/celeris/internal/domain/organization"
	idb "github.com/MallardLabs/celeris/internal/infra/database"

	"github.com/sirupsen/logrus"
)

// Custom application-level errors for the organization service.
var ErrOrganizationExists = fmt.Errorf("organization with this name already exists")
var ErrNotOrgOwner = fmt.Errorf("performing user does not own this organization")
var ErrAlreadyMember = fmt.Errorf("user is already a member of this organization")
var ErrNotMember = fmt.Errorf("user is not a member of this organization")
var ErrCannotRemoveOwner = fmt.Errorf("the organization owner cannot be removed from it")

// OrganizationService handles organization lifecycle and membership. Note
// that membership changes never touch existing schedule snapshots; those are
// frozen at schedule creation time.
type OrganizationService struct {
	orgs   organization.Repository
	logger *logrus.Entry
}

func NewOrganizationService(orgs organization.Repository, logger *logrus.Entry) *OrganizationService {
	return &OrganizationService{orgs: orgs, logger: logger}
}

// Create registers a new organization with a unique name; the owner becomes
// its first member.
func (s *OrganizationService) Create(ctx context.Context, name, ownerID string) (*organization.Organization, error) {
	_, err := s.orgs.GetByName(ctx, name)
	if err == nil { // Organization found, so the name is taken
		return nil, ErrOrganizationExists
	}
	if err != idb.ErrOrganizationNotFound {
		return nil, fmt.Errorf("failed to check existing organization: %w", err)
	}

	org := &organization.Organization{Name: name, OwnerID: ownerID}
	if err := s.orgs.Create(ctx, org); err != nil {
		if err == idb.ErrDuplicateOrganizationName {
			return nil, ErrOrganizationExists
		}
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"organization_id": org.ID, "owner_id": ownerID}).Info("Organization created")
	return org, nil
}

// AddMember adds a user to an organization owned by performingUserID.
func (s *OrganizationService) AddMember(ctx context.Context, orgName, performingUserID, userID string) error {
	org, err := s.ownedOrganization(ctx, orgName, performingUserID)
	if err != nil {
		return err
	}

	isMember, err := s.orgs.IsMember(ctx, org.ID, userID)
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if isMember {
		return ErrAlreadyMember
	}

	if err := s.orgs.AddMember(ctx, org.ID, userID); err != nil {
		if err == idb.ErrDuplicateMember {
			return ErrAlreadyMember
		}
		return fmt.Errorf("failed to add member: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"organization_id": org.ID, "user_id": userID}).Info("Organization member added")
	return nil
}

// RemoveMember removes a user from an organization owned by performingUserID.
// The owner cannot remove themselves; ownership must be transferred first.
func (s *OrganizationService) RemoveMember(ctx context.Context, orgName, performingUserID, userID string) error {
	org, err := s.ownedOrganization(ctx, orgName, performingUserID)
	if err != nil {
		return err
	}
	if userID == org.OwnerID {
		return ErrCannotRemoveOwner
	}

	if err := s.orgs.RemoveMember(ctx, org.ID, userID); err != nil {
		if err == idb.ErrMemberNotFound {
			return ErrNotMember
		}
		return fmt.Errorf("failed to remove member: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"organization_id": org.ID, "user_id": userID}).Info("Organization member removed")
	return nil
}

// TransferOwnership hands the organization to an existing member.
func (s *OrganizationService) TransferOwnership(ctx context.Context, orgName, performingUserID, newOwnerID string) error {
	org, err := s.ownedOrganization(ctx, orgName, performingUserID)
	if err != nil {
		return err
	}

	isMember, err := s.orgs.IsMember(ctx, org.ID, newOwnerID)
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if !isMember {
		return ErrNotMember
	}

	if err := s.orgs.TransferOwnership(ctx, org.ID, newOwnerID); err != nil {
		return fmt.Errorf("failed to transfer ownership: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"organization_id": org.ID, "new_owner": newOwnerID}).Info("Organization ownership transferred")
	return nil
}

// ListForUser returns organizations the user owns or belongs to.
func (s *OrganizationService) ListForUser(ctx context.Context, userID string) ([]*organization.Organization, error) {
	return s.orgs.ListByUser(ctx, userID)
}

// Members returns the current membership of an organization.
func (s *OrganizationService) Members(ctx context.Context, orgID int64) ([]*organization.Member, error) {
	return s.orgs.Members(ctx, orgID)
}

func (s *OrganizationService) ownedOrganization(ctx context.Context, orgName, performingUserID string) (*organization.Organization, error) {
	org, err := s.orgs.GetByName(ctx, orgName)
	if err != nil {
		return nil, err
	}
	if org.OwnerID != performingUserID {
		return nil, ErrNotOrgOwner
	}
	return org, nil
}
