package app

import (
	"context"
	"testing"

	"github.com/MallardLabs/celeris/internal/domain/organization"
	idb "github.com/MallardLabs/celeris/internal/infra/database"

	"github.com/stretchr/testify/require"
)

func ownedOrg() *organization.Organization {
	return &organization.Organization{ID: 3, Name: "dev team", OwnerID: "7"}
}

func TestOrganizationCreateRejectsDuplicateName(t *testing.T) {
	orgs := &fakeOrgRepo{}
	orgs.getByNameFn = func(context.Context, string) (*organization.Organization, error) {
		return ownedOrg(), nil
	}
	svc := NewOrganizationService(orgs, testLogger())

	_, err := svc.Create(context.Background(), "dev team", "7")
	require.ErrorIs(t, err, ErrOrganizationExists)
}

func TestOrganizationCreateAssignsOwner(t *testing.T) {
	orgs := &fakeOrgRepo{}
	orgs.getByNameFn = func(context.Context, string) (*organization.Organization, error) {
		return nil, idb.ErrOrganizationNotFound
	}
	orgs.createFn = func(_ context.Context, org *organization.Organization) error {
		org.ID = 3
		return nil
	}
	svc := NewOrganizationService(orgs, testLogger())

	org, err := svc.Create(context.Background(), "dev team", "7")
	require.NoError(t, err)
	require.Equal(t, int64(3), org.ID)
	require.Equal(t, "7", org.OwnerID)
}

func TestAddMemberDeniedForNonOwner(t *testing.T) {
	orgs := &fakeOrgRepo{}
	orgs.getByNameFn = func(context.Context, string) (*organization.Organization, error) {
		return ownedOrg(), nil
	}
	svc := NewOrganizationService(orgs, testLogger())

	err := svc.AddMember(context.Background(), "dev team", "not the owner", "8")
	require.ErrorIs(t, err, ErrNotOrgOwner)
}

func TestAddMemberRejectsExistingMember(t *testing.T) {
	orgs := &fakeOrgRepo{}
	orgs.getByNameFn = func(context.Context, string) (*organization.Organization, error) {
		return ownedOrg(), nil
	}
	orgs.isMemberFn = func(context.Context, int64, string) (bool, error) {
		return true, nil
	}
	svc := NewOrganizationService(orgs, testLogger())

	err := svc.AddMember(context.Background(), "dev team", "7", "8")
	require.ErrorIs(t, err, ErrAlreadyMember)
}

func TestRemoveMemberRejectsOwner(t *testing.T) {
	orgs := &fakeOrgRepo{}
	orgs.getByNameFn = func(context.Context, string) (*organization.Organization, error) {
		return ownedOrg(), nil
	}
	svc := NewOrganizationService(orgs, testLogger())

	err := svc.RemoveMember(context.Background(), "dev team", "7", "7")
	require.ErrorIs(t, err, ErrCannotRemoveOwner)
}

func TestRemoveMemberUnknownUser(t *testing.T) {
	orgs := &fakeOrgRepo{}
	orgs.getByNameFn = func(context.Context, string) (*organization.Organization, error) {
		return ownedOrg(), nil
	}
	orgs.removeFn = func(context.Context, int64, string) error {
		return idb.ErrMemberNotFound
	}
	svc := NewOrganizationService(orgs, testLogger())

	err := svc.RemoveMember(context.Background(), "dev team", "7", "9")
	require.ErrorIs(t, err, ErrNotMember)
}

func TestTransferOwnershipRequiresMembership(t *testing.T) {
	orgs := &fakeOrgRepo{}
	orgs.getByNameFn = func(context.Context, string) (*organization.Organization, error) {
		return ownedOrg(), nil
	}
	orgs.isMemberFn = func(context.Context, int64, string) (bool, error) {
		return false, nil
	}
	svc := NewOrganizationService(orgs, testLogger())

	err := svc.TransferOwnership(context.Background(), "dev team", "7", "outsider")
	require.ErrorIs(t, err, ErrNotMember)
}

func TestTransferOwnershipToMember(t *testing.T) {
	var newOwner string
	orgs := &fakeOrgRepo{}
	orgs.getByNameFn = func(context.Context, string) (*organization.Organization, error) {
		return ownedOrg(), nil
	}
	orgs.isMemberFn = func(context.Context, int64, string) (bool, error) {
		return true, nil
	}
	orgs.transferFn = func(_ context.Context, _ int64, newOwnerID string) error {
		newOwner = newOwnerID
		return nil
	}
	svc := NewOrganizationService(orgs, testLogger())

	require.NoError(t, svc.TransferOwnership(context.Background(), "dev team", "7", "8"))
	require.Equal(t, "8", newOwner)
}
