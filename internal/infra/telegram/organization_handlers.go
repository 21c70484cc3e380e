package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/MallardLabs/celeris/internal/app"
	idb "github.com/MallardLabs/celeris/internal/infra/database"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// RegisterOrganizationHandlers registers organization management commands.
func RegisterOrganizationHandlers(ctx context.Context, b *telebot.Bot, orgService *app.OrganizationService, baseLogger *logrus.Entry) {
	b.Handle("/org_create", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/org_create",
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		args := c.Args()
		if len(args) == 0 {
			return c.Send("Invalid format. Use: /org_create <Name>")
		}
		name := strings.Join(args, " ")
		if len(name) < 3 || len(name) > 50 {
			return c.Send("Error: organization name must be between 3 and 50 characters.")
		}

		org, err := orgService.Create(ctx, name, strconv.FormatInt(c.Sender().ID, 10))
		if err != nil {
			logWithError := handlerLogger.WithError(err)
			if err == app.ErrOrganizationExists {
				logWithError.Warn("Organization name taken")
				return c.Send(fmt.Sprintf("Error: an organization named '%s' already exists.", name))
			}
			logWithError.Error("Failed to create organization")
			return c.Send("An error occurred while creating the organization. Please try again later.")
		}

		handlerLogger.WithField("organization_id", org.ID).Info("Organization created")
		return c.Send(fmt.Sprintf("Organization '%s' created (ID: #%d). You are its owner and first member.", org.Name, org.ID))
	})

	b.Handle("/org_add", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/org_add",
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		args := c.Args()
		// Expected format: /org_add <OrgName> <UserID>
		if len(args) != 2 {
			return c.Send("Invalid format. Use: /org_add <OrgName> <UserID>")
		}

		err := orgService.AddMember(ctx, args[0], strconv.FormatInt(c.Sender().ID, 10), args[1])
		if err != nil {
			logWithError := handlerLogger.WithError(err)
			switch err {
			case idb.ErrOrganizationNotFound:
				return c.Send("Error: no organization with that name exists.")
			case app.ErrNotOrgOwner:
				logWithError.Warn("Member add denied: not the owner")
				return c.Send("Error: you don't own an organization with that name.")
			case app.ErrAlreadyMember:
				return c.Send("Error: that user is already a member of the organization.")
			default:
				logWithError.Error("Failed to add member")
				return c.Send("An error occurred while adding the member. Please try again later.")
			}
		}

		handlerLogger.Info("Member added")
		return c.Send(fmt.Sprintf("Added user %s to %s. Existing payment schedules keep their original recipients.", args[1], args[0]))
	})

	b.Handle("/org_remove", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/org_remove",
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		args := c.Args()
		// Expected format: /org_remove <OrgName> <UserID>
		if len(args) != 2 {
			return c.Send("Invalid format. Use: /org_remove <OrgName> <UserID>")
		}

		err := orgService.RemoveMember(ctx, args[0], strconv.FormatInt(c.Sender().ID, 10), args[1])
		if err != nil {
			logWithError := handlerLogger.WithError(err)
			switch err {
			case idb.ErrOrganizationNotFound:
				return c.Send("Error: no organization with that name exists.")
			case app.ErrNotOrgOwner:
				logWithError.Warn("Member removal denied: not the owner")
				return c.Send("Error: you don't own an organization with that name.")
			case app.ErrNotMember:
				return c.Send("Error: that user is not a member of the organization.")
			case app.ErrCannotRemoveOwner:
				return c.Send("Error: the owner cannot be removed. Transfer ownership first with /org_transfer.")
			default:
				logWithError.Error("Failed to remove member")
				return c.Send("An error occurred while removing the member. Please try again later.")
			}
		}

		handlerLogger.Info("Member removed")
		return c.Send(fmt.Sprintf("Removed user %s from %s.", args[1], args[0]))
	})

	b.Handle("/org_transfer", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/org_transfer",
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		args := c.Args()
		// Expected format: /org_transfer <OrgName> <NewOwnerUserID>
		if len(args) != 2 {
			return c.Send("Invalid format. Use: /org_transfer <OrgName> <NewOwnerUserID>")
		}

		err := orgService.TransferOwnership(ctx, args[0], strconv.FormatInt(c.Sender().ID, 10), args[1])
		if err != nil {
			logWithError := handlerLogger.WithError(err)
			switch err {
			case idb.ErrOrganizationNotFound:
				return c.Send("Error: no organization with that name exists.")
			case app.ErrNotOrgOwner:
				logWithError.Warn("Ownership transfer denied: not the owner")
				return c.Send("Error: you don't own an organization with that name.")
			case app.ErrNotMember:
				return c.Send("Error: the new owner must already be a member of the organization.")
			default:
				logWithError.Error("Failed to transfer ownership")
				return c.Send("An error occurred while transferring ownership. Please try again later.")
			}
		}

		handlerLogger.Info("Ownership transferred")
		return c.Send(fmt.Sprintf("Ownership of %s transferred to user %s.", args[0], args[1]))
	})

	b.Handle("/orgs", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/orgs",
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		senderID := strconv.FormatInt(c.Sender().ID, 10)
		orgs, err := orgService.ListForUser(ctx, senderID)
		if err != nil {
			handlerLogger.WithError(err).Error("Failed to list organizations")
			return c.Send("An error occurred while listing your organizations. Please try again later.")
		}
		if len(orgs) == 0 {
			return c.Send("You are not a member of any organizations. Use /org_create to start one.")
		}

		var sb strings.Builder
		sb.WriteString("Your organizations:\n\n")
		for _, org := range orgs {
			role := "Member"
			if org.OwnerID == senderID {
				role = "Owner"
			}
			sb.WriteString(fmt.Sprintf("• %s (ID: #%d), %s\n", org.Name, org.ID, role))
		}
		return c.Send(sb.String())
	})
}
