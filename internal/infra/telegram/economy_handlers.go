package telegram

import (
	"context"
	"fmt"
	"strconv"

	"github.com/MallardLabs/celeris/internal/app"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// RegisterEconomyHandlers registers direct ledger commands: balance checks,
// tips between users, and admin balance adjustments.
func RegisterEconomyHandlers(ctx context.Context, b *telebot.Bot, economyService *app.EconomyService, baseLogger *logrus.Entry) {
	b.Handle("/balance", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/balance",
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		balance, err := economyService.Balance(ctx, strconv.FormatInt(c.Sender().ID, 10))
		if err != nil {
			handlerLogger.WithError(err).Error("Failed to check balance")
			return c.Send("Failed to check your balance. Please try again later.")
		}
		return c.Send(fmt.Sprintf("Your current balance: %d points", balance))
	})

	b.Handle("/check", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/check",
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		args := c.Args()
		if len(args) != 1 {
			return c.Send("Invalid format. Use: /check <UserID>")
		}

		balance, err := economyService.Balance(ctx, args[0])
		if err != nil {
			handlerLogger.WithError(err).WithField("user_id", args[0]).Error("Failed to check balance")
			return c.Send("Failed to check that balance. Please try again later.")
		}
		return c.Send(fmt.Sprintf("Balance of user %s: %d points", args[0], balance))
	})

	b.Handle("/tip", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/tip",
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		args := c.Args()
		// Expected format: /tip <UserID> <Amount>
		if len(args) != 2 {
			return c.Send("Invalid format. Use: /tip <UserID> <Amount>")
		}
		amount, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return c.Send("Error: amount must be a number.")
		}

		err = economyService.Tip(ctx, strconv.FormatInt(c.Sender().ID, 10), args[0], amount)
		if err != nil {
			logWithError := handlerLogger.WithError(err)
			switch err {
			case app.ErrNonPositiveAmount:
				return c.Send("Error: amount must be positive.")
			case app.ErrSelfTip:
				return c.Send("Error: you can't tip yourself.")
			case app.ErrInsufficientBalance:
				return c.Send("Error: you don't have enough points for that tip.")
			default:
				logWithError.Error("Failed to transfer tip")
				return c.Send("Failed to transfer points. Please try again later.")
			}
		}

		handlerLogger.WithFields(logrus.Fields{"to": args[0], "amount": amount}).Info("Tip sent")
		return c.Send(fmt.Sprintf("Successfully tipped %d points to user %s!", amount, args[0]))
	})

	b.Handle("/add_points", func(c telebot.Context) error {
		return adminAdjust(ctx, c, baseLogger, "/add_points", economyService.AddPoints,
			"Added %d points to user %s.")
	})

	b.Handle("/remove_points", func(c telebot.Context) error {
		return adminAdjust(ctx, c, baseLogger, "/remove_points", economyService.RemovePoints,
			"Removed %d points from user %s.")
	})
}

func adminAdjust(
	ctx context.Context,
	c telebot.Context,
	baseLogger *logrus.Entry,
	command string,
	adjust func(ctx context.Context, performingUserID, userID string, amount int64) error,
	successFormat string,
) error {
	handlerLogger := baseLogger.WithFields(logrus.Fields{
		"handler":   command,
		"sender_id": c.Sender().ID,
	})
	handlerLogger.Info("Command received")

	args := c.Args()
	// Expected format: <command> <UserID> <Amount>
	if len(args) != 2 {
		return c.Send(fmt.Sprintf("Invalid format. Use: %s <UserID> <Amount>", command))
	}
	amount, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return c.Send("Error: amount must be a number.")
	}

	err = adjust(ctx, strconv.FormatInt(c.Sender().ID, 10), args[0], amount)
	if err != nil {
		logWithError := handlerLogger.WithError(err)
		switch err {
		case app.ErrAdminNotAuthorized:
			logWithError.Warn("Unauthorized admin command")
			return c.Send("Error: you don't have permission to use this command.")
		case app.ErrNonPositiveAmount:
			return c.Send("Error: amount must be positive.")
		case app.ErrInsufficientBalance:
			return c.Send("Error: the user doesn't hold that many points.")
		default:
			logWithError.Error("Failed to adjust points")
			return c.Send("Failed to adjust points. Please try again later.")
		}
	}

	handlerLogger.WithFields(logrus.Fields{"user_id": args[0], "amount": amount}).Info("Admin balance adjustment applied")
	return c.Send(fmt.Sprintf(successFormat, amount, args[0]))
}
