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

// RegisterPaymentHandlers registers the schedule-facing commands: creating
// individual and organization payment schedules, listing and cancelling them.
func RegisterPaymentHandlers(ctx context.Context, b *telebot.Bot, scheduleService *app.ScheduleService, baseLogger *logrus.Entry) {
	b.Handle("/pay", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/pay",
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		args := c.Args()
		// Expected format: /pay <UserID> <Amount> <IntervalValue> <IntervalType> <TotalPoints>
		if len(args) != 5 {
			handlerLogger.WithField("args_count", len(args)).Warn("Invalid command format")
			return c.Send("Invalid format. Use: /pay <UserID> <Amount> <IntervalValue> <IntervalType s|m|h|d|mm> <TotalPoints>")
		}

		amount, err1 := strconv.ParseInt(args[1], 10, 64)
		intervalValue, err2 := strconv.Atoi(args[2])
		totalPoints, err3 := strconv.ParseInt(args[4], 10, 64)
		if err1 != nil || err2 != nil || err3 != nil {
			return c.Send("Error: amount, interval value and total points must be numbers.")
		}

		params := app.CreateScheduleParams{
			TargetUserID:  args[0],
			Amount:        amount,
			IntervalValue: intervalValue,
			IntervalType:  strings.ToLower(args[3]),
			TotalPoints:   totalPoints,
			CreatedBy:     strconv.FormatInt(c.Sender().ID, 10),
		}
		return createScheduleAndReply(ctx, c, scheduleService, params, handlerLogger)
	})

	b.Handle("/pay_org", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/pay_org",
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		args := c.Args()
		// Expected format: /pay_org <OrgName> <Amount> <IntervalValue> <IntervalType> <TotalPoints>
		if len(args) != 5 {
			handlerLogger.WithField("args_count", len(args)).Warn("Invalid command format")
			return c.Send("Invalid format. Use: /pay_org <OrgName> <Amount> <IntervalValue> <IntervalType s|m|h|d|mm> <TotalPoints>")
		}

		amount, err1 := strconv.ParseInt(args[1], 10, 64)
		intervalValue, err2 := strconv.Atoi(args[2])
		totalPoints, err3 := strconv.ParseInt(args[4], 10, 64)
		if err1 != nil || err2 != nil || err3 != nil {
			return c.Send("Error: amount, interval value and total points must be numbers.")
		}

		params := app.CreateScheduleParams{
			OrganizationName: args[0],
			Amount:           amount,
			IntervalValue:    intervalValue,
			IntervalType:     strings.ToLower(args[3]),
			TotalPoints:      totalPoints,
			CreatedBy:        strconv.FormatInt(c.Sender().ID, 10),
		}
		return createScheduleAndReply(ctx, c, scheduleService, params, handlerLogger)
	})

	b.Handle("/schedules", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/schedules",
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		schedules, err := scheduleService.ListByCreator(ctx, strconv.FormatInt(c.Sender().ID, 10))
		if err != nil {
			handlerLogger.WithError(err).Error("Failed to list schedules")
			return c.Send("An error occurred while listing your schedules. Please try again later.")
		}
		if len(schedules) == 0 {
			return c.Send("You have no payment schedules. Use /pay or /pay_org to create one.")
		}

		var sb strings.Builder
		sb.WriteString("Your payment schedules:\n\n")
		for _, s := range schedules {
			sb.WriteString(formatScheduleSummary(s))
			sb.WriteString("\n\n")
		}
		return c.Send(sb.String())
	})

	b.Handle("/cancel_schedule", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/cancel_schedule",
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		args := c.Args()
		if len(args) != 1 {
			return c.Send("Invalid format. Use: /cancel_schedule <ScheduleID>")
		}
		scheduleID, err := strconv.ParseInt(strings.TrimPrefix(args[0], "#"), 10, 64)
		if err != nil {
			return c.Send("Error: schedule ID must be a number.")
		}

		err = scheduleService.Cancel(ctx, scheduleID, strconv.FormatInt(c.Sender().ID, 10))
		if err != nil {
			logWithError := handlerLogger.WithError(err).WithField("schedule_id", scheduleID)
			switch err {
			case idb.ErrScheduleNotFound:
				logWithError.Warn("Schedule not found")
				return c.Send(fmt.Sprintf("Error: no payment schedule with ID #%d exists.", scheduleID))
			case app.ErrNotScheduleOwner:
				logWithError.Warn("Cancellation denied: not the creator")
				return c.Send("Error: you can only cancel schedules you created.")
			default:
				logWithError.Error("Failed to cancel schedule")
				return c.Send("An error occurred while cancelling the schedule. Please try again later.")
			}
		}

		handlerLogger.WithField("schedule_id", scheduleID).Info("Schedule cancelled")
		return c.Send(fmt.Sprintf("Payment schedule #%d cancelled. Points already distributed are not reclaimed.", scheduleID))
	})
}

func createScheduleAndReply(ctx context.Context, c telebot.Context, scheduleService *app.ScheduleService, params app.CreateScheduleParams, handlerLogger *logrus.Entry) error {
	sched, initial, err := scheduleService.Create(ctx, params)
	if err != nil {
		logWithError := handlerLogger.WithError(err)
		switch err {
		case app.ErrUnknownIntervalType:
			return c.Send("Error: valid interval types are s (seconds), m (minutes), h (hours), d (days), mm (months).")
		case app.ErrTotalBelowAmount:
			return c.Send("Error: total points must be greater than or equal to the amount per payment.")
		case app.ErrNotOrganizationOwner:
			logWithError.Warn("Schedule creation denied: not the organization owner")
			return c.Send("Error: only the organization owner can create payment schedules for it.")
		case app.ErrNoRecipients:
			return c.Send("Error: the organization has no members to pay.")
		case idb.ErrOrganizationNotFound:
			return c.Send("Error: no organization with that name exists.")
		default:
			logWithError.Error("Failed to create schedule")
			return c.Send("An error occurred while creating the schedule: " + err.Error())
		}
	}

	handlerLogger.WithField("schedule_id", sched.ID).Info("Schedule created successfully")

	initialStatus := "sent"
	if initial.Succeeded < initial.Recipients {
		initialStatus = fmt.Sprintf("partially sent (%d/%d recipients)", initial.Succeeded, initial.Recipients)
	}
	if initial.Succeeded == 0 {
		initialStatus = "failed (will not be retried; the pool is untouched)"
	}

	totalPayments := sched.TotalPoints / sched.Amount
	return c.Send(fmt.Sprintf(
		"Payment schedule created!\n\n%s\n\nNumber of payments: %d\nInitial payment: %s",
		formatScheduleSummary(sched), totalPayments, initialStatus,
	))
}
