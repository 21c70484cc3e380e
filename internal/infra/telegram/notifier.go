package telegram

import (
	"context"
	"fmt"
	"strconv"

	"github.com/MallardLabs/celeris/internal/domain/notify"
	domainTelegram "github.com/MallardLabs/celeris/internal/domain/telegram"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// Notifier delivers payment receipts as Telegram direct messages. It makes a
// single attempt per receipt; failures are logged and dropped, never
// re-queued, and never touch ledger or schedule state.
type Notifier struct {
	client domainTelegram.Client
	logger *logrus.Entry
}

func NewNotifier(client domainTelegram.Client, logger *logrus.Entry) *Notifier {
	return &Notifier{client: client, logger: logger}
}

func (n *Notifier) DispatchReceipt(_ context.Context, r notify.Receipt) error {
	chatID, err := strconv.ParseInt(r.RecipientID, 10, 64)
	if err != nil {
		return fmt.Errorf("recipient %q is not a valid chat ID: %w", r.RecipientID, err)
	}

	kind := "Individual Payment"
	if r.Organization {
		kind = "Organization Payment"
	}
	progress, bar := ProgressBar(r.PointsPaid, r.TotalPoints)

	text := fmt.Sprintf(
		"*Payment Received*\n"+
			"%s — you've received a scheduled payment!\n\n"+
			"💰 *Amount Received*\n%d points\n\n"+
			"📊 *Schedule Progress*\n%s %.1f%%\n(%d/%d points)\n\n"+
			"⏰ *Payment Details*\n• Frequency: every %d %s\n• Schedule ID: #%d",
		kind, r.Amount, bar, progress, r.PointsPaid, r.TotalPoints,
		r.IntervalValue, intervalNoun(r.IntervalType), r.ScheduleID,
	)

	if err := n.client.SendMessage(chatID, text, &telebot.SendOptions{ParseMode: telebot.ModeMarkdown}); err != nil {
		return fmt.Errorf("failed to deliver receipt for schedule %d to %s: %w", r.ScheduleID, r.RecipientID, err)
	}
	n.logger.WithFields(logrus.Fields{
		"schedule_id": r.ScheduleID,
		"recipient":   r.RecipientID,
		"amount":      r.Amount,
	}).Debug("Payment receipt delivered")
	return nil
}
