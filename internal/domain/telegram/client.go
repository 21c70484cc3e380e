package telegram

import "gopkg.in/telebot.v3"

// Client defines an interface for sending messages through the Telegram bot,
// decoupling the notification dispatcher from the concrete bot library.
type Client interface {
	SendMessage(recipientChatID int64, text string, options *telebot.SendOptions) error
}
