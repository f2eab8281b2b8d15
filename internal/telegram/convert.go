package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/ksred/order-bot/internal/bot"
)

// EventFromUpdate converts a Bot API update. ok is false for update types the bot ignores.
func EventFromUpdate(u tgbotapi.Update) (ev bot.Event, ok bool) {
	switch {
	case u.CallbackQuery != nil:
		q := u.CallbackQuery
		ev = bot.Event{CallbackID: q.ID, CallbackData: q.Data}
		if q.From != nil {
			ev.UserID = q.From.ID
			ev.HasUser = true
		}
		if q.Message != nil {
			ev.MessageID = q.Message.MessageID
			if q.Message.Chat != nil {
				ev.ChatID = q.Message.Chat.ID
			}
		}
		if ev.ChatID == 0 && ev.HasUser {
			// inline-mode buttons carry no message; answer in the private chat
			ev.ChatID = ev.UserID
		}
		return ev, true

	case u.Message != nil:
		m := u.Message
		ev = bot.Event{MessageID: m.MessageID, Text: m.Text}
		if m.Chat != nil {
			ev.ChatID = m.Chat.ID
		}
		if m.From != nil {
			ev.UserID = m.From.ID
			ev.HasUser = true
		}
		return ev, true
	}

	return bot.Event{}, false
}
