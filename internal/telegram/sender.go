package telegram

import (
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/ksred/order-bot/internal/bot"
	"github.com/ksred/order-bot/internal/presentation"
	"github.com/rs/zerolog/log"
)

// Requester is the part of *tgbotapi.BotAPI used to deliver responses
type Requester interface {
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Sender performs rendered actions against the Bot API
type Sender struct {
	api Requester
}

func NewSender(api Requester) *Sender {
	return &Sender{api: api}
}

// Deliver performs every action in order. A failed action is logged and does not stop
// the ones after it; the failures are returned joined.
func (s *Sender) Deliver(resp bot.Response) error {
	logger := log.With().Str("component", "telegram_sender").Logger()

	var errs []error
	for _, a := range resp.Actions {
		c, err := chattable(a)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		if _, err := s.api.Request(c); err != nil {
			if notModified(err) {
				logger.Debug().Int64("chat_id", a.ChatID).Msg("message not modified")
				continue
			}
			logger.Error().Err(err).Int64("chat_id", a.ChatID).Int("kind", int(a.Kind)).Msg("failed to deliver action")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func chattable(a bot.Action) (tgbotapi.Chattable, error) {
	switch a.Kind {
	case bot.ActionSend:
		msg := tgbotapi.NewMessage(a.ChatID, a.Text)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true
		switch {
		case a.ReplyMenu:
			msg.ReplyMarkup = replyMenu()
		case len(a.Keyboard) > 0:
			msg.ReplyMarkup = inlineMarkup(a.Keyboard)
		}
		return msg, nil

	case bot.ActionEdit:
		var edit tgbotapi.EditMessageTextConfig
		if len(a.Keyboard) > 0 {
			edit = tgbotapi.NewEditMessageTextAndMarkup(a.ChatID, a.MessageID, a.Text, inlineMarkup(a.Keyboard))
		} else {
			edit = tgbotapi.NewEditMessageText(a.ChatID, a.MessageID, a.Text)
		}
		edit.ParseMode = tgbotapi.ModeHTML
		edit.DisableWebPagePreview = true
		return edit, nil

	case bot.ActionAnswer:
		if a.Alert {
			return tgbotapi.NewCallbackWithAlert(a.CallbackID, a.Text), nil
		}
		return tgbotapi.NewCallback(a.CallbackID, a.Text), nil

	case bot.ActionDelete:
		return tgbotapi.NewDeleteMessage(a.ChatID, a.MessageID), nil
	}
	return nil, fmt.Errorf("unknown action kind %d", a.Kind)
}

func inlineMarkup(kb bot.Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, r := range kb {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(r))
		for _, b := range r {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func replyMenu() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton(presentation.MainMenuButton),
		tgbotapi.NewKeyboardButton(presentation.SheetButton),
	))
	kb.ResizeKeyboard = true
	return kb
}

// notModified matches the error returned when an edit leaves a message as it was
func notModified(err error) bool {
	return strings.Contains(err.Error(), "message is not modified")
}
