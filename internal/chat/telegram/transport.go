// Package telegram connects the conversation to the Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"aspirebot/internal/chat"
)

// API is the part of *tgbotapi.BotAPI the transport uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Transport implements chat.Transport on top of the Bot API.
type Transport struct {
	api API
}

var _ chat.Transport = (*Transport)(nil)

func NewTransport(api API) *Transport {
	return &Transport{api: api}
}

func (t *Transport) Send(ctx context.Context, m chat.Message) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	msg := tgbotapi.NewMessage(m.ChatID, m.Text)
	if m.Markdown {
		msg.ParseMode = tgbotapi.ModeMarkdown
	}
	switch {
	case m.Keyboard != nil:
		msg.ReplyMarkup = replyMarkup(m.Keyboard)
	case m.RemoveKeyboard:
		msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
	}

	sent, err := t.api.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("send message: %w", err)
	}
	return sent.MessageID, nil
}

func (t *Transport) Edit(ctx context.Context, chatID int64, messageID int, text string, kb *chat.Keyboard) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if kb != nil {
		markup := inlineMarkup(kb)
		edit.ReplyMarkup = &markup
	}

	if _, err := t.api.Request(edit); err != nil && !notModified(err) {
		return fmt.Errorf("edit message: %w", err)
	}
	return nil
}

func (t *Transport) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}

// notModified matches the error Telegram returns when an edit would leave
// the message unchanged, e.g. a repeated press on the same picker month.
func notModified(err error) bool {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return strings.Contains(apiErr.Message, "message is not modified")
	}
	return strings.Contains(err.Error(), "message is not modified")
}

func replyMarkup(kb *chat.Keyboard) any {
	if kb.Inline {
		return inlineMarkup(kb)
	}
	rows := make([][]tgbotapi.KeyboardButton, 0, len(kb.Rows))
	for _, row := range kb.Rows {
		buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewKeyboardButton(b.Text))
		}
		rows = append(rows, buttons)
	}
	markup := tgbotapi.NewReplyKeyboard(rows...)
	markup.OneTimeKeyboard = kb.OneTime
	markup.ResizeKeyboard = true
	return markup
}

func inlineMarkup(kb *chat.Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb.Rows))
	for _, row := range kb.Rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			data := b.Data
			if data == "" {
				data = b.Text
			}
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, data))
		}
		rows = append(rows, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
