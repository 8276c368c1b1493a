package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"aspirebot/internal/chat"
)

// ToEvent converts an update into a conversation event. Updates the bot
// does not react to (edits, channel posts, messages without a sender)
// report false.
func ToEvent(u tgbotapi.Update) (chat.Event, bool) {
	if cb := u.CallbackQuery; cb != nil {
		if cb.From == nil {
			return chat.Event{}, false
		}
		ev := chat.Event{
			Kind:       chat.EventCallback,
			UserID:     cb.From.ID,
			CallbackID: cb.ID,
			Data:       cb.Data,
		}
		if cb.Message != nil {
			ev.MessageID = cb.Message.MessageID
			if cb.Message.Chat != nil {
				ev.ChatID = cb.Message.Chat.ID
			}
		}
		if ev.ChatID == 0 {
			ev.ChatID = cb.From.ID
		}
		return ev, true
	}

	m := u.Message
	if m == nil || m.From == nil || m.Chat == nil {
		return chat.Event{}, false
	}
	ev := chat.Event{
		UserID:    m.From.ID,
		ChatID:    m.Chat.ID,
		MessageID: m.MessageID,
	}
	if m.IsCommand() {
		ev.Kind = chat.EventCommand
		ev.Text = m.Command()
		return ev, true
	}
	if m.Text == "" {
		return chat.Event{}, false
	}
	ev.Kind = chat.EventText
	ev.Text = m.Text
	return ev, true
}
