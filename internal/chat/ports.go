// Package chat defines what the conversation needs from a chat platform:
// inbound events and outbound messages with reply or inline keyboards.
package chat

import "context"

const (
	EventCommand EventKind = iota + 1
	EventText
	EventCallback
)

type (
	// EventKind distinguishes inbound events.
	EventKind int

	// Event is one inbound update, tagged with sender and chat.
	Event struct {
		Kind   EventKind
		UserID int64
		ChatID int64
		// Text holds the message text, or the command name without the slash.
		Text string
		// CallbackID and Data are set for EventCallback.
		CallbackID string
		Data       string
		// MessageID is the message the pressed button belongs to.
		MessageID int
	}

	// Button is a keyboard key. Data is empty for reply keyboards.
	Button struct {
		Text string
		Data string
	}

	// Keyboard is either a reply keyboard (answers are sent as text) or an
	// inline keyboard attached to a message (answers arrive as callbacks).
	Keyboard struct {
		Rows    [][]Button
		Inline  bool
		OneTime bool
	}

	// Message is an outbound text.
	Message struct {
		ChatID         int64
		Text           string
		Markdown       bool
		Keyboard       *Keyboard
		RemoveKeyboard bool
	}

	// Transport sends and edits messages on the chat platform.
	Transport interface {
		// Send posts a message and returns its ID.
		Send(ctx context.Context, m Message) (messageID int, err error)
		// Edit replaces the text and inline keyboard of a message; a nil
		// keyboard removes the buttons.
		Edit(ctx context.Context, chatID int64, messageID int, text string, kb *Keyboard) error
		// AnswerCallback acknowledges a button press, optionally with a notice.
		AnswerCallback(ctx context.Context, callbackID, text string) error
	}
)

func (k EventKind) String() string {
	switch k {
	case EventCommand:
		return "command"
	case EventText:
		return "text"
	case EventCallback:
		return "callback"
	}
	return "unknown"
}

// Pairs lays buttons out n per row.
func Pairs(buttons []Button, n int) [][]Button {
	if n < 1 {
		n = 1
	}
	rows := make([][]Button, 0, (len(buttons)+n-1)/n)
	for i := 0; i < len(buttons); i += n {
		end := i + n
		if end > len(buttons) {
			end = len(buttons)
		}
		rows = append(rows, append([]Button(nil), buttons[i:end]...))
	}
	return rows
}
