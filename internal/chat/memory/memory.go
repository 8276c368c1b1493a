// Package memory provides a Transport that records every outbound call.
package memory

import (
	"context"
	"sync"

	"aspirebot/internal/chat"
)

type (
	// Edit is a recorded message edit.
	Edit struct {
		ChatID    int64
		MessageID int
		Text      string
		Keyboard  *chat.Keyboard
	}

	// Answer is a recorded callback acknowledgement.
	Answer struct {
		CallbackID string
		Text       string
	}

	// Recorder implements chat.Transport in memory.
	Recorder struct {
		mu      sync.Mutex
		nextID  int
		sent    []chat.Message
		edits   []Edit
		answers []Answer
		// SendErr, when set, is returned by Send.
		SendErr error
	}
)

var _ chat.Transport = (*Recorder)(nil)

func New() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Send(_ context.Context, m chat.Message) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SendErr != nil {
		return 0, r.SendErr
	}
	r.nextID++
	r.sent = append(r.sent, m)
	return r.nextID, nil
}

func (r *Recorder) Edit(_ context.Context, chatID int64, messageID int, text string, kb *chat.Keyboard) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edits = append(r.edits, Edit{ChatID: chatID, MessageID: messageID, Text: text, Keyboard: kb})
	return nil
}

func (r *Recorder) AnswerCallback(_ context.Context, callbackID, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.answers = append(r.answers, Answer{CallbackID: callbackID, Text: text})
	return nil
}

// Sent returns a copy of the sent messages.
func (r *Recorder) Sent() []chat.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]chat.Message(nil), r.sent...)
}

// LastSent returns the most recent message, if any.
func (r *Recorder) LastSent() (chat.Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return chat.Message{}, false
	}
	return r.sent[len(r.sent)-1], true
}

func (r *Recorder) Edits() []Edit {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Edit(nil), r.edits...)
}

func (r *Recorder) Answers() []Answer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Answer(nil), r.answers...)
}

// Reset forgets everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent, r.edits, r.answers = nil, nil, nil
}
