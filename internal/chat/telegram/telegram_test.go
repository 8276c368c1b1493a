package telegram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"aspirebot/internal/chat"
)

type fakeAPI struct {
	sent       []tgbotapi.Chattable
	requests   []tgbotapi.Chattable
	sendErr    error
	requestErr error
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	if f.requestErr != nil {
		return nil, f.requestErr
	}
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []chat.Event
	err    error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, ev chat.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, ev)
	return d.err
}

func (d *recordingDispatcher) Events() []chat.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]chat.Event(nil), d.events...)
}

func TestSendReplyKeyboard(t *testing.T) {
	api := &fakeAPI{}
	tr := NewTransport(api)
	kb := &chat.Keyboard{
		Rows:    [][]chat.Button{{{Text: "Outflow"}, {Text: "Inflow"}}, {{Text: "Done"}}},
		OneTime: true,
	}

	id, err := tr.Send(context.Background(), chat.Message{ChatID: 5, Text: "*So far*", Markdown: true, Keyboard: kb})
	if err != nil || id != 1 {
		t.Fatalf("Send: id=%d err=%v", id, err)
	}
	msg := api.sent[0].(tgbotapi.MessageConfig)
	if msg.ChatID != 5 || msg.ParseMode != tgbotapi.ModeMarkdown {
		t.Fatalf("unexpected message: %+v", msg)
	}
	markup, ok := msg.ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
	if !ok {
		t.Fatalf("expected reply keyboard, got %T", msg.ReplyMarkup)
	}
	if !markup.OneTimeKeyboard || len(markup.Keyboard) != 2 || markup.Keyboard[0][1].Text != "Inflow" {
		t.Fatalf("unexpected markup: %+v", markup)
	}
}

func TestSendInlineKeyboard(t *testing.T) {
	api := &fakeAPI{}
	tr := NewTransport(api)
	kb := &chat.Keyboard{Inline: true, Rows: [][]chat.Button{{{Text: "Food", Data: "group_sel;Food"}}}}

	if _, err := tr.Send(context.Background(), chat.Message{ChatID: 1, Text: "Choose a Group", Keyboard: kb}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	markup, ok := api.sent[0].(tgbotapi.MessageConfig).ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok {
		t.Fatalf("expected inline keyboard")
	}
	btn := markup.InlineKeyboard[0][0]
	if btn.Text != "Food" || btn.CallbackData == nil || *btn.CallbackData != "group_sel;Food" {
		t.Fatalf("unexpected button: %+v", btn)
	}
}

func TestSendRemoveKeyboard(t *testing.T) {
	api := &fakeAPI{}
	if _, err := NewTransport(api).Send(context.Background(), chat.Message{ChatID: 1, Text: "saved", RemoveKeyboard: true}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, ok := api.sent[0].(tgbotapi.MessageConfig).ReplyMarkup.(tgbotapi.ReplyKeyboardRemove); !ok {
		t.Fatal("expected keyboard removal")
	}
}

func TestSendError(t *testing.T) {
	api := &fakeAPI{sendErr: errors.New("forbidden")}
	if _, err := NewTransport(api).Send(context.Background(), chat.Message{ChatID: 1, Text: "x"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestEdit(t *testing.T) {
	api := &fakeAPI{}
	tr := NewTransport(api)
	kb := &chat.Keyboard{Inline: true, Rows: [][]chat.Button{{{Text: "<", Data: "CALENDAR;PREV-MONTH;2024;1;1"}}}}

	if err := tr.Edit(context.Background(), 3, 9, "Please select a date: ", kb); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if err := tr.Edit(context.Background(), 3, 9, "Groceries", nil); err != nil {
		t.Fatalf("Edit without keyboard: %v", err)
	}

	withKB := api.requests[0].(tgbotapi.EditMessageTextConfig)
	if withKB.ChatID != 3 || withKB.MessageID != 9 || withKB.ReplyMarkup == nil {
		t.Fatalf("unexpected edit: %+v", withKB)
	}
	if plain := api.requests[1].(tgbotapi.EditMessageTextConfig); plain.ReplyMarkup != nil {
		t.Fatalf("nil keyboard should drop the markup: %+v", plain)
	}
}

func TestEditNotModified(t *testing.T) {
	api := &fakeAPI{requestErr: &tgbotapi.Error{Code: 400, Message: "Bad Request: message is not modified"}}
	if err := NewTransport(api).Edit(context.Background(), 1, 1, "same", nil); err != nil {
		t.Fatalf("unchanged edits should be ignored, got %v", err)
	}
	api.requestErr = errors.New("message to edit not found")
	if err := NewTransport(api).Edit(context.Background(), 1, 1, "gone", nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestAnswerCallback(t *testing.T) {
	api := &fakeAPI{}
	if err := NewTransport(api).AnswerCallback(context.Background(), "cb-1", "Something went wrong!"); err != nil {
		t.Fatalf("AnswerCallback: %v", err)
	}
	cb := api.requests[0].(tgbotapi.CallbackConfig)
	if cb.CallbackQueryID != "cb-1" || cb.Text != "Something went wrong!" {
		t.Fatalf("unexpected callback answer: %+v", cb)
	}
}

func TestTransportHonorsCanceledContext(t *testing.T) {
	api := &fakeAPI{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewTransport(api).Send(ctx, chat.Message{ChatID: 1, Text: "x"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(api.sent) != 0 {
		t.Fatal("nothing should be sent")
	}
}

func commandMessage(userID, chatID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 11,
		From:      &tgbotapi.User{ID: userID},
		Chat:      &tgbotapi.Chat{ID: chatID},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(strings.Fields(text)[0])}},
	}
}

func TestToEvent(t *testing.T) {
	tests := []struct {
		name   string
		update tgbotapi.Update
		want   chat.Event
		ok     bool
	}{
		{
			name:   "command",
			update: tgbotapi.Update{Message: commandMessage(1, 2, "/start")},
			want:   chat.Event{Kind: chat.EventCommand, UserID: 1, ChatID: 2, Text: "start", MessageID: 11},
			ok:     true,
		},
		{
			name:   "command with bot name",
			update: tgbotapi.Update{Message: commandMessage(1, 2, "/start@aspire_bot")},
			want:   chat.Event{Kind: chat.EventCommand, UserID: 1, ChatID: 2, Text: "start", MessageID: 11},
			ok:     true,
		},
		{
			name: "text",
			update: tgbotapi.Update{Message: &tgbotapi.Message{
				MessageID: 4, From: &tgbotapi.User{ID: 1}, Chat: &tgbotapi.Chat{ID: 2}, Text: "Outflow",
			}},
			want: chat.Event{Kind: chat.EventText, UserID: 1, ChatID: 2, Text: "Outflow", MessageID: 4},
			ok:   true,
		},
		{
			name: "callback",
			update: tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
				ID:      "q1",
				From:    &tgbotapi.User{ID: 7},
				Data:    "back;",
				Message: &tgbotapi.Message{MessageID: 30, Chat: &tgbotapi.Chat{ID: 8}},
			}},
			want: chat.Event{Kind: chat.EventCallback, UserID: 7, ChatID: 8, CallbackID: "q1", Data: "back;", MessageID: 30},
			ok:   true,
		},
		{
			name: "inline callback without message",
			update: tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
				ID: "q2", From: &tgbotapi.User{ID: 7}, Data: "x",
			}},
			want: chat.Event{Kind: chat.EventCallback, UserID: 7, ChatID: 7, CallbackID: "q2", Data: "x"},
			ok:   true,
		},
		{
			name: "photo without text",
			update: tgbotapi.Update{Message: &tgbotapi.Message{
				From: &tgbotapi.User{ID: 1}, Chat: &tgbotapi.Chat{ID: 2},
			}},
		},
		{name: "channel post", update: tgbotapi.Update{ChannelPost: &tgbotapi.Message{Text: "hi"}}},
		{name: "message without sender", update: tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 2}, Text: "hi"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToEvent(tt.update)
			if ok != tt.ok || got != tt.want {
				t.Fatalf("ToEvent() = %+v, %v; want %+v, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestWebhookPath(t *testing.T) {
	p := WebhookPath("123:abc")
	if !strings.HasPrefix(p, "/telegram/") || len(p) != len("/telegram/")+32 {
		t.Fatalf("unexpected path %q", p)
	}
	if strings.Contains(p, "abc") {
		t.Fatal("path must not leak the token")
	}
	if WebhookPath("123:abc") != p || WebhookPath("other") == p {
		t.Fatal("path must be stable per token")
	}

	u, err := WebhookURL("https://bot.example.com/hooks/", "123:abc")
	if err != nil || u != "https://bot.example.com/hooks"+p {
		t.Fatalf("WebhookURL() = %q, %v", u, err)
	}
}

func TestRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	d := &recordingDispatcher{err: errors.New("handler failed")}
	path := WebhookPath("token")
	router := NewRouter(path, d, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ok") {
		t.Fatalf("healthz: %d %s", rec.Code, rec.Body.String())
	}

	body := `{"update_id":1,"message":{"message_id":5,"from":{"id":42},"chat":{"id":42},"text":"Memo"}}`
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("dispatch errors must still answer 200, got %d", rec.Code)
	}
	events := d.Events()
	if len(events) != 1 || events[0].Text != "Memo" || events[0].UserID != 42 {
		t.Fatalf("unexpected events: %+v", events)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader("{")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body: got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/telegram/guess", strings.NewReader(body)))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("wrong path: got %d", rec.Code)
	}
}

type fakeUpdater struct {
	ch      chan tgbotapi.Update
	stopped bool
}

func (f *fakeUpdater) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.ch
}

func (f *fakeUpdater) StopReceivingUpdates() {
	f.stopped = true
}

func TestPollerDispatchesInOrder(t *testing.T) {
	up := &fakeUpdater{ch: make(chan tgbotapi.Update, 4)}
	d := &recordingDispatcher{err: errors.New("keep going")}
	for i, text := range []string{"Outflow", "5000"} {
		up.ch <- tgbotapi.Update{UpdateID: i, Message: &tgbotapi.Message{
			From: &tgbotapi.User{ID: 1}, Chat: &tgbotapi.Chat{ID: 1}, Text: text,
		}}
	}
	up.ch <- tgbotapi.Update{UpdateID: 9}
	close(up.ch)

	if err := NewPoller(up, d, 30, nil).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	events := d.Events()
	if len(events) != 2 || events[0].Text != "Outflow" || events[1].Text != "5000" {
		t.Fatalf("unexpected events: %+v", events)
	}
	if !up.stopped {
		t.Fatal("updates should be stopped on exit")
	}
}

func TestPollerStopsOnCancel(t *testing.T) {
	up := &fakeUpdater{ch: make(chan tgbotapi.Update)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewPoller(up, &recordingDispatcher{}, 30, nil).Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
