package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"aspirebot/internal/calendar"
	"aspirebot/internal/chat"
	"aspirebot/internal/core"
	applog "aspirebot/internal/log"
	"aspirebot/internal/sheets"
)

// ErrSubmission wraps failures of the transaction writer. The draft is kept
// so the user can retry with Done.
var ErrSubmission = errors.New("submit transaction")

// StartCommand begins a new transaction from any state.
const StartCommand = "start"

// DefaultTimezone dates new drafts when no location is configured.
const DefaultTimezone = "Asia/Jakarta"

// Options tune a Machine. Zero values pick defaults.
type Options struct {
	Currency core.Currency
	Location *time.Location
	Now      func() time.Time
	Logger   *applog.Logger
}

// Machine routes one event at a time for one session. It holds no
// per-user state and is safe for concurrent use across sessions.
type Machine struct {
	catalog   Catalog
	transport chat.Transport
	sink      sheets.TransactionWriter
	currency  core.Currency
	location  *time.Location
	now       func() time.Time
	logger    *slog.Logger
	log       *applog.StructuredLogger
}

func NewMachine(catalog Catalog, transport chat.Transport, sink sheets.TransactionWriter, opts Options) *Machine {
	m := &Machine{
		catalog:   catalog,
		transport: transport,
		sink:      sink,
		currency:  opts.Currency,
		location:  opts.Location,
		now:       opts.Now,
	}
	if m.location == nil {
		loc, err := time.LoadLocation(DefaultTimezone)
		if err != nil {
			loc = time.UTC
		}
		m.location = loc
	}
	if m.now == nil {
		m.now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.Config{
			Component: applog.ComponentConversation,
			Handler:   slog.Default().Handler(),
		})
	}
	m.logger = logger.Logger
	m.log = applog.NewStructuredLogger(logger)
	if m.currency == (core.Currency{}) {
		m.currency = core.NewCurrency(core.DefaultSymbol)
	}
	return m
}

func (m *Machine) today() time.Time {
	return m.now().In(m.location)
}

// Handle applies ev to s. Validation problems are answered in the chat and
// return nil; transport failures and ErrSubmission are returned.
func (m *Machine) Handle(ctx context.Context, s *Session, ev chat.Event) error {
	if ev.Kind == chat.EventCommand && ev.Text == StartCommand {
		return m.start(ctx, s, ev)
	}
	if !s.Active() {
		return m.ignore(ctx, ev)
	}
	if ev.Kind == chat.EventText && ev.Text == DoneOption {
		return m.submit(ctx, s, ev)
	}
	if ev.Kind == chat.EventCommand {
		return nil
	}

	switch s.State {
	case ChoosingField:
		return m.chooseField(ctx, s, ev)
	case AwaitingCategoryGroup, AwaitingCategoryItem:
		return m.pickCategory(ctx, s, ev)
	case AwaitingFieldReply:
		return m.receiveReply(ctx, s, ev)
	case AwaitingDateNav:
		return m.navigateDate(ctx, s, ev)
	}
	return nil
}

// ignore acknowledges a button press that no state is waiting for.
func (m *Machine) ignore(ctx context.Context, ev chat.Event) error {
	if ev.Kind != chat.EventCallback {
		return nil
	}
	return m.transport.AnswerCallback(ctx, ev.CallbackID, "")
}

func (m *Machine) start(ctx context.Context, s *Session, ev chat.Event) error {
	*s = Session{State: ChoosingField, Draft: core.NewDraft(m.today())}
	return m.send(ctx, chat.Message{
		ChatID:   ev.ChatID,
		Text:     textStart + s.Draft.Summary(m.currency),
		Markdown: true,
		Keyboard: menuKeyboard(),
	})
}

func (m *Machine) chooseField(ctx context.Context, s *Session, ev chat.Event) error {
	if ev.Kind != chat.EventText {
		return m.ignore(ctx, ev)
	}

	switch field := core.Field(ev.Text); field {
	case core.FieldOutflow, core.FieldInflow, core.FieldMemo:
		s.State, s.Pending = AwaitingFieldReply, field
		return m.send(ctx, chat.Message{ChatID: ev.ChatID, Text: promptFor(field)})

	case core.FieldAccount:
		s.State, s.Pending = AwaitingFieldReply, field
		if len(m.catalog.Accounts) == 0 {
			return m.send(ctx, chat.Message{ChatID: ev.ChatID, Text: promptFor(field)})
		}
		return m.send(ctx, chat.Message{
			ChatID:   ev.ChatID,
			Text:     textPickAccount,
			Keyboard: accountsKeyboard(m.catalog.Accounts),
		})

	case core.FieldCategory:
		if m.catalog.Categories.Len() == 0 {
			return m.send(ctx, chat.Message{ChatID: ev.ChatID, Text: textNoCategories, Keyboard: menuKeyboard()})
		}
		s.State, s.Group = AwaitingCategoryGroup, ""
		return m.send(ctx, chat.Message{
			ChatID:   ev.ChatID,
			Text:     textChooseGroup,
			Keyboard: groupsKeyboard(m.catalog.Categories),
		})

	case core.FieldDate:
		s.State, s.View = AwaitingDateNav, calendar.ViewOf(m.today())
		return m.sendPicker(ctx, s, ev)
	}

	return m.send(ctx, chat.Message{ChatID: ev.ChatID, Text: textUnknownInput, Keyboard: menuKeyboard()})
}

func (m *Machine) receiveReply(ctx context.Context, s *Session, ev chat.Event) error {
	if ev.Kind != chat.EventText {
		return m.ignore(ctx, ev)
	}

	if err := s.Draft.Set(s.Pending, ev.Text); err != nil {
		if errors.Is(err, core.ErrNotANumber) {
			m.logger.DebugContext(ctx, "Rejected non-numeric amount",
				"user_id", ev.UserID,
				"field", string(s.Pending))
			return m.send(ctx, chat.Message{ChatID: ev.ChatID, Text: retryPrompt(s.Pending)})
		}
		return err
	}

	s.State, s.Pending = ChoosingField, ""
	return m.sendSummary(ctx, s, ev.ChatID)
}

func (m *Machine) pickCategory(ctx context.Context, s *Session, ev chat.Event) error {
	if ev.Kind != chat.EventCallback {
		s.State, s.Group = AwaitingCategoryGroup, ""
		return m.send(ctx, chat.Message{
			ChatID:   ev.ChatID,
			Text:     textChooseGroup,
			Keyboard: groupsKeyboard(m.catalog.Categories),
		})
	}

	if calendar.IsCallback(ev.Data) {
		return m.ignore(ctx, ev)
	}
	tree := m.catalog.Categories
	cb, ok := decodeCategory(ev.Data)
	if ok {
		cb, ok = cb.resolve(tree, s.Group)
	}
	if !ok {
		return m.transport.AnswerCallback(ctx, ev.CallbackID, textWentWrong)
	}

	switch cb.Action {
	case categoryGroup:
		items, ok := tree.Items(cb.Value)
		if !ok {
			return m.transport.AnswerCallback(ctx, ev.CallbackID, textWentWrong)
		}
		s.State, s.Group = AwaitingCategoryItem, cb.Value
		if err := m.transport.AnswerCallback(ctx, ev.CallbackID, ""); err != nil {
			return err
		}
		return m.transport.Edit(ctx, ev.ChatID, ev.MessageID, textPickCategory, itemsKeyboard(items))

	case categoryBack:
		s.State, s.Group = AwaitingCategoryGroup, ""
		if err := m.transport.AnswerCallback(ctx, ev.CallbackID, ""); err != nil {
			return err
		}
		return m.transport.Edit(ctx, ev.ChatID, ev.MessageID, textChooseGroup, groupsKeyboard(tree))

	case categoryItem:
		if _, ok := tree.GroupOf(cb.Value); !ok || s.State != AwaitingCategoryItem {
			return m.transport.AnswerCallback(ctx, ev.CallbackID, textWentWrong)
		}
		if err := s.Draft.Set(core.FieldCategory, cb.Value); err != nil {
			return err
		}
		s.State, s.Group = ChoosingField, ""
		if err := m.transport.AnswerCallback(ctx, ev.CallbackID, ""); err != nil {
			return err
		}
		if err := m.transport.Edit(ctx, ev.ChatID, ev.MessageID, textPickCategory, nil); err != nil {
			return err
		}
		return m.sendSummary(ctx, s, ev.ChatID)
	}
	return nil
}

func (m *Machine) navigateDate(ctx context.Context, s *Session, ev chat.Event) error {
	if ev.Kind != chat.EventCallback {
		return m.sendPicker(ctx, s, ev)
	}
	if !calendar.IsCallback(ev.Data) {
		return m.ignore(ctx, ev)
	}

	out := calendar.InterpretData(ev.Data)
	switch out.Kind {
	case calendar.OutcomeNoop:
		return m.transport.AnswerCallback(ctx, ev.CallbackID, "")

	case calendar.OutcomeNavigate:
		s.View = out.View
		if err := m.transport.AnswerCallback(ctx, ev.CallbackID, ""); err != nil {
			return err
		}
		return m.transport.Edit(ctx, ev.ChatID, ev.MessageID, textPickDate, pickerKeyboard(s.View))

	case calendar.OutcomeSelected:
		s.Draft.SetDate(out.Date)
		s.State, s.View = ChoosingField, calendar.View{}
		if err := m.transport.AnswerCallback(ctx, ev.CallbackID, ""); err != nil {
			return err
		}
		if err := m.transport.Edit(ctx, ev.ChatID, ev.MessageID, textPickDate, nil); err != nil {
			return err
		}
		if err := m.send(ctx, chat.Message{ChatID: ev.ChatID, Text: selected(s.Draft.Date), RemoveKeyboard: true}); err != nil {
			return err
		}
		return m.sendSummary(ctx, s, ev.ChatID)
	}

	m.logger.WarnContext(ctx, "Unknown calendar action",
		"user_id", ev.UserID,
		"data", ev.Data)
	return m.transport.AnswerCallback(ctx, ev.CallbackID, textWentWrong)
}

// submit discards any pending choice and hands the draft to the sink. On
// failure the session stays in ChoosingField with the draft intact.
func (m *Machine) submit(ctx context.Context, s *Session, ev chat.Event) error {
	s.State, s.Pending, s.Group = ChoosingField, "", ""

	if s.Draft.BothFlows() {
		m.logger.WarnContext(ctx, "Submitting transaction with both outflow and inflow",
			"user_id", ev.UserID,
			"outflow", s.Draft.Outflow.String(),
			"inflow", s.Draft.Inflow.String())
	}

	tx := s.Draft.Transaction()
	ref, err := m.sink.AppendTransaction(ctx, tx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSubmission, err)
	}

	m.log.LogSubmitted(ctx, ev.UserID, tx.Date, tx.Outflow.String(), tx.Inflow.String(), tx.Category, tx.Account, ref)

	summary := s.Draft.Summary(m.currency)
	*s = Session{}
	return m.send(ctx, chat.Message{
		ChatID:         ev.ChatID,
		Text:           saved(summary),
		Markdown:       true,
		RemoveKeyboard: true,
	})
}

func (m *Machine) sendSummary(ctx context.Context, s *Session, chatID int64) error {
	return m.send(ctx, chat.Message{
		ChatID:   chatID,
		Text:     soFar(s.Draft.Summary(m.currency)),
		Markdown: true,
		Keyboard: menuKeyboard(),
	})
}

func (m *Machine) sendPicker(ctx context.Context, s *Session, ev chat.Event) error {
	return m.send(ctx, chat.Message{ChatID: ev.ChatID, Text: textPickDate, Keyboard: pickerKeyboard(s.View)})
}

func (m *Machine) send(ctx context.Context, msg chat.Message) error {
	if _, err := m.transport.Send(ctx, msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}
