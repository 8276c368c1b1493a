package conversation

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"aspirebot/internal/access"
	"aspirebot/internal/cache"
	"aspirebot/internal/chat"
	applog "aspirebot/internal/log"
	"aspirebot/internal/ratelimit"
)

// SessionStore maps a user ID to its session.
type SessionStore = cache.Cache[int64, Session]

// Dispatcher is the entry point for inbound events. It applies the access
// policy and rate limit once, then runs the Machine under a per-user lock.
type Dispatcher struct {
	machine  *Machine
	sessions SessionStore
	policy   access.Policy
	limiter  *ratelimit.Limiter
	locks    *keyedMutex
	logger   *applog.Logger
	log      *applog.StructuredLogger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithPolicy restricts who may talk to the bot. The default admits everyone.
func WithPolicy(p access.Policy) DispatcherOption {
	return func(d *Dispatcher) { d.policy = p }
}

// WithRateLimiter drops events from users over their budget.
func WithRateLimiter(l *ratelimit.Limiter) DispatcherOption {
	return func(d *Dispatcher) { d.limiter = l }
}

// WithLogger sets the logger used for dispatch records.
func WithLogger(l *applog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = l
		d.log = applog.NewStructuredLogger(l)
	}
}

func NewDispatcher(machine *Machine, sessions SessionStore, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		machine:  machine,
		sessions: sessions,
		policy:   access.Open{},
		locks:    newKeyedMutex(),
	}
	WithLogger(applog.New(applog.Config{
		Component: applog.ComponentDispatch,
		Handler:   slog.Default().Handler(),
	}))(d)
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch handles one event to completion. Events from the same user are
// processed one at a time; different users proceed concurrently.
func (d *Dispatcher) Dispatch(ctx context.Context, ev chat.Event) error {
	if !d.policy.Allow(ev.UserID) {
		d.log.LogDenied(ctx, ev.UserID, ev.ChatID, "Unauthorized access")
		return nil
	}
	if d.limiter != nil && !d.limiter.Allow(ev.UserID) {
		d.log.LogDenied(ctx, ev.UserID, ev.ChatID, "Rate limit exceeded")
		return nil
	}

	unlock := d.locks.lock(ev.UserID)
	defer unlock()

	ctx = chat.WithSender(applog.WithContext(ctx, d.logger), ev.UserID)
	s, _ := d.sessions.Get(ev.UserID)
	from := s.State
	before := s
	err := d.machine.Handle(ctx, &s, ev)
	if shouldRollback(err, s) {
		s = before
	}
	if s.Active() {
		d.sessions.Set(ev.UserID, s)
	} else {
		d.sessions.Delete(ev.UserID)
	}

	d.log.LogTransition(ctx, ev.UserID, ev.ChatID, ev.Kind.String(), from.String(), s.State.String())
	if err != nil {
		d.log.LogError(ctx, "Failed to handle event", err, applog.OpDispatch,
			applog.NewFields().WithSender(ev.UserID, ev.ChatID).WithTransition(ev.Kind.String(), from.String(), s.State.String()))
	}
	return err
}

// shouldRollback reports whether a failed event must leave the session as it
// was, so the user never lands in a state whose prompt they did not see.
// Submission failures keep their own recovery state, and an ended session
// has already written its row.
func shouldRollback(err error, after Session) bool {
	return err != nil && !errors.Is(err, ErrSubmission) && after.Active()
}

// Session returns a copy of the user's session, for inspection.
func (d *Dispatcher) Session(userID int64) (Session, bool) {
	return d.sessions.Get(userID)
}

type (
	keyedMutex struct {
		mu    sync.Mutex
		locks map[int64]*refMutex
	}

	refMutex struct {
		sync.Mutex
		refs int
	}
)

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[int64]*refMutex)}
}

// lock acquires the mutex for id and returns its release. Entries are
// dropped once nobody holds or waits for them.
func (k *keyedMutex) lock(id int64) func() {
	k.mu.Lock()
	m, ok := k.locks[id]
	if !ok {
		m = &refMutex{}
		k.locks[id] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}
