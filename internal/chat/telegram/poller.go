package telegram

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"aspirebot/internal/chat"
)

// Dispatcher receives converted events.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev chat.Event) error
}

// Updater is the long-polling side of *tgbotapi.BotAPI.
type Updater interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Poller feeds long-polled updates to a Dispatcher in arrival order.
type Poller struct {
	updater    Updater
	dispatcher Dispatcher
	timeout    int
	logger     *slog.Logger
}

func NewPoller(updater Updater, dispatcher Dispatcher, timeout int, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		updater:    updater,
		dispatcher: dispatcher,
		timeout:    timeout,
		logger:     logger,
	}
}

// Run polls until ctx is done. Dispatch errors are logged and do not stop
// the loop.
func (p *Poller) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = p.timeout
	updates := p.updater.GetUpdatesChan(cfg)
	defer p.updater.StopReceivingUpdates()

	p.logger.Info("Polling for updates", "timeout", p.timeout)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			handleUpdate(ctx, p.dispatcher, p.logger, u)
		}
	}
}

func handleUpdate(ctx context.Context, d Dispatcher, logger *slog.Logger, u tgbotapi.Update) {
	ev, ok := ToEvent(u)
	if !ok {
		logger.Debug("Ignoring update", "update_id", u.UpdateID)
		return
	}
	if err := d.Dispatch(ctx, ev); err != nil {
		logger.Error("Failed to handle update",
			"update_id", u.UpdateID,
			"user_id", ev.UserID,
			"event", ev.Kind.String(),
			"error", err)
	}
}
