package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"aspirebot/internal/core"
	applog "aspirebot/internal/log"
	"aspirebot/internal/storage"
)

// Publisher announces new outbox records to the sync worker.
type Publisher interface {
	PublishTransactionSubmitted(ctx context.Context, id string, userID int64) error
	Close() error
}

// TransactionService records submissions in the outbox and notifies the
// worker. The outbox write is the commit point.
type TransactionService struct {
	storage   *storage.SQLiteRepository
	publisher Publisher
}

// NewTransactionService wires the outbox with an optional publisher; without
// one, records wait for the worker's periodic sweep.
func NewTransactionService(storage *storage.SQLiteRepository, publisher Publisher) *TransactionService {
	return &TransactionService{
		storage:   storage,
		publisher: publisher,
	}
}

// SubmitTransaction saves tx for userID and returns the outbox reference.
func (s *TransactionService) SubmitTransaction(ctx context.Context, userID int64, tx core.Transaction) (string, error) {
	if s.storage == nil {
		return "", errors.New("outbox not configured")
	}

	id, err := s.storage.InsertPending(ctx, userID, tx)
	if err != nil {
		return "", fmt.Errorf("save transaction: %w", err)
	}

	if err := s.publish(ctx, id, userID); err != nil {
		// The sweep picks the record up later.
		applog.FromContext(ctx).ErrorContext(ctx, "Failed to publish transaction message",
			"id", id,
			applog.FieldUserID, userID,
			applog.FieldOperation, applog.OpPublish,
			applog.FieldError, err)
	}

	return "outbox:" + id, nil
}

func (s *TransactionService) publish(ctx context.Context, id string, userID int64) error {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not available, leaving transaction for the sweep", "id", id)
		return nil
	}
	return s.publisher.PublishTransactionSubmitted(ctx, id, userID)
}

// Close closes both storage and AMQP connections
func (s *TransactionService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close transaction service: %w", errors.Join(errs...))
	}
	return nil
}
