// Package worker drains the SQLite outbox into the spreadsheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"aspirebot/internal/amqp"
	"aspirebot/internal/sheets"
	"aspirebot/internal/storage"
)

// DefaultBatchSize is used when the configured batch size is not positive.
const DefaultBatchSize = 10

// SyncWorker appends outbox records to the sheet and records the outcome.
type SyncWorker struct {
	storage   *storage.SQLiteRepository
	sheets    sheets.TransactionWriter
	batchSize int
}

func NewSyncWorker(storage *storage.SQLiteRepository, sheets sheets.TransactionWriter, batchSize int) *SyncWorker {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &SyncWorker{
		storage:   storage,
		sheets:    sheets,
		batchSize: batchSize,
	}
}

// HandleSubmitted processes one submission message from AMQP. Sheet failures
// are recorded on the record and left to the periodic sweep, so they do not
// cause a requeue.
func (w *SyncWorker) HandleSubmitted(ctx context.Context, msg *amqp.TransactionSubmittedMessage) error {
	slog.InfoContext(ctx, "Processing submitted transaction",
		"id", msg.ID,
		"user_id", msg.UserID)

	rec, err := w.storage.GetTransaction(ctx, msg.ID)
	if errors.Is(err, storage.ErrNotFound) {
		slog.WarnContext(ctx, "Transaction not found in outbox, dropping message", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	if rec.Status == storage.StatusSynced {
		slog.DebugContext(ctx, "Transaction already synced", "id", msg.ID, "sheets_ref", rec.SheetsRef)
		return nil
	}

	if _, err := w.syncToSheets(ctx, rec); err != nil {
		slog.ErrorContext(ctx, "Failed to sync transaction", "id", msg.ID, "error", err)
	}
	return nil
}

// ProcessPending syncs one batch of unsynced records and returns how many
// made it to the sheet. This is the backup path for lost AMQP messages.
func (w *SyncWorker) ProcessPending(ctx context.Context) (int, error) {
	return w.processBatch(ctx, w.batchSize)
}

// StartupSyncCheck drains a larger batch at startup to recover from
// worker downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	counts, err := w.storage.Counts(ctx)
	if err != nil {
		return fmt.Errorf("count transactions for startup check: %w", err)
	}
	// No other syncer runs yet, so any claim is left over from a dead worker.
	if _, err := w.storage.ReleaseClaims(ctx); err != nil {
		return fmt.Errorf("release stale claims: %w", err)
	}
	if counts[storage.StatusPending]+counts[storage.StatusError] == 0 {
		slog.InfoContext(ctx, "No pending transactions found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending transactions on startup, processing...",
		"pending", counts[storage.StatusPending],
		"errors", counts[storage.StatusError])

	synced, err := w.processBatch(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync: %w", err)
	}

	slog.InfoContext(ctx, "Startup sync completed", "synced", synced)
	return nil
}

// Run sweeps the outbox every interval until ctx is done.
func (w *SyncWorker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.ProcessPending(ctx); err != nil {
				slog.ErrorContext(ctx, "Failed to process pending transactions", "error", err)
			}
		}
	}
}

func (w *SyncWorker) processBatch(ctx context.Context, limit int) (int, error) {
	pending, err := w.storage.PendingTransactions(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("get pending transactions: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	synced := 0
	for _, rec := range pending {
		if err := ctx.Err(); err != nil {
			return synced, err
		}
		ok, err := w.syncToSheets(ctx, rec)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to sync transaction",
				"id", rec.ID,
				"attempts", rec.Attempts+1,
				"error", err)
			continue
		}
		if ok {
			synced++
		}
	}
	return synced, nil
}

// syncToSheets appends rec once it holds the claim on it. It reports false
// without error when another syncer owns the record or it is already done.
func (w *SyncWorker) syncToSheets(ctx context.Context, rec storage.Transaction) (bool, error) {
	claimed, err := w.storage.Claim(ctx, rec.ID)
	if err != nil {
		return false, err
	}
	if !claimed {
		slog.DebugContext(ctx, "Transaction claimed elsewhere or no longer pending, skipping", "id", rec.ID)
		return false, nil
	}

	ref, err := w.sheets.AppendTransaction(ctx, rec.Transaction)
	if err != nil {
		if markErr := w.storage.MarkSyncError(ctx, rec.ID, err); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", rec.ID, "error", markErr)
		}
		return false, fmt.Errorf("append to sheets: %w", err)
	}

	// The row is in the sheet; a failed mark only risks a duplicate on the next sweep.
	if err := w.storage.MarkSynced(ctx, rec.ID, ref); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", rec.ID, "error", err)
	}

	slog.InfoContext(ctx, "Successfully synced transaction",
		"id", rec.ID,
		"user_id", rec.UserID,
		"sheets_ref", ref,
		"date", rec.Transaction.Date)
	return true, nil
}
