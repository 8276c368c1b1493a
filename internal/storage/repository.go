// Package storage is the SQLite outbox of the queued backend: submissions
// are recorded here synchronously and synced to the spreadsheet later.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"aspirebot/internal/core"

	_ "modernc.org/sqlite"
)

// MaxAttempts is how many failed syncs a transaction gets before the sweep
// stops picking it up.
const MaxAttempts = 5

// ClaimTimeout bounds how long a claim blocks other syncers. A worker that
// dies mid-sync leaves a claim that expires after this long.
const ClaimTimeout = 2 * time.Minute

// ErrNotFound is returned when no transaction has the requested ID.
var ErrNotFound = errors.New("transaction not found")

// Status is the sync state of an outbox record.
type Status string

const (
	StatusPending Status = "pending"
	StatusSynced  Status = "synced"
	StatusError   Status = "error"
)

// Transaction is an outbox record.
type Transaction struct {
	ID          string
	UserID      int64
	Transaction core.Transaction
	Status      Status
	SheetsRef   string
	Attempts    int
	LastError   string
	CreatedAt   time.Time
	SyncedAt    *time.Time
}

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func nullAmount(a core.Amount) sql.NullInt64 {
	return sql.NullInt64{Int64: a.Value, Valid: a.Valid}
}

func amountOf(n sql.NullInt64) core.Amount {
	if !n.Valid {
		return core.Amount{}
	}
	return core.NewAmount(n.Int64)
}

func fromRow(row Row) Transaction {
	t := Transaction{
		ID:     row.ID,
		UserID: row.UserID,
		Transaction: core.Transaction{
			Date:     row.Date,
			Outflow:  amountOf(row.Outflow),
			Inflow:   amountOf(row.Inflow),
			Category: row.Category,
			Account:  row.Account,
			Memo:     row.Memo,
		},
		Status:    Status(row.SyncStatus),
		SheetsRef: row.SheetsRef,
		Attempts:  int(row.Attempts),
		LastError: row.LastError,
		CreatedAt: row.CreatedAt,
	}
	if row.SyncedAt.Valid {
		synced := row.SyncedAt.Time
		t.SyncedAt = &synced
	}
	return t
}

// InsertPending records tx as waiting for sync and returns its new ID.
func (r *SQLiteRepository) InsertPending(ctx context.Context, userID int64, tx core.Transaction) (string, error) {
	id := uuid.NewString()
	err := r.queries.CreateTransaction(ctx, CreateTransactionParams{
		ID:        id,
		UserID:    userID,
		Date:      tx.Date,
		Outflow:   nullAmount(tx.Outflow),
		Inflow:    nullAmount(tx.Inflow),
		Category:  tx.Category,
		Account:   tx.Account,
		Memo:      tx.Memo,
		CreatedAt: r.now(),
	})
	if err != nil {
		return "", fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to outbox",
		"id", id,
		"user_id", userID,
		"date", tx.Date,
		"category", tx.Category)

	return id, nil
}

// GetTransaction retrieves a single record by ID
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Transaction{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Transaction{}, fmt.Errorf("get transaction by id: %w", err)
	}
	return fromRow(row), nil
}

// PendingTransactions returns up to limit unsynced records, oldest first,
// skipping those that already failed MaxAttempts times or are claimed.
func (r *SQLiteRepository) PendingTransactions(ctx context.Context, limit int) ([]Transaction, error) {
	rows, err := r.queries.GetUnsyncedTransactions(ctx, GetUnsyncedTransactionsParams{
		MaxAttempts: MaxAttempts,
		Now:         r.now().UnixNano(),
		Limit:       int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("get pending transactions: %w", err)
	}

	out := make([]Transaction, len(rows))
	for i, row := range rows {
		out[i] = fromRow(row)
	}
	return out, nil
}

// Claim reserves an unsynced record for one syncer until ClaimTimeout
// passes or the outcome is marked. It reports false when the record is
// synced, exhausted, missing, or already claimed.
func (r *SQLiteRepository) Claim(ctx context.Context, id string) (bool, error) {
	now := r.now()
	n, err := r.queries.ClaimTransaction(ctx, ClaimTransactionParams{
		ClaimedUntil: now.Add(ClaimTimeout).UnixNano(),
		ID:           id,
		MaxAttempts:  MaxAttempts,
		Now:          now.UnixNano(),
	})
	if err != nil {
		return false, fmt.Errorf("claim transaction: %w", err)
	}
	return n == 1, nil
}

// ReleaseClaims drops every outstanding claim. Only call it when no other
// syncer is running, e.g. at worker startup.
func (r *SQLiteRepository) ReleaseClaims(ctx context.Context) (int64, error) {
	n, err := r.queries.ReleaseClaims(ctx)
	if err != nil {
		return 0, fmt.Errorf("release claims: %w", err)
	}
	if n > 0 {
		slog.WarnContext(ctx, "Released stale sync claims", "count", n)
	}
	return n, nil
}

// MarkSynced records where the row landed in the spreadsheet
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id, sheetsRef string) error {
	n, err := r.queries.MarkTransactionSynced(ctx, MarkTransactionSyncedParams{
		SheetsRef: sheetsRef,
		SyncedAt:  r.now(),
		ID:        id,
	})
	if err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	slog.InfoContext(ctx, "Transaction marked as synced", "id", id, "sheets_ref", sheetsRef)
	return nil
}

// MarkSyncError counts a failed attempt. Synced records are left alone.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	if _, err := r.queries.MarkTransactionSyncError(ctx, MarkTransactionSyncErrorParams{
		LastError: msg,
		ID:        id,
	}); err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}

	slog.WarnContext(ctx, "Transaction marked with sync error", "id", id, "error", msg)
	return nil
}

// Counts returns how many records are in each status.
func (r *SQLiteRepository) Counts(ctx context.Context) (map[Status]int64, error) {
	rows, err := r.queries.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	out := make(map[Status]int64, len(rows))
	for _, row := range rows {
		out[Status(row.SyncStatus)] = row.Count
	}
	return out, nil
}
