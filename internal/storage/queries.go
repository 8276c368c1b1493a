package storage

import (
	"context"
	"database/sql"
	"time"
)

// Row is one outbox record as stored.
type Row struct {
	ID         string
	UserID     int64
	Date       string
	Outflow    sql.NullInt64
	Inflow     sql.NullInt64
	Category   string
	Account    string
	Memo       string
	SyncStatus string
	SheetsRef  string
	Attempts   int64
	LastError  string
	CreatedAt  time.Time
	SyncedAt   sql.NullTime
}

const rowColumns = `id, user_id, date, outflow, inflow, category, account, memo,
       sync_status, sheets_ref, attempts, last_error, created_at, synced_at`

func scanRow(scanner interface{ Scan(...any) error }) (Row, error) {
	var r Row
	err := scanner.Scan(
		&r.ID,
		&r.UserID,
		&r.Date,
		&r.Outflow,
		&r.Inflow,
		&r.Category,
		&r.Account,
		&r.Memo,
		&r.SyncStatus,
		&r.SheetsRef,
		&r.Attempts,
		&r.LastError,
		&r.CreatedAt,
		&r.SyncedAt,
	)
	return r, err
}

const createTransaction = `
INSERT INTO transactions (id, user_id, date, outflow, inflow, category, account, memo, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateTransactionParams struct {
	ID        string
	UserID    int64
	Date      string
	Outflow   sql.NullInt64
	Inflow    sql.NullInt64
	Category  string
	Account   string
	Memo      string
	CreatedAt time.Time
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) error {
	_, err := q.db.ExecContext(ctx, createTransaction,
		arg.ID,
		arg.UserID,
		arg.Date,
		arg.Outflow,
		arg.Inflow,
		arg.Category,
		arg.Account,
		arg.Memo,
		arg.CreatedAt,
	)
	return err
}

const getTransaction = `SELECT ` + rowColumns + ` FROM transactions WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id string) (Row, error) {
	return scanRow(q.db.QueryRowContext(ctx, getTransaction, id))
}

const getUnsyncedTransactions = `SELECT ` + rowColumns + `
FROM transactions
WHERE sync_status != 'synced' AND attempts < ? AND claimed_until < ?
ORDER BY created_at, rowid
LIMIT ?`

type GetUnsyncedTransactionsParams struct {
	MaxAttempts int64
	Now         int64
	Limit       int64
}

func (q *Queries) GetUnsyncedTransactions(ctx context.Context, arg GetUnsyncedTransactionsParams) ([]Row, error) {
	rows, err := q.db.QueryContext(ctx, getUnsyncedTransactions, arg.MaxAttempts, arg.Now, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const markTransactionSynced = `
UPDATE transactions
SET sync_status = 'synced', sheets_ref = ?, last_error = '', synced_at = ?, claimed_until = 0
WHERE id = ?
`

type MarkTransactionSyncedParams struct {
	SheetsRef string
	SyncedAt  time.Time
	ID        string
}

func (q *Queries) MarkTransactionSynced(ctx context.Context, arg MarkTransactionSyncedParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, markTransactionSynced, arg.SheetsRef, arg.SyncedAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const markTransactionSyncError = `
UPDATE transactions
SET sync_status = 'error', attempts = attempts + 1, last_error = ?, claimed_until = 0
WHERE id = ? AND sync_status != 'synced'
`

type MarkTransactionSyncErrorParams struct {
	LastError string
	ID        string
}

func (q *Queries) MarkTransactionSyncError(ctx context.Context, arg MarkTransactionSyncErrorParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, markTransactionSyncError, arg.LastError, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const claimTransaction = `
UPDATE transactions
SET claimed_until = ?
WHERE id = ? AND sync_status != 'synced' AND attempts < ? AND claimed_until < ?
`

type ClaimTransactionParams struct {
	ClaimedUntil int64
	ID           string
	MaxAttempts  int64
	Now          int64
}

func (q *Queries) ClaimTransaction(ctx context.Context, arg ClaimTransactionParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, claimTransaction, arg.ClaimedUntil, arg.ID, arg.MaxAttempts, arg.Now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const releaseClaims = `
UPDATE transactions
SET claimed_until = 0
WHERE sync_status != 'synced' AND claimed_until != 0
`

func (q *Queries) ReleaseClaims(ctx context.Context) (int64, error) {
	res, err := q.db.ExecContext(ctx, releaseClaims)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const countByStatus = `SELECT sync_status, COUNT(*) FROM transactions GROUP BY sync_status`

type StatusCount struct {
	SyncStatus string
	Count      int64
}

func (q *Queries) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	rows, err := q.db.QueryContext(ctx, countByStatus)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []StatusCount
	for rows.Next() {
		var i StatusCount
		if err := rows.Scan(&i.SyncStatus, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
