package adapters

import (
	"context"
	"errors"

	"aspirebot/internal/chat"
	"aspirebot/internal/core"
	"aspirebot/internal/sheets"
)

// Submitter stores a transaction for later delivery to the sheet.
type Submitter interface {
	SubmitTransaction(ctx context.Context, userID int64, tx core.Transaction) (string, error)
}

// QueuedAdapter reads the catalog straight from the spreadsheet but routes
// submissions through the SQLite outbox, so a slow or unavailable Sheets API
// never blocks the conversation.
type QueuedAdapter struct {
	catalog sheets.ConfigurationReader
	service Submitter
}

var (
	_ sheets.ConfigurationReader = (*QueuedAdapter)(nil)
	_ sheets.TransactionWriter   = (*QueuedAdapter)(nil)
)

func NewQueuedAdapter(catalog sheets.ConfigurationReader, service Submitter) *QueuedAdapter {
	return &QueuedAdapter{
		catalog: catalog,
		service: service,
	}
}

// ReadCategoryConfiguration implements sheets.ConfigurationReader
func (a *QueuedAdapter) ReadCategoryConfiguration(ctx context.Context) (core.CategoryTree, error) {
	if a.catalog == nil {
		return core.CategoryTree{}, errors.New("catalog source not configured")
	}
	return a.catalog.ReadCategoryConfiguration(ctx)
}

// ReadAccounts implements sheets.ConfigurationReader
func (a *QueuedAdapter) ReadAccounts(ctx context.Context) (core.Accounts, error) {
	if a.catalog == nil {
		return nil, errors.New("catalog source not configured")
	}
	return a.catalog.ReadAccounts(ctx)
}

// AppendTransaction implements sheets.TransactionWriter. The returned
// reference names the outbox record, not a sheet row.
func (a *QueuedAdapter) AppendTransaction(ctx context.Context, tx core.Transaction) (string, error) {
	return a.service.SubmitTransaction(ctx, chat.SenderFrom(ctx), tx)
}
