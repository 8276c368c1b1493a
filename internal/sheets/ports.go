package sheets

import (
	"context"

	"aspirebot/internal/core"
)

// Ports for outbound adapters.
type (
	// ConfigurationReader loads the read-only catalog the conversation offers.
	ConfigurationReader interface {
		// ReadCategoryConfiguration returns the category tree, including the
		// synthetic "Others" group.
		ReadCategoryConfiguration(ctx context.Context) (core.CategoryTree, error)
		ReadAccounts(ctx context.Context) (core.Accounts, error)
	}

	// TransactionWriter is the Submission Sink.
	TransactionWriter interface {
		// AppendTransaction writes the six columns of tx as one row and
		// returns a reference to where it landed.
		AppendTransaction(ctx context.Context, tx core.Transaction) (rowRef string, err error)
	}
)
