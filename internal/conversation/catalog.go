package conversation

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"aspirebot/internal/core"
	"aspirebot/internal/sheets"
)

// Catalog is the read-only configuration a Machine offers as choices.
type Catalog struct {
	Categories core.CategoryTree
	Accounts   core.Accounts
}

// LoadCatalog reads categories and accounts concurrently.
func LoadCatalog(ctx context.Context, r sheets.ConfigurationReader) (Catalog, error) {
	var c Catalog
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tree, err := r.ReadCategoryConfiguration(gctx)
		if err != nil {
			return fmt.Errorf("read categories: %w", err)
		}
		c.Categories = tree
		return nil
	})
	g.Go(func() error {
		accounts, err := r.ReadAccounts(gctx)
		if err != nil {
			return fmt.Errorf("read accounts: %w", err)
		}
		c.Accounts = accounts
		return nil
	})
	if err := g.Wait(); err != nil {
		return Catalog{}, err
	}
	return c, nil
}
