//go:build integration

package google

import (
	"context"
	"os"
	"testing"
)

// Integration tests require a real spreadsheet shared with the service account.
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_ReadCatalog(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	spreadsheetID := os.Getenv("GSHEET_GSHEET_WORKSHEET_ID")
	if spreadsheetID == "" {
		t.Skip("GSHEET_GSHEET_WORKSHEET_ID not set, skipping integration test")
	}

	c, err := New(context.Background(), Config{
		SpreadsheetID:   spreadsheetID,
		CredentialsFile: os.Getenv("GSHEET_GSHEET_API_KEY_FILEPATH"),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	tree, err := c.ReadCategoryConfiguration(context.Background())
	if err != nil {
		t.Fatalf("read categories: %v", err)
	}
	if tree.Len() == 0 {
		t.Fatal("expected at least one category")
	}
	accounts, err := c.ReadAccounts(context.Background())
	if err != nil {
		t.Fatalf("read accounts: %v", err)
	}
	t.Logf("read %d categories in %d groups and %d accounts", tree.Len(), len(tree.Groups()), len(accounts))
}
