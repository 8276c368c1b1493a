package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"aspirebot/internal/core"
	ports "aspirebot/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Default named ranges of the budget spreadsheet.
const (
	DefaultConfigurationRange = "r_ConfigurationData"
	DefaultCategoriesRange    = "TransactionCategories"
	DefaultAccountsRange      = "cfg_Accounts"
	DefaultDatesRange         = "trx_Dates"
)

// Config locates the spreadsheet and the ranges the bot reads and writes.
type Config struct {
	SpreadsheetID string
	// CredentialsJSON or CredentialsFile hold a service account key. When
	// both are empty GOOGLE_APPLICATION_CREDENTIALS is used.
	CredentialsJSON string
	CredentialsFile string

	ConfigurationRange string
	CategoriesRange    string
	AccountsRange      string
	DatesRange         string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	configRange   string
	catsRange     string
	accountsRange string
	datesRange    string
}

// Ensure interface conformance
var (
	_ ports.ConfigurationReader = (*Client)(nil)
	_ ports.TransactionWriter   = (*Client)(nil)
)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, cfg), nil
}

// NewWithService wraps an existing service; empty ranges get the defaults.
func NewWithService(svc *gsheet.Service, cfg Config) *Client {
	return &Client{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(cfg.SpreadsheetID),
		configRange:   orDefault(cfg.ConfigurationRange, DefaultConfigurationRange),
		catsRange:     orDefault(cfg.CategoriesRange, DefaultCategoriesRange),
		accountsRange: orDefault(cfg.AccountsRange, DefaultAccountsRange),
		datesRange:    orDefault(cfg.DatesRange, DefaultDatesRange),
	}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	credentialsJSON := strings.TrimSpace(cfg.CredentialsJSON)
	credentialsFile := strings.TrimSpace(cfg.CredentialsFile)
	if credentialsJSON == "" && credentialsFile == "" {
		credentialsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var (
		raw []byte
		err error
	)
	switch {
	case credentialsJSON != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		raw = []byte(credentialsJSON)
	case credentialsFile != "":
		slog.InfoContext(ctx, "Reading service account credentials", "path", credentialsFile)
		raw, err = os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set gsheet_api_key_filepath, credentials_json or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(raw),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created")
	return service, nil
}

// ReadCategoryConfiguration reads the configuration range for groups and
// the category range for the authoritative category list.
func (c *Client) ReadCategoryConfiguration(ctx context.Context) (core.CategoryTree, error) {
	if c.svc == nil {
		return core.CategoryTree{}, errors.New("sheets service not initialized")
	}
	config, err := c.readRows(ctx, c.configRange)
	if err != nil {
		return core.CategoryTree{}, fmt.Errorf("failed to read category configuration: %w", err)
	}
	all, err := c.readRows(ctx, c.catsRange)
	if err != nil {
		return core.CategoryTree{}, fmt.Errorf("failed to read categories: %w", err)
	}
	return core.NewCategoryTree(ports.ParseConfiguration(config), ports.Flatten(all)), nil
}

func (c *Client) ReadAccounts(ctx context.Context) (core.Accounts, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rows, err := c.readRows(ctx, c.accountsRange)
	if err != nil {
		return nil, fmt.Errorf("failed to read accounts: %w", err)
	}
	return core.NewAccounts(rows), nil
}

// AppendTransaction writes tx into the first row whose date cell is blank,
// starting at the date column and spanning the six transaction columns.
func (c *Client) AppendTransaction(ctx context.Context, tx core.Transaction) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.datesRange).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", c.datesRange, err)
	}
	start, err := parseA1Range(resp.Range)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", c.datesRange, err)
	}

	row := start.StartRow + firstBlank(resp.Values)
	if start.EndRow > 0 && row > start.EndRow {
		return "", fmt.Errorf("no blank row left in %s (%s)", c.datesRange, resp.Range)
	}

	values := tx.Values()
	endCol, err := shiftColumn(start.Column, len(values)-1)
	if err != nil {
		return "", err
	}
	target := fmt.Sprintf("%s!%s%d:%s%d", quoteSheet(start.Sheet), start.Column, row, endCol, row)
	vr := &gsheet.ValueRange{Values: [][]any{values}}

	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, target, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to update %s: %w", target, err)
	}
	return target, nil
}

func (c *Client) readRows(ctx context.Context, rng string) ([][]string, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	rows := make([][]string, 0, len(resp.Values))
	for _, r := range resp.Values {
		rows = append(rows, toStrings(r))
	}
	return rows, nil
}

// firstBlank returns the index of the first row whose first cell is empty.
// The API drops trailing empty rows, so a full list yields len(values).
func firstBlank(values [][]interface{}) int {
	for i, row := range values {
		if len(row) == 0 || strings.TrimSpace(fmt.Sprint(row[0])) == "" {
			return i
		}
	}
	return len(values)
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}
