package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"aspirebot/internal/core"
	"aspirebot/internal/sheets"
)

// Store is an in-process Spreadsheet Store.
type Store struct {
	mu        sync.Mutex
	tree      core.CategoryTree
	accounts  core.Accounts
	rows      []core.Transaction
	appendErr error
}

var (
	_ sheets.ConfigurationReader = (*Store)(nil)
	_ sheets.TransactionWriter   = (*Store)(nil)
)

func New(groups []core.CategoryGroup, all []string, accounts core.Accounts) *Store {
	return &Store{
		tree:     core.NewCategoryTree(groups, all),
		accounts: append(core.Accounts(nil), accounts...),
	}
}

// NewFromFiles seeds the store from base/seed_categories.txt and
// base/seed_accounts.txt. Category lines starting with "✦" open a group;
// other lines are categories of the open group, or ungrouped before the
// first group. Blank lines and "#" comments are skipped.
func NewFromFiles(base string) *Store {
	catLines := readLines(filepath.Join(base, "seed_categories.txt"))
	accounts := readLines(filepath.Join(base, "seed_accounts.txt"))
	if len(catLines) == 0 {
		catLines = []string{"✦ Food", "Groceries", "Restaurants", "✦ Transport", "Fuel", "Parking", "Gifts"}
	}
	if len(accounts) == 0 {
		accounts = []string{"Cash", "Checking", "Savings"}
	}

	rows := make([][]string, 0, len(catLines))
	var all []string
	for _, line := range catLines {
		if name, ok := strings.CutPrefix(line, sheets.GroupMarker); ok {
			rows = append(rows, []string{sheets.GroupMarker, strings.TrimSpace(name)})
			continue
		}
		rows = append(rows, []string{"", line})
		all = append(all, line)
	}
	return New(sheets.ParseConfiguration(rows), all, core.NewAccounts([][]string{accounts}))
}

func (s *Store) ReadCategoryConfiguration(_ context.Context) (core.CategoryTree, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree, nil
}

func (s *Store) ReadAccounts(_ context.Context) (core.Accounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(core.Accounts(nil), s.accounts...), nil
}

// AppendTransaction stores the row and returns a synthetic row reference.
func (s *Store) AppendTransaction(_ context.Context, tx core.Transaction) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return "", s.appendErr
	}
	s.rows = append(s.rows, tx)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// FailAppends makes every following append return err; nil restores success.
func (s *Store) FailAppends(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendErr = err
}

// Transactions returns the rows appended so far.
func (s *Store) Transactions() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.rows...)
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
