// Package core holds the transaction record being collected and the
// read-only catalog (categories, accounts) the conversation offers.
//
// This file formats whole-number amounts for display.
package core

import (
	"strings"

	"github.com/Rhymond/go-money"
)

// DefaultSymbol is the currency prefix used when none is configured.
const DefaultSymbol = "Rp"

// Currency renders amounts as "<symbol> <grouped digits>", e.g. "Rp 50,000".
type Currency struct {
	formatter *money.Formatter
}

// NewCurrency builds a display currency with comma thousands separators and
// no fraction digits. An empty symbol falls back to DefaultSymbol.
func NewCurrency(symbol string) Currency {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		symbol = DefaultSymbol
	}
	return Currency{formatter: money.NewFormatter(0, ".", ",", symbol, "$ 1")}
}

// Format renders a valid amount; empty amounts render as "".
func (c Currency) Format(a Amount) string {
	if !a.Valid {
		return ""
	}
	if c.formatter == nil {
		c = NewCurrency(DefaultSymbol)
	}
	return c.formatter.Format(a.Value)
}
