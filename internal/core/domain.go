package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the dd/mm/yyyy layout used for the Date column.
const DateLayout = "02/01/2006"

const (
	FieldDate     Field = "Date"
	FieldOutflow  Field = "Outflow"
	FieldInflow   Field = "Inflow"
	FieldCategory Field = "Category"
	FieldAccount  Field = "Account"
	FieldMemo     Field = "Memo"
)

type (
	// Field names one column of a transaction row.
	Field string

	// Amount is an optional whole-number money value.
	Amount struct {
		Value int64
		Valid bool
	}

	// Transaction is a finished record, ready to be appended as a row.
	Transaction struct {
		Date     string
		Outflow  Amount
		Inflow   Amount
		Category string
		Account  string
		Memo     string
	}

	// Draft is the in-progress record of a session.
	Draft struct {
		Date     string
		Outflow  Amount
		Inflow   Amount
		Category string
		Account  string
		Memo     string
	}
)

var (
	ErrNotANumber   = errors.New("not a number")
	ErrUnknownField = errors.New("unknown field")
)

// Fields lists every field in summary order (Date first).
var Fields = []Field{FieldDate, FieldOutflow, FieldInflow, FieldCategory, FieldAccount, FieldMemo}

// IsMonetary reports whether the field only accepts integers.
func (f Field) IsMonetary() bool {
	return f == FieldOutflow || f == FieldInflow
}

// Valid reports whether f is one of the six known fields.
func (f Field) Valid() bool {
	for _, known := range Fields {
		if f == known {
			return true
		}
	}
	return false
}

func NewAmount(v int64) Amount {
	return Amount{Value: v, Valid: true}
}

// ParseAmount parses a base-10 integer. Surrounding whitespace is ignored
// and single underscores may separate digits, as in "50_000".
func ParseAmount(s string) (Amount, error) {
	digits, ok := stripSeparators(strings.TrimSpace(s))
	if !ok {
		return Amount{}, fmt.Errorf("%w: %q", ErrNotANumber, s)
	}
	v, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %q", ErrNotANumber, s)
	}
	return NewAmount(v), nil
}

// stripSeparators removes underscores that sit between two digits and
// rejects any other underscore.
func stripSeparators(s string) (string, bool) {
	if !strings.Contains(s, "_") {
		return s, true
	}
	isDigit := func(i int) bool { return i >= 0 && i < len(s) && s[i] >= '0' && s[i] <= '9' }
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '_' {
			if !isDigit(i-1) || !isDigit(i+1) {
				return "", false
			}
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String(), true
}

// String returns the decimal value, or "" when empty.
func (a Amount) String() string {
	if !a.Valid {
		return ""
	}
	return strconv.FormatInt(a.Value, 10)
}

// cell returns the value written to the sheet: the integer, or "" when empty.
func (a Amount) cell() any {
	if !a.Valid {
		return ""
	}
	return a.Value
}

// NewDraft returns an empty draft dated on now's calendar day.
func NewDraft(now time.Time) Draft {
	return Draft{Date: now.Format(DateLayout)}
}

// Set stores value into field. Monetary fields must parse as integers;
// on failure the draft is left unchanged.
func (d *Draft) Set(field Field, value string) error {
	switch field {
	case FieldDate:
		d.Date = value
	case FieldOutflow, FieldInflow:
		amt, err := ParseAmount(value)
		if err != nil {
			return err
		}
		if field == FieldOutflow {
			d.Outflow = amt
		} else {
			d.Inflow = amt
		}
	case FieldCategory:
		d.Category = value
	case FieldAccount:
		d.Account = value
	case FieldMemo:
		d.Memo = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}

// SetDate stores t as dd/mm/yyyy.
func (d *Draft) SetDate(t time.Time) {
	d.Date = t.Format(DateLayout)
}

// Value returns the display string of a field, without currency formatting.
func (d Draft) Value(field Field) string {
	switch field {
	case FieldDate:
		return d.Date
	case FieldOutflow:
		return d.Outflow.String()
	case FieldInflow:
		return d.Inflow.String()
	case FieldCategory:
		return d.Category
	case FieldAccount:
		return d.Account
	case FieldMemo:
		return d.Memo
	}
	return ""
}

// BothFlows reports whether outflow and inflow are both filled in.
func (d Draft) BothFlows() bool {
	return d.Outflow.Valid && d.Inflow.Valid
}

func (d Draft) Transaction() Transaction {
	return Transaction(d)
}

// Values returns the row in sheet column order:
// date, outflow, inflow, category, account, memo.
func (t Transaction) Values() []any {
	return []any{t.Date, t.Outflow.cell(), t.Inflow.cell(), t.Category, t.Account, t.Memo}
}
