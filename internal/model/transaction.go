// Package model defines the ledger's data types.
package model

import (
	"fmt"
	"time"
)

// TransactionType is the kind of a transaction; the amount's sign is implied by it.
type TransactionType string

const (
	// TypeIncome adds to the balance.
	TypeIncome TransactionType = "income"
	// TypeExpense subtracts from the balance.
	TypeExpense TransactionType = "expense"
	// TypeSavings is tracked separately and does not affect the balance.
	TypeSavings TransactionType = "savings"
)

// DateLayout is the storage format of Transaction.Date.
const DateLayout = "2006-01-02"

// Types lists every valid transaction type in display order.
func Types() []TransactionType {
	return []TransactionType{TypeIncome, TypeExpense, TypeSavings}
}

// Valid reports whether t is a known type.
func (t TransactionType) Valid() bool {
	switch t {
	case TypeIncome, TypeExpense, TypeSavings:
		return true
	}
	return false
}

// ParseType converts user input into a TransactionType.
func ParseType(s string) (TransactionType, error) {
	t := TransactionType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown transaction type %q (want income, expense or savings)", s)
	}
	return t, nil
}

// Transaction is a single ledger record. Amount is a non-negative number of whole Rupiah.
type Transaction struct {
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	ID        string          `json:"id"`
	Type      TransactionType `json:"type"`
	Category  string          `json:"category"`
	Notes     string          `json:"notes"`
	Date      string          `json:"date"`
	Amount    int64           `json:"amount"`
}

// Time returns the transaction date at midnight UTC.
func (t Transaction) Time() time.Time {
	d, err := time.Parse(DateLayout, t.Date)
	if err != nil {
		return time.Time{}
	}
	return d
}

// Draft is a candidate transaction without server-assigned fields.
type Draft struct {
	Date     time.Time       `json:"date"`
	Type     TransactionType `json:"type"`
	Category string          `json:"category"`
	Notes    string          `json:"notes"`
	Amount   int64           `json:"amount"`
}

// Patch carries a partial update; nil fields keep their previous value.
type Patch struct {
	Type     *TransactionType `json:"type,omitempty"`
	Category *string          `json:"category,omitempty"`
	Amount   *int64           `json:"amount,omitempty"`
	Notes    *string          `json:"notes,omitempty"`
	Date     *time.Time       `json:"date,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Type == nil && p.Category == nil && p.Amount == nil && p.Notes == nil && p.Date == nil
}

// Apply merges the patch over txn and returns the result. Timestamps are untouched.
func (p Patch) Apply(txn Transaction) Transaction {
	if p.Type != nil {
		txn.Type = *p.Type
	}
	if p.Category != nil {
		txn.Category = *p.Category
	}
	if p.Amount != nil {
		txn.Amount = *p.Amount
	}
	if p.Notes != nil {
		txn.Notes = *p.Notes
	}
	if p.Date != nil {
		txn.Date = FormatDate(*p.Date)
	}
	return txn
}

// FormatDate normalizes a calendar date to YYYY-MM-DD in the value's own location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return d, nil
}

// DateRange is an inclusive range of calendar dates. Empty bounds are open.
type DateRange struct {
	From string
	To   string
}

// MonthRange returns the inclusive range covering t's calendar month.
func MonthRange(t time.Time) DateRange {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	last := first.AddDate(0, 1, -1)
	return DateRange{From: FormatDate(first), To: FormatDate(last)}
}

// Contains reports whether the YYYY-MM-DD date falls inside the range.
func (r DateRange) Contains(date string) bool {
	if r.From != "" && date < r.From {
		return false
	}
	if r.To != "" && date > r.To {
		return false
	}
	return true
}
