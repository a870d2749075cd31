// Package stats derives the income/expense/savings/balance quadruple from a
// transaction snapshot.
package stats

import "github.com/Veraticus/dompet/internal/model"

// Stats is the aggregate view of a transaction set. Balance is income minus
// expense; savings is tracked on its own and does not reduce the balance.
type Stats struct {
	Income  int64 `json:"income"`
	Expense int64 `json:"expense"`
	Savings int64 `json:"savings"`
	Balance int64 `json:"balance"`
}

// Compute sums amounts by type over txns.
func Compute(txns []model.Transaction) Stats {
	var s Stats
	for _, txn := range txns {
		switch txn.Type {
		case model.TypeIncome:
			s.Income += txn.Amount
		case model.TypeExpense:
			s.Expense += txn.Amount
		case model.TypeSavings:
			s.Savings += txn.Amount
		}
	}
	s.Balance = Balance(s.Income, s.Expense)
	return s
}

// Balance is the single definition of balance used across the app.
func Balance(income, expense int64) int64 {
	return income - expense
}

// SavingsRate returns savings as a percentage of income, or 0 without income.
func (s Stats) SavingsRate() float64 {
	if s.Income == 0 {
		return 0
	}
	return float64(s.Savings) / float64(s.Income) * 100
}
