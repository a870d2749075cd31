// Package analytics computes read-only views over ledger snapshots: category
// breakdowns, the 50/30/20 recommendation, moving averages and monthly trends.
package analytics

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/dompet/internal/model"
	"github.com/Veraticus/dompet/internal/stats"
)

// Aggregator is the slice of the ledger the analytics need for month totals.
type Aggregator interface {
	Aggregate(ctx context.Context, typ model.TransactionType, rng model.DateRange) (int64, error)
}

// CategoryTotal is the summed expense of one category.
type CategoryTotal struct {
	Category string  `json:"category"`
	Total    int64   `json:"total"`
	Percent  float64 `json:"percent"`
	Count    int     `json:"count"`
}

// CategoryBreakdown groups expense transactions by category and sorts the
// groups by total, largest first. Equal totals keep the order in which their
// category first appeared in txns.
func CategoryBreakdown(txns []model.Transaction) []CategoryTotal {
	index := make(map[string]int)
	totals := []CategoryTotal{}
	var grand int64

	for _, txn := range txns {
		if txn.Type != model.TypeExpense {
			continue
		}
		i, ok := index[txn.Category]
		if !ok {
			i = len(totals)
			index[txn.Category] = i
			totals = append(totals, CategoryTotal{Category: txn.Category})
		}
		totals[i].Total += txn.Amount
		totals[i].Count++
		grand += txn.Amount
	}

	if grand > 0 {
		for i := range totals {
			totals[i].Percent = float64(totals[i].Total) / float64(grand) * 100
		}
	}

	slices.SortStableFunc(totals, func(a, b CategoryTotal) int {
		return cmp.Compare(b.Total, a.Total)
	})
	return totals
}

// LargestExpenseCategory returns the top entry of CategoryBreakdown.
func LargestExpenseCategory(txns []model.Transaction) (CategoryTotal, bool) {
	breakdown := CategoryBreakdown(txns)
	if len(breakdown) == 0 {
		return CategoryTotal{}, false
	}
	return breakdown[0], true
}

// TopCategories returns at most n entries of CategoryBreakdown.
func TopCategories(txns []model.Transaction, n int) []CategoryTotal {
	breakdown := CategoryBreakdown(txns)
	if n >= 0 && len(breakdown) > n {
		breakdown = breakdown[:n]
	}
	return breakdown
}

var (
	needsShare   = decimal.New(5, -1)
	wantsShare   = decimal.New(3, -1)
	savingsShare = decimal.New(2, -1)
)

// Recommendation splits a monthly income by the 50/30/20 rule. Shares of an
// odd Rupiah income keep their fraction.
type Recommendation struct {
	Needs   decimal.Decimal `json:"needs"`
	Wants   decimal.Decimal `json:"wants"`
	Savings decimal.Decimal `json:"savings"`
}

// Recommend503020 returns the 50/30/20 split of income.
func Recommend503020(income int64) Recommendation {
	i := decimal.NewFromInt(income)
	return Recommendation{
		Needs:   i.Mul(needsShare),
		Wants:   i.Mul(wantsShare),
		Savings: i.Mul(savingsShare),
	}
}

// SpendingLimit is the needs plus wants share of income.
func (r Recommendation) SpendingLimit() decimal.Decimal {
	return r.Needs.Add(r.Wants)
}

// AveragePoint is one value of a moving average series.
type AveragePoint struct {
	Date    string          `json:"date"`
	Average decimal.Decimal `json:"average"`
}

// MovingAverage slides a window of period transactions over the expenses in
// txns, ordered by date then creation time. Each point averages the window
// and carries the date of its last transaction. The window counts
// transactions, not calendar days. Fewer than period expenses yield an empty
// series.
func MovingAverage(txns []model.Transaction, period int) []AveragePoint {
	points := []AveragePoint{}
	if period <= 0 {
		return points
	}

	expenses := Chronological(Expenses(txns))
	if len(expenses) < period {
		return points
	}

	var sum int64
	divisor := decimal.NewFromInt(int64(period))
	for i := 0; i < period; i++ {
		sum += expenses[i].Amount
	}
	for i := 0; ; i++ {
		last := expenses[i+period-1]
		points = append(points, AveragePoint{
			Date:    last.Date,
			Average: decimal.NewFromInt(sum).Div(divisor),
		})
		if i+period >= len(expenses) {
			break
		}
		sum += expenses[i+period].Amount - expenses[i].Amount
	}
	return points
}

// Expenses returns the expense transactions of txns in their original order.
func Expenses(txns []model.Transaction) []model.Transaction {
	out := make([]model.Transaction, 0, len(txns))
	for _, txn := range txns {
		if txn.Type == model.TypeExpense {
			out = append(out, txn)
		}
	}
	return out
}

// Chronological returns a copy of txns sorted oldest first by date, then by
// creation time.
func Chronological(txns []model.Transaction) []model.Transaction {
	out := slices.Clone(txns)
	slices.SortStableFunc(out, func(a, b model.Transaction) int {
		if c := cmp.Compare(a.Date, b.Date); c != 0 {
			return c
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out
}

// MonthPoint is the stats of one calendar month.
type MonthPoint struct {
	Month string `json:"month"`
	stats.Stats
}

// MonthlyTrend returns stats for the months ending with the one containing
// now, oldest first.
func MonthlyTrend(txns []model.Transaction, now time.Time, months int) []MonthPoint {
	if months <= 0 {
		return []MonthPoint{}
	}

	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	points := make([]MonthPoint, 0, months)
	buckets := make(map[string][]model.Transaction, months)

	for i := months - 1; i >= 0; i-- {
		month := first.AddDate(0, -i, 0).Format("2006-01")
		points = append(points, MonthPoint{Month: month})
		buckets[month] = nil
	}

	for _, txn := range txns {
		if len(txn.Date) < 7 {
			continue
		}
		month := txn.Date[:7]
		if _, ok := buckets[month]; ok {
			buckets[month] = append(buckets[month], txn)
		}
	}

	for i := range points {
		points[i].Stats = stats.Compute(buckets[points[i].Month])
	}
	return points
}

// Change is a month's net result.
type Change struct {
	Net     int64   `json:"net"`
	Percent float64 `json:"percent"`
}

// MonthlyChange reports balance and its share of income. Percent is 0 when
// there is no income.
func MonthlyChange(s stats.Stats) Change {
	c := Change{Net: stats.Balance(s.Income, s.Expense)}
	if s.Income > 0 {
		c.Percent = float64(c.Net) / float64(s.Income) * 100
	}
	return c
}

// Progress tracks saved money against a target.
type Progress struct {
	Saved     int64   `json:"saved"`
	Target    int64   `json:"target"`
	Remaining int64   `json:"remaining"`
	Percent   float64 `json:"percent"`
}

// SavingsProgress measures saved against target. Percent is capped at 100.
func SavingsProgress(saved, target int64) Progress {
	p := Progress{Saved: saved, Target: target}
	if target <= 0 {
		return p
	}
	p.Remaining = max(target-saved, 0)
	p.Percent = min(float64(saved)/float64(target)*100, 100)
	return p
}

// MonthTotals reads the totals of t's calendar month from the ledger.
func MonthTotals(ctx context.Context, agg Aggregator, t time.Time) (stats.Stats, error) {
	rng := model.MonthRange(t)
	var s stats.Stats
	for _, target := range []struct {
		dst *int64
		typ model.TransactionType
	}{
		{&s.Income, model.TypeIncome},
		{&s.Expense, model.TypeExpense},
		{&s.Savings, model.TypeSavings},
	} {
		total, err := agg.Aggregate(ctx, target.typ, rng)
		if err != nil {
			return stats.Stats{}, fmt.Errorf("failed to aggregate %s: %w", target.typ, err)
		}
		*target.dst = total
	}
	s.Balance = stats.Balance(s.Income, s.Expense)
	return s, nil
}
