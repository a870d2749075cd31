// Package tracker ties the ledger to its derived views. Every write returns a
// snapshot read back after the write, with stats recomputed from it.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/dompet/internal/analytics"
	"github.com/Veraticus/dompet/internal/budget"
	"github.com/Veraticus/dompet/internal/common"
	"github.com/Veraticus/dompet/internal/model"
	"github.com/Veraticus/dompet/internal/settings"
	"github.com/Veraticus/dompet/internal/stats"
	"github.com/Veraticus/dompet/internal/storage"
)

// Snapshot is the full transaction list and the stats computed from it.
type Snapshot struct {
	Transactions []model.Transaction `json:"transactions"`
	Stats        stats.Stats         `json:"stats"`
}

// Tracker is the write path used by every front end.
type Tracker struct {
	ledger   *storage.Ledger
	monitor  *budget.Monitor
	settings *settings.Service
	now      func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithMonitor runs the budget monitor after expense adds.
func WithMonitor(m *budget.Monitor) Option {
	return func(t *Tracker) {
		t.monitor = m
	}
}

// WithSettings supplies the savings target used in reports.
func WithSettings(s *settings.Service) Option {
	return func(t *Tracker) {
		t.settings = s
	}
}

// WithClock replaces time.Now for reports.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// New creates a tracker over an initialized ledger.
func New(ledger *storage.Ledger, opts ...Option) *Tracker {
	t := &Tracker{ledger: ledger, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Ledger exposes the underlying ledger for read-only callers.
func (t *Tracker) Ledger() *storage.Ledger {
	return t.ledger
}

// Monitor returns the budget monitor, if any.
func (t *Tracker) Monitor() *budget.Monitor {
	return t.monitor
}

// Snapshot reads every transaction in default order and computes stats.
func (t *Tracker) Snapshot(ctx context.Context) (Snapshot, error) {
	txns, err := t.ledger.Query(ctx, storage.Filter{})
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Transactions: txns, Stats: stats.Compute(txns)}, nil
}

// afterWrite refetches after a mutation. A persistence failure still leaves
// the mutation in memory, so the snapshot is refreshed and the error kept.
func (t *Tracker) afterWrite(ctx context.Context, writeErr error) (Snapshot, error) {
	if writeErr != nil && !errors.Is(writeErr, common.ErrPersistenceWrite) {
		return Snapshot{}, writeErr
	}
	snap, err := t.Snapshot(ctx)
	if err != nil {
		return Snapshot{}, errors.Join(writeErr, fmt.Errorf("failed to refresh snapshot: %w", err))
	}
	return snap, writeErr
}

// Add stores a transaction and, for expenses, runs the budget monitor.
func (t *Tracker) Add(ctx context.Context, draft model.Draft) (model.Transaction, Snapshot, error) {
	txn, err := t.ledger.Add(ctx, draft)
	snap, err := t.afterWrite(ctx, err)
	if txn.ID != "" && t.monitor != nil {
		t.monitor.AfterAdd(ctx, txn)
	}
	return txn, snap, err
}

// Update patches a transaction.
func (t *Tracker) Update(ctx context.Context, id string, patch model.Patch) (model.Transaction, Snapshot, error) {
	txn, err := t.ledger.Update(ctx, id, patch)
	snap, err := t.afterWrite(ctx, err)
	return txn, snap, err
}

// Delete removes a transaction; unknown ids are not an error.
func (t *Tracker) Delete(ctx context.Context, id string) (Snapshot, error) {
	return t.afterWrite(ctx, t.ledger.Delete(ctx, id))
}

// Report is everything the dashboards show.
type Report struct {
	GeneratedAt     time.Time                 `json:"generatedAt"`
	Budget          *budget.Status            `json:"budget,omitempty"`
	Largest         *analytics.CategoryTotal  `json:"largestCategory,omitempty"`
	Categories      []analytics.CategoryTotal `json:"categories"`
	Trend           []analytics.MonthPoint    `json:"trend"`
	MovingAverage   []analytics.AveragePoint  `json:"movingAverage"`
	Month           stats.Stats               `json:"month"`
	Stats           stats.Stats               `json:"stats"`
	Recommendation  analytics.Recommendation  `json:"recommendation"`
	Change          analytics.Change          `json:"change"`
	SavingsProgress analytics.Progress        `json:"savingsProgress"`
	Count           int                       `json:"count"`
}

// ReportOptions tunes the series in a Report. Categories and the largest
// category cover the current month unless AllTimeCategories is set.
type ReportOptions struct {
	TrendMonths       int
	Period            int
	AllTimeCategories bool
}

// DefaultReportOptions shows six months of trend and a seven point average.
func DefaultReportOptions() ReportOptions {
	return ReportOptions{TrendMonths: 6, Period: 7}
}

// Report builds a Report from one fresh snapshot.
func (t *Tracker) Report(ctx context.Context, opts ReportOptions) (Report, error) {
	snap, err := t.Snapshot(ctx)
	if err != nil {
		return Report{}, err
	}
	now := t.now()

	month, err := analytics.MonthTotals(ctx, t.ledger, now)
	if err != nil {
		return Report{}, err
	}

	monthTxns, err := t.ledger.Query(ctx, storage.Filter{Range: model.MonthRange(now)})
	if err != nil {
		return Report{}, err
	}

	target := model.DefaultSettings().SavingsTarget
	if t.settings != nil {
		prefs, err := t.settings.Load(ctx)
		if err != nil {
			return Report{}, err
		}
		target = prefs.SavingsTarget
	}

	categoryTxns := monthTxns
	if opts.AllTimeCategories {
		categoryTxns = snap.Transactions
	}

	r := Report{
		GeneratedAt:     now,
		Count:           len(snap.Transactions),
		Stats:           snap.Stats,
		Month:           month,
		Categories:      analytics.CategoryBreakdown(categoryTxns),
		Recommendation:  analytics.Recommend503020(month.Income),
		Trend:           analytics.MonthlyTrend(snap.Transactions, now, opts.TrendMonths),
		MovingAverage:   analytics.MovingAverage(snap.Transactions, opts.Period),
		Change:          analytics.MonthlyChange(month),
		SavingsProgress: analytics.SavingsProgress(snap.Stats.Savings, target),
	}
	if largest, ok := analytics.LargestExpenseCategory(categoryTxns); ok {
		r.Largest = &largest
	}
	if t.monitor != nil {
		status, err := t.monitor.Status(ctx)
		if err != nil {
			return Report{}, err
		}
		r.Budget = &status
	}
	return r, nil
}
