// Package budget watches the current month's spending against the needs plus
// wants share of income and sends at most one alert per month.
package budget

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/dompet/internal/analytics"
	"github.com/Veraticus/dompet/internal/common"
	"github.com/Veraticus/dompet/internal/kvstore"
	"github.com/Veraticus/dompet/internal/model"
	"github.com/Veraticus/dompet/internal/notify"
)

// DefaultThresholdPercent is the share of the spending limit that triggers an alert.
const DefaultThresholdPercent = 85

// Outcome is the result of one threshold check.
type Outcome int

const (
	// OutcomeNoIncome means nothing was earned this month, so there is no budget.
	OutcomeNoIncome Outcome = iota
	// OutcomeBelowThreshold means spending is under the alert threshold.
	OutcomeBelowThreshold
	// OutcomeAlreadyNotified means this month's alert has already been sent.
	OutcomeAlreadyNotified
	// OutcomeNotified means an alert was dispatched by this check.
	OutcomeNotified
	// OutcomeDispatchFailed means the threshold was reached but the alert could not be sent.
	OutcomeDispatchFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoIncome:
		return "no_income"
	case OutcomeBelowThreshold:
		return "below_threshold"
	case OutcomeAlreadyNotified:
		return "already_notified"
	case OutcomeNotified:
		return "notified"
	case OutcomeDispatchFailed:
		return "dispatch_failed"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Status describes the current month's budget position.
type Status struct {
	Month            string          `json:"month"`
	Outcome          string          `json:"outcome"`
	Income           int64           `json:"income"`
	Expense          int64           `json:"expense"`
	Limit            decimal.Decimal `json:"limit"`
	Threshold        decimal.Decimal `json:"threshold"`
	ThresholdPercent int             `json:"thresholdPercent"`
	PercentUsed      int             `json:"percentUsed"`
	Alerted          bool            `json:"alerted"`
}

// Breached reports whether spending reached the threshold.
func (s Status) Breached() bool {
	return s.Income > 0 && decimal.NewFromInt(s.Expense).GreaterThanOrEqual(s.Threshold)
}

// LanguageSource supplies the language alerts are written in.
type LanguageSource interface {
	Load(ctx context.Context) (model.AppSettings, error)
}

// Monitor is the budget threshold monitor. Its per-month state lives in the
// key/value store as a marker, so it survives restarts.
type Monitor struct {
	ledger     analytics.Aggregator
	markers    kvstore.Store
	dispatcher notify.Dispatcher
	languages  LanguageSource
	now        func() time.Time
	threshold  atomic.Int64
	mu         sync.Mutex
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithClock replaces time.Now when deciding the current month.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLanguageSource picks the alert language from saved settings.
func WithLanguageSource(src LanguageSource) Option {
	return func(m *Monitor) {
		m.languages = src
	}
}

// WithThresholdPercent overrides DefaultThresholdPercent.
func WithThresholdPercent(pct int) Option {
	return func(m *Monitor) {
		if err := validatePercent(pct); err == nil {
			m.threshold.Store(int64(pct))
		}
	}
}

// NewMonitor creates a monitor reading totals from ledger, keeping markers in
// markers and sending alerts through dispatcher.
func NewMonitor(ledger analytics.Aggregator, markers kvstore.Store, dispatcher notify.Dispatcher, opts ...Option) *Monitor {
	m := &Monitor{
		ledger:     ledger,
		markers:    markers,
		dispatcher: dispatcher,
		now:        time.Now,
	}
	m.threshold.Store(DefaultThresholdPercent)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func validatePercent(pct int) error {
	if pct < 1 || pct > 100 {
		return fmt.Errorf("%w: threshold percent must be between 1 and 100, got %d", common.ErrValidation, pct)
	}
	return nil
}

// ThresholdPercent returns the active threshold.
func (m *Monitor) ThresholdPercent() int {
	return int(m.threshold.Load())
}

// SetThresholdPercent changes the threshold for subsequent checks.
func (m *Monitor) SetThresholdPercent(pct int) error {
	if err := validatePercent(pct); err != nil {
		return err
	}
	m.threshold.Store(int64(pct))
	return nil
}

// MarkerKey is the store key recording that month's alert. Month is 1-based.
func MarkerKey(t time.Time) string {
	return fmt.Sprintf("budget_alert_%04d_%02d", t.Year(), int(t.Month()))
}

// Limits returns the spending limit (needs plus wants) and the alert threshold
// for income.
func Limits(income int64, thresholdPercent int) (limit, threshold decimal.Decimal) {
	limit = analytics.Recommend503020(income).SpendingLimit()
	return limit, limit.Mul(decimal.NewFromInt(int64(thresholdPercent))).Div(hundred)
}

var hundred = decimal.NewFromInt(100)

// Status computes the current month's position without sending anything.
func (m *Monitor) Status(ctx context.Context) (Status, error) {
	return m.status(ctx, m.now())
}

func (m *Monitor) status(ctx context.Context, now time.Time) (Status, error) {
	totals, err := analytics.MonthTotals(ctx, m.ledger, now)
	if err != nil {
		return Status{}, err
	}

	pct := m.ThresholdPercent()
	limit, threshold := Limits(totals.Income, pct)
	s := Status{
		Month:            now.Format("2006-01"),
		Income:           totals.Income,
		Expense:          totals.Expense,
		Limit:            limit,
		Threshold:        threshold,
		ThresholdPercent: pct,
	}
	if limit.IsPositive() {
		s.PercentUsed = int(decimal.NewFromInt(totals.Expense).Mul(hundred).Div(limit).Round(0).IntPart())
	}

	_, alerted, err := m.markers.Load(ctx, MarkerKey(now))
	if err != nil {
		return s, fmt.Errorf("failed to read alert marker: %w", err)
	}
	s.Alerted = alerted

	switch {
	case s.Income == 0:
		s.Outcome = OutcomeNoIncome.String()
	case !s.Breached():
		s.Outcome = OutcomeBelowThreshold.String()
	case alerted:
		s.Outcome = OutcomeAlreadyNotified.String()
	default:
		s.Outcome = "threshold_reached"
	}
	return s, nil
}

// Check sends this month's alert if spending has reached the threshold and no
// alert went out yet. The marker is written only after a successful dispatch.
// If that write fails the alert was still delivered, so Check returns
// OutcomeNotified with the error, and the next check sends a second alert
// for the same month.
func (m *Monitor) Check(ctx context.Context) (Outcome, Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	status, err := m.status(ctx, now)
	if err != nil {
		return OutcomeNoIncome, status, err
	}
	if status.Income == 0 {
		return OutcomeNoIncome, status, nil
	}
	if !status.Breached() {
		return OutcomeBelowThreshold, status, nil
	}
	if status.Alerted {
		slog.DebugContext(ctx, "Budget alert for this month already sent", "month", status.Month)
		return OutcomeAlreadyNotified, status, nil
	}

	language := string(model.LanguageIndonesian)
	if m.languages != nil {
		if settings, lerr := m.languages.Load(ctx); lerr == nil {
			language = string(settings.Language)
		}
	}

	body := notify.TextFor(language).BudgetBody(status.PercentUsed)
	if err := m.dispatcher.Dispatch(ctx, notify.BudgetAlertMessage(language, body)); err != nil {
		return OutcomeDispatchFailed, status, fmt.Errorf("failed to dispatch budget alert: %w", err)
	}

	slog.InfoContext(ctx, "Budget alert sent",
		"month", status.Month,
		"expense", status.Expense,
		"limit", status.Limit.String(),
		"percent", status.PercentUsed)

	if err := m.markers.Save(ctx, MarkerKey(now), []byte("sent")); err != nil {
		return OutcomeNotified, status, fmt.Errorf("failed to save alert marker: %w", err)
	}
	status.Alerted = true
	status.Outcome = OutcomeNotified.String()
	return OutcomeNotified, status, nil
}

// AfterAdd runs Check after an expense was added. Failures are logged and
// never reach the caller.
func (m *Monitor) AfterAdd(ctx context.Context, txn model.Transaction) {
	if txn.Type != model.TypeExpense {
		return
	}
	if _, _, err := m.Check(ctx); err != nil {
		slog.WarnContext(ctx, "Budget check failed", "error", err, "transaction", txn.ID)
	}
}
