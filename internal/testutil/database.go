// Package testutil provides test helpers for packages that sit on top of the ledger.
// It offers an isolated in-memory ledger, a controllable clock, and a standard
// scenario of transactions.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/dompet/internal/common"
	"github.com/Veraticus/dompet/internal/kvstore"
	"github.com/Veraticus/dompet/internal/model"
	"github.com/Veraticus/dompet/internal/storage"
)

// ScenarioNow is the fixed "now" the scenario transactions are built around.
var ScenarioNow = time.Date(2024, 1, 20, 10, 0, 0, 0, time.UTC)

// Clock is a manual clock. Every call to Now moves it forward by Step so
// successive stamps stay strictly increasing.
type Clock struct {
	now  time.Time
	Step time.Duration
	mu   sync.Mutex
}

// NewClock starts a clock at start with a one millisecond step.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start, Step: time.Millisecond}
}

// Now returns the current time and advances the clock by Step.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.Step)
	return c.now
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// TestLedger is an initialized ledger backed by an in-memory store.
type TestLedger struct {
	Ledger *storage.Ledger
	Store  *kvstore.MemoryStore
	Clock  *Clock
	t      *testing.T
}

// SetupTestLedger creates and initializes a ledger for one test and shuts it
// down on cleanup. Persistence retries are disabled so failure tests stay fast.
//
// Example:
//
//	tl := testutil.SetupTestLedger(t)
//	tl.Seed(testutil.ScenarioDrafts()...)
func SetupTestLedger(t *testing.T, opts ...storage.Option) *TestLedger {
	t.Helper()

	store := kvstore.NewMemoryStore()
	clock := NewClock(ScenarioNow)
	defaults := []storage.Option{
		storage.WithClock(clock.Now),
		storage.WithRetry(common.RetryOptions{MaxAttempts: 1, InitialDelay: time.Millisecond}),
	}
	ledger := storage.NewLedger(store, append(defaults, opts...)...)

	if err := ledger.Initialize(context.Background()); err != nil {
		t.Fatalf("failed to initialize test ledger: %v", err)
	}
	t.Cleanup(func() {
		if err := ledger.Shutdown(context.Background()); err != nil {
			t.Errorf("failed to shut down test ledger: %v", err)
		}
	})

	return &TestLedger{Ledger: ledger, Store: store, Clock: clock, t: t}
}

// MustAdd adds a draft or fails the test.
func (tl *TestLedger) MustAdd(draft model.Draft) model.Transaction {
	tl.t.Helper()
	txn, err := tl.Ledger.Add(context.Background(), draft)
	if err != nil {
		tl.t.Fatalf("failed to add %s %q: %v", draft.Type, draft.Category, err)
	}
	return txn
}

// Seed adds every draft in order.
func (tl *TestLedger) Seed(drafts ...model.Draft) []model.Transaction {
	tl.t.Helper()
	txns := make([]model.Transaction, 0, len(drafts))
	for _, d := range drafts {
		txns = append(txns, tl.MustAdd(d))
	}
	return txns
}

// Day parses a YYYY-MM-DD date and panics on malformed input.
func Day(s string) time.Time {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// ScenarioDrafts is a January 2024 month with salary, two expenses and a
// savings deposit: income 8,500,000, expense 425,000, savings 2,250,000.
func ScenarioDrafts() []model.Draft {
	return []model.Draft{
		{Type: model.TypeIncome, Category: "Gaji", Amount: 8_500_000, Date: Day("2024-01-01"), Notes: "gaji januari"},
		{Type: model.TypeExpense, Category: "Makanan", Amount: 350_000, Date: Day("2024-01-15"), Notes: "belanja mingguan"},
		{Type: model.TypeExpense, Category: "Transport", Amount: 75_000, Date: Day("2024-01-14")},
		{Type: model.TypeSavings, Category: "Tabungan Rutin", Amount: 2_250_000, Date: Day("2024-01-01")},
	}
}
