package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/dompet/internal/cli"
	"github.com/Veraticus/dompet/internal/common"
	"github.com/Veraticus/dompet/internal/model"
	"github.com/Veraticus/dompet/internal/storage"
	"github.com/Veraticus/dompet/internal/testutil"
)

func TestTransactionFlags_Draft(t *testing.T) {
	tests := []struct {
		name    string
		flags   transactionFlags
		want    model.Draft
		wantErr bool
		errIs   error
	}{
		{
			name:  "complete",
			flags: transactionFlags{txnType: "expense", category: " Makanan ", amount: "45.000", date: "2024-01-15", notes: "makan siang"},
			want: model.Draft{
				Type:     model.TypeExpense,
				Category: "Makanan",
				Amount:   45_000,
				Date:     testutil.Day("2024-01-15"),
				Notes:    "makan siang",
			},
		},
		{
			name:  "date defaults later",
			flags: transactionFlags{txnType: "income", category: "Gaji", amount: "8500000"},
			want:  model.Draft{Type: model.TypeIncome, Category: "Gaji", Amount: 8_500_000},
		},
		{
			name:    "missing category",
			flags:   transactionFlags{txnType: "expense", amount: "1000"},
			wantErr: true,
			errIs:   common.ErrValidation,
		},
		{
			name:    "unknown type",
			flags:   transactionFlags{txnType: "transfer", category: "Makanan", amount: "1000"},
			wantErr: true,
		},
		{
			name:    "bad date",
			flags:   transactionFlags{txnType: "expense", category: "Makanan", amount: "1000", date: "15/01/2024"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.flags.draft()
			if tt.wantErr {
				require.Error(t, err)
				if tt.errIs != nil {
					assert.ErrorIs(t, err, tt.errIs)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTransactionFlags_Patch(t *testing.T) {
	changedOnly := func(names ...string) func(string) bool {
		return func(name string) bool {
			for _, n := range names {
				if n == name {
					return true
				}
			}
			return false
		}
	}

	t.Run("only changed flags are patched", func(t *testing.T) {
		f := transactionFlags{txnType: "income", category: "Bonus", amount: "100.000", notes: ""}
		patch, err := f.patch(changedOnly("amount", "notes"))
		require.NoError(t, err)

		require.NotNil(t, patch.Amount)
		assert.Equal(t, int64(100_000), *patch.Amount)
		require.NotNil(t, patch.Notes)
		assert.Empty(t, *patch.Notes, "clearing notes is a change")
		assert.Nil(t, patch.Type)
		assert.Nil(t, patch.Category)
		assert.Nil(t, patch.Date)
	})

	t.Run("nothing changed", func(t *testing.T) {
		var f transactionFlags
		_, err := f.patch(changedOnly())
		assert.ErrorIs(t, err, common.ErrValidation)
	})

	t.Run("bad amount", func(t *testing.T) {
		f := transactionFlags{amount: "lots"}
		_, err := f.patch(changedOnly("amount"))
		assert.Error(t, err)
	})
}

func TestListOptions_Filter(t *testing.T) {
	tests := []struct {
		name    string
		opts    listOptions
		want    storage.Filter
		wantErr bool
	}{
		{
			name: "defaults",
			opts: listOptions{limit: 20},
			want: storage.Filter{Limit: 20},
		},
		{
			name: "month",
			opts: listOptions{txnType: "expense", month: "2024-02"},
			want: storage.Filter{
				Type:  model.TypeExpense,
				Range: model.DateRange{From: "2024-02-01", To: "2024-02-29"},
			},
		},
		{
			name: "from overrides the month start",
			opts: listOptions{month: "2024-01", from: "2024-01-10", category: "Makanan"},
			want: storage.Filter{
				Category: "Makanan",
				Range:    model.DateRange{From: "2024-01-10", To: "2024-01-31"},
			},
		},
		{name: "bad month", opts: listOptions{month: "January"}, wantErr: true},
		{name: "bad to", opts: listOptions{to: "2024-13-01"}, wantErr: true},
		{name: "negative limit", opts: listOptions{limit: -1}, wantErr: true},
		{name: "bad type", opts: listOptions{txnType: "loan"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.opts.filter()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunAdd(t *testing.T) {
	ta := newTestApp(t)
	ctx := context.Background()
	ta.seed(t, testutil.ScenarioDrafts()...)

	var out bytes.Buffer
	err := runAdd(ctx, ta.app, &out, model.Draft{Type: model.TypeExpense, Category: "Hiburan", Amount: 120_000})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "Recorded")
	assert.Contains(t, out.String(), "Hiburan")
	assert.Contains(t, out.String(), "2024-01-20", "date defaults to today")
	assert.Contains(t, out.String(), "Rp 545.000", "running expense total")

	n, err := ta.ledger.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestRunAdd_InvalidCategory(t *testing.T) {
	ta := newTestApp(t)

	var out bytes.Buffer
	err := runAdd(context.Background(), ta.app, &out, model.Draft{Type: model.TypeIncome, Category: "Makanan", Amount: 1})
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Empty(t, out.String())
}

func TestRunAdd_TriggersBudgetAlert(t *testing.T) {
	ta := newTestApp(t)
	ctx := context.Background()
	ta.seed(t, testutil.ScenarioDrafts()...)

	var out bytes.Buffer
	require.NoError(t, runAdd(ctx, ta.app, &out, model.Draft{Type: model.TypeExpense, Category: "Belanja", Amount: 6_000_000}))

	ta.agent.Flush(ctx)
	assert.Contains(t, ta.out.String(), "Peringatan Budget")
}

func TestRunAdd_PersistenceFailureKeepsChange(t *testing.T) {
	ta := newTestApp(t)
	ctx := context.Background()
	ta.store.SetSaveErr(assert.AnError)

	var out bytes.Buffer
	err := runAdd(ctx, ta.app, &out, model.Draft{Type: model.TypeIncome, Category: "Gaji", Amount: 1_000})
	assert.ErrorIs(t, err, common.ErrPersistenceWrite)
	assert.Contains(t, out.String(), "could not be saved yet")

	n, countErr := ta.ledger.Count(ctx)
	require.NoError(t, countErr)
	assert.Equal(t, 1, n)
	ta.store.SetSaveErr(nil)
}

func TestRunUpdate(t *testing.T) {
	ta := newTestApp(t)
	ctx := context.Background()
	txns := ta.seed(t, testutil.ScenarioDrafts()...)
	food := txns[1]

	amount := int64(400_000)
	var out bytes.Buffer
	require.NoError(t, runUpdate(ctx, ta.app, &out, food.ID, model.Patch{Amount: &amount}))
	assert.Contains(t, out.String(), "Updated")

	got, err := ta.ledger.Get(ctx, food.ID)
	require.NoError(t, err)
	assert.Equal(t, amount, got.Amount)
	assert.Equal(t, food.Category, got.Category)
}

func TestRunUpdate_NotFound(t *testing.T) {
	ta := newTestApp(t)

	notes := "x"
	err := runUpdate(context.Background(), ta.app, &bytes.Buffer{}, "missing", model.Patch{Notes: &notes})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRunDelete(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		force     bool
		wantGone  bool
		wantInOut string
	}{
		{name: "confirmed", input: "y\n", wantGone: true, wantInOut: "Deleted"},
		{name: "declined", input: "n\n", wantGone: false, wantInOut: "Deletion cancelled."},
		{name: "forced", force: true, wantGone: true, wantInOut: "Deleted"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ta := newTestApp(t)
			ctx := context.Background()
			txn := ta.seed(t, testutil.ScenarioDrafts()...)[2]

			var out bytes.Buffer
			prompter := cli.NewPrompter(strings.NewReader(tt.input), &out)
			require.NoError(t, runDelete(ctx, ta.app, prompter, &out, txn.ID, tt.force))
			assert.Contains(t, out.String(), tt.wantInOut)

			_, err := ta.ledger.Get(ctx, txn.ID)
			if tt.wantGone {
				assert.ErrorIs(t, err, common.ErrNotFound)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRunDelete_UnknownIDIsNotAnError(t *testing.T) {
	ta := newTestApp(t)

	var out bytes.Buffer
	require.NoError(t, runDelete(context.Background(), ta.app, cli.NewPrompter(strings.NewReader(""), &out), &out, "missing", false))
	assert.Contains(t, out.String(), "nothing to delete")
}

func TestRunList(t *testing.T) {
	ta := newTestApp(t)
	ctx := context.Background()
	txns := ta.seed(t, testutil.ScenarioDrafts()...)

	t.Run("all", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, runList(ctx, ta.app, &out, storage.Filter{}))

		s := out.String()
		assert.Contains(t, s, "4 shown")
		for _, txn := range txns {
			assert.Contains(t, s, txn.ID, "full ids are printed for update and delete")
		}
		// Newest first.
		assert.Less(t, strings.Index(s, "2024-01-15"), strings.Index(s, "2024-01-14"))
	})

	t.Run("filtered", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, runList(ctx, ta.app, &out, storage.Filter{Type: model.TypeExpense}))
		assert.Contains(t, out.String(), "2 shown")
		assert.NotContains(t, out.String(), "Gaji")
	})

	t.Run("empty", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, runList(ctx, ta.app, &out, storage.Filter{Category: "Kesehatan"}))
		assert.Contains(t, out.String(), "No transactions found.")
	})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "belan…", truncate("belanja mingguan", 6))
	assert.Equal(t, "kopi ☕", truncate("kopi ☕", 6))
}
