package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/dompet/internal/common"
	"github.com/Veraticus/dompet/internal/model"
	"github.com/Veraticus/dompet/internal/testutil"
)

func TestRunStats(t *testing.T) {
	ta := newTestApp(t)
	ta.seed(t, testutil.ScenarioDrafts()...)

	var out bytes.Buffer
	require.NoError(t, runStats(context.Background(), ta.app, &out))

	s := out.String()
	assert.Contains(t, s, "All time")
	assert.Contains(t, s, "This month")
	assert.Contains(t, s, "Rp 8.500.000")
	assert.Contains(t, s, "Rp 425.000")
	assert.Contains(t, s, "Rp 2.250.000")
	assert.Contains(t, s, "4 transactions")
	assert.Contains(t, s, "Largest   Makanan Rp 350.000")
}

func TestRunStats_Empty(t *testing.T) {
	ta := newTestApp(t)

	var out bytes.Buffer
	require.NoError(t, runStats(context.Background(), ta.app, &out))
	assert.Contains(t, out.String(), "0 transactions")
	assert.NotContains(t, out.String(), "Largest")
}

func TestRunCategoriesReport(t *testing.T) {
	ta := newTestApp(t)
	ctx := context.Background()
	ta.seed(t, testutil.ScenarioDrafts()...)
	ta.seed(t, model.Draft{Type: model.TypeExpense, Category: "Makanan", Amount: 50_000, Date: testutil.Day("2023-12-30")})

	t.Run("this month", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, runCategoriesReport(ctx, ta.app, &out, "", 0, false))

		s := out.String()
		assert.Contains(t, s, "Expenses 2024-01")
		assert.Contains(t, s, "Rp 350.000", "December spending is not counted")
		assert.Less(t, strings.Index(s, "Makanan"), strings.Index(s, "Transport"), "largest first")
	})

	t.Run("top one", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, runCategoriesReport(ctx, ta.app, &out, "", 1, false))
		assert.Contains(t, out.String(), "Makanan")
		assert.NotContains(t, out.String(), "Transport")
	})

	t.Run("other month", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, runCategoriesReport(ctx, ta.app, &out, "2023-12", 0, false))
		assert.Contains(t, out.String(), "Expenses 2023-12")
		assert.Contains(t, out.String(), "Rp 50.000")
	})

	t.Run("month without expenses", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, runCategoriesReport(ctx, ta.app, &out, "2023-06", 0, false))
		assert.Contains(t, out.String(), "No expenses in this month.")
	})

	t.Run("all time", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, runCategoriesReport(ctx, ta.app, &out, "", 0, true))
		assert.Contains(t, out.String(), "Expenses all time")
		assert.Contains(t, out.String(), "Rp 400.000", "December spending is counted")
	})

	t.Run("bad month", func(t *testing.T) {
		err := runCategoriesReport(ctx, ta.app, &bytes.Buffer{}, "12-2023", 0, false)
		assert.ErrorIs(t, err, common.ErrValidation)
	})
}

func TestRunBudgetReport(t *testing.T) {
	tests := []struct {
		name   string
		drafts []model.Draft
		check  bool
		want   []string
	}{
		{
			name: "no income",
			want: []string{"Budget 2024-01", "No income recorded this month"},
		},
		{
			name:   "within budget",
			drafts: testutil.ScenarioDrafts(),
			want:   []string{"Rp 8.500.000", "Limit       Rp 6.800.000", "Used        6%", "Within budget", "50/30/20"},
		},
		{
			name: "check sends the alert",
			drafts: append(testutil.ScenarioDrafts(),
				model.Draft{Type: model.TypeExpense, Category: "Belanja", Amount: 6_000_000, Date: testutil.Day("2024-01-18")}),
			check: true,
			want:  []string{"this month's alert was sent", "check: notified"},
		},
		{
			name:  "check with nothing to report",
			check: true,
			want:  []string{"check: no_income"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ta := newTestApp(t)
			ta.seed(t, tt.drafts...)

			var out bytes.Buffer
			require.NoError(t, runBudgetReport(context.Background(), ta.app, &out, tt.check))
			for _, want := range tt.want {
				assert.Contains(t, out.String(), want)
			}
		})
	}
}

func TestRunBudgetReport_CheckOncePerMonth(t *testing.T) {
	ta := newTestApp(t)
	ctx := context.Background()
	ta.seed(t, append(testutil.ScenarioDrafts(),
		model.Draft{Type: model.TypeExpense, Category: "Belanja", Amount: 6_000_000, Date: testutil.Day("2024-01-18")})...)

	require.NoError(t, runBudgetReport(ctx, ta.app, &bytes.Buffer{}, true))

	var out bytes.Buffer
	require.NoError(t, runBudgetReport(ctx, ta.app, &out, true))
	assert.Contains(t, out.String(), "check: already_notified")

	ta.agent.Flush(ctx)
	assert.Equal(t, 1, strings.Count(ta.out.String(), "Peringatan Budget"))
}

func TestRunTrendReport(t *testing.T) {
	ta := newTestApp(t)
	ta.seed(t, testutil.ScenarioDrafts()...)
	ta.seed(t, model.Draft{Type: model.TypeIncome, Category: "Gaji", Amount: 8_000_000, Date: testutil.Day("2023-11-25")})

	var out bytes.Buffer
	require.NoError(t, runTrendReport(context.Background(), ta.app, &out, 3))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4, "header plus three months")
	assert.True(t, strings.HasPrefix(lines[1], "2023-11"))
	assert.Contains(t, lines[1], "Rp 8.000.000")
	assert.True(t, strings.HasPrefix(lines[2], "2023-12"))
	assert.True(t, strings.HasPrefix(lines[3], "2024-01"))
	assert.Contains(t, lines[3], "Rp 8.075.000")
}

func TestRunMovingAverageReport(t *testing.T) {
	ta := newTestApp(t)
	ctx := context.Background()
	ta.seed(t, testutil.ScenarioDrafts()...)

	t.Run("enough expenses", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, runMovingAverageReport(ctx, ta.app, &out, 2))
		assert.Contains(t, out.String(), "2024-01-15")
		assert.Contains(t, out.String(), "Rp 212.500")
	})

	t.Run("too few", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, runMovingAverageReport(ctx, ta.app, &out, 7))
		assert.Contains(t, out.String(), "Need at least 7 expenses, have 2.")
	})
}
