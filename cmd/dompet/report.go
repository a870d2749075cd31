package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Veraticus/dompet/internal/analytics"
	"github.com/Veraticus/dompet/internal/budget"
	"github.com/Veraticus/dompet/internal/cli"
	"github.com/Veraticus/dompet/internal/common"
	"github.com/Veraticus/dompet/internal/model"
	"github.com/Veraticus/dompet/internal/storage"
	"github.com/Veraticus/dompet/internal/tracker"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(cli.PrimaryColor)

func header(w io.Writer, cols ...string) {
	rendered := make([]string, len(cols))
	for i, c := range cols {
		rendered[i] = headerStyle.Render(c)
	}
	fmt.Fprintln(w, strings.Join(rendered, "\t"))
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show totals and this month's position",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			return withApp(ctx, out, func(a *app) error {
				return runStats(ctx, a, out)
			})
		},
	}
}

func runStats(ctx context.Context, a *app, out io.Writer) error {
	r, err := a.tracker.Report(ctx, tracker.DefaultReportOptions())
	if err != nil {
		return err
	}

	all := r.Stats
	lines := []string{
		fmt.Sprintf("Income    %s", cli.TypeStyle(model.TypeIncome).Render(cli.FormatRupiah(all.Income))),
		fmt.Sprintf("Expense   %s", cli.TypeStyle(model.TypeExpense).Render(cli.FormatRupiah(all.Expense))),
		fmt.Sprintf("Savings   %s", cli.TypeStyle(model.TypeSavings).Render(cli.FormatRupiah(all.Savings))),
		fmt.Sprintf("Balance   %s", cli.BoldStyle.Render(cli.FormatRupiah(all.Balance))),
		cli.SubtleStyle.Render(fmt.Sprintf("%d transactions, savings rate %s", r.Count, cli.FormatPercent(all.SavingsRate()))),
	}
	fmt.Fprintln(out, cli.RenderBox("All time", strings.Join(lines, "\n")))

	m := r.Month
	monthLines := []string{
		fmt.Sprintf("Income    %s", cli.FormatRupiah(m.Income)),
		fmt.Sprintf("Expense   %s", cli.FormatRupiah(m.Expense)),
		fmt.Sprintf("Savings   %s", cli.FormatRupiah(m.Savings)),
		fmt.Sprintf("Net       %s (%s of income)", cli.FormatRupiah(r.Change.Net), cli.FormatPercent(r.Change.Percent)),
	}
	if r.Largest != nil {
		monthLines = append(monthLines, fmt.Sprintf("Largest   %s %s", r.Largest.Category, cli.FormatRupiah(r.Largest.Total)))
	}
	if p := r.SavingsProgress; p.Target > 0 {
		monthLines = append(monthLines, cli.SubtleStyle.Render(fmt.Sprintf("Savings target %s of %s (%s)",
			cli.FormatRupiah(p.Saved), cli.FormatRupiah(p.Target), cli.FormatPercent(p.Percent))))
	}
	fmt.Fprintln(out, cli.RenderBox("This month", strings.Join(monthLines, "\n")))
	return nil
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Spending reports",
		Long:  `Category breakdown, budget usage, monthly trend and the moving average of expenses.`,
	}

	cmd.AddCommand(categoriesReportCmd())
	cmd.AddCommand(budgetReportCmd())
	cmd.AddCommand(trendReportCmd())
	cmd.AddCommand(movingAverageReportCmd())
	return cmd
}

func categoriesReportCmd() *cobra.Command {
	var month string
	var top int
	var all bool

	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Expenses by category for one month or all time",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if all && month != "" {
				return fmt.Errorf("%w: --all and --month cannot be combined", common.ErrValidation)
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			return withApp(ctx, out, func(a *app) error {
				return runCategoriesReport(ctx, a, out, month, top, all)
			})
		},
	}

	cmd.Flags().StringVarP(&month, "month", "m", "", "calendar month, YYYY-MM (default: this month)")
	cmd.Flags().IntVar(&top, "top", 0, "only the N largest categories (0 for all)")
	cmd.Flags().BoolVar(&all, "all", false, "every expense ever recorded instead of one month")
	return cmd
}

func runCategoriesReport(ctx context.Context, a *app, out io.Writer, month string, top int, all bool) error {
	filter := storage.Filter{Type: model.TypeExpense}
	title, empty := "Expenses all time", "No expenses recorded."
	if !all {
		rng := model.MonthRange(timeNow())
		if month != "" {
			first, err := model.ParseDate(month + "-01")
			if err != nil {
				return fmt.Errorf("%w: --month must be YYYY-MM", common.ErrValidation)
			}
			rng = model.MonthRange(first)
		}
		filter.Range = rng
		title, empty = "Expenses "+rng.From[:7], "No expenses in this month."
	}

	txns, err := a.ledger.Query(ctx, filter)
	if err != nil {
		return err
	}

	var totals []analytics.CategoryTotal
	if top > 0 {
		totals = analytics.TopCategories(txns, top)
	} else {
		totals = analytics.CategoryBreakdown(txns)
	}

	fmt.Fprintln(out, cli.FormatTitle(title))
	if len(totals) == 0 {
		fmt.Fprintln(out, cli.SubtleStyle.Render(empty))
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	header(w, "CATEGORY", "TOTAL", "SHARE", "COUNT")
	for _, c := range totals {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", c.Category, cli.FormatRupiah(c.Total), cli.FormatPercent(c.Percent), c.Count)
	}
	return w.Flush()
}

func budgetReportCmd() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "budget",
		Short: "This month's spending against the 80% limit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			return withApp(ctx, out, func(a *app) error {
				return runBudgetReport(ctx, a, out, check)
			})
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "send this month's alert now if the threshold is reached")
	return cmd
}

func runBudgetReport(ctx context.Context, a *app, out io.Writer, check bool) error {
	var status budget.Status
	var err error
	if check {
		var outcome budget.Outcome
		outcome, status, err = a.monitor.Check(ctx)
		if err != nil {
			return err
		}
		status.Outcome = outcome.String()
	} else if status, err = a.monitor.Status(ctx); err != nil {
		return err
	}

	rec := analytics.Recommend503020(status.Income)
	lines := []string{
		fmt.Sprintf("Income      %s", cli.FormatRupiah(status.Income)),
		fmt.Sprintf("Expense     %s", cli.FormatRupiah(status.Expense)),
		fmt.Sprintf("Limit       %s", cli.FormatRupiah(status.Limit.IntPart())),
		fmt.Sprintf("Alert at    %s (%d%%)", cli.FormatRupiah(status.Threshold.IntPart()), status.ThresholdPercent),
		fmt.Sprintf("Used        %d%%", status.PercentUsed),
	}
	if status.Income > 0 {
		lines = append(lines, cli.SubtleStyle.Render(fmt.Sprintf("50/30/20: needs %s, wants %s, save %s",
			cli.FormatRupiah(rec.Needs.IntPart()), cli.FormatRupiah(rec.Wants.IntPart()), cli.FormatRupiah(rec.Savings.IntPart()))))
	}
	fmt.Fprintln(out, cli.RenderBox("Budget "+status.Month, strings.Join(lines, "\n")))

	switch {
	case status.Income == 0:
		fmt.Fprintln(out, cli.FormatInfo("No income recorded this month, so there is no limit yet"))
	case status.Breached() && status.Alerted:
		fmt.Fprintln(out, cli.FormatWarning("Spending reached the alert threshold; this month's alert was sent"))
	case status.Breached():
		fmt.Fprintln(out, cli.FormatWarning("Spending reached the alert threshold"))
	default:
		fmt.Fprintln(out, cli.FormatSuccess("Within budget"))
	}
	if check {
		fmt.Fprintln(out, cli.SubtleStyle.Render("check: "+status.Outcome))
	}
	return nil
}

func trendReportCmd() *cobra.Command {
	var months int

	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Monthly totals for recent months",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if months < 1 {
				return fmt.Errorf("%w: --months must be at least 1", common.ErrValidation)
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			return withApp(ctx, out, func(a *app) error {
				return runTrendReport(ctx, a, out, months)
			})
		},
	}

	cmd.Flags().IntVar(&months, "months", 6, "number of months, ending with this one")
	return cmd
}

func runTrendReport(ctx context.Context, a *app, out io.Writer, months int) error {
	txns, err := a.ledger.Query(ctx, storage.Filter{})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	header(w, "MONTH", "INCOME", "EXPENSE", "SAVINGS", "BALANCE")
	for _, p := range analytics.MonthlyTrend(txns, timeNow(), months) {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			p.Month,
			cli.FormatRupiah(p.Income),
			cli.FormatRupiah(p.Expense),
			cli.FormatRupiah(p.Savings),
			cli.FormatRupiah(p.Balance))
	}
	return w.Flush()
}

func movingAverageReportCmd() *cobra.Command {
	var period int

	cmd := &cobra.Command{
		Use:   "moving-average",
		Short: "Moving average of expense amounts",
		Long: `Averages each run of --period consecutive expenses, oldest first. Each
point is dated with the last expense in its window.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if period < 1 {
				return fmt.Errorf("%w: --period must be at least 1", common.ErrValidation)
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			return withApp(ctx, out, func(a *app) error {
				return runMovingAverageReport(ctx, a, out, period)
			})
		},
	}

	cmd.Flags().IntVarP(&period, "period", "p", 7, "window size in transactions")
	return cmd
}

func runMovingAverageReport(ctx context.Context, a *app, out io.Writer, period int) error {
	txns, err := a.ledger.Query(ctx, storage.Filter{Type: model.TypeExpense})
	if err != nil {
		return err
	}

	points := analytics.MovingAverage(txns, period)
	if len(points) == 0 {
		fmt.Fprintln(out, cli.SubtleStyle.Render(fmt.Sprintf("Need at least %d expenses, have %d.", period, len(txns))))
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	header(w, "DATE", "AVERAGE")
	for _, p := range points {
		fmt.Fprintf(w, "%s\t%s\n", p.Date, cli.FormatRupiah(p.Average.IntPart()))
	}
	return w.Flush()
}
