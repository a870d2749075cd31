package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Veraticus/dompet/internal/cli"
	"github.com/Veraticus/dompet/internal/common"
	"github.com/Veraticus/dompet/internal/model"
	"github.com/Veraticus/dompet/internal/stats"
	"github.com/Veraticus/dompet/internal/storage"
)

// transactionFlags are shared by add and update.
type transactionFlags struct {
	txnType  string
	category string
	amount   string
	date     string
	notes    string
}

func (f *transactionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.txnType, "type", "t", "", "transaction type (income, expense, savings)")
	cmd.Flags().StringVarP(&f.category, "category", "c", "", "category from the type's vocabulary")
	cmd.Flags().StringVarP(&f.amount, "amount", "a", "", "amount in whole Rupiah, e.g. 350000 or 350.000")
	cmd.Flags().StringVarP(&f.date, "date", "d", "", "date as YYYY-MM-DD (default: today)")
	cmd.Flags().StringVarP(&f.notes, "notes", "n", "", "free-form notes")
}

// draft builds a complete draft; type, category and amount are required.
func (f *transactionFlags) draft() (model.Draft, error) {
	var draft model.Draft
	t, err := model.ParseType(f.txnType)
	if err != nil {
		return draft, err
	}
	draft.Type = t
	draft.Category = strings.TrimSpace(f.category)
	if draft.Category == "" {
		return draft, fmt.Errorf("%w: --category is required", common.ErrValidation)
	}
	if draft.Amount, err = cli.ParseAmount(f.amount); err != nil {
		return draft, err
	}
	if f.date != "" {
		if draft.Date, err = model.ParseDate(f.date); err != nil {
			return draft, err
		}
	}
	draft.Notes = f.notes
	return draft, nil
}

// patch builds a patch from the flags the user actually set.
func (f *transactionFlags) patch(changed func(string) bool) (model.Patch, error) {
	var patch model.Patch
	if changed("type") {
		t, err := model.ParseType(f.txnType)
		if err != nil {
			return patch, err
		}
		patch.Type = &t
	}
	if changed("category") {
		c := strings.TrimSpace(f.category)
		patch.Category = &c
	}
	if changed("amount") {
		amount, err := cli.ParseAmount(f.amount)
		if err != nil {
			return patch, err
		}
		patch.Amount = &amount
	}
	if changed("date") {
		d, err := model.ParseDate(f.date)
		if err != nil {
			return patch, err
		}
		patch.Date = &d
	}
	if changed("notes") {
		notes := f.notes
		patch.Notes = &notes
	}
	if patch.Empty() {
		return patch, fmt.Errorf("%w: nothing to update; pass at least one of --type, --category, --amount, --date, --notes", common.ErrValidation)
	}
	return patch, nil
}

func addCmd() *cobra.Command {
	var flags transactionFlags
	var interactive bool

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction",
		Example: `  # Record lunch
  dompet add --type expense --category Makanan --amount 45.000 --notes "makan siang"

  # Answer prompts instead
  dompet add -i`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			var draft model.Draft
			var err error
			if interactive || flags.txnType == "" {
				draft, err = cli.NewPrompter(cmd.InOrStdin(), out).PromptDraft(ctx)
			} else {
				draft, err = flags.draft()
			}
			if err != nil {
				return err
			}

			return withApp(ctx, out, func(a *app) error {
				return runAdd(ctx, a, out, draft)
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "prompt for each field")
	return cmd
}

func runAdd(ctx context.Context, a *app, out io.Writer, draft model.Draft) error {
	txn, snap, err := a.tracker.Add(ctx, draft)
	if err != nil && !errors.Is(err, common.ErrPersistenceWrite) {
		return err
	}

	fmt.Fprintf(out, "%s %s %s %s\n",
		cli.FormatSuccess("Recorded"),
		cli.FormatAmount(txn.Type, txn.Amount),
		cli.BoldStyle.Render(txn.Category),
		cli.SubtleStyle.Render(txn.Date+" "+txn.ID))
	fmt.Fprintln(out, renderStatsLine(snap.Stats))
	return persistenceWarning(out, err)
}

func updateCmd() *cobra.Command {
	var flags transactionFlags

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := flags.patch(cmd.Flags().Changed)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			return withApp(ctx, out, func(a *app) error {
				return runUpdate(ctx, a, out, args[0], patch)
			})
		},
	}

	flags.register(cmd)
	return cmd
}

func runUpdate(ctx context.Context, a *app, out io.Writer, id string, patch model.Patch) error {
	txn, snap, err := a.tracker.Update(ctx, id, patch)
	if err != nil && !errors.Is(err, common.ErrPersistenceWrite) {
		return err
	}

	fmt.Fprintf(out, "%s %s %s %s\n",
		cli.FormatSuccess("Updated"),
		cli.FormatAmount(txn.Type, txn.Amount),
		cli.BoldStyle.Render(txn.Category),
		cli.SubtleStyle.Render(txn.Date+" "+txn.ID))
	fmt.Fprintln(out, renderStatsLine(snap.Stats))
	return persistenceWarning(out, err)
}

func deleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			return withApp(ctx, out, func(a *app) error {
				return runDelete(ctx, a, cli.NewPrompter(cmd.InOrStdin(), out), out, args[0], force)
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation prompt")
	return cmd
}

func runDelete(ctx context.Context, a *app, prompter *cli.Prompter, out io.Writer, id string, force bool) error {
	txn, err := a.ledger.Get(ctx, id)
	switch {
	case errors.Is(err, common.ErrNotFound):
		fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("No transaction %s, nothing to delete", id)))
		return nil
	case err != nil:
		return err
	}

	if !force {
		fmt.Fprintf(out, "%s %s %s %s\n",
			cli.WarningStyle.Render(cli.WarningIcon),
			cli.FormatAmount(txn.Type, txn.Amount),
			txn.Category,
			cli.SubtleStyle.Render(txn.Date))
		ok, err := prompter.Confirm(ctx, "Delete this transaction?")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, cli.SubtleStyle.Render("Deletion cancelled."))
			return nil
		}
	}

	snap, err := a.tracker.Delete(ctx, id)
	if err != nil && !errors.Is(err, common.ErrPersistenceWrite) {
		return err
	}
	fmt.Fprintln(out, cli.FormatSuccess("Deleted "+id))
	fmt.Fprintln(out, renderStatsLine(snap.Stats))
	return persistenceWarning(out, err)
}

// listOptions are the list command's filters.
type listOptions struct {
	txnType  string
	category string
	from     string
	to       string
	month    string
	limit    int
}

func (o listOptions) filter() (storage.Filter, error) {
	var f storage.Filter
	if o.txnType != "" {
		t, err := model.ParseType(o.txnType)
		if err != nil {
			return f, err
		}
		f.Type = t
	}
	f.Category = o.category
	if o.month != "" {
		first, err := model.ParseDate(o.month + "-01")
		if err != nil {
			return f, fmt.Errorf("%w: --month must be YYYY-MM", common.ErrValidation)
		}
		f.Range = model.MonthRange(first)
	}
	for _, d := range []struct {
		value string
		dst   *string
	}{{o.from, &f.Range.From}, {o.to, &f.Range.To}} {
		if d.value == "" {
			continue
		}
		if _, err := model.ParseDate(d.value); err != nil {
			return f, err
		}
		*d.dst = d.value
	}
	if o.limit < 0 {
		return f, fmt.Errorf("%w: --limit cannot be negative", common.ErrValidation)
	}
	f.Limit = o.limit
	return f, nil
}

func listCmd() *cobra.Command {
	var opts listOptions

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List transactions, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := opts.filter()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			return withApp(ctx, out, func(a *app) error {
				return runList(ctx, a, out, filter)
			})
		},
	}

	cmd.Flags().StringVarP(&opts.txnType, "type", "t", "", "only this type")
	cmd.Flags().StringVarP(&opts.category, "category", "c", "", "only this category")
	cmd.Flags().StringVar(&opts.from, "from", "", "earliest date, YYYY-MM-DD")
	cmd.Flags().StringVar(&opts.to, "to", "", "latest date, YYYY-MM-DD")
	cmd.Flags().StringVarP(&opts.month, "month", "m", "", "calendar month, YYYY-MM")
	cmd.Flags().IntVarP(&opts.limit, "limit", "l", 20, "maximum rows (0 for all)")
	return cmd
}

func runList(ctx context.Context, a *app, out io.Writer, filter storage.Filter) error {
	txns, err := a.ledger.Query(ctx, filter)
	if err != nil {
		return err
	}
	if len(txns) == 0 {
		fmt.Fprintln(out, cli.SubtleStyle.Render("No transactions found."))
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	header(w, "DATE", "CATEGORY", "AMOUNT", "NOTES", "ID")

	for _, txn := range txns {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			txn.Date,
			txn.Category,
			cli.FormatAmount(txn.Type, txn.Amount),
			truncate(txn.Notes, 40),
			cli.SubtleStyle.Render(txn.ID),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	s := stats.Compute(txns)
	fmt.Fprintln(out, cli.SubtleStyle.Render(fmt.Sprintf("%d shown", len(txns))))
	fmt.Fprintln(out, renderStatsLine(s))
	return nil
}

// renderStatsLine is the one-line summary printed after every write.
func renderStatsLine(s stats.Stats) string {
	return fmt.Sprintf("%s %s  %s %s  %s %s  %s %s",
		cli.SubtleStyle.Render("income"), cli.TypeStyle(model.TypeIncome).Render(cli.FormatRupiah(s.Income)),
		cli.SubtleStyle.Render("expense"), cli.TypeStyle(model.TypeExpense).Render(cli.FormatRupiah(s.Expense)),
		cli.SubtleStyle.Render("savings"), cli.TypeStyle(model.TypeSavings).Render(cli.FormatRupiah(s.Savings)),
		cli.SubtleStyle.Render("balance"), cli.BoldStyle.Render(cli.FormatRupiah(s.Balance)))
}

// persistenceWarning reports a write that is applied in memory but not saved.
func persistenceWarning(out io.Writer, err error) error {
	if err == nil {
		return nil
	}
	fmt.Fprintln(out, cli.FormatWarning("The change is applied but could not be saved yet; it will be retried on exit"))
	return err
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
