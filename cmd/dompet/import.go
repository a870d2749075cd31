package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Veraticus/dompet/internal/cli"
	"github.com/Veraticus/dompet/internal/common"
	"github.com/Veraticus/dompet/internal/ofx"
	"github.com/Veraticus/dompet/internal/storage"
)

type importOptions struct {
	account      string
	dryRun       bool
	noCheckpoint bool
	noProgress   bool
}

// importResult summarizes one import run.
type importResult struct {
	checkpoint  string
	parsed      int
	imported    int
	duplicates  int
	interrupted bool
}

func importCmd() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import <file.ofx>",
		Short: "Import transactions from an OFX/QFX bank statement",
		Long: `Read an OFX or QFX statement and add its lines to the ledger.

Credits become income and debits become expenses. Lines already in the ledger
(same date, type, amount and notes) are skipped, so re-importing a statement is
safe. A checkpoint is taken first so the whole import can be undone.`,
		Example: `  # Preview what would be imported
  dompet import statement.ofx --dry-run

  # Import one account from a multi-account file
  dompet import export.qfx --account 1234567890`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			return withApp(ctx, out, func(a *app) error {
				result, err := runImport(ctx, a, out, args[0], opts)
				if err != nil {
					return err
				}
				printImportResult(out, result, opts.dryRun)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.account, "account", "", "only import lines from this account id")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "show what would be imported without saving")
	cmd.Flags().BoolVar(&opts.noCheckpoint, "no-checkpoint", false, "skip the automatic checkpoint")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "hide the progress bar")
	return cmd
}

func runImport(ctx context.Context, a *app, out io.Writer, path string, opts importOptions) (importResult, error) {
	var result importResult

	file, err := os.Open(path) //nolint:gosec // user-provided statement path
	if err != nil {
		return result, fmt.Errorf("failed to open statement: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			slog.Warn("Failed to close statement", "error", closeErr)
		}
	}()

	entries, err := ofx.NewParser().ParseFile(ctx, file)
	if err != nil {
		return result, err
	}
	if opts.account != "" {
		entries = filterAccount(entries, opts.account)
	}
	result.parsed = len(entries)

	existing, err := a.ledger.Query(ctx, storage.Filter{})
	if err != nil {
		return result, err
	}
	fresh, skipped := ofx.Dedupe(entries, existing)
	result.duplicates = skipped

	if opts.dryRun {
		printPreview(out, fresh)
		result.imported = len(fresh)
		return result, nil
	}
	if len(fresh) == 0 {
		return result, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	interrupts := cli.NewInterruptHandler(out)
	ctx = interrupts.HandleInterrupts(ctx)

	if !opts.noCheckpoint {
		manager, err := a.checkpoints()
		if err != nil {
			return result, err
		}
		meta, err := manager.AutoCheckpoint(ctx, "import")
		if err != nil {
			return result, err
		}
		result.checkpoint = meta.ID
		interrupts.SetCheckpoint(meta.ID)
	}

	var bar interface{ Add(int) error }
	if !opts.noProgress {
		bar = cli.NewProgress(out, len(fresh), "Importing")
	}

	var persistErr error
	for _, entry := range fresh {
		if ctx.Err() != nil {
			result.interrupted = true
			break
		}
		_, err := a.ledger.Add(ctx, entry.Draft)
		switch {
		case errors.Is(err, common.ErrPersistenceWrite):
			// Kept in memory; the final write on close tries again.
			persistErr = err
		case err != nil:
			return result, fmt.Errorf("failed to import line %s: %w", entry.FitID, err)
		}
		result.imported++
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		fmt.Fprintln(out)
	}

	// One check for the whole batch instead of one per expense line.
	if _, _, err := a.monitor.Check(context.WithoutCancel(ctx)); err != nil {
		slog.Warn("Budget check after import failed", "error", err)
	}

	if persistErr != nil {
		fmt.Fprintln(out, cli.FormatWarning("Some lines are imported but could not be saved yet; they will be retried on exit"))
	}
	return result, nil
}

func filterAccount(entries []ofx.Entry, account string) []ofx.Entry {
	out := entries[:0:0]
	for _, e := range entries {
		if e.Account == account {
			out = append(out, e)
		}
	}
	return out
}

func printPreview(out io.Writer, entries []ofx.Entry) {
	if len(entries) == 0 {
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	header(w, "DATE", "CATEGORY", "AMOUNT", "NOTES")
	for _, e := range entries {
		d := e.Draft
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			d.Date.Format("2006-01-02"),
			d.Category,
			cli.FormatAmount(d.Type, d.Amount),
			truncate(d.Notes, 40))
	}
	_ = w.Flush()
}

func printImportResult(out io.Writer, r importResult, dryRun bool) {
	verb := "Imported"
	if dryRun {
		verb = "Would import"
	}
	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("%s %d of %d statement lines", verb, r.imported, r.parsed)))
	if r.duplicates > 0 {
		fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Skipped %d already in the ledger", r.duplicates)))
	}
	if r.checkpoint != "" && !r.interrupted {
		fmt.Fprintln(out, cli.SubtleStyle.Render("Undo with: dompet checkpoint restore "+r.checkpoint))
	}
}
