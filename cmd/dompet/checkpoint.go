package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/dompet/internal/cli"
	"github.com/Veraticus/dompet/internal/model"
)

func checkpointCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Manage ledger checkpoints",
		Long: `Create, list, restore, and delete ledger checkpoints.

Checkpoints save the current state of your ledger before risky changes, so you
can go back to it if needed. Imports take one automatically.`,
		Example: `  # Create a checkpoint before cleaning up
  dompet checkpoint create --tag before-cleanup

  # List all checkpoints
  dompet checkpoint list

  # Restore from a checkpoint
  dompet checkpoint restore before-cleanup`,
	}

	cmd.AddCommand(createCheckpointCmd())
	cmd.AddCommand(listCheckpointsCmd())
	cmd.AddCommand(restoreCheckpointCmd())
	cmd.AddCommand(deleteCheckpointCmd())
	return cmd
}

func createCheckpointCmd() *cobra.Command {
	var tag string
	var description string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new checkpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			return withApp(ctx, out, func(a *app) error {
				return runCreateCheckpoint(ctx, a, out, tag, description)
			})
		},
	}

	cmd.Flags().StringVarP(&tag, "tag", "t", "", "checkpoint name (auto-generated if not provided)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "description of the checkpoint")
	return cmd
}

func runCreateCheckpoint(ctx context.Context, a *app, out io.Writer, tag, description string) error {
	manager, err := a.checkpoints()
	if err != nil {
		return err
	}
	info, err := manager.Create(ctx, tag, description)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint: %w", err)
	}

	fmt.Fprintf(out, "%s Created checkpoint %s (%s, %d transactions)\n",
		cli.SuccessStyle.Render(cli.SuccessIcon),
		cli.InfoStyle.Render(info.ID),
		formatFileSize(info.FileSize),
		info.Transactions)
	if info.Description != "" {
		fmt.Fprintf(out, "  Description: %s\n", info.Description)
	}
	return nil
}

func listCheckpointsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all checkpoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			return withApp(ctx, out, func(a *app) error {
				return runListCheckpoints(ctx, a, out)
			})
		},
	}
}

func runListCheckpoints(ctx context.Context, a *app, out io.Writer) error {
	manager, err := a.checkpoints()
	if err != nil {
		return err
	}
	checkpoints, err := manager.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list checkpoints: %w", err)
	}
	if len(checkpoints) == 0 {
		fmt.Fprintln(out, cli.SubtleStyle.Render("No checkpoints found."))
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	header(w, "NAME", "CREATED", "SIZE", "INCOME", "EXPENSE", "SAVINGS", "TYPE")
	for _, cp := range checkpoints {
		typeLabel := "manual"
		if cp.IsAuto {
			typeLabel = "auto"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			cli.InfoStyle.Render(cp.ID),
			formatRelativeTime(cp.CreatedAt),
			formatFileSize(cp.FileSize),
			cp.TypeCounts[model.TypeIncome],
			cp.TypeCounts[model.TypeExpense],
			cp.TypeCounts[model.TypeSavings],
			cli.SubtleStyle.Render(typeLabel),
		)
	}
	return w.Flush()
}

func restoreCheckpointCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "restore <checkpoint-id>",
		Short: "Replace the ledger with a checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			return withApp(ctx, out, func(a *app) error {
				return runRestoreCheckpoint(ctx, a, cli.NewPrompter(cmd.InOrStdin(), out), out, args[0], force)
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation prompt")
	return cmd
}

func runRestoreCheckpoint(ctx context.Context, a *app, prompter *cli.Prompter, out io.Writer, id string, force bool) error {
	manager, err := a.checkpoints()
	if err != nil {
		return err
	}
	info, err := manager.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get checkpoint info: %w", err)
	}

	if !force {
		fmt.Fprintf(out, "%s This will replace your current ledger with checkpoint %s.\n",
			cli.WarningStyle.Render(cli.WarningIcon),
			cli.InfoStyle.Render(id))
		fmt.Fprintf(out, "  Created: %s\n", info.CreatedAt.Format("2006-01-02 15:04:05"))
		if info.Description != "" {
			fmt.Fprintf(out, "  Description: %s\n", info.Description)
		}
		ok, err := prompter.Confirm(ctx, "Continue?")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, cli.SubtleStyle.Render("Restore cancelled."))
			return nil
		}
	}

	if err := manager.Restore(ctx, id); err != nil {
		return fmt.Errorf("failed to restore checkpoint: %w", err)
	}
	fmt.Fprintf(out, "%s Restored from checkpoint %s\n",
		cli.SuccessStyle.Render(cli.SuccessIcon),
		cli.InfoStyle.Render(id))
	return nil
}

func deleteCheckpointCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <checkpoint-id>",
		Short: "Delete a checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			return withApp(ctx, out, func(a *app) error {
				return runDeleteCheckpoint(ctx, a, cli.NewPrompter(cmd.InOrStdin(), out), out, args[0], force)
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation prompt")
	return cmd
}

func runDeleteCheckpoint(ctx context.Context, a *app, prompter *cli.Prompter, out io.Writer, id string, force bool) error {
	manager, err := a.checkpoints()
	if err != nil {
		return err
	}
	info, err := manager.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get checkpoint info: %w", err)
	}

	if !force {
		fmt.Fprintf(out, "%s This will permanently delete checkpoint %s (%s).\n",
			cli.WarningStyle.Render(cli.WarningIcon),
			cli.InfoStyle.Render(id),
			formatFileSize(info.FileSize))
		ok, err := prompter.Confirm(ctx, "Continue?")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, cli.SubtleStyle.Render("Deletion cancelled."))
			return nil
		}
	}

	if err := manager.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	fmt.Fprintf(out, "%s Deleted checkpoint %s\n",
		cli.SuccessStyle.Render(cli.SuccessIcon),
		cli.InfoStyle.Render(id))
	return nil
}

func formatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

func formatRelativeTime(t time.Time) string {
	d := timeNow().Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d.Minutes()), "minute") + " ago"
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hour") + " ago"
	case d < 48*time.Hour:
		return "yesterday"
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%d days ago", int(d.Hours()/24))
	default:
		return t.Format("2006-01-02 15:04")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
