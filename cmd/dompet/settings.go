package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/dompet/internal/cli"
	"github.com/Veraticus/dompet/internal/model"
)

func settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change preferences",
		Long: `Preferences are stored next to the ledger:

  savingsTarget  savings goal in Rupiah (default 5.000.000)
  isDarkMode     dashboard theme, true or false
  language       notification language, id or en`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the current preferences",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			return withApp(ctx, out, func(a *app) error {
				prefs, err := a.settings.Load(ctx)
				if err != nil {
					return err
				}
				printSettings(out, prefs)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "set <name> <value>",
		Short:   "Change one preference",
		Example: "  dompet settings set savingsTarget 10000000\n  dompet settings set language en",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			return withApp(ctx, out, func(a *app) error {
				return runSetSetting(ctx, a, out, args[0], args[1])
			})
		},
	})
	return cmd
}

func runSetSetting(ctx context.Context, a *app, out io.Writer, name, value string) error {
	// Accept the same "10.000.000" form as amounts.
	if name == "savingsTarget" || name == "savings-target" {
		if amount, err := cli.ParseAmount(value); err == nil {
			value = fmt.Sprint(amount)
		}
	}
	prefs, err := a.settings.Set(ctx, name, value)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, cli.FormatSuccess("Saved "+name))
	printSettings(out, prefs)
	return nil
}

func printSettings(out io.Writer, prefs model.AppSettings) {
	lines := []string{
		fmt.Sprintf("savingsTarget  %s", cli.FormatRupiah(prefs.SavingsTarget)),
		fmt.Sprintf("isDarkMode     %t", prefs.IsDarkMode),
		fmt.Sprintf("language       %s", strings.ToLower(string(prefs.Language))),
	}
	fmt.Fprintln(out, cli.RenderBox("Settings", strings.Join(lines, "\n")))
}
