package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/dompet/internal/tui"
	"github.com/Veraticus/dompet/internal/tui/themes"
)

func dashCmd() *cobra.Command {
	var refresh time.Duration
	var months int

	cmd := &cobra.Command{
		Use:   "dash",
		Short: "Open the read-only terminal dashboard",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withApp(ctx, cmd.OutOrStdout(), func(a *app) error {
				prefs, err := a.settings.Load(ctx)
				if err != nil {
					return err
				}

				cfg := tui.DefaultConfig()
				cfg.Theme = themes.ForDarkMode(prefs.IsDarkMode)
				cfg.Refresh = refresh
				if months > 0 {
					cfg.Report.TrendMonths = months
				}
				return tui.Run(ctx, a.tracker, cfg)
			})
		},
	}

	cmd.Flags().DurationVar(&refresh, "refresh", 0, "reload the data on this interval, e.g. 30s (0 to disable)")
	cmd.Flags().IntVar(&months, "months", 6, "months shown in the trend view")
	return cmd
}
