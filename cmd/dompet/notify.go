package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Veraticus/dompet/internal/cli"
	"github.com/Veraticus/dompet/internal/model"
	"github.com/Veraticus/dompet/internal/notify"
)

func notifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send test notifications and manage the daily reminder",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "test",
		Short: "Send a test notification",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			return withApp(ctx, out, func(a *app) error {
				return runNotify(ctx, a, out, notify.TestMessage(language(ctx, a)))
			})
		},
	})

	reminder := &cobra.Command{
		Use:   "reminder",
		Short: "Turn the daily reminder on or off",
		Long: `The daily reminder is kept by the delivery agent, so it needs a running
'dompet serve' or 'dompet agent'. With the amqp transport this command queues
the request for that agent.`,
	}

	var at string
	on := &cobra.Command{
		Use:   "on",
		Short: "Remind me every day",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if at == "" {
				at = appConfig.ReminderTime
			}
			if _, _, err := notify.ParseClock(at); err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			return withApp(ctx, out, func(a *app) error {
				return runNotify(ctx, a, out, notify.ScheduleReminderMessage(language(ctx, a), at))
			})
		},
	}
	on.Flags().StringVar(&at, "at", "", "time of day as HH:MM (default: reminder.time)")

	off := &cobra.Command{
		Use:   "off",
		Short: "Stop the daily reminder",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			return withApp(ctx, out, func(a *app) error {
				return runNotify(ctx, a, out, notify.CancelReminderMessage())
			})
		},
	}

	reminder.AddCommand(on, off)
	cmd.AddCommand(reminder)
	return cmd
}

// language is the saved notification language, or the default.
func language(ctx context.Context, a *app) string {
	prefs, err := a.settings.Load(ctx)
	if err != nil {
		return string(model.DefaultSettings().Language)
	}
	return string(prefs.Language)
}

func runNotify(ctx context.Context, a *app, out io.Writer, msg notify.Message) error {
	reminderKind := msg.Kind == notify.KindScheduleReminder || msg.Kind == notify.KindCancelReminder
	if reminderKind && a.agent != nil {
		// A one-shot process has no agent that outlives it.
		return fmt.Errorf("the daily reminder needs a running agent: use the API of 'dompet serve' or set notify.transport to amqp")
	}

	if err := a.dispatcher.Dispatch(ctx, msg); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	if a.agent == nil {
		fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Queued %s request", msg.Kind)))
	}
	return nil
}
