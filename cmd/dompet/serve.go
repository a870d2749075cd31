package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/dompet/internal/api"
	"github.com/Veraticus/dompet/internal/cli"
	"github.com/Veraticus/dompet/internal/common"
	"github.com/Veraticus/dompet/internal/config"
	"github.com/Veraticus/dompet/internal/notify"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ledger as a local JSON API",
		Long: `Start the HTTP API used by UI front-ends. With the local notification
transport the delivery agent runs in the same process, so budget alerts and
the daily reminder are shown in this terminal.

Changes to budget.threshold_percent in the config file apply without a restart.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = appConfig.ServerAddr
			}
			ctx := cmd.Context()
			return withApp(ctx, cmd.OutOrStdout(), func(a *app) error {
				config.Watch(viper.GetViper(), func(c *config.Config) {
					if err := a.monitor.SetThresholdPercent(c.ThresholdPercent); err != nil {
						slog.Warn("Ignoring threshold change", "error", err)
					}
				})
				return runServer(ctx, a, addr)
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr)")
	return cmd
}

func runServer(ctx context.Context, a *app, addr string) error {
	srv := &http.Server{
		Addr: addr,
		Handler: api.NewRouter(api.Deps{
			Tracker:      a.tracker,
			Settings:     a.settings,
			Dispatcher:   a.dispatcher,
			Log:          slog.Default(),
			Now:          timeNow,
			ReminderTime: a.cfg.ReminderTime,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("API listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		slog.Info("Shutting down API")
		return srv.Shutdown(shutdownCtx)
	})

	if a.agent != nil {
		g.Go(func() error {
			return a.agent.Run(ctx)
		})
	}

	return g.Wait()
}

func agentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "agent",
		Short: "Deliver queued notifications from the message broker",
		Long: `Consume notification requests from the AMQP queue and deliver them in this
terminal. This is the delivery side of notify.transport = amqp; it keeps the
daily reminder while it runs.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if appConfig.NotifyTransport != config.TransportAMQP {
				return common.NewUserError("The agent needs notify.transport set to amqp", common.ErrInvalidConfig)
			}
			client, err := notify.DialAMQP(appConfig.AMQPURL, appConfig.AMQPExchange, appConfig.AMQPQueue)
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := client.Close(); closeErr != nil {
					slog.Warn("Failed to close broker connection", "error", closeErr)
				}
			}()

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Waiting for notifications, press Ctrl+C to stop"))
			return runAgent(cmd.Context(), client, notify.NewAgent(notify.LogDeliverer{Out: cmd.OutOrStdout()}))
		},
	}
}

// runAgent moves messages from source into the local agent until ctx ends.
func runAgent(ctx context.Context, source interface {
	Consume(context.Context, func(context.Context, notify.Message) error) error
}, agent *notify.Agent,
) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return agent.Run(ctx)
	})
	g.Go(func() error {
		return source.Consume(ctx, agent.Dispatch)
	})
	return g.Wait()
}
