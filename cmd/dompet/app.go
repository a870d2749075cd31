package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/dompet/internal/budget"
	"github.com/Veraticus/dompet/internal/common"
	"github.com/Veraticus/dompet/internal/config"
	"github.com/Veraticus/dompet/internal/kvstore"
	"github.com/Veraticus/dompet/internal/notify"
	"github.com/Veraticus/dompet/internal/settings"
	"github.com/Veraticus/dompet/internal/storage"
	"github.com/Veraticus/dompet/internal/tracker"
)

var envKeyReplacer = strings.NewReplacer(".", "_")

// timeNow is the clock every component is wired with.
var timeNow = time.Now

// app is everything a command needs, wired from the configuration.
type app struct {
	cfg        *config.Config
	store      kvstore.Store
	ledger     *storage.Ledger
	settings   *settings.Service
	monitor    *budget.Monitor
	tracker    *tracker.Tracker
	dispatcher notify.Dispatcher
	// agent is set for the local transport; one-shot commands flush it on close.
	agent *notify.Agent
	amqp  *notify.AMQPClient
}

// openApp opens the store, initializes the ledger and wires the monitor with
// the configured notification transport. A ledger that cannot be loaded is
// reported as a UserError and nothing stays open.
func openApp(ctx context.Context, cfg *config.Config, out io.Writer) (*app, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: configuration not loaded", common.ErrMissingConfig)
	}

	store, err := kvstore.OpenSQLite(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, common.NewUserError(
			fmt.Sprintf("Could not open the ledger store at %s", cfg.DatabasePath), err)
	}

	a, err := wireApp(ctx, cfg, store, out)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return a, nil
}

// wireApp builds the app over an already open store.
func wireApp(ctx context.Context, cfg *config.Config, store kvstore.Store, out io.Writer, opts ...storage.Option) (*app, error) {
	defaults := []storage.Option{
		storage.WithImageKey(cfg.ImageKey),
		storage.WithClock(timeNow),
	}
	ledger := storage.NewLedger(store, append(defaults, opts...)...)
	if err := ledger.Initialize(ctx); err != nil {
		if common.IsFatal(err) {
			return nil, common.NewUserError(
				"The ledger could not be loaded. Nothing was changed; restore a checkpoint with 'dompet checkpoint restore' or move the database file aside", err)
		}
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		store:    store,
		ledger:   ledger,
		settings: settings.NewService(store),
	}

	switch cfg.NotifyTransport {
	case config.TransportAMQP:
		client, err := notify.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			// Alerts are best effort; the ledger still works without a broker.
			slog.Warn("Notification broker unavailable, falling back to local delivery", "error", err)
			a.useLocalAgent(out)
		} else {
			a.amqp = client
			a.dispatcher = client
		}
	default:
		a.useLocalAgent(out)
	}

	a.monitor = budget.NewMonitor(ledger, store, a.dispatcher,
		budget.WithThresholdPercent(cfg.ThresholdPercent),
		budget.WithLanguageSource(a.settings),
		budget.WithClock(timeNow),
	)
	a.tracker = tracker.New(ledger,
		tracker.WithMonitor(a.monitor),
		tracker.WithSettings(a.settings),
		tracker.WithClock(timeNow),
	)
	return a, nil
}

func (a *app) useLocalAgent(out io.Writer) {
	a.agent = notify.NewAgent(notify.LogDeliverer{Out: out})
	a.dispatcher = a.agent
}

// Close delivers queued local notifications, writes the final image and
// releases the store and broker connection.
func (a *app) Close(ctx context.Context) error {
	if a.agent != nil {
		a.agent.Flush(ctx)
	}

	var errs []error
	if err := a.ledger.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to shut down ledger: %w", err))
	}
	if a.amqp != nil {
		if err := a.amqp.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close broker connection: %w", err))
		}
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close store: %w", err))
	}
	return errors.Join(errs...)
}

// withApp opens the app for one command and always closes it.
func withApp(ctx context.Context, out io.Writer, fn func(*app) error) (err error) {
	a, err := openApp(ctx, appConfig, out)
	if err != nil {
		return err
	}
	defer func() {
		// The command context may already be cancelled; the final write
		// must still happen.
		if closeErr := a.Close(context.WithoutCancel(ctx)); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()
	return fn(a)
}

func (a *app) checkpoints() (*storage.CheckpointManager, error) {
	manager, err := storage.NewCheckpointManager(a.ledger, a.cfg.CheckpointDir())
	if err != nil {
		return nil, fmt.Errorf("failed to create checkpoint manager: %w", err)
	}
	return manager, nil
}
