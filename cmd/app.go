package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mael-bomane/earn-bot/internal/build"
	"github.com/mael-bomane/earn-bot/internal/config"
	"github.com/mael-bomane/earn-bot/internal/detector"
	"github.com/mael-bomane/earn-bot/internal/integrations/telegram"
	"github.com/mael-bomane/earn-bot/internal/listing"
	"github.com/mael-bomane/earn-bot/internal/logger"
	"github.com/mael-bomane/earn-bot/internal/matching"
	"github.com/mael-bomane/earn-bot/internal/metrics"
	"github.com/mael-bomane/earn-bot/internal/notification"
	"github.com/mael-bomane/earn-bot/internal/snapshot"
	"github.com/mael-bomane/earn-bot/internal/storage"
)

// app holds the components shared by the serve, run and subscriber commands.
// Connections are opened lazily so that each command only needs the
// configuration for what it touches.
type app struct {
	cfg     *config.AppConfig
	logger  *slog.Logger
	metrics *metrics.Metrics

	db            *sql.DB
	subscribers   *storage.SQLiteSubscriberStore
	notifications *storage.SQLiteNotificationStore

	closers []func() error
}

// newApp opens the system logger and the bot database.
func newApp(cfg *config.AppConfig) (*app, error) {
	sysLogger, logCloser, err := logger.NewSystemLogger(cfg.LogDir(), cfg.SlogLevel())
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	a := &app{
		cfg:     cfg,
		logger:  sysLogger,
		metrics: metrics.New(),
		closers: []func() error{logCloser.Close},
	}

	db, fresh, err := storage.NewSQLiteDB(cfg.DatabasePath())
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("opening bot database: %w", err)
	}
	a.closers = append(a.closers, db.Close)
	if fresh {
		sysLogger.Info("created bot database", "path", cfg.DatabasePath())
	}

	a.db = db
	a.subscribers = storage.NewSQLiteSubscriberStore(db, sysLogger.With("component", "subscribers"))
	a.notifications = storage.NewSQLiteNotificationStore(db)

	sysLogger.Info("earn-bot starting",
		slog.String("env", string(cfg.Profile())),
		slog.String("data_dir", cfg.DataDir),
		slog.String("version", build.Version),
		slog.String("commit", build.CommitSHA),
		slog.String("build_date", build.BuildDate),
	)
	return a, nil
}

// Close releases everything the app opened, in reverse order.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// newDetector connects to the marketplace database and the snapshot store and
// returns a detector that schedules through the bot database.
func (a *app) newDetector(ctx context.Context) (*detector.Detector, error) {
	if err := a.cfg.RequireDatabase(); err != nil {
		return nil, err
	}

	pool, err := listing.NewPostgresPool(ctx, a.cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error {
		pool.Close()
		return nil
	})
	repo := listing.NewPostgresRepository(pool, listing.Linker{
		Host:      a.cfg.ListingHost,
		UTMSource: a.cfg.UTMSource,
	}, a.logger.With("component", "repository"))

	snap, err := a.newSnapshotStore(ctx)
	if err != nil {
		return nil, err
	}

	scheduler := notification.NewScheduler(notification.SchedulerConfig{
		Store:   a.notifications,
		Delay:   a.cfg.Schedule().NotifyDelay,
		Logger:  a.logger.With("component", "scheduler"),
		Metrics: a.metrics,
	})

	return detector.New(detector.Config{
		Repository: repo,
		Snapshot:   snap,
		Resolver:   matching.NewResolver(a.subscribers),
		Scheduler:  scheduler,
		Logger:     a.logger.With("component", "detector"),
		Metrics:    a.metrics,
	}), nil
}

func (a *app) newSnapshotStore(ctx context.Context) (snapshot.Store, error) {
	if a.cfg.RedisURL == "" {
		a.logger.Info("using in-memory snapshot store")
		return snapshot.NewMemoryStore(), nil
	}

	client, err := snapshot.NewRedisClient(ctx, a.cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client.Close)
	a.logger.Info("using redis snapshot store", "key", snapshot.DefaultRedisKey)
	return snapshot.NewRedisStore(client, snapshot.DefaultRedisKey), nil
}

// newWorker verifies the bot token and returns a delivery worker.
func (a *app) newWorker(ctx context.Context) (*notification.Worker, error) {
	if err := a.cfg.RequireTelegram(); err != nil {
		return nil, err
	}

	client := telegram.NewClient(a.cfg.TelegramBotToken)
	botName, err := client.GetMe(ctx)
	if err != nil {
		return nil, fmt.Errorf("verifying telegram bot token: %w", err)
	}
	a.logger.Info("telegram bot authenticated", "bot", botName)

	return notification.NewWorker(notification.WorkerConfig{
		Notifications: a.notifications,
		Subscribers:   a.subscribers,
		Gateway:       client,
		SendInterval:  a.cfg.SendInterval,
		Logger:        a.logger.With("component", "worker"),
		Metrics:       a.metrics,
	}), nil
}

func (a *app) newSweeper() *notification.Sweeper {
	return notification.NewSweeper(a.notifications, a.cfg.Retention,
		a.logger.With("component", "sweeper"), a.metrics)
}
