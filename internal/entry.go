// Package internal provides the application initialization and the
// watch-mode runtime that keeps the session catalog and the summary
// artifact in sync with the telemetry directory.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/starford/naudiz/internal/aggregate"
	"github.com/starford/naudiz/internal/index"
	"github.com/starford/naudiz/internal/metrics"
	"github.com/starford/naudiz/internal/storage"
)

// NewAggregator builds the aggregator described by the configuration.
func NewAggregator(cfg *Config) *aggregate.Aggregator {
	opts := []aggregate.Option{
		aggregate.WithBackend(cfg.Workspace.Backend, cfg.Workspace.Device),
	}
	if cfg.Workspace.BuildInfoPath != "" {
		opts = append(opts, aggregate.WithBuildInfo(cfg.Workspace.BuildInfoPath))
	}
	return aggregate.New(opts...)
}

// Run starts watch mode with the given options: an initial catalog sync and
// summary write, then a filesystem watcher that refreshes both whenever
// session files change, until the context is cancelled or a signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("telemetry_dir", cfg.Workspace.TelemetryDir),
		slog.String("summary_path", cfg.Workspace.SummaryPath),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	// Initialize the telemetry directory provider.
	store, err := storage.NewFS(cfg.Workspace.TelemetryDir)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	// Initialize the session catalog.
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	agg := NewAggregator(cfg)

	// Initial sync and summary write.
	if err := index.Sync(db, store, agg, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}
	summary, err := agg.Accumulate(store.Root(), cfg.Workspace.SummaryPath)
	if err != nil {
		logger.Warn("initial accumulate failed", slog.String("error", err.Error()))
	} else {
		logger.Info("summary written",
			slog.Int("sessions", summary.SessionCount),
			slog.Int("excluded_files", summary.ExcludedFiles))
	}

	debounce := time.Duration(cfg.Workspace.DebounceMs) * time.Millisecond

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the telemetry directory.
	g.Go(func() error {
		return index.Watch(gCtx, db, store, agg,
			store.Root(), cfg.Workspace.SummaryPath, debounce, logger, nil)
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
			return context.Canceled
		case <-gCtx.Done():
			return nil
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Watch mode stopped")
	return nil
}
