package index

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/naudiz/internal/aggregate"
	"github.com/starford/naudiz/internal/storage"
)

// RefreshCallback is called after a watcher-driven refresh with the fresh
// workspace summary.
type RefreshCallback func(summary aggregate.Summary)

// Watch starts an fsnotify watcher on the telemetry directory and keeps the
// catalog and the summary artifact current until ctx is cancelled. Session
// files arrive in bursts (one per process exit), so refreshes are debounced.
func Watch(ctx context.Context, db SessionIndex, store storage.Provider, agg *aggregate.Aggregator,
	telemetryDir, summaryPath string, debounce time.Duration, logger *slog.Logger, cb RefreshCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(telemetryDir); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("dir", telemetryDir))

	var refreshTimer *time.Timer
	var refreshCh <-chan time.Time

	scheduleRefresh := func() {
		if refreshTimer == nil {
			refreshTimer = time.NewTimer(debounce)
			refreshCh = refreshTimer.C
		} else {
			refreshTimer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if refreshTimer != nil {
				refreshTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-refreshCh:
			refresh(db, store, agg, telemetryDir, summaryPath, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(ev.Name, ".json") {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				logger.Debug("watcher: session event",
					slog.String("file", ev.Name), slog.String("op", ev.Op.String()))
				scheduleRefresh()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// refresh re-syncs the catalog and rewrites the summary artifact.
func refresh(db SessionIndex, store storage.Provider, agg *aggregate.Aggregator,
	telemetryDir, summaryPath string, logger *slog.Logger, cb RefreshCallback) {
	if err := Sync(db, store, agg, logger); err != nil {
		logger.Warn("refresh: sync failed", slog.String("error", err.Error()))
		return
	}
	summary, err := agg.Accumulate(telemetryDir, summaryPath)
	if err != nil {
		logger.Warn("refresh: accumulate failed", slog.String("error", err.Error()))
		return
	}
	logger.Info("refresh: summary updated",
		slog.Int("sessions", summary.SessionCount),
		slog.Int("excluded_files", summary.ExcludedFiles),
		slog.Float64("mean_stability", summary.MeanStability))
	if cb != nil {
		cb(summary)
	}
}
