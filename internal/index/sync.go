package index

import (
	"log/slog"

	"github.com/starford/naudiz/internal/aggregate"
	"github.com/starford/naudiz/internal/checksum"
	"github.com/starford/naudiz/internal/storage"
	"github.com/starford/naudiz/internal/telemetry"
)

// Sync reconciles the catalog with the telemetry directory:
//   - new/changed session files are re-scored and upserted
//   - files removed from disk are deleted from the catalog
//
// Unparseable files are skipped with a warning; one bad session never
// blocks the sync.
func Sync(db SessionIndex, store storage.Provider, agg *aggregate.Aggregator, logger *slog.Logger) error {
	metas, err := store.List()
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Name] = struct{}{}

		if checksums[m.Name] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Name)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("file", m.Name), slog.String("error", err.Error()))
			continue
		}
		if err := catalogSession(db, agg, m.Name, data); err != nil {
			logger.Warn("sync: catalog failed", slog.String("file", m.Name), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: catalogued", slog.String("file", m.Name))
		}
	}

	// Remove stale entries.
	for name := range checksums {
		if _, ok := disk[name]; !ok {
			if err := db.DeleteSession(name); err != nil {
				logger.Warn("sync: delete failed", slog.String("file", name), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("file", name))
			}
		}
	}

	return nil
}

// catalogSession parses one session document, summarizes it, and upserts
// the resulting statistics.
func catalogSession(db SessionIndex, agg *aggregate.Aggregator, name string, data []byte) error {
	records, _, err := telemetry.ParseDocument(data)
	if err != nil {
		return err
	}
	metrics := agg.Summarize(records)

	return db.UpsertSession(SessionRow{
		Filename:        name,
		Checksum:        checksum.Sum(data),
		SessionCount:    metrics.SessionCount,
		MeanStability:   metrics.MeanStability,
		Variance:        metrics.Variance,
		DriftPercentile: metrics.DriftPercentile,
	})
}
