// Package metrics exposes Prometheus collectors for the telemetry pipeline.
// Counters make the soft-fail paths (dropped releases, excluded session
// files) observable without changing their silent-by-default semantics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	recordsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "naudiz",
			Name:      "records_total",
			Help:      "Total number of telemetry records acquired.",
		},
	)

	droppedReleasesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "naudiz",
			Name:      "dropped_releases_total",
			Help:      "Releases discarded because their record handle was stale.",
		},
	)

	excludedFilesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "naudiz",
			Name:      "excluded_files_total",
			Help:      "Session files excluded from aggregation as unparseable.",
		},
	)

	aggregationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "naudiz",
			Name:      "aggregation_seconds",
			Help:      "Wall time of one aggregation pass over the telemetry directory.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)
)

// Register attaches all collectors to the supplied registerer. Registering
// twice is tolerated.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		recordsTotal,
		droppedReleasesTotal,
		excludedFilesTotal,
		aggregationSeconds,
	}
	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveRecord counts one acquired telemetry record.
func ObserveRecord() {
	recordsTotal.Inc()
}

// ObserveDroppedRelease counts one release dropped on a stale handle.
func ObserveDroppedRelease() {
	droppedReleasesTotal.Inc()
}

// ObserveExcludedFile counts one session file excluded from an aggregate.
func ObserveExcludedFile() {
	excludedFilesTotal.Inc()
}

// ObserveAggregation records the duration of one aggregation pass.
func ObserveAggregation(d time.Duration) {
	if d < 0 {
		d = 0
	}
	aggregationSeconds.Observe(d.Seconds())
}
