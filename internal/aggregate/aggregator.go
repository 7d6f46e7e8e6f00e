// Package aggregate reduces directories of telemetry session files into
// longitudinal stability statistics: a streaming mean/variance over
// stability scores and a duration drift percentile, folded into a durable
// summary artifact.
package aggregate

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/starford/naudiz/internal/apperr"
	"github.com/starford/naudiz/internal/metrics"
	"github.com/starford/naudiz/internal/telemetry"
)

// driftQuantile is the percentile of the pooled duration distribution
// reported as the drift metric.
const driftQuantile = 0.95

// Aggregator scans telemetry directories and produces summaries. The zero
// Aggregator is not usable; construct with New.
type Aggregator struct {
	backend       string
	deviceName    string
	buildInfoPath string
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithBackend stamps summaries with the execution backend and device that
// produced the telemetry.
func WithBackend(backend, deviceName string) Option {
	return func(a *Aggregator) {
		if backend != "" {
			a.backend = backend
		}
		if deviceName != "" {
			a.deviceName = deviceName
		}
	}
}

// WithBuildInfo points at a provenance snapshot file whose JSON contents are
// passed through verbatim into written summaries.
func WithBuildInfo(path string) Option {
	return func(a *Aggregator) {
		a.buildInfoPath = path
	}
}

// New returns an aggregator with default backend/device labels.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		backend:    "unknown",
		deviceName: "unspecified",
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// welford is the numerically stable single-pass mean/variance accumulator.
type welford struct {
	count int
	mean  float64
	m2    float64
}

func (w *welford) add(v float64) {
	w.count++
	delta := v - w.mean
	w.mean += delta / float64(w.count)
	w.m2 += delta * (v - w.mean)
}

// variance returns the Bessel-corrected sample variance, 0 when count < 2.
func (w *welford) variance() float64 {
	if w.count < 2 {
		return 0
	}
	return w.m2 / float64(w.count-1)
}

// Summarize folds parsed records into a summary: Welford mean/variance over
// stability scores and the p95 of all finite, non-negative durations.
func (a *Aggregator) Summarize(records []telemetry.ParsedRecord) Summary {
	var stability welford
	durations := make([]float64, 0, len(records))
	for _, rec := range records {
		stability.add(rec.StabilityScore)
		if rec.HasDuration && rec.DurationMs >= 0 && !math.IsInf(rec.DurationMs, 0) && !math.IsNaN(rec.DurationMs) {
			durations = append(durations, rec.DurationMs)
		}
	}

	return Summary{
		SessionCount:    stability.count,
		MeanStability:   stability.mean,
		Variance:        stability.variance(),
		DriftPercentile: Percentile(durations, driftQuantile),
		Backend:         a.backend,
		DeviceName:      a.deviceName,
	}
}

// Aggregate scans dir (non-recursively), parses every file as a telemetry
// session document, and folds all usable records into one summary. A file
// that fails to parse is excluded from the aggregate and counted; a record
// without a numeric stability score is skipped. A missing directory yields
// an empty summary without error.
func (a *Aggregator) Aggregate(dir string) (Summary, error) {
	start := time.Now()

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return a.Summarize(nil), nil
		}
		return a.Summarize(nil), fmt.Errorf("aggregate: read telemetry dir: %w: %w", apperr.ErrWorkspace, err)
	}

	var all []telemetry.ParsedRecord
	excluded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		records, ok := a.parseFile(filepath.Join(dir, entry.Name()))
		if !ok {
			excluded++
			metrics.ObserveExcludedFile()
			continue
		}
		all = append(all, records...)
	}

	summary := a.Summarize(all)
	summary.SourceDirectory = dir
	summary.ExcludedFiles = excluded
	metrics.ObserveAggregation(time.Since(start))
	return summary, nil
}

// SessionDetail pairs one session file with its per-file statistics.
type SessionDetail struct {
	Source  string
	Metrics Summary
}

// LoadSessions computes the same per-file statistics as Aggregate but keeps
// them separate per session file, ordered by filename. Unparseable files
// are omitted.
func (a *Aggregator) LoadSessions(dir string) ([]SessionDetail, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("aggregate: read telemetry dir: %w: %w", apperr.ErrWorkspace, err)
	}

	var sessions []SessionDetail
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		records, ok := a.parseFile(filepath.Join(dir, entry.Name()))
		if !ok {
			continue
		}
		sessions = append(sessions, SessionDetail{
			Source:  entry.Name(),
			Metrics: a.Summarize(records),
		})
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].Source < sessions[j].Source })
	return sessions, nil
}

// Accumulate aggregates telemetryDir and writes the summary artifact to
// summaryPath in one pass, overwriting any previous artifact.
func (a *Aggregator) Accumulate(telemetryDir, summaryPath string) (Summary, error) {
	summary, err := a.Aggregate(telemetryDir)
	if err != nil {
		return summary, err
	}
	if err := a.WriteSummary(summary, summaryPath, telemetryDir); err != nil {
		return summary, err
	}
	return summary, nil
}

// parseFile reads and parses one session file; ok is false when the file
// cannot be read or is not a valid telemetry document.
func (a *Aggregator) parseFile(path string) ([]telemetry.ParsedRecord, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	records, _, err := telemetry.ParseDocument(data)
	if err != nil {
		return nil, false
	}
	return records, true
}
