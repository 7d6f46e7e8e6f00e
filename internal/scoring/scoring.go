// Package scoring computes normalized reproducibility scores over batches
// of telemetry records. All functions are pure; the expensive analysis
// happens here, offline, rather than at release time.
package scoring

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/starford/naudiz/internal/telemetry"
)

// Result summarizes one scored batch.
type Result struct {
	StabilityScore   float64
	EntropyVariance  float64
	DurationVariance float64
	DriftMs          float64
	SampleCount      int
}

// JSON renders the result as a compact JSON object.
func (r Result) JSON() ([]byte, error) {
	dto := struct {
		StabilityScore   float64 `json:"stability_score"`
		EntropyVariance  float64 `json:"entropy_variance"`
		DurationVariance float64 `json:"duration_variance"`
		DriftMs          float64 `json:"drift_ms"`
		Samples          int     `json:"samples"`
	}{r.StabilityScore, r.EntropyVariance, r.DurationVariance, r.DriftMs, r.SampleCount}
	return json.Marshal(dto)
}

// Text renders the result as a single human-readable line.
func (r Result) Text() string {
	return fmt.Sprintf("Samples: %d, Stability score: %g, Entropy variance: %g, Duration variance: %g, Drift (ms): %g",
		r.SampleCount, r.StabilityScore, r.EntropyVariance, r.DurationVariance, r.DriftMs)
}

// Evaluate scores one batch of records. An empty batch is perfect by
// definition (score 1.0). The score blends three equally weighted, bounded
// penalty signals: normalized seed variance, normalized duration variance,
// and acquisition-timestamp drift capped at one second.
func Evaluate(records []telemetry.Record) Result {
	result := Result{SampleCount: len(records)}
	if len(records) == 0 {
		result.StabilityScore = 1.0
		return result
	}

	seeds := make([]float64, 0, len(records))
	durations := make([]float64, 0, len(records))
	for _, rec := range records {
		seeds = append(seeds, float64(rec.Seed))
		durations = append(durations, rec.DurationMs)
	}

	result.EntropyVariance = clamp01(normalizedVariance(seeds))
	result.DurationVariance = clamp01(normalizedVariance(durations))
	result.DriftMs = math.Abs(acquisitionDriftMs(records))

	driftComponent := clamp01(result.DriftMs / 1000.0)
	penalty := (result.EntropyVariance + result.DurationVariance + driftComponent) / 3.0
	result.StabilityScore = clamp01(1.0 - penalty)
	return result
}

// EvaluateAggregated scores each group independently and arithmetic-means
// every output field across groups; sample counts are summed.
func EvaluateAggregated(groups [][]telemetry.Record) Result {
	var aggregate Result
	if len(groups) == 0 {
		aggregate.StabilityScore = 1.0
		return aggregate
	}

	var stabilitySum, entropySum, durationSum, driftSum float64
	for _, group := range groups {
		res := Evaluate(group)
		stabilitySum += res.StabilityScore
		entropySum += res.EntropyVariance
		durationSum += res.DurationVariance
		driftSum += res.DriftMs
		aggregate.SampleCount += res.SampleCount
	}

	count := float64(len(groups))
	aggregate.StabilityScore = stabilitySum / count
	aggregate.EntropyVariance = entropySum / count
	aggregate.DurationVariance = durationSum / count
	aggregate.DriftMs = driftSum / count
	return aggregate
}

// normalizedVariance returns the Bessel-corrected sample variance scaled by
// (|mean|+1)^2. The +1 keeps the denominator away from zero for near-zero
// means.
func normalizedVariance(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sumSq float64
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	variance := sumSq / float64(len(values)-1)

	scale := math.Abs(mean) + 1.0
	return variance / (scale * scale)
}

// acquisitionDriftMs is the spread between the earliest and latest nonzero
// acquisition timestamps, in milliseconds.
func acquisitionDriftMs(records []telemetry.Record) float64 {
	var earliest, latest time.Time
	for _, rec := range records {
		if rec.AcquiredAt.IsZero() {
			continue
		}
		if earliest.IsZero() || rec.AcquiredAt.Before(earliest) {
			earliest = rec.AcquiredAt
		}
		if latest.IsZero() || rec.AcquiredAt.After(latest) {
			latest = rec.AcquiredAt
		}
	}
	if earliest.IsZero() || latest.IsZero() {
		return 0
	}
	return float64(latest.Sub(earliest)) / float64(time.Millisecond)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
