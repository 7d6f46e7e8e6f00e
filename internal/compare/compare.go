// Package compare evaluates several summary artifacts against a baseline,
// quantifying mean, variance, and drift deltas between execution backends.
package compare

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/naudiz/internal/aggregate"
)

// driftSignificanceMs is the threshold beyond which a drift delta against
// the baseline is flagged.
const driftSignificanceMs = 5.0

// Entry is one compared summary with its deltas against the baseline.
type Entry struct {
	Path             string
	Summary          aggregate.Summary
	MeanDelta        float64
	DriftSkew        float64
	VarianceRatio    float64
	DriftSignificant bool
}

// Result is the outcome of one comparison run. The baseline entry is always
// first.
type Result struct {
	BaselineBackend string
	Entries         []Entry
	WroteOutput     bool
}

// Comparator loads summaries and compares them. CPU/host backends are
// preferred as the baseline because they are the reproducibility reference.
type Comparator struct {
	agg *aggregate.Aggregator
}

// New returns a comparator using the given aggregator for summary loading.
func New(agg *aggregate.Aggregator) *Comparator {
	return &Comparator{agg: agg}
}

// Compare loads every summary path, selects the baseline, computes deltas,
// and (when outputPath is non-empty) writes a comparison JSON artifact.
// Missing files are skipped; output write failures leave WroteOutput false
// rather than failing the comparison.
func (c *Comparator) Compare(paths []string, outputPath string) Result {
	var result Result
	if len(paths) == 0 {
		return result
	}

	entries := make([]Entry, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		entries = append(entries, Entry{
			Path:    path,
			Summary: c.agg.LoadSummary(path),
		})
	}
	if len(entries) == 0 {
		return result
	}

	baselineIndex := 0
	for i, entry := range entries {
		if isCPUBackend(entry.Summary.Backend) {
			baselineIndex = i
			break
		}
	}
	if baselineIndex != 0 {
		entries[0], entries[baselineIndex] = entries[baselineIndex], entries[0]
	}

	baseline := entries[0].Summary
	result.BaselineBackend = baseline.Backend
	if result.BaselineBackend == "" {
		result.BaselineBackend = "unknown"
	}

	entries[0].VarianceRatio = 1.0
	for i := 1; i < len(entries); i++ {
		entry := &entries[i]
		entry.MeanDelta = entry.Summary.MeanStability - baseline.MeanStability
		entry.DriftSkew = entry.Summary.DriftPercentile - baseline.DriftPercentile
		entry.VarianceRatio = varianceRatio(baseline.Variance, entry.Summary.Variance)
		entry.DriftSignificant = math.Abs(entry.DriftSkew) > driftSignificanceMs
	}
	result.Entries = entries

	if outputPath != "" {
		result.WroteOutput = writeComparison(result, baseline, outputPath)
	}
	return result
}

// isCPUBackend reports whether a backend label names a CPU/host execution
// target.
func isCPUBackend(backend string) bool {
	lowered := strings.ToLower(backend)
	return strings.Contains(lowered, "cpu") || strings.Contains(lowered, "host")
}

// varianceRatio guards against a near-zero baseline variance: both near
// zero compares equal (1.0), only the baseline near zero is infinitely
// worse.
func varianceRatio(baseline, candidate float64) float64 {
	const epsilon = 1e-12
	if baseline <= epsilon {
		if candidate <= epsilon {
			return 1.0
		}
		return math.Inf(1)
	}
	return candidate / baseline
}

type comparisonSideDTO struct {
	Backend         string  `json:"backend"`
	DeviceName      string  `json:"deviceName"`
	MeanStability   float64 `json:"meanStability"`
	Variance        float64 `json:"variance"`
	DriftPercentile float64 `json:"driftPercentile"`
}

type comparisonEntryDTO struct {
	Path string `json:"path"`
	comparisonSideDTO
	MeanDelta        float64         `json:"meanDelta"`
	DriftSkew        float64         `json:"driftSkew"`
	VarianceRatio    json.RawMessage `json:"varianceRatio"`
	DriftSignificant bool            `json:"driftSignificant"`
}

func writeComparison(result Result, baseline aggregate.Summary, outputPath string) bool {
	doc := struct {
		Baseline comparisonSideDTO    `json:"baseline"`
		Entries  []comparisonEntryDTO `json:"entries"`
	}{
		Baseline: sideDTO(baseline),
	}
	for _, entry := range result.Entries {
		doc.Entries = append(doc.Entries, comparisonEntryDTO{
			Path:              entry.Path,
			comparisonSideDTO: sideDTO(entry.Summary),
			MeanDelta:         entry.MeanDelta,
			DriftSkew:         entry.DriftSkew,
			VarianceRatio:     formatRatio(entry.VarianceRatio),
			DriftSignificant:  entry.DriftSignificant,
		})
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return false
	}
	data = append(data, '\n')

	if dir := filepath.Dir(outputPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false
		}
	}
	return os.WriteFile(outputPath, data, 0o644) == nil
}

func sideDTO(s aggregate.Summary) comparisonSideDTO {
	return comparisonSideDTO{
		Backend:         s.Backend,
		DeviceName:      s.DeviceName,
		MeanStability:   s.MeanStability,
		Variance:        s.Variance,
		DriftPercentile: s.DriftPercentile,
	}
}

// formatRatio keeps the comparison document valid JSON when the ratio is
// infinite.
func formatRatio(ratio float64) json.RawMessage {
	if math.IsInf(ratio, 1) {
		return json.RawMessage(`"inf"`)
	}
	b, _ := json.Marshal(ratio)
	return b
}
