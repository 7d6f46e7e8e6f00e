package aggregate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Summary is the durable artifact of one aggregation run. It is recomputed
// wholesale each run and overwrites the previous artifact for a workspace.
type Summary struct {
	SessionCount    int
	MeanStability   float64
	Variance        float64
	DriftPercentile float64
	Backend         string
	DeviceName      string
	SourceDirectory string
	// ExcludedFiles counts session files skipped as unparseable; the
	// aggregate itself is best-effort, this makes the exclusions visible.
	ExcludedFiles int
}

// summaryDTO is the only place that knows about the dual field naming.
// External consumers still read the legacy snake_case names, so every value
// is emitted under both spellings. Field order is the serialized key order.
type summaryDTO struct {
	SourceDirectory string          `json:"sourceDirectory"`
	Backend         string          `json:"backend"`
	DeviceName      string          `json:"deviceName"`
	SessionCount    int             `json:"sessionCount"`
	MeanStability   float64         `json:"meanStability"`
	Variance        float64         `json:"variance"`
	DriftPercentile float64         `json:"driftPercentile"`
	ExcludedFiles   int             `json:"excludedFiles"`
	SourceDirLegacy string          `json:"source_directory"`
	DeviceLegacy    string          `json:"device_name"`
	SessionsLegacy  int             `json:"session_count"`
	MeanLegacy      float64         `json:"mean_stability"`
	VarianceLegacy  float64         `json:"stability_variance"`
	DriftLegacy     float64         `json:"drift_index"`
	BuildInfo       json.RawMessage `json:"build_info,omitempty"`
}

// WriteSummary writes the summary JSON artifact to outputPath, creating
// parent directories as needed. Output bytes are deterministic for a given
// summary, so re-aggregating an unchanged directory rewrites an identical
// file. When the aggregator carries a provenance snapshot path, its contents
// are embedded verbatim as build_info, uninterpreted.
func (a *Aggregator) WriteSummary(s Summary, outputPath, sourceDirectory string) error {
	dto := summaryDTO{
		SourceDirectory: sourceDirectory,
		Backend:         s.Backend,
		DeviceName:      s.DeviceName,
		SessionCount:    s.SessionCount,
		MeanStability:   s.MeanStability,
		Variance:        s.Variance,
		DriftPercentile: s.DriftPercentile,
		ExcludedFiles:   s.ExcludedFiles,
		SourceDirLegacy: sourceDirectory,
		DeviceLegacy:    s.DeviceName,
		SessionsLegacy:  s.SessionCount,
		MeanLegacy:      s.MeanStability,
		VarianceLegacy:  s.Variance,
		DriftLegacy:     s.DriftPercentile,
	}

	if a.buildInfoPath != "" {
		if raw, err := os.ReadFile(a.buildInfoPath); err == nil && json.Valid(raw) {
			dto.BuildInfo = raw
		}
	}

	data, err := json.MarshalIndent(dto, "", "  ")
	if err != nil {
		return fmt.Errorf("aggregate: marshal summary: %w", err)
	}
	data = append(data, '\n')

	if dir := filepath.Dir(outputPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("aggregate: create summary dir: %w", err)
		}
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("aggregate: write summary: %w", err)
	}
	return nil
}

// LoadSummary reads a previously written summary artifact, best-effort.
// Missing files, malformed JSON, and absent fields all degrade to zeroed
// defaults; a legacy field name is used whenever the modern one is absent
// or zero.
func (a *Aggregator) LoadSummary(path string) Summary {
	summary := Summary{Backend: "unknown", DeviceName: "unspecified"}

	data, err := os.ReadFile(path)
	if err != nil {
		return summary
	}
	var dto summaryDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return summary
	}

	summary.SourceDirectory = coalesceString(dto.SourceDirectory, dto.SourceDirLegacy)
	if dto.Backend != "" {
		summary.Backend = dto.Backend
	}
	if device := coalesceString(dto.DeviceName, dto.DeviceLegacy); device != "" {
		summary.DeviceName = device
	}
	if dto.SessionCount != 0 {
		summary.SessionCount = dto.SessionCount
	} else {
		summary.SessionCount = dto.SessionsLegacy
	}
	summary.MeanStability = coalesceFloat(dto.MeanStability, dto.MeanLegacy)
	summary.Variance = coalesceFloat(dto.Variance, dto.VarianceLegacy)
	summary.DriftPercentile = coalesceFloat(dto.DriftPercentile, dto.DriftLegacy)
	summary.ExcludedFiles = dto.ExcludedFiles
	return summary
}

func coalesceString(modern, legacy string) string {
	if modern != "" {
		return modern
	}
	return legacy
}

func coalesceFloat(modern, legacy float64) float64 {
	if modern != 0 {
		return modern
	}
	return legacy
}
