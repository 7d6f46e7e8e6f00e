package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/starford/naudiz/internal/apperr"
)

// timeLayout is the wire format for record timestamps: ISO-8601 UTC with
// second precision.
const timeLayout = "2006-01-02T15:04:05Z"

// fixed3 marshals a float with exactly three decimal places, matching the
// duration_ms wire contract.
type fixed3 float64

func (f fixed3) MarshalJSON() ([]byte, error) {
	return strconv.AppendFloat(nil, float64(f), 'f', 3, 64), nil
}

func (f *fixed3) UnmarshalJSON(data []byte) error {
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*f = fixed3(v)
	return nil
}

type recordDTO struct {
	Context        string  `json:"context"`
	Seed           uint64  `json:"seed"`
	ThreadID       string  `json:"thread_id"`
	AcquiredAt     string  `json:"acquired_at"`
	ReleasedAt     *string `json:"released_at"`
	DurationMs     fixed3  `json:"duration_ms"`
	StabilityScore float64 `json:"stability_score"`
}

type documentDTO struct {
	StabilityScore float64     `json:"stability_score"`
	Records        []recordDTO `json:"records"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

// ToJSON serializes the recorder as a per-session document: an aggregate
// stability_score (arithmetic mean over all records, 0 when empty) plus the
// records array.
func (r *Recorder) ToJSON() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc := documentDTO{Records: make([]recordDTO, 0, len(r.records))}
	var sum float64
	for _, rec := range r.records {
		dto := recordDTO{
			Context:        rec.Context,
			Seed:           rec.Seed,
			ThreadID:       rec.ThreadID,
			AcquiredAt:     formatTime(rec.AcquiredAt),
			DurationMs:     fixed3(rec.DurationMs),
			StabilityScore: rec.StabilityScore,
		}
		if rec.ReleasedAt != nil {
			released := formatTime(*rec.ReleasedAt)
			dto.ReleasedAt = &released
		}
		doc.Records = append(doc.Records, dto)
		sum += rec.StabilityScore
	}
	if len(r.records) > 0 {
		doc.StabilityScore = sum / float64(len(r.records))
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("telemetry: marshal document: %w", err)
	}
	return data, nil
}

// WriteJSON serializes the recorder and writes it under dir as
// <hint>_<UTC-timestamp>.json, creating the directory tree as needed. An
// empty hint falls back to DefaultFilenameHint.
func (r *Recorder) WriteJSON(dir, hint string) error {
	if hint == "" {
		hint = DefaultFilenameHint
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("telemetry: create dir: %w", err)
	}
	data, err := r.ToJSON()
	if err != nil {
		return err
	}
	name := fmt.Sprintf("%s_%s.json", hint, time.Now().UTC().Format("20060102T150405Z"))
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return fmt.Errorf("telemetry: write %s: %w", name, err)
	}
	return nil
}

// ParsedRecord is the tolerant, offline view of a session record: only the
// fields the aggregation layer needs, extracted without schema guarantees.
type ParsedRecord struct {
	StabilityScore float64
	DurationMs     float64
	HasDuration    bool
	AcquiredAt     time.Time
}

// ParseDocument extracts usable records from a session document. A record
// whose stability score is missing or non-numeric is dropped and counted in
// skipped. A document that is not valid JSON returns an error; callers
// aggregating many sessions treat that as a soft failure.
func ParseDocument(data []byte) (records []ParsedRecord, skipped int, err error) {
	var doc struct {
		Records []json.RawMessage `json:"records"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, 0, fmt.Errorf("telemetry: parse document: %w: %w", apperr.ErrCorrupt, err)
	}

	for _, raw := range doc.Records {
		var entry struct {
			StabilityScore *float64 `json:"stability_score"`
			DurationMs     *float64 `json:"duration_ms"`
			AcquiredAt     string   `json:"acquired_at"`
		}
		if err := json.Unmarshal(raw, &entry); err != nil || entry.StabilityScore == nil {
			skipped++
			continue
		}
		rec := ParsedRecord{StabilityScore: *entry.StabilityScore}
		if entry.DurationMs != nil {
			rec.DurationMs = *entry.DurationMs
			rec.HasDuration = true
		}
		if entry.AcquiredAt != "" {
			if t, perr := time.Parse(timeLayout, entry.AcquiredAt); perr == nil {
				rec.AcquiredAt = t
			}
		}
		records = append(records, rec)
	}
	return records, skipped, nil
}
