package aggregate

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/naudiz/internal/telemetry"
)

func writeSession(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

const sessionOne = `{
	"stability_score": 0.85,
	"records": [
		{"context": "a", "seed": 1, "acquired_at": "2024-01-15T10:30:00Z", "duration_ms": 2.000, "stability_score": 0.9},
		{"context": "b", "seed": 2, "acquired_at": "2024-01-15T10:30:01Z", "duration_ms": 4.000, "stability_score": 0.8}
	]
}`

const sessionTwo = `{
	"stability_score": 0.7,
	"records": [
		{"context": "c", "seed": 3, "acquired_at": "2024-01-15T11:00:00Z", "duration_ms": 6.000, "stability_score": 0.7}
	]
}`

func TestAggregateAcrossSessions(t *testing.T) {
	dir := t.TempDir()
	writeSession(t, dir, "run_one.json", sessionOne)
	writeSession(t, dir, "run_two.json", sessionTwo)

	summary, err := New().Aggregate(dir)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	if summary.SessionCount != 3 {
		t.Errorf("session count = %d, want 3 (records, not files)", summary.SessionCount)
	}
	if math.Abs(summary.MeanStability-0.8) > 1e-9 {
		t.Errorf("mean = %v, want 0.8", summary.MeanStability)
	}
	if summary.Variance <= 0 {
		t.Errorf("variance = %v, want > 0", summary.Variance)
	}
	// Durations pooled: {2, 4, 6}, p95 index floor(0.95*2) = 1.
	if summary.DriftPercentile != 4 {
		t.Errorf("drift percentile = %v, want 4", summary.DriftPercentile)
	}
	if summary.ExcludedFiles != 0 {
		t.Errorf("excluded = %d, want 0", summary.ExcludedFiles)
	}
	if summary.SourceDirectory != dir {
		t.Errorf("source dir = %q", summary.SourceDirectory)
	}
}

func TestAggregateMergedRecorderOutput(t *testing.T) {
	base := telemetry.NewRecorder()
	base.MergeRecords([]telemetry.Record{
		{Context: "a", StabilityScore: 1.0, DurationMs: 5.0},
		{Context: "b", StabilityScore: 0.8, DurationMs: 6.0},
	})
	other := telemetry.NewRecorder()
	other.MergeRecords([]telemetry.Record{
		{Context: "c", StabilityScore: 0.6, DurationMs: 4.0},
	})
	base.Merge(other)

	dir := t.TempDir()
	if err := base.WriteJSON(dir, "merged"); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	summary, err := New().Aggregate(dir)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if summary.SessionCount != 3 {
		t.Errorf("session count = %d, want 3", summary.SessionCount)
	}
	if math.Abs(summary.MeanStability-0.8) > 1e-9 {
		t.Errorf("mean = %v, want 0.8", summary.MeanStability)
	}
	if summary.Variance < 0 {
		t.Errorf("variance = %v, want >= 0", summary.Variance)
	}
}

func TestAggregateSkipsMalformedFiles(t *testing.T) {
	dir := t.TempDir()
	writeSession(t, dir, "good.json", sessionTwo)
	writeSession(t, dir, "broken.json", "{this is not json")
	writeSession(t, dir, "noise.txt", "plain text")

	summary, err := New().Aggregate(dir)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if summary.ExcludedFiles != 2 {
		t.Errorf("excluded = %d, want 2", summary.ExcludedFiles)
	}
	if summary.SessionCount != 1 {
		t.Errorf("session count = %d, want 1", summary.SessionCount)
	}
}

func TestAggregateMissingDirectory(t *testing.T) {
	summary, err := New().Aggregate(filepath.Join(t.TempDir(), "absent"))
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if summary.SessionCount != 0 || summary.MeanStability != 0 {
		t.Errorf("summary = %+v, want empty", summary)
	}
}

func TestAggregateStampsBackend(t *testing.T) {
	a := New(WithBackend("metal", "m2-max"))
	summary, err := a.Aggregate(t.TempDir())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if summary.Backend != "metal" || summary.DeviceName != "m2-max" {
		t.Errorf("labels = %q/%q", summary.Backend, summary.DeviceName)
	}
}

func TestSummarizeFiltersDurations(t *testing.T) {
	records := []telemetry.ParsedRecord{
		{StabilityScore: 1.0, DurationMs: 5, HasDuration: true},
		{StabilityScore: 1.0, DurationMs: -3, HasDuration: true},
		{StabilityScore: 1.0, DurationMs: math.Inf(1), HasDuration: true},
		{StabilityScore: 1.0, DurationMs: math.NaN(), HasDuration: true},
		{StabilityScore: 1.0},
	}
	summary := New().Summarize(records)
	if summary.SessionCount != 5 {
		t.Errorf("session count = %d, want 5", summary.SessionCount)
	}
	if summary.DriftPercentile != 5 {
		t.Errorf("drift percentile = %v, want 5 (only finite non-negative durations pool)", summary.DriftPercentile)
	}
}

func TestLoadSessionsOrderedByFilename(t *testing.T) {
	dir := t.TempDir()
	writeSession(t, dir, "b_run.json", sessionTwo)
	writeSession(t, dir, "a_run.json", sessionOne)
	writeSession(t, dir, "broken.json", "nope")

	sessions, err := New().LoadSessions(dir)
	if err != nil {
		t.Fatalf("LoadSessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("sessions = %d, want 2", len(sessions))
	}
	if sessions[0].Source != "a_run.json" || sessions[1].Source != "b_run.json" {
		t.Errorf("order = %s, %s", sessions[0].Source, sessions[1].Source)
	}
	if sessions[0].Metrics.SessionCount != 2 {
		t.Errorf("per-file record count = %d, want 2", sessions[0].Metrics.SessionCount)
	}
}

func TestAccumulateIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeSession(t, dir, "run.json", sessionOne)
	summaryPath := filepath.Join(t.TempDir(), "build", "summary.json")

	a := New(WithBackend("cpu", "host"))
	first, err := a.Accumulate(dir, summaryPath)
	if err != nil {
		t.Fatalf("Accumulate: %v", err)
	}
	firstBytes, err := os.ReadFile(summaryPath)
	if err != nil {
		t.Fatalf("summary not written: %v", err)
	}

	second, err := a.Accumulate(dir, summaryPath)
	if err != nil {
		t.Fatalf("Accumulate again: %v", err)
	}
	secondBytes, _ := os.ReadFile(summaryPath)

	if first != second {
		t.Errorf("summaries differ: %+v vs %+v", first, second)
	}
	if !bytes.Equal(firstBytes, secondBytes) {
		t.Error("unchanged directory must rewrite an identical artifact")
	}
}
