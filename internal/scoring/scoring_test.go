package scoring

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/starford/naudiz/internal/telemetry"
)

func TestEvaluateEmptyBatchIsPerfect(t *testing.T) {
	res := Evaluate(nil)
	if res.StabilityScore != 1.0 {
		t.Errorf("score = %v, want 1.0", res.StabilityScore)
	}
	if res.SampleCount != 0 {
		t.Errorf("samples = %d, want 0", res.SampleCount)
	}
	if res.EntropyVariance != 0 || res.DurationVariance != 0 || res.DriftMs != 0 {
		t.Errorf("empty batch must carry zero variances, got %+v", res)
	}
}

func TestEvaluateIdenticalRecords(t *testing.T) {
	at := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	records := []telemetry.Record{
		{Seed: 1000, DurationMs: 5.0, AcquiredAt: at},
		{Seed: 1000, DurationMs: 5.0, AcquiredAt: at},
		{Seed: 1000, DurationMs: 5.0, AcquiredAt: at},
	}
	res := Evaluate(records)
	if res.StabilityScore != 1.0 {
		t.Errorf("score = %v, want 1.0 for identical records", res.StabilityScore)
	}
	if res.EntropyVariance != 0 {
		t.Errorf("entropy variance = %v, want 0", res.EntropyVariance)
	}
	if res.DriftMs != 0 {
		t.Errorf("drift = %v, want 0", res.DriftMs)
	}
	if res.SampleCount != 3 {
		t.Errorf("samples = %d, want 3", res.SampleCount)
	}
}

func TestEvaluatePenalizesSpread(t *testing.T) {
	base := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	records := []telemetry.Record{
		{Seed: 1, DurationMs: 1.0, AcquiredAt: base},
		{Seed: 1 << 40, DurationMs: 900.0, AcquiredAt: base.Add(400 * time.Millisecond)},
	}
	res := Evaluate(records)
	if res.StabilityScore >= 1.0 {
		t.Errorf("score = %v, want < 1.0 for noisy batch", res.StabilityScore)
	}
	if res.StabilityScore < 0 {
		t.Errorf("score = %v, must stay in [0,1]", res.StabilityScore)
	}
	if res.DriftMs != 400 {
		t.Errorf("drift = %v, want 400", res.DriftMs)
	}
}

func TestEvaluateDriftCappedAtOneSecond(t *testing.T) {
	base := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	records := []telemetry.Record{
		{Seed: 5, DurationMs: 2.0, AcquiredAt: base},
		{Seed: 5, DurationMs: 2.0, AcquiredAt: base.Add(30 * time.Second)},
	}
	res := Evaluate(records)
	if res.DriftMs != 30000 {
		t.Errorf("drift = %v, want raw 30000", res.DriftMs)
	}
	// Only the drift component penalizes here, and it saturates at 1/3.
	want := 1.0 - 1.0/3.0
	if math.Abs(res.StabilityScore-want) > 1e-9 {
		t.Errorf("score = %v, want %v", res.StabilityScore, want)
	}
}

func TestEvaluateIgnoresZeroTimestamps(t *testing.T) {
	at := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	records := []telemetry.Record{
		{Seed: 9, DurationMs: 1.0, AcquiredAt: at},
		{Seed: 9, DurationMs: 1.0},
	}
	if res := Evaluate(records); res.DriftMs != 0 {
		t.Errorf("drift = %v, want 0 when only one timestamp is set", res.DriftMs)
	}
}

func TestEvaluateAggregated(t *testing.T) {
	at := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	stable := []telemetry.Record{
		{Seed: 1, DurationMs: 1.0, AcquiredAt: at},
		{Seed: 1, DurationMs: 1.0, AcquiredAt: at},
	}
	res := EvaluateAggregated([][]telemetry.Record{stable, nil})
	if res.SampleCount != 2 {
		t.Errorf("samples = %d, want 2", res.SampleCount)
	}
	// Both groups score 1.0: the empty group by definition.
	if res.StabilityScore != 1.0 {
		t.Errorf("score = %v, want 1.0", res.StabilityScore)
	}

	if res := EvaluateAggregated(nil); res.StabilityScore != 1.0 || res.SampleCount != 0 {
		t.Errorf("empty aggregation = %+v", res)
	}
}

func TestResultJSON(t *testing.T) {
	res := Result{StabilityScore: 0.5, EntropyVariance: 0.25, DriftMs: 12, SampleCount: 4}
	data, err := res.JSON()
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	var got map[string]float64
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["stability_score"] != 0.5 || got["entropy_variance"] != 0.25 || got["drift_ms"] != 12 || got["samples"] != 4 {
		t.Errorf("payload = %v", got)
	}
}
