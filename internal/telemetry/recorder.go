package telemetry

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/starford/naudiz/internal/metrics"
)

// DefaultFilenameHint prefixes session files when no hint is given.
const DefaultFilenameHint = "naudiz_run"

// Recorder is a thread-safe append-only store of lifecycle records. A single
// Recorder is shared by many anchors across goroutines; record indices are
// handles valid only against the instance that issued them, and only until
// the next merge.
type Recorder struct {
	mu      sync.Mutex
	records []Record
	dropped atomic.Int64
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// RecordAcquire appends a partial record for a fresh acquisition and returns
// its index as a handle for the matching release.
func (r *Recorder) RecordAcquire(ctx string, seed uint64) int {
	rec := Record{
		Context:    ctx,
		Seed:       seed,
		ThreadID:   GoroutineID(),
		AcquiredAt: time.Now(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	metrics.ObserveRecord()
	return len(r.records) - 1
}

// RecordRelease completes the record identified by id. A stale handle (for
// example after a merge renumbered the store) is a counted no-op: telemetry
// completeness is best-effort, never a crash.
func (r *Recorder) RecordRelease(id int, ctx string, seed uint64, score float64) {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()
	if id < 0 || id >= len(r.records) {
		r.dropped.Add(1)
		metrics.ObserveDroppedRelease()
		return
	}

	rec := &r.records[id]
	released := now
	rec.ReleasedAt = &released
	duration := float64(now.Sub(rec.AcquiredAt)) / float64(time.Millisecond)
	if duration < 0 {
		duration = 0
	}
	rec.DurationMs = duration
	rec.StabilityScore = score
	if rec.Context == "" {
		rec.Context = ctx
	}
	if rec.Seed == 0 {
		rec.Seed = seed
	}
}

// DroppedReleases reports how many releases were discarded due to stale
// handles since the recorder was created.
func (r *Recorder) DroppedReleases() int64 {
	return r.dropped.Load()
}

// Len returns the number of stored records.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Records returns a snapshot copy of all stored records.
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.records))
	for i, rec := range r.records {
		out[i] = rec.clone()
	}
	return out
}

// Merge appends every record of other. Handles issued before the merge are
// not guaranteed to keep pointing at the same logical record.
func (r *Recorder) Merge(other *Recorder) {
	r.MergeRecords(other.Records())
}

// MergeRecords appends foreign records verbatim, without deduplication or
// renumbering.
func (r *Recorder) MergeRecords(records []Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range records {
		r.records = append(r.records, rec.clone())
	}
}

// AlignToReference shifts every record so that the earliest nonzero
// acquisition timestamp lands on ref, establishing a shared logical time
// origin across merged batches. Call at most once per logical merge;
// repeated calls compound the shift.
func (r *Recorder) AlignToReference(ref time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var earliest time.Time
	for _, rec := range r.records {
		if rec.AcquiredAt.IsZero() {
			continue
		}
		if earliest.IsZero() || rec.AcquiredAt.Before(earliest) {
			earliest = rec.AcquiredAt
		}
	}
	if earliest.IsZero() {
		return
	}

	delta := ref.Sub(earliest)
	for i := range r.records {
		rec := &r.records[i]
		if !rec.AcquiredAt.IsZero() {
			rec.AcquiredAt = rec.AcquiredAt.Add(delta)
		}
		if rec.ReleasedAt != nil {
			shifted := rec.ReleasedAt.Add(delta)
			rec.ReleasedAt = &shifted
		}
	}
}
