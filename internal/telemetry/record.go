// Package telemetry captures anchor lifecycle records in a thread-safe,
// append-only store and serializes them as per-session JSON documents.
package telemetry

import (
	"bytes"
	"runtime"
	"time"
)

// Record holds the captured metadata of one lock/release cycle. It is
// created partially at acquire time and completed at release time; once
// released it is never mutated again.
type Record struct {
	Context        string
	Seed           uint64
	ThreadID       string
	AcquiredAt     time.Time
	ReleasedAt     *time.Time
	DurationMs     float64
	StabilityScore float64
}

// clone returns a deep copy so snapshots never alias the recorder's
// internal ReleasedAt pointers.
func (r Record) clone() Record {
	out := r
	if r.ReleasedAt != nil {
		released := *r.ReleasedAt
		out.ReleasedAt = &released
	}
	return out
}

// GoroutineID returns the numeric id of the calling goroutine as a string.
// Telemetry stores it as the record's thread identity; the entropy source
// hashes it into seeds.
func GoroutineID() string {
	buf := make([]byte, 64)
	n := runtime.Stack(buf, false)
	// First line reads "goroutine N [state]:".
	fields := bytes.Fields(buf[:n])
	if len(fields) >= 2 {
		return string(fields[1])
	}
	return "0"
}
