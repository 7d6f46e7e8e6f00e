// Package anchor implements a scoped, single-owner execution-context guard
// with an explicit lock/release lifecycle and a per-acquisition entropy
// seed. An anchor belongs to one logical owner at a time; it is not meant
// to be shared across goroutines.
package anchor

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/starford/naudiz/internal/telemetry"
)

// State is the lifecycle state of an anchor.
type State int

const (
	// Unlocked is the initial and idle state.
	Unlocked State = iota
	// Locked means the anchor currently guards a context.
	Locked
	// Released is a transient state between Locked and Unlocked.
	Released
	// Error is terminal: the anchor refuses further lock attempts.
	Error
)

func (s State) String() string {
	switch s {
	case Unlocked:
		return "Unlocked"
	case Locked:
		return "Locked"
	case Released:
		return "Released"
	case Error:
		return "Error"
	default:
		return "Unknown"
	}
}

// Status is a read-only snapshot of an anchor's state.
type Status struct {
	State       State
	Context     string
	EntropySeed uint64
}

var (
	// ErrDoubleLock reports a lock attempt on an already-locked anchor.
	ErrDoubleLock = errors.New("anchor: double lock")
	// ErrNotLocked reports a release on an anchor that holds nothing.
	ErrNotLocked = errors.New("anchor: release while not locked")
	// ErrUnusable reports any operation after a protocol violation.
	ErrUnusable = errors.New("anchor: unusable after protocol violation")
)

// releaseScore is the placeholder per-record score written at release time.
// Online recording stays cheap; meaningful scoring happens offline in the
// scoring package.
const releaseScore = 1.0

// Anchor is the guard itself. The zero value is not usable; construct with
// New.
type Anchor struct {
	status    Status
	source    SeedSource
	recorder  *telemetry.Recorder
	handle    int
	hasHandle bool
	trace     io.Writer
	strict    bool
}

// Option configures an Anchor.
type Option func(*Anchor)

// WithRecorder attaches a shared telemetry recorder. The recorder is an
// explicit dependency; there is no process-wide default.
func WithRecorder(rec *telemetry.Recorder) Option {
	return func(a *Anchor) {
		a.recorder = rec
	}
}

// WithTrace redirects the human-readable lifecycle trace (default: stdout).
func WithTrace(w io.Writer) Option {
	return func(a *Anchor) {
		a.trace = w
	}
}

// WithSeedSource replaces the default entropy source.
func WithSeedSource(src SeedSource) Option {
	return func(a *Anchor) {
		a.source = src
	}
}

// WithStrict makes protocol violations panic instead of returning an error.
// Intended for debug builds and integration tests that must fail loudly.
func WithStrict() Option {
	return func(a *Anchor) {
		a.strict = true
	}
}

// New returns an unlocked anchor.
func New(opts ...Option) *Anchor {
	a := &Anchor{
		source: EntropySource{},
		trace:  os.Stdout,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Lock acquires the anchor for the given context, generating a fresh entropy
// seed and recording the acquisition when a recorder is attached.
//
// Locking a Locked anchor is a protocol violation: the anchor transitions to
// Error and ErrDoubleLock is returned (or panics in strict mode). Locking an
// Error anchor returns ErrUnusable.
func (a *Anchor) Lock(ctx string) error {
	switch a.status.State {
	case Locked:
		a.setState(Error, fmt.Sprintf("Double-lock attempt for context '%s'", ctx))
		if a.strict {
			panic("anchor: double-lock detected")
		}
		return ErrDoubleLock
	case Error:
		if a.strict {
			panic("anchor: lock on anchor in error state")
		}
		return ErrUnusable
	}

	a.status.Context = ctx
	a.status.EntropySeed = a.source.Seed()
	a.setState(Locked, fmt.Sprintf("Lock acquired for context '%s', seed %d", ctx, a.status.EntropySeed))

	if a.recorder != nil {
		a.handle = a.recorder.RecordAcquire(ctx, a.status.EntropySeed)
		a.hasHandle = true
	}
	return nil
}

// Release relinquishes the anchor, clearing context and seed and completing
// the telemetry record. Releasing a non-Locked anchor is a protocol
// violation: the anchor transitions to Error and ErrNotLocked is returned
// (or panics in strict mode).
func (a *Anchor) Release() error {
	if a.status.State != Locked {
		a.setState(Error, "Release attempted while not locked")
		if a.strict {
			panic("anchor: release while not locked")
		}
		return ErrNotLocked
	}
	a.releaseInternal("Release")
	return nil
}

// Close performs a best-effort release if the anchor is still Locked.
// Teardown never fails: Close always returns nil and never transitions to
// Error.
func (a *Anchor) Close() error {
	a.releaseInternal("Close")
	return nil
}

// Move transfers the full status and the active record handle to a new
// anchor and resets the source to a fresh Unlocked guard. The returned
// anchor keeps the original's wiring; the moved-from anchor never retains a
// seed or context.
func (a *Anchor) Move() *Anchor {
	dst := &Anchor{
		status:    a.status,
		source:    a.source,
		recorder:  a.recorder,
		handle:    a.handle,
		hasHandle: a.hasHandle,
		trace:     a.trace,
		strict:    a.strict,
	}
	a.status = Status{}
	a.hasHandle = false
	return dst
}

// Status returns a snapshot of the anchor's state.
func (a *Anchor) Status() Status {
	return a.status
}

// EntropySeed returns the seed of the current acquisition, or zero when the
// anchor is not Locked.
func (a *Anchor) EntropySeed() uint64 {
	return a.status.EntropySeed
}

// AttachRecorder attaches (or replaces) the telemetry recorder.
func (a *Anchor) AttachRecorder(rec *telemetry.Recorder) {
	a.recorder = rec
}

func (a *Anchor) releaseInternal(sourceTag string) {
	if a.status.State != Locked {
		return
	}

	ctx := a.status.Context
	seed := a.status.EntropySeed

	a.setState(Released, fmt.Sprintf("%s releasing context '%s'", sourceTag, ctx))
	a.status.Context = ""
	a.status.EntropySeed = 0
	a.setState(Unlocked, fmt.Sprintf("%s anchor reset to unlocked", sourceTag))

	if a.recorder != nil && a.hasHandle {
		a.recorder.RecordRelease(a.handle, ctx, seed, releaseScore)
		a.hasHandle = false
	}
}

// setState applies a transition and writes one trace line per real state
// change. Self-transitions are silent no-ops.
func (a *Anchor) setState(next State, reason string) {
	if next == a.status.State {
		return
	}
	fmt.Fprintf(a.trace, "[Anchor] %s -> %s @ %s | %s\n",
		a.status.State, next, time.Now().Format("2006-01-02 15:04:05"), reason)
	a.status.State = next
}
