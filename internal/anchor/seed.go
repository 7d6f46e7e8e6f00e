package anchor

import (
	"encoding/binary"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/starford/naudiz/internal/telemetry"
)

// SeedSource produces 64-bit entropy seeds for anchor acquisitions.
type SeedSource interface {
	Seed() uint64
}

// EntropySource derives seeds from the monotonic clock and the identity of
// the calling goroutine: two calls from the same goroutine at different
// clock ticks differ, as do calls from different goroutines at the same
// tick. It holds no state and never blocks.
type EntropySource struct{}

var processStart = time.Now()

// Seed returns a fresh seed. Zero is a possible, if vanishingly unlikely,
// value; callers must treat a zero seed as suspect rather than fabricate a
// nonzero replacement.
func (EntropySource) Seed() uint64 {
	var tick [8]byte
	binary.LittleEndian.PutUint64(tick[:], uint64(time.Since(processStart).Nanoseconds()))

	clockHash := xxhash.Sum64(tick[:])
	threadHash := xxhash.Sum64String(telemetry.GoroutineID())
	return clockHash ^ (threadHash << 1)
}
