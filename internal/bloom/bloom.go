// Package bloom wraps github.com/holiman/bloomfilter/v2 behind the narrow
// interface the buffer and structure packages need for approximate
// tombstone membership testing. Nothing outside this package imports the
// third-party filter directly.
package bloom

import (
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/dreamware/dynext/internal/record"
	"github.com/holiman/bloomfilter/v2"
)

// defaultFalsePositiveRate bounds the filter's false-positive probability.
// A false positive only costs an extra linear scan in CheckTombstone; it
// never causes an incorrect result, so a relatively loose rate is fine.
const defaultFalsePositiveRate = 0.01

// Filter is a thread-safe approximate membership test for tombstoned
// records. A positive result means "maybe present, verify with a scan";
// a negative result means "definitely absent".
type Filter struct {
	mu       sync.Mutex
	f        *bloomfilter.Filter
	capacity uint64
}

// New creates a filter sized for capacity expected tombstones.
func New(capacity uint64) *Filter {
	if capacity < 1 {
		capacity = 1
	}
	f, err := bloomfilter.New(capacity, defaultFalsePositiveRate)
	if err != nil {
		// Only returns an error for a degenerate (zero-capacity,
		// out-of-range probability) configuration; capacity and the
		// constant rate above are always valid.
		panic(fmt.Sprintf("bloom: invalid filter parameters: %v", err))
	}
	return &Filter{f: f, capacity: capacity}
}

// MemoryUsage estimates the filter's backing bit-array footprint in
// bytes, for callers reporting auxiliary structure memory (spec.md §6
// get_aux_memory_usage). Approximate: derived from the configured
// capacity and false-positive rate rather than an exact accounting of
// the underlying library's allocation.
func (b *Filter) MemoryUsage() int64 {
	bitsPerElement := 10.0 // ~bits/element for a 1% false-positive rate
	return int64(float64(b.capacity) * bitsPerElement / 8)
}

// hash projects a record onto a 64-bit value suitable for the underlying
// filter. Records don't carry a byte encoding in this framework, so the
// hash is computed over the record's default string form; this is
// sufficient for an approximate prefilter and never affects correctness,
// only the prefilter's hit rate.
func hash(rec record.Record) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%v", rec)
	return h.Sum64()
}

// Add records rec as present in the filter.
func (b *Filter) Add(rec record.Record) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.f.Add(hash(rec))
}

// MayContain reports whether rec might have been added. False negatives
// are impossible; false positives occur at roughly the configured rate.
func (b *Filter) MayContain(rec record.Record) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.f.Contains(hash(rec))
}

// Reset clears the filter in place, reusing its backing storage.
func (b *Filter) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.f.Reset()
}
