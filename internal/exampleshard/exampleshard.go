// Package exampleshard provides a sorted-array implementation of the
// shard.SortedShard contract, the framework's one in-tree example of
// an external shard collaborator (spec.md §1). It exists so the
// framework's own tests exercise insert, delete, flush, and
// reconstruction against a real shard rather than a mock, the way the
// teacher's internal/storage.MemoryStore exists to exercise the
// Store interface end to end.
package exampleshard

import (
	"sort"
	"sync"

	"github.com/dreamware/dynext/internal/bloom"
	"github.com/dreamware/dynext/internal/record"
	"github.com/dreamware/dynext/internal/shard"
)

// SortedArray is a flat, sorted slice of wrapped records backing one
// shard. It is built once by Factory's constructors and never mutated
// except for TagDeleted, which flips a bit in place under the shard's
// own mutex — matching spec.md §4.4's tag-delete policy, which walks
// shards in order and sets the deleted bit on the first match via the
// shard's own point lookup, without requiring a full reconstruction.
type SortedArray struct {
	mu   sync.RWMutex
	recs []record.Wrapped

	recordCount    int64
	tombstoneCount int64

	tombstoneFilter *bloom.Filter
}

// Factory returns the shard.Factory wiring SortedArray's two
// constructors (from a flushed buffer view, and from a set of sibling
// shards being reconstructed) into the framework's Shard contract.
func Factory() shard.Factory {
	return shard.Factory{
		FromBuffer: fromBuffer,
		FromShards: fromShards,
	}
}

func fromBuffer(src shard.BufferSource) (shard.Shard, error) {
	items := make([]record.Wrapped, src.Len())
	for i := 0; i < src.Len(); i++ {
		items[i] = src.At(i)
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Less(items[j]) })
	cursor := &sliceCursor{items: items}
	merged, filter := shard.Merge([]shard.Cursor{cursor}, shard.MergeOptions{
		PopulateTombstoneFilter: true,
		FilterCapacity:          filterCapacityFor(len(items)),
	})
	return newSortedArray(merged, filter), nil
}

func fromShards(sources []shard.Shard) (shard.Shard, error) {
	cursors := make([]shard.Cursor, 0, len(sources))
	total := 0
	for _, s := range sources {
		sa, ok := s.(*SortedArray)
		if !ok {
			continue
		}
		cursors = append(cursors, sa.cursor())
		total += sa.totalLen()
	}
	merged, filter := shard.Merge(cursors, shard.MergeOptions{
		PopulateTombstoneFilter: true,
		FilterCapacity:          filterCapacityFor(total),
	})
	return newSortedArray(merged, filter), nil
}

func filterCapacityFor(n int) uint64 {
	if n < 64 {
		return 64
	}
	return uint64(n)
}

func newSortedArray(recs []record.Wrapped, filter *bloom.Filter) *SortedArray {
	sa := &SortedArray{recs: recs, tombstoneFilter: filter}
	for _, w := range recs {
		if w.Tombstone() {
			sa.tombstoneCount++
		} else {
			sa.recordCount++
		}
	}
	return sa
}

func (sa *SortedArray) totalLen() int {
	sa.mu.RLock()
	defer sa.mu.RUnlock()
	return len(sa.recs)
}

// Len reports the raw slot count, including tombstones and
// deleted-but-not-yet-reclaimed records. Static export (CreateStaticStructure)
// uses this to walk every RecordAt slot.
func (sa *SortedArray) Len() int {
	return sa.totalLen()
}

func (sa *SortedArray) cursor() shard.Cursor {
	sa.mu.RLock()
	items := append([]record.Wrapped(nil), sa.recs...)
	sa.mu.RUnlock()
	return &sliceCursor{items: items}
}

// PointLookup returns the first non-deleted wrapped record whose
// underlying record equals rec.
func (sa *SortedArray) PointLookup(rec record.Record) (record.Wrapped, bool) {
	sa.mu.RLock()
	defer sa.mu.RUnlock()
	i := sa.lowerBoundLocked(rec)
	for ; i < len(sa.recs); i++ {
		w := sa.recs[i]
		if !w.Rec.Equal(rec) {
			break
		}
		if !w.Deleted() {
			return w, true
		}
	}
	return record.Wrapped{}, false
}

func (sa *SortedArray) RecordCount() int64    { return sa.recordCount }
func (sa *SortedArray) TombstoneCount() int64 { return sa.tombstoneCount }

// MemoryUsage approximates the shard's primary footprint: a fixed
// per-record overhead times the stored record count, matching the
// granularity spec.md §6 asks for without depending on a concrete
// record type's size.
func (sa *SortedArray) MemoryUsage() int64 {
	sa.mu.RLock()
	defer sa.mu.RUnlock()
	return int64(len(sa.recs)) * 48
}

// AuxMemoryUsage reports the tombstone Bloom filter's footprint.
func (sa *SortedArray) AuxMemoryUsage() int64 {
	if sa.tombstoneFilter == nil {
		return 0
	}
	return sa.tombstoneFilter.MemoryUsage()
}

// LowerBound returns the index of the first record not less than rec.
func (sa *SortedArray) LowerBound(rec record.Record) int {
	sa.mu.RLock()
	defer sa.mu.RUnlock()
	return sa.lowerBoundLocked(rec)
}

func (sa *SortedArray) lowerBoundLocked(rec record.Record) int {
	return sort.Search(len(sa.recs), func(i int) bool {
		return !sa.recs[i].Rec.Less(rec)
	})
}

// UpperBound returns the index of the first record greater than rec.
func (sa *SortedArray) UpperBound(rec record.Record) int {
	sa.mu.RLock()
	defer sa.mu.RUnlock()
	return sort.Search(len(sa.recs), func(i int) bool {
		return rec.Less(sa.recs[i].Rec)
	})
}

// RecordAt returns the wrapped record at position i, including
// tombstones not yet cancelled — callers iterating the full shard for
// a later merge rely on this, unlike PointLookup/LowerBound/UpperBound
// which are defined over live records' key order alone (tombstones
// sort adjacent to the record they shadow, so the order is the same).
func (sa *SortedArray) RecordAt(i int) record.Wrapped {
	sa.mu.RLock()
	defer sa.mu.RUnlock()
	return sa.recs[i]
}

// TagDeleted implements level.Tagger: sets the deleted bit on the
// first non-deleted record equal to rec, returning whether a match was
// found.
func (sa *SortedArray) TagDeleted(rec record.Record) bool {
	sa.mu.Lock()
	defer sa.mu.Unlock()
	i := sa.lowerBoundLocked(rec)
	for ; i < len(sa.recs); i++ {
		w := sa.recs[i]
		if !w.Rec.Equal(rec) {
			break
		}
		if w.Deleted() {
			continue
		}
		w.SetDeleted()
		sa.recs[i] = w
		sa.recordCount--
		return true
	}
	return false
}

// sliceCursor adapts a pre-sorted slice to shard.Cursor.
type sliceCursor struct {
	items []record.Wrapped
	pos   int
}

func (c *sliceCursor) Valid() bool             { return c.pos < len(c.items) }
func (c *sliceCursor) Current() record.Wrapped { return c.items[c.pos] }
func (c *sliceCursor) Advance()                { c.pos++ }
