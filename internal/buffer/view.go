package buffer

import (
	"github.com/dreamware/dynext/internal/record"
)

// View is an immutable, reference-counted window onto a contiguous range
// [head, tail) of a MutableBuffer, frozen at construction time. It holds
// exactly one reference on whichever of the buffer's head or old_head
// matched the requested index; Release must be called exactly once.
type View struct {
	buf      *MutableBuffer
	release  func()
	head     uint64
	tail     uint64
	released bool
}

func (b *MutableBuffer) newView(head uint64, release func()) *View {
	return &View{
		buf:     b,
		release: release,
		head:    head,
		tail:    b.tail.Load(),
	}
}

// Head returns the view's frozen lower bound (inclusive).
func (v *View) Head() uint64 { return v.head }

// Tail returns the view's frozen upper bound (exclusive).
func (v *View) Tail() uint64 { return v.tail }

// Len returns the number of records visible through this view.
func (v *View) Len() int {
	if v.tail <= v.head {
		return 0
	}
	return int(v.tail - v.head)
}

// At returns the i'th wrapped record in the view (0-indexed from head).
// Panics if i is out of [0, Len()); callers are expected to bound i
// themselves, as with a slice index.
func (v *View) At(i int) record.Wrapped {
	idx := v.head + uint64(i)
	s := &v.buf.slots[idx%uint64(v.buf.capacity)]
	for !s.visible.Load() {
		// Should not happen for idx < tail taken at view construction,
		// since visibility is published strictly before tail is observed
		// to have advanced past idx — but spin defensively rather than
		// return a torn/zero record.
	}
	return s.wrapped()
}

// CapacityHint returns the buffer's fixed capacity, useful for callers
// sizing scratch state from the view alone.
func (v *View) CapacityHint() int64 { return v.buf.capacity }

// TombstoneCountApprox returns the buffer's tombstone count at the time
// of the call; it is "approximate" in the sense spec.md §3 describes: it counts
// tombstones appended to the whole buffer, not just this view's range.
func (v *View) TombstoneCountApprox() int64 { return v.buf.TombstoneCount() }

// MayContainTombstone bloom-prefilters a tombstone existence check against
// this view's buffer.
func (v *View) MayContainTombstone(rec record.Record) bool {
	return v.buf.tombstoneFilter.MayContain(rec)
}

// CheckTombstone scans the view's range for a visible wrapped record
// matching rec with the tombstone bit set.
func (v *View) CheckTombstone(rec record.Record) bool {
	for i := 0; i < v.Len(); i++ {
		w := v.At(i)
		if w.Tombstone() && w.Rec.Equal(rec) {
			return true
		}
	}
	return false
}

// DeleteRecord scans the view's range for the first visible record equal
// to rec and sets its deleted bit in place, returning whether a match was
// found. The update is applied via CAS on the slot's header word so it
// cannot race with a concurrent reader copying the slot.
func (v *View) DeleteRecord(rec record.Record) bool {
	for i := 0; i < v.Len(); i++ {
		idx := v.head + uint64(i)
		s := &v.buf.slots[idx%uint64(v.buf.capacity)]
		if !s.visible.Load() {
			continue
		}
		if !s.rec.Equal(rec) {
			continue
		}
		for {
			h := s.header.Load()
			w := record.FromParts(s.rec, h)
			if w.Deleted() {
				return true
			}
			w.SetDeleted()
			if s.header.CompareAndSwap(h, w.HeaderBits()) {
				return true
			}
		}
	}
	return false
}

// Release gives up this view's reference on the buffer's head or
// old_head. Safe to call at most once; a second call panics, matching the
// non-copyable, move-only discipline spec.md §3 describes for views.
func (v *View) Release() {
	if v.released {
		panic("buffer: View released twice")
	}
	v.released = true
	v.release()
}
