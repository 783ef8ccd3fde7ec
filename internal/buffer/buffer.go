// Package buffer implements the mutable buffer: a fixed-capacity, lock-free
// append-only circular array of wrapped records with a versioned
// head/old_head pair, used to absorb concurrent inserts ahead of the
// extension structure. See doc.go for the architecture and invariants.
package buffer

import (
	"errors"
	"sync/atomic"

	"github.com/dreamware/dynext/internal/bloom"
	"github.com/dreamware/dynext/internal/record"
)

var (
	// ErrBufferFull names the condition where tail - head.idx has reached
	// the high-water mark. Append itself reports it by returning false,
	// not this error; the caller should retry after a reconstruction
	// drains the buffer.
	ErrBufferFull = errors.New("buffer: full (high water mark reached)")

	// ErrHeadReferenced is returned by AdvanceHead when old_head still has
	// outstanding references; the caller must wait for in-flight readers
	// of the predecessor view to finish.
	ErrHeadReferenced = errors.New("buffer: old head still referenced")

	// ErrAdvanceInProgress is returned when a second AdvanceHead call
	// overlaps an in-flight one; only one advancer runs at a time.
	ErrAdvanceInProgress = errors.New("buffer: head advancement already in progress")

	// ErrInvalidHeadAdvance is returned when new_head falls outside
	// [head.idx, tail].
	ErrInvalidHeadAdvance = errors.New("buffer: new head out of range")
)

// refcntBits is the width given to the reference count in the packed
// head/old_head atomic; the remaining bits hold the index. This is the
// "idx + separate atomic count" translation from the design notes,
// collapsed into one word so index and count are always read and written
// together and never observed torn relative to each other.
const refcntBits = 16

func pack(idx uint64, cnt uint16) uint64 {
	return (idx << refcntBits) | uint64(cnt)
}

func unpack(v uint64) (idx uint64, cnt uint16) {
	return v >> refcntBits, uint16(v & (1<<refcntBits - 1))
}

// slot holds one wrapped record plus a publish flag. The flag is the
// release/acquire fence described in spec.md §4.1: a writer stores the
// record and header fields, then Store(true)s visible; a reader that
// observes visible==true is guaranteed (by the Go memory model's rule for
// atomic operations) to see every field written before that store.
//
// The header is kept in its own atomic word, separate from rec, so that a
// later in-place update (DeleteRecord tagging the deleted bit) can be
// applied with a CAS that cannot race with — or tear relative to — a
// concurrent reader copying the slot's current state.
type slot struct {
	visible atomic.Bool
	header  atomic.Uint32
	rec     record.Record
}

func (s *slot) wrapped() record.Wrapped {
	return record.FromParts(s.rec, s.header.Load())
}

// MutableBuffer is a fixed-capacity circular array of wrapped records. Tail
// is a monotone append counter; head and old_head are each an
// {idx, refcnt} pair packed into a single atomic word. A slot at index i
// is valid iff head.idx <= i < tail (mod capacity for storage, but i
// itself is never wrapped).
type MutableBuffer struct {
	slots []slot

	tail    atomic.Uint64
	head    atomic.Uint64
	oldHead atomic.Uint64

	advancing atomic.Bool

	tombstoneCount  atomic.Int64
	tombstoneFilter *bloom.Filter

	capacity int64
	lwm      int64
	hwm      int64
}

// New creates an empty buffer of the given capacity with the given low-
// and high-water marks. Capacity must be at least hwm; by convention
// callers size capacity to at least 2*hwm so that a just-flushed prefix
// and the buffer's live range never overlap modulo capacity.
func New(capacity, lwm, hwm int64) *MutableBuffer {
	if capacity < hwm {
		capacity = hwm
	}
	b := &MutableBuffer{
		slots:           make([]slot, capacity),
		capacity:        capacity,
		lwm:             lwm,
		hwm:             hwm,
		tombstoneFilter: bloom.New(uint64(hwm) + 1),
	}
	return b
}

// Capacity returns the buffer's fixed slot count.
func (b *MutableBuffer) Capacity() int64 { return b.capacity }

// Tail returns the current append counter (exclusive upper bound of the
// valid range).
func (b *MutableBuffer) Tail() uint64 { return b.tail.Load() }

// HeadIndex returns the current head's index (inclusive lower bound of
// the valid range).
func (b *MutableBuffer) HeadIndex() uint64 {
	idx, _ := unpack(b.head.Load())
	return idx
}

// OldHeadIndex returns the current old_head's index.
func (b *MutableBuffer) OldHeadIndex() uint64 {
	idx, _ := unpack(b.oldHead.Load())
	return idx
}

// Append atomically reserves the next slot and writes rec into it,
// returning false without writing anything if the buffer is at its high
// water mark. Append never blocks.
func (b *MutableBuffer) Append(rec record.Record, isTombstone bool) bool {
	t := b.tail.Add(1) - 1
	headIdx, _ := unpack(b.head.Load())
	if t-headIdx >= uint64(b.hwm) {
		// Roll back: nobody else can have claimed slot t, since tail only
		// ever increases and every claimant either writes or rolls back
		// its own reservation.
		b.tail.Add(^uint64(0)) // tail--
		return false
	}

	w := record.NewWrapped(rec)
	w.SetTimestamp(t)
	if isTombstone {
		w.SetTombstone()
		b.tombstoneCount.Add(1)
		b.tombstoneFilter.Add(rec)
	}
	w.MarkVisible()

	s := &b.slots[t%uint64(b.capacity)]
	s.rec = rec
	s.header.Store(w.HeaderBits())
	s.visible.Store(true)
	return true
}

// GetBufferView returns a reference-counted, immutable view over
// [targetHead, tail) if targetHead currently matches either head or
// old_head. If neither matches, ok is false and the caller should retry
// with the buffer's current head index.
func (b *MutableBuffer) GetBufferView(targetHead uint64) (*View, bool) {
	for {
		headRaw := b.head.Load()
		if idx, cnt := unpack(headRaw); idx == targetHead {
			if b.head.CompareAndSwap(headRaw, pack(idx, cnt+1)) {
				return b.newView(idx, func() { b.releaseHead(idx) }), true
			}
			continue
		}
		oldRaw := b.oldHead.Load()
		if idx, cnt := unpack(oldRaw); idx == targetHead {
			if b.oldHead.CompareAndSwap(oldRaw, pack(idx, cnt+1)) {
				return b.newView(idx, b.releaseOldHead), true
			}
			continue
		}
		return nil, false
	}
}

// CurrentView returns a view over the buffer's current head, retrying
// internally if head advances between the index read and the reference
// take (GetBufferView's CAS naturally handles that case: the index it
// increments is whatever was current at CAS time).
func (b *MutableBuffer) CurrentView() *View {
	for {
		headIdx, _ := unpack(b.head.Load())
		if v, ok := b.GetBufferView(headIdx); ok {
			return v
		}
	}
}

// releaseHead drops a reference taken on head at index viewHead. If head
// has since been advanced, AdvanceHead carried that reference onto
// old_head, so it is released there instead.
func (b *MutableBuffer) releaseHead(viewHead uint64) {
	for {
		raw := b.head.Load()
		idx, cnt := unpack(raw)
		if idx != viewHead || cnt == 0 {
			b.releaseOldHead()
			return
		}
		if b.head.CompareAndSwap(raw, pack(idx, cnt-1)) {
			return
		}
	}
}

func (b *MutableBuffer) releaseOldHead() {
	for {
		raw := b.oldHead.Load()
		idx, cnt := unpack(raw)
		if cnt == 0 {
			panic("buffer: release of old_head view with zero refcount")
		}
		if b.oldHead.CompareAndSwap(raw, pack(idx, cnt-1)) {
			return
		}
	}
}

// AdvanceHead moves the buffer's head forward to newHead, retiring the
// range [old head.idx, newHead) as consumed by a reconstruction. It
// refuses if old_head still has outstanding view references, or if
// another advance is already in progress.
func (b *MutableBuffer) AdvanceHead(newHead uint64) error {
	if !b.advancing.CompareAndSwap(false, true) {
		return ErrAdvanceInProgress
	}
	defer b.advancing.Store(false)

	if _, cnt := unpack(b.oldHead.Load()); cnt > 0 {
		return ErrHeadReferenced
	}

	headRaw := b.head.Load()
	headIdx, headCnt := unpack(headRaw)
	tail := b.tail.Load()
	if newHead < headIdx || newHead > tail {
		return ErrInvalidHeadAdvance
	}

	// Carry the current head's outstanding refcount forward onto
	// old_head: those readers still hold valid views into this range.
	b.oldHead.Store(pack(headIdx, headCnt))
	b.head.Store(pack(newHead, 0))
	return nil
}

// IsAtLowWatermark reports whether the buffer has absorbed enough records
// since head to warrant scheduling a flush.
func (b *MutableBuffer) IsAtLowWatermark() bool {
	headIdx, _ := unpack(b.head.Load())
	return b.tail.Load()-headIdx >= uint64(b.lwm)
}

// IsFull reports whether the buffer is at or beyond its high water mark.
func (b *MutableBuffer) IsFull() bool {
	headIdx, _ := unpack(b.head.Load())
	return b.tail.Load()-headIdx >= uint64(b.hwm)
}

// AvailableCapacity returns the number of further appends the buffer can
// currently absorb, counting from whichever of old_head (if still
// referenced) or head is older.
func (b *MutableBuffer) AvailableCapacity() int64 {
	base := b.HeadIndex()
	if _, cnt := unpack(b.oldHead.Load()); cnt > 0 {
		if oh := b.OldHeadIndex(); oh < base {
			base = oh
		}
	}
	avail := b.hwm - int64(b.tail.Load()-base)
	if avail < 0 {
		return 0
	}
	return avail
}

// TombstoneCount returns the exact count of tombstones appended to this
// buffer so far (not yet reduced by any merge).
func (b *MutableBuffer) TombstoneCount() int64 { return b.tombstoneCount.Load() }

// CheckTombstone reports whether a tombstone for rec exists among this
// buffer's currently visible records, bloom-prefiltered before the linear
// scan spec.md §4.1 calls for.
func (b *MutableBuffer) CheckTombstone(rec record.Record) bool {
	if !b.tombstoneFilter.MayContain(rec) {
		return false
	}
	v := b.CurrentView()
	defer v.Release()
	return v.CheckTombstone(rec)
}

// DeleteRecord tags the first visible record matching rec as deleted,
// returning whether a match was found. Used by the tagging delete policy.
func (b *MutableBuffer) DeleteRecord(rec record.Record) bool {
	v := b.CurrentView()
	defer v.Release()
	return v.DeleteRecord(rec)
}
