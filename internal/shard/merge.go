package shard

import (
	"github.com/dreamware/dynext/internal/bloom"
	"github.com/dreamware/dynext/internal/record"
)

// Cursor is a forward-only iterator over a single sorted run of wrapped
// records (a flushed buffer view, or an existing shard's records in
// order). Merge never rewinds a cursor; Advance is only ever called
// after Current has been consumed.
type Cursor interface {
	Valid() bool
	Current() record.Wrapped
	Advance()
}

// MergeOptions controls optional work Merge performs alongside the
// k-way merge itself.
type MergeOptions struct {
	// PopulateTombstoneFilter, when true, makes Merge add every
	// surviving tombstone to the returned filter so the caller can
	// attach it to the new shard for fast membership prefiltering.
	// FilterCapacity sizes that filter; ignored when false.
	PopulateTombstoneFilter bool
	FilterCapacity          uint64
}

// Merge drives a k-way merge of cursors already individually sorted by
// record.Wrapped.Less, cancelling adjacent (record, tombstone) pairs
// and dropping records tagged deleted. The returned slice is sorted and
// contains no deleted records and no cancelled tombstone/record pairs.
//
// Cancellation relies on a single lookahead slot: at most one record is
// held back from the output at a time, compared against the next
// popped minimum. Because an underlying record and its tombstone sort
// adjacently (record.Wrapped.Less breaks underlying-record ties by
// header), the pair is always adjacent in merge order and this single
// slot of lookahead is sufficient; no three-way or later collision is
// possible since a tombstone, once emitted, is never reinserted for a
// deleted key under sequential deletion semantics (spec.md §4.3).
func Merge(cursors []Cursor, opts MergeOptions) ([]record.Wrapped, *bloom.Filter) {
	var filter *bloom.Filter
	if opts.PopulateTombstoneFilter {
		cap := opts.FilterCapacity
		if cap == 0 {
			cap = 1024
		}
		filter = bloom.New(cap)
	}

	out := make([]record.Wrapped, 0, estimateSize(cursors))
	var pending record.Wrapped
	havePending := false

	emit := func(w record.Wrapped) {
		out = append(out, w)
		if filter != nil && w.Tombstone() {
			filter.Add(w.Rec)
		}
	}

	for {
		idx := minCursor(cursors)
		if idx < 0 {
			break
		}
		w := cursors[idx].Current()
		cursors[idx].Advance()

		if w.Deleted() {
			continue
		}

		if !havePending {
			pending = w
			havePending = true
			continue
		}

		if pending.Equal(w) && pending.Tombstone() != w.Tombstone() {
			// A live record and its tombstone cancel; neither survives
			// reconstruction.
			havePending = false
			continue
		}

		emit(pending)
		pending = w
		havePending = true
	}

	if havePending {
		emit(pending)
	}

	return out, filter
}

// minCursor returns the index of the valid cursor whose Current() sorts
// least, or -1 if every cursor is exhausted.
func minCursor(cursors []Cursor) int {
	best := -1
	for i, c := range cursors {
		if !c.Valid() {
			continue
		}
		if best < 0 || c.Current().Less(cursors[best].Current()) {
			best = i
		}
	}
	return best
}

// estimateSize is a capacity hint only; merges never require it to be
// exact.
func estimateSize(cursors []Cursor) int {
	return len(cursors) * 64
}
