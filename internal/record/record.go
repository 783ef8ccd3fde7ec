// Package record defines the minimal contract a user record must satisfy to be
// stored in the dynamic extension, and the header-bearing wrapper the
// framework places around every record it stores.
package record

import "fmt"

// Record is the contract a user-defined record type must satisfy: a strict
// weak ordering and an equality test. The framework never inspects a
// record's fields directly; every comparison, merge, and cancellation
// decision is made through this interface.
type Record interface {
	// Less reports whether the receiver sorts strictly before other.
	Less(other Record) bool
	// Equal reports whether the receiver and other represent the same
	// logical record (same key, in a KVP index; same value, otherwise).
	Equal(other Record) bool
}

// KeyValue is an optional extension for records used in key/value-projected
// (KVP) indexes, where ordering and equality are defined over Key() alone.
type KeyValue interface {
	Record
	Key() []byte
	Value() []byte
}

// Weighted is an optional extension for records consumed by weighted
// sampling queries.
type Weighted interface {
	Record
	Weight() float64
}

// Spatial is an optional extension for records consumed by metric-space
// (k-NN, range) queries over an N-dimensional space.
type Spatial interface {
	Record
	Distance(other Record) float64
}

// Header bit positions within a wrapped record's 32-bit header. The
// remaining bits (3..31) carry the append-order timestamp.
const (
	bitTombstone uint32 = 1 << 0
	bitDeleted   uint32 = 1 << 1
	bitVisible   uint32 = 1 << 2

	timestampShift = 3
	timestampMask  = ^uint32(0) >> timestampShift
)

// Wrapped pairs a user Record with the header bits the framework needs:
// tombstone, deleted, visible, and an ordering timestamp assigned at
// append time. The tombstone bit, once set, never clears; the deleted bit
// is monotonic; visible is set only after the record is fully written.
type Wrapped struct {
	Rec    Record
	header uint32
}

// NewWrapped constructs a wrapped record that is not yet visible. Callers
// finish initialization (setting the tombstone bit and timestamp, if
// needed) before calling MarkVisible.
func NewWrapped(rec Record) Wrapped {
	return Wrapped{Rec: rec}
}

// FromParts reconstructs a wrapped record from a previously-extracted
// header. Used by storage layers (the mutable buffer) that keep a
// record's header in a separate atomic word so in-place bit updates
// (e.g. SetDeleted) don't race with a concurrent copy of the whole
// Wrapped value.
func FromParts(rec Record, header uint32) Wrapped {
	return Wrapped{Rec: rec, header: header}
}

// HeaderBits returns the raw header word, for callers that store it
// outside the Wrapped value (see FromParts).
func (w Wrapped) HeaderBits() uint32 { return w.header }

// Tombstone reports whether this wrapped record marks a logical deletion.
func (w Wrapped) Tombstone() bool { return w.header&bitTombstone != 0 }

// Deleted reports whether this wrapped record has been tagged deleted
// in place (the tagging delete policy).
func (w Wrapped) Deleted() bool { return w.header&bitDeleted != 0 }

// Visible reports whether the record's write is complete and safe to read.
func (w Wrapped) Visible() bool { return w.header&bitVisible != 0 }

// Timestamp returns the append-order sequence number assigned to this
// record. Timestamps are unique and monotonically increasing within a
// single buffer's lifetime.
func (w Wrapped) Timestamp() uint32 { return w.header >> timestampShift }

// SetTombstone sets the tombstone bit. Irreversible by contract: callers
// must never attempt to clear it.
func (w *Wrapped) SetTombstone() { w.header |= bitTombstone }

// SetDeleted sets the deleted (tag-delete) bit.
func (w *Wrapped) SetDeleted() { w.header |= bitDeleted }

// SetTimestamp assigns the ordering timestamp. Must be called before
// MarkVisible; the timestamp is truncated to the bits available after the
// three header flags.
func (w *Wrapped) SetTimestamp(ts uint64) {
	w.header = (w.header &^ (timestampMask << timestampShift)) | (uint32(ts&uint64(timestampMask)) << timestampShift)
}

// MarkVisible sets the visible bit. This must be the last field written
// when constructing a wrapped record in place: it acts as a release fence
// so that a reader observing Visible()==true also observes every prior
// write to the slot.
func (w *Wrapped) MarkVisible() { w.header |= bitVisible }

// Less orders two wrapped records: first by the underlying record's order,
// then — for records the underlying order treats as equal — by header, so
// that a live record and its matching tombstone sort adjacently with the
// tombstone considered the "larger" of the pair only when it was appended
// later. This keeps (live r, tombstone r) adjacency stable under merge.
func (w Wrapped) Less(other Wrapped) bool {
	if w.Rec.Less(other.Rec) {
		return true
	}
	if other.Rec.Less(w.Rec) {
		return false
	}
	return w.header < other.header
}

// Equal reports whether two wrapped records wrap logically-equal records,
// ignoring header bits.
func (w Wrapped) Equal(other Wrapped) bool {
	return w.Rec.Equal(other.Rec)
}

func (w Wrapped) String() string {
	return fmt.Sprintf("Wrapped{rec=%v tomb=%t del=%t vis=%t ts=%d}",
		w.Rec, w.Tombstone(), w.Deleted(), w.Visible(), w.Timestamp())
}
