// Package shard defines the Shard and SortedShard contracts that every
// concrete shard implementation (the framework's external collaborators —
// sorted-array ISAM, tries, learned indexes, VP-trees, ...) must satisfy,
// and the sorted-merge helper every shard constructor shares. See doc.go
// for the full contract and the merge algorithm's invariants.
package shard

import "github.com/dreamware/dynext/internal/record"

// Shard is the minimal contract a bulk-built, immutable data structure
// must satisfy to participate in the extension structure. Concrete shard
// types are out of scope for this repository (spec.md §1); only the
// contract and one in-tree example (internal/exampleshard) live here.
type Shard interface {
	// PointLookup returns the first wrapped record equal to rec, if any.
	PointLookup(rec record.Record) (record.Wrapped, bool)

	// RecordCount returns the number of live (non-deleted, non-cancelled)
	// records the shard holds.
	RecordCount() int64

	// TombstoneCount returns the number of tombstone records the shard
	// holds.
	TombstoneCount() int64

	// MemoryUsage returns the shard's primary data footprint in bytes.
	MemoryUsage() int64

	// AuxMemoryUsage returns auxiliary structure footprint (indexes,
	// filters) in bytes, reported separately from MemoryUsage so callers
	// can distinguish data from overhead.
	AuxMemoryUsage() int64
}

// SortedShard is the sub-contract for shards whose records are stored in
// sorted order, enabling range queries via binary search.
type SortedShard interface {
	Shard

	// LowerBound returns the index of the first record not less than rec.
	LowerBound(rec record.Record) int

	// UpperBound returns the index of the first record greater than rec.
	UpperBound(rec record.Record) int

	// RecordAt returns the wrapped record at position i.
	RecordAt(i int) record.Wrapped
}

// BufferSource is the minimal read surface a shard constructor needs from
// a buffer view; *buffer.View satisfies it without this package importing
// the buffer package.
type BufferSource interface {
	Len() int
	At(i int) record.Wrapped
}

// FromBufferFunc builds a new shard from a flush source — a buffer view's
// records. This is the Go rendering of the Shard contract's
// "constructor from a buffer view" (spec.md §6).
type FromBufferFunc func(BufferSource) (Shard, error)

// FromShardsFunc builds a new shard by combining a set of sibling shards
// into one, used for tiering/leveling/BSM reconstructions. This is the Go
// rendering of the "constructor from a vector of sibling shards"
// (spec.md §6).
type FromShardsFunc func([]Shard) (Shard, error)

// Factory bundles the two constructors a concrete shard type supplies,
// since Go interfaces cannot express static/constructor polymorphism.
type Factory struct {
	FromBuffer FromBufferFunc
	FromShards FromShardsFunc
}
