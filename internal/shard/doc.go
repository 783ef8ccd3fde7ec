// Package shard defines the Shard and SortedShard contracts every
// bulk-built, immutable data structure plugged into the extension
// structure must satisfy, plus the sorted-merge helper shard
// constructors use to combine sibling shards and flushed buffer views
// into a new shard (spec.md §4.3).
//
// # Contract
//
// A shard is built once, from either a buffer view (FromBufferFunc) or
// a set of sibling shards (FromShardsFunc), and its set of records never
// changes after construction. The one in-place change is the optional
// tag delete (level.Tagger): a shard type that implements it sets the
// deleted bit on a stored record under its own synchronization, and the
// record is physically dropped at the next reconstruction (merge).
//
// # Merge algorithm
//
// Merge drives a min-heap-free k-way merge over cursors already sorted
// by record order (the order in.record.Wrapped.Less imposes). It keeps
// exactly one pending candidate at a time: each time a new minimum is
// popped, the previous pending record is compared against it. If the
// two carry equal underlying records with opposite tombstone-ness, they
// cancel — a tombstone arriving after the record it shadows, and the
// record it shadows, both vanish from the merged output, which is what
// lets reconstruction reclaim tombstoned space instead of carrying the
// tombstone forward forever. Records already marked deleted (an
// in-place edit to an already-flushed record) are dropped outright and
// never reach the pending slot.
//
// Record order must place equal records (by Equal) adjacent to each
// other with any tombstone ahead of or behind the record it cancels,
// which holds automatically since cursors are themselves either flushed
// buffer views (append-ordered within a key, then globally sorted by
// the shard's own key order at construction) or prior merge outputs.
package shard
