// Package exampleshard's SortedArray flattens a buffer view or a set
// of sibling shards into one sorted slice via shard.Merge, reusing the
// same tombstone-cancellation and deleted-record-filtering pass every
// shard type in this framework is expected to share (spec.md §4.3).
// LowerBound/UpperBound/RecordAt give it the SortedShard sub-contract,
// and TagDeleted gives it the level package's optional tagging
// extension, so it works under every layout and delete policy this
// repository supports.
package exampleshard
