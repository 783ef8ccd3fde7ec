// Package examplequery's Range implements an inclusive range-select
// over any shard.SortedShard, using LowerBound/UpperBound for shards
// and a full scan for the buffer view (the buffer is never sorted).
// Framework-level delete filtering handles dropping deleted/tombstoned
// records before Combine ever sees them.
package examplequery
