// Package level implements the internal level container described in
// spec.md §4.4: a bounded list of immutable shards at one depth of an
// extension structure.
package level

import (
	"sync/atomic"

	"github.com/dreamware/dynext/internal/record"
	"github.com/dreamware/dynext/internal/shard"
)

// Level holds up to Capacity shards at a single depth of an extension
// structure. Capacity is 1 under leveling and the scale factor under
// tiering; BSM levels are also capacity-1 at their target but may be
// emptied entirely by a flatten. A Level is immutable from a reader's
// perspective once Finalize returns; mutation methods (Append,
// Reconstruct, Finalize) are only ever called by the single goroutine
// executing a reconstruction plan against a cloned structure.
type Level struct {
	Capacity int

	shards  []shard.Shard
	pending shard.Shard

	recordCount    atomic.Int64
	tombstoneCount atomic.Int64
}

// New constructs an empty level with the given shard capacity.
func New(capacity int) *Level {
	return &Level{Capacity: capacity}
}

// Clone returns a shallow copy sharing shard references with the
// receiver, used by the extension structure's own Clone to build a new
// level vector without disturbing the structure it was cloned from.
func (l *Level) Clone() *Level {
	c := &Level{Capacity: l.Capacity, shards: append([]shard.Shard(nil), l.shards...)}
	c.recordCount.Store(l.recordCount.Load())
	c.tombstoneCount.Store(l.tombstoneCount.Load())
	return c
}

// Shards returns the level's current shards in fan-out order (oldest
// first), for query distribution.
func (l *Level) Shards() []shard.Shard { return l.shards }

// ShardCount reports how many shards currently occupy the level.
func (l *Level) ShardCount() int { return len(l.shards) }

// IsEmpty reports whether the level holds no shards.
func (l *Level) IsEmpty() bool { return len(l.shards) == 0 }

// RecordCount returns the cached live record count across the level's
// shards.
func (l *Level) RecordCount() int64 { return l.recordCount.Load() }

// TombstoneCount returns the cached tombstone count across the level's
// shards.
func (l *Level) TombstoneCount() int64 { return l.tombstoneCount.Load() }

// AppendFromBuffer builds a new shard from a flushed buffer view via
// factory.FromBuffer and appends it to the level (tiering/BSM flush
// semantics). Capacity is not checked here: the shard is appended even
// if the level already holds Capacity shards.
func (l *Level) AppendFromBuffer(src shard.BufferSource, factory shard.Factory) error {
	s, err := factory.FromBuffer(src)
	if err != nil {
		return err
	}
	l.appendShard(s)
	return nil
}

// AppendFromShards builds a new shard combining sources via
// factory.FromShards and appends it to the level (tiering reconstruction:
// all of a source level's shards collapse into one new shard at the
// target).
func (l *Level) AppendFromShards(sources []shard.Shard, factory shard.Factory) error {
	s, err := factory.FromShards(sources)
	if err != nil {
		return err
	}
	l.appendShard(s)
	return nil
}

func (l *Level) appendShard(s shard.Shard) {
	l.shards = append(l.shards, s)
	l.recordCount.Add(s.RecordCount())
	l.tombstoneCount.Add(s.TombstoneCount())
}

// Reconstruct merges the target's existing single shard (if any) with
// newSources into one new shard, replacing the level's contents
// (leveling reconstruction semantics: a level always holds at most one
// shard after this call).
func (l *Level) Reconstruct(newSources []shard.Shard, factory shard.Factory) error {
	all := append(append([]shard.Shard(nil), l.shards...), newSources...)
	s, err := factory.FromShards(all)
	if err != nil {
		return err
	}
	l.shards = []shard.Shard{s}
	l.recordCount.Store(s.RecordCount())
	l.tombstoneCount.Store(s.TombstoneCount())
	return nil
}

// SetPending stages a shard built out-of-band (a BSM flatten combining
// several source levels) for later installation via Finalize, so a
// plan's intermediate state never exposes a half-built level to a
// concurrent reader of the structure it was cloned from.
func (l *Level) SetPending(s shard.Shard) { l.pending = s }

// Finalize installs the pending shard (if any) as the level's sole
// content and clears the pending slot. A no-op if no shard is pending.
func (l *Level) Finalize() {
	if l.pending == nil {
		return
	}
	l.shards = []shard.Shard{l.pending}
	l.recordCount.Store(l.pending.RecordCount())
	l.tombstoneCount.Store(l.pending.TombstoneCount())
	l.pending = nil
}

// Clear empties the level, used when a BSM flatten drains every source
// level into the target.
func (l *Level) Clear() {
	l.shards = nil
	l.recordCount.Store(0)
	l.tombstoneCount.Store(0)
}

// PointLookup walks the level's shards in order, returning the first
// match. Shards within a level are unordered with respect to each other
// under tiering, so every shard must be checked.
func (l *Level) PointLookup(rec record.Record) (record.Wrapped, bool) {
	for _, s := range l.shards {
		if w, ok := s.PointLookup(rec); ok {
			return w, true
		}
	}
	return record.Wrapped{}, false
}

// DeleteRecord implements the tagging delete policy's level-local step:
// walk shards in order, setting the deleted bit on the first matching
// wrapped record via its owning shard's point lookup and in-place tag,
// and lowering the level's cached record count by one. Concrete shard
// types that support tagging implement Tagger (below);
// shards that don't (immutable-by-construction types under a
// tombstone-only policy) are skipped.
func (l *Level) DeleteRecord(rec record.Record) bool {
	for _, s := range l.shards {
		if t, ok := s.(Tagger); ok {
			if t.TagDeleted(rec) {
				l.recordCount.Add(-1)
				return true
			}
		}
	}
	return false
}

// Tagger is the optional shard extension supporting in-place tag
// deletes, required by any shard type used under the tagging delete
// policy (see the dynamic package's layout/delete-policy validation).
type Tagger interface {
	TagDeleted(rec record.Record) bool
}
