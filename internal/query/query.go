// Package query defines the Query contract described in spec.md §6:
// the object-safe interface a concrete query algorithm (range count,
// range sample, weighted sampling, k-NN, point lookup, ...) must
// satisfy to run over the dynamic extension's shards and buffer views.
package query

import (
	"github.com/dreamware/dynext/internal/record"
	"github.com/dreamware/dynext/internal/shard"
)

// Flag bits a Query may set to opt into framework behavior changes.
type Flag int

const (
	// EarlyAbort stops fan-out the first time a non-empty, non-deleted
	// local result appears.
	EarlyAbort Flag = 1 << iota
	// SkipDeleteFilter tells the framework the query handles deletion
	// filtering itself, so the framework-level tombstone/tag check is
	// skipped.
	SkipDeleteFilter
)

// LocalResult is the minimal capability every per-source result value
// must expose so the framework can apply delete filtering without
// knowing the concrete result type.
type LocalResult interface {
	IsDeleted() bool
	IsTombstone() bool
}

// Query is the object-safe contract a concrete query algorithm
// implements. GlobalParams and the various local-query/local-result
// types are opaque `any` values the query type alone interprets; the
// framework only ever moves them around and calls back into Query.
type Query interface {
	// Flags reports which behavior-changing flags this query sets.
	Flags() Flag

	// LocalPreproc builds per-shard local-query state (e.g. range
	// indices, sample sizes) for one shard, given the caller's global
	// parameters.
	LocalPreproc(s shard.Shard, globalParams any) (localQuery any, err error)

	// LocalPreprocBuffer is LocalPreproc's analogue for a buffer view.
	// The returned value must retain a reference to bv so
	// LocalQueryBuffer can read from it later; the caller releases bv
	// once the whole query (including any Repeat iterations) completes.
	LocalPreprocBuffer(bv BufferView, globalParams any) (localBufferQuery any, err error)

	// DistributeQuery adjusts the per-shard and per-buffer local
	// queries in place across sources (e.g. allocating a total sample
	// size proportional to per-shard weight).
	DistributeQuery(globalParams any, localQueries []any, localBufferQuery any)

	// LocalQuery executes against one shard's local-query state,
	// returning that shard's local result vector.
	LocalQuery(s shard.Shard, localQuery any) ([]LocalResult, error)

	// LocalQueryBuffer executes against the buffer's local-query state.
	LocalQueryBuffer(localBufferQuery any) ([]LocalResult, error)

	// Combine merges every source's local result vector (shards first,
	// in level order, then the buffer, per the fan-out order the
	// façade uses) into the global result, performing any final
	// deletion/tombstone reconciliation the query itself wants beyond
	// the framework's own filtering.
	Combine(localResults [][]LocalResult, globalParams any, out *[]record.Record) error

	// Repeat inspects the result accumulated so far and requests
	// re-execution with adjusted local queries by returning true; most
	// queries always return false.
	Repeat(globalParams any, result *[]record.Record, localQueries []any, localBufferQuery any) bool
}

// BufferView is the minimal read surface LocalPreprocBuffer needs from
// a buffer view, kept as an interface here (rather than importing
// *buffer.View directly) so this package has no dependency on the
// buffer package's concrete type.
type BufferView interface {
	Len() int
	At(i int) record.Wrapped
	MayContainTombstone(rec record.Record) bool
	CheckTombstone(rec record.Record) bool
}
