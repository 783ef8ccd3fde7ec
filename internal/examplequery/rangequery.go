// Package examplequery provides a range-count/range-select query
// implementing the query.Query contract (spec.md §6), the framework's
// one in-tree example query collaborator — concrete query algorithms
// are external per spec.md §1, but the framework's own end-to-end
// tests need a real one to drive fan-out and combine against.
package examplequery

import (
	"github.com/dreamware/dynext/internal/query"
	"github.com/dreamware/dynext/internal/record"
	"github.com/dreamware/dynext/internal/shard"
)

// Range selects every live record r with r.Less(Lo) == false (r is not
// less than Lo) and Hi.Less(r) == false (r is not greater than Hi),
// i.e. Lo <= r <= Hi under the record's own ordering.
type Range struct {
	Lo, Hi record.Record
}

type rangeLocalQuery struct {
	s        shard.Shard
	from, to int
}

type rangeBufferQuery struct {
	bv query.BufferView
}

type rangeResult struct {
	rec       record.Record
	deleted   bool
	tombstone bool
}

func (r rangeResult) IsDeleted() bool   { return r.deleted }
func (r rangeResult) IsTombstone() bool { return r.tombstone }

func (q *Range) Flags() query.Flag { return 0 }

func (q *Range) LocalPreproc(s shard.Shard, _ any) (any, error) {
	sorted, ok := s.(shard.SortedShard)
	if !ok {
		return rangeLocalQuery{s: s, from: -1, to: -1}, nil
	}
	from := sorted.LowerBound(q.Lo)
	to := sorted.UpperBound(q.Hi)
	return rangeLocalQuery{s: s, from: from, to: to}, nil
}

func (q *Range) LocalPreprocBuffer(bv query.BufferView, _ any) (any, error) {
	return rangeBufferQuery{bv: bv}, nil
}

func (q *Range) DistributeQuery(_ any, _ []any, _ any) {}

func (q *Range) LocalQuery(s shard.Shard, localQuery any) ([]query.LocalResult, error) {
	lq := localQuery.(rangeLocalQuery)
	sorted, ok := lq.s.(shard.SortedShard)
	if !ok || lq.from < 0 {
		return nil, nil
	}
	out := make([]query.LocalResult, 0, lq.to-lq.from)
	for i := lq.from; i < lq.to; i++ {
		w := sorted.RecordAt(i)
		out = append(out, rangeResult{rec: w.Rec, deleted: w.Deleted(), tombstone: w.Tombstone()})
	}
	return out, nil
}

func (q *Range) LocalQueryBuffer(localBufferQuery any) ([]query.LocalResult, error) {
	lbq := localBufferQuery.(rangeBufferQuery)
	var out []query.LocalResult
	for i := 0; i < lbq.bv.Len(); i++ {
		w := lbq.bv.At(i)
		if q.inRange(w.Rec) {
			out = append(out, rangeResult{rec: w.Rec, deleted: w.Deleted(), tombstone: w.Tombstone()})
		}
	}
	return out, nil
}

func (q *Range) inRange(rec record.Record) bool {
	if rec.Less(q.Lo) {
		return false
	}
	if q.Hi.Less(rec) {
		return false
	}
	return true
}

// Combine concatenates every source's surviving local results (the
// framework has already dropped deleted/tombstoned entries by the time
// Combine runs, since Range does not set query.SkipDeleteFilter) into
// the final record vector.
func (q *Range) Combine(localResults [][]query.LocalResult, _ any, out *[]record.Record) error {
	for _, src := range localResults {
		for _, r := range src {
			out2 := r.(rangeResult)
			*out = append(*out, out2.rec)
		}
	}
	return nil
}

func (q *Range) Repeat(_ any, _ *[]record.Record, _ []any, _ any) bool { return false }
