package dynamic

import (
	"context"

	"github.com/dreamware/dynext/internal/epoch"
	"github.com/dreamware/dynext/internal/query"
	"github.com/dreamware/dynext/internal/record"
	"github.com/dreamware/dynext/internal/scheduler"
)

// Query fans q out across every shard and buffer view of the currently
// installed epoch, combining their local results into one record
// vector, per spec.md §4.4. It runs as a JobQuery on the scheduler so
// it never blocks the caller's goroutine past the returned Future's
// Wait.
func (e *Extension) Query(q query.Query, globalParams any) *scheduler.Future {
	ep := e.current.Load()
	ep.StartJob()

	job := scheduler.Job{
		Type: scheduler.JobQuery,
		Fn: func(ctx context.Context) (any, error) {
			defer ep.EndJob()
			return e.runQuery(ep, q, globalParams)
		},
	}
	f, ok := e.scheduler.Schedule(job)
	if !ok {
		ep.EndJob()
		f = failedFuture(ErrSchedulerRejected)
	}
	return f
}

func (e *Extension) runQuery(ep *epoch.Epoch, q query.Query, globalParams any) ([]record.Record, error) {
	flags := q.Flags()
	shards := ep.Structure().AllShards()
	views := ep.GetBufferViews()
	defer func() {
		for _, v := range views {
			v.Release()
		}
	}()

	localQueries := make([]any, len(shards))
	for i, s := range shards {
		lq, err := q.LocalPreproc(s, globalParams)
		if err != nil {
			return nil, err
		}
		localQueries[i] = lq
	}

	// Each attached buffer (the active one, plus any still-draining
	// predecessor from an in-flight flush, D2) gets its own
	// LocalPreprocBuffer call; DistributeQuery only takes one buffer
	// query, so the newest (active) buffer's is the one handed to it —
	// the draining predecessor's share is fixed by construction (spec.md
	// §4.4 was written assuming a single buffer per epoch).
	bufferQueries := make([]any, len(views))
	for i, v := range views {
		bq, err := q.LocalPreprocBuffer(v, globalParams)
		if err != nil {
			return nil, err
		}
		bufferQueries[i] = bq
	}
	var activeBufferQuery any
	if len(bufferQueries) > 0 {
		activeBufferQuery = bufferQueries[len(bufferQueries)-1]
	}
	q.DistributeQuery(globalParams, localQueries, activeBufferQuery)

	var localResults [][]query.LocalResult
	aborted := false
	for i, s := range shards {
		lr, err := q.LocalQuery(s, localQueries[i])
		if err != nil {
			return nil, err
		}
		lr = filterDeleted(lr, flags)
		localResults = append(localResults, lr)
		if flags&query.EarlyAbort != 0 && len(lr) > 0 {
			aborted = true
			break
		}
	}
	if !aborted {
		for _, bq := range bufferQueries {
			lr, err := q.LocalQueryBuffer(bq)
			if err != nil {
				return nil, err
			}
			lr = filterDeleted(lr, flags)
			localResults = append(localResults, lr)
			if flags&query.EarlyAbort != 0 && len(lr) > 0 {
				break
			}
		}
	}

	var out []record.Record
	for {
		if err := q.Combine(localResults, globalParams, &out); err != nil {
			return nil, err
		}
		if !q.Repeat(globalParams, &out, localQueries, activeBufferQuery) {
			break
		}
	}
	return out, nil
}

// filterDeleted applies spec.md §4.7's framework-level delete filtering:
// a tagged-deleted entry never represents live data, and neither does a
// bare tombstone entry (tombstone/live cancellation for records still
// sharing a single unflushed source already happens at that source —
// the buffer's own merge-on-flush, or a shard's merge at construction
// time); LocalResult deliberately doesn't expose the underlying record,
// so cross-source cancellation beyond what merge already did is out of
// scope here.
func filterDeleted(results []query.LocalResult, flags query.Flag) []query.LocalResult {
	if flags&query.SkipDeleteFilter != 0 {
		return results
	}
	kept := results[:0]
	for _, r := range results {
		if r.IsDeleted() || r.IsTombstone() {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

func failedFuture(err error) *scheduler.Future {
	f, _ := (&scheduler.SerialScheduler{}).Schedule(scheduler.Job{
		Fn: func(ctx context.Context) (any, error) { return nil, err },
	})
	return f
}
