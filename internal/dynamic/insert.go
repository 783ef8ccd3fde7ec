package dynamic

import (
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dreamware/dynext/internal/buffer"
	"github.com/dreamware/dynext/internal/epoch"
	"github.com/dreamware/dynext/internal/record"
)

// newInsertBackoff bounds the busy-wait spec.md §4.7's insert path
// describes ("busy-wait briefly") with exponential backoff and jitter
// rather than a bare time.Sleep spin (SPEC_FULL.md §4.10).
func newInsertBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Microsecond
	b.MaxInterval = 20 * time.Millisecond
	b.MaxElapsedTime = 0 // no elapsed-time cap: insert keeps retrying until an append succeeds
	return b
}

// Insert appends rec to the active buffer, returning true once it is
// durable. If the active buffer is full, Insert triggers a flush (if
// one isn't already pending) and retries with backoff until room opens
// up, per spec.md §4.7's insert path.
func (e *Extension) Insert(rec record.Record) bool {
	return e.insert(rec, false)
}

func (e *Extension) insert(rec record.Record, isTombstone bool) bool {
	bo := newInsertBackoff()
	for {
		ep := e.current.Load()
		buf := activeBuffer(ep)
		if buf.Append(rec, isTombstone) {
			return true
		}
		e.triggerFlush(ep, buf)
		d := bo.NextBackOff()
		if d == backoff.Stop {
			bo = newInsertBackoff()
			d = bo.NextBackOff()
		}
		time.Sleep(d)
	}
}

func activeBuffer(ep *epoch.Epoch) *buffer.MutableBuffer {
	bufs := ep.Buffers()
	return bufs[len(bufs)-1]
}
