// Package scheduler implements the reconstruction scheduler of spec.md
// §4.6: a task queue and worker pool that executes reconstructions and
// queries off the request path, plus a serial variant that runs jobs
// inline for deterministic tests.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Scheduler is the common contract the dynamic façade depends on, so it
// can be configured with either a FIFOScheduler or a SerialScheduler
// (spec.md §6's "scheduler ∈ {FIFO, serial}" static choice).
type Scheduler interface {
	Schedule(job Job) (*Future, bool)
	Shutdown(timeout time.Duration)
}

// JobType distinguishes a reconstruction job from a query job, purely
// for statistics; both run through the same queue.
type JobType int

const (
	JobReconstruction JobType = iota
	JobQuery
)

// Job is a unit of work accepted by Schedule. Fn does the actual work
// and returns a result (for a query, the result vector; for a
// reconstruction, nil) or an error.
type Job struct {
	ID            uuid.UUID
	Type          JobType
	EstimatedSize int64
	Fn            func(ctx context.Context) (any, error)
	scheduledAt   int64
}

// Future is the promise half of a scheduled job, resolved once Fn has
// run.
type Future struct {
	done   chan struct{}
	result any
	err    error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) resolve(result any, err error) {
	f.result = result
	f.err = err
	close(f.done)
}

// Wait blocks until the job completes, or ctx is cancelled first.
func (f *Future) Wait(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stats accumulates scheduler statistics, the Go rendering of spec.md
// §4.6's "record statistics" — plain atomics rather than a mutex-guarded
// struct, since every field is an independent counter.
type Stats struct {
	Scheduled atomic.Int64
	Completed atomic.Int64
	Failed    atomic.Int64
}

// FIFOScheduler executes scheduled jobs FIFO-by-enqueue-order on a
// bounded worker pool.
type FIFOScheduler struct {
	queue  chan *scheduledJob
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	seq    atomic.Int64
	Stats  Stats
}

type scheduledJob struct {
	job    Job
	future *Future
}

// NewFIFO starts a FIFO scheduler with the given worker count and
// queue depth. workers <= 0 defaults to 1.
func NewFIFO(workers, queueDepth int) *FIFOScheduler {
	if workers <= 0 {
		workers = 1
	}
	if queueDepth <= 0 {
		queueDepth = 64
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &FIFOScheduler{
		queue:  make(chan *scheduledJob, queueDepth),
		ctx:    ctx,
		cancel: cancel,
	}
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	return s
}

func (s *FIFOScheduler) worker() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case sj, ok := <-s.queue:
			if !ok {
				return
			}
			s.run(sj)
		}
	}
}

func (s *FIFOScheduler) run(sj *scheduledJob) {
	result, err := sj.job.Fn(s.ctx)
	if err != nil {
		s.Stats.Failed.Add(1)
	} else {
		s.Stats.Completed.Add(1)
	}
	sj.future.resolve(result, err)
}

// Schedule enqueues fn with a monotonically increasing timestamp,
// assigning it a fresh task identity, and returns a Future resolved
// once it runs. Returns (nil, false) only if the scheduler is shutting
// down and the queue is no longer accepting work.
func (s *FIFOScheduler) Schedule(job Job) (f *Future, ok bool) {
	// Shutdown closes the queue; the send below then panics, which is
	// reported as a rejection.
	defer func() {
		if recover() != nil {
			f, ok = nil, false
		}
	}()
	job.ID = uuid.New()
	job.scheduledAt = s.seq.Add(1)
	f = newFuture()
	s.Stats.Scheduled.Add(1)

	select {
	case s.queue <- &scheduledJob{job: job, future: f}:
		return f, true
	case <-s.ctx.Done():
		return nil, false
	}
}

// Shutdown drains the queue and stops all workers, waiting up to
// timeout for in-flight jobs to finish before forcing worker exit via
// context cancellation.
func (s *FIFOScheduler) Shutdown(timeout time.Duration) {
	close(s.queue)
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		s.cancel()
		<-done
	}
}
