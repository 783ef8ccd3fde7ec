package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SerialScheduler executes every scheduled job inline, on the calling
// goroutine, before Schedule returns. It exists for deterministic
// testing and single-threaded operation (spec.md §4.6); it shares
// FIFOScheduler's Stats shape.
type SerialScheduler struct {
	Stats Stats
}

// NewSerial constructs a scheduler that runs every job synchronously.
func NewSerial() *SerialScheduler {
	return &SerialScheduler{}
}

// Schedule runs fn immediately and returns an already-resolved Future.
func (s *SerialScheduler) Schedule(job Job) (*Future, bool) {
	job.ID = uuid.New()
	s.Stats.Scheduled.Add(1)
	f := newFuture()
	result, err := job.Fn(context.Background())
	if err != nil {
		s.Stats.Failed.Add(1)
	} else {
		s.Stats.Completed.Add(1)
	}
	f.resolve(result, err)
	return f, true
}

// Shutdown is a no-op: a serial scheduler has no background workers.
func (s *SerialScheduler) Shutdown(_ time.Duration) {}
