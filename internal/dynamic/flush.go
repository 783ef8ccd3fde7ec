package dynamic

import (
	"context"
	"time"

	"github.com/dreamware/dynext/internal/buffer"
	"github.com/dreamware/dynext/internal/epoch"
	"github.com/dreamware/dynext/internal/metrics"
	"github.com/dreamware/dynext/internal/scheduler"
	"github.com/dreamware/dynext/internal/structure"
)

// triggerFlush schedules a reconstruction draining buf, unless one is
// already pending. A fresh empty buffer is attached to ep immediately
// so inserts can continue while buf drains, per spec.md §4.7's insert
// path. e.flushing makes flush and compaction jobs mutually exclusive:
// both clone the currently installed epoch and then install their own
// clone as the new current epoch, so two of them racing would mean
// whichever installs second silently discards the first's work.
func (e *Extension) triggerFlush(ep *epoch.Epoch, buf *buffer.MutableBuffer) {
	if !e.flushing.CompareAndSwap(false, true) {
		return
	}

	e.epochMu.Lock()
	fresh := buffer.New(e.cfg.BufferCapacity, e.cfg.LWM, e.cfg.HWM)
	ep.AddBuffer(fresh)
	e.epochMu.Unlock()

	job := scheduler.Job{
		Type: scheduler.JobReconstruction,
		Fn: func(ctx context.Context) (any, error) {
			e.runFlush(ep, buf, fresh)
			return nil, nil
		},
	}
	if _, ok := e.scheduler.Schedule(job); !ok {
		e.log.Error().Msg("flush job rejected by scheduler; retrying on next full append")
		e.flushing.Store(false)
	}
}

// Flush forces a reconstruction of the active buffer's current
// contents into the structure, even though it may be below its high
// water mark, and waits for the resulting epoch to install. Exposed
// for explicit administrative flushes and for deterministic tests that
// need a flush without first driving the buffer to capacity (spec.md
// §8 scenario 2's "insert; erase; flush" sequence).
func (e *Extension) Flush() {
	ep := e.current.Load()
	buf := activeBuffer(ep)
	e.triggerFlush(ep, buf)
	e.AwaitNextEpoch()
}

// scheduleCompaction schedules a standalone compaction pass (triggered
// by the background InvariantMonitor, D1's safety net) against the
// currently installed structure, cloning it first so readers of the
// installed structure are undisturbed while it runs.
func (e *Extension) scheduleCompaction() {
	if !e.flushing.CompareAndSwap(false, true) {
		return
	}
	ep := e.current.Load()
	job := scheduler.Job{
		Type: scheduler.JobReconstruction,
		Fn: func(ctx context.Context) (any, error) {
			e.runCompaction(ep)
			return nil, nil
		},
	}
	if _, ok := e.scheduler.Schedule(job); !ok {
		e.flushing.Store(false)
	}
}

// runFlush carries out spec.md §4.7's flush/reconstruction path:
// plan against a structure clone, execute the plan, flush the buffer
// into L0, install the successor epoch, advance the old buffer's head,
// and signal any AwaitNextEpoch waiters.
func (e *Extension) runFlush(ep *epoch.Epoch, buf, fresh *buffer.MutableBuffer) {
	start := time.Now()
	view := buf.CurrentView()
	defer view.Release()

	successor := ep.Clone()
	succStruc := successor.Structure()

	tasks := succStruc.PlanFlushFromBuffer(int64(view.Len()))
	for _, t := range tasks {
		if err := succStruc.ExecuteTask(t); err != nil {
			e.log.Error().Err(err).Msg("reconstruction task failed")
			e.flushing.Store(false)
			return
		}
	}

	if err := succStruc.FlushBufferIntoL0(view); err != nil {
		e.log.Error().Err(err).Msg("flush into L0 failed")
		e.flushing.Store(false)
		return
	}

	e.runSynchronousCompactionCheck(succStruc)
	metrics.ReconstructionDuration.WithLabelValues(e.cfg.Layout.String()).Observe(time.Since(start).Seconds())

	successor.AddBuffer(fresh)

	e.epochMu.Lock()
	e.current.Store(successor)
	e.epochMu.Unlock()

	if err := buf.AdvanceHead(view.Tail()); err != nil {
		e.log.Warn().Err(err).Msg("old buffer head advance refused")
	}

	metrics.EpochCurrentSeq.Set(float64(successor.Seq))
	e.flushing.Store(false)
	e.signalNextEpoch()
}

// runCompaction re-checks and, if needed, repairs the tombstone-density
// invariant against a fresh clone of the currently installed structure,
// installing the repaired clone as a new epoch's structure. Used only
// by the background InvariantMonitor's safety net (D1).
func (e *Extension) runCompaction(ep *epoch.Epoch) {
	successor := ep.Clone()
	e.runSynchronousCompactionCheck(successor.Structure())

	for _, b := range ep.Buffers() {
		successor.AddBuffer(b)
	}

	e.epochMu.Lock()
	e.current.Store(successor)
	e.epochMu.Unlock()

	e.flushing.Store(false)
	e.signalNextEpoch()
}

// runSynchronousCompactionCheck implements Open Question D1's decision
// (SPEC_FULL.md §9): a single combined compaction plan executed
// immediately after the structure mutation that might have introduced
// a tombstone-density violation, rather than a fully reactive
// level-by-level replan.
func (e *Extension) runSynchronousCompactionCheck(s *structure.Structure) {
	for _, t := range s.PlanCompactions() {
		if err := s.ExecuteTask(t); err != nil {
			e.log.Error().Err(err).Msg("compaction task failed")
			return
		}
	}
}
