package dynamic

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/dreamware/dynext/internal/buffer"
	"github.com/dreamware/dynext/internal/epoch"
	"github.com/dreamware/dynext/internal/logging"
	"github.com/dreamware/dynext/internal/metrics"
	"github.com/dreamware/dynext/internal/scheduler"
	"github.com/dreamware/dynext/internal/structure"
	"github.com/rs/zerolog"
)

// Extension is the dynamic extension façade of spec.md §4.7: the
// top-level object a caller constructs once and drives with Insert,
// Erase, Query, AwaitNextEpoch, and CreateStaticStructure.
type Extension struct {
	cfg       Config
	scheduler scheduler.Scheduler
	log       zerolog.Logger

	epochMu sync.Mutex // serializes epoch installation and flush scheduling
	current atomic.Pointer[epoch.Epoch]
	flushing atomic.Bool

	epochSignalMu sync.Mutex
	epochSignal   chan struct{}

	monitor *structure.InvariantMonitor

	seq atomic.Uint64
}

const shutdownGrace = 5 * time.Second

// New constructs an Extension from cfg, validating it eagerly and
// returning the wrapped ErrInvalidConfig or ErrUnsupportedLayoutDeletePolicy
// on failure, per SPEC_FULL.md §3.
func New(cfg Config) (*Extension, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	struc := structure.New(structure.Config{
		Layout:        cfg.Layout,
		ScaleFactor:   cfg.ScaleFactor,
		BufferHWM:     cfg.HWM,
		MaxDeleteProp: cfg.MaxDeleteProp,
		Factory:       cfg.Factory,
	})
	buf := buffer.New(cfg.BufferCapacity, cfg.LWM, cfg.HWM)
	e := epoch.New(0, struc, buf)

	ext := &Extension{
		cfg:         cfg,
		scheduler:   cfg.newScheduler(),
		log:         logging.WithComponent("dynamic"),
		epochSignal: make(chan struct{}),
	}
	ext.current.Store(e)
	metrics.EpochCurrentSeq.Set(0)

	if cfg.InvariantCheckInterval > 0 {
		ext.monitor = structure.NewInvariantMonitor(cfg.InvariantCheckInterval, ext.currentStructure, ext.onBackgroundViolation)
		ext.monitor.Start()
	}

	return ext, nil
}

func (e *Extension) currentStructure() *structure.Structure {
	return e.current.Load().Structure()
}

func (e *Extension) onBackgroundViolation(level int, prop float64) {
	e.log.Warn().Int("level", level).Float64("tombstone_proportion", prop).
		Msg("background invariant monitor detected a violation; scheduling a compaction")
	e.scheduleCompaction()
}

// CurrentEpoch returns the presently installed epoch. Exposed mainly
// for tests; callers wanting a snapshot for manual job tracking should
// prefer Insert/Erase/Query, which handle StartJob/EndJob themselves.
func (e *Extension) CurrentEpoch() *epoch.Epoch {
	return e.current.Load()
}

// GetRecordCount returns the live record count across the current
// epoch's structure and buffers.
func (e *Extension) GetRecordCount() int64 {
	ep := e.current.Load()
	total := ep.Structure().RecordCount()
	for _, b := range ep.Buffers() {
		v, ok := b.GetBufferView(b.HeadIndex())
		if !ok {
			continue
		}
		total += int64(v.Len())
		v.Release()
	}
	return total
}

// GetTombstoneCount returns the tombstone count across the current
// epoch's structure and buffers.
func (e *Extension) GetTombstoneCount() int64 {
	ep := e.current.Load()
	total := ep.Structure().TombstoneCount()
	for _, b := range ep.Buffers() {
		total += b.TombstoneCount()
	}
	return total
}

// GetMemoryUsage sums primary and auxiliary memory usage reported by
// every shard in the current epoch's structure.
func (e *Extension) GetMemoryUsage() int64 {
	var total int64
	for _, s := range e.current.Load().Structure().AllShards() {
		total += s.MemoryUsage() + s.AuxMemoryUsage()
	}
	return total
}

// Height reports the current structure's level count.
func (e *Extension) Height() int {
	return e.current.Load().Structure().Height()
}

// AwaitNextEpoch blocks until the currently scheduled reconstructions
// (if any) have produced a new active epoch. Returns immediately if no
// flush is in flight.
func (e *Extension) AwaitNextEpoch() {
	if !e.flushing.Load() {
		return
	}
	e.epochSignalMu.Lock()
	ch := e.epochSignal
	e.epochSignalMu.Unlock()
	<-ch
}

func (e *Extension) signalNextEpoch() {
	e.epochSignalMu.Lock()
	close(e.epochSignal)
	e.epochSignal = make(chan struct{})
	e.epochSignalMu.Unlock()
}

// Shutdown stops the scheduler and the background invariant monitor (if
// enabled), waiting for in-flight jobs to drain.
func (e *Extension) Shutdown() {
	if e.monitor != nil {
		e.monitor.Stop()
	}
	e.scheduler.Shutdown(shutdownGrace)
}
