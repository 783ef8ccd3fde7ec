package structure

import (
	"context"
	"sync"
	"time"

	"github.com/dreamware/dynext/internal/logging"
	"github.com/dreamware/dynext/internal/metrics"
	"github.com/rs/zerolog"
)

// InvariantMonitor periodically re-validates the tombstone-density
// invariant (spec.md §4.2 invariant ii) across whatever structure
// CurrentFn returns, independent of the synchronous post-reconstruction
// check the façade's flush path already performs (Open Question D1,
// decided in SPEC_FULL.md §9). It exists to catch violations
// introduced by interactions the synchronous path didn't foresee — a
// delete landing between flush planning and flush execution, say — not
// to replace that check. Off by default; the façade enables it only
// when Config.InvariantCheckInterval > 0.
//
// Adapted from the teacher's coordinator.HealthMonitor: a ticker-driven
// goroutine, context cancellation, a WaitGroup for graceful shutdown,
// and an injectable check so tests can drive it without a real timer.
type InvariantMonitor struct {
	currentFn   func() *Structure
	onViolation func(level int, prop float64)

	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	log zerolog.Logger
}

// NewInvariantMonitor constructs a monitor that checks every interval.
// currentFn supplies the structure to validate at each tick (the
// façade's currently-installed structure); onViolation is invoked,
// without holding any monitor-internal lock, once per violating level
// found in a tick.
func NewInvariantMonitor(interval time.Duration, currentFn func() *Structure, onViolation func(level int, prop float64)) *InvariantMonitor {
	ctx, cancel := context.WithCancel(context.Background())
	return &InvariantMonitor{
		currentFn:   currentFn,
		onViolation: onViolation,
		interval:    interval,
		ctx:         ctx,
		cancel:      cancel,
		log:         logging.WithComponent("invariant_monitor"),
	}
}

// Start begins periodic checking on a background goroutine. Safe to
// call at most once.
func (m *InvariantMonitor) Start() {
	m.wg.Add(1)
	go m.run()
}

func (m *InvariantMonitor) run() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.checkOnce()
		}
	}
}

func (m *InvariantMonitor) checkOnce() {
	s := m.currentFn()
	if s == nil {
		return
	}

	s.mu.Lock()
	n := len(s.levels)
	snapshots := make([]struct {
		tombstones int64
		capacity   int64
	}, n)
	for i, lv := range s.levels {
		snapshots[i].tombstones = lv.TombstoneCount()
		snapshots[i].capacity = s.RecordCapacity(i)
	}
	s.mu.Unlock()

	for i, snap := range snapshots {
		if snap.capacity == 0 {
			continue
		}
		prop := float64(snap.tombstones) / float64(snap.capacity)
		if prop > s.cfg.MaxDeleteProp {
			metrics.InvariantViolationsTotal.Inc()
			m.log.Warn().Int("level", i).Float64("tombstone_proportion", prop).Msg("tombstone density invariant violated")
			if m.onViolation != nil {
				m.onViolation(i, prop)
			}
		}
	}
}

// Stop signals the monitor to exit and waits for its goroutine to
// finish.
func (m *InvariantMonitor) Stop() {
	m.cancel()
	m.wg.Wait()
}
