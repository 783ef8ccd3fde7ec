// Package dynamic implements the dynamic extension façade of spec.md
// §4.7: the top-level object orchestrating insert, erase, query, epoch
// advancement, and scheduling over the buffer, structure, epoch, and
// scheduler packages.
package dynamic

import (
	"fmt"
	"time"

	"github.com/dreamware/dynext/internal/scheduler"
	"github.com/dreamware/dynext/internal/shard"
	"github.com/dreamware/dynext/internal/structure"
)

// DeletePolicy selects how Erase represents a logical deletion.
type DeletePolicy int

const (
	// Tombstone erases by inserting a tombstone record through the
	// normal insert path; cancellation happens later, at reconstruction.
	Tombstone DeletePolicy = iota
	// Tagging erases by walking the structure then the buffer, setting
	// the deleted bit on the first match in place.
	Tagging
)

// SchedulerKind selects which scheduler.Scheduler implementation backs
// the façade.
type SchedulerKind int

const (
	FIFOScheduler SchedulerKind = iota
	SerialScheduler
)

// Config carries every construction-time parameter spec.md §6 lists:
// buffer watermarks, scale factor, maximum delete proportion, memory
// budget, worker count, and the three static choices (layout, delete
// policy, scheduler).
type Config struct {
	BufferCapacity int64
	LWM, HWM       int64
	ScaleFactor    int64
	MaxDeleteProp  float64 // 0 < p < 1
	MemoryBudget   int64   // 0 = unlimited, advisory only
	WorkerCount    int     // 0 = default (1 worker)
	QueueDepth     int     // 0 = default

	Layout       structure.LayoutPolicy
	DeletePolicy DeletePolicy
	Scheduler    SchedulerKind
	Factory      shard.Factory

	// InvariantCheckInterval enables the background InvariantMonitor
	// when > 0; 0 (the default) leaves invariant checking entirely to
	// the synchronous post-reconstruction path.
	InvariantCheckInterval time.Duration

	// StaticExportPath, when non-empty, makes CreateStaticStructure
	// additionally write a JSON summary of the flattened shard to this
	// path via an atomic rename-based write.
	StaticExportPath string
}

func (c Config) validate() error {
	if c.BufferCapacity <= 0 {
		return fmt.Errorf("dynamic: buffer capacity must be positive: %w", ErrInvalidConfig)
	}
	if !(0 < c.LWM && c.LWM < c.HWM && c.HWM < c.BufferCapacity) {
		return fmt.Errorf("dynamic: require 0 < LWM < HWM < capacity: %w", ErrInvalidConfig)
	}
	if c.ScaleFactor < 2 {
		return fmt.Errorf("dynamic: scale factor must be >= 2: %w", ErrInvalidConfig)
	}
	if !(0 < c.MaxDeleteProp && c.MaxDeleteProp < 1) {
		return fmt.Errorf("dynamic: max delete proportion must be in (0,1): %w", ErrInvalidConfig)
	}
	if c.Factory.FromBuffer == nil || c.Factory.FromShards == nil {
		return fmt.Errorf("dynamic: shard factory must supply both constructors: %w", ErrInvalidConfig)
	}
	if c.Layout == structure.BSM && c.DeletePolicy == Tagging {
		return fmt.Errorf("dynamic: %w", ErrUnsupportedLayoutDeletePolicy)
	}
	return nil
}

func (c Config) schedulerWorkers() int {
	if c.WorkerCount > 0 {
		return c.WorkerCount
	}
	return 1
}

func (c Config) newScheduler() scheduler.Scheduler {
	if c.Scheduler == SerialScheduler {
		return scheduler.NewSerial()
	}
	return scheduler.NewFIFO(c.schedulerWorkers(), c.QueueDepth)
}
