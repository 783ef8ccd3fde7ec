// Package structure implements the extension structure described in
// spec.md §4.2: an ordered vector of internal levels governed by a
// layout policy, plus the reconstruction planner that computes the
// work needed to absorb a flush or repair a tombstone-density
// violation.
package structure

import (
	"sync"

	"github.com/dreamware/dynext/internal/level"
	"github.com/dreamware/dynext/internal/record"
	"github.com/dreamware/dynext/internal/shard"
)

// LayoutPolicy selects how levels absorb new data. Chosen at
// construction time (a static, per-instance choice in the original;
// spec.md §9 notes runtime enum dispatch is an equivalent translation
// of a compile-time policy selection).
type LayoutPolicy int

const (
	Tiering LayoutPolicy = iota
	Leveling
	BSM
)

func (p LayoutPolicy) String() string {
	switch p {
	case Tiering:
		return "tiering"
	case Leveling:
		return "leveling"
	case BSM:
		return "bsm"
	default:
		return "unknown"
	}
}

// Config carries the structure's fixed shape parameters, set once at
// construction and shared by every clone.
type Config struct {
	Layout        LayoutPolicy
	ScaleFactor   int64
	BufferHWM     int64
	MaxDeleteProp float64
	Factory       shard.Factory
}

// Structure is the mostly-immutable extension structure, shared by
// pointer between epochs. It is only ever mutated by the single goroutine executing
// a reconstruction plan against a structure produced by Clone; once
// installed into an epoch, a Structure is read-only.
type Structure struct {
	cfg Config

	mu     sync.Mutex
	levels []*level.Level
}

// New constructs an empty extension structure.
func New(cfg Config) *Structure {
	return &Structure{cfg: cfg}
}

// Clone produces a shallow copy: independent level vectors, but shards
// are shared by reference, matching spec.md §4.2's Clone semantics.
// Used to build a successor structure off the request path without
// disturbing the structure the current epoch is still serving reads
// from.
func (s *Structure) Clone() *Structure {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &Structure{cfg: s.cfg, levels: make([]*level.Level, len(s.levels))}
	for i, lv := range s.levels {
		c.levels[i] = lv.Clone()
	}
	return c
}

// Height reports the number of levels currently in the structure.
func (s *Structure) Height() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.levels)
}

// Level returns the level at depth i, growing the structure with fresh
// empty levels if i is beyond the current height.
func (s *Structure) Level(i int) *level.Level {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLevelLocked(i)
}

func (s *Structure) ensureLevelLocked(i int) *level.Level {
	for len(s.levels) <= i {
		s.levels = append(s.levels, level.New(s.shardCapacityLocked(len(s.levels))))
	}
	return s.levels[i]
}

func (s *Structure) shardCapacityLocked(i int) int {
	if s.cfg.Layout == Tiering {
		return int(s.cfg.ScaleFactor)
	}
	return 1
}

// RecordCapacity returns level i's record capacity:
// buffer_HWM * scale_factor^(i+1), per spec.md §3.
func (s *Structure) RecordCapacity(i int) int64 {
	capacity := s.cfg.BufferHWM
	for j := 0; j <= i; j++ {
		capacity *= s.cfg.ScaleFactor
	}
	return capacity
}

// Config returns the structure's fixed configuration.
func (s *Structure) Config() Config { return s.cfg }

// PointLookup walks levels from shallowest to deepest, since a live
// record logically shadows any older copy a deeper level might still
// hold (deeper levels are older data under both tiering and leveling).
func (s *Structure) PointLookup(rec record.Record) (record.Wrapped, bool) {
	s.mu.Lock()
	levels := append([]*level.Level(nil), s.levels...)
	s.mu.Unlock()
	for _, lv := range levels {
		if w, ok := lv.PointLookup(rec); ok {
			return w, true
		}
	}
	return record.Wrapped{}, false
}

// DeleteRecord implements the tagging delete policy's structure-wide
// step: walk levels shallowest-first, tagging the first match.
func (s *Structure) DeleteRecord(rec record.Record) bool {
	s.mu.Lock()
	levels := append([]*level.Level(nil), s.levels...)
	s.mu.Unlock()
	for _, lv := range levels {
		if lv.DeleteRecord(rec) {
			return true
		}
	}
	return false
}

// RecordCount sums live record counts across every level.
func (s *Structure) RecordCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, lv := range s.levels {
		total += lv.RecordCount()
	}
	return total
}

// TombstoneCount sums tombstone counts across every level.
func (s *Structure) TombstoneCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, lv := range s.levels {
		total += lv.TombstoneCount()
	}
	return total
}

// AllShards returns every shard across every level, shallowest level
// first, for query fan-out and for flattening into a single shard.
func (s *Structure) AllShards() []shard.Shard {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []shard.Shard
	for _, lv := range s.levels {
		out = append(out, lv.Shards()...)
	}
	return out
}
