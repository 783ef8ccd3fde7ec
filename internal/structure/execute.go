package structure

import (
	"github.com/dreamware/dynext/internal/shard"
)

// FlushBufferIntoL0 constructs a new shard from the buffer view and
// appends (tiering/BSM) or merges (leveling) it into level 0, per
// spec.md §4.2's "Flush buffer into L0".
func (s *Structure) FlushBufferIntoL0(src shard.BufferSource) error {
	l0 := s.Level(0)
	if s.cfg.Layout == Leveling {
		built, err := s.cfg.Factory.FromBuffer(src)
		if err != nil {
			return err
		}
		return l0.Reconstruct([]shard.Shard{built}, s.cfg.Factory)
	}
	return l0.AppendFromBuffer(src, s.cfg.Factory)
}

// ExecuteTask runs one planned reconstruction task against the
// structure, per spec.md §4.2's "Execute task":
//   - Tiering: append-merge the source level's shards into a new
//     combined shard at the target, empty the source.
//   - Leveling: merge target's existing shard (if any) with the
//     source's, replacing the target's contents; empty the source.
//   - BSM: combine every source level's shards into one new shard at
//     the target, empty all sources.
func (s *Structure) ExecuteTask(t Task) error {
	switch s.cfg.Layout {
	case Tiering:
		return s.executeTiering(t)
	case Leveling:
		return s.executeLeveling(t)
	case BSM:
		return s.executeBSM(t)
	default:
		return s.executeTiering(t)
	}
}

func (s *Structure) executeTiering(t Task) error {
	target := s.Level(t.Target)
	var sources []shard.Shard
	for _, si := range t.Sources {
		src := s.Level(si)
		sources = append(sources, src.Shards()...)
		src.Clear()
	}
	return target.AppendFromShards(sources, s.cfg.Factory)
}

func (s *Structure) executeLeveling(t Task) error {
	target := s.Level(t.Target)
	var sources []shard.Shard
	for _, si := range t.Sources {
		src := s.Level(si)
		sources = append(sources, src.Shards()...)
		src.Clear()
	}
	return target.Reconstruct(sources, s.cfg.Factory)
}

func (s *Structure) executeBSM(t Task) error {
	var sources []shard.Shard
	for _, si := range t.Sources {
		src := s.Level(si)
		sources = append(sources, src.Shards()...)
	}
	built, err := s.cfg.Factory.FromShards(sources)
	if err != nil {
		return err
	}
	for _, si := range t.Sources {
		if si == t.Target {
			continue
		}
		s.Level(si).Clear()
	}
	target := s.Level(t.Target)
	target.SetPending(built)
	target.Finalize()
	return nil
}
