package structure_test

import (
	"testing"

	"github.com/dreamware/dynext/internal/record"
	"github.com/dreamware/dynext/internal/structure"
	"github.com/dreamware/dynext/internal/testshard"
	"github.com/stretchr/testify/require"
)

type sliceBufferSource []record.Wrapped

func (s sliceBufferSource) Len() int                { return len(s) }
func (s sliceBufferSource) At(i int) record.Wrapped { return s[i] }

func newTestStructure(layout structure.LayoutPolicy) *structure.Structure {
	return structure.New(structure.Config{
		Layout:        layout,
		ScaleFactor:   2,
		BufferHWM:     4,
		MaxDeleteProp: 0.5,
		Factory:       testshard.Factory(),
	})
}

func TestPlanFlushFromBufferEmptyWhenL0HasRoom(t *testing.T) {
	s := newTestStructure(structure.Tiering)
	tasks := s.PlanFlushFromBuffer(2)
	require.Empty(t, tasks)
}

func TestPlanFlushFromBufferCascadesUnderTiering(t *testing.T) {
	s := newTestStructure(structure.Tiering)
	// Fill L0 to its shard capacity (scale factor 2) directly.
	require.NoError(t, s.FlushBufferIntoL0(sliceBufferSource{}))
	require.NoError(t, s.FlushBufferIntoL0(sliceBufferSource{}))
	require.Equal(t, 2, s.Level(0).ShardCount())

	tasks := s.PlanFlushFromBuffer(1)
	require.NotEmpty(t, tasks)
	require.Equal(t, structure.TaskReconstruct, tasks[0].Kind)
	require.Equal(t, 1, tasks[0].Target)
}

func TestExecuteTaskTieringEmptiesSourceAndFillsTarget(t *testing.T) {
	s := newTestStructure(structure.Tiering)
	require.NoError(t, s.FlushBufferIntoL0(sliceBufferSource{record.NewWrapped(testshard.Int(1))}))
	require.NoError(t, s.ExecuteTask(structure.Task{Kind: structure.TaskReconstruct, Sources: []int{0}, Target: 1}))
	require.True(t, s.Level(0).IsEmpty())
	require.Equal(t, 1, s.Level(1).ShardCount())
}

func TestFlushBufferIntoL0LevelingCollapsesToOneShard(t *testing.T) {
	s := newTestStructure(structure.Leveling)
	require.NoError(t, s.FlushBufferIntoL0(sliceBufferSource{record.NewWrapped(testshard.Int(1))}))
	require.NoError(t, s.FlushBufferIntoL0(sliceBufferSource{record.NewWrapped(testshard.Int(2))}))
	require.Equal(t, 1, s.Level(0).ShardCount())
	require.Equal(t, int64(2), s.Level(0).RecordCount())
}

func TestExecuteTaskBSMFlattensSources(t *testing.T) {
	s := newTestStructure(structure.BSM)
	require.NoError(t, s.FlushBufferIntoL0(sliceBufferSource{record.NewWrapped(testshard.Int(1))}))
	require.NoError(t, s.ExecuteTask(structure.Task{Kind: structure.TaskReconstruct, Sources: []int{0}, Target: 1}))
	require.True(t, s.Level(0).IsEmpty())
	require.Equal(t, 1, s.Level(1).ShardCount())
}

func TestPlanFlushFromBufferUnderBSMCascadesWithoutDataLoss(t *testing.T) {
	s := newTestStructure(structure.BSM)

	// First flush: L0 is empty, so it's a plain flush with no cascade.
	require.Empty(t, s.PlanFlushFromBuffer(1))
	require.NoError(t, s.FlushBufferIntoL0(sliceBufferSource{record.NewWrapped(testshard.Int(1))}))
	require.Equal(t, int64(1), s.Level(0).RecordCount())

	// Second flush: L0 is occupied, so the new content must cascade L0
	// into L1 before the buffer can land in L0.
	tasks := s.PlanFlushFromBuffer(1)
	require.Len(t, tasks, 1)
	require.Equal(t, 1, tasks[0].Target)
	require.Equal(t, []int{0}, tasks[0].Sources)
	require.NoError(t, s.ExecuteTask(tasks[0]))
	require.NoError(t, s.FlushBufferIntoL0(sliceBufferSource{record.NewWrapped(testshard.Int(2))}))
	require.Equal(t, int64(1), s.Level(0).RecordCount())
	require.Equal(t, int64(1), s.Level(1).RecordCount())

	// Third flush: L1 now holds a shard from the previous cascade but
	// is well under its record capacity. A target picked on capacity
	// alone would stop at L1 and overwrite it without folding its
	// existing shard in; the target must instead skip past L1 to the
	// first genuinely empty level.
	tasks = s.PlanFlushFromBuffer(1)
	require.Len(t, tasks, 1)
	require.Equal(t, 2, tasks[0].Target)
	require.Equal(t, []int{0, 1}, tasks[0].Sources)
	require.NoError(t, s.ExecuteTask(tasks[0]))
	require.NoError(t, s.FlushBufferIntoL0(sliceBufferSource{record.NewWrapped(testshard.Int(3))}))

	for _, k := range []int{1, 2, 3} {
		w, ok := s.PointLookup(testshard.Int(k))
		require.True(t, ok, "key %d should still be reachable", k)
		require.True(t, w.Rec.Equal(testshard.Int(k)))
	}
}

func TestCloneIsIndependentOfOriginal(t *testing.T) {
	s := newTestStructure(structure.Tiering)
	require.NoError(t, s.FlushBufferIntoL0(sliceBufferSource{record.NewWrapped(testshard.Int(1))}))
	c := s.Clone()
	require.NoError(t, c.FlushBufferIntoL0(sliceBufferSource{record.NewWrapped(testshard.Int(2))}))
	require.Equal(t, 1, s.Level(0).ShardCount())
	require.Equal(t, 2, c.Level(0).ShardCount())
}

func TestPointLookupAcrossLevels(t *testing.T) {
	s := newTestStructure(structure.Tiering)
	require.NoError(t, s.FlushBufferIntoL0(sliceBufferSource{record.NewWrapped(testshard.Int(7))}))
	w, ok := s.PointLookup(testshard.Int(7))
	require.True(t, ok)
	require.True(t, w.Rec.Equal(testshard.Int(7)))

	_, ok = s.PointLookup(testshard.Int(404))
	require.False(t, ok)
}

func TestPlanCompactionsEmptyWithoutViolation(t *testing.T) {
	s := newTestStructure(structure.Leveling)
	// Record capacity of level 0 is BufferHWM*ScaleFactor = 8, so a
	// violation needs more than MaxDeleteProp*8 = 4 tombstones. testshard
	// shards report no tombstones, so this test only checks that the
	// no-violation path plans nothing.
	require.Empty(t, s.PlanCompactions())
}
