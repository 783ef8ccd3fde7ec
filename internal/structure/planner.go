package structure

// TaskKind distinguishes a flush (source is the buffer) from a level-
// to-level reconstruction.
type TaskKind int

const (
	TaskFlush TaskKind = iota
	TaskReconstruct
)

// Task is the Go rendering of spec.md §3's reconstruction task:
// {sources, target, expected_reccnt}. Sources is empty for a
// TaskFlush, whose implicit source is the buffer view being flushed.
type Task struct {
	Kind           TaskKind
	Sources        []int
	Target         int
	ExpectedReccnt int64
}

// stateVector mirrors spec.md §3's per-level state vector, used as
// scratch state the planner mutates to simulate the effect of each
// planned task in sequence (one-step lookahead for the next flush).
type stateVector struct {
	recordCount   []int64
	shardCount    []int64
	recordCap     []int64
	shardCap      []int64
}

func (s *Structure) newScratchState() *stateVector {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.levels)
	sv := &stateVector{
		recordCount: make([]int64, n),
		shardCount:  make([]int64, n),
		recordCap:   make([]int64, n),
		shardCap:    make([]int64, n),
	}
	for i, lv := range s.levels {
		sv.recordCount[i] = lv.RecordCount()
		sv.shardCount[i] = int64(lv.ShardCount())
	}
	for i := range sv.recordCap {
		sv.recordCap[i] = s.RecordCapacity(i)
		sv.shardCap[i] = int64(lv0CapacityFor(s, i))
	}
	return sv
}

func lv0CapacityFor(s *Structure, i int) int {
	if s.cfg.Layout == Tiering {
		return int(s.cfg.ScaleFactor)
	}
	return 1
}

func (sv *stateVector) grow(s *Structure) {
	i := len(sv.recordCount)
	sv.recordCount = append(sv.recordCount, 0)
	sv.shardCount = append(sv.shardCount, 0)
	sv.recordCap = append(sv.recordCap, s.RecordCapacity(i))
	sv.shardCap = append(sv.shardCap, int64(lv0CapacityFor(s, i)))
}

// canAbsorb reports whether level i can take on reccnt more records
// (leveling: by record capacity; tiering: by shard capacity, since one
// more shard is what a flush or cascade actually adds; BSM: only an
// empty level, since a flatten replaces the level's shard outright
// rather than merging into whatever's already there — a binary
// counter's bit is either 0 or 1, never partially filled).
func (sv *stateVector) canAbsorb(s *Structure, i int, reccnt int64) bool {
	switch s.cfg.Layout {
	case Tiering:
		return sv.shardCount[i] < sv.shardCap[i]
	case BSM:
		return sv.recordCount[i] == 0
	default:
		return sv.recordCount[i]+reccnt <= sv.recordCap[i]
	}
}

func (sv *stateVector) apply(s *Structure, i int, reccnt int64) {
	if s.cfg.Layout == Tiering {
		sv.shardCount[i]++
		sv.recordCount[i] += reccnt
		return
	}
	// Leveling/BSM: the target always collapses to one shard.
	sv.shardCount[i] = 1
	sv.recordCount[i] += reccnt
}

func (sv *stateVector) clearThrough(upTo int) {
	for i := 0; i <= upTo; i++ {
		sv.recordCount[i] = 0
		sv.shardCount[i] = 0
	}
}

// PlanFlushFromBuffer returns the reconstruction vector needed to
// absorb bufferReccnt new records into level 0, per spec.md §4.2. If
// level 0 has room, the plan is empty (a plain flush, no cascade). The
// plan never contains the flush itself (the caller runs
// FlushBufferIntoL0 after the tasks). Under tiering and leveling it is
// one TaskReconstruct i-1 -> i per level up to the chosen target, in
// order 0 -> 1 first; under BSM it is a single task merging levels
// 0..target-1 into the target.
func (s *Structure) PlanFlushFromBuffer(bufferReccnt int64) []Task {
	sv := s.newScratchState()
	if len(sv.recordCount) == 0 {
		sv.grow(s)
	}

	if sv.canAbsorb(s, 0, bufferReccnt) {
		return nil
	}

	// Find the shallowest level that can absorb its predecessor once
	// cascaded into, growing the structure if none exists.
	target := 1
	for {
		if target >= len(sv.recordCount) {
			sv.grow(s)
		}
		if sv.canAbsorb(s, target, sv.recordCount[target-1]) {
			break
		}
		target++
	}

	var tasks []Task
	if s.cfg.Layout == BSM {
		sources := make([]int, target)
		for i := range sources {
			sources[i] = i
		}
		tasks = append(tasks, Task{Kind: TaskReconstruct, Sources: sources, Target: target, ExpectedReccnt: sumThrough(sv, target)})
		sv.clearThrough(target - 1)
		sv.apply(s, target, sumThrough(sv, target))
	} else {
		for i := target; i >= 1; i-- {
			tasks = append([]Task{{Kind: TaskReconstruct, Sources: []int{i - 1}, Target: i, ExpectedReccnt: sv.recordCount[i-1]}}, tasks...)
		}
		// Simulate bottom-up so later entries see the right state, then
		// keep the tasks themselves in execution order (level 1 first).
		for i := 1; i <= target; i++ {
			moved := sv.recordCount[i-1]
			sv.recordCount[i-1] = 0
			sv.shardCount[i-1] = 0
			sv.apply(s, i, moved)
		}
	}

	return tasks
}

func sumThrough(sv *stateVector, upTo int) int64 {
	var total int64
	for i := 0; i < upTo; i++ {
		total += sv.recordCount[i]
	}
	return total
}

// PlanCompactions inspects every level for a tombstone-density
// violation (tombstones / record_capacity > max_delete_prop) and
// returns one reconstruction task per violating level, shallowest
// first, merging that level forward into the next one. Per Open
// Question D1 (spec.md §9, decided in SPEC_FULL.md §9): this repo picks
// the single-combined-plan alternative rather than a fully reactive
// level-by-level replan after each execution; the plan does not
// re-check the target levels' density after the planned moves.
func (s *Structure) PlanCompactions() []Task {
	s.mu.Lock()
	levels := s.levels
	s.mu.Unlock()

	var tasks []Task
	for i, lv := range levels {
		capAt := s.RecordCapacity(i)
		if capAt == 0 {
			continue
		}
		prop := float64(lv.TombstoneCount()) / float64(capAt)
		if prop > s.cfg.MaxDeleteProp {
			target := i + 1
			tasks = append(tasks, Task{Kind: TaskReconstruct, Sources: []int{i}, Target: target, ExpectedReccnt: lv.RecordCount()})
		}
	}
	return tasks
}
