package integration

import (
	"math/rand"
	"testing"

	"github.com/dreamware/dynext/internal/dynamic"
	"github.com/dreamware/dynext/internal/exampleshard"
	"github.com/dreamware/dynext/internal/structure"
	"github.com/dreamware/dynext/internal/testrecord"
	"github.com/stretchr/testify/require"
)

// Scenario 5 (spec.md §8): tombstone invariant soak. Insert 100 000
// random (key, value) pairs, interleaving tombstone-style erases at
// ~5% probability; every level's tombstone proportion must stay at or
// below max_delete_prop, checked every 2000 ops and once more at the
// end. The background InvariantMonitor is disabled, so only the
// synchronous post-reconstruction check (D1) keeps the invariant.
func TestTombstoneInvariantSoak(t *testing.T) {
	const maxDeleteProp = 0.2

	ext, err := dynamic.New(dynamic.Config{
		BufferCapacity:         2000,
		LWM:                    100,
		HWM:                    1000,
		ScaleFactor:            4,
		MaxDeleteProp:          maxDeleteProp,
		Layout:                 structure.Leveling,
		DeletePolicy:           dynamic.Tombstone,
		Scheduler:              dynamic.FIFOScheduler,
		WorkerCount:            2,
		Factory:                exampleshard.Factory(),
		InvariantCheckInterval: 0, // rely on the synchronous post-reconstruction path only
	})
	require.NoError(t, err)
	defer ext.Shutdown()

	rng := rand.New(rand.NewSource(1))
	const n = 100000
	for i := 0; i < n; i++ {
		key := rng.Intn(n / 10)
		if rng.Float64() < 0.05 {
			ext.Erase(testrecord.New(key))
		} else {
			ext.Insert(testrecord.New(key))
		}

		if i%2000 == 0 {
			assertTombstoneInvariant(t, ext, maxDeleteProp)
		}
	}
	ext.AwaitNextEpoch()
	assertTombstoneInvariant(t, ext, maxDeleteProp)
}

func assertTombstoneInvariant(t *testing.T, ext *dynamic.Extension, maxDeleteProp float64) {
	t.Helper()
	s := ext.CurrentEpoch().Structure()
	for i := 0; i < s.Height(); i++ {
		capAt := s.RecordCapacity(i)
		if capAt == 0 {
			continue
		}
		lv := s.Level(i)
		prop := float64(lv.TombstoneCount()) / float64(capAt)
		require.LessOrEqualf(t, prop, maxDeleteProp, "level %d tombstone proportion", i)
	}
}
