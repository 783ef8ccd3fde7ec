// Package integration holds end-to-end scenarios that need real
// concurrency or a long-running soak, too heavy for the package-level
// unit suites (spec.md §8's scenarios 3 and 5).
package integration

import (
	"context"
	"math/rand"
	"sync"
	"testing"

	"github.com/dreamware/dynext/internal/dynamic"
	"github.com/dreamware/dynext/internal/examplequery"
	"github.com/dreamware/dynext/internal/exampleshard"
	"github.com/dreamware/dynext/internal/record"
	"github.com/dreamware/dynext/internal/structure"
	"github.com/dreamware/dynext/internal/testrecord"
	"github.com/stretchr/testify/require"
)

// Scenario 3 (spec.md §8): concurrent insert & query. One inserter
// appends keys 0..9999 in order while four query goroutines issue
// random width-10 range-count queries over [0, 10000) concurrently.
// Each query checks that it returns no more than hi-lo+1 records and
// that every returned key lies in [lo, hi]; once inserting ends, the
// record count must equal the number of keys inserted.
func TestConcurrentInsertAndQuery(t *testing.T) {
	ext, err := dynamic.New(dynamic.Config{
		BufferCapacity: 2000,
		LWM:            100,
		HWM:            1000,
		ScaleFactor:    2,
		MaxDeleteProp:  0.5,
		Layout:         structure.Tiering,
		DeletePolicy:   dynamic.Tombstone,
		Scheduler:      dynamic.FIFOScheduler,
		WorkerCount:    4,
		Factory:        exampleshard.Factory(),
	})
	require.NoError(t, err)
	defer ext.Shutdown()

	const n = 10000
	inserted := make(chan int, n)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(inserted)
		for i := 0; i < n; i++ {
			require.True(t, ext.Insert(testrecord.New(i)))
			inserted <- i
		}
	}()

	stop := make(chan struct{})
	var queryWg sync.WaitGroup
	for g := 0; g < 4; g++ {
		queryWg.Add(1)
		go func(seed int64) {
			defer queryWg.Done()
			rng := rand.New(rand.NewSource(seed))
			for {
				select {
				case <-stop:
					return
				default:
				}
				lo := rng.Intn(n)
				hi := lo + 10
				if hi >= n {
					hi = n - 1
				}
				q := &examplequery.Range{Lo: testrecord.New(lo), Hi: testrecord.New(hi)}
				future := ext.Query(q, nil)
				result, err := future.Wait(context.Background())
				require.NoError(t, err)
				recs := result.([]record.Record)
				require.LessOrEqual(t, len(recs), hi-lo+1)
				for _, r := range recs {
					k := r.(testrecord.Int).Key
					require.GreaterOrEqual(t, k, lo)
					require.LessOrEqual(t, k, hi)
				}
			}
		}(int64(g) + 1)
	}

	wg.Wait()
	close(stop)
	queryWg.Wait()

	ext.AwaitNextEpoch()
	require.Equal(t, int64(n), ext.GetRecordCount())
}
