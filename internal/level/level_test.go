package level_test

import (
	"testing"

	"github.com/dreamware/dynext/internal/level"
	"github.com/dreamware/dynext/internal/record"
	"github.com/dreamware/dynext/internal/shard"
	"github.com/dreamware/dynext/internal/testrecord"
	"github.com/stretchr/testify/require"
)

// fakeShard is a minimal in-memory shard.Shard (and shard.Tagger) used
// only to exercise Level without depending on a concrete shard
// implementation.
type fakeShard struct {
	recs []record.Wrapped
}

func newFakeShard(ints ...int) *fakeShard {
	f := &fakeShard{}
	for _, n := range ints {
		w := record.NewWrapped(testrecord.New(n))
		w.MarkVisible()
		f.recs = append(f.recs, w)
	}
	return f
}

func (f *fakeShard) PointLookup(rec record.Record) (record.Wrapped, bool) {
	for i, w := range f.recs {
		if w.Rec.Equal(rec) && !w.Deleted() {
			return f.recs[i], true
		}
	}
	return record.Wrapped{}, false
}

func (f *fakeShard) RecordCount() int64     { return int64(len(f.recs)) }
func (f *fakeShard) TombstoneCount() int64  { return 0 }
func (f *fakeShard) MemoryUsage() int64     { return int64(len(f.recs)) * 16 }
func (f *fakeShard) AuxMemoryUsage() int64  { return 0 }

func (f *fakeShard) TagDeleted(rec record.Record) bool {
	for i, w := range f.recs {
		if w.Rec.Equal(rec) {
			w.SetDeleted()
			f.recs[i] = w
			return true
		}
	}
	return false
}

func fakeFactory() shard.Factory {
	return shard.Factory{
		FromBuffer: func(src shard.BufferSource) (shard.Shard, error) {
			f := &fakeShard{}
			for i := 0; i < src.Len(); i++ {
				f.recs = append(f.recs, src.At(i))
			}
			return f, nil
		},
		FromShards: func(sources []shard.Shard) (shard.Shard, error) {
			f := &fakeShard{}
			for _, s := range sources {
				f.recs = append(f.recs, s.(*fakeShard).recs...)
			}
			return f, nil
		},
	}
}

type sliceBufferSource []record.Wrapped

func (s sliceBufferSource) Len() int                  { return len(s) }
func (s sliceBufferSource) At(i int) record.Wrapped { return s[i] }

func TestLevelAppendFromBufferAndTombstoneCount(t *testing.T) {
	l := level.New(4)
	src := sliceBufferSource{record.NewWrapped(testrecord.New(1)), record.NewWrapped(testrecord.New(2))}
	require.NoError(t, l.AppendFromBuffer(src, fakeFactory()))
	require.Equal(t, 1, l.ShardCount())
	require.Equal(t, int64(2), l.RecordCount())
}

func TestLevelReconstructCollapsesToOneShard(t *testing.T) {
	l := level.New(1)
	require.NoError(t, l.AppendFromShards([]shard.Shard{newFakeShard(1, 2)}, fakeFactory()))
	require.NoError(t, l.Reconstruct([]shard.Shard{newFakeShard(3, 4)}, fakeFactory()))
	require.Equal(t, 1, l.ShardCount())
	require.Equal(t, int64(4), l.RecordCount())
}

func TestLevelPendingFinalize(t *testing.T) {
	l := level.New(1)
	require.NoError(t, l.AppendFromShards([]shard.Shard{newFakeShard(1)}, fakeFactory()))
	l.SetPending(newFakeShard(9, 9, 9))
	l.Finalize()
	require.Equal(t, 1, l.ShardCount())
	require.Equal(t, int64(3), l.RecordCount())
}

func TestLevelDeleteRecordTagsFirstMatch(t *testing.T) {
	l := level.New(4)
	require.NoError(t, l.AppendFromShards([]shard.Shard{newFakeShard(1, 2, 3)}, fakeFactory()))
	require.True(t, l.DeleteRecord(testrecord.New(2)))
	require.False(t, l.DeleteRecord(testrecord.New(99)))

	w, ok := l.PointLookup(testrecord.New(2))
	require.True(t, ok)
	require.True(t, w.Deleted())
}

func TestLevelCloneIsIndependent(t *testing.T) {
	l := level.New(4)
	require.NoError(t, l.AppendFromShards([]shard.Shard{newFakeShard(1)}, fakeFactory()))
	c := l.Clone()
	require.NoError(t, c.AppendFromShards([]shard.Shard{newFakeShard(2)}, fakeFactory()))
	require.Equal(t, 1, l.ShardCount())
	require.Equal(t, 2, c.ShardCount())
}
