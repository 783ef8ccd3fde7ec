package exampleshard_test

import (
	"testing"

	"github.com/dreamware/dynext/internal/exampleshard"
	"github.com/dreamware/dynext/internal/record"
	"github.com/dreamware/dynext/internal/shard"
	"github.com/dreamware/dynext/internal/testrecord"
	"github.com/stretchr/testify/require"
)

type sliceBufferSource []record.Wrapped

func (s sliceBufferSource) Len() int                { return len(s) }
func (s sliceBufferSource) At(i int) record.Wrapped { return s[i] }

func wrap(n int, tombstone bool) record.Wrapped {
	w := record.NewWrapped(testrecord.New(n))
	if tombstone {
		w.SetTombstone()
	}
	w.MarkVisible()
	return w
}

func TestFromBufferSortsAndLooksUp(t *testing.T) {
	src := sliceBufferSource{wrap(3, false), wrap(1, false), wrap(2, false)}
	s, err := exampleshard.Factory().FromBuffer(src)
	require.NoError(t, err)
	require.Equal(t, int64(3), s.RecordCount())

	sa := s.(*exampleshard.SortedArray)
	require.Equal(t, 1, sa.RecordAt(0).Rec.(testrecord.Int).Key)
	require.Equal(t, 2, sa.RecordAt(1).Rec.(testrecord.Int).Key)
	require.Equal(t, 3, sa.RecordAt(2).Rec.(testrecord.Int).Key)

	w, ok := sa.PointLookup(testrecord.New(2))
	require.True(t, ok)
	require.Equal(t, 2, w.Rec.(testrecord.Int).Key)

	_, ok = sa.PointLookup(testrecord.New(99))
	require.False(t, ok)
}

func TestFromBufferCancelsTombstones(t *testing.T) {
	src := sliceBufferSource{wrap(1, false), wrap(2, false), wrap(2, true)}
	s, err := exampleshard.Factory().FromBuffer(src)
	require.NoError(t, err)
	require.Equal(t, int64(1), s.RecordCount())
	require.Equal(t, int64(0), s.TombstoneCount())
}

func TestFromShardsMergesSiblingShards(t *testing.T) {
	factory := exampleshard.Factory()
	s1, err := factory.FromBuffer(sliceBufferSource{wrap(1, false), wrap(3, false)})
	require.NoError(t, err)
	s2, err := factory.FromBuffer(sliceBufferSource{wrap(2, false), wrap(4, false)})
	require.NoError(t, err)

	merged, err := factory.FromShards([]shard.Shard{s1, s2})
	require.NoError(t, err)
	require.Equal(t, int64(4), merged.RecordCount())

	sa := merged.(*exampleshard.SortedArray)
	for i, want := range []int{1, 2, 3, 4} {
		require.Equal(t, want, sa.RecordAt(i).Rec.(testrecord.Int).Key)
	}
}

func TestTagDeletedMarksFirstMatch(t *testing.T) {
	s, err := exampleshard.Factory().FromBuffer(sliceBufferSource{wrap(1, false), wrap(2, false)})
	require.NoError(t, err)
	sa := s.(*exampleshard.SortedArray)

	require.True(t, sa.TagDeleted(testrecord.New(1)))
	require.False(t, sa.TagDeleted(testrecord.New(99)))
	require.Equal(t, int64(1), sa.RecordCount())

	_, ok := sa.PointLookup(testrecord.New(1))
	require.False(t, ok)
}

func TestLowerUpperBound(t *testing.T) {
	s, err := exampleshard.Factory().FromBuffer(sliceBufferSource{wrap(1, false), wrap(3, false), wrap(5, false)})
	require.NoError(t, err)
	sa := s.(*exampleshard.SortedArray)

	require.Equal(t, 1, sa.LowerBound(testrecord.New(2)))
	require.Equal(t, 2, sa.UpperBound(testrecord.New(3)))
}
