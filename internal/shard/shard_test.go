package shard_test

import (
	"testing"

	"github.com/dreamware/dynext/internal/record"
	"github.com/dreamware/dynext/internal/shard"
	"github.com/dreamware/dynext/internal/testrecord"
	"github.com/stretchr/testify/require"
)

// sliceCursor adapts a pre-sorted slice of wrapped records to
// shard.Cursor for merge tests.
type sliceCursor struct {
	items []record.Wrapped
	pos   int
}

func (c *sliceCursor) Valid() bool            { return c.pos < len(c.items) }
func (c *sliceCursor) Current() record.Wrapped { return c.items[c.pos] }
func (c *sliceCursor) Advance()                { c.pos++ }

func wrap(n int, tombstone, deleted bool, ts uint64) record.Wrapped {
	w := record.NewWrapped(testrecord.New(n))
	if tombstone {
		w.SetTombstone()
	}
	if deleted {
		w.SetDeleted()
	}
	w.SetTimestamp(ts)
	w.MarkVisible()
	return w
}

func TestMergeOrdersAcrossCursors(t *testing.T) {
	c1 := &sliceCursor{items: []record.Wrapped{wrap(1, false, false, 0), wrap(3, false, false, 1)}}
	c2 := &sliceCursor{items: []record.Wrapped{wrap(2, false, false, 0), wrap(4, false, false, 1)}}

	out, _ := shard.Merge([]shard.Cursor{c1, c2}, shard.MergeOptions{})
	require.Len(t, out, 4)
	for i, want := range []int{1, 2, 3, 4} {
		require.Equal(t, want, out[i].Rec.(testrecord.Int).Key)
	}
}

func TestMergeCancelsLiveAndTombstone(t *testing.T) {
	c1 := &sliceCursor{items: []record.Wrapped{
		wrap(1, false, false, 0),
		wrap(2, false, false, 1),
		wrap(2, true, false, 2),
		wrap(3, false, false, 3),
	}}

	out, _ := shard.Merge([]shard.Cursor{c1}, shard.MergeOptions{})
	require.Len(t, out, 2)
	require.Equal(t, 1, out[0].Rec.(testrecord.Int).Key)
	require.Equal(t, 3, out[1].Rec.(testrecord.Int).Key)
}

func TestMergeDropsDeletedRecords(t *testing.T) {
	c1 := &sliceCursor{items: []record.Wrapped{
		wrap(1, false, false, 0),
		wrap(2, false, true, 1),
		wrap(3, false, false, 2),
	}}

	out, _ := shard.Merge([]shard.Cursor{c1}, shard.MergeOptions{})
	require.Len(t, out, 2)
	require.Equal(t, 1, out[0].Rec.(testrecord.Int).Key)
	require.Equal(t, 3, out[1].Rec.(testrecord.Int).Key)
}

func TestMergePopulatesTombstoneFilter(t *testing.T) {
	c1 := &sliceCursor{items: []record.Wrapped{
		wrap(1, true, false, 0),
		wrap(2, false, false, 1),
	}}

	out, filter := shard.Merge([]shard.Cursor{c1}, shard.MergeOptions{PopulateTombstoneFilter: true, FilterCapacity: 64})
	require.Len(t, out, 2)
	require.NotNil(t, filter)
	require.True(t, filter.MayContain(testrecord.New(1)))
}

func TestMergeEmptyCursors(t *testing.T) {
	out, filter := shard.Merge(nil, shard.MergeOptions{})
	require.Empty(t, out)
	require.Nil(t, filter)
}
