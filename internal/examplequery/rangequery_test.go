package examplequery_test

import (
	"testing"

	"github.com/dreamware/dynext/internal/examplequery"
	"github.com/dreamware/dynext/internal/exampleshard"
	"github.com/dreamware/dynext/internal/query"
	"github.com/dreamware/dynext/internal/record"
	"github.com/dreamware/dynext/internal/testrecord"
	"github.com/stretchr/testify/require"
)

type sliceBufferSource []record.Wrapped

func (s sliceBufferSource) Len() int                { return len(s) }
func (s sliceBufferSource) At(i int) record.Wrapped { return s[i] }

func TestRangeQueryOverShard(t *testing.T) {
	var src sliceBufferSource
	for i := 0; i < 10; i++ {
		w := record.NewWrapped(testrecord.New(i))
		w.MarkVisible()
		src = append(src, w)
	}
	s, err := exampleshard.Factory().FromBuffer(src)
	require.NoError(t, err)

	q := &examplequery.Range{Lo: testrecord.New(3), Hi: testrecord.New(6)}
	lq, err := q.LocalPreproc(s, nil)
	require.NoError(t, err)

	results, err := q.LocalQuery(s, lq)
	require.NoError(t, err)

	var out []record.Record
	require.NoError(t, q.Combine([][]query.LocalResult{results}, nil, &out))
	require.Len(t, out, 4)
	for i, want := range []int{3, 4, 5, 6} {
		require.Equal(t, want, out[i].(testrecord.Int).Key)
	}
}
