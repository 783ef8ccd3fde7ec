// Package testshard provides a minimal in-memory shard.Shard used by
// this repository's own tests (structure, epoch) so they can exercise
// shard.Factory wiring without depending on a concrete production shard
// implementation.
package testshard

import (
	"github.com/dreamware/dynext/internal/record"
	"github.com/dreamware/dynext/internal/shard"
)

// Shard is a flat, unsorted slice of wrapped records: simplest possible
// satisfier of shard.Shard plus the level package's optional Tagger
// extension.
type Shard struct {
	recs []record.Wrapped
}

func New(ints ...int) *Shard {
	s := &Shard{}
	for _, n := range ints {
		s.recs = append(s.recs, wrap(n))
	}
	return s
}

func wrap(n int) record.Wrapped {
	w := record.NewWrapped(intRecord(n))
	w.MarkVisible()
	return w
}

// intRecord lets testshard build records without importing testrecord,
// avoiding a needless cross-test-package dependency. It is a distinct
// type: an intRecord never compares equal to a testrecord.Int, so
// lookups against testshard shards use Int below.
type intRecord int

func (r intRecord) Less(other record.Record) bool  { return r < other.(intRecord) }
func (r intRecord) Equal(other record.Record) bool { o, ok := other.(intRecord); return ok && r == o }

func (s *Shard) PointLookup(rec record.Record) (record.Wrapped, bool) {
	for _, w := range s.recs {
		if w.Rec.Equal(rec) && !w.Deleted() {
			return w, true
		}
	}
	return record.Wrapped{}, false
}

func (s *Shard) RecordCount() int64    { return int64(len(s.recs)) }
func (s *Shard) TombstoneCount() int64 { return 0 }
func (s *Shard) MemoryUsage() int64    { return int64(len(s.recs)) * 16 }
func (s *Shard) AuxMemoryUsage() int64 { return 0 }

func (s *Shard) TagDeleted(rec record.Record) bool {
	for i, w := range s.recs {
		if w.Rec.Equal(rec) {
			w.SetDeleted()
			s.recs[i] = w
			return true
		}
	}
	return false
}

// Factory wires testshard construction into a shard.Factory.
func Factory() shard.Factory {
	return shard.Factory{
		FromBuffer: func(src shard.BufferSource) (shard.Shard, error) {
			s := &Shard{}
			for i := 0; i < src.Len(); i++ {
				s.recs = append(s.recs, src.At(i))
			}
			return s, nil
		},
		FromShards: func(sources []shard.Shard) (shard.Shard, error) {
			s := &Shard{}
			for _, src := range sources {
				s.recs = append(s.recs, src.(*Shard).recs...)
			}
			return s, nil
		},
	}
}

// Int exposes the package's record constructor for callers that need
// to build a matching record.Record outside a shard (e.g. to query a
// structure built from testshard shards).
func Int(n int) record.Record { return intRecord(n) }
