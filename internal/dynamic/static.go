package dynamic

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dreamware/dynext/internal/shard"
	natomic "github.com/natefinch/atomic"
)

// staticRecord is the JSON rendering of one flattened wrapped record,
// grounded on spec.md §4.8's "static structure": a read-only snapshot
// meant for export, not for re-ingestion by the framework itself.
type staticRecord struct {
	Record    string `json:"record"`
	Tombstone bool   `json:"tombstone"`
	Timestamp uint32 `json:"timestamp"`
}

// CreateStaticStructure flattens the current epoch's structure levels
// and buffers into a single immutable shard, per spec.md §4.8. If
// Config.StaticExportPath is set, it additionally writes a JSON
// summary of the flattened shard's records to that path via an
// atomic rename-based write, so a concurrent reader never observes a
// partially written file.
func (e *Extension) CreateStaticStructure() (shard.Shard, error) {
	ep := e.current.Load()
	ep.StartJob()
	defer ep.EndJob()

	shards := ep.Structure().AllShards()
	views := ep.GetBufferViews()
	defer func() {
		for _, v := range views {
			v.Release()
		}
	}()

	for _, v := range views {
		built, err := e.cfg.Factory.FromBuffer(v)
		if err != nil {
			return nil, fmt.Errorf("dynamic: flatten buffer view: %w", err)
		}
		shards = append(shards, built)
	}

	flattened, err := e.cfg.Factory.FromShards(shards)
	if err != nil {
		return nil, fmt.Errorf("dynamic: flatten shards: %w", err)
	}

	if e.cfg.StaticExportPath != "" {
		if err := e.exportStatic(flattened); err != nil {
			return nil, err
		}
	}
	return flattened, nil
}

// sortedEnumerable is the narrow capability static export needs beyond
// shard.SortedShard: a raw slot count to walk with RecordAt. Concrete
// shards that want static export support (internal/exampleshard does)
// implement it; for any other shard type exportStatic returns an error,
// which CreateStaticStructure returns in place of the shard.
type sortedEnumerable interface {
	shard.SortedShard
	Len() int
}

func (e *Extension) exportStatic(s shard.Shard) error {
	enumerable, ok := s.(sortedEnumerable)
	if !ok {
		return fmt.Errorf("dynamic: static export unsupported for shard type %T", s)
	}

	out := make([]staticRecord, 0, enumerable.Len())
	for i := 0; i < enumerable.Len(); i++ {
		w := enumerable.RecordAt(i)
		if w.Deleted() {
			continue
		}
		out = append(out, staticRecord{
			Record:    fmt.Sprintf("%v", w.Rec),
			Tombstone: w.Tombstone(),
			Timestamp: w.Timestamp(),
		})
	}

	buf, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("dynamic: marshal static structure: %w", err)
	}
	if err := natomic.WriteFile(e.cfg.StaticExportPath, bytes.NewReader(buf)); err != nil {
		return fmt.Errorf("dynamic: write static structure: %w", err)
	}
	return nil
}
