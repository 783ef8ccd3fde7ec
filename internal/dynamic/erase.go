package dynamic

import "github.com/dreamware/dynext/internal/record"

// Erase removes rec logically. Under the Tombstone policy this inserts
// a tombstone record through the normal insert path, relying on merge
// cancellation at reconstruction time (spec.md §4.3). Under Tagging, it
// walks the current epoch's structure then its buffers, setting the
// deleted bit on the first match it finds. Returns true if a matching
// record was tombstoned or tagged.
func (e *Extension) Erase(rec record.Record) bool {
	if e.cfg.DeletePolicy == Tombstone {
		return e.insert(rec, true)
	}
	return e.tagDelete(rec)
}

func (e *Extension) tagDelete(rec record.Record) bool {
	ep := e.current.Load()
	ep.StartJob()
	defer ep.EndJob()

	if ep.Structure().DeleteRecord(rec) {
		return true
	}
	for _, b := range ep.Buffers() {
		if b.DeleteRecord(rec) {
			return true
		}
	}
	return false
}
