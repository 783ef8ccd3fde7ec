package dynamic

import "github.com/dreamware/dynext/internal/record"

// PointLookup returns the live record equal to rec, if any, across the
// current epoch's buffers (newest first, so a more recent insert or
// tombstone shadows an older one still draining) and then its
// structure. A tombstone or tagged-deleted match is treated as "not
// found".
func (e *Extension) PointLookup(rec record.Record) (record.Record, bool) {
	ep := e.current.Load()
	ep.StartJob()
	defer ep.EndJob()

	views := ep.GetBufferViews()
	defer func() {
		for _, v := range views {
			v.Release()
		}
	}()

	for i := len(views) - 1; i >= 0; i-- {
		v := views[i]
		for j := v.Len() - 1; j >= 0; j-- {
			w := v.At(j)
			if !w.Rec.Equal(rec) {
				continue
			}
			if w.Tombstone() || w.Deleted() {
				return nil, false
			}
			return w.Rec, true
		}
	}

	w, ok := ep.Structure().PointLookup(rec)
	if !ok || w.Tombstone() || w.Deleted() {
		return nil, false
	}
	return w.Rec, true
}
