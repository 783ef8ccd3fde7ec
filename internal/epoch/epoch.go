// Package epoch implements the consistent-snapshot mechanism described
// in spec.md §4.5: a structure version paired with one or more buffer
// references and an active-job counter, retired only once that counter
// reaches zero.
package epoch

import (
	"sync"
	"sync/atomic"

	"github.com/dreamware/dynext/internal/buffer"
	"github.com/dreamware/dynext/internal/structure"
)

// Epoch binds one extension-structure version to the buffer(s) live
// against it at the moment the epoch was created. Buffers are ordered
// oldest-first (Open Question D2, recorded in SPEC_FULL.md §9): query
// fan-out iterates them in the order they were added, so the oldest
// (draining) buffer is consulted before the active one; the façade's
// PointLookup walks the same list newest-first.
type Epoch struct {
	Seq uint64

	mu      sync.Mutex
	struc   *structure.Structure
	buffers []*buffer.MutableBuffer

	activeJobs atomic.Int64
}

// New constructs the first epoch of a dynamic extension's lifetime,
// wrapping the given structure and its single initial buffer.
func New(seq uint64, struc *structure.Structure, initial *buffer.MutableBuffer) *Epoch {
	return &Epoch{Seq: seq, struc: struc, buffers: []*buffer.MutableBuffer{initial}}
}

// StartJob increments the active-job counter. Callers must pair every
// StartJob with an EndJob, even on error paths.
func (e *Epoch) StartJob() { e.activeJobs.Add(1) }

// EndJob decrements the active-job counter.
func (e *Epoch) EndJob() { e.activeJobs.Add(-1) }

// ActiveJobs reports the current active-job count.
func (e *Epoch) ActiveJobs() int64 { return e.activeJobs.Load() }

// Retirable reports whether the epoch's active-job counter has reached
// zero, the only condition under which it may be freed.
func (e *Epoch) Retirable() bool { return e.activeJobs.Load() == 0 }

// Structure returns the epoch's structure reference.
func (e *Epoch) Structure() *structure.Structure {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.struc
}

// Buffers returns the epoch's buffer references, oldest first.
func (e *Epoch) Buffers() []*buffer.MutableBuffer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*buffer.MutableBuffer(nil), e.buffers...)
}

// GetBufferViews returns one view per attached buffer, oldest (draining)
// first and the active buffer last (Open Question D2, spec.md §9,
// decided in SPEC_FULL.md §9): query fan-out processes the predecessor
// buffer's records before the active buffer's, consistent with
// insertion order. Each returned view holds a reference that the caller
// must Release.
func (e *Epoch) GetBufferViews() []*buffer.View {
	e.mu.Lock()
	bufs := append([]*buffer.MutableBuffer(nil), e.buffers...)
	e.mu.Unlock()

	views := make([]*buffer.View, 0, len(bufs))
	for _, b := range bufs {
		v, ok := b.GetBufferView(b.HeadIndex())
		if !ok {
			continue
		}
		views = append(views, v)
	}
	return views
}

// AddBuffer attaches an additional buffer to the epoch — used when the
// active buffer reaches HWM before the reconstruction draining it has
// completed, so inserts can continue into a fresh buffer without
// waiting on the flush.
func (e *Epoch) AddBuffer(b *buffer.MutableBuffer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.buffers = append(e.buffers, b)
}

// ClearBuffers releases the epoch's hold on all of its buffers. The
// façade does not call it: a successor built by Clone already starts
// with an empty buffer list.
func (e *Epoch) ClearBuffers() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.buffers = nil
}

// Clone produces a successor epoch one sequence number ahead, whose
// structure is an independent clone of the receiver's (spec.md §4.2
// Clone semantics: shallow, shares shard references but has its own
// level vectors) and whose buffer list starts empty — the caller
// attaches whichever buffers the successor should serve from via
// AddBuffer.
func (e *Epoch) Clone() *Epoch {
	e.mu.Lock()
	struc := e.struc
	e.mu.Unlock()
	return &Epoch{Seq: e.Seq + 1, struc: struc.Clone()}
}
