// Package buffer implements the mutable buffer and buffer view described in
// spec.md §3-§4.1: the lock-free, append-only circular array that absorbs
// concurrent inserts ahead of the extension structure.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────┐
//	│                     MutableBuffer                          │
//	│                                                              │
//	│   tail (atomic monotone counter, fetch-and-add on Append)  │
//	│   head      {idx, refcnt}  (packed atomic word)            │
//	│   old_head  {idx, refcnt}  (packed atomic word)            │
//	│                                                              │
//	│   slots[capacity]: {visible atomic.Bool, header atomic,    │
//	│                      rec record.Record}                    │
//	│                                                              │
//	│   tombstoneFilter: bloom.Filter   tombstoneCount: atomic    │
//	└──────────────────────────────────────────────────────────┘
//	           │                                    │
//	           ▼                                    ▼
//	   Append (wait-free,                   GetBufferView(head)
//	   fetch-and-add tail)                  (CAS refcnt++, freeze tail)
//
// # Index arithmetic
//
// old_head.idx <= head.idx <= tail always holds: AdvanceHead demotes the
// previous head to old_head. A slot at index i is valid iff
// head.idx <= i < tail; storage indexes it at i mod capacity. Append
// bounds tail - head.idx by the high water mark only, so a capacity of
// at least twice the high water mark is what keeps a newly-appended
// record's slot from aliasing a slot still readable through an old_head
// view; New and the dynamic extension façade accept any capacity of at
// least the high water mark.
//
// # Head advancement
//
// AdvanceHead moves head to a new index, demoting the previous head to
// old_head so that readers who already took a view of the previous head
// can keep reading while new appends and new views proceed against the
// new head. It refuses if old_head still has outstanding references: a
// buffer can only have one generation of "draining" readers at a time.
//
// # Concurrency
//
// Append is wait-free: it never blocks, and fails cleanly (a retryable
// false) rather than spin when the buffer is full. GetBufferView and
// view release use bounded CAS retry loops. AdvanceHead is guarded by a
// single in-progress flag so at most one advance runs at a time; it is
// not called from more than one goroutine in practice (the dynamic
// extension façade serializes flushes per buffer).
package buffer
