// Package timer implements the driver's timer heap: a binary min-heap of
// timer records keyed by absolute expiry, slab-allocated with lazy
// cancellation so a cancelled timer does not require a heap-internal
// search-and-remove.
//
// Author: momentics <momentics@gmail.com>
package timer

import (
	"container/heap"
	"time"

	"github.com/momentics/evrt/event"
	"github.com/momentics/evrt/pool"
)

// DefaultSlabGroup is the size of the first slab-allocated group of timer
// records when a driver does not override it via control.ConfigStore's
// "timer.slab_group" key; subsequent groups double, following the
// 16/32/64... growth the heap is specified with.
const DefaultSlabGroup = 16

// record is one entry in the heap. index is maintained by container/heap
// for Fix/removal bookkeeping; a record whose ev has been cancelled stays
// in the heap, unchanged, until Skim or PopDue reaches it and finds ev no
// longer live.
type record struct {
	deadline time.Time
	ev       event.Event0
	index    int
}

// Heap is a binary min-heap of timer records. It is not safe for
// concurrent use; like the rest of the core, it is driven from a single
// goroutine.
type Heap struct {
	slab  *pool.Slab[record]
	items []*record
}

// New returns an empty timer heap whose slab grows in groups starting at
// slabGroup entries, doubling thereafter.
func New(slabGroup int) *Heap {
	return &Heap{slab: pool.NewSlab[record](slabGroup)}
}

// Len implements container/heap.Interface.
func (h *Heap) Len() int { return len(h.items) }

// Less implements container/heap.Interface, ordering by deadline.
func (h *Heap) Less(i, j int) bool {
	return h.items[i].deadline.Before(h.items[j].deadline)
}

// Swap implements container/heap.Interface.
func (h *Heap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].index = i
	h.items[j].index = j
}

// Push implements container/heap.Interface. Use Insert, not this method,
// to add a timer.
func (h *Heap) Push(x any) {
	r := x.(*record)
	r.index = len(h.items)
	h.items = append(h.items, r)
}

// Pop implements container/heap.Interface. Use PopDue, not this method,
// to remove a due timer.
func (h *Heap) Pop() any {
	n := len(h.items)
	r := h.items[n-1]
	h.items[n-1] = nil
	h.items = h.items[:n-1]
	r.index = -1
	return r
}

// Insert adds a timer that fires ev at deadline. There is no separate
// handle to cancel it with: the caller cancels ev itself (directly, or via
// SetCancel/Distribute wiring from whatever raced it), and the heap
// notices the record's event is no longer live the next time it is
// skimmed.
func (h *Heap) Insert(deadline time.Time, ev event.Event0) {
	r := h.slab.Get()
	r.deadline = deadline
	r.ev = ev
	heap.Push(h, r)
}

// Skim removes cancelled records (empty trigger event) from the root of
// the heap, repeatedly, until the root is a live timer or the heap is
// empty. Call this before computing the kernel wait timeout so a
// long-cancelled timer at the root never causes an incorrect zero-timeout
// busy loop.
func (h *Heap) Skim() {
	for len(h.items) > 0 && !h.items[0].ev.Live() {
		r := heap.Pop(h).(*record)
		h.slab.Put(r)
	}
}

// PeekDeadline returns the root timer's deadline and true, after Skim has
// been called, or the zero time and false if the heap is empty.
func (h *Heap) PeekDeadline() (time.Time, bool) {
	if len(h.items) == 0 {
		return time.Time{}, false
	}
	return h.items[0].deadline, true
}

// PopDue removes and returns the trigger event of every timer whose
// deadline is at or before now, in ascending deadline order. It assumes
// Skim has already been applied; any cancelled record reached along the
// way is simply discarded rather than returned.
func (h *Heap) PopDue(now time.Time) []event.Event0 {
	var due []event.Event0
	for len(h.items) > 0 && !h.items[0].deadline.After(now) {
		r := heap.Pop(h).(*record)
		if r.ev.Live() {
			due = append(due, r.ev)
		}
		h.slab.Put(r)
	}
	return due
}
