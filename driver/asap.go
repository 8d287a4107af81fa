// File: driver/asap.go
// Author: momentics <momentics@gmail.com>
//
// The ASAP queue: a LIFO stack of events to fire on the next driver
// iteration before any fd work, drained once per iteration after signals.

package driver

import "github.com/momentics/evrt/event"

type asapQueue struct {
	stack []event.Event0
}

// Push schedules ev to fire the next time Drain runs. If called from
// within a Drain in progress, ev fires on the following iteration, not
// the current one: Drain snapshots and clears the stack before firing
// anything, so pushes during the loop land in a fresh slice.
func (q *asapQueue) Push(ev event.Event0) {
	q.stack = append(q.stack, ev)
}

// Drain fires every event queued before this call, top of stack first,
// and reports how many it fired.
func (q *asapQueue) Drain() int {
	batch := q.stack
	q.stack = nil
	for i := len(batch) - 1; i >= 0; i-- {
		batch[i].Trigger()
	}
	return len(batch)
}
