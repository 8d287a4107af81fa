// File: iofd/mutex.go
// Author: momentics <momentics@gmail.com>
//
// coopMutex is the "cooperative queue, not a thread mutex" a blocking fd
// operation needs to serialize concurrent readers (or writers) against
// each other without ever taking a real sync.Mutex: acquiring it either
// completes the caller's event immediately or parks it on a FIFO to be
// granted, in order, as earlier holders release.

package iofd

import (
	"github.com/eapache/queue"

	"github.com/momentics/evrt/event"
)

// coopMutex serializes events of a single direction (read or write) on
// one fd. Every event handed to acquire belongs to the same functional
// rendezvous, which exists only to group them so tearing the fd down can
// cancel every still-waiting acquire in one Destroy call; granting itself
// is driven entirely by acquire/release, not by the rendezvous hook.
type coopMutex struct {
	r       *event.Rendezvous
	locked  bool
	waiters *queue.Queue
}

func newCoopMutex(owner event.UnblockedQueueOwner) *coopMutex {
	return &coopMutex{
		r:       event.NewFunctional(owner, event.Volatile, func(*event.Rendezvous, *event.SimpleEvent, bool) {}),
		waiters: queue.New(),
	}
}

// acquire returns an event that fires as soon as the caller holds the
// mutex: immediately, synchronously, if it was free, or later, once every
// earlier waiter has released it.
func (m *coopMutex) acquire() event.Event0 {
	ev := event.MakeEvent0(m.r)
	if !m.locked {
		m.locked = true
		ev.Trigger()
		return ev
	}
	m.waiters.Add(ev)
	return ev
}

// release hands the mutex to the next waiter, if any, or marks it free.
func (m *coopMutex) release() {
	if m.waiters.Length() == 0 {
		m.locked = false
		return
	}
	next := m.waiters.Remove().(event.Event0)
	next.Trigger()
}

// destroy cancels every still-queued waiter.
func (m *coopMutex) destroy() {
	m.r.Destroy()
}
