package event

import "github.com/momentics/evrt/api"

// Kind distinguishes the four rendezvous variants. They share one struct
// and are told apart by a tag rather than by virtual dispatch, since every
// variant is a thin policy wrapper around the same waiting-list and
// unblock machinery.
type Kind uint8

const (
	// KindGather collects completions with an auto-assigned rid and a
	// FIFO ready list.
	KindGather Kind = iota
	// KindExplicit is identical to KindGather except callers supply the
	// rid themselves.
	KindExplicit
	// KindFunctional invokes a caller-supplied hook on every completion
	// instead of queuing a ready list.
	KindFunctional
	// KindDistribute is a functional rendezvous whose hook fans the
	// outcome out to a fixed set of downstream events.
	KindDistribute
)

// Flags selects destruction behavior for a rendezvous.
type Flags uint8

const (
	// Normal rendezvous are expected to be drained before they go out of
	// scope; destroying one with events still pending trips a debug
	// assertion.
	Normal Flags = iota
	// Volatile rendezvous may be destroyed with events still pending
	// without tripping that assertion, e.g. when their lifetime is tied
	// to an owning object rather than to an explicit drain loop.
	Volatile
)

// Hook is invoked by a functional or distribute rendezvous on every
// completion of an event bound to it.
type Hook func(r *Rendezvous, e *SimpleEvent, success bool)

// Rendezvous is the shared implementation behind all four variants
// described by Kind. It owns the waiting list of not-yet-complete events,
// at most one blocked Closure, and, for Gather/Explicit, a FIFO of
// completed-but-not-yet-consumed events.
type Rendezvous struct {
	queue *UnblockedQueue
	kind  Kind
	flags Flags

	waiting *SimpleEvent

	readyHead, readyTail *SimpleEvent

	blocked       Closure
	nextUnblocked *Rendezvous

	hook       Hook
	downstream []Event0

	nextRid uintptr
}

// sentinelBlocked marks a rendezvous as blocked but not yet enqueued on its
// driver's unblocked queue. Its address is the marker; it is never
// dereferenced.
var sentinelBlocked = &Rendezvous{}

// UnblockedQueueOwner is implemented by anything that owns the run queue a
// rendezvous enqueues itself on when its blocked closure becomes ready.
// *driver.Driver implements it; so does *UnblockedQueue itself, which lets
// tests build rendezvous without a driver at all.
type UnblockedQueueOwner interface {
	UnblockedQueue() *UnblockedQueue
}

// UnblockedQueue trivially satisfies UnblockedQueueOwner.
func (q *UnblockedQueue) UnblockedQueue() *UnblockedQueue { return q }

// NewGather builds a gather rendezvous. rid values are auto-assigned by
// MakeEventN when omitted.
func NewGather(owner UnblockedQueueOwner, flags Flags) *Rendezvous {
	return &Rendezvous{queue: owner.UnblockedQueue(), kind: KindGather, flags: flags}
}

// NewExplicit builds an explicit rendezvous. Callers must always supply a
// rid to MakeEventN.
func NewExplicit(owner UnblockedQueueOwner, flags Flags) *Rendezvous {
	return &Rendezvous{queue: owner.UnblockedQueue(), kind: KindExplicit, flags: flags}
}

// NewFunctional builds a functional rendezvous driven entirely by hook.
func NewFunctional(owner UnblockedQueueOwner, flags Flags, hook Hook) *Rendezvous {
	api.Assert(hook != nil, "rendezvous: functional rendezvous requires a hook")
	return &Rendezvous{queue: owner.UnblockedQueue(), kind: KindFunctional, flags: flags, hook: hook}
}

// Kind reports which of the four variants r is.
func (r *Rendezvous) Kind() Kind { return r.kind }

func (r *Rendezvous) addWaiting(e *SimpleEvent, rid uintptr) {
	e.owner = r
	e.rid = rid
	e.prevLink = &r.waiting
	if r.waiting != nil {
		r.waiting.prevLink = &e.next
	}
	e.next = r.waiting
	r.waiting = e
}

func (r *Rendezvous) autoRid() uintptr {
	api.Assert(r.kind != KindExplicit, "rendezvous: rid must be supplied for this rendezvous kind")
	r.nextRid++
	return r.nextRid
}

func (r *Rendezvous) ridFor(rid []uintptr) uintptr {
	if len(rid) > 0 {
		return rid[0]
	}
	return r.autoRid()
}

func (r *Rendezvous) pushReady(e *SimpleEvent) {
	e.refcount++
	e.next = nil
	if r.readyTail == nil {
		r.readyHead = e
	} else {
		r.readyTail.next = e
	}
	r.readyTail = e
	r.Unblock()
}

// HasReady reports whether at least one completed event is waiting to be
// consumed via PopReady.
func (r *Rendezvous) HasReady() bool { return r.readyHead != nil }

// PopReady removes and returns the rid of the oldest completed event.
// It is a misuse to call PopReady on an empty ready list.
func (r *Rendezvous) PopReady() uintptr {
	e := r.readyHead
	api.Assert(e != nil, "rendezvous: pop_ready called on an empty ready list")
	r.readyHead = e.next
	if r.readyHead == nil {
		r.readyTail = nil
	}
	rid := e.rid
	e.UnuseClean()
	return rid
}

// Clear drops every ready and waiting event bound to r: ready events are
// already complete and are simply released, waiting events are cancelled.
func (r *Rendezvous) Clear() {
	for r.readyHead != nil {
		e := r.readyHead
		r.readyHead = e.next
		e.UnuseClean()
	}
	r.readyTail = nil
	for r.waiting != nil {
		r.waiting.SimpleTrigger(false)
	}
}

// Destroy tears r down: every waiting event is cancelled and a blocked
// closure, if any, is abandoned. A non-volatile rendezvous destroyed with
// pending events trips a debug assertion first, since that usually means a
// drain loop was skipped.
func (r *Rendezvous) Destroy() {
	if r.flags != Volatile {
		api.Assert(r.waiting == nil && r.readyHead == nil,
			"rendezvous: destroying a normal rendezvous with pending events")
	}
	r.Clear()
	if r.blocked != nil {
		c := r.blocked
		r.blocked = nil
		if ah, ok := c.(Abandoner); ok {
			ah.Abandoned()
		}
	}
}

// Block suspends c on r at the given label. Only one closure may be
// blocked on a rendezvous at a time.
func (r *Rendezvous) Block(c Closure, label int) {
	api.Assert(r.blocked == nil, "rendezvous: block called while already blocked")
	api.Assert(r.queue != nil, "rendezvous: block called on a rendezvous with no unblocked queue")
	r.blocked = c
	r.nextUnblocked = sentinelBlocked
	c.SetBlockPosition(label)
}

// Unblock appends r to its driver's unblocked queue if a closure is
// blocked on r and r is not already enqueued. It is idempotent: calling it
// twice in a row before the queue is drained has no additional effect.
func (r *Rendezvous) Unblock() {
	if r.blocked != nil && r.nextUnblocked == sentinelBlocked {
		r.queue.enqueue(r)
	}
}

// Run resumes the closure blocked on r, if any, clearing the block first so
// a closure that immediately re-blocks on r does not observe itself as
// still blocked.
func (r *Rendezvous) Run() {
	c := r.blocked
	r.blocked = nil
	if c != nil {
		c.Resume()
	}
}
