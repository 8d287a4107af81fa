// Package event implements the cancellable, single-shot completion
// primitives at the heart of the runtime: simple events, typed events and
// the rendezvous variants that own them.
//
// Author: momentics <momentics@gmail.com>
package event

import "github.com/momentics/evrt/api"

// SimpleEvent is the untyped, refcounted completion cell that every typed
// event wraps. It belongs to at most one Rendezvous at a time (its "owner")
// until it completes, at which point owner becomes nil permanently.
//
// The owner keeps an intrusive doubly linked list of the SimpleEvents still
// waiting on it, threaded through prevLink/next, so unlinking on trigger is
// O(1) without scanning the list.
type SimpleEvent struct {
	owner    *Rendezvous
	rid      uintptr
	refcount uint32

	prevLink **SimpleEvent
	next     *SimpleEvent

	done    bool
	outcome bool

	canceller *SimpleEvent
	chains    []chainLink

	annotateFile string
	annotateLine int
}

// chainLink is the at_trigger tagged variant, modeled as a small interface
// with two concrete shapes instead of a C-style (function, arg1, arg2)
// triple: a closure already carries whatever state it needs.
type chainLink interface {
	fire(success bool)
}

type chainToEvent struct{ target *SimpleEvent }

func (c chainToEvent) fire(success bool) { c.target.SimpleTrigger(success) }

type chainToFunc struct{ fn func(success bool) }

func (c chainToFunc) fire(success bool) { c.fn(success) }

// newSimpleEvent allocates a SimpleEvent bound to r under rid and links it
// into r's waiting list.
func newSimpleEvent(r *Rendezvous, rid uintptr) *SimpleEvent {
	e := &SimpleEvent{refcount: 1}
	r.addWaiting(e, rid)
	return e
}

// Use increments the handle refcount. Every typed event that copies its
// underlying SimpleEvent must call Use on the copy.
func (e *SimpleEvent) Use() {
	if e != nil {
		e.refcount++
	}
}

// Unuse decrements the handle refcount. If it reaches zero while the event
// is still live (owner != nil), dropping the last reference is treated as
// cancellation, matching the contract that every event completes exactly
// once before it is discarded.
func (e *SimpleEvent) Unuse() {
	if e == nil {
		return
	}
	api.Assert(e.refcount > 0, "simple event: refcount underflow")
	e.refcount--
	if e.refcount == 0 && e.owner != nil {
		e.SimpleTrigger(false)
	}
}

// UnuseClean decrements the handle refcount without triggering, for events
// that are already known to be complete (e.g. popped off a ready list).
func (e *SimpleEvent) UnuseClean() {
	if e == nil {
		return
	}
	api.Assert(e.refcount > 0, "simple event: refcount underflow")
	e.refcount--
}

// Live reports whether the event has not yet completed.
func (e *SimpleEvent) Live() bool { return e != nil && e.owner != nil }

// Rid returns the rendezvous-assigned identifier bound to this event.
func (e *SimpleEvent) Rid() uintptr { return e.rid }

// Annotate records a source location for diagnostics, mirroring Tamer's
// debug-closure file/line capture.
func (e *SimpleEvent) Annotate(file string, line int) {
	if e != nil {
		e.annotateFile, e.annotateLine = file, line
	}
}

func (e *SimpleEvent) unlinkFromWaiting() {
	*e.prevLink = e.next
	if e.next != nil {
		e.next.prevLink = e.prevLink
	}
}

// SimpleTrigger completes the event with the given outcome. Triggering an
// already-complete event is a no-op: the contract guarantees exactly one
// completion per event, so a second call (double-trigger) is silently
// absorbed rather than treated as an error.
func (e *SimpleEvent) SimpleTrigger(success bool) {
	if e == nil || e.owner == nil {
		return
	}
	e.unlinkFromWaiting()
	owner := e.owner
	e.owner = nil
	e.done = true
	e.outcome = success

	switch owner.kind {
	case KindGather, KindExplicit:
		if success {
			owner.pushReady(e)
		}
	case KindFunctional, KindDistribute:
		owner.hook(owner, e, success)
	}

	if !success && e.canceller != nil {
		c := e.canceller
		e.canceller = nil
		c.SimpleTrigger(true)
	}

	chains := e.chains
	e.chains = nil
	for _, c := range chains {
		c.fire(success)
	}
}

// setAtTrigger appends a chain link that fires when e completes. If e has
// already completed, the link fires immediately with the recorded outcome,
// matching late registration against an event whose handle outlived its
// completion.
func (e *SimpleEvent) setAtTrigger(c chainLink) {
	if e.done {
		c.fire(e.outcome)
		return
	}
	e.chains = append(e.chains, c)
}

// setCanceller arranges for c to be triggered (with success) exactly when e
// is cancelled; e completing normally leaves c untouched. At most one
// canceller may be registered per event.
func (e *SimpleEvent) setCanceller(c *SimpleEvent) {
	api.Assert(e.canceller == nil, "simple event: setcancel called twice")
	if e.done {
		if !e.outcome {
			c.SimpleTrigger(true)
		}
		return
	}
	e.canceller = c
}
