package event

// The EventN family is the typed façade over SimpleEvent: each type fixes
// the event's arity at compile time rather than modeling it as a single
// generic over a heterogeneous tuple, since Go generics have no clean way
// to express a variadic type-parameter list. All five types share the same
// value semantics: Copy returns a second handle and bumps its SimpleEvent's
// refcount (a plain Go assignment does not), and Close (there is no
// destructor to do this implicitly) releases it.

// Event0 carries no output value.
type Event0 struct{ se *SimpleEvent }

// MakeEvent0 creates a zero-output event bound to r. rid is required for
// Explicit rendezvous and optional (auto-assigned) for every other kind.
func MakeEvent0(r *Rendezvous, rid ...uintptr) Event0 {
	return Event0{se: newSimpleEvent(r, r.ridFor(rid))}
}

// Live reports whether the event has not yet completed.
func (e Event0) Live() bool { return e.se.Live() }

// Trigger completes the event successfully.
func (e Event0) Trigger() { e.se.SimpleTrigger(true) }

// Cancel completes the event as cancelled.
func (e Event0) Cancel() { e.se.SimpleTrigger(false) }

// SetCancel arranges for c to be triggered if and only if e is cancelled.
func (e Event0) SetCancel(c Event0) { e.se.setCanceller(c.se) }

// SetAtTrigger arranges for target to be triggered with e's own outcome
// when e completes, in addition to e's own effect on its rendezvous.
func (e Event0) SetAtTrigger(target Event0) { e.se.setAtTrigger(chainToEvent{target.se}) }

// SetAtTriggerFunc arranges for fn to run with e's outcome when e completes.
func (e Event0) SetAtTriggerFunc(fn func(success bool)) { e.se.setAtTrigger(chainToFunc{fn}) }

// Rid returns the rendezvous-assigned identifier bound to e.
func (e Event0) Rid() uintptr { return e.se.Rid() }

// Copy returns a second handle to the same underlying completion, bumping
// its refcount. Both handles must eventually be Closed.
func (e Event0) Copy() Event0 { e.se.Use(); return e }

// Close releases this handle. If it was the last outstanding handle and the
// event has not yet completed, dropping it is treated as cancellation.
func (e Event0) Close() { e.se.Unuse() }

// Event1 carries one output value, written into the address supplied to
// MakeEvent1 when the event is triggered.
type Event1[T1 any] struct {
	se *SimpleEvent
	t1 *T1
}

func MakeEvent1[T1 any](r *Rendezvous, t1 *T1, rid ...uintptr) Event1[T1] {
	return Event1[T1]{se: newSimpleEvent(r, r.ridFor(rid)), t1: t1}
}

func (e Event1[T1]) Live() bool { return e.se.Live() }

// Trigger writes v1 into the bound slot, if any, then completes
// successfully. On an already-complete event it does nothing, leaving the
// slot as the first completion left it.
func (e Event1[T1]) Trigger(v1 T1) {
	if !e.se.Live() {
		return
	}
	if e.t1 != nil {
		*e.t1 = v1
	}
	e.se.SimpleTrigger(true)
}

func (e Event1[T1]) Cancel()                           { e.se.SimpleTrigger(false) }
func (e Event1[T1]) SetCancel(c Event0)                { e.se.setCanceller(c.se) }
func (e Event1[T1]) SetAtTrigger(target Event0)        { e.se.setAtTrigger(chainToEvent{target.se}) }
func (e Event1[T1]) SetAtTriggerFunc(fn func(bool))     { e.se.setAtTrigger(chainToFunc{fn}) }
func (e Event1[T1]) Rid() uintptr                       { return e.se.Rid() }
func (e Event1[T1]) Copy() Event1[T1]                   { e.se.Use(); return e }
func (e Event1[T1]) Close()                             { e.se.Unuse() }

// Event2 carries two output values.
type Event2[T1, T2 any] struct {
	se     *SimpleEvent
	t1     *T1
	t2     *T2
}

func MakeEvent2[T1, T2 any](r *Rendezvous, t1 *T1, t2 *T2, rid ...uintptr) Event2[T1, T2] {
	return Event2[T1, T2]{se: newSimpleEvent(r, r.ridFor(rid)), t1: t1, t2: t2}
}

func (e Event2[T1, T2]) Live() bool { return e.se.Live() }

func (e Event2[T1, T2]) Trigger(v1 T1, v2 T2) {
	if !e.se.Live() {
		return
	}
	if e.t1 != nil {
		*e.t1 = v1
	}
	if e.t2 != nil {
		*e.t2 = v2
	}
	e.se.SimpleTrigger(true)
}

func (e Event2[T1, T2]) Cancel()                       { e.se.SimpleTrigger(false) }
func (e Event2[T1, T2]) SetCancel(c Event0)             { e.se.setCanceller(c.se) }
func (e Event2[T1, T2]) SetAtTrigger(target Event0)     { e.se.setAtTrigger(chainToEvent{target.se}) }
func (e Event2[T1, T2]) SetAtTriggerFunc(fn func(bool)) { e.se.setAtTrigger(chainToFunc{fn}) }
func (e Event2[T1, T2]) Rid() uintptr                   { return e.se.Rid() }
func (e Event2[T1, T2]) Copy() Event2[T1, T2]           { e.se.Use(); return e }
func (e Event2[T1, T2]) Close()                         { e.se.Unuse() }

// Event3 carries three output values.
type Event3[T1, T2, T3 any] struct {
	se     *SimpleEvent
	t1     *T1
	t2     *T2
	t3     *T3
}

func MakeEvent3[T1, T2, T3 any](r *Rendezvous, t1 *T1, t2 *T2, t3 *T3, rid ...uintptr) Event3[T1, T2, T3] {
	return Event3[T1, T2, T3]{se: newSimpleEvent(r, r.ridFor(rid)), t1: t1, t2: t2, t3: t3}
}

func (e Event3[T1, T2, T3]) Live() bool { return e.se.Live() }

func (e Event3[T1, T2, T3]) Trigger(v1 T1, v2 T2, v3 T3) {
	if !e.se.Live() {
		return
	}
	if e.t1 != nil {
		*e.t1 = v1
	}
	if e.t2 != nil {
		*e.t2 = v2
	}
	if e.t3 != nil {
		*e.t3 = v3
	}
	e.se.SimpleTrigger(true)
}

func (e Event3[T1, T2, T3]) Cancel()                       { e.se.SimpleTrigger(false) }
func (e Event3[T1, T2, T3]) SetCancel(c Event0)             { e.se.setCanceller(c.se) }
func (e Event3[T1, T2, T3]) SetAtTrigger(target Event0)     { e.se.setAtTrigger(chainToEvent{target.se}) }
func (e Event3[T1, T2, T3]) SetAtTriggerFunc(fn func(bool)) { e.se.setAtTrigger(chainToFunc{fn}) }
func (e Event3[T1, T2, T3]) Rid() uintptr                   { return e.se.Rid() }
func (e Event3[T1, T2, T3]) Copy() Event3[T1, T2, T3]       { e.se.Use(); return e }
func (e Event3[T1, T2, T3]) Close()                         { e.se.Unuse() }

// Event4 carries four output values, the maximum arity the core supports
// directly; wider results should be bundled into a struct slot.
type Event4[T1, T2, T3, T4 any] struct {
	se     *SimpleEvent
	t1     *T1
	t2     *T2
	t3     *T3
	t4     *T4
}

func MakeEvent4[T1, T2, T3, T4 any](r *Rendezvous, t1 *T1, t2 *T2, t3 *T3, t4 *T4, rid ...uintptr) Event4[T1, T2, T3, T4] {
	return Event4[T1, T2, T3, T4]{se: newSimpleEvent(r, r.ridFor(rid)), t1: t1, t2: t2, t3: t3, t4: t4}
}

func (e Event4[T1, T2, T3, T4]) Live() bool { return e.se.Live() }

func (e Event4[T1, T2, T3, T4]) Trigger(v1 T1, v2 T2, v3 T3, v4 T4) {
	if !e.se.Live() {
		return
	}
	if e.t1 != nil {
		*e.t1 = v1
	}
	if e.t2 != nil {
		*e.t2 = v2
	}
	if e.t3 != nil {
		*e.t3 = v3
	}
	if e.t4 != nil {
		*e.t4 = v4
	}
	e.se.SimpleTrigger(true)
}

func (e Event4[T1, T2, T3, T4]) Cancel()                       { e.se.SimpleTrigger(false) }
func (e Event4[T1, T2, T3, T4]) SetCancel(c Event0)             { e.se.setCanceller(c.se) }
func (e Event4[T1, T2, T3, T4]) SetAtTrigger(target Event0)     { e.se.setAtTrigger(chainToEvent{target.se}) }
func (e Event4[T1, T2, T3, T4]) SetAtTriggerFunc(fn func(bool)) { e.se.setAtTrigger(chainToFunc{fn}) }
func (e Event4[T1, T2, T3, T4]) Rid() uintptr                   { return e.se.Rid() }
func (e Event4[T1, T2, T3, T4]) Copy() Event4[T1, T2, T3, T4]   { e.se.Use(); return e }
func (e Event4[T1, T2, T3, T4]) Close()                         { e.se.Unuse() }
