package event

import (
	"testing"

	"github.com/momentics/evrt/api"
)

func TestTriggerCompletesExactlyOnce(t *testing.T) {
	q := NewUnblockedQueue()
	r := NewGather(q, Normal)
	var got int
	e := MakeEvent1[int](r, &got)

	e.Trigger(7)
	e.Trigger(9) // double trigger: silently absorbed

	if got != 7 {
		t.Fatalf("slot = %d, want 7 (second trigger must not overwrite)", got)
	}
	if !r.HasReady() {
		t.Fatal("expected a ready completion")
	}
	if rid := r.PopReady(); rid != 1 {
		t.Fatalf("rid = %d, want 1 (auto-assigned)", rid)
	}
	if r.HasReady() {
		t.Fatal("expected ready list to be empty after one pop")
	}
}

func TestReadyOrderIsFIFO(t *testing.T) {
	q := NewUnblockedQueue()
	r := NewGather(q, Normal)

	e1 := MakeEvent0(r)
	e2 := MakeEvent0(r)
	e3 := MakeEvent0(r)

	e2.Trigger()
	e1.Trigger()
	e3.Trigger()

	var order []uintptr
	for r.HasReady() {
		order = append(order, r.PopReady())
	}
	want := []uintptr{2, 1, 3}
	for i, rid := range want {
		if order[i] != rid {
			t.Fatalf("pop order = %v, want completion order %v", order, want)
		}
	}
}

func TestExplicitRendezvousRequiresRid(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected a misuse panic when omitting rid on an explicit rendezvous")
		}
	}()
	// Assertions only fire with debug enabled; tests run with it on.
	enableDebugForTest(t)
	q := NewUnblockedQueue()
	r := NewExplicit(q, Normal)
	_ = MakeEvent0(r) // no rid supplied
}

func TestCancelSkipsReadyList(t *testing.T) {
	q := NewUnblockedQueue()
	r := NewGather(q, Normal)
	e := MakeEvent0(r)

	e.Cancel()

	if r.HasReady() {
		t.Fatal("a cancelled event must not appear on the ready list")
	}
}

func TestSetCancelFiresOnlyOnCancellation(t *testing.T) {
	q := NewUnblockedQueue()
	r := NewGather(q, Normal)

	triggered := MakeEvent0(r)
	fired := false
	triggered.SetAtTriggerFunc(func(bool) { fired = true })
	e1 := MakeEvent0(r)
	e1.SetCancel(triggered)
	e1.Trigger()
	if fired {
		t.Fatal("SetCancel target must not fire when the guarded event succeeds")
	}

	cancelled := MakeEvent0(r)
	gotCancel := false
	cancelled.SetAtTriggerFunc(func(bool) { gotCancel = true })
	e2 := MakeEvent0(r)
	e2.SetCancel(cancelled)
	e2.Cancel()
	if !gotCancel {
		t.Fatal("SetCancel target must fire when the guarded event is cancelled")
	}
}

func TestAtTriggerChainsPropagateOutcome(t *testing.T) {
	q := NewUnblockedQueue()
	r := NewGather(q, Normal)

	e := MakeEvent0(r)
	var got bool
	e.SetAtTriggerFunc(func(success bool) { got = success })
	e.Cancel()

	if got {
		t.Fatal("chain should have observed the cancel outcome")
	}
}

func TestDistributeFansOutInOrder(t *testing.T) {
	q := NewUnblockedQueue()
	r := NewGather(q, Normal)

	var order []int
	t1 := MakeEvent0(r)
	t1.SetAtTriggerFunc(func(bool) { order = append(order, 1) })
	t2 := MakeEvent0(r)
	t2.SetAtTriggerFunc(func(bool) { order = append(order, 2) })

	d := Distribute(t1, t2)
	d.Trigger()

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("fan-out order = %v, want [1 2]", order)
	}
}

func TestUnblockIsIdempotentUntilDrained(t *testing.T) {
	q := NewUnblockedQueue()
	r := NewGather(q, Normal)
	c := &fakeClosure{}
	r.Block(c, 1)

	e := MakeEvent0(r)
	e.Trigger()
	r.Unblock() // already enqueued by pushReady; must not double-enqueue

	n := 0
	for rr := q.Pop(); rr != nil; rr = q.Pop() {
		n++
		rr.Run()
	}
	if n != 1 {
		t.Fatalf("rendezvous appeared %d times in the unblocked queue, want 1", n)
	}
	if c.resumed != 1 {
		t.Fatalf("closure resumed %d times, want 1", c.resumed)
	}
}

type fakeClosure struct {
	label   int
	resumed int
}

func (c *fakeClosure) SetBlockPosition(label int) { c.label = label }
func (c *fakeClosure) Resume()                    { c.resumed++ }

func enableDebugForTest(t *testing.T) {
	t.Helper()
	prev := api.DebugEnabled()
	api.SetDebug(true)
	t.Cleanup(func() { api.SetDebug(prev) })
}
