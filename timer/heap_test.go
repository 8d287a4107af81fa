package timer

import (
	"testing"
	"time"

	"github.com/momentics/evrt/event"
)

func TestPopDueOrdersByDeadline(t *testing.T) {
	h := New(DefaultSlabGroup)
	q := event.NewUnblockedQueue()
	r := event.NewGather(q, event.Normal)

	base := time.Unix(1000, 0)
	var order []int
	mk := func(tag int) event.Event0 {
		e := event.MakeEvent0(r)
		e.SetAtTriggerFunc(func(bool) { order = append(order, tag) })
		return e
	}

	h.Insert(base.Add(3*time.Second), mk(3))
	h.Insert(base.Add(1*time.Second), mk(1))
	h.Insert(base.Add(2*time.Second), mk(2))

	h.Skim()
	due := h.PopDue(base.Add(5 * time.Second))
	for _, e := range due {
		e.Trigger()
	}

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("fire order = %v, want [1 2 3]", order)
	}
}

func TestPopDueRespectsNow(t *testing.T) {
	h := New(DefaultSlabGroup)
	q := event.NewUnblockedQueue()
	r := event.NewGather(q, event.Normal)

	base := time.Unix(2000, 0)
	e1 := event.MakeEvent0(r)
	h.Insert(base.Add(10*time.Second), e1)
	e2 := event.MakeEvent0(r)
	h.Insert(base.Add(1*time.Second), e2)

	due := h.PopDue(base.Add(5 * time.Second))
	if len(due) != 1 {
		t.Fatalf("got %d due timers, want 1 (only the earlier one has elapsed)", len(due))
	}
	if dl, ok := h.PeekDeadline(); !ok || !dl.Equal(base.Add(10*time.Second)) {
		t.Fatalf("remaining root deadline = %v, ok=%v", dl, ok)
	}
}

func TestCancelledTimerIsSkimmedNotFired(t *testing.T) {
	h := New(DefaultSlabGroup)
	q := event.NewUnblockedQueue()
	r := event.NewGather(q, event.Normal)

	base := time.Unix(3000, 0)
	e := event.MakeEvent0(r)
	h.Insert(base.Add(time.Second), e)
	e.Cancel()

	h.Skim()
	if _, ok := h.PeekDeadline(); ok {
		t.Fatal("expected the cancelled root timer to have been skimmed")
	}

	due := h.PopDue(base.Add(time.Hour))
	if len(due) != 0 {
		t.Fatalf("cancelled timer must not be returned as due, got %d", len(due))
	}
}

func TestHeapGrowsAcrossSlabGroups(t *testing.T) {
	h := New(DefaultSlabGroup)
	q := event.NewUnblockedQueue()
	r := event.NewGather(q, event.Normal)

	base := time.Unix(4000, 0)
	const n = 40 // exceeds the first slab group (16), spilling into the second (32)
	for i := 0; i < n; i++ {
		e := event.MakeEvent0(r)
		h.Insert(base.Add(time.Duration(n-i)*time.Second), e)
	}
	if h.Len() != n {
		t.Fatalf("heap len = %d, want %d", h.Len(), n)
	}

	due := h.PopDue(base.Add(time.Hour))
	if len(due) != n {
		t.Fatalf("popped %d due timers, want %d", len(due), n)
	}
	// event i has rid i+1 and deadline n-i seconds out, so ascending
	// deadline order yields rids n, n-1, ..., 1.
	for i, e := range due {
		if got, want := e.Rid(), uintptr(n-i); got != want {
			t.Fatalf("timers popped out of order at index %d: rid %d, want %d", i, got, want)
		}
	}
}
