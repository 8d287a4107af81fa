package driver

import (
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/momentics/evrt/event"
)

func newTestDriver(t *testing.T) *Driver {
	t.Helper()
	d, err := Initialize(Default)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(func() { _ = d.Cleanup() })
	return d
}

func TestAtDelayFiresOnce(t *testing.T) {
	d := newTestDriver(t)
	r := event.NewGather(d, event.Normal)

	fired := false
	e := event.MakeEvent0(r)
	e.SetAtTriggerFunc(func(bool) { fired = true })
	d.AtDelay(0, e)

	d.Once()

	if !fired {
		t.Fatal("expected an already-due delay timer to fire on the next iteration")
	}
}

func TestAtASAPFiresBeforeTimers(t *testing.T) {
	d := newTestDriver(t)
	r := event.NewGather(d, event.Normal)

	var order []string
	timerEv := event.MakeEvent0(r)
	timerEv.SetAtTriggerFunc(func(bool) { order = append(order, "timer") })
	d.AtDelay(0, timerEv)

	asapEv := event.MakeEvent0(r)
	asapEv.SetAtTriggerFunc(func(bool) { order = append(order, "asap") })
	d.AtASAP(asapEv)

	d.Once()

	if len(order) != 2 || order[0] != "asap" || order[1] != "timer" {
		t.Fatalf("fire order = %v, want [asap timer]", order)
	}
}

func TestPipePingWakesDriver(t *testing.T) {
	pr, pw, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	defer pr.Close()
	defer pw.Close()

	d := newTestDriver(t)
	r := event.NewGather(d, event.Normal)

	fired := false
	e := event.MakeEvent0(r)
	e.SetAtTriggerFunc(func(bool) { fired = true })
	d.AtFdRead(pr.Fd(), e)

	if _, err := pw.Write([]byte("x")); err != nil {
		t.Fatalf("write: %v", err)
	}

	d.Once()

	if !fired {
		t.Fatal("expected the read-ready pipe to wake the driver and fire its event")
	}
}

func TestSignalWakesDriver(t *testing.T) {
	d := newTestDriver(t)
	r := event.NewGather(d, event.Normal)

	fired := false
	e := event.MakeEvent0(r)
	e.SetAtTriggerFunc(func(bool) { fired = true })
	d.AtSignal(int(syscall.SIGUSR1), e)

	if err := syscall.Kill(os.Getpid(), syscall.SIGUSR1); err != nil {
		t.Fatalf("kill: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for !fired && time.Now().Before(deadline) {
		d.Once()
	}

	if !fired {
		t.Fatal("expected SIGUSR1 to wake the driver and fire its bound event")
	}
}

func TestDoubleTriggerThroughDriverIsSafe(t *testing.T) {
	d := newTestDriver(t)
	r := event.NewGather(d, event.Normal)

	fireCount := 0
	e := event.MakeEvent0(r)
	e.SetAtTriggerFunc(func(bool) { fireCount++ })
	d.AtASAP(e)

	d.Once()
	e.Trigger() // already complete: must be absorbed, not a second fire

	if fireCount != 1 {
		t.Fatalf("chain fired %d times, want exactly 1", fireCount)
	}
}
