//go:build linux
// +build linux

package iofd

import (
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/evrt/driver"
)

func newTestDriver(t *testing.T) *driver.Driver {
	t.Helper()
	d, err := driver.Initialize(driver.Default)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(func() { _ = d.Cleanup() })
	return d
}

func pipeFds(t *testing.T) (r, w int) {
	t.Helper()
	fds := make([]int, 2)
	if err := unix.Pipe2(fds, 0); err != nil {
		t.Fatalf("pipe2: %v", err)
	}
	return fds[0], fds[1]
}

func pumpUntil(t *testing.T, d *driver.Driver, done func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !done() && time.Now().Before(deadline) {
		d.Once()
	}
	if !done() {
		t.Fatal("timed out waiting for completion")
	}
}

func TestWriteThenReadRoundTrips(t *testing.T) {
	d := newTestDriver(t)
	rfd, wfd := pipeFds(t)

	rf, err := wrap(d, rfd)
	if err != nil {
		t.Fatalf("wrap read fd: %v", err)
	}
	defer rf.Close()
	wf, err := wrap(d, wfd)
	if err != nil {
		t.Fatalf("wrap write fd: %v", err)
	}
	defer wf.Close()

	writeDone := false
	writeResult, wn := wf.WriteString("hello")
	writeResult.SetAtTriggerFunc(func(bool) { writeDone = true })
	pumpUntil(t, d, func() bool { return writeDone })
	if *wn != 5 {
		t.Fatalf("wrote %d bytes, want 5", *wn)
	}

	buf := make([]byte, 16)
	readDone := false
	readResult, gotN := rf.Read(buf)
	readResult.SetAtTriggerFunc(func(bool) { readDone = true })
	pumpUntil(t, d, func() bool { return readDone })

	if *gotN != 5 {
		t.Fatalf("read %d bytes, want 5", *gotN)
	}
	if string(buf[:5]) != "hello" {
		t.Fatalf("read back %q, want %q", buf[:5], "hello")
	}
}

func TestReadAfterPeerCloseReportsEOF(t *testing.T) {
	d := newTestDriver(t)
	rfd, wfd := pipeFds(t)
	unix.Close(wfd)

	rf, err := wrap(d, rfd)
	if err != nil {
		t.Fatalf("wrap: %v", err)
	}
	defer rf.Close()

	done := false
	buf := make([]byte, 4)
	ev, n := rf.Read(buf)
	ev.SetAtTriggerFunc(func(bool) { done = true })
	pumpUntil(t, d, func() bool { return done })

	// a closed write end makes the read side report EOF (n == 0), not an
	// error: the peer hung up cleanly.
	if *n != 0 {
		t.Fatalf("read on EOF reported n = %d, want 0", *n)
	}
}

func TestConcurrentReadersSerializeThroughCoopMutex(t *testing.T) {
	d := newTestDriver(t)
	rfd, wfd := pipeFds(t)

	rf, err := wrap(d, rfd)
	if err != nil {
		t.Fatalf("wrap: %v", err)
	}
	defer rf.Close()
	wf, err := wrap(d, wfd)
	if err != nil {
		t.Fatalf("wrap: %v", err)
	}
	defer wf.Close()

	var order []int
	buf1 := make([]byte, 1)
	buf2 := make([]byte, 1)

	done1, done2 := false, false
	r1, _ := rf.Read(buf1)
	r1.SetAtTriggerFunc(func(bool) { order = append(order, 1); done1 = true })
	r2, _ := rf.Read(buf2)
	r2.SetAtTriggerFunc(func(bool) { order = append(order, 2); done2 = true })

	wdone := false
	w, _ := wf.WriteString("ab")
	w.SetAtTriggerFunc(func(bool) { wdone = true })

	pumpUntil(t, d, func() bool { return wdone })
	pumpUntil(t, d, func() bool { return done1 && done2 })

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("reader completion order = %v, want [1 2]", order)
	}
}

func TestReadPooledReturnsBufferToPool(t *testing.T) {
	d := newTestDriver(t)
	rfd, wfd := pipeFds(t)

	rf, err := wrap(d, rfd)
	if err != nil {
		t.Fatalf("wrap read fd: %v", err)
	}
	defer rf.Close()
	wf, err := wrap(d, wfd)
	if err != nil {
		t.Fatalf("wrap write fd: %v", err)
	}
	defer wf.Close()

	writeDone := false
	writeResult, _ := wf.WriteString("hi")
	writeResult.SetAtTriggerFunc(func(bool) { writeDone = true })
	pumpUntil(t, d, func() bool { return writeDone })

	readDone := false
	buf, ev, n, release := rf.ReadPooled()
	ev.SetAtTriggerFunc(func(bool) { readDone = true })
	pumpUntil(t, d, func() bool { return readDone })

	if *n != 2 || string(buf[:2]) != "hi" {
		t.Fatalf("read %d bytes %q, want 2 bytes \"hi\"", *n, buf[:*n])
	}
	release()

	if got := bufferPool.Get(); len(got) != readBufSize {
		t.Fatalf("pooled buffer len = %d, want %d", len(got), readBufSize)
	}
}
