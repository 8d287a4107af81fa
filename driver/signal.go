// File: driver/signal.go
// Author: momentics <momentics@gmail.com>
//
// The signal bridge: a table of per-signal events plus a self-pipe that
// wakes the driver's kernel wait when a signal arrives. The Go runtime's
// own os/signal delivery already handles the async-signal-safety concern
// the self-pipe trick exists for in C; the self-pipe here solves a
// different problem, waking a blocking kernel wait call from a goroutine
// the driver is not currently running on.

package driver

import (
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/momentics/evrt/event"
)

// maxSignals bounds the per-signal event table, matching the fixed-size
// array the source uses.
const maxSignals = 32

type signalBridge struct {
	pipeR, pipeW *os.File
	table        [maxSignals]event.Event0
	active       [maxSignals]atomic.Bool
	anyActive    atomic.Bool
	ch           chan os.Signal
	watching     map[int]bool
}

func newSignalBridge() (*signalBridge, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	b := &signalBridge{
		pipeR:    r,
		pipeW:    w,
		ch:       make(chan os.Signal, 64),
		watching: make(map[int]bool),
	}
	go b.forward()
	return b, nil
}

// forward relays the runtime's signal channel into the active-flags table
// and wakes any blocked kernel wait by writing a byte to the self-pipe.
// This runs on its own goroutine, distinct from the driver's; it never
// triggers events directly, only sets flags, matching the invariant that
// the driver checks flags after each kernel wait rather than being
// re-entered asynchronously.
func (b *signalBridge) forward() {
	for sig := range b.ch {
		n := int(sig.(syscall.Signal))
		if n < 0 || n >= maxSignals {
			continue
		}
		b.active[n].Store(true)
		b.anyActive.Store(true)
		_, _ = b.pipeW.Write([]byte{1})
	}
}

// At arms ev to fire the next time sig is delivered. Replacing an
// existing binding cancels the event it held.
func (b *signalBridge) At(sig int, ev event.Event0) {
	if b.table[sig].Live() {
		b.table[sig].Cancel()
	}
	b.table[sig] = ev
	if !b.watching[sig] {
		b.watching[sig] = true
		signal.Notify(b.ch, syscall.Signal(sig))
	}
}

// PipeReadFd returns the self-pipe's read end, registered once, for good,
// in the kernel reactor's read set.
func (b *signalBridge) PipeReadFd() uintptr { return b.pipeR.Fd() }

// anyWatched reports whether any signal has ever been armed via At. A
// signal can be watched long before it becomes active, so callers that
// need to know whether the bridge might still wake the driver (as opposed
// to whether it has already done so) should check this too.
func (b *signalBridge) anyWatched() bool { return len(b.watching) > 0 }

// Drain triggers every currently flagged signal's event, via onActive,
// then flushes the self-pipe of pending wakeup bytes, both before it
// returns. The caller drains the unblocked queue after Drain returns.
func (b *signalBridge) Drain(onActive func(sig int, ev event.Event0)) {
	if !b.anyActive.Swap(false) {
		return
	}
	for n := 0; n < maxSignals; n++ {
		if b.active[n].Swap(false) {
			ev := b.table[n]
			b.table[n] = event.Event0{}
			onActive(n, ev)
		}
	}
	_ = b.pipeR.SetReadDeadline(time.Now())
	var buf [64]byte
	for {
		n, err := b.pipeR.Read(buf[:])
		if n == 0 || err != nil {
			break
		}
	}
	_ = b.pipeR.SetReadDeadline(time.Time{})
}

func (b *signalBridge) Close() error {
	signal.Stop(b.ch)
	close(b.ch)
	werr := b.pipeW.Close()
	rerr := b.pipeR.Close()
	if werr != nil {
		return werr
	}
	return rerr
}
