// Package driver binds the event, timer and reactor packages into the
// cooperative, single-threaded event loop: one iteration skims cancelled
// timers, computes a kernel wait timeout, waits on the kernel reactor,
// drains signals, drains the ASAP queue, fires ready fds and due timers,
// then drains the unblocked rendezvous queue to a fixed point.
//
// Author: momentics <momentics@gmail.com>
package driver

import (
	"time"

	"github.com/momentics/evrt/api"
	"github.com/momentics/evrt/control"
	"github.com/momentics/evrt/event"
	"github.com/momentics/evrt/reactor"
	"github.com/momentics/evrt/timer"
)

// Flags selects driver-wide options at Initialize time. There are none
// yet; it exists so new options never need an API-breaking signature
// change, matching the event package's own Flags type.
type Flags uint8

// Default is the zero Flags value.
const Default Flags = 0

// Config keys read at Initialize time and, for fdtable.growth_factor, on
// every subsequent reload.
const (
	cfgTimerSlabGroup   = "timer.slab_group"
	cfgFdGrowthFactor   = "fdtable.growth_factor"
	cfgAsapCapacityHint = "asap.capacity_hint"
)

// Driver owns every piece of driver-local state: the unblocked rendezvous
// queue, the timer heap, the fd readiness table, the signal bridge, the
// ASAP queue, and the ambient config/metrics/debug registries.
type Driver struct {
	unblocked *event.UnblockedQueue
	timers    *timer.Heap
	fds       *fdTable
	sig       *signalBridge
	asap      *asapQueue
	kernel    reactor.EventReactor

	cfg     *control.ConfigStore
	metrics *control.MetricsRegistry
	debug   *control.DebugProbes

	eventBuf []reactor.Event
	closed   bool
}

var _ api.Debug = (*Driver)(nil)

// Initialize constructs a driver: opens the kernel reactor, the self-pipe
// signal bridge, and the ambient config/metrics/debug registries.
func Initialize(flags Flags) (*Driver, error) {
	kernel, err := reactor.NewReactor()
	if err != nil {
		return nil, api.NewError(api.ErrCodeInternal, "driver: open kernel reactor").WithContext("cause", err)
	}
	sig, err := newSignalBridge()
	if err != nil {
		_ = kernel.Close()
		return nil, api.NewError(api.ErrCodeInternal, "driver: open signal bridge").WithContext("cause", err)
	}

	cfg := control.NewConfigStore()
	cfg.SetConfig(map[string]any{
		cfgTimerSlabGroup:   timer.DefaultSlabGroup,
		cfgFdGrowthFactor:   2,
		cfgAsapCapacityHint: 8,
	})

	fds := newFdTable(kernel, cfg.GetInt(cfgFdGrowthFactor, 2))

	d := &Driver{
		unblocked: event.NewUnblockedQueue(),
		timers:    timer.New(cfg.GetInt(cfgTimerSlabGroup, timer.DefaultSlabGroup)),
		fds:       fds,
		sig:       sig,
		asap:      &asapQueue{stack: make([]event.Event0, 0, cfg.GetInt(cfgAsapCapacityHint, 8))},
		kernel:    kernel,
		cfg:       cfg,
		metrics:   control.NewMetricsRegistry(),
		debug:     control.NewDebugProbes(),
		eventBuf:  make([]reactor.Event, 64),
	}

	// the fd table's growth factor is the one tunable here that still means
	// something after construction: every later grow() call picks it up.
	cfg.OnReload(func() {
		fds.setGrowthFactor(cfg.GetInt(cfgFdGrowthFactor, 2))
	})

	if err := kernel.Register(sig.PipeReadFd(), reactor.Read, selfPipeUserData); err != nil {
		_ = sig.Close()
		_ = kernel.Close()
		return nil, api.NewError(api.ErrCodeInternal, "driver: register self-pipe").WithContext("cause", err)
	}

	control.RegisterPlatformProbes(d.debug)
	d.registerIntrospectionProbes()
	return d, nil
}

// selfPipeUserData is an out-of-band marker distinguishing the self-pipe's
// kernel registration from user fd table entries, which are always their
// own fd value.
const selfPipeUserData = ^uintptr(0)

func (d *Driver) registerIntrospectionProbes() {
	d.debug.RegisterProbe("driver.timers_pending", func() any { return d.timers.Len() })
	d.debug.RegisterProbe("driver.fds_high_water", func() any { return d.fds.nfds })
	d.debug.RegisterProbe("driver.metrics", func() any { return d.metrics.GetSnapshot() })
}

// UnblockedQueue implements event.UnblockedQueueOwner, letting rendezvous
// constructed against this driver enqueue themselves when unblocked.
func (d *Driver) UnblockedQueue() *event.UnblockedQueue { return d.unblocked }

// Config exposes the driver's configuration store.
func (d *Driver) Config() *control.ConfigStore { return d.cfg }

// DumpState implements api.Debug.
func (d *Driver) DumpState() map[string]any { return d.debug.DumpState() }

// RegisterProbe implements api.Debug.
func (d *Driver) RegisterProbe(name string, fn func() any) { d.debug.RegisterProbe(name, fn) }

// AtFdRead arms ev to fire the next time fd is ready for reading.
func (d *Driver) AtFdRead(fd uintptr, ev event.Event0) {
	_ = d.fds.At(fd, reactor.Read, ev)
}

// AtFdWrite arms ev to fire the next time fd is ready for writing.
func (d *Driver) AtFdWrite(fd uintptr, ev event.Event0) {
	_ = d.fds.At(fd, reactor.Write, ev)
}

// AtSignal arms ev to fire the next time sig is delivered to this process.
func (d *Driver) AtSignal(sig int, ev event.Event0) {
	d.sig.At(sig, ev)
}

// AtASAP schedules ev to fire on the next driver iteration, before any fd
// work.
func (d *Driver) AtASAP(ev event.Event0) {
	d.asap.Push(ev)
}

// AtDelay schedules ev to fire after seconds have elapsed.
func (d *Driver) AtDelay(seconds float64, ev event.Event0) {
	d.timers.Insert(time.Now().Add(time.Duration(seconds*float64(time.Second))), ev)
}

// AtTime schedules ev to fire at absolute time t.
func (d *Driver) AtTime(t time.Time, ev event.Event0) {
	d.timers.Insert(t, ev)
}

// Stop tells Run to return after the current iteration. It must be called
// from the driver's own goroutine, typically from an event handler.
func (d *Driver) Stop() { d.closed = true }

// Run calls Once repeatedly while there is pending work: any timer, any
// armed fd cell, any queued ASAP entry, any rendezvous waiting to resume,
// or any watched signal. It also stops early if Stop is called.
func (d *Driver) Run() {
	for !d.closed {
		// drop cancelled root timers and disarmed trailing fd cells first,
		// so neither is counted as pending work
		d.timers.Skim()
		d.fds.Trim()
		if !d.hasPendingWork() {
			return
		}
		d.Once()
	}
}

// hasPendingWork reports whether another iteration could possibly produce
// forward progress. A watched-but-not-yet-delivered signal still counts:
// without it, a driver blocked only on a signal would never take its
// first Once to start waiting for one.
func (d *Driver) hasPendingWork() bool {
	return d.timers.Len() > 0 ||
		d.fds.nfds > 0 ||
		len(d.asap.stack) > 0 ||
		!d.unblocked.Empty() ||
		d.sig.anyActive.Load() ||
		d.sig.anyWatched()
}

// Once executes a single driver iteration.
func (d *Driver) Once() {
	d.timers.Skim()

	timeoutMs := d.computeTimeoutMs()

	d.fds.Trim()

	n, err := d.kernel.Wait(d.eventBuf, timeoutMs)
	if err != nil {
		d.metrics.Set("driver.wait_errors", errCount(d.metrics)+1)
		n = 0
	}

	signalsServiced := 0
	d.sig.Drain(func(_ int, ev event.Event0) {
		ev.Trigger()
		signalsServiced++
	})
	d.unblocked.Drain()

	asapDrained := d.asap.Drain()

	fdsReady := 0
	for i := 0; i < n; i++ {
		ready := d.eventBuf[i]
		if ready.UserData == selfPipeUserData {
			continue
		}
		if ready.Dir&reactor.Read != 0 {
			d.fds.Fire(ready.Fd, reactor.Read)
			fdsReady++
		}
		if ready.Dir&reactor.Write != 0 {
			d.fds.Fire(ready.Fd, reactor.Write)
			fdsReady++
		}
	}

	now := time.Now()
	due := d.timers.PopDue(now)
	for _, ev := range due {
		ev.Trigger()
	}

	d.unblocked.Drain()

	d.metrics.Set("driver.signals_serviced", signalsServiced)
	d.metrics.Set("driver.asap_drained", asapDrained)
	d.metrics.Set("driver.fds_ready", fdsReady)
	d.metrics.Set("driver.timers_fired", len(due))
}

func errCount(mr *control.MetricsRegistry) int {
	if v, ok := mr.GetSnapshot()["driver.wait_errors"].(int); ok {
		return v
	}
	return 0
}

func (d *Driver) computeTimeoutMs() int {
	if len(d.asap.stack) > 0 || d.sig.anyActive.Load() {
		return 0
	}
	if deadline, ok := d.timers.PeekDeadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return 0
		}
		ms := remaining.Milliseconds()
		if ms > int64(^uint32(0)>>1) {
			ms = int64(^uint32(0) >> 1)
		}
		return int(ms)
	}
	return -1
}

// Cleanup releases the driver's kernel resources. It does not drain or
// cancel any still-pending work; callers that need that must do it
// themselves before calling Cleanup.
func (d *Driver) Cleanup() error {
	sigErr := d.sig.Close()
	kernelErr := d.kernel.Close()
	if sigErr != nil {
		return sigErr
	}
	return kernelErr
}
