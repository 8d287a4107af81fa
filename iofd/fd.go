//go:build linux
// +build linux

// File: iofd/fd.go
// Author: momentics <momentics@gmail.com>
//
// Fd is a minimal, real consumer of the core's scheduled-I/O registration,
// cooperative mutex, and event machinery: a non-blocking file descriptor
// wrapper whose Read/Write/Accept/Connect calls never block the caller's
// goroutine, instead returning an event that fires once the operation
// completes (or fails). Errors are surfaced as negated POSIX errno values
// in the same output slot as a successful byte count, per the fd
// abstraction this is grounded on.

package iofd

import (
	"golang.org/x/sys/unix"

	"github.com/momentics/evrt/event"
)

// driverHandle is the subset of *driver.Driver an Fd depends on. Depending
// on an interface here rather than the concrete driver type keeps iofd
// free of the import it would otherwise need purely for this one pointer
// type; *driver.Driver is still the only thing that ever satisfies it.
type driverHandle interface {
	event.UnblockedQueueOwner
	AtFdRead(fd uintptr, ev event.Event0)
	AtFdWrite(fd uintptr, ev event.Event0)
}

// Fd wraps one non-blocking file descriptor. Read and Write operations on
// the same Fd serialize against each other (separately per direction)
// through a cooperative mutex rather than a thread lock, since only one
// goroutine, the driver's, ever touches this state.
type Fd struct {
	d  driverHandle
	fd int

	rmu, wmu *coopMutex
	io       *event.Rendezvous

	closed  bool
	atClose []func()
}

func wrap(d driverHandle, fd int) (*Fd, error) {
	if err := unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	return &Fd{
		d:   d,
		fd:  fd,
		rmu: newCoopMutex(d),
		wmu: newCoopMutex(d),
		io:  event.NewFunctional(d, event.Volatile, func(*event.Rendezvous, *event.SimpleEvent, bool) {}),
	}, nil
}

// Open opens path with flag/perm and wraps the resulting fd.
func Open(d driverHandle, path string, flag int, perm uint32) (*Fd, error) {
	fd, err := unix.Open(path, flag, perm)
	if err != nil {
		return nil, err
	}
	return wrap(d, fd)
}

// Socket creates a socket and wraps it.
func Socket(d driverHandle, domain, typ, proto int) (*Fd, error) {
	fd, err := unix.Socket(domain, typ, proto)
	if err != nil {
		return nil, err
	}
	return wrap(d, fd)
}

// Fd returns the underlying raw file descriptor.
func (f *Fd) Fd() uintptr { return uintptr(f.fd) }

// Fstat stats the wrapped fd.
func (f *Fd) Fstat() (unix.Stat_t, error) {
	var st unix.Stat_t
	err := unix.Fstat(f.fd, &st)
	return st, err
}

// Listen marks the wrapped socket fd passive, with room for backlog
// queued connections.
func (f *Fd) Listen(backlog int) error {
	return unix.Listen(f.fd, backlog)
}

// AtClose registers fn to run, in registration order, when Close runs.
func (f *Fd) AtClose(fn func()) { f.atClose = append(f.atClose, fn) }

// Closer adapts Close to the shape callers expecting a bare func() error
// want, e.g. to hand to a defer.
func (f *Fd) Closer() func() error { return f.Close }

// Close runs every AtClose hook, cancels any still-parked read or write
// caller, and releases the fd.
func (f *Fd) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	for _, fn := range f.atClose {
		fn()
	}
	f.rmu.destroy()
	f.wmu.destroy()
	f.io.Destroy()
	return unix.Close(f.fd)
}

// Read attempts to fill buf, retrying through the driver's fd readiness
// table while the read would block. The returned event fires once the
// byte count on success or a negated errno (e.g. -int(unix.EBADF)) on
// failure has been written to the returned slot; read it only after the
// event has fired, e.g. from within a SetAtTriggerFunc callback.
func (f *Fd) Read(buf []byte) (event.Event1[int], *int) {
	slot := new(int)
	result := event.MakeEvent1[int](f.io, slot)
	turn := f.rmu.acquire()
	turn.SetAtTriggerFunc(func(success bool) {
		if !success {
			result.Trigger(-int(unix.ECANCELED))
			return
		}
		f.readLoop(buf, result)
	})
	return result, slot
}

func (f *Fd) readLoop(buf []byte, result event.Event1[int]) {
	n, err := unix.Read(f.fd, buf)
	if err == unix.EAGAIN {
		retry := event.MakeEvent0(f.io)
		retry.SetAtTriggerFunc(func(success bool) {
			if !success {
				f.rmu.release()
				result.Trigger(-int(unix.ECANCELED))
				return
			}
			f.readLoop(buf, result)
		})
		f.d.AtFdRead(f.Fd(), retry)
		return
	}
	if err != nil {
		result.Trigger(-int(err.(unix.Errno)))
	} else {
		result.Trigger(n)
	}
	f.rmu.release()
}

// Write attempts to write buf in full, retrying through the driver's fd
// readiness table while the write would block. The returned event fires
// once the byte count written on success, or a negated errno on failure,
// has been written to the returned slot.
func (f *Fd) Write(buf []byte) (event.Event1[int], *int) {
	slot := new(int)
	result := event.MakeEvent1[int](f.io, slot)
	turn := f.wmu.acquire()
	turn.SetAtTriggerFunc(func(success bool) {
		if !success {
			result.Trigger(-int(unix.ECANCELED))
			return
		}
		f.writeLoop(buf, 0, result)
	})
	return result, slot
}

// WriteString is a convenience wrapper around Write.
func (f *Fd) WriteString(s string) (event.Event1[int], *int) {
	return f.Write([]byte(s))
}

func (f *Fd) writeLoop(buf []byte, written int, result event.Event1[int]) {
	n, err := unix.Write(f.fd, buf[written:])
	if err == unix.EAGAIN {
		retry := event.MakeEvent0(f.io)
		retry.SetAtTriggerFunc(func(success bool) {
			if !success {
				f.wmu.release()
				result.Trigger(-int(unix.ECANCELED))
				return
			}
			f.writeLoop(buf, written, result)
		})
		f.d.AtFdWrite(f.Fd(), retry)
		return
	}
	if err != nil {
		f.wmu.release()
		result.Trigger(-int(err.(unix.Errno)))
		return
	}
	written += n
	if written < len(buf) {
		f.writeLoop(buf, written, result)
		return
	}
	f.wmu.release()
	result.Trigger(written)
}

// Connect initiates a non-blocking connect and, once the returned event
// fires, reports completion (0) or a negated errno through the returned
// slot.
func (f *Fd) Connect(sa unix.Sockaddr) (event.Event1[int], *int) {
	slot := new(int)
	result := event.MakeEvent1[int](f.io, slot)
	err := unix.Connect(f.fd, sa)
	if err == nil {
		result.Trigger(0)
		return result, slot
	}
	if err != unix.EINPROGRESS {
		result.Trigger(-int(err.(unix.Errno)))
		return result, slot
	}
	wait := event.MakeEvent0(f.io)
	wait.SetAtTriggerFunc(func(success bool) {
		if !success {
			result.Trigger(-int(unix.ECANCELED))
			return
		}
		errno, gerr := unix.GetsockoptInt(f.fd, unix.SOL_SOCKET, unix.SO_ERROR)
		if gerr != nil {
			result.Trigger(-int(gerr.(unix.Errno)))
			return
		}
		result.Trigger(-errno)
	})
	f.d.AtFdWrite(f.Fd(), wait)
	return result, slot
}

// Accept waits for and accepts the next incoming connection on a
// listening socket fd. Once the returned event fires, the returned slot
// holds the accepted raw fd number on success or a negated errno on
// failure, and the returned **Fd holds the wrapped Fd on success.
func (f *Fd) Accept() (event.Event1[int], *int, **Fd) {
	slot := new(int)
	result := event.MakeEvent1[int](f.io, slot)
	var accepted *Fd
	f.acceptLoop(result, &accepted)
	return result, slot, &accepted
}

func (f *Fd) acceptLoop(result event.Event1[int], accepted **Fd) {
	nfd, _, err := unix.Accept(f.fd)
	if err == unix.EAGAIN {
		retry := event.MakeEvent0(f.io)
		retry.SetAtTriggerFunc(func(success bool) {
			if !success {
				result.Trigger(-int(unix.ECANCELED))
				return
			}
			f.acceptLoop(result, accepted)
		})
		f.d.AtFdRead(f.Fd(), retry)
		return
	}
	if err != nil {
		result.Trigger(-int(err.(unix.Errno)))
		return
	}
	nf, werr := wrap(f.d, nfd)
	if werr != nil {
		result.Trigger(-int(unix.EBADF))
		return
	}
	*accepted = nf
	result.Trigger(nfd)
}
