//go:build windows
// +build windows

// File: reactor/reactor_windows.go
// Author: momentics <momentics@gmail.com>
//
// Windows IOCP (I/O Completion Port) reactor implementation and factory.
//
// IOCP reports completions, not readiness, so this is an approximation of
// the epoll-style contract EventReactor promises: every completion is
// reported as Read-direction, whatever direction was registered, since the
// completion key carries no direction bit of its own.

package reactor

import (
	"errors"
	"unsafe"

	"golang.org/x/sys/windows"
)

// windowsReactor is an IOCP-based event reactor.
type windowsReactor struct {
	iocp windows.Handle
}

// NewReactor constructs a new platform-specific EventReactor for Windows.
func NewReactor() (EventReactor, error) {
	port, err := windows.CreateIoCompletionPort(windows.InvalidHandle, 0, 0, 0)
	if err != nil {
		return nil, err
	}
	return &windowsReactor{iocp: port}, nil
}

// Register associates a handle with the completion port. dir is recorded
// only for symmetry with the epoll backend; IOCP itself has no concept of
// read/write readiness.
func (r *windowsReactor) Register(handle uintptr, dir Direction, userData uintptr) error {
	h := windows.Handle(handle)
	_, err := windows.CreateIoCompletionPort(h, r.iocp, userData, 0)
	return err
}

// Modify is a no-op: a handle's association with an IOCP cannot be
// re-armed the way an epoll interest mask can.
func (r *windowsReactor) Modify(fd uintptr, dir Direction, userData uintptr) error {
	return nil
}

// Unregister is a no-op: IOCP offers no API to dissociate a handle short
// of closing it.
func (r *windowsReactor) Unregister(fd uintptr) error {
	return nil
}

// Wait blocks for one completion and fills events[0].
func (r *windowsReactor) Wait(events []Event, timeoutMs int) (int, error) {
	if len(events) == 0 {
		return 0, errors.New("reactor: empty event buffer")
	}

	var key uintptr
	var overlapped *windows.Overlapped
	timeout := uint32(windows.INFINITE)
	if timeoutMs >= 0 {
		timeout = uint32(timeoutMs)
	}

	err := windows.GetQueuedCompletionStatus(r.iocp, nil, &key, &overlapped, timeout)
	if err != nil {
		if err == windows.WAIT_TIMEOUT {
			return 0, nil
		}
		return 0, err
	}
	events[0] = Event{
		Fd:       uintptr(unsafe.Pointer(overlapped)),
		Dir:      Read,
		UserData: key,
	}
	return 1, nil
}

// Close closes the IOCP handle.
func (r *windowsReactor) Close() error {
	return windows.CloseHandle(r.iocp)
}
