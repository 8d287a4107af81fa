//go:build linux
// +build linux

// File: reactor/reactor_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll(7)-based reactor implementation and factory.

package reactor

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// linuxReactor is an epoll-based event reactor.
type linuxReactor struct {
	epfd int
}

// NewReactor constructs a new platform-specific EventReactor for Linux.
func NewReactor() (EventReactor, error) {
	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		return nil, err
	}
	return &linuxReactor{epfd: epfd}, nil
}

func epollMask(dir Direction) uint32 {
	var m uint32
	if dir&Read != 0 {
		m |= unix.EPOLLIN
	}
	if dir&Write != 0 {
		m |= unix.EPOLLOUT
	}
	return m
}

func toEpollEvent(dir Direction, userData uintptr, fd uintptr) unix.EpollEvent {
	ev := unix.EpollEvent{Events: epollMask(dir), Fd: int32(fd)}
	*(*uintptr)(unsafe.Pointer(&ev.Pad)) = userData
	return ev
}

// Register arms fd for dir.
func (r *linuxReactor) Register(fd uintptr, dir Direction, userData uintptr) error {
	ev := toEpollEvent(dir, userData, fd)
	return unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, int(fd), &ev)
}

// Modify replaces the armed direction(s) for fd. epoll's MOD op is a full
// replace, not a merge, so callers must pass the complete desired mask.
func (r *linuxReactor) Modify(fd uintptr, dir Direction, userData uintptr) error {
	ev := toEpollEvent(dir, userData, fd)
	return unix.EpollCtl(r.epfd, unix.EPOLL_CTL_MOD, int(fd), &ev)
}

// Unregister removes fd from the kernel readiness set.
func (r *linuxReactor) Unregister(fd uintptr) error {
	return unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, int(fd), nil)
}

// Wait waits for epoll events and fills the result into events slice.
func (r *linuxReactor) Wait(events []Event, timeoutMs int) (int, error) {
	rawEvents := make([]unix.EpollEvent, len(events))
	n, err := unix.EpollWait(r.epfd, rawEvents, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}
	for i := 0; i < n; i++ {
		var dir Direction
		if rawEvents[i].Events&(unix.EPOLLIN|unix.EPOLLERR|unix.EPOLLHUP) != 0 {
			dir |= Read
		}
		if rawEvents[i].Events&(unix.EPOLLOUT|unix.EPOLLERR|unix.EPOLLHUP) != 0 {
			dir |= Write
		}
		events[i] = Event{
			Fd:       uintptr(rawEvents[i].Fd),
			Dir:      dir,
			UserData: *(*uintptr)(unsafe.Pointer(&rawEvents[i].Pad)),
		}
	}
	return n, nil
}

// Close closes the epoll instance.
func (r *linuxReactor) Close() error {
	return unix.Close(r.epfd)
}
