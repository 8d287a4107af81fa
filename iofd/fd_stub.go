//go:build !linux
// +build !linux

// File: iofd/fd_stub.go
// Author: momentics <momentics@gmail.com>

package iofd

import "github.com/momentics/evrt/api"

// Fd is unimplemented outside Linux: the raw-fd, non-blocking retry loop
// this package demonstrates is written directly against golang.org/x/sys/unix,
// which has no portable equivalent to fall back to here.
type Fd struct{}

func unsupported() error {
	return api.NewError(api.ErrCodeInternal, "iofd: unsupported platform")
}

// Open is unimplemented on this platform.
func Open(d interface{}, path string, flag int, perm uint32) (*Fd, error) { return nil, unsupported() }

// Socket is unimplemented on this platform.
func Socket(d interface{}, domain, typ, proto int) (*Fd, error) { return nil, unsupported() }
