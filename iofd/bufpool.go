//go:build linux
// +build linux

// File: iofd/bufpool.go
// Author: momentics <momentics@gmail.com>
//
// Read buffers recycled across calls via a shared sync.Pool wrapper,
// avoiding one allocation per Read for the common case of a caller that
// does not want to manage its own buffer.

package iofd

import (
	"github.com/momentics/evrt/event"
	"github.com/momentics/evrt/pool"
)

// readBufSize is the capacity of buffers drawn from bufferPool.
const readBufSize = 4096

var bufferPool = pool.NewSyncPool(func() []byte { return make([]byte, readBufSize) })

// ReadPooled behaves like Read but draws its buffer from a shared pool
// instead of requiring the caller to supply one. The returned release
// func must be called once the caller is done reading buf's contents,
// typically from within the returned event's SetAtTriggerFunc callback,
// to return the buffer to the pool.
func (f *Fd) ReadPooled() (buf []byte, ev event.Event1[int], n *int, release func()) {
	buf = bufferPool.Get()
	ev, n = f.Read(buf)
	release = func() { bufferPool.Put(buf) }
	return buf, ev, n, release
}
