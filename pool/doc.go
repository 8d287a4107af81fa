// Package pool provides small allocation helpers: a generic sync.Pool
// wrapper for cross-goroutine reuse, and a slab-style free list for record
// types that are only ever touched from the driver's own goroutine.
// Author: momentics <momentics@gmail.com>
package pool
