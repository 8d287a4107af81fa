// File: pool/slab.go
// Author: momentics <momentics@gmail.com>
//
// Slab is the single-threaded generalization of slabPool's size-class
// allocator: a free list backed by growable groups, with no atomics and no
// NUMA bookkeeping, for record types that are allocated and freed from one
// goroutine only (the driver's timer heap, in particular).

package pool

// Slab allocates and recycles values of T from growable groups rather than
// one at a time, amortizing the allocator the way slabPool amortizes
// buffer allocation for the async-IO path. The first group holds
// initialGroup elements; each subsequent group doubles, mirroring the
// 16/32/64... growth spec'd for the timer heap's record storage.
type Slab[T any] struct {
	newGroup    int
	free        []*T
}

// NewSlab creates an empty Slab whose first backing group holds
// initialGroup elements (minimum 1).
func NewSlab[T any](initialGroup int) *Slab[T] {
	if initialGroup < 1 {
		initialGroup = 1
	}
	return &Slab[T]{newGroup: initialGroup}
}

// Get returns a recycled value if one is free, otherwise grows the slab by
// its current group size (doubling it for next time) and returns a fresh
// one.
func (s *Slab[T]) Get() *T {
	if n := len(s.free); n > 0 {
		v := s.free[n-1]
		s.free = s.free[:n-1]
		return v
	}
	group := make([]T, s.newGroup)
	for i := 1; i < len(group); i++ {
		s.free = append(s.free, &group[i])
	}
	s.newGroup *= 2
	return &group[0]
}

// Put returns v to the slab's free list for reuse by a later Get.
func (s *Slab[T]) Put(v *T) {
	var zero T
	*v = zero
	s.free = append(s.free, v)
}
