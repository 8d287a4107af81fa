// File: driver/fdtable.go
// Author: momentics <momentics@gmail.com>
//
// The fd readiness table: a sparse array of one-shot trigger events indexed
// by fd*2+direction, compiled into the kernel reactor's interest set.

package driver

import (
	"github.com/momentics/evrt/event"
	"github.com/momentics/evrt/reactor"
)

// fdTable owns the mapping from (fd, direction) to the event that should
// fire the next time fd becomes ready for that direction.
type fdTable struct {
	kernel       reactor.EventReactor
	cells        []event.Event0 // index = fd*2 + (0 for read, 1 for write)
	nfds         int            // one past the highest armed index, as of the last Trim
	registered   map[uintptr]bool
	growthFactor int // multiplier applied to capacity on each grow, live-reloadable
}

func newFdTable(kernel reactor.EventReactor, growthFactor int) *fdTable {
	t := &fdTable{kernel: kernel, registered: make(map[uintptr]bool)}
	t.setGrowthFactor(growthFactor)
	return t
}

// setGrowthFactor updates the multiplier applied on each grow, clamping
// below 2 since a factor of 1 or less would never let capacity catch up
// with a requested minimum.
func (t *fdTable) setGrowthFactor(factor int) {
	if factor < 2 {
		factor = 2
	}
	t.growthFactor = factor
}

func cellIndex(fd uintptr, dir reactor.Direction) int {
	if dir == reactor.Write {
		return int(fd)*2 + 1
	}
	return int(fd) * 2
}

func (t *fdTable) grow(min int) {
	if min <= len(t.cells) {
		return
	}
	n := len(t.cells)
	if n == 0 {
		n = t.growthFactor
	}
	for n < min {
		n *= t.growthFactor
	}
	grown := make([]event.Event0, n)
	copy(grown, t.cells)
	t.cells = grown
}

func (t *fdTable) armedDirections(fd uintptr) reactor.Direction {
	var dir reactor.Direction
	if r := cellIndex(fd, reactor.Read); r < len(t.cells) && t.cells[r].Live() {
		dir |= reactor.Read
	}
	if w := cellIndex(fd, reactor.Write); w < len(t.cells) && t.cells[w].Live() {
		dir |= reactor.Write
	}
	return dir
}

// At arms ev to fire the next time fd is ready for dir (Read or Write,
// never both at once: callers wanting both register two separate events).
// Replacing a cell that already held a live event cancels that event.
func (t *fdTable) At(fd uintptr, dir reactor.Direction, ev event.Event0) error {
	idx := cellIndex(fd, dir)
	t.grow(idx + 1)

	before := t.armedDirections(fd)
	if t.cells[idx].Live() {
		t.cells[idx].Cancel()
	}
	t.cells[idx] = ev
	if idx+1 > t.nfds {
		t.nfds = idx + 1
	}

	after := before | dir
	if !ev.Live() {
		after &^= dir
	}
	return t.sync(fd, before, after)
}

func (t *fdTable) sync(fd uintptr, before, after reactor.Direction) error {
	switch {
	case after == 0 && before != 0:
		delete(t.registered, fd)
		return t.kernel.Unregister(fd)
	case after != 0 && !t.registered[fd]:
		t.registered[fd] = true
		return t.kernel.Register(fd, after, fd)
	case after != before:
		return t.kernel.Modify(fd, after, fd)
	default:
		return nil
	}
}

// Trim drops trailing cells that hold no live event from the high-water
// mark, so a long-idle tail of the table does not keep nfds inflated.
func (t *fdTable) Trim() {
	for t.nfds > 0 && !t.cells[t.nfds-1].Live() {
		t.nfds--
	}
}

// Fire clears cell idx (it has just been reported ready by the kernel) and
// triggers the event it held, if any.
func (t *fdTable) Fire(fd uintptr, dir reactor.Direction) {
	idx := cellIndex(fd, dir)
	if idx >= len(t.cells) || !t.cells[idx].Live() {
		return
	}
	ev := t.cells[idx]
	t.cells[idx] = event.Event0{}

	other := dir ^ (reactor.Read | reactor.Write)
	before := dir
	if oidx := cellIndex(fd, other); oidx < len(t.cells) && t.cells[oidx].Live() {
		before |= other
	}
	after := before &^ dir

	ev.Trigger()
	_ = t.sync(fd, before, after)
}
