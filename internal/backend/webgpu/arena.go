package webgpu

import "fmt"

// Handle identifies a device buffer owned by a BufferStore. The zero Handle
// is never valid: generations start at 1.
type Handle struct {
	index      uint32
	generation uint32
}

// IsZero reports whether h is the zero Handle.
func (h Handle) IsZero() bool { return h.generation == 0 }

func (h Handle) String() string {
	return fmt.Sprintf("#%d.%d", h.index, h.generation)
}

type slot[T any] struct {
	generation uint32
	live       bool
	value      T
}

// arena is a generation-indexed slot table. Freed slots are reused with a
// bumped generation so stale handles never alias a newer value.
// It is not safe for concurrent use; BufferStore guards it with its mutex.
type arena[T any] struct {
	slots []slot[T]
	free  []uint32
	live  int
}

func (a *arena[T]) insert(v T) Handle {
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		s := &a.slots[idx]
		s.generation++
		if s.generation == 0 {
			s.generation = 1
		}
		s.live = true
		s.value = v
		a.live++
		return Handle{index: idx, generation: s.generation}
	}
	a.slots = append(a.slots, slot[T]{generation: 1, live: true, value: v})
	a.live++
	return Handle{index: uint32(len(a.slots) - 1), generation: 1}
}

func (a *arena[T]) get(h Handle) (T, bool) {
	var zero T
	if int(h.index) >= len(a.slots) {
		return zero, false
	}
	s := &a.slots[h.index]
	if !s.live || s.generation != h.generation {
		return zero, false
	}
	return s.value, true
}

func (a *arena[T]) remove(h Handle) (T, bool) {
	v, ok := a.get(h)
	if !ok {
		return v, false
	}
	s := &a.slots[h.index]
	var zero T
	s.value = zero
	s.live = false
	a.free = append(a.free, h.index)
	a.live--
	return v, true
}

func (a *arena[T]) len() int { return a.live }

// drain removes every live value and returns them.
func (a *arena[T]) drain() []T {
	out := make([]T, 0, a.live)
	for i := range a.slots {
		s := &a.slots[i]
		if !s.live {
			continue
		}
		out = append(out, s.value)
		var zero T
		s.value = zero
		s.live = false
		a.free = append(a.free, uint32(i))
	}
	a.live = 0
	return out
}
