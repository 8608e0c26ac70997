package micbench

import (
	"fmt"
)

// Pool is a fixed-capacity free list over a preallocated slot array. Free slot
// indices sit in a ring: Pop takes from head, Push appends at tail. Slots are reused,
// never reallocated, so their addresses stay stable for the pool's lifetime.
//
// Pool is not safe for concurrent use.
type Pool[T any] struct {
	slots []T
	ring  []int
	owned []bool
	head  int
	tail  int
	avail int
}

// NewPool allocates capacity slots. A seeded pool starts with every slot available,
// otherwise every slot starts owned by the caller and is handed in with Push.
func NewPool[T any](capacity int, seeded bool) *Pool[T] {
	if capacity < 1 {
		panic(fmt.Sprintf("micbench: pool capacity %d", capacity))
	}
	p := &Pool[T]{
		slots: make([]T, capacity),
		ring:  make([]int, capacity),
		owned: make([]bool, capacity),
	}
	for i := range p.owned {
		p.owned[i] = true
	}
	if seeded {
		for i := 0; i < capacity; i++ {
			_ = p.Push(i)
		}
	}
	return p
}

func (p *Pool[T]) Cap() int {
	return len(p.slots)
}

func (p *Pool[T]) Avail() int {
	return p.avail
}

// Slot returns the slot at idx regardless of its ownership.
func (p *Pool[T]) Slot(idx int) *T {
	return &p.slots[idx]
}

// Pop hands out one available slot. ok is false when the pool is empty.
func (p *Pool[T]) Pop() (idx int, slot *T, ok bool) {
	if p.avail == 0 {
		return -1, nil, false
	}
	idx = p.ring[p.head]
	p.head = (p.head + 1) % len(p.ring)
	p.avail--
	p.owned[idx] = true
	return idx, &p.slots[idx], true
}

// Push returns slot idx to the available set.
func (p *Pool[T]) Push(idx int) error {
	if p.avail == len(p.ring) {
		return ErrPoolFull
	}
	if idx < 0 || idx >= len(p.slots) || !p.owned[idx] {
		return fmt.Errorf("%w: %d", ErrNotOwned, idx)
	}
	p.ring[p.tail] = idx
	p.tail = (p.tail + 1) % len(p.ring)
	p.avail++
	p.owned[idx] = false
	return nil
}
