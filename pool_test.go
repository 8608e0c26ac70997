package micbench

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPool(t *testing.T) {
	p := NewPool[int](8, true)
	assert.Equal(t, 8, p.Cap())
	assert.Equal(t, 8, p.Avail())

	p = NewPool[int](8, false)
	assert.Equal(t, 8, p.Cap())
	assert.Equal(t, 0, p.Avail())
	_, _, ok := p.Pop()
	assert.False(t, ok)

	for i := 0; i < 8; i++ {
		assert.NoError(t, p.Push(i))
	}
	assert.Equal(t, 8, p.Avail())

	assert.Panics(t, func() { NewPool[int](0, true) })
}

func TestPool_PopEmpty(t *testing.T) {
	p := NewPool[int](2, true)
	_, _, ok := p.Pop()
	assert.True(t, ok)
	_, _, ok = p.Pop()
	assert.True(t, ok)
	idx, slot, ok := p.Pop()
	assert.False(t, ok)
	assert.Equal(t, -1, idx)
	assert.Nil(t, slot)
	assert.Equal(t, 0, p.Avail())
}

func TestPool_PushFull(t *testing.T) {
	p := NewPool[int](4, true)
	assert.ErrorIs(t, p.Push(0), ErrPoolFull)
	assert.Equal(t, 4, p.Avail())
}

func TestPool_PushNotOwned(t *testing.T) {
	p := NewPool[int](4, true)
	idx, _, ok := p.Pop()
	require.True(t, ok)

	// another slot is still available, pushing it again is a double free
	other := (idx + 1) % 4
	assert.ErrorIs(t, p.Push(other), ErrNotOwned)
	assert.ErrorIs(t, p.Push(-1), ErrNotOwned)
	assert.ErrorIs(t, p.Push(4), ErrNotOwned)
	assert.Equal(t, 3, p.Avail())

	assert.NoError(t, p.Push(idx))
	assert.ErrorIs(t, p.Push(idx), ErrPoolFull)
}

func TestPool_RoundTrip(t *testing.T) {
	p := NewPool[int](1, true)
	idx, slot, ok := p.Pop()
	require.True(t, ok)
	*slot = 42
	assert.NoError(t, p.Push(idx))
	assert.Equal(t, 1, p.Avail())

	idx2, slot2, ok := p.Pop()
	require.True(t, ok)
	assert.Equal(t, idx, idx2)
	assert.Equal(t, 42, *slot2)
	assert.Same(t, slot, slot2)
}

func TestPool_Conservation(t *testing.T) {
	const capacity = 16
	p := NewPool[int](capacity, true)
	r := rand.New(rand.NewSource(1))
	var owned []int
	pops, pushes := 0, 0
	seen := make(map[int]bool)

	for i := 0; i < 10000; i++ {
		if r.Intn(2) == 0 {
			idx, _, ok := p.Pop()
			if len(owned) == capacity {
				assert.False(t, ok)
				continue
			}
			require.True(t, ok)
			assert.False(t, seen[idx], "slot %d handed out twice", idx)
			seen[idx] = true
			owned = append(owned, idx)
			pops++
		} else {
			if len(owned) == 0 {
				assert.Error(t, p.Push(0))
				continue
			}
			j := r.Intn(len(owned))
			idx := owned[j]
			owned = append(owned[:j], owned[j+1:]...)
			require.NoError(t, p.Push(idx))
			delete(seen, idx)
			pushes++
		}
		assert.Equal(t, capacity-(pops-pushes), p.Avail())
		assert.GreaterOrEqual(t, p.Avail(), 0)
		assert.LessOrEqual(t, p.Avail(), capacity)
	}
}
