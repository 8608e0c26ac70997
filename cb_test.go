package micbench

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestControlBlock_Transition(t *testing.T) {
	var cb ControlBlock
	assert.Equal(t, StateFree, cb.State())
	assert.NoError(t, cb.transition(StateFree, StatePending))
	assert.ErrorIs(t, cb.transition(StateFree, StatePending), ErrBadState)
	assert.Equal(t, StatePending, cb.State())
	assert.NoError(t, cb.transition(StatePending, StateInflight))
	assert.NoError(t, cb.transition(StateInflight, StateFree))
}

func TestControlBlock_Buf(t *testing.T) {
	cb := ControlBlock{buf: make([]byte, 512), nbytes: 100}
	assert.Len(t, cb.Buf(), 100)
	assert.Equal(t, 100, cb.Len())
}

func TestStringers(t *testing.T) {
	assert.Equal(t, "read", OpRead.String())
	assert.Equal(t, "write", OpWrite.String())
	assert.Equal(t, "inflight", StateInflight.String())
	assert.Equal(t, "aio", EngineAio.String())
	assert.Equal(t, "io_uring", EngineIoUring.String())
}
