//go:build linux
// +build linux

package micbench

import (
	"testing"
	"time"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAio(t *testing.T, nrEvents int) *aioEngine {
	t.Helper()
	e, err := newAioEngine(nrEvents)
	if unavailable(err) {
		t.Skipf("aio doesn't supported: %v", err)
	}
	require.NoError(t, err)
	t.Cleanup(func() { e.close() })
	return e
}

func TestAioEngine_Prep(t *testing.T) {
	e := newTestAio(t, 2)

	buf := make([]byte, 512)
	cb := &ControlBlock{buf: buf, tag: 1, op: OpWrite, fd: 9, nbytes: 100, offset: 2048}
	require.NoError(t, e.prep(cb))
	assert.Equal(t, uint64(1), cb.rec.iocb.aioData)
	assert.Equal(t, iocbCmdPwrite, cb.rec.iocb.aioOpcode)
	assert.Equal(t, uint32(9), cb.rec.iocb.aioFields)
	assert.Equal(t, uint64(uintptr(unsafe.Pointer(&buf[0]))), cb.rec.iocb.aioBuf)
	assert.Equal(t, uint64(100), cb.rec.iocb.aioNbytes)
	assert.Equal(t, int64(2048), cb.rec.iocb.aioOffset)

	cb.op = OpUnknown
	assert.Error(t, e.prep(cb))
}

func TestAioEngine_WaitEmpty(t *testing.T) {
	e := newTestAio(t, 2)

	out := make([]completion, 2)
	n, err := e.wait(1, 2, 0, out)
	assert.NoError(t, err)
	assert.Equal(t, 0, n)

	start := time.Now()
	n, err = e.wait(1, 2, 20*time.Millisecond, out)
	assert.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}
