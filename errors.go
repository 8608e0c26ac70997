package micbench

import (
	"errors"
	"fmt"
)

var ErrPoolFull = errors.New("pool is full")
var ErrNotOwned = errors.New("slot is not owned")
var ErrNoFreeBlocks = errors.New("no free control blocks")
var ErrBadState = errors.New("illegal control block state transition")
var ErrBadFileIndex = errors.New("file index out of range")
var ErrBadLength = errors.New("length exceeds block buffer")
var ErrUnknownTag = errors.New("completion for unknown control block")
var ErrInflight = errors.New("operations still inflight")
var ErrClosed = errors.New("manager is closed")
var ErrUnknownEngine = errors.New("unknown aio engine")
var ErrBadBlockSize = errors.New("bad block size")
var ErrFixedNeedsRing = errors.New("fixed buffers and files need the io_uring engine")
var ErrNotSupported = errors.New("not supported")
var ErrNoFiles = errors.New("no files")
var ErrBadCapacity = errors.New("bad number of events")

// ShortIOError reports a completion whose result differs from the requested byte count.
// A negative Result is the kernel errno.
type ShortIOError struct {
	Op        Op
	Tag       Tag
	Requested int
	Result    int64
}

func (e *ShortIOError) Error() string {
	return fmt.Sprintf("short %s on block %d: requested %d, result %d", e.Op, e.Tag, e.Requested, e.Result)
}

// PartialSubmitError reports a batch the kernel accepted only part of.
type PartialSubmitError struct {
	Requested int
	Accepted  int
}

func (e *PartialSubmitError) Error() string {
	return fmt.Sprintf("partial submission: requested %d, accepted %d", e.Requested, e.Accepted)
}
