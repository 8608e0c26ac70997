package micbench

import (
	"fmt"
	"time"
)

type (
	Op uint8

	State uint8

	// Tag identifies a control block in completions. It is the block's pool index and,
	// with registered buffers, its buffer index.
	Tag uint32

	// ControlBlock describes one operation from prepare to completion.
	ControlBlock struct {
		rec       cbRecord
		buf       []byte
		submitted time.Time
		offset    int64
		fd        int
		fileIndex int
		nbytes    int
		tag       Tag
		op        Op
		state     State
	}
)

const (
	OpUnknown Op = 0x0
	OpRead    Op = 0x1
	OpWrite   Op = 0x2
)

const (
	StateFree State = iota
	StatePending
	StateInflight
)

func (o Op) String() string {
	switch o {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	default:
		return fmt.Sprintf("op(%d)", uint8(o))
	}
}

func (s State) String() string {
	switch s {
	case StateFree:
		return "free"
	case StatePending:
		return "pending"
	case StateInflight:
		return "inflight"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

func (cb *ControlBlock) Tag() Tag {
	return cb.tag
}

func (cb *ControlBlock) State() State {
	return cb.state
}

func (cb *ControlBlock) Op() Op {
	return cb.op
}

func (cb *ControlBlock) FileIndex() int {
	return cb.fileIndex
}

func (cb *ControlBlock) Offset() int64 {
	return cb.offset
}

// Len is the requested byte count.
func (cb *ControlBlock) Len() int {
	return cb.nbytes
}

// Buf is the block's data for the requested length. It may only be written while the
// block is pending; once submitted the kernel owns it until the completion is reaped.
func (cb *ControlBlock) Buf() []byte {
	return cb.buf[:cb.nbytes]
}

func (cb *ControlBlock) SubmittedAt() time.Time {
	return cb.submitted
}

func (cb *ControlBlock) transition(from, to State) error {
	if cb.state != from {
		return fmt.Errorf("%w: block %d is %s, want %s", ErrBadState, cb.tag, cb.state, from)
	}
	cb.state = to
	return nil
}
