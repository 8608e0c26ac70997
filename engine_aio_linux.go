//go:build linux
// +build linux

package micbench

import (
	"fmt"
	"os"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	iocbCmdPread  = uint16(0)
	iocbCmdPwrite = uint16(1)
)

type (
	// https://github.com/torvalds/linux/blob/fcadab740480e0e0e9fa9bd272acd409884d431a/include/uapi/linux/aio_abi.h#L73
	aiocb struct {
		aioData uint64 // data to be returned in event's data

		// aio_key and aio_rw_flags, 32 bits each; order depends on endianness, both stay zero
		aioKey uint64

		aioOpcode    uint16 // Operation to be performed
		aioReqPrio   int16  // Request priority
		aioFields    uint32 // File descriptor
		aioBuf       uint64 // Location of buffer
		aioNbytes    uint64 // Length of transfer
		aioOffset    int64  // File offset
		aioReserved2 uint64 // reserved
		aioFlags     int32  // flags for the "struct iocb"
		aioResfd     uint32 // if the IOCB_FLAG_RESFD flag of "aio_flags" is set, this is an eventfd to signal AIO readiness to
	}

	aioEvent struct {
		data uint64 // the data field from the iocb
		obj  uint64 // what iocb this event came from
		res  int64  // result code for this event
		res2 int64  // secondary result
	}

	// cbRecord is the per-block submission record: the iocb for the classic engine and
	// the iovec the ring engine points its vectored opcodes at.
	cbRecord struct {
		iocb aiocb
		iov  unix.Iovec
	}

	aioEngine struct {
		ctx    uintptr
		iocbs  []*aiocb
		events []aioEvent
	}
)

func init() {
	if sz := unsafe.Sizeof(aiocb{}); sz != 64 {
		panic(fmt.Sprintf("aiocb size mismatch: expected 64, got %d", sz))
	}
	if sz := unsafe.Sizeof(aioEvent{}); sz != 32 {
		panic(fmt.Sprintf("io_event size mismatch: expected 32, got %d", sz))
	}
}

func newAioEngine(nrEvents int) (*aioEngine, error) {
	var ctx uintptr
	_, _, e1 := unix.Syscall(unix.SYS_IO_SETUP, uintptr(nrEvents), uintptr(unsafe.Pointer(&ctx)), 0)
	if e1 != 0 {
		return nil, os.NewSyscallError("io_setup", e1)
	}
	return &aioEngine{
		ctx:    ctx,
		iocbs:  make([]*aiocb, 0, nrEvents),
		events: make([]aioEvent, nrEvents),
	}, nil
}

func (e *aioEngine) prep(cb *ControlBlock) error {
	var op uint16
	switch cb.op {
	case OpRead:
		op = iocbCmdPread
	case OpWrite:
		op = iocbCmdPwrite
	default:
		return fmt.Errorf("unknown operation '%v'", cb.op)
	}
	cb.rec.iocb = aiocb{
		aioData:   uint64(cb.tag),
		aioOpcode: op,
		aioFields: uint32(cb.fd),
		aioBuf:    uint64(uintptr(unsafe.Pointer(&cb.buf[0]))),
		aioNbytes: uint64(cb.nbytes),
		aioOffset: cb.offset,
	}
	return nil
}

func (e *aioEngine) submit(batch []*ControlBlock) (int, error) {
	e.iocbs = e.iocbs[:0]
	for _, cb := range batch {
		e.iocbs = append(e.iocbs, &cb.rec.iocb)
	}
	for {
		n, _, e1 := unix.Syscall(unix.SYS_IO_SUBMIT, e.ctx, uintptr(len(e.iocbs)), uintptr(unsafe.Pointer(&e.iocbs[0])))
		if e1 == unix.EINTR {
			continue
		}
		if e1 != 0 {
			return 0, os.NewSyscallError("io_submit", e1)
		}
		if int(n) != len(batch) {
			return int(n), &PartialSubmitError{Requested: len(batch), Accepted: int(n)}
		}
		return int(n), nil
	}
}

func (e *aioEngine) wait(minNr, maxNr int, timeout time.Duration, out []completion) (int, error) {
	if maxNr > len(e.events) {
		maxNr = len(e.events)
	}
	var ts *unix.Timespec
	if timeout >= 0 {
		t := unix.NsecToTimespec(int64(timeout))
		ts = &t
	}
	for {
		n, _, e1 := unix.Syscall6(unix.SYS_IO_GETEVENTS, e.ctx, uintptr(minNr), uintptr(maxNr),
			uintptr(unsafe.Pointer(&e.events[0])), uintptr(unsafe.Pointer(ts)), 0)
		if e1 == unix.EINTR {
			if ts != nil {
				return 0, nil
			}
			continue
		}
		if e1 != 0 {
			return 0, os.NewSyscallError("io_getevents", e1)
		}
		for i := 0; i < int(n); i++ {
			out[i] = completion{
				tag: Tag(e.events[i].data),
				res: e.events[i].res,
			}
		}
		return int(n), nil
	}
}

func (e *aioEngine) close() error {
	_, _, e1 := unix.Syscall(unix.SYS_IO_DESTROY, e.ctx, 0, 0)
	if e1 != 0 {
		return os.NewSyscallError("io_destroy", e1)
	}
	return nil
}
