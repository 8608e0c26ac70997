//go:build linux
// +build linux

package micbench

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	ioringOpReadv      = 1
	ioringOpWritev     = 2
	ioringOpReadFixed  = 4
	ioringOpWriteFixed = 5
)

const (
	ioringFeatSingleMmap = uint32(0x1)
	ioringEnterGetevents = uintptr(0x1)
	iosqeFixedFile       = uint8(0x1)
)

const (
	ioringRegisterBuffers = uintptr(0)
	ioringRegisterFiles   = uintptr(2)
	ioringMaxRegBuffers   = 1 << 14
)

const (
	ioringOffSqRing = int64(0x0)
	ioringOffCqRing = int64(0x8000000)
	ioringOffSqes   = int64(0x10000000)
)

var errFailedSq = errors.New("bad sync internal state with kernel ring state on the SQ side")
var errBadSize = errors.New("bad size of the queue")

type (
	sqe struct {
		opcode      uint8  /* type of operation for this sqe */
		flags       uint8  /* IOSQE_ flags */
		ioprio      uint16 /* ioprio for the request */
		fd          int32  /* file descriptor (or fixed file index) to do IO on */
		off         uint64 /* offset into file */
		addr        uint64 /* pointer to buffer or iovecs */
		len         uint32 /* buffer size or number of iovecs */
		rwFlags     uint32
		userData    uint64 /* data to be passed back at completion time */
		bufIndex    uint16 /* index into fixed buffers */
		personality uint16
		spliceFdIn  int32
		pad         [2]uint64
	}

	sQueue struct {
		khead        *uint32
		ktail        *uint32
		kringMask    *uint32
		kringEntries *uint32
		kflags       *uint32
		kdropped     *uint32
		array        []uint32
		sqes         []sqe
		sqeHead      uint32
		sqeTail      uint32
		ring         []byte
		sqesMem      []byte
	}

	// IO completion data structure (Completion Queue Entry)
	cqe struct {
		userData uint64
		res      int32
		flags    uint32
	}

	cQueue struct {
		khead        *uint32
		ktail        *uint32
		kringMask    *uint32
		kringEntries *uint32
		koverflow    *uint32
		cqes         []cqe
		ring         []byte
	}

	// offsets for mmap
	ioSqOffsets struct {
		head        uint32
		tail        uint32
		ringMask    uint32
		ringEntries uint32
		flags       uint32
		dropped     uint32
		array       uint32
		resv1       uint32
		resv2       uint64
	}

	ioCqOffsets struct {
		head        uint32
		tail        uint32
		ringMask    uint32
		ringEntries uint32
		overflow    uint32
		cqes        uint32
		resv        [2]uint64
	}

	ioParams struct {
		sqEntries    uint32
		cqEntries    uint32
		flags        uint32
		sqThreadCpu  uint32
		sqThreadIdle uint32
		features     uint32
		resv         [4]uint32
		sqOff        ioSqOffsets
		cqOff        ioCqOffsets
	}

	ring struct {
		sq       sQueue
		cq       cQueue
		flags    uint32
		ringFd   int
		features uint32
	}

	uringEngine struct {
		r            ring
		fixedBuffers bool
		fixedFiles   bool
	}
)

func init() {
	if sz := unsafe.Sizeof(sqe{}); sz != 64 {
		panic(fmt.Sprintf("io_uring sqe size mismatch: expected 64, got %d", sz))
	}
	if sz := unsafe.Sizeof(cqe{}); sz != 16 {
		panic(fmt.Sprintf("io_uring cqe size mismatch: expected 16, got %d", sz))
	}
	if sz := unsafe.Sizeof(ioParams{}); sz != 120 {
		panic(fmt.Sprintf("io_uring params size mismatch: expected 120, got %d", sz))
	}
}

func roundPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func newUringEngine(cfg Config, nrEvents int, s *slab, fds []int) (*uringEngine, error) {
	if cfg.FixedBuffers && nrEvents > ioringMaxRegBuffers {
		return nil, fmt.Errorf("%w: %d fixed buffers, max %d", errBadSize, nrEvents, ioringMaxRegBuffers)
	}
	e := &uringEngine{
		fixedBuffers: cfg.FixedBuffers,
		fixedFiles:   cfg.FixedFiles,
	}
	if err := setup(uint32(roundPow2(nrEvents)), &e.r, 0); err != nil {
		return nil, err
	}
	if cfg.FixedBuffers {
		iovecs := make([]unix.Iovec, s.n)
		for i := range iovecs {
			b := s.buffer(i)
			iovecs[i].Base = &b[0]
			iovecs[i].SetLen(len(b))
		}
		if err := register(e.r.ringFd, ioringRegisterBuffers, unsafe.Pointer(&iovecs[0]), len(iovecs)); err != nil {
			e.r.unmap()
			return nil, err
		}
	}
	if cfg.FixedFiles {
		files := make([]int32, len(fds))
		for i, fd := range fds {
			files[i] = int32(fd)
		}
		if err := register(e.r.ringFd, ioringRegisterFiles, unsafe.Pointer(&files[0]), len(files)); err != nil {
			e.r.unmap()
			return nil, err
		}
	}
	return e, nil
}

func register(ringFd int, opcode uintptr, arg unsafe.Pointer, n int) error {
	_, _, e1 := unix.Syscall6(unix.SYS_IO_URING_REGISTER, uintptr(ringFd), opcode, uintptr(arg), uintptr(n), 0, 0)
	if e1 != 0 {
		return os.NewSyscallError("io_uring_register", e1)
	}
	return nil
}

func (r *ring) unmap() {
	if r.sq.sqesMem != nil {
		_ = unix.Munmap(r.sq.sqesMem)
		r.sq.sqesMem = nil
	}
	if r.cq.ring != nil && unsafe.SliceData(r.cq.ring) != unsafe.SliceData(r.sq.ring) {
		_ = unix.Munmap(r.cq.ring)
	}
	r.cq.ring = nil
	if r.sq.ring != nil {
		_ = unix.Munmap(r.sq.ring)
		r.sq.ring = nil
	}
	if r.ringFd > 0 {
		_ = unix.Close(r.ringFd)
		r.ringFd = -1
	}
}

func mmapRing(fd int, off int64, sz int) ([]byte, error) {
	b, err := unix.Mmap(fd, off, sz, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
	if err != nil {
		return nil, os.NewSyscallError("mmap", err)
	}
	return b, nil
}

func setup(entries uint32, r *ring, flags uint32) error {
	if entries == 0 || (entries&(entries-1)) != 0 {
		return errBadSize
	}

	p := ioParams{flags: flags}
	r1, _, e := unix.Syscall(unix.SYS_IO_URING_SETUP, uintptr(entries), uintptr(unsafe.Pointer(&p)), 0)
	if e != 0 {
		if e == unix.ENOSYS {
			return ErrNotSupported
		}
		return os.NewSyscallError("io_uring_setup", e)
	}

	r.ringFd = int(r1)
	r.flags = p.flags
	r.features = p.features
	sqSz := int(p.sqOff.array + p.sqEntries*uint32(unsafe.Sizeof(uint32(0))))
	cqSz := int(p.cqOff.cqes + p.cqEntries*uint32(unsafe.Sizeof(cqe{})))
	if p.features&ioringFeatSingleMmap != 0 && cqSz > sqSz {
		sqSz = cqSz
	}

	var err error
	if r.sq.ring, err = mmapRing(r.ringFd, ioringOffSqRing, sqSz); err != nil {
		r.unmap()
		return err
	}
	if p.features&ioringFeatSingleMmap != 0 {
		r.cq.ring = r.sq.ring
	} else if r.cq.ring, err = mmapRing(r.ringFd, ioringOffCqRing, cqSz); err != nil {
		r.unmap()
		return err
	}
	if r.sq.sqesMem, err = mmapRing(r.ringFd, ioringOffSqes, int(p.sqEntries)*int(unsafe.Sizeof(sqe{}))); err != nil {
		r.unmap()
		return err
	}

	sq := &r.sq
	sq.khead = (*uint32)(unsafe.Pointer(&sq.ring[p.sqOff.head]))
	sq.ktail = (*uint32)(unsafe.Pointer(&sq.ring[p.sqOff.tail]))
	sq.kringMask = (*uint32)(unsafe.Pointer(&sq.ring[p.sqOff.ringMask]))
	sq.kringEntries = (*uint32)(unsafe.Pointer(&sq.ring[p.sqOff.ringEntries]))
	sq.kflags = (*uint32)(unsafe.Pointer(&sq.ring[p.sqOff.flags]))
	sq.kdropped = (*uint32)(unsafe.Pointer(&sq.ring[p.sqOff.dropped]))
	sq.array = unsafe.Slice((*uint32)(unsafe.Pointer(&sq.ring[p.sqOff.array])), p.sqEntries)
	sq.sqes = unsafe.Slice((*sqe)(unsafe.Pointer(&sq.sqesMem[0])), p.sqEntries)

	cq := &r.cq
	cq.khead = (*uint32)(unsafe.Pointer(&cq.ring[p.cqOff.head]))
	cq.ktail = (*uint32)(unsafe.Pointer(&cq.ring[p.cqOff.tail]))
	cq.kringMask = (*uint32)(unsafe.Pointer(&cq.ring[p.cqOff.ringMask]))
	cq.kringEntries = (*uint32)(unsafe.Pointer(&cq.ring[p.cqOff.ringEntries]))
	cq.koverflow = (*uint32)(unsafe.Pointer(&cq.ring[p.cqOff.overflow]))
	cq.cqes = unsafe.Slice((*cqe)(unsafe.Pointer(&cq.ring[p.cqOff.cqes])), p.cqEntries)

	return nil
}

func getSqe(r *ring) *sqe {
	sq := &r.sq
	head := atomic.LoadUint32(sq.khead)
	next := sq.sqeTail + 1
	var s *sqe
	if next-head <= *sq.kringEntries {
		s = &sq.sqes[sq.sqeTail&*sq.kringMask]
		sq.sqeTail = next
	}
	return s
}

func rw(op uint8, ioSqe *sqe, fd int32, addr unsafe.Pointer, userData uint64, len uint32, offset int64) bool {
	switch op {
	case ioringOpReadv, ioringOpWritev, ioringOpReadFixed, ioringOpWriteFixed:
	default:
		return false
	}
	if ioSqe == nil || addr == nil {
		return false
	}
	*ioSqe = sqe{
		opcode:   op,
		fd:       fd,
		off:      uint64(offset),
		addr:     uint64(uintptr(addr)),
		len:      len,
		userData: userData,
	}
	return true
}

// flushSq publishes locally queued sqes to the kernel and returns how many it has yet to consume.
func flushSq(r *ring) int {
	sq := &r.sq
	mask := *sq.kringMask
	ktail := *sq.ktail
	toSubmit := sq.sqeTail - sq.sqeHead
	for ; toSubmit > 0; toSubmit-- {
		sq.array[ktail&mask] = sq.sqeHead & mask
		ktail++
		sq.sqeHead++
	}
	atomic.StoreUint32(sq.ktail, ktail)
	return int(ktail - atomic.LoadUint32(sq.khead))
}

func (e *uringEngine) prep(cb *ControlBlock) error {
	if cb.op != OpRead && cb.op != OpWrite {
		return fmt.Errorf("unknown operation '%v'", cb.op)
	}
	var op uint8
	var addr unsafe.Pointer
	var n uint32
	if e.fixedBuffers {
		op = ioringOpReadFixed
		if cb.op == OpWrite {
			op = ioringOpWriteFixed
		}
		addr, n = unsafe.Pointer(&cb.buf[0]), uint32(cb.nbytes)
	} else {
		op = ioringOpReadv
		if cb.op == OpWrite {
			op = ioringOpWritev
		}
		cb.rec.iov = unix.Iovec{Base: &cb.buf[0]}
		cb.rec.iov.SetLen(cb.nbytes)
		addr, n = unsafe.Pointer(&cb.rec.iov), 1
	}

	fd := int32(cb.fd)
	if e.fixedFiles {
		fd = int32(cb.fileIndex)
	}
	s := getSqe(&e.r)
	if !rw(op, s, fd, addr, uint64(cb.tag), n, cb.offset) {
		return errFailedSq
	}
	if e.fixedFiles {
		s.flags |= iosqeFixedFile
	}
	if e.fixedBuffers {
		s.bufIndex = uint16(cb.tag)
	}
	return nil
}

func (e *uringEngine) enter(toSubmit, minComplete int, flags uintptr) (int, error) {
	for {
		n, _, e1 := unix.Syscall6(unix.SYS_IO_URING_ENTER, uintptr(e.r.ringFd), uintptr(toSubmit), uintptr(minComplete), flags, 0, 0)
		if e1 == unix.EINTR {
			continue
		}
		if e1 != 0 {
			return 0, os.NewSyscallError("io_uring_enter", e1)
		}
		return int(n), nil
	}
}

func (e *uringEngine) submit(batch []*ControlBlock) (int, error) {
	toSubmit := flushSq(&e.r)
	if toSubmit != len(batch) {
		return 0, errFailedSq
	}
	n, err := e.enter(toSubmit, 0, 0)
	if err != nil {
		return 0, err
	}
	if n != len(batch) {
		return n, &PartialSubmitError{Requested: len(batch), Accepted: n}
	}
	return n, nil
}

func (e *uringEngine) reap(out []completion) int {
	cq := &e.r.cq
	head := atomic.LoadUint32(cq.khead)
	tail := atomic.LoadUint32(cq.ktail)
	mask := *cq.kringMask
	n := 0
	for ; head != tail && n < len(out); head++ {
		c := &cq.cqes[head&mask]
		out[n] = completion{
			tag: Tag(c.userData),
			res: int64(c.res),
		}
		n++
	}
	atomic.StoreUint32(cq.khead, head)
	return n
}

func (e *uringEngine) wait(minNr, maxNr int, timeout time.Duration, out []completion) (int, error) {
	out = out[:maxNr]
	got := e.reap(out)
	deadline := time.Now().Add(timeout)
	for got < minNr {
		if timeout < 0 {
			if _, err := e.enter(0, minNr-got, ioringEnterGetevents); err != nil {
				return got, err
			}
		} else {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				break
			}
			ms := int((remaining + time.Millisecond - 1) / time.Millisecond)
			fds := []unix.PollFd{{Fd: int32(e.r.ringFd), Events: unix.POLLIN}}
			if _, err := unix.Poll(fds, ms); err != nil && err != unix.EINTR {
				return got, os.NewSyscallError("poll", err)
			}
		}
		got += e.reap(out[got:])
	}
	return got, nil
}

func (e *uringEngine) close() error {
	e.r.unmap()
	return nil
}
