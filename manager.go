package micbench

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Manager issues batches of reads and writes through one kernel backend and recycles
// their control blocks on completion. A block goes free -> pending (PrepPread/PrepPwrite)
// -> inflight (Submit) -> free (Wait/WaitAll).
//
// A Manager belongs to a single goroutine; it does no locking. The files passed to
// NewManager stay owned by the caller and must outlive the Manager.
type Manager struct {
	cfg         Config
	log         zerolog.Logger
	pool        *Pool[ControlBlock]
	slab        *slab
	eng         engine
	files       []*File
	pending     []*ControlBlock
	completions []completion
	nrEvents    int
	nrInflight  int
	iocount     int64
	iowait      time.Duration
	closed      bool
}

// NewManager builds a manager able to hold nrEvents operations against files.
// Every block gets a page aligned buffer of cfg.BlockSize bytes.
func NewManager(cfg Config, nrEvents int, files []*File) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if nrEvents < 1 {
		return nil, fmt.Errorf("%w: %d", ErrBadCapacity, nrEvents)
	}
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	s, err := newSlab(nrEvents, cfg.BlockSize)
	if err != nil {
		return nil, err
	}
	fds := make([]int, len(files))
	for i, f := range files {
		fds[i] = f.Fd()
	}
	eng, err := newEngine(cfg, nrEvents, s, fds)
	if err != nil {
		_ = s.release()
		return nil, err
	}

	m := newManager(cfg, nrEvents, files, s, eng)
	m.log.Debug().
		Int("nr_events", nrEvents).
		Int("block_size", cfg.BlockSize).
		Int("files", len(files)).
		Bool("fixed_buffers", cfg.FixedBuffers).
		Bool("fixed_files", cfg.FixedFiles).
		Msg("aio manager ready")
	return m, nil
}

func newManager(cfg Config, nrEvents int, files []*File, s *slab, eng engine) *Manager {
	m := &Manager{
		cfg:         cfg,
		log:         cfg.Logger.With().Str("engine", cfg.Engine.String()).Logger(),
		pool:        NewPool[ControlBlock](nrEvents, true),
		slab:        s,
		eng:         eng,
		files:       files,
		pending:     make([]*ControlBlock, 0, nrEvents),
		completions: make([]completion, nrEvents),
		nrEvents:    nrEvents,
	}
	for i := 0; i < nrEvents; i++ {
		cb := m.pool.Slot(i)
		cb.tag = Tag(i)
		cb.buf = s.buffer(i)
	}
	return m
}

func (m *Manager) NrEvents() int {
	return m.nrEvents
}

func (m *Manager) NrPending() int {
	return len(m.pending)
}

func (m *Manager) NrInflight() int {
	return m.nrInflight
}

// NrSubmittable is how many more operations may be prepared right now.
func (m *Manager) NrSubmittable() int {
	return m.pool.Avail()
}

// IOCount is the number of operations completed so far.
func (m *Manager) IOCount() int64 {
	return m.iocount
}

// IOWait is the summed submit-to-completion latency of all completed operations.
func (m *Manager) IOWait() time.Duration {
	return m.iowait
}

func (m *Manager) PrepPread(fileIndex, count int, offset int64) (*ControlBlock, error) {
	return m.prep(OpRead, fileIndex, count, offset)
}

// PrepPwrite stages a write of count bytes. The returned block's Buf may be filled until
// Submit is called.
func (m *Manager) PrepPwrite(fileIndex, count int, offset int64) (*ControlBlock, error) {
	return m.prep(OpWrite, fileIndex, count, offset)
}

func (m *Manager) prep(op Op, fileIndex, count int, offset int64) (*ControlBlock, error) {
	if m.closed {
		return nil, ErrClosed
	}
	if fileIndex < 0 || fileIndex >= len(m.files) {
		return nil, fmt.Errorf("%w: %d", ErrBadFileIndex, fileIndex)
	}
	if count < 1 || count > m.cfg.BlockSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrBadLength, count, m.cfg.BlockSize)
	}
	idx, cb, ok := m.pool.Pop()
	if !ok {
		return nil, ErrNoFreeBlocks
	}
	if err := cb.transition(StateFree, StatePending); err != nil {
		_ = m.pool.Push(idx)
		return nil, err
	}
	cb.op = op
	cb.fileIndex = fileIndex
	cb.fd = m.files[fileIndex].Fd()
	cb.nbytes = count
	cb.offset = offset
	cb.submitted = time.Now()
	if err := m.eng.prep(cb); err != nil {
		cb.state = StateFree
		_ = m.pool.Push(idx)
		return nil, err
	}
	m.pending = append(m.pending, cb)
	return cb, nil
}

// Submit hands every pending block to the kernel in prepare order. With nothing pending
// it does nothing. Blocks the kernel did not accept stay pending and the returned error
// is a *PartialSubmitError.
func (m *Manager) Submit() (int, error) {
	if m.closed {
		return 0, ErrClosed
	}
	if len(m.pending) == 0 {
		return 0, nil
	}
	n, err := m.eng.submit(m.pending)
	now := time.Now()
	for _, cb := range m.pending[:n] {
		cb.submitted = now
		cb.state = StateInflight
	}
	m.nrInflight += n
	rest := copy(m.pending, m.pending[n:])
	m.pending = m.pending[:rest]
	if err != nil {
		m.log.Error().Err(err).Int("accepted", n).Int("pending", rest).Msg("submit failed")
		return n, err
	}
	return n, nil
}

// Wait reaps at least one and at most NrInflight completions. A negative timeout
// (Forever) blocks, zero polls. With nothing inflight it returns immediately.
//
// Every reaped block is recycled even when its result is short; the first
// *ShortIOError is returned after the whole batch has been accounted.
func (m *Manager) Wait(timeout time.Duration) (int, error) {
	if m.closed {
		return 0, ErrClosed
	}
	if m.nrInflight == 0 {
		return 0, nil
	}
	return m.reap(1, m.nrInflight, timeout)
}

// WaitAll blocks until nothing is inflight. Short results do not stop the drain.
func (m *Manager) WaitAll() (int, error) {
	if m.closed {
		return 0, ErrClosed
	}
	var total int
	var first error
	for m.nrInflight > 0 {
		n, err := m.reap(m.nrInflight, m.nrInflight, Forever)
		total += n
		if err != nil {
			var short *ShortIOError
			if !errors.As(err, &short) {
				return total, err
			}
			if first == nil {
				first = err
			}
		}
	}
	return total, first
}

func (m *Manager) reap(minNr, maxNr int, timeout time.Duration) (int, error) {
	n, err := m.eng.wait(minNr, maxNr, timeout, m.completions)
	now := time.Now()
	var first error
	for _, c := range m.completions[:n] {
		if cerr := m.complete(c, now); cerr != nil && first == nil {
			first = cerr
		}
	}
	if err != nil {
		return n, err
	}
	return n, first
}

func (m *Manager) complete(c completion, now time.Time) error {
	if int(c.tag) >= m.pool.Cap() || m.pool.Slot(int(c.tag)).state != StateInflight {
		m.log.Error().Uint32("tag", uint32(c.tag)).Int64("res", c.res).Msg("completion for unknown block")
		return fmt.Errorf("%w: %d", ErrUnknownTag, c.tag)
	}
	cb := m.pool.Slot(int(c.tag))
	lat := now.Sub(cb.submitted)

	var err error
	if c.res != int64(cb.nbytes) {
		err = &ShortIOError{Op: cb.op, Tag: cb.tag, Requested: cb.nbytes, Result: c.res}
		m.log.Error().
			Str("op", cb.op.String()).
			Str("path", m.files[cb.fileIndex].Path()).
			Int64("offset", cb.offset).
			Int("requested", cb.nbytes).
			Int64("result", c.res).
			Msg("short io")
	} else {
		m.cfg.CompletionLog.Log(CompletionRecord{
			Submitted: cb.submitted,
			Completed: now,
			Path:      m.files[cb.fileIndex].Path(),
			Offset:    cb.offset,
			Size:      cb.nbytes,
		})
	}

	cb.state = StateFree
	if perr := m.pool.Push(int(cb.tag)); perr != nil && err == nil {
		err = perr
	}
	m.nrInflight--
	m.iocount++
	m.iowait += lat
	return err
}

// Close releases the kernel context and the buffers. It fails with ErrInflight while
// any operation is still owned by the kernel; call WaitAll first. Pending blocks that
// were never submitted are discarded.
func (m *Manager) Close() error {
	if m.closed {
		return nil
	}
	if m.nrInflight > 0 {
		return fmt.Errorf("%w: %d", ErrInflight, m.nrInflight)
	}
	for _, cb := range m.pending {
		cb.state = StateFree
		_ = m.pool.Push(int(cb.tag))
	}
	m.pending = m.pending[:0]
	m.closed = true
	err := m.eng.close()
	if serr := m.slab.release(); err == nil {
		err = serr
	}
	m.log.Debug().Int64("iocount", m.iocount).Dur("iowait", m.iowait).Msg("aio manager closed")
	return err
}
