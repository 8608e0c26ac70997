package bench

import (
	"context"
	"encoding/binary"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"

	"github.com/ojaai/micbench"
	"github.com/ojaai/micbench/internal/config"
)

type worker struct {
	id     int
	opts   *config.Options
	log    zerolog.Logger
	files  []*micbench.File
	m      *micbench.Manager
	cur    cursor
	rng    *rand.Rand
	filled []bool
	nrPath int
	turn   int
}

// newWorker opens the worker's own descriptors. With rwmix every path is opened twice,
// the write descriptors following the read ones.
func newWorker(id int, opts *config.Options, cfg micbench.Config, seed uint64, log zerolog.Logger) (*worker, error) {
	w := &worker{
		id:     id,
		opts:   opts,
		log:    log.With().Int("worker", id).Logger(),
		rng:    rand.New(rand.NewPCG(seed, uint64(id))),
		filled: make([]bool, opts.NrEvents),
		nrPath: len(opts.Paths),
	}
	w.cur = newCursor(opts, id, w.rng)

	modes := []bool{opts.Write}
	if opts.RWMix > 0 {
		modes = []bool{false, true}
	}
	for _, write := range modes {
		for _, p := range opts.Paths {
			f, err := micbench.OpenFile(p, write, opts.Direct)
			if err != nil {
				w.closeFiles()
				return nil, err
			}
			w.files = append(w.files, f)
		}
	}

	cfg.Logger = w.log
	m, err := micbench.NewManager(cfg, opts.NrEvents, w.files)
	if err != nil {
		w.closeFiles()
		return nil, err
	}
	w.m = m
	return w, nil
}

func (w *worker) closeFiles() {
	for _, f := range w.files {
		_ = f.Close()
	}
	w.files = nil
}

func (w *worker) write() bool {
	switch {
	case w.opts.Write:
		return true
	case w.opts.RWMix > 0:
		return w.rng.Float64() < w.opts.RWMix
	}
	return false
}

func (w *worker) prep() error {
	path := w.turn % w.nrPath
	w.turn++
	offset := w.cur.next()*int64(w.opts.BlockBytes) + w.opts.Misalign

	if !w.write() {
		_, err := w.m.PrepPread(path, w.opts.BlockBytes, offset)
		return err
	}
	if w.opts.RWMix > 0 {
		path += w.nrPath
	}
	cb, err := w.m.PrepPwrite(path, w.opts.BlockBytes, offset)
	if err != nil {
		return err
	}
	// buffers stay with their block, so random content is written once per block
	if !w.filled[cb.Tag()] {
		fill(w.rng, cb.Buf())
		w.filled[cb.Tag()] = true
	}
	return nil
}

func fill(rng *rand.Rand, b []byte) {
	for len(b) >= 8 {
		binary.LittleEndian.PutUint64(b, rng.Uint64())
		b = b[8:]
	}
	for i := range b {
		b[i] = byte(rng.Uint32())
	}
}

// run keeps the queue full until the deadline or cancellation, then drains it.
func (w *worker) run(ctx context.Context, deadline time.Time, a config.Affinity) error {
	if err := pin(a); err != nil {
		w.log.Warn().Err(err).Int("core", a.Core).Msg("couldn't set core affinity")
	}
	if a.Set && a.Node >= 0 {
		w.log.Warn().Int("node", a.Node).Msg("memory node binding is not supported, ignored")
	}
	w.log.Debug().Time("deadline", deadline).Msg("worker started")

	for ctx.Err() == nil && time.Now().Before(deadline) {
		for w.m.NrSubmittable() > 0 {
			if err := w.prep(); err != nil {
				return err
			}
		}
		if _, err := w.m.Submit(); err != nil {
			return err
		}
		if _, err := w.m.Wait(micbench.Forever); err != nil {
			return err
		}
	}
	if _, err := w.m.WaitAll(); err != nil {
		return err
	}
	w.log.Debug().Int64("count", w.m.IOCount()).Dur("iowait", w.m.IOWait()).Msg("worker finished")
	return nil
}

func (w *worker) meter() meter {
	return meter{count: w.m.IOCount(), iowait: w.m.IOWait()}
}

// close drains whatever a failed run left inflight before releasing the manager.
func (w *worker) close() error {
	var err error
	if w.m.NrInflight() > 0 {
		_, err = w.m.WaitAll()
	}
	if cerr := w.m.Close(); err == nil {
		err = cerr
	}
	w.closeFiles()
	return err
}
