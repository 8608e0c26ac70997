package micbench

import (
	"time"
)

// Forever makes Wait block until a completion arrives.
const Forever time.Duration = -1

type (
	completion struct {
		tag Tag
		res int64
	}

	// engine is the kernel-facing half of a Manager: prep stages one block, submit
	// hands a batch to the kernel, wait reaps between minNr and maxNr completions.
	engine interface {
		prep(cb *ControlBlock) error
		submit(batch []*ControlBlock) (int, error)
		wait(minNr, maxNr int, timeout time.Duration, out []completion) (int, error)
		close() error
	}
)

func newEngine(cfg Config, nrEvents int, s *slab, fds []int) (engine, error) {
	switch cfg.Engine {
	case EngineAio:
		e, err := newAioEngine(nrEvents)
		if err != nil {
			return nil, err
		}
		return e, nil
	case EngineIoUring:
		e, err := newUringEngine(cfg, nrEvents, s, fds)
		if err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, ErrUnknownEngine
	}
}
