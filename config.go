package micbench

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

type Engine uint8

const (
	EngineUnknown Engine = iota
	EngineAio
	EngineIoUring
)

func (e Engine) String() string {
	switch e {
	case EngineAio:
		return "aio"
	case EngineIoUring:
		return "io_uring"
	default:
		return fmt.Sprintf("engine(%d)", uint8(e))
	}
}

// ParseEngine accepts "aio" (or "classic", "libaio") and "io_uring" (or "uring", "ring").
func ParseEngine(s string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "aio", "classic", "libaio":
		return EngineAio, nil
	case "io_uring", "iouring", "uring", "ring":
		return EngineIoUring, nil
	}
	return EngineUnknown, fmt.Errorf("%w: %q", ErrUnknownEngine, s)
}

func (e Engine) MarshalText() ([]byte, error) {
	if e != EngineAio && e != EngineIoUring {
		return nil, fmt.Errorf("%w: %d", ErrUnknownEngine, uint8(e))
	}
	return []byte(e.String()), nil
}

func (e *Engine) UnmarshalText(b []byte) error {
	v, err := ParseEngine(string(b))
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// Config is read-only once a Manager has been built from it.
type Config struct {
	Engine    Engine
	BlockSize int

	// FixedBuffers registers the block buffers with the ring, FixedFiles the descriptor table.
	FixedBuffers bool
	FixedFiles   bool

	// nil disables completion logging
	CompletionLog *CompletionLogger

	Logger zerolog.Logger
}

func (c Config) Validate() error {
	if c.Engine != EngineAio && c.Engine != EngineIoUring {
		return fmt.Errorf("%w: %d", ErrUnknownEngine, uint8(c.Engine))
	}
	if c.BlockSize < 1 {
		return fmt.Errorf("%w: %d", ErrBadBlockSize, c.BlockSize)
	}
	if c.Engine != EngineIoUring && (c.FixedBuffers || c.FixedFiles) {
		return ErrFixedNeedsRing
	}
	return nil
}
