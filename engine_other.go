//go:build !linux
// +build !linux

package micbench

import (
	"time"
)

type (
	cbRecord struct{}

	unsupportedEngine struct{}
)

func newAioEngine(int) (*unsupportedEngine, error) {
	return nil, ErrNotSupported
}

func newUringEngine(Config, int, *slab, []int) (*unsupportedEngine, error) {
	return nil, ErrNotSupported
}

func (unsupportedEngine) prep(*ControlBlock) error {
	return ErrNotSupported
}

func (unsupportedEngine) submit([]*ControlBlock) (int, error) {
	return 0, ErrNotSupported
}

func (unsupportedEngine) wait(int, int, time.Duration, []completion) (int, error) {
	return 0, ErrNotSupported
}

func (unsupportedEngine) close() error {
	return nil
}
