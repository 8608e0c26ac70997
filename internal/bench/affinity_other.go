//go:build !linux
// +build !linux

package bench

import (
	"runtime"

	"github.com/ojaai/micbench/internal/config"
)

func pin(config.Affinity) error {
	runtime.LockOSThread()
	return nil
}
