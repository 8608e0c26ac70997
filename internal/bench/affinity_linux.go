//go:build linux
// +build linux

package bench

import (
	"os"
	"runtime"

	"golang.org/x/sys/unix"

	"github.com/ojaai/micbench/internal/config"
)

// pin locks the calling goroutine to its thread and binds that thread to a core.
// The thread is never unlocked, so it exits with the goroutine.
func pin(a config.Affinity) error {
	runtime.LockOSThread()
	if !a.Set {
		return nil
	}
	var set unix.CPUSet
	set.Zero()
	set.Set(a.Core)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return os.NewSyscallError("sched_setaffinity", err)
	}
	return nil
}
