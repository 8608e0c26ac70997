//go:build linux
// +build linux

package micbench

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

type testMode struct {
	name string
	cfg  Config
}

func steps() []testMode {
	return []testMode{
		{name: "aio", cfg: Config{Engine: EngineAio, BlockSize: 512}},
		{name: "io_uring", cfg: Config{Engine: EngineIoUring, BlockSize: 512}},
		{name: "io_uring/fixed_buffers", cfg: Config{Engine: EngineIoUring, BlockSize: 512, FixedBuffers: true}},
		{name: "io_uring/fixed_files", cfg: Config{Engine: EngineIoUring, BlockSize: 512, FixedFiles: true}},
		{name: "io_uring/fixed", cfg: Config{Engine: EngineIoUring, BlockSize: 512, FixedBuffers: true, FixedFiles: true}},
	}
}

// unavailable reports errors a sandboxed or old kernel answers with when the backend
// itself can not be used.
func unavailable(err error) bool {
	for _, target := range []error{ErrNotSupported, unix.ENOSYS, unix.EPERM, unix.EACCES, unix.ENOMEM, unix.EAGAIN} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func prepare(t *testing.T, x testMode, nrEvents int, files ...*File) *Manager {
	t.Helper()
	m, err := NewManager(x.cfg, nrEvents, files)
	if unavailable(err) {
		t.Skipf("%s doesn't supported: %v", x.name, err)
	}
	require.NoError(t, err)
	return m
}

func pattern(i int) byte {
	return byte(i%251 + i/4096)
}

// fixture creates a file of size bytes filled with pattern.
func fixture(t *testing.T, size int) string {
	t.Helper()
	data := make([]byte, size)
	for i := range data {
		data[i] = pattern(i)
	}
	path := filepath.Join(t.TempDir(), "target")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func openFixture(t *testing.T, path string, write bool) *File {
	t.Helper()
	f, err := OpenFile(path, write, false)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}
