package micbench

import (
	"os"
)

type File struct {
	fd   *os.File
	path string
	size int64
}

// OpenFile opens a benchmark target read-only, or write-only when write is set.
// direct requests unbuffered I/O where the platform has it.
func OpenFile(path string, write, direct bool) (*File, error) {
	flag := os.O_RDONLY
	if write {
		flag = os.O_WRONLY
	}
	return openFile(path, flag, direct)
}

func (f *File) Fd() int {
	return int(f.fd.Fd())
}

func (f *File) Path() string {
	return f.path
}

// Size is the target's size in bytes, sampled at open.
func (f *File) Size() int64 {
	return f.size
}

func (f *File) Close() error {
	return f.fd.Close()
}

// SizeOf reports the size of a regular file or block device without keeping it open.
func SizeOf(path string) (int64, error) {
	f, err := openFile(path, os.O_RDONLY, false)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return f.size, nil
}
