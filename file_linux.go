//go:build linux
// +build linux

package micbench

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

func openFile(path string, flag int, direct bool) (*File, error) {
	if direct {
		flag |= unix.O_DIRECT
	}
	fd, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, err
	}
	size, err := fileSize(fd)
	if err != nil {
		fd.Close()
		return nil, err
	}
	return &File{
		fd:   fd,
		path: path,
		size: size,
	}, nil
}

func fileSize(fd *os.File) (int64, error) {
	st, err := fd.Stat()
	if err != nil {
		return 0, err
	}
	if st.Mode()&os.ModeDevice == 0 || st.Mode()&os.ModeCharDevice != 0 {
		return st.Size(), nil
	}
	var sz uint64
	_, _, e1 := unix.Syscall(unix.SYS_IOCTL, fd.Fd(), unix.BLKGETSIZE64, uintptr(unsafe.Pointer(&sz)))
	if e1 != 0 {
		return 0, os.NewSyscallError("ioctl BLKGETSIZE64", e1)
	}
	return int64(sz), nil
}
