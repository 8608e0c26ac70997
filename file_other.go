//go:build !linux
// +build !linux

package micbench

import (
	"os"
)

func openFile(path string, flag int, _ bool) (*File, error) {
	fd, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, err
	}
	st, err := fd.Stat()
	if err != nil {
		fd.Close()
		return nil, err
	}
	return &File{
		fd:   fd,
		path: path,
		size: st.Size(),
	}, nil
}
