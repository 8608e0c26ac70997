package micbench

import (
	"os"
)

// slab is one contiguous region carved into equally sized block buffers. Every buffer
// starts on a page boundary, which satisfies O_DIRECT and buffer registration alike.
type slab struct {
	mem    []byte
	stride int
	size   int
	n      int
}

func slabStride(blockSize int) int {
	page := os.Getpagesize()
	return (blockSize + page - 1) / page * page
}

func newSlab(n, blockSize int) (*slab, error) {
	stride := slabStride(blockSize)
	mem, err := allocSlab(n * stride)
	if err != nil {
		return nil, err
	}
	return &slab{
		mem:    mem,
		stride: stride,
		size:   blockSize,
		n:      n,
	}, nil
}

func (s *slab) buffer(i int) []byte {
	off := i * s.stride
	return s.mem[off : off+s.size : off+s.size]
}

func (s *slab) release() error {
	if s.mem == nil {
		return nil
	}
	err := freeSlab(s.mem)
	s.mem = nil
	return err
}
