package bench

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ojaai/micbench/internal/config"
)

func patternOpts(p config.Pattern, multi int, start, end int64) *config.Options {
	opts := config.Default()
	opts.Pattern = p
	opts.Multi = multi
	opts.OffsetStart = start
	opts.OffsetEnd = end
	return &opts
}

func TestSeqCursor(t *testing.T) {
	opts := patternOpts(config.PatternSeq, 4, 10, 30)
	rng := rand.New(rand.NewPCG(1, 2))

	for id, first := range []int64{10, 15, 20, 25} {
		assert.Equal(t, first, newCursor(opts, id, rng).next(), "worker %d", id)
	}

	c := newCursor(opts, 3, rng)
	var got []int64
	for i := 0; i < 7; i++ {
		got = append(got, c.next())
	}
	assert.Equal(t, []int64{25, 26, 27, 28, 29, 10, 11}, got)
}

func TestStrideCursor(t *testing.T) {
	opts := patternOpts(config.PatternStride, 1, 0, 10)
	opts.Stride = 4
	c := newCursor(opts, 0, rand.New(rand.NewPCG(1, 2)))

	var got []int64
	for i := 0; i < 6; i++ {
		got = append(got, c.next())
	}
	assert.Equal(t, []int64{0, 4, 8, 2, 6, 0}, got)
}

func TestRandCursor(t *testing.T) {
	opts := patternOpts(config.PatternRand, 2, 100, 108)
	c := newCursor(opts, 1, rand.New(rand.NewPCG(1, 2)))

	seen := make(map[int64]bool)
	for i := 0; i < 1000; i++ {
		b := c.next()
		require.GreaterOrEqual(t, b, int64(100))
		require.Less(t, b, int64(108))
		seen[b] = true
	}
	assert.Len(t, seen, 8)
}

func TestFill(t *testing.T) {
	b := make([]byte, 8*16+3)
	fill(rand.New(rand.NewPCG(7, 7)), b)
	zeros := 0
	for _, v := range b {
		if v == 0 {
			zeros++
		}
	}
	assert.Less(t, zeros, 10)
}
