package bench

import (
	"math/rand/v2"

	"github.com/ojaai/micbench/internal/config"
)

// cursor yields the next block number to access, always in [start, end).
type cursor interface {
	next() int64
}

type (
	seqCursor struct {
		start, end, cur int64
	}

	strideCursor struct {
		start, end, cur, stride int64
	}

	randCursor struct {
		start, end int64
		rng        *rand.Rand
	}
)

// newCursor positions worker id of multi. Sequential and stride workers start evenly
// spread across the range so concurrent streams don't overlap at first.
func newCursor(opts *config.Options, id int, rng *rand.Rand) cursor {
	start, end := opts.OffsetStart, opts.OffsetEnd
	first := start + (end-start)*int64(id)/int64(opts.Multi)
	switch opts.Pattern {
	case config.PatternRand:
		return &randCursor{start: start, end: end, rng: rng}
	case config.PatternStride:
		return &strideCursor{start: start, end: end, cur: first, stride: opts.Stride}
	default:
		return &seqCursor{start: start, end: end, cur: first}
	}
}

func (c *seqCursor) next() int64 {
	blk := c.cur
	c.cur++
	if c.cur >= c.end {
		c.cur = c.start
	}
	return blk
}

func (c *strideCursor) next() int64 {
	blk := c.cur
	c.cur += c.stride
	if c.cur >= c.end {
		c.cur = c.start + (c.cur-c.start)%(c.end-c.start)
	}
	return blk
}

func (c *randCursor) next() int64 {
	return c.start + c.rng.Int64N(c.end-c.start)
}
