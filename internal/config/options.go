// Package config holds the benchmark options and their validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ojaai/micbench"
)

var ErrNoPath = errors.New("device or file is not specified")
var ErrBadSize = errors.New("invalid size specifier")
var ErrBadAffinity = errors.New("invalid thread affinity assignment")
var ErrOffsetRange = errors.New("offset out of range")
var ErrDirectAlign = errors.New("direct I/O needs a block size that is a multiple of 512")
var ErrRWMix = errors.New("invalid read/write mix")
var ErrBadPattern = errors.New("invalid access pattern")
var ErrBadValue = errors.New("invalid option value")

type Pattern string

const (
	PatternSeq    Pattern = "seq"
	PatternRand   Pattern = "rand"
	PatternStride Pattern = "stride"
)

// Options configures one benchmark run. Offsets are in blocks.
type Options struct {
	Multi     int           `yaml:"multi"`
	Timeout   time.Duration `yaml:"timeout"`
	Pattern   Pattern       `yaml:"pattern"`
	Stride    int64         `yaml:"stride"`
	Write     bool          `yaml:"write"`
	RWMix     float64       `yaml:"rwmix"`
	Direct    bool          `yaml:"direct"`
	BlockSize string        `yaml:"block_size"`

	OffsetStart int64 `yaml:"offset_start"`
	OffsetEnd   int64 `yaml:"offset_end"`
	Misalign    int64 `yaml:"misalign"`

	Engine       micbench.Engine `yaml:"engine"`
	NrEvents     int             `yaml:"nr_events"`
	FixedBuffers bool            `yaml:"fixed_buffers"`
	FixedFiles   bool            `yaml:"fixed_files"`

	Affinity      string   `yaml:"affinity"`
	CompletionLog string   `yaml:"completion_log"`
	Paths         []string `yaml:"paths"`

	Verbose bool `yaml:"verbose"`
	JSON    bool `yaml:"json"`
	Noop    bool `yaml:"-"`

	// set by Resolve
	BlockBytes int        `yaml:"-"`
	Affinities []Affinity `yaml:"-"`
}

func Default() Options {
	return Options{
		Multi:     1,
		Timeout:   60 * time.Second,
		Pattern:   PatternSeq,
		Stride:    1,
		BlockSize: "64k",
		Engine:    micbench.EngineAio,
		NrEvents:  64,
	}
}

// Load reads a yaml file over the defaults.
func Load(path string) (Options, error) {
	opts := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, err
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("%s: %w", path, err)
	}
	return opts, nil
}

func (p Pattern) String() string {
	switch p {
	case PatternSeq:
		return "sequential"
	case PatternRand:
		return "random"
	case PatternStride:
		return "stride"
	}
	return string(p)
}

// Mode is the access mode as printed in the configuration summary.
func (o *Options) Mode() string {
	switch {
	case o.Write:
		return "write"
	case o.RWMix > 0:
		return fmt.Sprintf("mix(%.2f)", o.RWMix)
	default:
		return "read"
	}
}

// Resolve validates the options and fills in BlockBytes, Affinities and a zero OffsetEnd.
// sizeOf reports the size in bytes of a path; the smallest target bounds the offsets.
func (o *Options) Resolve(sizeOf func(string) (int64, error)) error {
	if len(o.Paths) == 0 {
		return ErrNoPath
	}
	if o.Multi < 1 {
		return fmt.Errorf("%w: multi %d", ErrBadValue, o.Multi)
	}
	if o.Timeout <= 0 {
		return fmt.Errorf("%w: timeout %s", ErrBadValue, o.Timeout)
	}
	if o.NrEvents < 1 {
		return fmt.Errorf("%w: nr_events %d", ErrBadValue, o.NrEvents)
	}
	switch o.Pattern {
	case PatternSeq, PatternRand:
	case PatternStride:
		if o.Stride < 1 {
			return fmt.Errorf("%w: stride %d", ErrBadPattern, o.Stride)
		}
	default:
		return fmt.Errorf("%w: %q", ErrBadPattern, o.Pattern)
	}
	if o.RWMix < 0 || o.RWMix > 1 {
		return fmt.Errorf("%w: %v not in [0,1]", ErrRWMix, o.RWMix)
	}
	if o.RWMix > 0 && o.Write {
		return fmt.Errorf("%w: write and rwmix are exclusive", ErrRWMix)
	}
	if o.Misalign < 0 {
		return fmt.Errorf("%w: misalign %d", ErrBadValue, o.Misalign)
	}
	if o.Engine != micbench.EngineIoUring && (o.FixedBuffers || o.FixedFiles) {
		return micbench.ErrFixedNeedsRing
	}

	bs, err := ParseSize(o.BlockSize)
	if err != nil {
		return err
	}
	if bs > 1<<30 {
		return fmt.Errorf("%w: block size %d", ErrBadSize, bs)
	}
	o.BlockBytes = int(bs)
	if o.Direct && o.BlockBytes%512 != 0 {
		return fmt.Errorf("%w: %d", ErrDirectAlign, o.BlockBytes)
	}

	size := int64(-1)
	for _, p := range o.Paths {
		sz, err := sizeOf(p)
		if err != nil {
			return err
		}
		if size < 0 || sz < size {
			size = sz
		}
	}
	blk := int64(o.BlockBytes)
	if o.OffsetStart < 0 || blk*o.OffsetStart > size {
		return fmt.Errorf("%w: too big offset start, maximum %d", ErrOffsetRange, size/blk)
	}
	if o.OffsetEnd < 0 || blk*o.OffsetEnd > size {
		return fmt.Errorf("%w: too big offset end, maximum %d", ErrOffsetRange, size/blk)
	}
	if o.OffsetEnd == 0 {
		o.OffsetEnd = size / blk
	}
	// the last block must fit once shifted by misalign
	if blk*o.OffsetEnd+o.Misalign > size {
		o.OffsetEnd = (size - o.Misalign) / blk
	}
	if o.OffsetEnd <= o.OffsetStart {
		return fmt.Errorf("%w: empty range [%d,%d)", ErrOffsetRange, o.OffsetStart, o.OffsetEnd)
	}

	o.Affinities = nil
	if strings.TrimSpace(o.Affinity) != "" {
		if o.Affinities, err = ParseAffinity(o.Multi, o.Affinity); err != nil {
			return err
		}
	}
	return nil
}

// Manager is the per worker engine configuration.
func (o *Options) Manager() micbench.Config {
	return micbench.Config{
		Engine:       o.Engine,
		BlockSize:    o.BlockBytes,
		FixedBuffers: o.FixedBuffers,
		FixedFiles:   o.FixedFiles,
	}
}
