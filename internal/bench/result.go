package bench

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ojaai/micbench/internal/config"
)

const mebi = 1024 * 1024

// Result summarises a run. IOWait is the mean over workers of their summed I/O latency.
type Result struct {
	Start        time.Time
	ExecTime     time.Duration
	IOWait       time.Duration
	Count        int64
	ResponseTime time.Duration
	IOPS         float64
	Bandwidth    float64 // bytes per second
}

type meter struct {
	count  int64
	iowait time.Duration
}

func summarize(exec time.Duration, blockSize int, meters []meter) Result {
	var iowait time.Duration
	r := Result{ExecTime: exec}
	for _, m := range meters {
		r.Count += m.count
		iowait += m.iowait
	}
	if len(meters) > 0 {
		r.IOWait = iowait / time.Duration(len(meters))
	}
	if r.Count > 0 {
		r.ResponseTime = iowait / time.Duration(r.Count)
	}
	if sec := exec.Seconds(); sec > 0 {
		r.IOPS = float64(r.Count) / sec
		r.Bandwidth = float64(r.Count) * float64(blockSize) / sec
	}
	return r
}

func (r Result) Print(w io.Writer) error {
	_, err := fmt.Fprintf(w, "== result ==\n"+
		"iops          %f [blocks/sec]\n"+
		"response_time %f [sec]\n"+
		"transfer_rate %f [MiB/sec]\n"+
		"accum_io_time %f [sec]\n",
		r.IOPS,
		r.ResponseTime.Seconds(),
		r.Bandwidth/mebi,
		r.IOWait.Seconds())
	return err
}

func PrintOptions(w io.Writer, opts *config.Options) error {
	affinity := opts.Affinity
	if affinity == "" {
		affinity = "none"
	}
	_, err := fmt.Fprintf(w, "== configuration summary ==\n"+
		"multiplicity    %d\n"+
		"device_or_file  %s\n"+
		"access_pattern  %s\n"+
		"access_mode     %s\n"+
		"direct_io       %s\n"+
		"thread_affinity %s\n"+
		"timeout         %d\n"+
		"block_size      %d\n"+
		"offset_start    %d\n"+
		"offset_end      %d\n"+
		"misalign        %d\n"+
		"aio_engine      %s\n"+
		"aio_nr_events   %d\n",
		opts.Multi,
		strings.Join(opts.Paths, ","),
		opts.Pattern,
		opts.Mode(),
		yesNo(opts.Direct),
		affinity,
		int(opts.Timeout.Seconds()),
		opts.BlockBytes,
		opts.OffsetStart,
		opts.OffsetEnd,
		opts.Misalign,
		opts.Engine,
		opts.NrEvents)
	return err
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
