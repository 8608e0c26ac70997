package bench

import (
	"encoding/json"
	"io"

	"github.com/ojaai/micbench/internal/config"
)

type (
	jsonReport struct {
		Params   jsonParams    `json:"params"`
		Counters *jsonCounters `json:"counters,omitempty"`
		Metrics  *jsonMetrics  `json:"metrics,omitempty"`
	}

	jsonParams struct {
		Threads     int      `json:"threads"`
		Mode        string   `json:"mode"`
		RWMix       float64  `json:"rwmix,omitempty"`
		Pattern     string   `json:"pattern"`
		Stride      int64    `json:"stride_blk,omitempty"`
		BlockSize   int      `json:"blocksize_byte"`
		OffsetStart int64    `json:"offset_start_blk"`
		OffsetEnd   int64    `json:"offset_end_blk"`
		Misalign    int64    `json:"misalign_byte"`
		Direct      bool     `json:"direct"`
		Engine      string   `json:"engine"`
		NrEvents    int      `json:"aio_nr_events"`
		TimeoutSec  int      `json:"timeout_sec"`
		Files       []string `json:"files"`
	}

	jsonCounters struct {
		IOCount int64 `json:"io_count"`
		IOBytes int64 `json:"io_bytes"`
	}

	jsonMetrics struct {
		StartTimeUnix    float64 `json:"start_time_unix"`
		ExecTimeSec      float64 `json:"exec_time_sec"`
		IOPS             float64 `json:"iops"`
		TransferRateMBps float64 `json:"transfer_rate_mbps"`
		ResponseTimeMsec float64 `json:"response_time_msec"`
		AccumIOTimeSec   float64 `json:"accum_io_time_sec"`
	}
)

// WriteJSON writes the run parameters and, when r is not nil, its counters and metrics
// as one indented JSON document.
func WriteJSON(w io.Writer, opts *config.Options, r *Result) error {
	mode := "read"
	switch {
	case opts.Write:
		mode = "write"
	case opts.RWMix > 0:
		mode = "mix"
	}
	rep := jsonReport{
		Params: jsonParams{
			Threads:     opts.Multi,
			Mode:        mode,
			RWMix:       opts.RWMix,
			Pattern:     opts.Pattern.String(),
			BlockSize:   opts.BlockBytes,
			OffsetStart: opts.OffsetStart,
			OffsetEnd:   opts.OffsetEnd,
			Misalign:    opts.Misalign,
			Direct:      opts.Direct,
			Engine:      opts.Engine.String(),
			NrEvents:    opts.NrEvents,
			TimeoutSec:  int(opts.Timeout.Seconds()),
			Files:       opts.Paths,
		},
	}
	if opts.Pattern == config.PatternStride {
		rep.Params.Stride = opts.Stride
	}
	if r != nil {
		rep.Counters = &jsonCounters{
			IOCount: r.Count,
			IOBytes: r.Count * int64(opts.BlockBytes),
		}
		rep.Metrics = &jsonMetrics{
			StartTimeUnix:    float64(r.Start.UnixMicro()) / 1e6,
			ExecTimeSec:      r.ExecTime.Seconds(),
			IOPS:             r.IOPS,
			TransferRateMBps: r.Bandwidth / mebi,
			ResponseTimeMsec: r.ResponseTime.Seconds() * 1e3,
			AccumIOTimeSec:   r.IOWait.Seconds(),
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}
