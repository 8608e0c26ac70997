package bench

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ojaai/micbench/internal/config"
)

func TestWriteJSON_Params(t *testing.T) {
	opts := config.Default()
	opts.Paths = []string{"/tmp/target"}
	opts.BlockBytes = 4096
	opts.OffsetEnd = 8192

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, &opts, nil))

	var doc map[string]map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.NotContains(t, doc, "counters")
	assert.NotContains(t, doc, "metrics")

	params := doc["params"]
	assert.Equal(t, float64(1), params["threads"])
	assert.Equal(t, "read", params["mode"])
	assert.Equal(t, "sequential", params["pattern"])
	assert.Equal(t, float64(4096), params["blocksize_byte"])
	assert.Equal(t, float64(8192), params["offset_end_blk"])
	assert.Equal(t, "aio", params["engine"])
	assert.Equal(t, float64(64), params["aio_nr_events"])
	assert.Equal(t, float64(60), params["timeout_sec"])
	assert.Equal(t, []any{"/tmp/target"}, params["files"])
	assert.NotContains(t, params, "stride_blk")
}

func TestWriteJSON_Result(t *testing.T) {
	opts := config.Default()
	opts.Paths = []string{"a"}
	opts.RWMix = 0.5
	opts.Pattern, opts.Stride = config.PatternStride, 3
	opts.BlockBytes = 512

	r := summarize(2*time.Second, 512, []meter{{count: 1000, iowait: time.Second}})
	r.Start = time.UnixMicro(1_700_000_000_250_000)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, &opts, &r))

	var doc map[string]map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "mix", doc["params"]["mode"])
	assert.Equal(t, "stride", doc["params"]["pattern"])
	assert.Equal(t, float64(3), doc["params"]["stride_blk"])

	assert.Equal(t, float64(1000), doc["counters"]["io_count"])
	assert.Equal(t, float64(512000), doc["counters"]["io_bytes"])

	m := doc["metrics"]
	assert.InDelta(t, 1_700_000_000.25, m["start_time_unix"], 1e-3)
	assert.InDelta(t, 2.0, m["exec_time_sec"], 1e-9)
	assert.InDelta(t, 500.0, m["iops"], 1e-9)
	assert.InDelta(t, 500.0*512/mebi, m["transfer_rate_mbps"], 1e-9)
	assert.InDelta(t, 1.0, m["response_time_msec"], 1e-9)
	assert.InDelta(t, 1.0, m["accum_io_time_sec"], 1e-9)
}
