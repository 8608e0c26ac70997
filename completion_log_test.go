package micbench

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompletionLogger_Log(t *testing.T) {
	var buf bytes.Buffer
	l := NewCompletionLogger(&buf)

	t0 := time.UnixMicro(1_000_000_000)
	l.Log(CompletionRecord{
		Submitted: t0,
		Completed: t0.Add(1500 * time.Microsecond),
		Path:      "/dev/sdb",
		Offset:    4096,
		Size:      512,
	})
	l.Log(CompletionRecord{
		Submitted: t0.Add(2 * time.Millisecond),
		Completed: t0.Add(3 * time.Millisecond),
		Path:      "/dev/sdc",
		Offset:    0,
		Size:      512,
	})
	require.NoError(t, l.Flush())

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "1000000000\t1000001500\t0\t0.001500\t/dev/sdb\t4096\t512", lines[0])
	assert.Equal(t, "1000002000\t1000003000\t2000\t0.001000\t/dev/sdc\t0\t512", lines[1])
}

func TestCompletionLogger_Nil(t *testing.T) {
	var l *CompletionLogger
	l.Log(CompletionRecord{Submitted: time.Now(), Completed: time.Now()})
	assert.NoError(t, l.Flush())
	assert.NoError(t, l.Err())
	assert.NoError(t, l.Close())
}

func TestCreateCompletionLog_Truncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.log")
	require.NoError(t, os.WriteFile(path, []byte("stale\nstale\n"), 0644))

	l, err := CreateCompletionLog(path)
	require.NoError(t, err)
	now := time.Now()
	l.Log(CompletionRecord{Submitted: now, Completed: now, Path: "f", Offset: 1, Size: 2})
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "\n"))
	assert.NotContains(t, string(data), "stale")
	assert.True(t, strings.HasSuffix(string(data), "\tf\t1\t2\n"))
}
