package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_File(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Level = "debug"
	cfg.FilePath = filepath.Join(t.TempDir(), "logs", "micbench.log")

	l, err := Setup(cfg)
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, l.GetLevel())

	l.Info().Str("worker", "0").Msg("hello")
	data, err := os.ReadFile(cfg.FilePath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
	assert.Contains(t, string(data), "worker")
}

func TestSetup_Level(t *testing.T) {
	l, err := Setup(Config{Level: "bogus"})
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, l.GetLevel())

	l, err = Setup(Config{Level: "error"})
	require.NoError(t, err)
	assert.Equal(t, zerolog.ErrorLevel, l.GetLevel())
}
