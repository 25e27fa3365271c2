package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSONToFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "fxscalp.log")
	log, err := New(Options{Level: "debug", File: path})
	require.NoError(t, err)

	log.Info("engine started", "symbol", "EURUSD", "bars", 120)
	log.Debug("tick", "bid", 1.0850)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `"msg":"engine started"`)
	assert.Contains(t, out, `"symbol":"EURUSD"`)
	assert.Contains(t, out, `"msg":"tick"`)
	assert.Contains(t, out, `"level":"debug"`)
}

func TestNewLevelFiltersDebug(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "fxscalp.log")
	log, err := New(Options{Level: "warn", File: path})
	require.NoError(t, err)

	log.Info("quiet")
	log.Warn("loud", "reason", "spread")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.NotContains(t, out, "quiet")
	assert.Contains(t, out, "loud")
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	t.Parallel()

	_, err := New(Options{Level: "verbose"})
	assert.Error(t, err)
}

func TestWithCarriesFields(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "fxscalp.log")
	log, err := New(Options{File: path})
	require.NoError(t, err)

	log.With("symbol", "GBPUSD").Info("evaluated")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"symbol":"GBPUSD"`)
}

func TestNewNopDiscards(t *testing.T) {
	t.Parallel()

	log := NewNop()
	log.Info("nothing to see")
	log.Error("still nothing")
	assert.NoError(t, log.Sync())
}
