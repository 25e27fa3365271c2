package strategies

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	t.Parallel()

	names := Names()
	assert.Contains(t, names, "ema_rsi")
	assert.Contains(t, names, "scalper")
	assert.Contains(t, names, "noop")

	s, err := New("EMA_RSI", Config{}) // case-insensitive
	require.NoError(t, err)
	assert.Equal(t, "ema_rsi", s.Name())

	_, err = New("martingale", Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown strategy")
}

func TestConfigDefaults(t *testing.T) {
	t.Parallel()

	c := Config{}.withDefaults()
	assert.Equal(t, 12, c.FastPeriod)
	assert.Equal(t, 26, c.SlowPeriod)
	assert.Equal(t, 14, c.OscPeriod)
	assert.Equal(t, 70.0, c.Overbought)
	assert.Equal(t, 30.0, c.Oversold)
	assert.NotZero(t, c.SignalCooldown)

	// Explicit values survive.
	c = Config{FastPeriod: 5, Overbought: 80}.withDefaults()
	assert.Equal(t, 5, c.FastPeriod)
	assert.Equal(t, 80.0, c.Overbought)
}

func TestNoopAlwaysHolds(t *testing.T) {
	t.Parallel()

	s, err := New("noop", Config{})
	require.NoError(t, err)

	sig, err := s.GenerateSignal(mkBars(1, 2, 3), testInst)
	require.NoError(t, err)
	assert.Equal(t, Hold, sig.Direction)
	assert.Zero(t, sig.Confidence)
	assert.False(t, sig.Actionable())
}
