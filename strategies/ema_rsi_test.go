package strategies

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxscalp/indicators"
	"fxscalp/market"
)

var testInst = market.Instruments["EURUSD"]

// mkBars builds minute bars from closes with small symmetric wicks.
func mkBars(closes ...float64) []market.Candle {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	bars := make([]market.Candle, len(closes))
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		bars[i] = market.Candle{
			Symbol: "EURUSD",
			Time:   start.Add(time.Duration(i) * time.Minute),
			Open:   open,
			High:   maxf(open, c) + 0.3,
			Low:    minf(open, c) - 0.3,
			Close:  c,
			Volume: 100,
		}
	}
	return bars
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func tinyCfg() Config {
	return Config{FastPeriod: 2, SlowPeriod: 3, OscPeriod: 3, Overbought: 70, Oversold: 30}
}

func TestEMARSIBullCross(t *testing.T) {
	t.Parallel()

	s := NewEMARSI(tinyCfg())

	// Fast EMA crosses above slow on the last bar; RSI(3) lands near 55,
	// well under the overbought line.
	sig, err := s.GenerateSignal(mkBars(10, 8, 6, 5, 9), testInst)
	require.NoError(t, err)

	assert.Equal(t, Buy, sig.Direction)
	assert.Equal(t, "EURUSD", sig.Symbol)
	assert.Greater(t, sig.Confidence, 0.0)
	assert.LessOrEqual(t, sig.Confidence, 100.0)
	assert.Equal(t, 1.0, sig.Context["bull_cross"])
	assert.Less(t, sig.Context["oscillator"], 70.0)
	assert.Equal(t, 9.0, sig.Price)
}

func TestEMARSISellCross(t *testing.T) {
	t.Parallel()

	s := NewEMARSI(tinyCfg())

	// Fast EMA collapses through slow; RSI(3) ends just above oversold.
	sig, err := s.GenerateSignal(mkBars(5, 8, 10, 11, 2), testInst)
	require.NoError(t, err)

	assert.Equal(t, Sell, sig.Direction)
	assert.Equal(t, 1.0, sig.Context["bear_cross"])
	assert.Greater(t, sig.Context["oscillator"], 30.0)
}

func TestEMARSICrossFromEqualIsVetoedWhenOverbought(t *testing.T) {
	t.Parallel()

	s := NewEMARSI(tinyCfg())

	// EMAs equal at t-1 (flat closes), fast pulls ahead at t. The cross
	// must be detected, but the all-gain oscillator reads 100 and the
	// overbought veto keeps it a HOLD.
	sig, err := s.GenerateSignal(mkBars(5, 5, 5, 5, 8), testInst)
	require.NoError(t, err)

	assert.Equal(t, Hold, sig.Direction)
	assert.Equal(t, 1.0, sig.Context["bull_cross"])
	assert.Equal(t, 100.0, sig.Context["oscillator"])
	assert.Contains(t, sig.Reason, "overbought")
	assert.Zero(t, sig.Confidence)
}

func TestEMARSINoRepeatWithoutFreshCross(t *testing.T) {
	t.Parallel()

	s := NewEMARSI(tinyCfg())

	// Fast is already above slow on both of the last two bars.
	sig, err := s.GenerateSignal(mkBars(10, 8, 6, 5, 9, 9.5), testInst)
	require.NoError(t, err)

	assert.Equal(t, Hold, sig.Direction)
	assert.Equal(t, "no crossover", sig.Reason)
}

func TestEMARSIInsufficientData(t *testing.T) {
	t.Parallel()

	s := NewEMARSI(tinyCfg())
	require.Equal(t, 5, s.Warmup())

	_, err := s.GenerateSignal(mkBars(10, 8, 6), testInst)
	assert.ErrorIs(t, err, indicators.ErrInsufficientData)
}

func TestEMARSISingleIndicatorPointHolds(t *testing.T) {
	t.Parallel()

	s := NewEMARSI(tinyCfg())

	// Exactly the indicator warmup: one state, no previous, HOLD with
	// the reason spelled out.
	sig, err := s.GenerateSignal(mkBars(10, 8, 6, 5), testInst)
	require.NoError(t, err)

	assert.Equal(t, Hold, sig.Direction)
	assert.Zero(t, sig.Confidence)
	assert.NotEmpty(t, sig.Reason)
	assert.Equal(t, 4.0, sig.Context["bars"])
}

func TestEMARSIDeterministic(t *testing.T) {
	t.Parallel()

	s := NewEMARSI(tinyCfg())
	bars := mkBars(10, 8, 6, 5, 9)

	first, err := s.GenerateSignal(bars, testInst)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := s.GenerateSignal(bars, testInst)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestConfidenceMonotonicAndBounded(t *testing.T) {
	t.Parallel()

	// Larger separation (same oscillator, same ATR) never lowers the score.
	low := confidence(0.5, 60, 1.0)
	high := confidence(2.0, 60, 1.0)
	assert.Greater(t, high, low)

	// Oscillator further from the midpoint never lowers the score.
	near := confidence(1.0, 55, 1.0)
	far := confidence(1.0, 80, 1.0)
	assert.Greater(t, far, near)

	// Zero ATR saturates the separation term instead of dividing by zero.
	assert.InDelta(t, 50.0, confidence(1.0, 50, 0), 1e-12)

	for _, diff := range []float64{0, 0.1, 1, 10, 1000} {
		for _, osc := range []float64{0, 25, 50, 75, 100} {
			for _, atr := range []float64{0, 0.5, 2} {
				c := confidence(diff, osc, atr)
				assert.GreaterOrEqual(t, c, 0.0)
				assert.LessOrEqual(t, c, 100.0)
			}
		}
	}
}
