package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		symbol string
		want   float64
	}{
		{"EURUSD", 0.0001},
		{"GBPUSD", 0.0001},
		{"USDJPY", 0.01},
		{"XAUUSD", 0.1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.symbol, func(t *testing.T) {
			t.Parallel()
			inst, ok := Find(tt.symbol)
			require.True(t, ok)
			assert.InDelta(t, tt.want, inst.PipSize(), 1e-12)
		})
	}
}

func TestPipValuePerLot(t *testing.T) {
	t.Parallel()

	eur, _ := Find("EURUSD")
	// 100000 units * 0.0001 pip * 1.0 rate = 10 account units per pip per lot.
	assert.InDelta(t, 10.0, eur.PipValuePerLot(1.0), 1e-9)

	gold, _ := Find("XAUUSD")
	// 100 oz * 0.1 pip * 1.0 rate = 10.
	assert.InDelta(t, 10.0, gold.PipValuePerLot(1.0), 1e-9)
}

func TestQuoteToAccountRate(t *testing.T) {
	t.Parallel()

	eur, _ := Find("EURUSD")
	rate, err := QuoteToAccountRate(eur, "USD", Tick{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, rate)

	jpy, _ := Find("USDJPY")
	tick := Tick{Symbol: "USDJPY", Time: time.Now(), Bid: 146.99, Ask: 147.01}
	rate, err = QuoteToAccountRate(jpy, "USD", tick)
	require.NoError(t, err)
	assert.InDelta(t, 1.0/147.0, rate, 1e-9)

	// JPY pip value at that rate: 100000 * 0.01 / 147 ≈ 6.80.
	assert.InDelta(t, 6.8027, jpy.PipValuePerLot(rate), 1e-3)

	_, err = QuoteToAccountRate(jpy, "EUR", tick)
	assert.Error(t, err)

	_, err = QuoteToAccountRate(jpy, "USD", Tick{}) // zero mid
	assert.Error(t, err)
}

func TestFindUnknown(t *testing.T) {
	t.Parallel()

	_, ok := Find("BTCUSD")
	assert.False(t, ok)
}

func TestParseTimeframe(t *testing.T) {
	t.Parallel()

	tf, err := ParseTimeframe("M1")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, tf.Duration())

	tf, err = ParseTimeframe("H4")
	require.NoError(t, err)
	assert.Equal(t, 4*time.Hour, tf.Duration())

	_, err = ParseTimeframe("M7")
	assert.Error(t, err)
}
