package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func bar(close float64) Candle {
	return Candle{Symbol: "EURUSD", Time: time.Unix(int64(close*100), 0).UTC(), Close: close}
}

func TestSeriesEvictsOldest(t *testing.T) {
	t.Parallel()

	s := NewSeries(3)
	for _, c := range []float64{1, 2, 3, 4, 5} {
		s.Append(bar(c))
	}

	assert.Equal(t, 3, s.Len())
	got := s.Bars()
	assert.Equal(t, 3.0, got[0].Close)
	assert.Equal(t, 5.0, got[2].Close)

	last, ok := s.Last()
	assert.True(t, ok)
	assert.Equal(t, 5.0, last.Close)
}

func TestSeriesBarsIsACopy(t *testing.T) {
	t.Parallel()

	s := NewSeries(4)
	s.Append(bar(1.10))
	s.Append(bar(1.11))

	got := s.Bars()
	got[0].Close = 99

	fresh := s.Bars()
	assert.Equal(t, 1.10, fresh[0].Close)
}

func TestSeriesEmpty(t *testing.T) {
	t.Parallel()

	s := NewSeries(0) // clamped to 1
	assert.Equal(t, 1, s.Cap())
	assert.Equal(t, 0, s.Len())

	_, ok := s.Last()
	assert.False(t, ok)
}

func TestCandleShape(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		c       Candle
		bullish bool
		body    float64
		rng     float64
	}{
		{"up bar", Candle{Open: 1.10, High: 1.14, Low: 1.09, Close: 1.12}, true, 0.02, 0.05},
		{"down bar", Candle{Open: 1.12, High: 1.13, Low: 1.08, Close: 1.10}, false, 0.02, 0.05},
		{"doji", Candle{Open: 1.10, High: 1.11, Low: 1.09, Close: 1.10}, false, 0, 0.02},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.bullish, tt.c.Bullish())
			assert.InDelta(t, tt.body, tt.c.Body(), 1e-12)
			assert.InDelta(t, tt.rng, tt.c.Range(), 1e-12)
		})
	}
}
