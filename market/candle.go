package market

import "time"

// Candle is one OHLC bar for a symbol.
type Candle struct {
	Symbol string
	Time   time.Time

	Open  float64
	High  float64
	Low   float64
	Close float64

	Volume float64 // tick volume, optional
}

// Bullish reports whether the bar closed above its open.
func (c Candle) Bullish() bool { return c.Close > c.Open }

// Bearish reports whether the bar closed below its open.
func (c Candle) Bearish() bool { return c.Close < c.Open }

// Body returns the absolute open-to-close distance.
func (c Candle) Body() float64 {
	if c.Close > c.Open {
		return c.Close - c.Open
	}
	return c.Open - c.Close
}

// Range returns the high-to-low distance.
func (c Candle) Range() float64 { return c.High - c.Low }

// Series is a fixed-capacity rolling window of candles. Appending past
// capacity evicts the oldest bar. A Series is owned by a single symbol's
// evaluation path and is not safe for concurrent use.
type Series struct {
	capacity int
	bars     []Candle
}

// NewSeries returns an empty window holding at most capacity bars.
// Capacity below 1 is treated as 1.
func NewSeries(capacity int) *Series {
	if capacity < 1 {
		capacity = 1
	}
	return &Series{
		capacity: capacity,
		bars:     make([]Candle, 0, capacity),
	}
}

// Append adds a bar, evicting the oldest when the window is full.
func (s *Series) Append(c Candle) {
	if len(s.bars) == s.capacity {
		copy(s.bars, s.bars[1:])
		s.bars[len(s.bars)-1] = c
		return
	}
	s.bars = append(s.bars, c)
}

// Len returns the number of bars currently held.
func (s *Series) Len() int { return len(s.bars) }

// Cap returns the window capacity.
func (s *Series) Cap() int { return s.capacity }

// Bars returns a copy of the window, oldest first.
func (s *Series) Bars() []Candle {
	out := make([]Candle, len(s.bars))
	copy(out, s.bars)
	return out
}

// Last returns the most recent bar, or false when the window is empty.
func (s *Series) Last() (Candle, bool) {
	if len(s.bars) == 0 {
		return Candle{}, false
	}
	return s.bars[len(s.bars)-1], true
}
