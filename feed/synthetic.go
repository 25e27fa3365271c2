package feed

import (
	"io"
	"math"
	"math/rand"
	"time"

	"fxscalp/market"
)

// Synthetic generates a seeded random-walk candle series. The same
// seed always yields the same bars, which keeps runs repeatable.
type Synthetic struct {
	symbol    string
	tf        market.Timeframe
	rng       *rand.Rand
	price     float64
	vol       float64
	next      time.Time
	remaining int
}

// NewSynthetic builds a walk of bars starting at start. vol is the
// per-bar move scale in price terms.
func NewSynthetic(symbol string, tf market.Timeframe, start time.Time, startPrice, vol float64, bars int, seed int64) *Synthetic {
	return &Synthetic{
		symbol:    symbol,
		tf:        tf,
		rng:       rand.New(rand.NewSource(seed)),
		price:     startPrice,
		vol:       vol,
		next:      start.Truncate(tf.Duration()),
		remaining: bars,
	}
}

// Next returns the following bar, or io.EOF when the walk is done.
func (s *Synthetic) Next() (market.Candle, error) {
	if s.remaining <= 0 {
		return market.Candle{}, io.EOF
	}
	s.remaining--

	o := s.price
	c := o + s.rng.NormFloat64()*s.vol
	if c <= 0 {
		c = o
	}
	h := math.Max(o, c) + math.Abs(s.rng.NormFloat64())*s.vol*0.3
	l := math.Min(o, c) - math.Abs(s.rng.NormFloat64())*s.vol*0.3

	bar := market.Candle{
		Symbol: s.symbol,
		Time:   s.next,
		Open:   o,
		High:   h,
		Low:    l,
		Close:  c,
		Volume: float64(100 + s.rng.Intn(900)),
	}

	s.price = c
	s.next = s.next.Add(s.tf.Duration())
	return bar, nil
}

// Close satisfies Source. A synthetic walk holds nothing to release.
func (s *Synthetic) Close() error { return nil }

// TickWalk generates a seeded bid/ask random walk. The quote bridge
// and tests drive it.
type TickWalk struct {
	symbol string
	rng    *rand.Rand
	mid    float64
	vol    float64
	spread float64
	at     time.Time
	step   time.Duration
}

// NewTickWalk starts a walk at mid with a fixed spread in price terms.
func NewTickWalk(symbol string, start time.Time, mid, vol, spread float64, step time.Duration, seed int64) *TickWalk {
	return &TickWalk{
		symbol: symbol,
		rng:    rand.New(rand.NewSource(seed)),
		mid:    mid,
		vol:    vol,
		spread: spread,
		at:     start,
		step:   step,
	}
}

// Next advances the walk one step and returns the quote.
func (w *TickWalk) Next() market.Tick {
	w.mid += w.rng.NormFloat64() * w.vol
	if w.mid < w.spread {
		w.mid = w.spread
	}

	t := market.Tick{
		Symbol: w.symbol,
		Time:   w.at,
		Bid:    w.mid - w.spread/2,
		Ask:    w.mid + w.spread/2,
	}
	w.at = w.at.Add(w.step)
	return t
}
