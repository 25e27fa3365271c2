package feed

import (
	"time"

	"fxscalp/market"
)

// Aggregator folds ticks into fixed-period candles. Add returns the
// finished bar when a tick opens a new bucket; Flush hands back the
// bar still in progress.
type Aggregator struct {
	tf   market.Timeframe
	cur  market.Candle
	open bool
}

// NewAggregator builds candles on the given timeframe.
func NewAggregator(tf market.Timeframe) *Aggregator {
	return &Aggregator{tf: tf}
}

// Add folds one tick in. Ticks older than the current bucket are
// dropped so a replayed message cannot rewrite a closed bar.
func (a *Aggregator) Add(t market.Tick) (market.Candle, bool) {
	mid := t.Mid()
	bucket := t.Time.Truncate(a.tf.Duration())

	if !a.open {
		a.start(t.Symbol, bucket, mid)
		return market.Candle{}, false
	}
	if bucket.Before(a.cur.Time) {
		return market.Candle{}, false
	}
	if bucket.After(a.cur.Time) {
		done := a.cur
		a.start(t.Symbol, bucket, mid)
		return done, true
	}

	if mid > a.cur.High {
		a.cur.High = mid
	}
	if mid < a.cur.Low {
		a.cur.Low = mid
	}
	a.cur.Close = mid
	a.cur.Volume++
	return market.Candle{}, false
}

// Flush returns the bar under construction, if any, and resets.
func (a *Aggregator) Flush() (market.Candle, bool) {
	if !a.open {
		return market.Candle{}, false
	}
	done := a.cur
	a.cur = market.Candle{}
	a.open = false
	return done, true
}

func (a *Aggregator) start(symbol string, bucket time.Time, mid float64) {
	a.cur = market.Candle{
		Symbol: symbol,
		Time:   bucket,
		Open:   mid,
		High:   mid,
		Low:    mid,
		Close:  mid,
		Volume: 1,
	}
	a.open = true
}
