package engine

import (
	"context"

	"fxscalp/feed"
	"fxscalp/logger"
	"fxscalp/market"
	"fxscalp/metrics"
)

// TickSink is the part of the paper broker the tick pump feeds.
type TickSink interface {
	UpdateTick(t market.Tick) error
	PushCandle(c market.Candle)
}

// Pump forwards live ticks into the sink and folds them into bars on
// tf. It returns when ctx ends or the tick channel closes.
func Pump(ctx context.Context, ticks <-chan market.Tick, sink TickSink, tf market.Timeframe, met *metrics.Metrics, health *metrics.Health, log logger.Logger) {
	if log == nil {
		log = logger.NewNop()
	}
	aggs := make(map[string]*feed.Aggregator)

	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-ticks:
			if !ok {
				return
			}
			if err := sink.UpdateTick(t); err != nil {
				log.Warn("tick rejected", "symbol", t.Symbol, "err", err)
				continue
			}
			if met != nil {
				met.TicksTotal.Inc()
			}
			if health != nil {
				health.SetLastTick(t.Time)
				health.SetFeedConnected(true)
			}

			agg := aggs[t.Symbol]
			if agg == nil {
				agg = feed.NewAggregator(tf)
				aggs[t.Symbol] = agg
			}
			if bar, done := agg.Add(t); done {
				sink.PushCandle(bar)
			}
		}
	}
}
