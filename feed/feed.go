// Package feed supplies the price series the engine trades on: candle
// files for backtests, a seeded synthetic walk, and a live WebSocket
// quote stream bridged into bars.
package feed

import (
	"fxscalp/market"
)

// Source streams candles oldest first. Next returns io.EOF once the
// stream is exhausted.
type Source interface {
	Next() (market.Candle, error)
	Close() error
}
