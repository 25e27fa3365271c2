// Package broker defines the execution boundary. The engine talks to
// this interface only; the sim package implements it for paper trading
// and backtests, and a live bridge would implement it against a real
// platform.
package broker

import (
	"context"
	"time"

	"fxscalp/market"
)

// Side is the position direction, usable as a sign on lots.
type Side int

const (
	Long  Side = 1
	Short Side = -1
)

func (s Side) String() string {
	if s == Short {
		return "SELL"
	}
	return "BUY"
}

// Close reasons recorded with every realized trade.
const (
	ReasonStopLoss      = "STOP_LOSS"
	ReasonTakeProfit    = "TAKE_PROFIT"
	ReasonManual        = "MANUAL"
	ReasonEmergencyStop = "EMERGENCY_STOP"
	ReasonSessionEnd    = "SESSION_END"
)

// Account is the broker-side account snapshot.
type Account struct {
	ID       string
	Currency string
	Balance  float64
	Equity   float64
}

// OrderRequest asks for an immediate market fill. Lots is always
// positive; Side carries the direction. StopLoss and TakeProfit of zero
// attach no level. ID is the caller's order identifier; the broker
// mints one when it is empty.
type OrderRequest struct {
	ID         string
	Symbol     string
	Side       Side
	Lots       float64
	StopLoss   float64
	TakeProfit float64
}

// Fill confirms an executed market order.
type Fill struct {
	PositionID string
	Symbol     string
	Side       Side
	Lots       float64
	Price      float64
	Time       time.Time
}

// Position is one open trade.
type Position struct {
	ID         string
	Symbol     string
	Side       Side
	Lots       float64
	EntryPrice float64
	StopLoss   float64
	TakeProfit float64
	OpenTime   time.Time
}

// Broker is the order-execution and account capability the trading
// loop depends on. Implementations must be safe for concurrent use.
type Broker interface {
	// Account returns the current account snapshot.
	Account(ctx context.Context) (Account, error)

	// Tick returns the latest quote for a symbol.
	Tick(ctx context.Context, symbol string) (market.Tick, error)

	// Candles returns up to n most recent bars for a symbol, oldest
	// first.
	Candles(ctx context.Context, symbol string, tf market.Timeframe, n int) ([]market.Candle, error)

	// MarketOrder fills a market order immediately at the current
	// quote: ask for longs, bid for shorts.
	MarketOrder(ctx context.Context, req OrderRequest) (Fill, error)

	// ClosePosition closes one open position at the current quote.
	ClosePosition(ctx context.Context, positionID, reason string) error

	// CloseAll closes every open position. Used by the emergency stop
	// and at session end.
	CloseAll(ctx context.Context, reason string) error

	// OpenPositions lists open positions, oldest first.
	OpenPositions(ctx context.Context) ([]Position, error)
}
