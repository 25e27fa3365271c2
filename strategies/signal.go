package strategies

import (
	"fmt"
	"time"

	"fxscalp/indicators"
	"fxscalp/market"
)

// Direction is the discrete trade decision.
type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
	Hold Direction = "HOLD"
)

// Signal is one evaluation result. Immutable once produced; the risk
// gate consumes it and this package never sees it again.
type Signal struct {
	Symbol     string
	Direction  Direction
	Confidence float64 // 0..100
	Price      float64 // close of the evaluated bar
	Time       time.Time

	// Context carries the explanatory values behind the decision
	// (indicator readings, factor scores). Reason is set on holds.
	Context map[string]float64
	Reason  string
}

// Actionable reports whether the signal proposes an order.
func (s Signal) Actionable() bool { return s.Direction == Buy || s.Direction == Sell }

// indicatorShortfall reports a window too short for a strategy's
// warmup, in the same error family the indicator engine uses.
func indicatorShortfall(need, got int) error {
	return fmt.Errorf("%w: need %d bars, got %d", indicators.ErrInsufficientData, need, got)
}

// hold builds a HOLD signal with zero confidence for the last bar.
func hold(bars []market.Candle, symbol, reason string) Signal {
	s := Signal{
		Symbol:    symbol,
		Direction: Hold,
		Reason:    reason,
		Context:   map[string]float64{},
	}
	if len(bars) > 0 {
		last := bars[len(bars)-1]
		s.Price = last.Close
		s.Time = last.Time
		s.Context["bars"] = float64(len(bars))
	}
	return s
}
