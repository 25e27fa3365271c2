package risk

import (
	"math"
	"time"

	"fxscalp/strategies"
)

// SizeInputs is everything the position sizer needs. PipValuePerLot is
// in account currency (the caller converts quote-currency pip value via
// market.QuoteToAccountRate before evaluating).
type SizeInputs struct {
	Balance      float64
	RiskPerTrade float64 // fraction of balance, e.g. 0.01
	StopPips     float64
	PipValue     float64 // per lot, account currency
	LotStep      float64
	MinLot       float64
	MaxLot       float64
}

// SizeResult carries the sized position. Lots is zero when the raw size
// rounds below the instrument minimum; RawLots keeps the pre-rounding
// value for the rejection message.
type SizeResult struct {
	Lots       float64
	RawLots    float64
	RiskAmount float64
}

// Size computes the lot count that puts RiskAmount at risk over
// StopPips. The raw size floors to the lot step, never rounds up:
// rounding up would risk more than the configured fraction.
func Size(in SizeInputs) SizeResult {
	r := SizeResult{RiskAmount: in.Balance * in.RiskPerTrade}
	if r.RiskAmount <= 0 || in.StopPips <= 0 || in.PipValue <= 0 || in.LotStep <= 0 {
		return r
	}

	r.RawLots = r.RiskAmount / (in.StopPips * in.PipValue)

	// The nudge keeps an exact multiple of the step from flooring one
	// step short when the division lands just under the boundary.
	steps := math.Floor(r.RawLots/in.LotStep + 1e-9)
	lots := steps * in.LotStep

	if in.MaxLot > 0 && lots > in.MaxLot {
		lots = in.MaxLot
	}
	if lots < in.MinLot {
		return r
	}

	r.Lots = lots
	return r
}

// OrderIntent is the terminal accepted output of the gate, handed to
// the execution side. ID stays empty here so Evaluate remains a pure
// function; the submitting loop stamps a ULID just before the order
// leaves the process.
type OrderIntent struct {
	ID         string
	Symbol     string
	Direction  strategies.Direction
	Lots       float64
	EntryPrice float64
	StopLoss   float64
	TakeProfit float64
	RiskAmount float64
	Confidence float64
	Time       time.Time
}
