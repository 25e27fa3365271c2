// Package indicators provides the technical analysis primitives the
// strategies are built from. Every indicator exists in streaming form;
// the batch helpers drive a fresh instance over a candle window so both
// surfaces share one implementation and stay deterministic.
package indicators

import (
	"errors"
	"fmt"

	"fxscalp/market"
)

// ErrInsufficientData is returned when a window holds fewer bars than an
// indicator needs. Callers skip the evaluation cycle; it is never fatal.
var ErrInsufficientData = errors.New("insufficient data")

// Indicator computes a single streaming value from closed candles.
// It is deterministic and safe to use in live, replay, and backtests.
type Indicator interface {
	// Name returns a stable identifier like "EMA(20)" or "RSI(14)".
	Name() string

	// Warmup returns how many updates are needed before Ready() can be true.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Update consumes the next *closed* candle and updates internal state.
	Update(c market.Candle)

	// Ready reports whether Value() is meaningful (warmup completed).
	Ready() bool
}

// ValueF64 is implemented by indicators producing a float value. Callers
// should always check Ready() first.
type ValueF64 interface {
	Value() float64
}

// Drive resets ind, feeds it the whole window, and returns its final
// value. It fails with ErrInsufficientData when the window is shorter
// than the indicator's warmup.
func Drive(ind Indicator, bars []market.Candle) (float64, error) {
	if need := ind.Warmup(); len(bars) < need {
		return 0, fmt.Errorf("%w: %s needs %d bars, got %d",
			ErrInsufficientData, ind.Name(), need, len(bars))
	}
	ind.Reset()
	for _, c := range bars {
		ind.Update(c)
	}
	v, ok := ind.(ValueF64)
	if !ok || !ind.Ready() {
		return 0, fmt.Errorf("%s not ready after %d bars", ind.Name(), len(bars))
	}
	return v.Value(), nil
}

// EMA calculates the Exponential Moving Average of the window's closes
// for the given period, seeded by the simple average of the first
// period closes.
func EMA(bars []market.Candle, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("period must be positive, got %d", period)
	}
	return Drive(NewEMA(period), bars)
}

// SMA calculates the Simple Moving Average of the last period closes.
func SMA(bars []market.Candle, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("period must be positive, got %d", period)
	}
	return Drive(NewMA(period), bars)
}
