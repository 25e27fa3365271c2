package indicators

import (
	"fmt"

	"fxscalp/market"
)

// Params selects the periods the indicator engine computes with.
type Params struct {
	FastPeriod int
	SlowPeriod int
	OscPeriod  int
}

// Warmup returns the smallest window that satisfies every period. The
// oscillator needs one extra bar for its first delta.
func (p Params) Warmup() int {
	need := p.FastPeriod
	if p.SlowPeriod > need {
		need = p.SlowPeriod
	}
	if p.OscPeriod+1 > need {
		need = p.OscPeriod + 1
	}
	return need
}

func (p Params) validate() error {
	if p.FastPeriod <= 0 || p.SlowPeriod <= 0 || p.OscPeriod <= 0 {
		return fmt.Errorf("periods must be positive, got fast=%d slow=%d osc=%d",
			p.FastPeriod, p.SlowPeriod, p.OscPeriod)
	}
	if p.FastPeriod >= p.SlowPeriod {
		return fmt.Errorf("fast period %d must be below slow period %d",
			p.FastPeriod, p.SlowPeriod)
	}
	return nil
}

// State is the indicator snapshot for the latest bar of a window.
// Derived and ephemeral; a new one is computed per closed candle.
type State struct {
	EMAFast    float64
	EMASlow    float64
	Oscillator float64
}

// Compute derives the State for the last bar of the window. It is a pure
// function of the window and params: no internal state survives the call.
// Fails with ErrInsufficientData when the window is shorter than the
// longest required period.
func Compute(bars []market.Candle, p Params) (State, error) {
	if err := p.validate(); err != nil {
		return State{}, err
	}
	if need := p.Warmup(); len(bars) < need {
		return State{}, fmt.Errorf("%w: need %d bars, got %d",
			ErrInsufficientData, need, len(bars))
	}

	fast, err := Drive(NewEMA(p.FastPeriod), bars)
	if err != nil {
		return State{}, err
	}
	slow, err := Drive(NewEMA(p.SlowPeriod), bars)
	if err != nil {
		return State{}, err
	}
	osc, err := Drive(NewRSI(p.OscPeriod), bars)
	if err != nil {
		return State{}, err
	}

	return State{EMAFast: fast, EMASlow: slow, Oscillator: osc}, nil
}
