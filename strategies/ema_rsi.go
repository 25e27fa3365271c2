package strategies

import (
	"math"

	"fxscalp/indicators"
	"fxscalp/market"
)

func init() {
	Register("ema_rsi", func(cfg Config) (Strategy, error) {
		return NewEMARSI(cfg), nil
	})
}

// EMARSI trades fast/slow EMA crossovers confirmed by the oscillator.
//   - BUY on a bull cross while the oscillator is under the overbought line
//   - SELL on a bear cross while the oscillator is over the oversold line
//   - HOLD otherwise
//
// The previous indicator state is derived from the same window (one bar
// shorter), so the whole evaluation is a pure function of the history.
type EMARSI struct {
	cfg    Config
	params indicators.Params
}

// NewEMARSI builds the crossover strategy with defaults filled in.
func NewEMARSI(cfg Config) *EMARSI {
	cfg = cfg.withDefaults()
	return &EMARSI{
		cfg: cfg,
		params: indicators.Params{
			FastPeriod: cfg.FastPeriod,
			SlowPeriod: cfg.SlowPeriod,
			OscPeriod:  cfg.OscPeriod,
		},
	}
}

func (s *EMARSI) Name() string { return "ema_rsi" }

// Warmup needs one bar past the indicator warmup for cross detection.
func (s *EMARSI) Warmup() int { return s.params.Warmup() + 1 }

func (s *EMARSI) GenerateSignal(history []market.Candle, inst market.Instrument) (Signal, error) {
	curr, err := indicators.Compute(history, s.params)
	if err != nil {
		return Signal{}, err
	}

	// A cross needs two indicator points. With exactly the indicator
	// warmup there is only one: hold and say why.
	if len(history) == s.params.Warmup() {
		return hold(history, inst.Symbol, "not enough indicator history for cross detection"), nil
	}

	prev, err := indicators.Compute(history[:len(history)-1], s.params)
	if err != nil {
		return Signal{}, err
	}

	diff := curr.EMAFast - curr.EMASlow
	prevDiff := prev.EMAFast - prev.EMASlow

	// Bull cross: diff goes from <=0 to >0.
	// Bear cross: diff goes from >=0 to <0.
	bullCross := diff > 0 && prevDiff <= 0
	bearCross := diff < 0 && prevDiff >= 0

	last := history[len(history)-1]
	sig := Signal{
		Symbol:    inst.Symbol,
		Direction: Hold,
		Price:     last.Close,
		Time:      last.Time,
		Context: map[string]float64{
			"ema_fast":   curr.EMAFast,
			"ema_slow":   curr.EMASlow,
			"prev_diff":  prevDiff,
			"diff":       diff,
			"oscillator": curr.Oscillator,
		},
	}

	switch {
	case bullCross:
		sig.Context["bull_cross"] = 1
		if curr.Oscillator >= s.cfg.Overbought {
			sig.Reason = "bull cross vetoed: oscillator overbought"
			return sig, nil
		}
		sig.Direction = Buy
	case bearCross:
		sig.Context["bear_cross"] = 1
		if curr.Oscillator <= s.cfg.Oversold {
			sig.Reason = "bear cross vetoed: oscillator oversold"
			return sig, nil
		}
		sig.Direction = Sell
	default:
		sig.Reason = "no crossover"
		return sig, nil
	}

	atr, err := indicators.Drive(indicators.NewATR(s.cfg.OscPeriod), history)
	if err != nil {
		// Warmup guarantees enough bars for the ATR; treat anything
		// else as no volatility reading.
		atr = 0
	}
	sig.Context["atr"] = atr
	sig.Confidence = confidence(diff, curr.Oscillator, atr)
	sig.Context["confidence"] = sig.Confidence

	return sig, nil
}

// confidence scores a crossover signal in [0,100]. It grows with the EMA
// separation relative to recent volatility and with the oscillator's
// distance from its midpoint; same inputs, same score.
func confidence(diff, oscillator, atr float64) float64 {
	sep := math.Abs(diff)
	var sepScore float64
	switch {
	case atr <= 0:
		// No volatility reading: any separation saturates the term.
		if sep > 0 {
			sepScore = 50
		}
	default:
		r := sep / atr
		sepScore = 50 * r / (1 + r)
	}

	oscScore := math.Abs(oscillator - 50)
	if oscScore > 50 {
		oscScore = 50
	}

	conf := sepScore + oscScore
	if conf < 0 {
		return 0
	}
	if conf > 100 {
		return 100
	}
	return conf
}
