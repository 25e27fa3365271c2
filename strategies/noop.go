package strategies

import "fxscalp/market"

func init() {
	Register("noop", func(cfg Config) (Strategy, error) {
		return Noop{}, nil
	})
}

// Noop never trades. Useful for wiring checks and as a kill-switch
// strategy in config.
type Noop struct{}

func (Noop) Name() string { return "noop" }
func (Noop) Warmup() int  { return 0 }

func (Noop) GenerateSignal(history []market.Candle, inst market.Instrument) (Signal, error) {
	return hold(history, inst.Symbol, "noop strategy"), nil
}
