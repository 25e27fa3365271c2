package strategies

import (
	"sync"
	"time"

	"fxscalp/indicators"
	"fxscalp/market"
)

func init() {
	Register("scalper", func(cfg Config) (Strategy, error) {
		return NewScalper(cfg), nil
	})
}

// Confluence scoring constants. A side fires when its score reaches
// scoreThreshold and beats the opposite side.
const (
	scoreThreshold = 5

	weightCross       = 3
	weightRSIRecovery = 2
	weightBandBounce  = 2
	weightStoch       = 2
	weightMACD        = 2
	weightTrendAgree  = 2

	bbPeriod    = 20
	bbWidth     = 2.0
	stochK      = 14
	stochD      = 3
	macdSignal  = 9
	atrSMASpan  = 20
	volSMASpan  = 20
	volSurgeMul = 1.5

	// Dead-market filter: current ATR against its own average.
	minATRRatio = 0.5
)

// Scalper is the multi-factor confluence strategy: EMA cross, oscillator
// recovery, Bollinger bounce, MACD momentum, candle patterns, and trend
// structure each vote with a weight; the winning side must clear the
// score threshold. A same-direction repeat inside the cooldown window is
// suppressed, with the clock taken from candle time so replays of the
// same data reproduce the same signals.
type Scalper struct {
	cfg    Config
	params indicators.Params

	mu       sync.Mutex
	lastFire map[string]fire
}

type fire struct {
	dir Direction
	at  time.Time
}

// NewScalper builds the confluence strategy with defaults filled in.
func NewScalper(cfg Config) *Scalper {
	cfg = cfg.withDefaults()
	return &Scalper{
		cfg: cfg,
		params: indicators.Params{
			FastPeriod: cfg.FastPeriod,
			SlowPeriod: cfg.SlowPeriod,
			OscPeriod:  cfg.OscPeriod,
		},
		lastFire: make(map[string]fire),
	}
}

func (s *Scalper) Name() string { return "scalper" }

// Warmup covers the slowest component plus the extra bar cross
// detection needs.
func (s *Scalper) Warmup() int {
	need := s.params.Warmup()
	if n := s.cfg.SlowPeriod + macdSignal - 1; n > need {
		need = n
	}
	if n := s.cfg.OscPeriod + atrSMASpan; n > need {
		need = n
	}
	if bbPeriod > need {
		need = bbPeriod
	}
	if n := stochK + stochD - 1; n > need {
		need = n
	}
	if trendWarmup > need {
		need = trendWarmup
	}
	return need + 1
}

func (s *Scalper) GenerateSignal(history []market.Candle, inst market.Instrument) (Signal, error) {
	if len(history) < s.Warmup() {
		return Signal{}, indicatorShortfall(s.Warmup(), len(history))
	}

	curr, err := indicators.Compute(history, s.params)
	if err != nil {
		return Signal{}, err
	}
	prevBars := history[:len(history)-1]
	prev, err := indicators.Compute(prevBars, s.params)
	if err != nil {
		return Signal{}, err
	}

	last := history[len(history)-1]
	ctx := map[string]float64{
		"ema_fast":   curr.EMAFast,
		"ema_slow":   curr.EMASlow,
		"oscillator": curr.Oscillator,
	}

	// Dead-market filter: skip when volatility has collapsed.
	atrNow, atrAvg := s.atrRegime(history)
	ctx["atr"] = atrNow
	if atrAvg > 0 {
		ratio := atrNow / atrAvg
		ctx["atr_ratio"] = ratio
		if ratio < minATRRatio {
			h := hold(history, inst.Symbol, "volatility too low")
			h.Context = ctx
			return h, nil
		}
	}

	var bull, bear float64

	// EMA cross votes.
	diff := curr.EMAFast - curr.EMASlow
	prevDiff := prev.EMAFast - prev.EMASlow
	bullCross := diff > 0 && prevDiff <= 0
	bearCross := diff < 0 && prevDiff >= 0
	if bullCross {
		bull += weightCross
		ctx["bull_cross"] = 1
	}
	if bearCross {
		bear += weightCross
		ctx["bear_cross"] = 1
	}

	// Oscillator recovery votes: leaving the extreme zones.
	if prev.Oscillator < s.cfg.Oversold && curr.Oscillator >= s.cfg.Oversold {
		bull += weightRSIRecovery
		ctx["rsi_recovery"] = 1
	}
	if prev.Oscillator > s.cfg.Overbought && curr.Oscillator <= s.cfg.Overbought {
		bear += weightRSIRecovery
		ctx["rsi_drop"] = 1
	}

	// Bollinger bounce votes: stretched beyond a band, closing back in.
	if bands, err := indicators.Bollinger(history, bbPeriod, bbWidth); err == nil {
		if pbands, err := indicators.Bollinger(prevBars, bbPeriod, bbWidth); err == nil {
			prevClose := prevBars[len(prevBars)-1].Close
			if prevClose <= pbands.Lower && last.Close > bands.Lower {
				bull += weightBandBounce
				ctx["band_bounce_low"] = 1
			}
			if prevClose >= pbands.Upper && last.Close < bands.Upper {
				bear += weightBandBounce
				ctx["band_bounce_high"] = 1
			}
			ctx["bb_upper"], ctx["bb_lower"] = bands.Upper, bands.Lower
		}
	}

	// Stochastic turn votes: %K leaving an extreme against %D.
	if st, err := indicators.Stochastic(history, stochK, stochD); err == nil {
		ctx["stoch_k"] = st.K
		if st.K < 20 && st.K > st.D {
			bull += weightStoch
		}
		if st.K > 80 && st.K < st.D {
			bear += weightStoch
		}
	}

	// MACD momentum votes.
	macd, err := indicators.MACD(history, s.cfg.FastPeriod, s.cfg.SlowPeriod, macdSignal)
	if err == nil {
		ctx["macd_hist"] = macd.Histogram
		if macd.Histogram > 0 && macd.Line > macd.Signal {
			bull += weightMACD
		}
		if macd.Histogram < 0 && macd.Line < macd.Signal {
			bear += weightMACD
		}
	}

	// Candle pattern votes.
	var patternSeen bool
	for _, p := range DetectPatterns(history) {
		switch {
		case p.Bullish():
			bull += p.Weight()
			patternSeen = true
		case p.Bearish():
			bear += p.Weight()
			patternSeen = true
		}
	}

	// Trend agreement votes.
	trend, strong := DetectTrend(history)
	switch trend {
	case TrendUp:
		bull += weightTrendAgree
	case TrendDown:
		bear += weightTrendAgree
	}

	ctx["bull_score"], ctx["bear_score"] = bull, bear

	dir := Hold
	switch {
	case bull >= scoreThreshold && bull > bear:
		dir = Buy
	case bear >= scoreThreshold && bear > bull:
		dir = Sell
	}
	if dir == Hold {
		h := hold(history, inst.Symbol, "no confluence")
		h.Context = ctx
		return h, nil
	}

	conf := s.confidence(confidenceInputs{
		dir:         dir,
		state:       curr,
		prev:        prev,
		trend:       trend,
		trendStrong: strong,
		pattern:     patternSeen,
		atrRatio:    ctx["atr_ratio"],
		volSurge:    volumeSurge(history),
	})
	ctx["confidence"] = conf

	// Chop filter: a weak signal in a sideways market is noise.
	if trend == TrendSideways && conf < 70 {
		h := hold(history, inst.Symbol, "sideways market, confidence too low")
		h.Context = ctx
		return h, nil
	}

	// Same-direction cooldown, measured on candle time.
	s.mu.Lock()
	if f, ok := s.lastFire[inst.Symbol]; ok &&
		f.dir == dir && last.Time.Sub(f.at) < s.cfg.SignalCooldown {
		s.mu.Unlock()
		h := hold(history, inst.Symbol, "signal cooldown")
		h.Context = ctx
		return h, nil
	}
	s.lastFire[inst.Symbol] = fire{dir: dir, at: last.Time}
	s.mu.Unlock()

	return Signal{
		Symbol:     inst.Symbol,
		Direction:  dir,
		Confidence: conf,
		Price:      last.Close,
		Time:       last.Time,
		Context:    ctx,
	}, nil
}

type confidenceInputs struct {
	dir         Direction
	state       indicators.State
	prev        indicators.State
	trend       Trend
	trendStrong bool
	pattern     bool
	atrRatio    float64
	volSurge    bool
}

// confidence is the additive model: each aligned factor adds its share,
// capped at 100.
func (s *Scalper) confidence(in confidenceInputs) float64 {
	conf := 0.0

	aligned := (in.dir == Buy && in.state.EMAFast > in.state.EMASlow) ||
		(in.dir == Sell && in.state.EMAFast < in.state.EMASlow)
	if aligned {
		conf += 20
	}

	switch in.dir {
	case Buy:
		if in.prev.Oscillator < s.cfg.Oversold && in.state.Oscillator >= s.cfg.Oversold {
			conf += 15
		} else if in.state.Oscillator < 50 {
			conf += 10
		}
	case Sell:
		if in.prev.Oscillator > s.cfg.Overbought && in.state.Oscillator <= s.cfg.Overbought {
			conf += 15
		} else if in.state.Oscillator > 50 {
			conf += 10
		}
	}

	trendAgrees := (in.dir == Buy && in.trend == TrendUp) ||
		(in.dir == Sell && in.trend == TrendDown)
	if trendAgrees {
		if in.trendStrong {
			conf += 20
		} else {
			conf += 10
		}
	}

	if in.pattern {
		conf += 15
	}
	if in.atrRatio >= 1 {
		conf += 10
	}

	extreme := (in.dir == Buy && in.state.Oscillator <= s.cfg.Oversold+5) ||
		(in.dir == Sell && in.state.Oscillator >= s.cfg.Overbought-5)
	if extreme {
		conf += 10
	}
	if in.volSurge {
		conf += 10
	}

	if conf > 100 {
		conf = 100
	}
	return conf
}

// atrRegime returns the current ATR and the simple average of its last
// atrSMASpan readings.
func (s *Scalper) atrRegime(bars []market.Candle) (now, avg float64) {
	atr := indicators.NewATR(s.cfg.OscPeriod)
	var readings []float64
	for _, c := range bars {
		atr.Update(c)
		if atr.Ready() {
			readings = append(readings, atr.Value())
		}
	}
	if len(readings) == 0 {
		return 0, 0
	}
	now = readings[len(readings)-1]
	span := atrSMASpan
	if len(readings) < span {
		span = len(readings)
	}
	sum := 0.0
	for _, v := range readings[len(readings)-span:] {
		sum += v
	}
	return now, sum / float64(span)
}

// volumeSurge reports whether the last bar's volume beats its recent
// average by the surge multiple. Windows without volume data never surge.
func volumeSurge(bars []market.Candle) bool {
	if len(bars) < volSMASpan+1 {
		return false
	}
	last := bars[len(bars)-1].Volume
	if last <= 0 {
		return false
	}
	sum := 0.0
	for _, c := range bars[len(bars)-volSMASpan-1 : len(bars)-1] {
		sum += c.Volume
	}
	avg := sum / volSMASpan
	return avg > 0 && last > volSurgeMul*avg
}
