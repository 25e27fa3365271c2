package indicators

import (
	"fmt"
	"math"

	"fxscalp/market"
)

// Bands is a Bollinger band snapshot for the last bar of a window.
type Bands struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// Bollinger computes period-SMA bands at k sample standard deviations.
func Bollinger(bars []market.Candle, period int, k float64) (Bands, error) {
	if period < 2 {
		return Bands{}, fmt.Errorf("bollinger period must be at least 2, got %d", period)
	}
	if len(bars) < period {
		return Bands{}, fmt.Errorf("%w: need %d bars, got %d",
			ErrInsufficientData, period, len(bars))
	}

	window := bars[len(bars)-period:]
	sum := 0.0
	for _, c := range window {
		sum += c.Close
	}
	mid := sum / float64(period)

	variance := 0.0
	for _, c := range window {
		d := c.Close - mid
		variance += d * d
	}
	sd := math.Sqrt(variance / float64(period-1))

	return Bands{Upper: mid + k*sd, Middle: mid, Lower: mid - k*sd}, nil
}

// Stoch is a stochastic oscillator snapshot: %K and its %D smoothing.
type Stoch struct {
	K float64
	D float64
}

// Stochastic computes %K over kPeriod bars and %D as the simple average
// of the last dPeriod %K values. A flat window reads as neutral 50.
func Stochastic(bars []market.Candle, kPeriod, dPeriod int) (Stoch, error) {
	if kPeriod <= 0 || dPeriod <= 0 {
		return Stoch{}, fmt.Errorf("stochastic periods must be positive, got k=%d d=%d", kPeriod, dPeriod)
	}
	need := kPeriod + dPeriod - 1
	if len(bars) < need {
		return Stoch{}, fmt.Errorf("%w: need %d bars, got %d",
			ErrInsufficientData, need, len(bars))
	}

	kAt := func(end int) float64 {
		window := bars[end-kPeriod : end]
		hh, ll := window[0].High, window[0].Low
		for _, c := range window[1:] {
			if c.High > hh {
				hh = c.High
			}
			if c.Low < ll {
				ll = c.Low
			}
		}
		if hh == ll {
			return 50
		}
		return (window[len(window)-1].Close - ll) / (hh - ll) * 100
	}

	dSum := 0.0
	for i := 0; i < dPeriod; i++ {
		dSum += kAt(len(bars) - i)
	}

	return Stoch{K: kAt(len(bars)), D: dSum / float64(dPeriod)}, nil
}

// MACDValue is the moving average convergence/divergence snapshot for
// the last bar of a window.
type MACDValue struct {
	Line      float64
	Signal    float64
	Histogram float64
}

// MACD computes the fast-slow EMA difference and its signal-period EMA.
// The signal seed is the simple average of the first signalPeriod
// differences, matching the EMA seeding used everywhere else.
func MACD(bars []market.Candle, fast, slow, signalPeriod int) (MACDValue, error) {
	if fast <= 0 || slow <= 0 || signalPeriod <= 0 {
		return MACDValue{}, fmt.Errorf("macd periods must be positive, got %d/%d/%d",
			fast, slow, signalPeriod)
	}
	if fast >= slow {
		return MACDValue{}, fmt.Errorf("macd fast period %d must be below slow period %d", fast, slow)
	}
	// The diff series starts once the slow EMA is ready, so the first
	// signal value lands slow+signalPeriod-1 bars in.
	need := slow + signalPeriod - 1
	if len(bars) < need {
		return MACDValue{}, fmt.Errorf("%w: need %d bars, got %d",
			ErrInsufficientData, need, len(bars))
	}

	fastEMA := NewEMA(fast)
	slowEMA := NewEMA(slow)

	// Collect the diff series once both EMAs are ready, then smooth it.
	k := 2.0 / float64(signalPeriod+1)
	var (
		line      float64
		signal    float64
		diffCount int
		seedSum   float64
	)
	for _, c := range bars {
		fastEMA.Update(c)
		slowEMA.Update(c)
		if !fastEMA.Ready() || !slowEMA.Ready() {
			continue
		}
		line = fastEMA.Value() - slowEMA.Value()
		diffCount++
		if diffCount <= signalPeriod {
			seedSum += line
			if diffCount == signalPeriod {
				signal = seedSum / float64(signalPeriod)
			}
			continue
		}
		signal = (line-signal)*k + signal
	}

	return MACDValue{Line: line, Signal: signal, Histogram: line - signal}, nil
}
