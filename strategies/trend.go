package strategies

import (
	"fxscalp/indicators"
	"fxscalp/market"
)

// Trend labels the medium-term direction of a window.
type Trend string

const (
	TrendUp       Trend = "up"
	TrendDown     Trend = "down"
	TrendSideways Trend = "sideways"
)

const (
	trendFastPeriod   = 5
	trendSlowPeriod   = 20
	structureLookback = 10
)

// trendWarmup is the minimum window DetectTrend needs.
const trendWarmup = trendSlowPeriod + 1

// DetectTrend classifies the window using an EMA(5)/EMA(20) spread
// confirmed by price structure over the last ten bars. The second
// return value reports a strong trend: EMAs and structure agree.
func DetectTrend(bars []market.Candle) (Trend, bool) {
	if len(bars) < trendWarmup {
		return TrendSideways, false
	}

	fast, err := indicators.EMA(bars, trendFastPeriod)
	if err != nil {
		return TrendSideways, false
	}
	slow, err := indicators.EMA(bars, trendSlowPeriod)
	if err != nil {
		return TrendSideways, false
	}

	st := structure(bars)

	switch {
	case fast > slow:
		if st < 0 {
			return TrendSideways, false
		}
		return TrendUp, st > 0
	case fast < slow:
		if st > 0 {
			return TrendSideways, false
		}
		return TrendDown, st < 0
	}
	return TrendSideways, false
}

// structure compares the halves of the last structureLookback bars:
// +1 for higher highs and higher lows, -1 for lower highs and lower
// lows, 0 when mixed.
func structure(bars []market.Candle) int {
	if len(bars) < structureLookback {
		return 0
	}
	recent := bars[len(bars)-structureLookback:]
	half := structureLookback / 2
	older, newer := recent[:half], recent[half:]

	oldHigh, oldLow := extremes(older)
	newHigh, newLow := extremes(newer)

	switch {
	case newHigh > oldHigh && newLow > oldLow:
		return 1
	case newHigh < oldHigh && newLow < oldLow:
		return -1
	}
	return 0
}

func extremes(bars []market.Candle) (high, low float64) {
	high, low = bars[0].High, bars[0].Low
	for _, c := range bars[1:] {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
	}
	return high, low
}
