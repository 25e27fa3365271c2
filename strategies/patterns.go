package strategies

import "fxscalp/market"

// Pattern is a recognized candlestick formation on the last bar(s).
type Pattern string

const (
	BullishEngulfing Pattern = "bullish_engulfing"
	BearishEngulfing Pattern = "bearish_engulfing"
	Hammer           Pattern = "hammer"
	ShootingStar     Pattern = "shooting_star"
	Piercing         Pattern = "piercing"
	DarkCloud        Pattern = "dark_cloud"
	Doji             Pattern = "doji"
	StrongBull       Pattern = "strong_bull_body"
	StrongBear       Pattern = "strong_bear_body"
)

// Bullish reports whether the pattern argues for longs.
func (p Pattern) Bullish() bool {
	switch p {
	case BullishEngulfing, Hammer, Piercing, StrongBull:
		return true
	}
	return false
}

// Bearish reports whether the pattern argues for shorts.
func (p Pattern) Bearish() bool {
	switch p {
	case BearishEngulfing, ShootingStar, DarkCloud, StrongBear:
		return true
	}
	return false
}

// Weight returns the score contribution of the pattern: engulfing
// formations count 3, the rest 2, doji 0 (context only).
func (p Pattern) Weight() float64 {
	switch p {
	case BullishEngulfing, BearishEngulfing:
		return 3
	case Doji:
		return 0
	}
	return 2
}

// DetectPatterns inspects the last two bars of the window. It returns
// nil when fewer than two bars are available.
func DetectPatterns(bars []market.Candle) []Pattern {
	if len(bars) < 2 {
		return nil
	}
	prev := bars[len(bars)-2]
	curr := bars[len(bars)-1]

	var found []Pattern
	add := func(p Pattern) { found = append(found, p) }

	rng := curr.Range()
	body := curr.Body()

	if rng > 0 && body < 0.1*rng {
		add(Doji)
	}

	upperWick := curr.High - max(curr.Open, curr.Close)
	lowerWick := min(curr.Open, curr.Close) - curr.Low

	// Hammer: long lower wick, small upper wick.
	if body > 0 && lowerWick > 2*body && upperWick < body {
		add(Hammer)
	}
	// Shooting star: long upper wick, small lower wick.
	if body > 0 && upperWick > 2*body && lowerWick < body {
		add(ShootingStar)
	}

	if prev.Bearish() && curr.Bullish() {
		// Engulfing: the current body swallows the previous one.
		if curr.Open <= prev.Close && curr.Close >= prev.Open {
			add(BullishEngulfing)
		} else if curr.Open < prev.Close && curr.Close > (prev.Open+prev.Close)/2 {
			// Piercing: open below the prior close, close above its midpoint.
			add(Piercing)
		}
	}

	if prev.Bullish() && curr.Bearish() {
		if curr.Open >= prev.Close && curr.Close <= prev.Open {
			add(BearishEngulfing)
		} else if curr.Open > prev.Close && curr.Close < (prev.Open+prev.Close)/2 {
			add(DarkCloud)
		}
	}

	// Strong single-bar body: conviction close near the extreme.
	if rng > 0 && body > 0.7*rng {
		if curr.Bullish() {
			add(StrongBull)
		} else if curr.Bearish() {
			add(StrongBear)
		}
	}

	return found
}
