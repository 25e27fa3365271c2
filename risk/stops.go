package risk

import "fxscalp/market"

// Stop distance modes. The gate never derives stops from volatility;
// the distance is a configuration-level choice applied here.
const (
	StopFixed   = "fixed"   // flat pip distance
	StopPercent = "percent" // fraction of entry price
	StopTiered  = "tiered"  // pip distance by signal confidence
)

// StopPolicy decides stop-loss distance and the take-profit multiple
// for an accepted signal.
type StopPolicy struct {
	Mode        string  `yaml:"mode" json:"mode"`
	StopPips    float64 `yaml:"stop_pips" json:"stop_pips"`
	StopPercent float64 `yaml:"stop_percent" json:"stop_percent"`
	RewardRatio float64 `yaml:"reward_ratio" json:"reward_ratio"`
}

// DefaultStops is a flat 20 pip stop with a 2:1 reward target.
func DefaultStops() StopPolicy {
	return StopPolicy{Mode: StopFixed, StopPips: 20, RewardRatio: 2}
}

func (p StopPolicy) withDefaults() StopPolicy {
	if p.Mode == "" {
		p.Mode = StopFixed
	}
	if p.StopPips == 0 {
		p.StopPips = 20
	}
	if p.RewardRatio == 0 {
		p.RewardRatio = 2
	}
	return p
}

// Distance returns the stop-loss distance in pips for an order entered
// at entry with the given signal confidence.
func (p StopPolicy) Distance(confidence, entry float64, inst market.Instrument) float64 {
	switch p.Mode {
	case StopPercent:
		if p.StopPercent > 0 && entry > 0 {
			return entry * p.StopPercent / inst.PipSize()
		}
		return p.StopPips
	case StopTiered:
		// Stronger signals earn tighter stops.
		switch {
		case confidence >= 80:
			return 15
		case confidence >= 70:
			return 20
		default:
			return 25
		}
	default:
		return p.StopPips
	}
}

// TargetDistance returns the take-profit distance in pips for a given
// stop distance.
func (p StopPolicy) TargetDistance(stopPips float64) float64 {
	return stopPips * p.RewardRatio
}
