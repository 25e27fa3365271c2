// Package risk gates signals against account limits and sizes the
// resulting orders. The gate is a pure decision function: every input
// arrives as an immutable snapshot, and the one piece of cross-cycle
// state, the emergency brake, is an explicit shared cell owned by the
// caller. Strategies decide direction; this package decides whether and
// how much.
package risk

import (
	"fmt"
	"strings"
)

// Limits is the risk configuration. Loaded once, validated, and treated
// as read-only for the life of the session. Fractions are of balance
// (RiskPerTrade, MaxDailyLoss) or of peak equity (MaxDrawdown).
type Limits struct {
	RiskPerTrade   float64 `yaml:"risk_per_trade" json:"risk_per_trade"`
	MaxPositions   int     `yaml:"max_positions" json:"max_positions"`
	MaxDailyLoss   float64 `yaml:"max_daily_loss" json:"max_daily_loss"`
	MaxDailyTrades int     `yaml:"max_daily_trades" json:"max_daily_trades"`
	MaxSpreadPips  float64 `yaml:"max_spread_pips" json:"max_spread_pips"`
	MaxDrawdown    float64 `yaml:"max_drawdown" json:"max_drawdown"`
}

// DefaultLimits returns the conservative defaults used when the config
// leaves the risk section empty.
func DefaultLimits() Limits {
	return Limits{
		RiskPerTrade:   0.01,
		MaxPositions:   5,
		MaxDailyLoss:   0.03,
		MaxDailyTrades: 20,
		MaxSpreadPips:  3.0,
		MaxDrawdown:    0.10,
	}
}

// Validate rejects limit sets that would either never trade or never
// stop trading.
func (l Limits) Validate() error {
	var problems []string

	if l.RiskPerTrade <= 0 || l.RiskPerTrade > 0.1 {
		problems = append(problems, fmt.Sprintf("risk_per_trade %.4f outside (0, 0.1]", l.RiskPerTrade))
	}
	if l.MaxPositions < 1 {
		problems = append(problems, fmt.Sprintf("max_positions %d must be at least 1", l.MaxPositions))
	}
	if l.MaxDailyLoss <= 0 || l.MaxDailyLoss >= 1 {
		problems = append(problems, fmt.Sprintf("max_daily_loss %.4f outside (0, 1)", l.MaxDailyLoss))
	}
	if l.MaxDailyTrades < 1 {
		problems = append(problems, fmt.Sprintf("max_daily_trades %d must be at least 1", l.MaxDailyTrades))
	}
	if l.MaxSpreadPips <= 0 {
		problems = append(problems, fmt.Sprintf("max_spread_pips %.2f must be positive", l.MaxSpreadPips))
	}
	if l.MaxDrawdown <= 0 || l.MaxDrawdown >= 1 {
		problems = append(problems, fmt.Sprintf("max_drawdown %.4f outside (0, 1)", l.MaxDrawdown))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid risk limits: %s", strings.Join(problems, "; "))
	}
	return nil
}

// AccountState is the per-cycle account snapshot the gate evaluates
// against. It is produced by the session tracker (or a backtest) and
// never mutated by this package. DailyLoss is the realized net loss for
// the current UTC day in account currency, zero or positive; PeakEquity
// is the session high-water mark, so drawdown stays a pure function of
// the snapshot.
type AccountState struct {
	Balance       float64
	Equity        float64
	PeakEquity    float64
	OpenPositions int
	DailyLoss     float64
	DailyTrades   int
}

// Drawdown returns the peak-to-trough equity decline as a fraction of
// peak equity. Zero when no peak has been established.
func Drawdown(acct AccountState) float64 {
	if acct.PeakEquity <= 0 {
		return 0
	}
	dd := (acct.PeakEquity - acct.Equity) / acct.PeakEquity
	if dd < 0 {
		return 0
	}
	return dd
}
