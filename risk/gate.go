package risk

import (
	"fmt"
	"strings"

	"fxscalp/market"
	"fxscalp/strategies"
)

// Violation codes, one per rejectable condition. A decision can carry
// several at once; the journal records them all.
const (
	CodeHoldSignal       = "HOLD_SIGNAL"
	CodeEmergencyStop    = "EMERGENCY_STOP"
	CodeMaxPositions     = "MAX_POSITIONS"
	CodeDailyLossLimit   = "DAILY_LOSS_LIMIT"
	CodeDailyTradeLimit  = "DAILY_TRADE_LIMIT"
	CodeSpreadTooWide    = "SPREAD_TOO_WIDE"
	CodeSizeBelowMinimum = "SIZE_BELOW_MINIMUM"
)

// Evaluation outcomes.
const (
	OutcomeAccepted      = "ACCEPTED"
	OutcomeRejected      = "REJECTED"
	OutcomeEmergencyStop = "EMERGENCY_STOP"
)

// Violation is one limit breach.
type Violation struct {
	Code string
	Msg  string
}

// Decision is the full result of one gate evaluation. Intent is non-nil
// only when Allowed is true; the two never disagree.
type Decision struct {
	Allowed    bool
	Intent     *OrderIntent
	Violations []Violation
	RiskAmount float64
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

// Has reports whether the decision carries the given violation code.
func (d Decision) Has(code string) bool {
	for _, v := range d.Violations {
		if v.Code == code {
			return true
		}
	}
	return false
}

// Reason joins the violation codes for logging. Empty when accepted.
func (d Decision) Reason() string {
	if len(d.Violations) == 0 {
		return ""
	}
	codes := make([]string, len(d.Violations))
	for i, v := range d.Violations {
		codes[i] = v.Code
	}
	return strings.Join(codes, ",")
}

// Outcome maps the decision onto the per-cycle state machine:
// ACCEPTED, REJECTED, or EMERGENCY_STOP.
func (d Decision) Outcome() string {
	switch {
	case d.Allowed:
		return OutcomeAccepted
	case d.Has(CodeEmergencyStop):
		return OutcomeEmergencyStop
	default:
		return OutcomeRejected
	}
}

// Gate validates signals against the account limits and sizes accepted
// orders. Limits and Stops are read-only after construction; Brake is
// the one shared mutable cell, tripped here on a drawdown breach and
// cleared only externally.
type Gate struct {
	Limits Limits
	Stops  StopPolicy
	Brake  *Brake
}

// NewGate wires a gate. A nil brake gets a fresh disengaged one.
func NewGate(limits Limits, stops StopPolicy, brake *Brake) *Gate {
	if brake == nil {
		brake = NewBrake()
	}
	return &Gate{Limits: limits, Stops: stops.withDefaults(), Brake: brake}
}

// Evaluate runs one signal through every limit check and, when all
// pass, sizes the order. All applicable violations are collected, not
// just the first, so a rejection explains everything that was wrong
// with the cycle. Identical inputs (including brake state) always
// produce an identical decision.
//
// quoteToAccount converts the instrument's quote currency into account
// currency; the caller computes it from the same tick (1.0 for a USD
// account trading EURUSD).
func (g *Gate) Evaluate(
	sig strategies.Signal,
	acct AccountState,
	tick market.Tick,
	inst market.Instrument,
	quoteToAccount float64,
) Decision {
	d := Decision{Allowed: true}

	// The sticky stop comes first: once engaged, nothing trades. A
	// fresh drawdown breach trips it here and rejects this cycle too,
	// so the breach and the halt land in the same decision.
	if g.Brake.Engaged() {
		d.add(CodeEmergencyStop, "emergency stop engaged: "+g.Brake.Reason())
	} else if dd := Drawdown(acct); g.Limits.MaxDrawdown > 0 && dd >= g.Limits.MaxDrawdown {
		msg := fmt.Sprintf("drawdown %.1f%% breached limit %.1f%% (equity %.2f, peak %.2f)",
			100*dd, 100*g.Limits.MaxDrawdown, acct.Equity, acct.PeakEquity)
		g.Brake.Trip(msg)
		d.add(CodeEmergencyStop, msg)
	}

	if !sig.Actionable() {
		d.add(CodeHoldSignal, "nothing to size for a HOLD signal")
	}
	if acct.OpenPositions >= g.Limits.MaxPositions {
		d.add(CodeMaxPositions, fmt.Sprintf("open positions %d at limit %d",
			acct.OpenPositions, g.Limits.MaxPositions))
	}
	if acct.Balance > 0 && acct.DailyLoss/acct.Balance >= g.Limits.MaxDailyLoss {
		d.add(CodeDailyLossLimit, fmt.Sprintf("daily loss %.2f is %.1f%% of balance, limit %.1f%%",
			acct.DailyLoss, 100*acct.DailyLoss/acct.Balance, 100*g.Limits.MaxDailyLoss))
	}
	if acct.DailyTrades >= g.Limits.MaxDailyTrades {
		d.add(CodeDailyTradeLimit, fmt.Sprintf("daily trades %d at limit %d",
			acct.DailyTrades, g.Limits.MaxDailyTrades))
	}
	if spread := tick.SpreadPips(inst); spread > g.Limits.MaxSpreadPips {
		d.add(CodeSpreadTooWide, fmt.Sprintf("spread %.1f pips exceeds max %.1f",
			spread, g.Limits.MaxSpreadPips))
	}
	if !d.Allowed {
		return d
	}

	entry := tick.Ask
	if sig.Direction == strategies.Sell {
		entry = tick.Bid
	}

	stopPips := g.Stops.Distance(sig.Confidence, entry, inst)
	size := Size(SizeInputs{
		Balance:      acct.Balance,
		RiskPerTrade: g.Limits.RiskPerTrade,
		StopPips:     stopPips,
		PipValue:     inst.PipValuePerLot(quoteToAccount),
		LotStep:      inst.LotStep,
		MinLot:       inst.MinLot,
		MaxLot:       inst.MaxLot,
	})
	d.RiskAmount = size.RiskAmount

	if size.Lots <= 0 {
		d.add(CodeSizeBelowMinimum, fmt.Sprintf("size %.4f lots rounds below the %.2f minimum",
			size.RawLots, inst.MinLot))
		return d
	}

	pip := inst.PipSize()
	stopDist := stopPips * pip
	targetDist := g.Stops.TargetDistance(stopPips) * pip
	stopLoss, takeProfit := entry-stopDist, entry+targetDist
	if sig.Direction == strategies.Sell {
		stopLoss, takeProfit = entry+stopDist, entry-targetDist
	}

	d.Intent = &OrderIntent{
		Symbol:     inst.Symbol,
		Direction:  sig.Direction,
		Lots:       size.Lots,
		EntryPrice: entry,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
		RiskAmount: size.RiskAmount,
		Confidence: sig.Confidence,
		Time:       sig.Time,
	}
	return d
}
