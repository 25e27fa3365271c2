package sim

import "fxscalp/broker"

// PnL converts a price move into account currency for a sized position.
// quoteToAccount converts the instrument's quote currency; for a USD
// account trading EURUSD it is 1.0.
func PnL(side broker.Side, lots, contractSize, entry, exit, quoteToAccount float64) float64 {
	move := float64(side) * (exit - entry)
	return lots * contractSize * move * quoteToAccount
}
