package sim

import "fxscalp/broker"

// A zero level means no stop or target is attached. Longs are marked
// against the bid, shorts against the ask; the caller passes the
// correct side.

func hitStopLoss(p broker.Position, mark float64) bool {
	if p.StopLoss == 0 {
		return false
	}
	if p.Side == broker.Long {
		return mark <= p.StopLoss
	}
	return mark >= p.StopLoss
}

func hitTakeProfit(p broker.Position, mark float64) bool {
	if p.TakeProfit == 0 {
		return false
	}
	if p.Side == broker.Long {
		return mark >= p.TakeProfit
	}
	return mark <= p.TakeProfit
}
