package market

import (
	"fmt"
	"sync"
	"time"
)

// Tick is a single bid/ask quote for a symbol.
type Tick struct {
	Symbol string
	Time   time.Time
	Bid    float64
	Ask    float64
}

// Mid returns the bid/ask midpoint.
func (t Tick) Mid() float64 { return (t.Bid + t.Ask) / 2 }

// Spread returns the ask-bid distance in price terms.
func (t Tick) Spread() float64 { return t.Ask - t.Bid }

// SpreadPips returns the spread expressed in pips for the instrument.
func (t Tick) SpreadPips(inst Instrument) float64 {
	return t.Spread() / inst.PipSize()
}

// TickStore holds the latest tick per symbol.
type TickStore struct {
	mu    sync.RWMutex
	ticks map[string]Tick
}

func NewTickStore() *TickStore {
	return &TickStore{ticks: make(map[string]Tick)}
}

func (ts *TickStore) Set(t Tick) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.ticks[t.Symbol] = t
}

func (ts *TickStore) Get(symbol string) (Tick, error) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	t, ok := ts.ticks[symbol]
	if !ok {
		return Tick{}, fmt.Errorf("no tick for %s", symbol)
	}
	return t, nil
}
