// Package journal records what the bot did: every realized trade,
// periodic equity snapshots, and the session performance report. The
// engine and backtest write through the Journal interface; storage is
// flat files. There is deliberately no database behind this.
package journal

import (
	"sync"
	"time"
)

// TradeRecord is one realized trade.
type TradeRecord struct {
	TradeID    string
	Symbol     string
	Direction  string // BUY or SELL
	Lots       float64
	EntryPrice float64
	ExitPrice  float64
	OpenTime   time.Time
	CloseTime  time.Time
	PnL        float64 // account currency
	Reason     string  // close reason
	Confidence float64 // signal confidence at entry, 0 when unknown
}

// Win reports whether the trade realized a profit.
func (t TradeRecord) Win() bool { return t.PnL > 0 }

// EquitySnapshot is one point on the equity curve.
type EquitySnapshot struct {
	Time     time.Time
	Balance  float64
	Equity   float64
	Drawdown float64 // fraction of peak equity at snapshot time
}

// Journal persists trade and equity records.
type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// Nop discards everything. Useful when journaling is disabled.
type Nop struct{}

func (Nop) RecordTrade(TradeRecord) error { return nil }

func (Nop) RecordEquity(EquitySnapshot) error { return nil }

func (Nop) Close() error { return nil }

// Memory keeps records in memory for tests and backtest reporting.
// Writes are serialized; read the slices only after recording stops.
type Memory struct {
	mu     sync.Mutex
	Trades []TradeRecord
	Equity []EquitySnapshot
}

func (m *Memory) RecordTrade(t TradeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Trades = append(m.Trades, t)
	return nil
}

func (m *Memory) RecordEquity(e EquitySnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Equity = append(m.Equity, e)
	return nil
}

func (m *Memory) Close() error { return nil }
