package risk

import (
	"sync"
	"time"
)

// Session tracks the account facts the gate needs between broker reads:
// the session equity high-water mark and the per-UTC-day realized P&L
// and trade count. Daily figures roll over at UTC midnight; the peak
// persists for the whole session, because drawdown is peak-to-trough,
// not peak-since-breakfast.
//
// All methods are safe for concurrent use. Snapshot returns a value, so
// the gate always evaluates against an immutable view.
type Session struct {
	mu          sync.Mutex
	day         time.Time // UTC midnight of the current trading day
	peakEquity  float64
	dailyPnL    float64 // realized, account currency; negative when down
	dailyTrades int
}

// NewSession starts tracking from the given time and equity.
func NewSession(now time.Time, equity float64) *Session {
	return &Session{day: utcDay(now), peakEquity: equity}
}

func utcDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// roll resets the daily figures when t has crossed into a new UTC day.
// Callers hold s.mu.
func (s *Session) roll(t time.Time) {
	if d := utcDay(t); d.After(s.day) {
		s.day = d
		s.dailyPnL = 0
		s.dailyTrades = 0
	}
}

// RecordOpen counts a newly submitted trade against the daily limit.
func (s *Session) RecordOpen(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roll(t)
	s.dailyTrades++
}

// RecordPnL folds a realized trade result into the daily total.
func (s *Session) RecordPnL(t time.Time, pnl float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roll(t)
	s.dailyPnL += pnl
}

// Snapshot combines a fresh broker account read with the session state
// into the immutable view the gate evaluates. It also advances the
// equity peak.
func (s *Session) Snapshot(t time.Time, balance, equity float64, openPositions int) AccountState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roll(t)

	if equity > s.peakEquity {
		s.peakEquity = equity
	}

	loss := 0.0
	if s.dailyPnL < 0 {
		loss = -s.dailyPnL
	}

	return AccountState{
		Balance:       balance,
		Equity:        equity,
		PeakEquity:    s.peakEquity,
		OpenPositions: openPositions,
		DailyLoss:     loss,
		DailyTrades:   s.dailyTrades,
	}
}

// DailyPnL returns the realized P&L for the current UTC day.
func (s *Session) DailyPnL(t time.Time) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roll(t)
	return s.dailyPnL
}
