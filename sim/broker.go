// Package sim is the in-memory paper broker used for demo runs and
// backtests. It fills market orders at the current quote, auto-closes
// positions when a tick crosses their stop or target, and keeps
// balance and equity in account currency. Given the same tick sequence
// it produces the same fills and closes.
package sim

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"fxscalp/broker"
	"fxscalp/market"
	"fxscalp/pkg/id"
)

// historyBars is how many candles the paper broker retains per symbol
// for Candles requests.
const historyBars = 512

// ClosedTrade is one realized result, delivered to the close listener
// and kept for inspection.
type ClosedTrade struct {
	Position   broker.Position
	ClosePrice float64
	CloseTime  time.Time
	PnL        float64
	Reason     string
}

// CloseListener observes every realized trade exactly once, whether it
// closed on a stop, a target, or a manual request. The journal hangs
// off this hook. Callbacks run outside the broker lock, so a listener
// may call back into the broker.
type CloseListener interface {
	PositionClosed(ClosedTrade)
}

// Broker is the paper implementation of broker.Broker. All methods are
// safe for concurrent use behind one mutex.
type Broker struct {
	mu       sync.Mutex
	acct     broker.Account
	ticks    *market.TickStore
	candles  map[string]*market.Series
	open     map[string]*broker.Position
	closed   []ClosedTrade
	listener CloseListener
}

var _ broker.Broker = (*Broker)(nil)

// New returns a paper broker holding the given starting account.
func New(acct broker.Account) *Broker {
	if acct.Equity == 0 {
		acct.Equity = acct.Balance
	}
	return &Broker{
		acct:    acct,
		ticks:   market.NewTickStore(),
		candles: make(map[string]*market.Series),
		open:    make(map[string]*broker.Position),
	}
}

// SetCloseListener installs the realized-trade observer.
func (b *Broker) SetCloseListener(l CloseListener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listener = l
}

// Account returns the current account snapshot.
func (b *Broker) Account(ctx context.Context) (broker.Account, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.acct, nil
}

// Tick returns the latest quote for a symbol.
func (b *Broker) Tick(ctx context.Context, symbol string) (market.Tick, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ticks.Get(symbol)
}

// Candles returns up to n most recent bars, oldest first. The paper
// broker serves the single stream its feed pushes, so the timeframe
// argument is accepted for interface compatibility only.
func (b *Broker) Candles(ctx context.Context, symbol string, tf market.Timeframe, n int) ([]market.Candle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.candles[symbol]
	if !ok {
		return nil, fmt.Errorf("no candle history for %s", symbol)
	}
	bars := s.Bars()
	if n > 0 && len(bars) > n {
		bars = bars[len(bars)-n:]
	}
	return bars, nil
}

// MarketOrder fills immediately at the current quote: ask for longs,
// bid for shorts. It fails when no tick has arrived for the symbol.
func (b *Broker) MarketOrder(ctx context.Context, req broker.OrderRequest) (broker.Fill, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if req.Lots <= 0 {
		return broker.Fill{}, fmt.Errorf("market order: lots must be positive, got %.4f", req.Lots)
	}
	if req.Side != broker.Long && req.Side != broker.Short {
		return broker.Fill{}, fmt.Errorf("market order: side must be long or short, got %d", req.Side)
	}
	if _, ok := market.Find(req.Symbol); !ok {
		return broker.Fill{}, fmt.Errorf("market order: unknown symbol %q", req.Symbol)
	}
	t, err := b.ticks.Get(req.Symbol)
	if err != nil {
		return broker.Fill{}, fmt.Errorf("market order: %w", err)
	}

	price := t.Ask
	if req.Side == broker.Short {
		price = t.Bid
	}

	oid := req.ID
	if oid == "" {
		oid = id.New()
	}

	b.open[oid] = &broker.Position{
		ID:         oid,
		Symbol:     req.Symbol,
		Side:       req.Side,
		Lots:       req.Lots,
		EntryPrice: price,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
		OpenTime:   t.Time,
	}

	if err := b.revalueLocked(); err != nil {
		return broker.Fill{}, err
	}

	return broker.Fill{
		PositionID: oid,
		Symbol:     req.Symbol,
		Side:       req.Side,
		Lots:       req.Lots,
		Price:      price,
		Time:       t.Time,
	}, nil
}

// ClosePosition closes one open position at the current quote: bid for
// longs, ask for shorts.
func (b *Broker) ClosePosition(ctx context.Context, positionID, reason string) error {
	if reason == "" {
		reason = broker.ReasonManual
	}

	b.mu.Lock()
	p, ok := b.open[positionID]
	if !ok {
		b.mu.Unlock()
		return fmt.Errorf("close position: %q not found or already closed", positionID)
	}
	t, err := b.ticks.Get(p.Symbol)
	if err != nil {
		b.mu.Unlock()
		return fmt.Errorf("close position: %w", err)
	}

	price := t.Bid
	if p.Side == broker.Short {
		price = t.Ask
	}
	closeTime := t.Time
	if closeTime.IsZero() {
		closeTime = time.Now()
	}

	ct, err := b.closeLocked(p, price, closeTime, reason)
	if err != nil {
		b.mu.Unlock()
		return err
	}
	err = b.revalueLocked()
	listener := b.listener
	b.mu.Unlock()

	if listener != nil {
		listener.PositionClosed(ct)
	}
	return err
}

// CloseAll closes every open position at current quotes. It fails
// before closing anything if any needed quote is missing.
func (b *Broker) CloseAll(ctx context.Context, reason string) error {
	if reason == "" {
		reason = broker.ReasonManual
	}

	b.mu.Lock()
	open := make([]*broker.Position, 0, len(b.open))
	for _, p := range b.open {
		open = append(open, p)
	}
	if len(open) == 0 {
		b.mu.Unlock()
		return nil
	}
	sort.Slice(open, func(i, j int) bool { return open[i].ID < open[j].ID })

	for _, p := range open {
		if _, err := b.ticks.Get(p.Symbol); err != nil {
			b.mu.Unlock()
			return fmt.Errorf("close all: %w", err)
		}
	}

	var fired []ClosedTrade
	for _, p := range open {
		t, _ := b.ticks.Get(p.Symbol)
		price := t.Bid
		if p.Side == broker.Short {
			price = t.Ask
		}
		closeTime := t.Time
		if closeTime.IsZero() {
			closeTime = time.Now()
		}
		ct, err := b.closeLocked(p, price, closeTime, reason)
		if err != nil {
			b.mu.Unlock()
			return err
		}
		fired = append(fired, ct)
	}
	err := b.revalueLocked()
	listener := b.listener
	b.mu.Unlock()

	if listener != nil {
		for _, ct := range fired {
			listener.PositionClosed(ct)
		}
	}
	return err
}

// OpenPositions lists open positions, oldest first.
func (b *Broker) OpenPositions(ctx context.Context) ([]broker.Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]broker.Position, 0, len(b.open))
	for _, p := range b.open {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OpenTime.Equal(out[j].OpenTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].OpenTime.Before(out[j].OpenTime)
	})
	return out, nil
}

// Closed returns every realized trade so far, oldest first.
func (b *Broker) Closed() []ClosedTrade {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]ClosedTrade, len(b.closed))
	copy(out, b.closed)
	return out
}

// PushCandle appends a bar to the symbol's history window.
func (b *Broker) PushCandle(c market.Candle) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.candles[c.Symbol]
	if !ok {
		s = market.NewSeries(historyBars)
		b.candles[c.Symbol] = s
	}
	s.Append(c)
}

// UpdateTick stores the quote, auto-closes any position whose stop or
// target the tick crossed, and revalues equity. A gap through a level
// fills at the gapped price, not the level. Listener callbacks fire
// after the lock is released, in position ID order.
func (b *Broker) UpdateTick(t market.Tick) error {
	b.mu.Lock()
	b.ticks.Set(t)

	var fired []ClosedTrade
	for _, p := range b.openForSymbolLocked(t.Symbol) {
		mark := t.Bid
		if p.Side == broker.Short {
			mark = t.Ask
		}

		reason := ""
		switch {
		case hitStopLoss(*p, mark):
			reason = broker.ReasonStopLoss
		case hitTakeProfit(*p, mark):
			reason = broker.ReasonTakeProfit
		}
		if reason == "" {
			continue
		}

		ct, err := b.closeLocked(p, mark, t.Time, reason)
		if err != nil {
			b.mu.Unlock()
			return err
		}
		fired = append(fired, ct)
	}

	err := b.revalueLocked()
	listener := b.listener
	b.mu.Unlock()

	if listener != nil {
		for _, ct := range fired {
			listener.PositionClosed(ct)
		}
	}
	return err
}

func (b *Broker) openForSymbolLocked(symbol string) []*broker.Position {
	out := make([]*broker.Position, 0, len(b.open))
	for _, p := range b.open {
		if p.Symbol == symbol {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// closeLocked realizes a position at price, moves it to the closed
// list, and folds the P&L into the balance. Callers hold b.mu and
// revalue afterwards.
func (b *Broker) closeLocked(p *broker.Position, price float64, closeTime time.Time, reason string) (ClosedTrade, error) {
	inst, ok := market.Find(p.Symbol)
	if !ok {
		return ClosedTrade{}, fmt.Errorf("close: unknown symbol %q", p.Symbol)
	}
	t, err := b.ticks.Get(p.Symbol)
	if err != nil {
		return ClosedTrade{}, fmt.Errorf("close: %w", err)
	}
	rate, err := market.QuoteToAccountRate(inst, b.acct.Currency, t)
	if err != nil {
		return ClosedTrade{}, fmt.Errorf("close: %w", err)
	}

	pnl := PnL(p.Side, p.Lots, inst.ContractSize, p.EntryPrice, price, rate)
	b.acct.Balance += pnl
	delete(b.open, p.ID)

	ct := ClosedTrade{
		Position:   *p,
		ClosePrice: price,
		CloseTime:  closeTime,
		PnL:        pnl,
		Reason:     reason,
	}
	b.closed = append(b.closed, ct)
	return ct, nil
}

// revalueLocked recomputes equity as balance plus unrealized P&L over
// every open position, marked at the closeable side of the quote.
func (b *Broker) revalueLocked() error {
	equity := b.acct.Balance

	for _, p := range b.open {
		inst, ok := market.Find(p.Symbol)
		if !ok {
			return fmt.Errorf("revalue: unknown symbol %q", p.Symbol)
		}
		t, err := b.ticks.Get(p.Symbol)
		if err != nil {
			return fmt.Errorf("revalue: %w", err)
		}

		mark := t.Bid
		if p.Side == broker.Short {
			mark = t.Ask
		}
		rate, err := market.QuoteToAccountRate(inst, b.acct.Currency, t)
		if err != nil {
			return fmt.Errorf("revalue: %w", err)
		}

		equity += PnL(p.Side, p.Lots, inst.ContractSize, p.EntryPrice, mark, rate)
	}

	b.acct.Equity = equity
	return nil
}
