// Package engine drives the trading loop: snapshot the account,
// evaluate each symbol on its interval, gate the signal, and hand
// accepted intents to the broker.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"fxscalp/broker"
	"fxscalp/indicators"
	"fxscalp/journal"
	"fxscalp/logger"
	"fxscalp/market"
	"fxscalp/metrics"
	"fxscalp/pkg/id"
	"fxscalp/risk"
	"fxscalp/sim"
	"fxscalp/strategies"
)

// Options shape the loop cadence and thresholds.
type Options struct {
	Symbols       []string
	Timeframe     market.Timeframe
	UpdateEvery   time.Duration // account snapshot and scheduling tick
	EvalEvery     time.Duration // per-symbol evaluation spacing
	OrderEvery    time.Duration // minimum spacing between orders per symbol
	MinConfidence float64
	HistoryBars   int
}

func (o *Options) withDefaults() {
	if o.Timeframe == "" {
		o.Timeframe = market.M1
	}
	if o.UpdateEvery <= 0 {
		o.UpdateEvery = 2 * time.Second
	}
	if o.EvalEvery <= 0 {
		o.EvalEvery = time.Minute
	}
	if o.OrderEvery <= 0 {
		o.OrderEvery = 90 * time.Second
	}
	if o.MinConfidence == 0 {
		o.MinConfidence = 65
	}
	if o.HistoryBars <= 0 {
		o.HistoryBars = 200
	}
}

// Params collect the engine's collaborators. Metrics and Health are
// optional; Log and Journal default to no-ops.
type Params struct {
	Options  Options
	Log      logger.Logger
	Strategy strategies.Strategy
	Gate     *risk.Gate
	Session  *risk.Session
	Broker   broker.Broker
	Journal  journal.Journal
	Metrics  *metrics.Metrics
	Health   *metrics.Health
}

// Engine owns the per-symbol evaluation state. Run is driven by a
// single goroutine; PositionClosed may be called concurrently by
// whichever goroutine drives the closing tick.
type Engine struct {
	opts    Options
	log     logger.Logger
	strat   strategies.Strategy
	gate    *risk.Gate
	session *risk.Session
	brk     broker.Broker
	jrnl    journal.Journal
	met     *metrics.Metrics
	health  *metrics.Health

	syms map[string]*symbolState

	mu     sync.Mutex
	conf   map[string]float64 // order ID -> signal confidence, for the journal
	halted bool
}

type symbolState struct {
	lastEval time.Time
	orders   *rate.Limiter
}

// New validates the wiring and prepares per-symbol state.
func New(p Params) (*Engine, error) {
	if p.Strategy == nil || p.Gate == nil || p.Session == nil || p.Broker == nil {
		return nil, errors.New("engine: strategy, gate, session and broker are required")
	}
	if len(p.Options.Symbols) == 0 {
		return nil, errors.New("engine: no symbols configured")
	}
	p.Options.withDefaults()
	if p.Log == nil {
		p.Log = logger.NewNop()
	}
	if p.Journal == nil {
		p.Journal = journal.Nop{}
	}

	e := &Engine{
		opts:    p.Options,
		log:     p.Log,
		strat:   p.Strategy,
		gate:    p.Gate,
		session: p.Session,
		brk:     p.Broker,
		jrnl:    p.Journal,
		met:     p.Metrics,
		health:  p.Health,
		syms:    make(map[string]*symbolState, len(p.Options.Symbols)),
		conf:    make(map[string]float64),
	}
	for _, sym := range p.Options.Symbols {
		if _, ok := market.Find(sym); !ok {
			return nil, fmt.Errorf("engine: unknown instrument %s", sym)
		}
		e.syms[sym] = &symbolState{
			orders: rate.NewLimiter(rate.Every(e.opts.OrderEvery), 1),
		}
	}
	return e, nil
}

// Run loops until ctx is cancelled, then returns nil.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Info("engine started",
		"symbols", e.opts.Symbols,
		"timeframe", string(e.opts.Timeframe),
		"strategy", e.strat.Name(),
		"min_confidence", e.opts.MinConfidence)

	ticker := time.NewTicker(e.opts.UpdateEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.log.Info("engine stopped")
			return nil
		case now := <-ticker.C:
			e.cycle(ctx, now.UTC())
		}
	}
}

// cycle runs one scheduling pass: one account snapshot, then each
// symbol that is due.
func (e *Engine) cycle(ctx context.Context, now time.Time) {
	acct, err := e.brk.Account(ctx)
	if err != nil {
		e.log.Warn("account unavailable", "err", err)
		return
	}
	open, err := e.brk.OpenPositions(ctx)
	if err != nil {
		e.log.Warn("positions unavailable", "err", err)
		return
	}

	state := e.session.Snapshot(now, acct.Balance, acct.Equity, len(open))
	e.publishState(now, state)

	if e.gate.Brake.Engaged() {
		e.flattenOnce(ctx)
		return
	}
	e.resumeIfHalted()

	currency := acct.Currency
	if currency == "" {
		currency = "USD"
	}
	for _, sym := range e.opts.Symbols {
		e.evalSymbol(ctx, now, sym, state, currency)
	}
}

// publishState journals the equity curve point and refreshes gauges.
func (e *Engine) publishState(now time.Time, state risk.AccountState) {
	dd := risk.Drawdown(state)
	if err := e.jrnl.RecordEquity(journal.EquitySnapshot{
		Time:     now,
		Balance:  state.Balance,
		Equity:   state.Equity,
		Drawdown: dd,
	}); err != nil {
		e.log.Error("journal equity failed", "err", err)
	}

	if e.met != nil {
		e.met.Balance.Set(state.Balance)
		e.met.Equity.Set(state.Equity)
		e.met.DrawdownPct.Set(100 * dd)
		e.met.OpenPositions.Set(float64(state.OpenPositions))
		e.met.DailyPnL.Set(e.session.DailyPnL(now))
	}
}

// flattenOnce closes everything the first cycle after the brake
// engages. Later cycles keep monitoring without touching the broker.
func (e *Engine) flattenOnce(ctx context.Context) {
	e.mu.Lock()
	already := e.halted
	e.halted = true
	e.mu.Unlock()
	if already {
		return
	}

	reason := e.gate.Brake.Reason()
	e.log.Error("emergency stop engaged, flattening", "reason", reason)
	if e.met != nil {
		e.met.EmergencyStops.Inc()
	}
	if e.health != nil {
		e.health.SetHalted(reason)
	}

	if err := e.brk.CloseAll(ctx, broker.ReasonEmergencyStop); err != nil {
		e.log.Error("close all failed, will retry", "err", err)
		e.mu.Lock()
		e.halted = false
		e.mu.Unlock()
	}
}

func (e *Engine) resumeIfHalted() {
	e.mu.Lock()
	wasHalted := e.halted
	e.halted = false
	e.mu.Unlock()
	if !wasHalted {
		return
	}

	e.log.Info("emergency stop cleared, trading resumes")
	if e.health != nil {
		e.health.SetHalted("")
	}
}

func (e *Engine) evalSymbol(ctx context.Context, now time.Time, symbol string, acct risk.AccountState, currency string) {
	st := e.syms[symbol]
	if !st.lastEval.IsZero() && now.Sub(st.lastEval) < e.opts.EvalEvery {
		return
	}
	st.lastEval = now

	if e.met != nil {
		start := time.Now()
		defer func() { e.met.EvalDuration.Observe(time.Since(start).Seconds()) }()
	}

	inst, ok := market.Find(symbol)
	if !ok {
		e.log.Error("instrument vanished from the contract table", "symbol", symbol)
		return
	}

	bars, err := e.brk.Candles(ctx, symbol, e.opts.Timeframe, e.opts.HistoryBars)
	if err != nil {
		e.log.Debug("no history yet", "symbol", symbol, "err", err)
		return
	}

	sig, err := e.strat.GenerateSignal(bars, inst)
	if err != nil {
		if errors.Is(err, indicators.ErrInsufficientData) {
			e.log.Debug("warming up", "symbol", symbol, "bars", len(bars))
			return
		}
		e.log.Warn("strategy error", "symbol", symbol, "err", err)
		return
	}

	if sig.Direction != strategies.Hold && e.met != nil {
		e.met.SignalsTotal.WithLabelValues(symbol, string(sig.Direction)).Inc()
	}
	if !sig.Actionable() {
		return
	}
	if sig.Confidence < e.opts.MinConfidence {
		e.log.Debug("signal below confidence floor",
			"symbol", symbol, "direction", string(sig.Direction), "confidence", sig.Confidence)
		return
	}

	tick, err := e.brk.Tick(ctx, symbol)
	if err != nil {
		e.log.Debug("no quote yet", "symbol", symbol, "err", err)
		return
	}
	quoteToAccount, err := market.QuoteToAccountRate(inst, currency, tick)
	if err != nil {
		e.log.Warn("conversion rate unavailable", "symbol", symbol, "err", err)
		return
	}

	d := e.gate.Evaluate(sig, acct, tick, inst, quoteToAccount)
	switch d.Outcome() {
	case risk.OutcomeAccepted:
		if !st.orders.Allow() {
			e.log.Info("order spacing active, skipping entry", "symbol", symbol)
			return
		}
		e.submit(ctx, d, sig)
	case risk.OutcomeEmergencyStop:
		e.log.Error("signal hit emergency stop", "symbol", symbol, "reason", d.Reason())
		e.countRejections(d)
	default:
		e.log.Info("signal rejected",
			"symbol", symbol,
			"direction", string(sig.Direction),
			"confidence", sig.Confidence,
			"codes", d.Reason())
		e.countRejections(d)
	}
}

func (e *Engine) countRejections(d risk.Decision) {
	if e.met == nil {
		return
	}
	for _, v := range d.Violations {
		e.met.OrdersRejected.WithLabelValues(v.Code).Inc()
	}
}

// submit stamps the intent with an order ID and sends it to market.
func (e *Engine) submit(ctx context.Context, d risk.Decision, sig strategies.Signal) {
	intent := *d.Intent
	intent.ID = id.New()

	side := broker.Long
	if sig.Direction == strategies.Sell {
		side = broker.Short
	}

	e.mu.Lock()
	e.conf[intent.ID] = sig.Confidence
	e.mu.Unlock()

	fill, err := e.brk.MarketOrder(ctx, broker.OrderRequest{
		ID:         intent.ID,
		Symbol:     intent.Symbol,
		Side:       side,
		Lots:       intent.Lots,
		StopLoss:   intent.StopLoss,
		TakeProfit: intent.TakeProfit,
	})
	if err != nil {
		e.mu.Lock()
		delete(e.conf, intent.ID)
		e.mu.Unlock()
		e.log.Error("order failed", "symbol", intent.Symbol, "err", err)
		return
	}

	e.session.RecordOpen(fill.Time)
	if e.met != nil {
		e.met.OrdersAccepted.WithLabelValues(intent.Symbol).Inc()
	}
	e.log.Info("order filled",
		"symbol", intent.Symbol,
		"side", side.String(),
		"lots", intent.Lots,
		"price", fill.Price,
		"stop_loss", intent.StopLoss,
		"take_profit", intent.TakeProfit,
		"risk_amount", intent.RiskAmount,
		"confidence", sig.Confidence)
}

// PositionClosed journals every realized trade and feeds the session
// P&L counters. The paper broker calls it once per close.
func (e *Engine) PositionClosed(tr sim.ClosedTrade) {
	e.mu.Lock()
	confidence := e.conf[tr.Position.ID]
	delete(e.conf, tr.Position.ID)
	e.mu.Unlock()

	e.session.RecordPnL(tr.CloseTime, tr.PnL)

	rec := journal.TradeRecord{
		TradeID:    tr.Position.ID,
		Symbol:     tr.Position.Symbol,
		Direction:  tr.Position.Side.String(),
		Lots:       tr.Position.Lots,
		EntryPrice: tr.Position.EntryPrice,
		ExitPrice:  tr.ClosePrice,
		OpenTime:   tr.Position.OpenTime,
		CloseTime:  tr.CloseTime,
		PnL:        tr.PnL,
		Reason:     tr.Reason,
		Confidence: confidence,
	}
	if err := e.jrnl.RecordTrade(rec); err != nil {
		e.log.Error("journal trade failed", "trade", rec.TradeID, "err", err)
	}
	if e.met != nil {
		e.met.TradesClosed.WithLabelValues(tr.Reason).Inc()
	}
	e.log.Info("position closed",
		"symbol", tr.Position.Symbol,
		"side", tr.Position.Side.String(),
		"lots", tr.Position.Lots,
		"pnl", tr.PnL,
		"reason", tr.Reason)
}

var _ sim.CloseListener = (*Engine)(nil)
