// Package backtest replays candles through the full signal, risk, and
// execution pipeline against the paper broker. Each bar is expanded
// into an open/extreme/extreme/close tick walk so the broker's own
// stop and target triggers resolve intrabar exits, then the strategy
// is evaluated on the completed bar and accepted orders fill at the
// close. The replay is deterministic for a given feed and seed.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"fxscalp/broker"
	"fxscalp/feed"
	"fxscalp/indicators"
	"fxscalp/journal"
	"fxscalp/logger"
	"fxscalp/market"
	"fxscalp/pkg/id"
	"fxscalp/risk"
	"fxscalp/sim"
	"fxscalp/strategies"
)

// Options controls the replay.
type Options struct {
	// Timeframe of the incoming bars. Defaults to M1.
	Timeframe market.Timeframe
	// SpreadPips is the synthetic bid/ask spread applied around every
	// replayed price. Defaults to 1 pip.
	SpreadPips float64
	// MinConfidence is the entry floor. Defaults to 65.
	MinConfidence float64
	// HistoryBars caps the window handed to the strategy. Defaults to 200.
	HistoryBars int
	// CloseEnd closes every open position when the feed is exhausted.
	// The close reason is CloseReason, or SESSION_END when empty.
	CloseEnd    bool
	CloseReason string
}

func (o Options) withDefaults() Options {
	if o.Timeframe == "" {
		o.Timeframe = market.M1
	}
	if o.SpreadPips <= 0 {
		o.SpreadPips = 1.0
	}
	if o.MinConfidence <= 0 {
		o.MinConfidence = 65
	}
	if o.HistoryBars <= 0 {
		o.HistoryBars = 200
	}
	if o.CloseReason == "" {
		o.CloseReason = broker.ReasonSessionEnd
	}
	return o
}

// Result summarizes one replay.
type Result struct {
	Start        time.Time
	End          time.Time
	Bars         int
	Signals      int
	Orders       int
	FinalBalance float64
	FinalEquity  float64
	Halted       bool // an emergency stop ended the replay early
	HaltReason   string
	Perf         journal.Performance
}

// Runner drives the replay loop. Feed, Broker, Strategy, and Gate are
// required; a nil Session starts fresh at the first bar, a nil Journal
// discards records, a nil Log is silent.
type Runner struct {
	Feed     feed.Source
	Broker   *sim.Broker
	Strategy strategies.Strategy
	Gate     *risk.Gate
	Session  *risk.Session
	Journal  journal.Journal
	Log      logger.Logger
	Options  Options

	opts     Options
	currency string
	startBal float64
	conf     map[string]float64
	trades   []journal.TradeRecord
	equity   []journal.EquitySnapshot
	res      Result
}

// Run replays the feed to exhaustion, closes per Options, and reports.
// An engaged emergency brake flattens the book and ends the replay
// early; the result carries the halt reason.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	if r.Feed == nil {
		return Result{}, fmt.Errorf("backtest: feed is required")
	}
	if r.Broker == nil {
		return Result{}, fmt.Errorf("backtest: broker is required")
	}
	if r.Strategy == nil {
		return Result{}, fmt.Errorf("backtest: strategy is required")
	}
	if r.Gate == nil {
		return Result{}, fmt.Errorf("backtest: gate is required")
	}
	defer r.Feed.Close()

	r.opts = r.Options.withDefaults()
	if r.Journal == nil {
		r.Journal = journal.Nop{}
	}
	if r.Log == nil {
		r.Log = logger.NewNop()
	}
	r.conf = make(map[string]float64)
	r.res = Result{}

	acct, err := r.Broker.Account(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("backtest: account: %w", err)
	}
	r.startBal = acct.Balance
	r.currency = acct.Currency
	if r.currency == "" {
		r.currency = "USD"
	}

	r.Broker.SetCloseListener(r)

	for {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		c, err := r.Feed.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("backtest: feed: %w", err)
		}

		if r.Session == nil {
			r.Session = risk.NewSession(c.Time, acct.Equity)
		}
		if r.res.Start.IsZero() {
			r.res.Start = c.Time
		}
		r.res.End = c.Time
		r.res.Bars++

		if err := r.step(ctx, c); err != nil {
			return Result{}, err
		}
		if r.res.Halted {
			break
		}
	}

	if r.opts.CloseEnd && !r.res.Halted {
		if err := r.Broker.CloseAll(ctx, r.opts.CloseReason); err != nil {
			r.Log.Warn("close at end of replay failed", "error", err)
		}
	}

	final, err := r.Broker.Account(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("backtest: account: %w", err)
	}
	r.res.FinalBalance = final.Balance
	r.res.FinalEquity = final.Equity
	r.res.Perf = journal.Analyze(r.trades, r.equity, r.startBal)
	return r.res, nil
}

// step replays one bar: history first, then the tick walk that fires
// any resting stops and targets, then the entry decision at the close.
func (r *Runner) step(ctx context.Context, c market.Candle) error {
	inst, ok := market.Find(c.Symbol)
	if !ok {
		return fmt.Errorf("backtest: unknown instrument %s", c.Symbol)
	}

	r.Broker.PushCandle(c)

	half := r.opts.SpreadPips * inst.PipSize() / 2
	quarter := r.opts.Timeframe.Duration() / 4
	for i, px := range r.pricePath(ctx, c) {
		t := market.Tick{
			Symbol: c.Symbol,
			Time:   c.Time.Add(time.Duration(i) * quarter),
			Bid:    px - half,
			Ask:    px + half,
		}
		if err := r.Broker.UpdateTick(t); err != nil {
			return fmt.Errorf("backtest: replay tick: %w", err)
		}
	}

	now := c.Time.Add(3 * quarter)
	state, err := r.mark(ctx, now)
	if err != nil {
		return err
	}

	if r.Gate.Brake.Engaged() {
		r.halt(ctx, r.Gate.Brake.Reason())
		return nil
	}

	r.trade(ctx, now, c, inst, state)
	return nil
}

// pricePath orders the bar's extremes so the adverse one prints first
// for the current net exposure. A bar that spans both the stop and the
// target then resolves stop-first, which keeps results conservative.
func (r *Runner) pricePath(ctx context.Context, c market.Candle) [4]float64 {
	var net float64
	if open, err := r.Broker.OpenPositions(ctx); err == nil {
		for _, p := range open {
			net += float64(p.Side) * p.Lots
		}
	}
	if net < 0 {
		return [4]float64{c.Open, c.High, c.Low, c.Close}
	}
	return [4]float64{c.Open, c.Low, c.High, c.Close}
}

// mark snapshots the account after the bar's ticks and records one
// equity point.
func (r *Runner) mark(ctx context.Context, now time.Time) (risk.AccountState, error) {
	acct, err := r.Broker.Account(ctx)
	if err != nil {
		return risk.AccountState{}, fmt.Errorf("backtest: account: %w", err)
	}
	open, err := r.Broker.OpenPositions(ctx)
	if err != nil {
		return risk.AccountState{}, fmt.Errorf("backtest: positions: %w", err)
	}
	state := r.Session.Snapshot(now, acct.Balance, acct.Equity, len(open))

	snap := journal.EquitySnapshot{
		Time:     now,
		Balance:  acct.Balance,
		Equity:   acct.Equity,
		Drawdown: risk.Drawdown(state),
	}
	r.equity = append(r.equity, snap)
	if err := r.Journal.RecordEquity(snap); err != nil {
		r.Log.Error("equity record failed", "error", err)
	}
	return state, nil
}

func (r *Runner) trade(ctx context.Context, now time.Time, c market.Candle, inst market.Instrument, state risk.AccountState) {
	bars, err := r.Broker.Candles(ctx, c.Symbol, r.opts.Timeframe, r.opts.HistoryBars)
	if err != nil {
		return
	}
	sig, err := r.Strategy.GenerateSignal(bars, inst)
	if err != nil {
		if !errors.Is(err, indicators.ErrInsufficientData) {
			r.Log.Warn("strategy error", "symbol", c.Symbol, "error", err)
		}
		return
	}
	if sig.Direction != strategies.Hold {
		r.res.Signals++
	}
	if !sig.Actionable() || sig.Confidence < r.opts.MinConfidence {
		return
	}

	tick, err := r.Broker.Tick(ctx, c.Symbol)
	if err != nil {
		return
	}
	rate, err := market.QuoteToAccountRate(inst, r.currency, tick)
	if err != nil {
		r.Log.Warn("conversion rate unavailable", "symbol", c.Symbol, "error", err)
		return
	}

	d := r.Gate.Evaluate(sig, state, tick, inst, rate)
	switch d.Outcome() {
	case risk.OutcomeAccepted:
		r.submit(ctx, d, sig)
	case risk.OutcomeEmergencyStop:
		r.halt(ctx, d.Reason())
	default:
		r.Log.Debug("signal rejected", "symbol", c.Symbol, "time", now, "codes", d.Reason())
	}
}

func (r *Runner) submit(ctx context.Context, d risk.Decision, sig strategies.Signal) {
	intent := *d.Intent
	side := broker.Long
	if sig.Direction == strategies.Sell {
		side = broker.Short
	}
	oid := id.New()
	r.conf[oid] = sig.Confidence

	fill, err := r.Broker.MarketOrder(ctx, broker.OrderRequest{
		ID:         oid,
		Symbol:     intent.Symbol,
		Side:       side,
		Lots:       intent.Lots,
		StopLoss:   intent.StopLoss,
		TakeProfit: intent.TakeProfit,
	})
	if err != nil {
		delete(r.conf, oid)
		r.Log.Warn("order failed", "symbol", intent.Symbol, "error", err)
		return
	}

	r.Session.RecordOpen(fill.Time)
	r.res.Orders++
	r.Log.Debug("order filled",
		"symbol", fill.Symbol, "side", fill.Side.String(),
		"lots", fill.Lots, "price", fill.Price, "time", fill.Time)
}

// halt flattens the book and ends the replay. A backtest has no
// operator to clear the brake, so an engaged stop is terminal.
func (r *Runner) halt(ctx context.Context, reason string) {
	r.Log.Error("emergency stop engaged, ending replay", "reason", reason)
	if err := r.Broker.CloseAll(ctx, broker.ReasonEmergencyStop); err != nil {
		r.Log.Error("close all failed", "error", err)
	}
	r.res.Halted = true
	r.res.HaltReason = reason
}

// PositionClosed feeds realized results back into the session and the
// journal. The paper broker calls it for every close, including the
// stop-out and end-of-replay sweeps.
func (r *Runner) PositionClosed(tr sim.ClosedTrade) {
	conf := r.conf[tr.Position.ID]
	delete(r.conf, tr.Position.ID)

	r.Session.RecordPnL(tr.CloseTime, tr.PnL)

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
		Confidence: conf,
	}
	r.trades = append(r.trades, rec)
	if err := r.Journal.RecordTrade(rec); err != nil {
		r.Log.Error("trade record failed", "error", err)
	}
}

var _ sim.CloseListener = (*Runner)(nil)
