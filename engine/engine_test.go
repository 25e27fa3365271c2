package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxscalp/broker"
	"fxscalp/indicators"
	"fxscalp/journal"
	"fxscalp/market"
	"fxscalp/risk"
	"fxscalp/sim"
	"fxscalp/strategies"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// stubStrategy returns a fixed signal so the tests control the gate
// input exactly.
type stubStrategy struct {
	sig strategies.Signal
	err error
}

func (s stubStrategy) Name() string { return "stub" }
func (s stubStrategy) Warmup() int  { return 1 }

func (s stubStrategy) GenerateSignal(history []market.Candle, inst market.Instrument) (strategies.Signal, error) {
	if s.err != nil {
		return strategies.Signal{}, s.err
	}
	sig := s.sig
	sig.Symbol = inst.Symbol
	if len(history) > 0 {
		last := history[len(history)-1]
		sig.Price = last.Close
		sig.Time = last.Time
	}
	return sig, nil
}

func newTestEngine(t *testing.T, strat strategies.Strategy, opts Options) (*Engine, *sim.Broker, *journal.Memory, *risk.Brake) {
	t.Helper()

	b := sim.New(broker.Account{ID: "T-1", Currency: "USD", Balance: 10000, Equity: 10000})
	brake := risk.NewBrake()
	gate := risk.NewGate(risk.DefaultLimits(), risk.DefaultStops(), brake)
	mem := &journal.Memory{}

	if opts.Symbols == nil {
		opts.Symbols = []string{"EURUSD"}
	}
	e, err := New(Params{
		Options:  opts,
		Strategy: strat,
		Gate:     gate,
		Session:  risk.NewSession(t0, 10000),
		Broker:   b,
		Journal:  mem,
	})
	require.NoError(t, err)
	b.SetCloseListener(e)
	return e, b, mem, brake
}

func primeMarket(t *testing.T, b *sim.Broker, bid, ask float64) {
	t.Helper()

	require.NoError(t, b.UpdateTick(market.Tick{Symbol: "EURUSD", Time: t0, Bid: bid, Ask: ask}))
	b.PushCandle(market.Candle{
		Symbol: "EURUSD",
		Time:   t0.Add(-time.Minute),
		Open:   bid, High: ask, Low: bid, Close: ask,
	})
}

func openCount(t *testing.T, b *sim.Broker) int {
	t.Helper()

	open, err := b.OpenPositions(context.Background())
	require.NoError(t, err)
	return len(open)
}

func TestCycleSubmitsAcceptedOrder(t *testing.T) {
	t.Parallel()

	strat := stubStrategy{sig: strategies.Signal{Direction: strategies.Buy, Confidence: 80}}
	e, b, mem, _ := newTestEngine(t, strat, Options{})
	primeMarket(t, b, 1.0850, 1.0851)

	e.cycle(context.Background(), t0)

	open, err := b.OpenPositions(context.Background())
	require.NoError(t, err)
	require.Len(t, open, 1)

	p := open[0]
	assert.Equal(t, broker.Long, p.Side)
	assert.InDelta(t, 0.50, p.Lots, 1e-9)
	assert.InDelta(t, 1.0851, p.EntryPrice, 1e-9)
	assert.InDelta(t, 1.0831, p.StopLoss, 1e-9)
	assert.InDelta(t, 1.0891, p.TakeProfit, 1e-9)
	assert.NotEmpty(t, p.ID)

	require.Len(t, mem.Equity, 1, "equity curve gets a point every cycle")
	assert.Equal(t, 10000.0, mem.Equity[0].Equity)
}

func TestCycleEvalAndOrderSpacing(t *testing.T) {
	t.Parallel()

	strat := stubStrategy{sig: strategies.Signal{Direction: strategies.Buy, Confidence: 80}}
	e, b, _, _ := newTestEngine(t, strat, Options{EvalEvery: time.Minute, OrderEvery: time.Hour})
	primeMarket(t, b, 1.0850, 1.0851)

	e.cycle(context.Background(), t0)
	require.Equal(t, 1, openCount(t, b))

	// Within the evaluation interval the symbol is skipped entirely.
	e.cycle(context.Background(), t0.Add(time.Second))
	assert.Equal(t, 1, openCount(t, b))

	// Due again, but the order limiter still holds its one burst.
	e.cycle(context.Background(), t0.Add(61*time.Second))
	assert.Equal(t, 1, openCount(t, b))
}

func TestCycleRejectsLowConfidence(t *testing.T) {
	t.Parallel()

	strat := stubStrategy{sig: strategies.Signal{Direction: strategies.Buy, Confidence: 50}}
	e, b, mem, _ := newTestEngine(t, strat, Options{})
	primeMarket(t, b, 1.0850, 1.0851)

	e.cycle(context.Background(), t0)

	assert.Equal(t, 0, openCount(t, b))
	assert.Empty(t, mem.Trades)
}

func TestCycleMaxPositionsStopsStrongSignal(t *testing.T) {
	t.Parallel()

	strat := stubStrategy{sig: strategies.Signal{Direction: strategies.Buy, Confidence: 90}}
	e, b, _, _ := newTestEngine(t, strat, Options{})
	primeMarket(t, b, 1.0850, 1.0851)

	for i := 0; i < 5; i++ {
		_, err := b.MarketOrder(context.Background(), broker.OrderRequest{
			Symbol: "EURUSD", Side: broker.Long, Lots: 0.01,
		})
		require.NoError(t, err)
	}

	e.cycle(context.Background(), t0)
	assert.Equal(t, 5, openCount(t, b), "confidence 90 does not override the position cap")
}

func TestCycleStrategyErrorsAreSkipped(t *testing.T) {
	t.Parallel()

	strat := stubStrategy{err: indicators.ErrInsufficientData}
	e, b, _, _ := newTestEngine(t, strat, Options{})
	primeMarket(t, b, 1.0850, 1.0851)

	e.cycle(context.Background(), t0)
	assert.Equal(t, 0, openCount(t, b))
}

func TestCycleBrakeFlattensOnce(t *testing.T) {
	t.Parallel()

	strat := stubStrategy{sig: strategies.Signal{Direction: strategies.Buy, Confidence: 80}}
	e, b, mem, brake := newTestEngine(t, strat, Options{EvalEvery: time.Second, OrderEvery: time.Nanosecond})
	primeMarket(t, b, 1.0850, 1.0851)

	e.cycle(context.Background(), t0)
	require.Equal(t, 1, openCount(t, b))

	brake.Trip("manual risk-off")

	e.cycle(context.Background(), t0.Add(time.Second))
	assert.Equal(t, 0, openCount(t, b), "engaged brake flattens the book")
	require.Len(t, b.Closed(), 1)
	assert.Equal(t, broker.ReasonEmergencyStop, b.Closed()[0].Reason)

	// Still engaged: monitoring continues, no new close attempts.
	e.cycle(context.Background(), t0.Add(2*time.Second))
	assert.Len(t, b.Closed(), 1)

	// The journal saw the flattened trade with its entry confidence.
	require.Len(t, mem.Trades, 1)
	assert.Equal(t, broker.ReasonEmergencyStop, mem.Trades[0].Reason)
	assert.Equal(t, 80.0, mem.Trades[0].Confidence)

	// Cleared externally: trading resumes.
	brake.Clear()
	e.cycle(context.Background(), t0.Add(3*time.Second))
	assert.Equal(t, 1, openCount(t, b))
}

func TestStopLossCloseReachesJournal(t *testing.T) {
	t.Parallel()

	strat := stubStrategy{sig: strategies.Signal{Direction: strategies.Buy, Confidence: 80}}
	e, b, mem, _ := newTestEngine(t, strat, Options{})
	primeMarket(t, b, 1.0850, 1.0851)

	e.cycle(context.Background(), t0)
	require.Equal(t, 1, openCount(t, b))

	// Bid touches the 20-pip stop exactly.
	require.NoError(t, b.UpdateTick(market.Tick{
		Symbol: "EURUSD", Time: t0.Add(5 * time.Minute), Bid: 1.0831, Ask: 1.0832,
	}))

	require.Equal(t, 0, openCount(t, b))
	require.Len(t, mem.Trades, 1)

	rec := mem.Trades[0]
	assert.Equal(t, broker.ReasonStopLoss, rec.Reason)
	assert.Equal(t, "BUY", rec.Direction)
	assert.InDelta(t, -100.0, rec.PnL, 1e-6)
	assert.Equal(t, 80.0, rec.Confidence)
	assert.Equal(t, t0.Add(5*time.Minute), rec.CloseTime)

	acct, err := b.Account(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 9900.0, acct.Balance, 1e-6)
	assert.InDelta(t, acct.Balance, acct.Equity, 1e-6)
}

type fakeSink struct {
	mu    sync.Mutex
	fail  bool
	ticks []market.Tick
	bars  []market.Candle
}

func (f *fakeSink) UpdateTick(t market.Tick) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("no such instrument")
	}
	f.ticks = append(f.ticks, t)
	return nil
}

func (f *fakeSink) PushCandle(c market.Candle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bars = append(f.bars, c)
}

func TestPumpFoldsTicksIntoBars(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{}
	ticks := make(chan market.Tick)
	done := make(chan struct{})
	go func() {
		Pump(context.Background(), ticks, sink, market.M1, nil, nil, nil)
		close(done)
	}()

	for _, sec := range []int{5, 20, 40} {
		ticks <- market.Tick{Symbol: "EURUSD", Time: t0.Add(time.Duration(sec) * time.Second), Bid: 1.0850, Ask: 1.0851}
	}
	// First tick of the next minute closes the first bar.
	ticks <- market.Tick{Symbol: "EURUSD", Time: t0.Add(70 * time.Second), Bid: 1.0853, Ask: 1.0854}
	close(ticks)
	<-done

	assert.Len(t, sink.ticks, 4)
	require.Len(t, sink.bars, 1)
	assert.Equal(t, t0, sink.bars[0].Time)
	assert.Equal(t, 3.0, sink.bars[0].Volume)
}

func TestPumpSkipsRejectedTicks(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{fail: true}
	ticks := make(chan market.Tick, 1)
	ticks <- market.Tick{Symbol: "NOPE", Time: t0, Bid: 1, Ask: 1.0001}
	close(ticks)

	Pump(context.Background(), ticks, sink, market.M1, nil, nil, nil)
	assert.Empty(t, sink.bars)
}

func TestNewValidatesWiring(t *testing.T) {
	t.Parallel()

	_, err := New(Params{})
	assert.ErrorContains(t, err, "required")

	b := sim.New(broker.Account{Currency: "USD", Balance: 1000, Equity: 1000})
	_, err = New(Params{
		Options:  Options{Symbols: []string{"DOGEUSD"}},
		Strategy: stubStrategy{},
		Gate:     risk.NewGate(risk.DefaultLimits(), risk.DefaultStops(), nil),
		Session:  risk.NewSession(t0, 1000),
		Broker:   b,
	})
	assert.ErrorContains(t, err, "unknown instrument")
}
