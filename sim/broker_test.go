package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxscalp/broker"
	"fxscalp/market"
)

type recorder struct {
	closed []ClosedTrade
}

func (r *recorder) PositionClosed(ct ClosedTrade) { r.closed = append(r.closed, ct) }

func newBroker(t *testing.T, balance float64) *Broker {
	t.Helper()
	return New(broker.Account{ID: "paper-1", Currency: "USD", Balance: balance})
}

func setTick(t *testing.T, b *Broker, symbol string, bid, ask float64, tm time.Time) {
	t.Helper()
	require.NoError(t, b.UpdateTick(market.Tick{Symbol: symbol, Time: tm, Bid: bid, Ask: ask}))
}

func open(t *testing.T, b *Broker, req broker.OrderRequest) broker.Fill {
	t.Helper()
	fill, err := b.MarketOrder(context.Background(), req)
	require.NoError(t, err)
	return fill
}

var (
	t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Minute)
)

func TestMarketOrderFillSides(t *testing.T) {
	t.Parallel()

	b := newBroker(t, 100000)
	setTick(t, b, "EURUSD", 1.1000, 1.1002, t0)

	long := open(t, b, broker.OrderRequest{Symbol: "EURUSD", Side: broker.Long, Lots: 1})
	assert.InDelta(t, 1.1002, long.Price, 1e-9, "longs fill at the ask")

	short := open(t, b, broker.OrderRequest{Symbol: "EURUSD", Side: broker.Short, Lots: 1})
	assert.InDelta(t, 1.1000, short.Price, 1e-9, "shorts fill at the bid")

	positions, err := b.OpenPositions(context.Background())
	require.NoError(t, err)
	assert.Len(t, positions, 2)
}

func TestMarketOrderValidation(t *testing.T) {
	t.Parallel()

	b := newBroker(t, 100000)
	ctx := context.Background()

	_, err := b.MarketOrder(ctx, broker.OrderRequest{Symbol: "EURUSD", Side: broker.Long, Lots: 0})
	assert.ErrorContains(t, err, "lots must be positive")

	_, err = b.MarketOrder(ctx, broker.OrderRequest{Symbol: "BTCUSD", Side: broker.Long, Lots: 1})
	assert.ErrorContains(t, err, "unknown symbol")

	// No tick yet for a known symbol.
	_, err = b.MarketOrder(ctx, broker.OrderRequest{Symbol: "EURUSD", Side: broker.Long, Lots: 1})
	assert.ErrorContains(t, err, "no tick")
}

func TestMarketOrderKeepsCallerID(t *testing.T) {
	t.Parallel()

	b := newBroker(t, 100000)
	setTick(t, b, "EURUSD", 1.1000, 1.1002, t0)

	fill := open(t, b, broker.OrderRequest{ID: "01ARZ3NDEKTSV4RRFFQ69G5FAV", Symbol: "EURUSD", Side: broker.Long, Lots: 0.5})
	assert.Equal(t, "01ARZ3NDEKTSV4RRFFQ69G5FAV", fill.PositionID)

	// Without a caller ID the broker mints one.
	other := open(t, b, broker.OrderRequest{Symbol: "EURUSD", Side: broker.Long, Lots: 0.5})
	assert.NotEmpty(t, other.PositionID)
	assert.NotEqual(t, fill.PositionID, other.PositionID)
}

func TestRevalueLongEURUSD(t *testing.T) {
	t.Parallel()

	b := newBroker(t, 100000)
	setTick(t, b, "EURUSD", 1.1000, 1.1002, t0)
	open(t, b, broker.OrderRequest{Symbol: "EURUSD", Side: broker.Long, Lots: 1})

	setTick(t, b, "EURUSD", 1.1010, 1.1012, t1)

	acct, err := b.Account(context.Background())
	require.NoError(t, err)

	// Entry at ask 1.1002, marked at bid 1.1010: 8 pips on one lot.
	assert.InDelta(t, 100000.0, acct.Balance, 1e-6)
	assert.InDelta(t, 100000.0+100000*(1.1010-1.1002), acct.Equity, 1e-6)
}

func TestRevalueUSDJPYConvertsToAccountCurrency(t *testing.T) {
	t.Parallel()

	b := newBroker(t, 100000)
	setTick(t, b, "USDJPY", 150.00, 150.02, t0)
	open(t, b, broker.OrderRequest{Symbol: "USDJPY", Side: broker.Long, Lots: 1})

	setTick(t, b, "USDJPY", 150.22, 150.24, t1)

	acct, err := b.Account(context.Background())
	require.NoError(t, err)

	plJPY := 100000 * (150.22 - 150.02)
	mid := (150.22 + 150.24) / 2
	assert.InDelta(t, 100000.0+plJPY/mid, acct.Equity, 1e-3)
}

func TestStopLossClosesLongOnBid(t *testing.T) {
	t.Parallel()

	b := newBroker(t, 100000)
	rec := &recorder{}
	b.SetCloseListener(rec)

	setTick(t, b, "EURUSD", 1.1000, 1.1002, t0)
	fill := open(t, b, broker.OrderRequest{Symbol: "EURUSD", Side: broker.Long, Lots: 1, StopLoss: 1.0990})

	// Bid touches the stop.
	setTick(t, b, "EURUSD", 1.0990, 1.0992, t1)

	positions, err := b.OpenPositions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, positions)

	require.Len(t, rec.closed, 1)
	ct := rec.closed[0]
	assert.Equal(t, fill.PositionID, ct.Position.ID)
	assert.Equal(t, broker.ReasonStopLoss, ct.Reason)
	assert.InDelta(t, 1.0990, ct.ClosePrice, 1e-9)
	assert.InDelta(t, 100000*(1.0990-1.1002), ct.PnL, 1e-9)

	acct, err := b.Account(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 100000.0+ct.PnL, acct.Balance, 1e-6)
	assert.InDelta(t, acct.Balance, acct.Equity, 1e-6, "flat account: equity equals balance")
}

func TestTakeProfitClosesShortOnAsk(t *testing.T) {
	t.Parallel()

	b := newBroker(t, 100000)
	rec := &recorder{}
	b.SetCloseListener(rec)

	setTick(t, b, "EURUSD", 1.1000, 1.1002, t0)
	open(t, b, broker.OrderRequest{Symbol: "EURUSD", Side: broker.Short, Lots: 1, TakeProfit: 1.0980})

	// Ask reaches the target.
	setTick(t, b, "EURUSD", 1.0978, 1.0980, t1)

	require.Len(t, rec.closed, 1)
	ct := rec.closed[0]
	assert.Equal(t, broker.ReasonTakeProfit, ct.Reason)
	assert.InDelta(t, -100000*(1.0980-1.1000), ct.PnL, 1e-9)
	assert.Positive(t, ct.PnL)
}

func TestGapFillsAtGappedPrice(t *testing.T) {
	t.Parallel()

	b := newBroker(t, 100000)
	setTick(t, b, "EURUSD", 1.1000, 1.1002, t0)
	open(t, b, broker.OrderRequest{Symbol: "EURUSD", Side: broker.Long, Lots: 1, StopLoss: 1.0990})

	// The market gaps 30 pips through the stop.
	setTick(t, b, "EURUSD", 1.0970, 1.0972, t1)

	closed := b.Closed()
	require.Len(t, closed, 1)
	assert.InDelta(t, 1.0970, closed[0].ClosePrice, 1e-9, "gap fills at the traded price, not the level")
}

func TestManualCloseNotifiesListener(t *testing.T) {
	t.Parallel()

	b := newBroker(t, 100000)
	rec := &recorder{}
	b.SetCloseListener(rec)

	setTick(t, b, "EURUSD", 1.1000, 1.1002, t0)
	fill := open(t, b, broker.OrderRequest{Symbol: "EURUSD", Side: broker.Long, Lots: 0.5})

	require.NoError(t, b.ClosePosition(context.Background(), fill.PositionID, ""))

	require.Len(t, rec.closed, 1)
	assert.Equal(t, broker.ReasonManual, rec.closed[0].Reason)

	err := b.ClosePosition(context.Background(), fill.PositionID, "")
	assert.ErrorContains(t, err, "not found or already closed")
}

func TestCloseAllRealizesEverything(t *testing.T) {
	t.Parallel()

	b := newBroker(t, 100000)
	rec := &recorder{}
	b.SetCloseListener(rec)

	setTick(t, b, "EURUSD", 1.1000, 1.1002, t0)
	setTick(t, b, "USDJPY", 150.00, 150.02, t0)
	open(t, b, broker.OrderRequest{Symbol: "EURUSD", Side: broker.Long, Lots: 1})
	open(t, b, broker.OrderRequest{Symbol: "USDJPY", Side: broker.Short, Lots: 0.5})

	require.NoError(t, b.CloseAll(context.Background(), broker.ReasonEmergencyStop))

	positions, err := b.OpenPositions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, positions)

	require.Len(t, rec.closed, 2)
	for _, ct := range rec.closed {
		assert.Equal(t, broker.ReasonEmergencyStop, ct.Reason)
	}

	acct, err := b.Account(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, acct.Balance, acct.Equity, 1e-6)
}

func TestCandlesServesRecentWindow(t *testing.T) {
	t.Parallel()

	b := newBroker(t, 100000)
	for i := 0; i < 6; i++ {
		b.PushCandle(market.Candle{
			Symbol: "EURUSD",
			Time:   t0.Add(time.Duration(i) * time.Minute),
			Open:   1.1, High: 1.2, Low: 1.0, Close: 1.15,
		})
	}

	bars, err := b.Candles(context.Background(), "EURUSD", market.M1, 4)
	require.NoError(t, err)
	require.Len(t, bars, 4)
	assert.Equal(t, t0.Add(2*time.Minute), bars[0].Time)
	assert.Equal(t, t0.Add(5*time.Minute), bars[3].Time)

	_, err = b.Candles(context.Background(), "GBPUSD", market.M1, 4)
	assert.ErrorContains(t, err, "no candle history")
}
