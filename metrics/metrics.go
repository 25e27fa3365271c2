// Package metrics exposes Prometheus instrumentation for the trading
// pipeline and the HTTP server that publishes it.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors tracked by the engine.
type Metrics struct {
	SignalsTotal   *prometheus.CounterVec // labels: symbol, direction
	OrdersAccepted *prometheus.CounterVec // labels: symbol
	OrdersRejected *prometheus.CounterVec // labels: code
	EmergencyStops prometheus.Counter
	TradesClosed   *prometheus.CounterVec // labels: reason
	TicksTotal     prometheus.Counter
	FeedReconnects prometheus.Counter

	Balance       prometheus.Gauge
	Equity        prometheus.Gauge
	DrawdownPct   prometheus.Gauge
	OpenPositions prometheus.Gauge
	DailyPnL      prometheus.Gauge

	EvalDuration prometheus.Histogram
}

// New registers the collectors with the default Prometheus registry.
func New() *Metrics { return NewWith(prometheus.DefaultRegisterer) }

// NewWith registers the collectors with reg. Tests pass their own
// registry so repeated construction does not collide.
func NewWith(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fxscalp_signals_total",
			Help: "Signals produced by the strategy, by symbol and direction",
		}, []string{"symbol", "direction"}),
		OrdersAccepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fxscalp_orders_accepted_total",
			Help: "Order intents that cleared the risk gate",
		}, []string{"symbol"}),
		OrdersRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fxscalp_orders_rejected_total",
			Help: "Risk gate rejections by violation code",
		}, []string{"code"}),
		EmergencyStops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fxscalp_emergency_stops_total",
			Help: "Times the emergency brake tripped",
		}),
		TradesClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fxscalp_trades_closed_total",
			Help: "Positions closed, by close reason",
		}, []string{"reason"}),
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fxscalp_ticks_total",
			Help: "Ticks received from the price feed",
		}),
		FeedReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fxscalp_feed_reconnects_total",
			Help: "Price feed reconnection attempts",
		}),
		Balance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fxscalp_account_balance",
			Help: "Account balance in account currency",
		}),
		Equity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fxscalp_account_equity",
			Help: "Account equity in account currency",
		}),
		DrawdownPct: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fxscalp_drawdown_pct",
			Help: "Drawdown from peak equity, in percent",
		}),
		OpenPositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fxscalp_open_positions",
			Help: "Currently open positions",
		}),
		DailyPnL: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fxscalp_daily_pnl",
			Help: "Realized profit and loss for the current UTC day",
		}),
		EvalDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fxscalp_evaluation_duration_seconds",
			Help:    "Latency of one strategy evaluation and risk gate pass",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		}),
	}

	reg.MustRegister(
		m.SignalsTotal,
		m.OrdersAccepted,
		m.OrdersRejected,
		m.EmergencyStops,
		m.TradesClosed,
		m.TicksTotal,
		m.FeedReconnects,
		m.Balance,
		m.Equity,
		m.DrawdownPct,
		m.OpenPositions,
		m.DailyPnL,
		m.EvalDuration,
	)

	return m
}
