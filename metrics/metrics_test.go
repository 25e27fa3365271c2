package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorsCount(t *testing.T) {
	t.Parallel()

	m := NewWith(prometheus.NewRegistry())

	m.SignalsTotal.WithLabelValues("EURUSD", "BUY").Inc()
	m.SignalsTotal.WithLabelValues("EURUSD", "BUY").Inc()
	m.OrdersAccepted.WithLabelValues("EURUSD").Inc()
	m.OrdersRejected.WithLabelValues("MAX_POSITIONS").Inc()
	m.EmergencyStops.Inc()
	m.Equity.Set(10250.5)
	m.DrawdownPct.Set(1.8)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SignalsTotal.WithLabelValues("EURUSD", "BUY")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrdersAccepted.WithLabelValues("EURUSD")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrdersRejected.WithLabelValues("MAX_POSITIONS")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EmergencyStops))
	assert.Equal(t, 10250.5, testutil.ToFloat64(m.Equity))
	assert.Equal(t, 1.8, testutil.ToFloat64(m.DrawdownPct))
}

func TestNewWithSeparateRegistries(t *testing.T) {
	t.Parallel()

	// Each registry gets its own collector set, so building twice
	// must not panic.
	NewWith(prometheus.NewRegistry())
	NewWith(prometheus.NewRegistry())
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	h := NewHealth()

	res := httptest.NewRecorder()
	h.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, res.Code, "feed starts disconnected")

	h.SetFeedConnected(true)
	h.SetLastTick(time.Now())
	res = httptest.NewRecorder()
	h.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, res.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["feed_connected"])
	assert.NotEmpty(t, body["tick_age"])
}

func TestHealthHalted(t *testing.T) {
	t.Parallel()

	h := NewHealth()
	h.SetFeedConnected(true)
	h.SetHalted("drawdown 12.0% breached limit 10.0%")

	res := httptest.NewRecorder()
	h.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusServiceUnavailable, res.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	assert.Equal(t, "halted", body["status"])
	assert.Contains(t, body["halt_reason"], "drawdown")

	h.SetHalted("")
	res = httptest.NewRecorder()
	h.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, res.Code)
}
