package metrics

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Health tracks liveness facts reported by the engine and serves them
// as JSON on /healthz.
type Health struct {
	mu sync.RWMutex

	feedConnected bool
	lastTick      time.Time
	halted        bool
	haltReason    string
	startedAt     time.Time
}

// NewHealth returns a Health anchored at the current time.
func NewHealth() *Health {
	return &Health{startedAt: time.Now()}
}

func (h *Health) SetFeedConnected(v bool) {
	h.mu.Lock()
	h.feedConnected = v
	h.mu.Unlock()
}

func (h *Health) SetLastTick(t time.Time) {
	h.mu.Lock()
	h.lastTick = t
	h.mu.Unlock()
}

// SetHalted marks the engine halted. An empty reason clears the halt.
func (h *Health) SetHalted(reason string) {
	h.mu.Lock()
	h.halted = reason != ""
	h.haltReason = reason
	h.mu.Unlock()
}

// ServeHTTP handles the /healthz endpoint. Halted or disconnected
// states answer 503 so an orchestrator can see them.
func (h *Health) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "ok"
	code := http.StatusOK
	switch {
	case h.halted:
		status = "halted"
		code = http.StatusServiceUnavailable
	case !h.feedConnected:
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	tickAge := ""
	lastTick := ""
	if !h.lastTick.IsZero() {
		tickAge = time.Since(h.lastTick).Round(time.Millisecond).String()
		lastTick = h.lastTick.Format(time.RFC3339)
	}

	body := struct {
		Status        string `json:"status"`
		Uptime        string `json:"uptime"`
		FeedConnected bool   `json:"feed_connected"`
		LastTickTime  string `json:"last_tick_time"`
		TickAge       string `json:"tick_age"`
		Halted        bool   `json:"halted"`
		HaltReason    string `json:"halt_reason,omitempty"`
	}{
		Status:        status,
		Uptime:        time.Since(h.startedAt).Round(time.Second).String(),
		FeedConnected: h.feedConnected,
		LastTickTime:  lastTick,
		TickAge:       tickAge,
		Halted:        h.halted,
		HaltReason:    h.haltReason,
	}

	w.Header().Set("Content-Type", "application/json")
	if code != http.StatusOK {
		w.WriteHeader(code)
	}
	json.NewEncoder(w).Encode(body)
}
