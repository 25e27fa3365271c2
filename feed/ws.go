package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"fxscalp/logger"
	"fxscalp/market"
)

// TickMsg is the wire shape quotes travel in, one JSON object per
// WebSocket message.
type TickMsg struct {
	Symbol string    `json:"symbol"`
	Time   time.Time `json:"time"`
	Bid    float64   `json:"bid"`
	Ask    float64   `json:"ask"`
}

// WSConfig configures the WebSocket quote client.
type WSConfig struct {
	// URL of the quote stream, e.g. "ws://localhost:9101/ws".
	URL string

	// Token, when set, is sent as a bearer Authorization header on the
	// handshake.
	Token string

	// ReconnectDelay is the initial backoff before a reconnect.
	// It doubles on each failure up to MaxReconnectDelay.
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration

	// OnReconnect runs before each reconnection attempt.
	OnReconnect func()

	Log logger.Logger
}

func (c *WSConfig) defaults() {
	if c.ReconnectDelay == 0 {
		c.ReconnectDelay = 2 * time.Second
	}
	if c.MaxReconnectDelay == 0 {
		c.MaxReconnectDelay = 30 * time.Second
	}
	if c.Log == nil {
		c.Log = logger.NewNop()
	}
}

// WSClient streams ticks from a WebSocket quote bridge, reconnecting
// with exponential backoff until its context is cancelled.
type WSClient struct {
	cfg WSConfig
}

// NewWS validates the URL and returns a client.
func NewWS(cfg WSConfig) (*WSClient, error) {
	cfg.defaults()
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("feed: bad url %q: %w", cfg.URL, err)
	}
	return &WSClient{cfg: cfg}, nil
}

// Run connects and pushes ticks into out until ctx is cancelled. A
// full channel drops the tick rather than stalling the reader.
func (c *WSClient) Run(ctx context.Context, out chan<- market.Tick) error {
	delay := c.cfg.ReconnectDelay

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		connected, err := c.runOnce(ctx, out)
		if err == nil {
			return nil
		}
		if connected {
			// The session was established, so the next failure starts
			// backing off from scratch.
			delay = c.cfg.ReconnectDelay
		}

		c.cfg.Log.Warn("quote stream disconnected", "err", err, "retry_in", delay)
		if c.cfg.OnReconnect != nil {
			c.cfg.OnReconnect()
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}

		delay *= 2
		if delay > c.cfg.MaxReconnectDelay {
			delay = c.cfg.MaxReconnectDelay
		}
	}
}

// runOnce makes a single connection attempt and reads until the socket
// drops or ctx is cancelled. connected reports whether the dial
// succeeded.
func (c *WSClient) runOnce(ctx context.Context, out chan<- market.Tick) (connected bool, _ error) {
	var hdr http.Header
	if c.cfg.Token != "" {
		hdr = http.Header{"Authorization": []string{"Bearer " + c.cfg.Token}}
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.cfg.URL, hdr)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	c.cfg.Log.Info("quote stream connected", "url", c.cfg.URL)

	// Unblocks the read loop when the context ends.
	readDone := make(chan struct{})
	defer close(readDone)
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutdown"))
			conn.Close()
		case <-readDone:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-ctx.Done():
				return true, nil
			default:
			}
			return true, err
		}

		var msg TickMsg
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.cfg.Log.Warn("bad quote message", "err", err)
			continue
		}
		if msg.Symbol == "" || msg.Bid <= 0 || msg.Ask <= 0 {
			continue
		}
		if msg.Time.IsZero() {
			msg.Time = time.Now().UTC()
		}

		t := market.Tick{Symbol: msg.Symbol, Time: msg.Time, Bid: msg.Bid, Ask: msg.Ask}
		select {
		case out <- t:
		default:
			c.cfg.Log.Warn("tick channel full, dropping", "symbol", t.Symbol)
		}
	}
}
