package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"fxscalp/feed"
	"fxscalp/logger"
	"fxscalp/market"
)

var quotesimCmd = &cobra.Command{
	Use:   "quotesim",
	Short: "Serve a simulated WebSocket quote stream",
	Long: `Quotesim broadcasts random-walk bid/ask quotes over WebSocket in the
same JSON shape the run command consumes, so the full loop can be
exercised without broker credentials.

Every connected client receives every tick; a slow client drops ticks
rather than stalling the broadcast.

Example:
  fxscalp quotesim --addr :9101 --symbols EURUSD,USDJPY --interval 250ms`,
	RunE: runQuotesim,
}

var (
	qsAddr     string
	qsSymbols  []string
	qsInterval time.Duration
	qsSpread   float64
	qsVolPips  float64
	qsSeed     int64
)

func init() {
	rootCmd.AddCommand(quotesimCmd)

	quotesimCmd.Flags().StringVar(&qsAddr, "addr", ":9101", "listen address")
	quotesimCmd.Flags().StringSliceVar(&qsSymbols, "symbols", []string{"EURUSD"}, "symbols to stream")
	quotesimCmd.Flags().DurationVar(&qsInterval, "interval", 250*time.Millisecond, "tick interval")
	quotesimCmd.Flags().Float64Var(&qsSpread, "spread", 1.0, "bid/ask spread in pips")
	quotesimCmd.Flags().Float64Var(&qsVolPips, "vol", 0.4, "per-tick volatility in pips")
	quotesimCmd.Flags().Int64Var(&qsSeed, "seed", 0, "walk seed (0 seeds from the clock)")
}

// quoteHub fans ticks out to every connected client.
type quoteHub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]chan []byte
}

func newQuoteHub() *quoteHub {
	return &quoteHub{clients: make(map[*websocket.Conn]chan []byte)}
}

func (h *quoteHub) register(conn *websocket.Conn) chan []byte {
	ch := make(chan []byte, 256)
	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()
	return ch
}

func (h *quoteHub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	if ch, ok := h.clients[conn]; ok {
		close(ch)
		delete(h.clients, conn)
	}
	h.mu.Unlock()
}

func (h *quoteHub) broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.clients {
		select {
		case ch <- msg:
		default: // slow client, drop the tick
		}
	}
}

var quoteUpgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

func quoteHandler(h *quoteHub, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := quoteUpgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("websocket upgrade failed", "error", err)
			return
		}
		log.Info("client connected", "remote", r.RemoteAddr)

		ch := h.register(conn)
		defer func() {
			h.unregister(conn)
			conn.Close()
			log.Info("client disconnected", "remote", r.RemoteAddr)
		}()

		for msg := range ch {
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}

func runQuoteGenerator(ctx context.Context, h *quoteHub, walks []*feed.TickWalk, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, w := range walks {
				t := w.Next()
				// Stamp with the wall clock; the walk's own clock only
				// spaces the series.
				msg, err := json.Marshal(feed.TickMsg{
					Symbol: t.Symbol,
					Time:   time.Now().UTC(),
					Bid:    t.Bid,
					Ask:    t.Ask,
				})
				if err != nil {
					continue
				}
				h.broadcast(msg)
			}
		}
	}
}

func runQuotesim(cmd *cobra.Command, args []string) error {
	log, err := logger.New(logger.Options{Level: "info"})
	if err != nil {
		return err
	}
	defer log.Sync()

	seed := qsSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	walks := make([]*feed.TickWalk, 0, len(qsSymbols))
	for i, symbol := range qsSymbols {
		inst, ok := market.Find(symbol)
		if !ok {
			return fmt.Errorf("unknown instrument: %s", symbol)
		}
		pip := inst.PipSize()
		walks = append(walks, feed.NewTickWalk(
			symbol, time.Now().UTC(), startingQuote(symbol),
			qsVolPips*pip, qsSpread*pip, qsInterval, seed+int64(i)))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h := newQuoteHub()
	go runQuoteGenerator(ctx, h, walks, qsInterval)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", quoteHandler(h, log))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintln(w, `{"status":"ok","service":"quotesim"}`)
	})

	srv := &http.Server{Addr: qsAddr, Handler: mux}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	fmt.Printf("quotesim streaming %s on ws://localhost%s/ws every %s\n",
		strings.Join(qsSymbols, ","), qsAddr, qsInterval)
	log.Info("quotesim started", "addr", qsAddr, "symbols", strings.Join(qsSymbols, ","))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// startingQuote returns a plausible mid price to anchor the walk.
func startingQuote(symbol string) float64 {
	prices := map[string]float64{
		"EURUSD": 1.0850,
		"GBPUSD": 1.2700,
		"USDJPY": 147.50,
		"XAUUSD": 2400.0,
	}
	if px, ok := prices[symbol]; ok {
		return px
	}
	return 1.0
}
