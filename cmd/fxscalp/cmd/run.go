package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"fxscalp/broker"
	"fxscalp/config"
	"fxscalp/engine"
	"fxscalp/feed"
	"fxscalp/journal"
	"fxscalp/logger"
	"fxscalp/market"
	"fxscalp/metrics"
	"fxscalp/risk"
	"fxscalp/sim"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the live paper-trading loop against a quote stream",
	Long: `Run the trading loop: subscribe to the configured WebSocket quote
stream, fold ticks into candles, evaluate the strategy on each
completed bar, and pass every actionable signal through the risk gate
before placing it on the paper book.

Credentials and endpoint overrides come from the environment
(FXSCALP_FEED_URL, FXSCALP_FEED_TOKEN); the config file never carries
secrets.

Example:
  fxscalp run -f fxscalp.yaml`,
	RunE: runRun,
}

var runConfigPath string

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	runCmd.MarkFlagRequired("config")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.ApplyEnv()

	log, err := logger.New(logger.Options{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		met    *metrics.Metrics
		health *metrics.Health
	)
	if cfg.Metrics.Enabled {
		met = metrics.New()
		health = metrics.NewHealth()
		msrv := metrics.NewServer(cfg.Metrics.Addr, health, log)
		msrv.Start()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := msrv.Stop(sctx); err != nil {
				log.Warn("metrics server shutdown", "error", err)
			}
		}()
	}

	jrnl, err := buildJournal(cfg)
	if err != nil {
		return err
	}
	defer jrnl.Close()

	strat, err := cfg.Strategy.Build()
	if err != nil {
		return fmt.Errorf("build strategy: %w", err)
	}

	tf, err := market.ParseTimeframe(cfg.Trading.Timeframe)
	if err != nil {
		return err
	}
	updateEvery, err := cfg.Trading.UpdateEvery()
	if err != nil {
		return err
	}
	evalEvery, err := cfg.Trading.EvalEvery()
	if err != nil {
		return err
	}
	orderEvery, err := cfg.Trading.OrderEvery()
	if err != nil {
		return err
	}

	paper := sim.New(broker.Account{
		ID:       cfg.Account.ID,
		Currency: cfg.Account.Currency,
		Balance:  cfg.Account.Balance,
		Equity:   cfg.Account.Balance,
	})

	eng, err := engine.New(engine.Params{
		Options: engine.Options{
			Symbols:       cfg.Trading.Symbols,
			Timeframe:     tf,
			UpdateEvery:   updateEvery,
			EvalEvery:     evalEvery,
			OrderEvery:    orderEvery,
			MinConfidence: cfg.Trading.MinConfidence,
			HistoryBars:   cfg.Trading.HistoryBars,
		},
		Log:      log,
		Strategy: strat,
		Gate:     risk.NewGate(cfg.Risk.Limits, cfg.Risk.Stops, risk.NewBrake()),
		Session:  risk.NewSession(time.Now().UTC(), cfg.Account.Balance),
		Broker:   paper,
		Journal:  jrnl,
		Metrics:  met,
		Health:   health,
	})
	if err != nil {
		return err
	}
	paper.SetCloseListener(eng)

	ws, err := feed.NewWS(feed.WSConfig{
		URL:   cfg.Feed.URL,
		Token: cfg.Feed.Token,
		Log:   log,
		OnReconnect: func() {
			if met != nil {
				met.FeedReconnects.Inc()
			}
			if health != nil {
				health.SetFeedConnected(false)
			}
		},
	})
	if err != nil {
		return fmt.Errorf("quote feed: %w", err)
	}

	ticks := make(chan market.Tick, 256)
	go func() {
		defer close(ticks)
		if err := ws.Run(ctx, ticks); err != nil {
			log.Error("quote stream stopped", "error", err)
		}
	}()
	go engine.Pump(ctx, ticks, paper, tf, met, health, log)

	fmt.Printf("Paper trading %s on account %s (%.2f %s), feed %s\n",
		strings.Join(cfg.Trading.Symbols, ","), cfg.Account.ID,
		cfg.Account.Balance, cfg.Account.Currency, cfg.Feed.URL)
	fmt.Println("Press Ctrl-C to stop.")

	if err := eng.Run(ctx); err != nil {
		return err
	}

	acct, err := paper.Account(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("\nSession over: %d trades closed, balance %.2f %s, equity %.2f\n",
		len(paper.Closed()), acct.Balance, acct.Currency, acct.Equity)
	return nil
}

func buildJournal(cfg *config.Config) (journal.Journal, error) {
	switch cfg.Journal.Type {
	case "csv":
		j, err := journal.NewCSV(cfg.Journal.TradesFile, cfg.Journal.EquityFile)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		return j, nil
	default:
		return journal.Nop{}, nil
	}
}
