package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"fxscalp/backtest"
	"fxscalp/broker"
	"fxscalp/config"
	"fxscalp/feed"
	"fxscalp/logger"
	"fxscalp/market"
	"fxscalp/risk"
	"fxscalp/sim"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay historical candles through the strategy and risk gate",
	Long: `Backtest replays a candle dataset through the exact signal, risk, and
execution path the live loop uses, against the paper broker.

The dataset is a CSV file with rows of time,open,high,low,close[,volume];
.gz and .xz files are decompressed transparently. Without --data a
seeded synthetic random walk is replayed instead, which is useful for
smoke-testing a configuration.

Examples:
  fxscalp backtest -f fxscalp.yaml --data eurusd_m1.csv.gz
  fxscalp backtest -f fxscalp.yaml --data ticks.csv --from 2026-01-02T00:00:00Z
  fxscalp backtest -f fxscalp.yaml --synthetic-bars 5000 --seed 7`,
	RunE: runBacktest,
}

var (
	btConfigPath string
	btDataPath   string
	btSymbol     string
	btFrom       string
	btTo         string
	btSpread     float64
	btCloseEnd   bool
	btSynthBars  int
	btSeed       int64
	btStartPrice float64
	btVolPips    float64
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVarP(&btConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	backtestCmd.Flags().StringVarP(&btDataPath, "data", "d", "", "candle CSV file (plain, .gz or .xz)")
	backtestCmd.Flags().StringVar(&btSymbol, "symbol", "", "instrument symbol (default: first config symbol)")
	backtestCmd.Flags().StringVar(&btFrom, "from", "", "replay window start (RFC3339)")
	backtestCmd.Flags().StringVar(&btTo, "to", "", "replay window end, exclusive (RFC3339)")
	backtestCmd.Flags().Float64Var(&btSpread, "spread", 1.0, "synthetic bid/ask spread in pips")
	backtestCmd.Flags().BoolVar(&btCloseEnd, "close-end", true, "close open positions at end of replay")
	backtestCmd.Flags().IntVar(&btSynthBars, "synthetic-bars", 0, "replay N synthetic bars instead of a file")
	backtestCmd.Flags().Int64Var(&btSeed, "seed", 1, "synthetic walk seed")
	backtestCmd.Flags().Float64Var(&btStartPrice, "start-price", 1.0850, "synthetic walk starting price")
	backtestCmd.Flags().Float64Var(&btVolPips, "vol-pips", 4, "synthetic per-bar volatility in pips")

	backtestCmd.MarkFlagRequired("config")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(btConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.ApplyEnv()

	log, err := logger.New(logger.Options{
		Level: cfg.Logging.Level,
		File:  cfg.Logging.File,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	symbol := btSymbol
	if symbol == "" {
		symbol = cfg.Trading.Symbols[0]
	}
	inst, ok := market.Find(symbol)
	if !ok {
		return fmt.Errorf("unknown instrument: %s", symbol)
	}
	tf, err := market.ParseTimeframe(cfg.Trading.Timeframe)
	if err != nil {
		return err
	}

	src, err := buildBacktestFeed(symbol, tf, inst)
	if err != nil {
		return err
	}

	strat, err := cfg.Strategy.Build()
	if err != nil {
		return fmt.Errorf("build strategy: %w", err)
	}
	jrnl, err := buildJournal(cfg)
	if err != nil {
		return err
	}
	defer jrnl.Close()

	runner := &backtest.Runner{
		Feed: src,
		Broker: sim.New(broker.Account{
			ID:       cfg.Account.ID,
			Currency: cfg.Account.Currency,
			Balance:  cfg.Account.Balance,
			Equity:   cfg.Account.Balance,
		}),
		Strategy: strat,
		Gate:     risk.NewGate(cfg.Risk.Limits, cfg.Risk.Stops, risk.NewBrake()),
		Journal:  jrnl,
		Log:      log,
		Options: backtest.Options{
			Timeframe:     tf,
			SpreadPips:    btSpread,
			MinConfidence: cfg.Trading.MinConfidence,
			HistoryBars:   cfg.Trading.HistoryBars,
			CloseEnd:      btCloseEnd,
		},
	}

	fmt.Printf("Backtesting %s %s with strategy %s (balance %.2f %s)\n",
		symbol, tf, cfg.Strategy.Name, cfg.Account.Balance, cfg.Account.Currency)

	res, err := runner.Run(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("\nReplayed %d bars (%s to %s): %d signals, %d orders\n",
		res.Bars,
		res.Start.Format(time.RFC3339), res.End.Format(time.RFC3339),
		res.Signals, res.Orders)
	if res.Halted {
		fmt.Printf("EMERGENCY STOP ended the replay early: %s\n", res.HaltReason)
	}
	fmt.Println()
	fmt.Println(res.Perf.String())

	if cfg.Journal.ReportFile != "" {
		if err := res.Perf.WriteJSON(cfg.Journal.ReportFile); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Printf("✓ Report written to %s\n", cfg.Journal.ReportFile)
	}
	return nil
}

func buildBacktestFeed(symbol string, tf market.Timeframe, inst market.Instrument) (feed.Source, error) {
	if btDataPath == "" {
		if btSynthBars <= 0 {
			return nil, fmt.Errorf("either --data or --synthetic-bars is required")
		}
		start := time.Now().UTC().Truncate(24 * time.Hour).
			Add(-time.Duration(btSynthBars) * tf.Duration())
		vol := btVolPips * inst.PipSize()
		return feed.NewSynthetic(symbol, tf, start, btStartPrice, vol, btSynthBars, btSeed), nil
	}

	from, to, err := parseWindow(btFrom, btTo)
	if err != nil {
		return nil, err
	}
	if from.IsZero() && to.IsZero() {
		return feed.NewCSV(btDataPath, symbol)
	}
	return feed.NewCSVRange(btDataPath, symbol, from, to)
}

func parseWindow(fromStr, toStr string) (from, to time.Time, err error) {
	if fromStr != "" {
		from, err = time.Parse(time.RFC3339, fromStr)
		if err != nil {
			return from, to, fmt.Errorf("bad --from: %w", err)
		}
	}
	if toStr != "" {
		to, err = time.Parse(time.RFC3339, toStr)
		if err != nil {
			return from, to, fmt.Errorf("bad --to: %w", err)
		}
	}
	return from, to, nil
}
