// Package config holds the file-backed runtime configuration. Files are
// YAML with a JSON fallback; credentials never live here, only in the
// environment.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"fxscalp/market"
	"fxscalp/risk"
	"fxscalp/strategies"
)

// Config is the complete runtime configuration.
type Config struct {
	Account  AccountConfig  `json:"account" yaml:"account"`
	Feed     FeedConfig     `json:"feed" yaml:"feed"`
	Trading  TradingConfig  `json:"trading" yaml:"trading"`
	Strategy StrategyConfig `json:"strategy" yaml:"strategy"`
	Risk     RiskConfig     `json:"risk" yaml:"risk"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging"`
	Metrics  MetricsConfig  `json:"metrics" yaml:"metrics"`
}

// AccountConfig seeds the paper account.
type AccountConfig struct {
	ID       string  `json:"id" yaml:"id"`
	Currency string  `json:"currency" yaml:"currency"`
	Balance  float64 `json:"balance" yaml:"balance"`
}

// FeedConfig points at the quote stream. The token is environment-only
// and never round-trips through config files.
type FeedConfig struct {
	URL   string `json:"url,omitempty" yaml:"url,omitempty"`
	Token string `json:"-" yaml:"-"`
}

// TradingConfig shapes the engine loop. Interval fields are duration
// strings like "2s" or "90s".
type TradingConfig struct {
	Symbols        []string `json:"symbols" yaml:"symbols"`
	Timeframe      string   `json:"timeframe" yaml:"timeframe"`
	UpdateInterval string   `json:"update_interval" yaml:"update_interval"`
	EvalInterval   string   `json:"eval_interval" yaml:"eval_interval"`
	OrderSpacing   string   `json:"order_spacing" yaml:"order_spacing"`
	MinConfidence  float64  `json:"min_confidence" yaml:"min_confidence"`
	HistoryBars    int      `json:"history_bars" yaml:"history_bars"`
}

// UpdateEvery returns the engine cycle interval.
func (t TradingConfig) UpdateEvery() (time.Duration, error) {
	return parseDur(t.UpdateInterval, 2*time.Second)
}

// EvalEvery returns the per-symbol evaluation interval.
func (t TradingConfig) EvalEvery() (time.Duration, error) {
	return parseDur(t.EvalInterval, 60*time.Second)
}

// OrderEvery returns the minimum spacing between orders per symbol.
func (t TradingConfig) OrderEvery() (time.Duration, error) {
	return parseDur(t.OrderSpacing, 90*time.Second)
}

func parseDur(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	return time.ParseDuration(s)
}

// StrategyConfig names the strategy and carries its tunables. Cooldown
// is a duration string overriding the params field of the same name.
type StrategyConfig struct {
	Name     string            `json:"name" yaml:"name"`
	Cooldown string            `json:"cooldown,omitempty" yaml:"cooldown,omitempty"`
	Params   strategies.Config `json:"params" yaml:"params"`
}

// Build constructs the configured strategy.
func (s StrategyConfig) Build() (strategies.Strategy, error) {
	p := s.Params
	if s.Cooldown != "" {
		d, err := time.ParseDuration(s.Cooldown)
		if err != nil {
			return nil, fmt.Errorf("strategy.cooldown: %w", err)
		}
		p.SignalCooldown = d
	}
	return strategies.New(s.Name, p)
}

// RiskConfig bundles the gate inputs.
type RiskConfig struct {
	Limits risk.Limits     `json:"limits" yaml:"limits"`
	Stops  risk.StopPolicy `json:"stops" yaml:"stops"`
}

// JournalConfig selects the trade log backend.
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "csv" or "none"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	ReportFile string `json:"report_file,omitempty" yaml:"report_file,omitempty"`
}

// LoggingConfig maps onto logger.Options.
type LoggingConfig struct {
	Level      string `json:"level,omitempty" yaml:"level,omitempty"`
	File       string `json:"file,omitempty" yaml:"file,omitempty"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty" yaml:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty" yaml:"max_backups,omitempty"`
	MaxAgeDays int    `json:"max_age_days,omitempty" yaml:"max_age_days,omitempty"`
}

// MetricsConfig controls the /metrics + /healthz listener.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr,omitempty" yaml:"addr,omitempty"`
}

// LoadFromFile reads, parses, and validates a configuration file. The
// payload is tried as YAML first, then JSON.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes the configuration, YAML for .yaml/.yml paths and
// indented JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks the configuration field by field.
func (c *Config) Validate() error {
	if c.Account.Currency == "" {
		return fmt.Errorf("account.currency is required")
	}
	if c.Account.Balance <= 0 {
		return fmt.Errorf("account.balance must be positive")
	}

	if len(c.Trading.Symbols) == 0 {
		return fmt.Errorf("trading.symbols must list at least one instrument")
	}
	for _, sym := range c.Trading.Symbols {
		if _, ok := market.Find(sym); !ok {
			return fmt.Errorf("unknown instrument: %s", sym)
		}
	}
	if c.Trading.Timeframe != "" {
		if _, err := market.ParseTimeframe(c.Trading.Timeframe); err != nil {
			return fmt.Errorf("trading.timeframe: %w", err)
		}
	}
	if _, err := c.Trading.UpdateEvery(); err != nil {
		return fmt.Errorf("trading.update_interval: %w", err)
	}
	if _, err := c.Trading.EvalEvery(); err != nil {
		return fmt.Errorf("trading.eval_interval: %w", err)
	}
	if _, err := c.Trading.OrderEvery(); err != nil {
		return fmt.Errorf("trading.order_spacing: %w", err)
	}
	if c.Trading.MinConfidence < 0 || c.Trading.MinConfidence > 100 {
		return fmt.Errorf("trading.min_confidence must be between 0 and 100")
	}
	if c.Trading.HistoryBars < 0 {
		return fmt.Errorf("trading.history_bars must not be negative")
	}

	if _, err := c.Strategy.Build(); err != nil {
		return fmt.Errorf("strategy: %w", err)
	}

	if err := c.Risk.Limits.Validate(); err != nil {
		return err
	}
	switch c.Risk.Stops.Mode {
	case "", risk.StopFixed, risk.StopPercent, risk.StopTiered:
	default:
		return fmt.Errorf("risk.stops.mode must be %q, %q or %q",
			risk.StopFixed, risk.StopPercent, risk.StopTiered)
	}

	switch c.Journal.Type {
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal trades_file and equity_file required for csv type")
		}
	case "", "none":
	default:
		return fmt.Errorf("journal.type must be 'csv' or 'none'")
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error")
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr required when metrics are enabled")
	}
	return nil
}

// Default returns a runnable paper-trading configuration.
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			ID:       "PAPER-001",
			Currency: "USD",
			Balance:  10000,
		},
		Feed: FeedConfig{
			URL: "ws://localhost:9101/ws",
		},
		Trading: TradingConfig{
			Symbols:        []string{"EURUSD"},
			Timeframe:      "M1",
			UpdateInterval: "2s",
			EvalInterval:   "60s",
			OrderSpacing:   "90s",
			MinConfidence:  65,
			HistoryBars:    200,
		},
		Strategy: StrategyConfig{
			Name:     "scalper",
			Cooldown: "300s",
		},
		Risk: RiskConfig{
			Limits: risk.DefaultLimits(),
			Stops:  risk.DefaultStops(),
		},
		Journal: JournalConfig{
			Type:       "csv",
			TradesFile: "./trades.csv",
			EquityFile: "./equity.csv",
			ReportFile: "./session.json",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9100",
		},
	}
}
