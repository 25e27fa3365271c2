// Package strategies turns candle history into trade signals. A strategy
// only decides; sizing, limit checks, and order placement belong to the
// risk gate and the engine.
package strategies

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"fxscalp/market"
)

// Strategy is the signal-generation capability. GenerateSignal must be
// deterministic for the same history and must not touch external state.
type Strategy interface {
	// Name returns the registry name the strategy was built under.
	Name() string

	// Warmup returns how many bars of history the strategy needs before
	// it can produce a non-HOLD signal. The engine sizes windows with it.
	Warmup() int

	// GenerateSignal evaluates the window, oldest bar first. It fails
	// with indicators.ErrInsufficientData when the window is shorter
	// than Warmup allows; the caller skips the cycle.
	GenerateSignal(history []market.Candle, inst market.Instrument) (Signal, error)
}

// Config carries the tunable strategy parameters. Zero fields fall back
// to the documented defaults.
type Config struct {
	FastPeriod int     `yaml:"ema_fast" json:"ema_fast"`
	SlowPeriod int     `yaml:"ema_slow" json:"ema_slow"`
	OscPeriod  int     `yaml:"rsi_period" json:"rsi_period"`
	Overbought float64 `yaml:"rsi_overbought" json:"rsi_overbought"`
	Oversold   float64 `yaml:"rsi_oversold" json:"rsi_oversold"`

	// SignalCooldown suppresses same-direction repeats, measured on
	// candle time so replays stay deterministic.
	SignalCooldown time.Duration `yaml:"signal_cooldown" json:"signal_cooldown"`
}

func (c Config) withDefaults() Config {
	if c.FastPeriod == 0 {
		c.FastPeriod = 12
	}
	if c.SlowPeriod == 0 {
		c.SlowPeriod = 26
	}
	if c.OscPeriod == 0 {
		c.OscPeriod = 14
	}
	if c.Overbought == 0 {
		c.Overbought = 70
	}
	if c.Oversold == 0 {
		c.Oversold = 30
	}
	if c.SignalCooldown == 0 {
		c.SignalCooldown = 5 * time.Minute
	}
	return c
}

// Factory builds a strategy from config.
type Factory func(cfg Config) (Strategy, error)

var registry = make(map[string]Factory)

// Register makes a strategy constructible by name. Later registrations
// replace earlier ones.
func Register(name string, f Factory) {
	registry[strings.ToLower(name)] = f
}

// New builds the named strategy.
func New(name string, cfg Config) (Strategy, error) {
	f, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (supported: %s)",
			name, strings.Join(Names(), ", "))
	}
	return f(cfg)
}

// Names lists the registered strategies, sorted.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
