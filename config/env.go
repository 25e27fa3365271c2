package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Environment variables recognized by ApplyEnv. Credentials are only
// ever read from here, never from config files.
const (
	EnvFeedURL     = "FXSCALP_FEED_URL"
	EnvFeedToken   = "FXSCALP_FEED_TOKEN"
	EnvAccountID   = "FXSCALP_ACCOUNT_ID"
	EnvLogLevel    = "FXSCALP_LOG_LEVEL"
	EnvMetricsAddr = "FXSCALP_METRICS_ADDR"
)

// ApplyEnv overlays environment variables onto the configuration. A
// .env file in the working directory is loaded first when present.
func (c *Config) ApplyEnv() {
	// A missing .env file is fine.
	_ = godotenv.Load()

	if v := os.Getenv(EnvFeedURL); v != "" {
		c.Feed.URL = v
	}
	if v := os.Getenv(EnvFeedToken); v != "" {
		c.Feed.Token = v
	}
	if v := os.Getenv(EnvAccountID); v != "" {
		c.Account.ID = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvMetricsAddr); v != "" {
		c.Metrics.Addr = v
	}
}
