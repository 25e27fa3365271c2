package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "fxscalp",
	Short: "A confirmation-based FX scalping bot with hard risk limits",
	Long: `fxscalp confirms oscillator-gated moving-average signals on completed
candles, sizes every entry from account risk, and refuses to trade past
its daily limits. It trades a paper book against a WebSocket quote
stream and replays the identical pipeline over historical data.

It provides tools for:
  - Running the live paper-trading loop against a quote stream
  - Backtesting the strategy over historical candle files
  - Serving a simulated quote stream for local development
  - Generating and validating configuration files

Risk-based position sizing and the emergency stop are always on; no
command path can place an order the risk gate has not accepted.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
