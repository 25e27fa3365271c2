package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"fxscalp/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage fxscalp configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  fxscalp config init -o fxscalp.yaml
  fxscalp config validate -f fxscalp.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	Long: `Create a new configuration file with default settings.

Example:
  fxscalp config init -o fxscalp.yaml`,
	RunE: runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Check that a configuration file parses, names a known strategy and
instruments, and carries usable risk limits.

Example:
  fxscalp config validate -f fxscalp.yaml`,
	RunE: runConfigValidate,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "fxscalp.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("✓ Created default configuration: %s\n", configInitOutput)
	fmt.Println("\nEdit the file and run with:")
	fmt.Printf("  fxscalp run -f %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Printf("✓ Configuration is valid: %s\n\n", configValidatePath)
	fmt.Printf("  Account:  %s (%.2f %s)\n", cfg.Account.ID, cfg.Account.Balance, cfg.Account.Currency)
	fmt.Printf("  Trading:  %s on %s, confidence floor %.0f\n",
		strings.Join(cfg.Trading.Symbols, ","), cfg.Trading.Timeframe, cfg.Trading.MinConfidence)
	fmt.Printf("  Strategy: %s\n", cfg.Strategy.Name)
	fmt.Printf("  Risk:     %.1f%% per trade, max %d positions, %.1f%% daily loss\n",
		cfg.Risk.Limits.RiskPerTrade*100, cfg.Risk.Limits.MaxPositions, cfg.Risk.Limits.MaxDailyLoss*100)
	fmt.Printf("  Journal:  %s\n", cfg.Journal.Type)
	return nil
}
