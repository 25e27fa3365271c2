package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the current version of the fxscalp CLI.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("fxscalp version %s\n", version)
		fmt.Println("A confirmation-based FX scalping bot with hard risk limits")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
