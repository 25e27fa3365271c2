package main

import (
	"os"

	"fxscalp/cmd/fxscalp/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
