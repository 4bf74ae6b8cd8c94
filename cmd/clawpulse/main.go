// Package main is the entry point for the clawpulse CLI.
package main

import (
	"os"

	"github.com/ClawPulse/ClawPulse/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
