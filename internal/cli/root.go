package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/ClawPulse/ClawPulse/internal/cli.version=1.2.3"
	version = "0.4.1"
	logo    = "\n" +
		"   ____ _                 ____        _\n" +
		"  / ___| | __ ___      __|  _ \\ _   _| |___  ___\n" +
		" | |   | |/ _` \\ \\ /\\ / /| |_) | | | | / __|/ _ \\\n" +
		" | |___| | (_| |\\ V  V / |  __/| |_| | \\__ \\  __/\n" +
		"  \\____|_|\\__,_| \\_/\\_/  |_|   \\__,_|_|___/\\___|\n"
)

var rootCmd = &cobra.Command{
	Use:   "clawpulse",
	Short: "ClawPulse - Assistant usage analytics",
	Long:  color.CyanString(logo) + "\nEvent ingestion and aggregation engine for assistant telemetry.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func printHeader(title string) {
	fmt.Println(color.CyanString(logo))
	if title != "" {
		fmt.Println(title)
		fmt.Println("─────────────────────")
	}
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(exportCmd)
}
