package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ClawPulse/ClawPulse/internal/config"
	"github.com/ClawPulse/ClawPulse/internal/store"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("🏷️ ClawPulse Version")
		fmt.Printf("Version: %s\n", version)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("📊 ClawPulse Status")
		fmt.Printf("Version: %s\n", version)

		configPath, err := config.ConfigPath()
		if err == nil {
			if _, statErr := os.Stat(configPath); statErr == nil {
				fmt.Println("Config:  ✓ Found (" + configPath + ")")
			} else {
				fmt.Println("Config:  ✗ Not found (defaults in effect)")
			}
		}

		cfg, err := config.Load()
		if err != nil {
			fmt.Printf("Config:  ✗ Load failed: %v\n", err)
			return
		}
		fmt.Printf("Gateway: http://%s:%d\n", cfg.Gateway.Host, cfg.Gateway.Port)

		dbPath, err := cfg.DatabasePath()
		if err != nil {
			fmt.Printf("Store:   ✗ %v\n", err)
			return
		}
		if _, err := os.Stat(dbPath); err != nil {
			fmt.Println("Store:   ✗ No database yet (" + dbPath + ")")
			return
		}
		st, err := store.New(dbPath)
		if err != nil {
			fmt.Printf("Store:   ✗ Open failed: %v\n", err)
			return
		}
		defer st.Close()
		if n, err := st.Count(); err == nil {
			fmt.Printf("Store:   ✓ %d events (%s)\n", n, dbPath)
		}
		if cfg.Intake.Enabled {
			fmt.Printf("Kafka:   ✓ Enabled (%s @ %s)\n", cfg.Intake.Topic, cfg.Intake.Brokers)
		} else {
			fmt.Println("Kafka:   ✗ Disabled")
		}
		if cfg.Notify.Enabled {
			fmt.Println("Slack:   ✓ Enabled (" + cfg.Notify.Channel + ")")
		} else {
			fmt.Println("Slack:   ✗ Disabled")
		}
	},
}
