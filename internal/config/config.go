package config

import (
	"os"
	"path/filepath"

	"github.com/ClawPulse/ClawPulse/internal/ingest"
	"github.com/ClawPulse/ClawPulse/internal/intake"
	"github.com/ClawPulse/ClawPulse/internal/notify"
	"github.com/ClawPulse/ClawPulse/internal/retention"
)

// Config is the root configuration, loaded from file and environment.
type Config struct {
	Paths     PathsConfig      `json:"paths"`
	Gateway   GatewayConfig    `json:"gateway"`
	Ingest    ingest.Config    `json:"ingest"`
	Retention retention.Config `json:"retention"`
	Intake    intake.Config    `json:"intake"`
	Notify    notify.Config    `json:"notify"`
}

// PathsConfig groups filesystem locations.
type PathsConfig struct {
	DataDir string `json:"dataDir" envconfig:"DATA_DIR"`
}

// GatewayConfig controls the HTTP API listener.
type GatewayConfig struct {
	Host string `json:"host" envconfig:"HOST"`
	Port int    `json:"port" envconfig:"PORT"`
}

func DefaultConfig() *Config {
	return &Config{
		Paths:     PathsConfig{},
		Gateway:   GatewayConfig{Host: "127.0.0.1", Port: 8600},
		Ingest:    ingest.DefaultConfig(),
		Retention: retention.DefaultConfig(),
		Intake:    intake.DefaultConfig(),
		Notify:    notify.DefaultConfig(),
	}
}

// DataDir resolves the data directory, defaulting next to the config file.
func (c *Config) DataDir() (string, error) {
	if c.Paths.DataDir != "" {
		return c.Paths.DataDir, nil
	}
	home, err := resolveHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigDir, "data"), nil
}

// DatabasePath is the SQLite event store location under the data dir.
func (c *Config) DatabasePath() (string, error) {
	dir, err := c.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "events.db"), nil
}

// EnsureDir ensures a directory exists with proper permissions.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}
