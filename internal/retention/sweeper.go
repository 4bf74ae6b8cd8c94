// Package retention physically removes events past their retention
// window. Reads stay correct without it (the store filters expiry
// logically); the sweeper only reclaims space.
package retention

import (
	"context"
	"log/slog"
	"time"
)

// Config holds sweeper settings.
type Config struct {
	Enabled  bool          `json:"enabled" envconfig:"ENABLED"`
	Interval time.Duration `json:"interval" envconfig:"INTERVAL"`
}

// DefaultConfig returns sensible sweeper defaults.
func DefaultConfig() Config {
	return Config{Enabled: true, Interval: time.Hour}
}

// Purger is the slice of the store the sweeper needs.
type Purger interface {
	PurgeExpired(now time.Time) (int64, error)
	Count() (int64, error)
}

// Sweeper runs periodic TTL deletion passes.
type Sweeper struct {
	cfg   Config
	store Purger
	now   func() time.Time
}

func New(cfg Config, store Purger) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	return &Sweeper{cfg: cfg, store: store, now: time.Now}
}

// Run sweeps once immediately, then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	slog.Info("Retention sweeper started", "interval", s.cfg.Interval)
	s.Sweep()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep runs one deletion pass. Failures are logged, not fatal; the next
// tick retries.
func (s *Sweeper) Sweep() {
	purged, err := s.store.PurgeExpired(s.now())
	if err != nil {
		slog.Error("Retention sweep failed", "error", err)
		return
	}
	if purged == 0 {
		return
	}
	remaining, err := s.store.Count()
	if err != nil {
		slog.Warn("Failed to count events after sweep", "error", err)
		remaining = -1
	}
	slog.Info("Retention sweep completed", "purged", purged, "remaining", remaining)
}
