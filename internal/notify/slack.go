package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"github.com/ClawPulse/ClawPulse/internal/analytics"
)

// Config controls the Slack error alerter.
type Config struct {
	Enabled   bool          `json:"enabled" envconfig:"ENABLED"`
	Token     string        `json:"token" envconfig:"TOKEN"`
	Channel   string        `json:"channel" envconfig:"CHANNEL"`
	Threshold int           `json:"threshold" envconfig:"THRESHOLD"`
	Interval  time.Duration `json:"interval" envconfig:"INTERVAL"`
}

func DefaultConfig() Config {
	return Config{
		Enabled:   false,
		Threshold: 10,
		Interval:  5 * time.Minute,
	}
}

// Patterns is the slice of the analytics engine the alerter consumes.
type Patterns interface {
	ErrorPatterns(errorType string, w analytics.Window, limit int) ([]analytics.ErrorPattern, error)
}

type poster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// Alerter periodically inspects recent error patterns and posts to Slack
// when a pattern crosses the configured occurrence threshold. A pattern is
// alerted at most once per interval window; it re-alerts only after new
// occurrences arrive.
type Alerter struct {
	cfg     Config
	engine  Patterns
	client  poster
	alerted map[string]int64
	now     func() time.Time
}

func New(cfg Config, engine Patterns) *Alerter {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultConfig().Threshold
	}
	a := &Alerter{
		cfg:     cfg,
		engine:  engine,
		alerted: make(map[string]int64),
		now:     time.Now,
	}
	if cfg.Token != "" {
		a.client = slack.New(cfg.Token)
	}
	return a
}

// Run evaluates on every tick until ctx is done.
func (a *Alerter) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			a.Evaluate(ctx)
		}
	}
}

// Evaluate runs one alerting pass over the last interval's errors.
func (a *Alerter) Evaluate(ctx context.Context) {
	if a.client == nil || a.cfg.Channel == "" {
		return
	}
	now := a.now()
	w := analytics.Window{
		Start: now.Add(-a.cfg.Interval).UnixMilli(),
		End:   now.UnixMilli(),
	}
	patterns, err := a.engine.ErrorPatterns("", w, 20)
	if err != nil {
		slog.Warn("Error pattern query failed", "error", err)
		return
	}
	for _, p := range patterns {
		if p.OccurrenceCount < int64(a.cfg.Threshold) {
			continue
		}
		key := p.ErrorType + "\x00" + p.ErrorMessage
		if last, ok := a.alerted[key]; ok && last >= p.LastSeenAt {
			continue
		}
		if err := a.post(ctx, p); err != nil {
			slog.Warn("Slack alert failed", "errorType", p.ErrorType, "error", err)
			continue
		}
		a.alerted[key] = p.LastSeenAt
	}
}

func (a *Alerter) post(ctx context.Context, p analytics.ErrorPattern) error {
	msg := formatAlert(p, a.cfg.Interval)
	_, _, err := a.client.PostMessageContext(ctx, a.cfg.Channel, slack.MsgOptionText(msg, false))
	if err != nil {
		return fmt.Errorf("post message: %w", err)
	}
	return nil
}

func formatAlert(p analytics.ErrorPattern, interval time.Duration) string {
	var b strings.Builder
	fmt.Fprintf(&b, ":rotating_light: *%s* occurred %d times in the last %s\n", p.ErrorType, p.OccurrenceCount, interval)
	if p.ErrorMessage != "" {
		fmt.Fprintf(&b, "> %s\n", truncate(p.ErrorMessage, 200))
	}
	fmt.Fprintf(&b, "affected users: %d, last seen: %s",
		p.AffectedUserCount,
		time.UnixMilli(p.LastSeenAt).UTC().Format(time.RFC3339))
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
