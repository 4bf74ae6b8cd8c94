package notify

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/slack-go/slack"

	"github.com/ClawPulse/ClawPulse/internal/analytics"
)

type stubEngine struct {
	patterns []analytics.ErrorPattern
	err      error
	windows  []analytics.Window
}

func (s *stubEngine) ErrorPatterns(errorType string, w analytics.Window, limit int) ([]analytics.ErrorPattern, error) {
	s.windows = append(s.windows, w)
	return s.patterns, s.err
}

type recordingPoster struct {
	channels []string
	texts    []string
	err      error
}

func (r *recordingPoster) PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
	r.channels = append(r.channels, channelID)
	_, values, err := slack.UnsafeApplyMsgOptions("", channelID, "https://slack.test/api/", options...)
	if err == nil {
		r.texts = append(r.texts, values.Get("text"))
	}
	return channelID, "1.0", r.err
}

func newTestAlerter(engine Patterns, client poster) *Alerter {
	a := New(Config{
		Enabled:   true,
		Channel:   "#alerts",
		Threshold: 5,
		Interval:  time.Minute,
	}, engine)
	a.client = client
	a.now = func() time.Time { return time.UnixMilli(1_700_000_000_000) }
	return a
}

func TestEvaluatePostsAboveThreshold(t *testing.T) {
	engine := &stubEngine{patterns: []analytics.ErrorPattern{
		{ErrorType: "timeout", ErrorMessage: "upstream timed out", OccurrenceCount: 12, LastSeenAt: 1_699_999_999_000, AffectedUserCount: 3},
		{ErrorType: "parse_error", OccurrenceCount: 2, LastSeenAt: 1_699_999_998_000},
	}}
	rec := &recordingPoster{}
	a := newTestAlerter(engine, rec)

	a.Evaluate(context.Background())

	if len(rec.channels) != 1 {
		t.Fatalf("posted %d messages, want 1", len(rec.channels))
	}
	if rec.channels[0] != "#alerts" {
		t.Fatalf("posted to %q", rec.channels[0])
	}
	if !strings.Contains(rec.texts[0], "timeout") || !strings.Contains(rec.texts[0], "12 times") {
		t.Fatalf("unexpected alert text: %q", rec.texts[0])
	}
	if len(engine.windows) != 1 {
		t.Fatalf("queried %d windows, want 1", len(engine.windows))
	}
	w := engine.windows[0]
	if w.End-w.Start != time.Minute.Milliseconds() {
		t.Fatalf("window span = %dms, want interval", w.End-w.Start)
	}
}

func TestEvaluateThresholdBoundary(t *testing.T) {
	engine := &stubEngine{patterns: []analytics.ErrorPattern{
		{ErrorType: "at_threshold", OccurrenceCount: 5, LastSeenAt: 10},
		{ErrorType: "below_threshold", OccurrenceCount: 4, LastSeenAt: 11},
	}}
	rec := &recordingPoster{}
	a := newTestAlerter(engine, rec)

	a.Evaluate(context.Background())

	if len(rec.texts) != 1 {
		t.Fatalf("posted %d messages, want 1", len(rec.texts))
	}
	if !strings.Contains(rec.texts[0], "at_threshold") {
		t.Fatalf("alerted wrong pattern: %q", rec.texts[0])
	}
}

func TestEvaluateDedupesUntilNewOccurrences(t *testing.T) {
	engine := &stubEngine{patterns: []analytics.ErrorPattern{
		{ErrorType: "timeout", OccurrenceCount: 9, LastSeenAt: 100},
	}}
	rec := &recordingPoster{}
	a := newTestAlerter(engine, rec)

	a.Evaluate(context.Background())
	a.Evaluate(context.Background())
	if len(rec.channels) != 1 {
		t.Fatalf("posted %d messages, want 1 after duplicate pass", len(rec.channels))
	}

	engine.patterns[0].LastSeenAt = 200
	a.Evaluate(context.Background())
	if len(rec.channels) != 2 {
		t.Fatalf("posted %d messages, want 2 after new occurrence", len(rec.channels))
	}
}

func TestEvaluateSkipsWithoutClient(t *testing.T) {
	engine := &stubEngine{patterns: []analytics.ErrorPattern{
		{ErrorType: "timeout", OccurrenceCount: 9},
	}}
	a := New(Config{Enabled: true, Threshold: 1, Interval: time.Minute}, engine)

	a.Evaluate(context.Background())
	if len(engine.windows) != 0 {
		t.Fatalf("engine queried without a configured client")
	}
}

func TestEvaluateSurvivesEngineError(t *testing.T) {
	engine := &stubEngine{err: context.DeadlineExceeded}
	rec := &recordingPoster{}
	a := newTestAlerter(engine, rec)

	a.Evaluate(context.Background())
	if len(rec.channels) != 0 {
		t.Fatalf("posted despite engine error")
	}
}
