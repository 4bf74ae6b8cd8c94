package analytics

import (
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/ClawPulse/ClawPulse/internal/event"
	"github.com/ClawPulse/ClawPulse/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, *store.EventStore) {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("failed to create event store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return New(s), s
}

func mustAppend(t *testing.T, s *store.EventStore, in event.Input, id string, ts time.Time) {
	t.Helper()
	rec, err := event.NewRecord(in, id, ts)
	if err != nil {
		t.Fatalf("build record %s: %v", id, err)
	}
	if err := s.Append(rec); err != nil {
		t.Fatalf("append %s: %v", id, err)
	}
}

func action(user, command string, success bool, duration *int64) event.ActionExecuted {
	return event.ActionExecuted{
		Base:       event.Base{UserID: user},
		Command:    command,
		Success:    success,
		DurationMs: duration,
	}
}

func TestSummary(t *testing.T) {
	eng, s := newTestEngine(t)
	now := time.Now()

	mustAppend(t, s, action("u1", "deploy", true, event.Millis(100*time.Millisecond)), "a1", now)
	mustAppend(t, s, action("u1", "deploy", true, event.Millis(300*time.Millisecond)), "a2", now)
	mustAppend(t, s, action("u2", "status", false, nil), "a3", now)
	mustAppend(t, s, event.ErrorOccurred{Base: event.Base{UserID: "u1"}, ErrorType: "Timeout", ErrorMessage: "deadline"}, "e1", now)
	mustAppend(t, s, event.ErrorOccurred{Base: event.Base{UserID: "u2"}, ErrorType: "Timeout", ErrorMessage: "deadline"}, "e2", now)
	mustAppend(t, s, event.ErrorOccurred{Base: event.Base{UserID: "u2"}, ErrorType: "BadInput", ErrorMessage: "empty"}, "e3", now)
	mustAppend(t, s, event.MessageSent{Base: event.Base{UserID: "u1"}}, "m1", now)

	sum, err := eng.Summary(Window{})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.TotalExecutions != 3 {
		t.Fatalf("total executions = %d, want 3", sum.TotalExecutions)
	}
	if got, want := sum.SuccessRate, 2.0/3.0; math.Abs(got-want) > 1e-9 {
		t.Fatalf("success rate = %v, want %v", got, want)
	}
	// Mean over the two executions that recorded a duration.
	if sum.AvgDurationMs != 200 {
		t.Fatalf("avg duration = %v, want 200", sum.AvgDurationMs)
	}
	if sum.TotalErrors != 3 || sum.UniqueErrorTypes != 2 {
		t.Fatalf("errors = %d/%d, want 3/2", sum.TotalErrors, sum.UniqueErrorTypes)
	}
}

func TestSummaryEmptyWindow(t *testing.T) {
	eng, _ := newTestEngine(t)

	sum, err := eng.Summary(Window{})
	if err != nil {
		t.Fatalf("summary over empty store: %v", err)
	}
	if sum.TotalExecutions != 0 || sum.SuccessRate != 0 || sum.AvgDurationMs != 0 || sum.TotalErrors != 0 {
		t.Fatalf("expected zeroed summary, got %+v", sum)
	}
}

func TestCommandStatsScenario(t *testing.T) {
	eng, s := newTestEngine(t)
	now := time.Now()

	mustAppend(t, s, action("u1", "add-supplier", true, event.Millis(100*time.Millisecond)), "a1", now)
	mustAppend(t, s, action("u1", "add-supplier", true, event.Millis(200*time.Millisecond)), "a2", now.Add(time.Second))
	mustAppend(t, s, action("u2", "add-supplier", false, event.Millis(300*time.Millisecond)), "a3", now.Add(2*time.Second))
	mustAppend(t, s, action("u2", "other", true, nil), "a4", now)

	stat, err := eng.CommandStats("add-supplier", Window{})
	if err != nil {
		t.Fatalf("command stats: %v", err)
	}
	if stat.ExecutionCount != 3 || stat.SuccessCount != 2 || stat.FailureCount != 1 {
		t.Fatalf("counts = %d/%d/%d, want 3/2/1", stat.ExecutionCount, stat.SuccessCount, stat.FailureCount)
	}
	if math.Abs(stat.SuccessRate-2.0/3.0) > 1e-9 {
		t.Fatalf("success rate = %v, want ~0.667", stat.SuccessRate)
	}
	if stat.AvgDurationMs != 200 {
		t.Fatalf("avg duration = %v, want 200", stat.AvgDurationMs)
	}
	if stat.LastUsedAt != now.Add(2*time.Second).UnixMilli() {
		t.Fatalf("last used = %d, want latest execution", stat.LastUsedAt)
	}
}

func TestCommandStatsZeroExecutions(t *testing.T) {
	eng, _ := newTestEngine(t)

	stat, err := eng.CommandStats("never-run", Window{})
	if err != nil {
		t.Fatalf("zero-execution command stats should succeed: %v", err)
	}
	if stat.ExecutionCount != 0 || stat.SuccessRate != 0 || stat.AvgDurationMs != 0 {
		t.Fatalf("expected zeroed stat, got %+v", stat)
	}
}

func TestPopularCommandsOrderingAndLimit(t *testing.T) {
	eng, s := newTestEngine(t)
	now := time.Now()

	i := 0
	add := func(command string, n int) {
		for k := 0; k < n; k++ {
			mustAppend(t, s, action("u1", command, true, nil), command+"-"+string(rune('a'+i)), now)
			i++
		}
	}
	add("zeta", 2)
	add("alpha", 2)
	add("deploy", 5)

	stats, err := eng.PopularCommands(Window{}, 10)
	if err != nil {
		t.Fatalf("popular commands: %v", err)
	}
	if len(stats) != 3 {
		t.Fatalf("expected 3 commands, got %d", len(stats))
	}
	if stats[0].Command != "deploy" {
		t.Fatalf("top command = %q, want deploy", stats[0].Command)
	}
	// Equal counts break ties by name ascending.
	if stats[1].Command != "alpha" || stats[2].Command != "zeta" {
		t.Fatalf("tie-break order wrong: %q, %q", stats[1].Command, stats[2].Command)
	}

	capped, err := eng.PopularCommands(Window{}, 2)
	if err != nil {
		t.Fatalf("popular commands with limit: %v", err)
	}
	if len(capped) != 2 || capped[1].Command != "alpha" {
		t.Fatalf("limit truncation after ordering failed: %+v", capped)
	}

	if _, err := eng.PopularCommands(Window{}, 0); !IsValidation(err) {
		t.Fatalf("expected validation error for limit 0, got %v", err)
	}
}

func TestErrorPatternsGrouping(t *testing.T) {
	eng, s := newTestEngine(t)
	now := time.Now()

	fail := func(id, user, typ, msg string, ts time.Time) {
		mustAppend(t, s, event.ErrorOccurred{Base: event.Base{UserID: user}, ErrorType: typ, ErrorMessage: msg}, id, ts)
	}
	fail("e1", "u1", "Timeout", "deadline exceeded", now)
	fail("e2", "u2", "Timeout", "deadline exceeded", now.Add(time.Minute))
	fail("e3", "u1", "Timeout", "deadline exceeded", now.Add(2*time.Minute))
	fail("e4", "u1", "BadInput", "empty payload", now)

	patterns, err := eng.ErrorPatterns("", Window{}, 10)
	if err != nil {
		t.Fatalf("error patterns: %v", err)
	}
	if len(patterns) != 2 {
		t.Fatalf("expected 2 patterns, got %d", len(patterns))
	}
	top := patterns[0]
	if top.ErrorType != "Timeout" || top.OccurrenceCount != 3 {
		t.Fatalf("top pattern = %+v", top)
	}
	if top.AffectedUserCount != 2 {
		t.Fatalf("affected users = %d, want 2", top.AffectedUserCount)
	}
	if top.FirstSeenAt != now.UnixMilli() || top.LastSeenAt != now.Add(2*time.Minute).UnixMilli() {
		t.Fatalf("first/last seen wrong: %+v", top)
	}

	filtered, err := eng.ErrorPatterns("BadInput", Window{}, 10)
	if err != nil {
		t.Fatalf("filtered error patterns: %v", err)
	}
	if len(filtered) != 1 || filtered[0].ErrorType != "BadInput" {
		t.Fatalf("errorType filter failed: %+v", filtered)
	}
}

func TestUserActivityNewestFirst(t *testing.T) {
	eng, s := newTestEngine(t)
	now := time.Now()

	mustAppend(t, s, event.MessageSent{Base: event.Base{UserID: "u1"}}, "m1", now)
	mustAppend(t, s, action("u1", "deploy", true, nil), "a1", now.Add(time.Second))
	mustAppend(t, s, event.MessageSent{Base: event.Base{UserID: "u2"}}, "m2", now)

	events, err := eng.UserActivity("u1", Window{}, 50)
	if err != nil {
		t.Fatalf("user activity: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events for u1, got %d", len(events))
	}
	if events[0].ID != "a1" || events[1].ID != "m1" {
		t.Fatalf("expected newest first, got %s then %s", events[0].ID, events[1].ID)
	}
}

func TestWindowExcludesOldEvents(t *testing.T) {
	eng, s := newTestEngine(t)
	now := time.Now()

	// 91 days old: expired, must not surface anywhere.
	mustAppend(t, s, action("u1", "deploy", true, nil), "old", now.Add(-91*24*time.Hour))
	mustAppend(t, s, action("u1", "deploy", true, nil), "new", now)

	w := Window{Start: now.Add(-30 * 24 * time.Hour).UnixMilli(), End: now.UnixMilli()}
	sum, err := eng.Summary(w)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.TotalExecutions != 1 {
		t.Fatalf("expired event counted: %+v", sum)
	}
}

func TestStartAfterEndRejected(t *testing.T) {
	eng, _ := newTestEngine(t)
	w := Window{Start: 2000, End: 1000}

	if _, err := eng.Summary(w); !IsValidation(err) {
		t.Fatalf("summary: expected validation error, got %v", err)
	}
	if _, err := eng.CommandStats("x", w); !IsValidation(err) {
		t.Fatalf("command stats: expected validation error, got %v", err)
	}
	if _, err := eng.PopularCommands(w, 5); !IsValidation(err) {
		t.Fatalf("popular commands: expected validation error, got %v", err)
	}
	if _, err := eng.ErrorPatterns("", w, 5); !IsValidation(err) {
		t.Fatalf("error patterns: expected validation error, got %v", err)
	}
	if _, err := eng.UserActivity("u1", w, 5); !IsValidation(err) {
		t.Fatalf("user activity: expected validation error, got %v", err)
	}
}

// failingStore simulates an unreachable persistence layer.
type failingStore struct{}

var errDown = errors.New("store down")

func (failingStore) ScanDimension(store.Dimension, string, int64, int64, func(event.Record) error) error {
	return errDown
}

func TestReadFailuresPropagate(t *testing.T) {
	eng := New(failingStore{})

	_, err := eng.Summary(Window{})
	if !errors.Is(err, errDown) {
		t.Fatalf("expected store failure to propagate, got %v", err)
	}
	if IsValidation(err) {
		t.Fatalf("store failure misclassified as validation error")
	}
}
