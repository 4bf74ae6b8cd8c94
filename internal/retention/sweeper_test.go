package retention

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ClawPulse/ClawPulse/internal/event"
	"github.com/ClawPulse/ClawPulse/internal/store"
)

func TestSweepRemovesExpiredOnly(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("failed to create event store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	seed := func(id string, ts time.Time) {
		t.Helper()
		rec, err := event.NewRecord(event.MessageSent{Base: event.Base{UserID: "u1"}}, id, ts)
		if err != nil {
			t.Fatalf("build record: %v", err)
		}
		if err := s.Append(rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	seed("old", time.Now().Add(-91*24*time.Hour))
	seed("new", time.Now())

	New(Config{Interval: time.Hour}, s).Sweep()

	n, err := s.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("rows after sweep = %d, want 1", n)
	}
}

type countingPurger struct {
	sweeps atomic.Int64
	fail   bool
}

func (c *countingPurger) PurgeExpired(time.Time) (int64, error) {
	c.sweeps.Add(1)
	if c.fail {
		return 0, errors.New("db locked")
	}
	return 0, nil
}

func (c *countingPurger) Count() (int64, error) { return 0, nil }

func TestRunSweepsOnTicks(t *testing.T) {
	p := &countingPurger{}
	sw := New(Config{Interval: 10 * time.Millisecond}, p)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := sw.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("run returned %v", err)
	}

	if p.sweeps.Load() < 2 {
		t.Fatalf("expected an immediate sweep plus ticks, got %d", p.sweeps.Load())
	}
}

func TestSweepFailureIsNotFatal(t *testing.T) {
	p := &countingPurger{fail: true}
	sw := New(Config{Interval: time.Hour}, p)

	// Must log and return, not panic.
	sw.Sweep()
	if p.sweeps.Load() != 1 {
		t.Fatalf("sweep not attempted")
	}
}
