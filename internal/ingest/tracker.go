// Package ingest provides the fire-and-forget write path. Track never
// fails and never blocks the caller's primary workflow: events go through
// a bounded queue to background workers, and every failure is logged and
// swallowed rather than surfaced.
package ingest

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ClawPulse/ClawPulse/internal/event"
)

// Appender is the write surface of the event store.
type Appender interface {
	Append(event.Record) error
}

// Config holds tracker settings.
type Config struct {
	QueueSize int `json:"queueSize" envconfig:"QUEUE_SIZE"`
	Workers   int `json:"workers" envconfig:"WORKERS"`
}

// DefaultConfig returns sensible tracker defaults.
func DefaultConfig() Config {
	return Config{QueueSize: 1024, Workers: 2}
}

// Tracker accepts events and persists them asynchronously.
type Tracker struct {
	store Appender
	queue chan event.Record
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	stored  atomic.Int64
	dropped atomic.Int64

	now   func() time.Time
	newID func() string
}

// NewTracker starts the worker pool and returns the tracker.
func NewTracker(store Appender, cfg Config) *Tracker {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	t := &Tracker{
		store: store,
		queue: make(chan event.Record, cfg.QueueSize),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for i := 0; i < cfg.Workers; i++ {
		t.wg.Add(1)
		go t.worker()
	}
	return t
}

// Track records one event. It validates, assigns id/timestamp/expiry, and
// enqueues; it never returns a failure to the caller. A full queue drops
// the event with a warning instead of blocking.
func (t *Tracker) Track(in event.Input) {
	rec, err := event.NewRecord(in, t.newID(), t.now())
	if err != nil {
		slog.Warn("Event rejected", "error", err)
		t.dropped.Add(1)
		return
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		t.dropped.Add(1)
		return
	}
	select {
	case t.queue <- rec:
	default:
		t.dropped.Add(1)
		slog.Warn("Event queue full, dropping event",
			"type", rec.Type, "timestamp", rec.Timestamp, "user", rec.UserID)
	}
}

func (t *Tracker) worker() {
	defer t.wg.Done()
	for rec := range t.queue {
		if err := t.store.Append(rec); err != nil {
			t.dropped.Add(1)
			slog.Error("Failed to persist event",
				"error", err, "type", rec.Type, "timestamp", rec.Timestamp,
				"user", rec.UserID, "command", truncate(rec.Command, 64))
			continue
		}
		t.stored.Add(1)
	}
}

// Close stops accepting events and waits for the queue to drain.
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.mu.Unlock()
	close(t.queue)
	t.wg.Wait()
}

// QueueSize returns the number of events waiting to be persisted.
func (t *Tracker) QueueSize() int { return len(t.queue) }

// Stored returns how many events have been durably persisted.
func (t *Tracker) Stored() int64 { return t.stored.Load() }

// Dropped returns how many events were rejected, dropped, or failed.
func (t *Tracker) Dropped() int64 { return t.dropped.Load() }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
