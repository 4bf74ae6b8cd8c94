// Package store persists usage events in SQLite. Events are append-only
// and immutable; every read filters out logically expired rows so the
// contract holds whether or not the retention sweeper has run.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ClawPulse/ClawPulse/internal/event"
)

// Dimension names a secondary scan axis.
type Dimension string

const (
	DimensionType    Dimension = "type"
	DimensionCommand Dimension = "command"
	DimensionUser    Dimension = "userId"
)

// scanBatch bounds how many rows a scan holds in memory at once. Scans
// page by (timestamp, id) keyset so large windows never materialize whole.
const scanBatch = 500

// EventStore is the SQLite-backed event log.
type EventStore struct {
	db *sql.DB
}

// New opens (or creates) the event database at dbPath.
func New(dbPath string) (*EventStore, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open event db: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &EventStore{db: db}, nil
}

func (s *EventStore) DB() *sql.DB { return s.db }

func (s *EventStore) Close() error {
	return s.db.Close()
}

// Append durably persists one event. A duplicate id is a no-op success,
// which keeps at-least-once delivery from the ingestion path safe.
func (s *EventStore) Append(rec event.Record) error {
	meta := "{}"
	if len(rec.Metadata) > 0 {
		b, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		meta = string(b)
	}
	var success any
	if rec.Success != nil {
		success = *rec.Success
	}
	var duration any
	if rec.DurationMs != nil {
		duration = *rec.DurationMs
	}
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO events (id, timestamp, type, user_id, command, success, duration_ms, error_type, error_message, metadata, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Timestamp, string(rec.Type), rec.UserID, rec.Command,
		success, duration, rec.ErrorType, rec.ErrorMessage, meta, rec.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// ScanRange streams all non-expired events with start <= timestamp <= end
// (epoch millis) to fn, ordered by timestamp ascending. fn returning an
// error stops the scan.
func (s *EventStore) ScanRange(start, end int64, fn func(event.Record) error) error {
	return s.scan("", "", start, end, fn)
}

// ScanDimension is ScanRange additionally filtered by one dimension.
func (s *EventStore) ScanDimension(dim Dimension, value string, start, end int64, fn func(event.Record) error) error {
	col, err := dimensionColumn(dim)
	if err != nil {
		return err
	}
	return s.scan(col, value, start, end, fn)
}

func dimensionColumn(dim Dimension) (string, error) {
	switch dim {
	case DimensionType:
		return "type", nil
	case DimensionCommand:
		return "command", nil
	case DimensionUser:
		return "user_id", nil
	}
	return "", fmt.Errorf("unknown scan dimension %q", dim)
}

func (s *EventStore) scan(col, value string, start, end int64, fn func(event.Record) error) error {
	now := time.Now().UnixMilli()
	lastTS := int64(-1)
	lastID := ""
	for {
		query := `SELECT id, timestamp, type, user_id, command, success, duration_ms, error_type, error_message, metadata, expires_at
			FROM events
			WHERE timestamp >= ? AND timestamp <= ? AND expires_at > ?
			AND (timestamp > ? OR (timestamp = ? AND id > ?))`
		args := []any{start, end, now, lastTS, lastTS, lastID}
		if col != "" {
			query += " AND " + col + " = ?"
			args = append(args, value)
		}
		query += " ORDER BY timestamp ASC, id ASC LIMIT ?"
		args = append(args, scanBatch)

		batch, err := s.queryRecords(query, args...)
		if err != nil {
			return err
		}
		for i := range batch {
			if err := fn(batch[i]); err != nil {
				return err
			}
		}
		if len(batch) < scanBatch {
			return nil
		}
		last := batch[len(batch)-1]
		lastTS, lastID = last.Timestamp, last.ID
	}
}

func (s *EventStore) queryRecords(query string, args ...any) ([]event.Record, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("scan events: %w", err)
	}
	defer rows.Close()

	var out []event.Record
	for rows.Next() {
		var (
			rec      event.Record
			typ      string
			success  sql.NullBool
			duration sql.NullInt64
			meta     string
		)
		if err := rows.Scan(&rec.ID, &rec.Timestamp, &typ, &rec.UserID, &rec.Command,
			&success, &duration, &rec.ErrorType, &rec.ErrorMessage, &meta, &rec.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		rec.Type = event.Type(typ)
		if success.Valid {
			v := success.Bool
			rec.Success = &v
		}
		if duration.Valid {
			v := duration.Int64
			rec.DurationMs = &v
		}
		if meta != "" && meta != "{}" {
			if err := json.Unmarshal([]byte(meta), &rec.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata for %s: %w", rec.ID, err)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// PurgeExpired physically deletes events past their retention window and
// returns how many rows were removed.
func (s *EventStore) PurgeExpired(now time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM events WHERE expires_at <= ?`, now.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purge expired events: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Count returns the number of physical rows, expired or not. Used by the
// sweeper for status logging.
func (s *EventStore) Count() (int64, error) {
	var n int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}
