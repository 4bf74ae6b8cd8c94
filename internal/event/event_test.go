package event

import (
	"testing"
	"time"
)

func TestNewRecordAssignsExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec, err := NewRecord(MessageSent{Base{UserID: "u1"}}, "id-1", now)
	if err != nil {
		t.Fatalf("new record: %v", err)
	}
	if rec.Timestamp != now.UnixMilli() {
		t.Fatalf("timestamp = %d, want %d", rec.Timestamp, now.UnixMilli())
	}
	if got, want := rec.ExpiresAt, now.Add(Retention).UnixMilli(); got != want {
		t.Fatalf("expires_at = %d, want %d", got, want)
	}
	if rec.Expired(now) {
		t.Fatalf("fresh record reported expired")
	}
	if !rec.Expired(now.Add(Retention)) {
		t.Fatalf("record at retention boundary should be expired")
	}
}

func TestNewRecordHonorsExplicitTimestamp(t *testing.T) {
	explicit := time.Date(2026, 1, 15, 8, 30, 0, 0, time.UTC)
	rec, err := NewRecord(ConnectionOpened{Base{Timestamp: explicit}}, "id-2", time.Now())
	if err != nil {
		t.Fatalf("new record: %v", err)
	}
	if rec.Timestamp != explicit.UnixMilli() {
		t.Fatalf("timestamp = %d, want explicit %d", rec.Timestamp, explicit.UnixMilli())
	}
}

func TestNewRecordActionFields(t *testing.T) {
	rec, err := NewRecord(ActionExecuted{
		Base:       Base{UserID: "u1"},
		Command:    "add-supplier",
		Success:    true,
		DurationMs: Millis(150 * time.Millisecond),
	}, "id-3", time.Now())
	if err != nil {
		t.Fatalf("new record: %v", err)
	}
	if rec.Command != "add-supplier" || rec.Success == nil || !*rec.Success {
		t.Fatalf("action fields not carried over: %+v", rec)
	}
	if rec.DurationMs == nil || *rec.DurationMs != 150 {
		t.Fatalf("duration not carried over: %+v", rec.DurationMs)
	}
}

func TestNewRecordRejectsMalformedInputs(t *testing.T) {
	if _, err := NewRecord(ActionExecuted{Base: Base{}, Command: ""}, "id", time.Now()); err == nil {
		t.Fatalf("expected error for action without command")
	}
	if _, err := NewRecord(ErrorOccurred{Base: Base{}, ErrorType: ""}, "id", time.Now()); err == nil {
		t.Fatalf("expected error for error event without type")
	}
	bad := MessageSent{Base{Metadata: map[string]any{"nested": map[string]any{"x": 1}}}}
	if _, err := NewRecord(bad, "id", time.Now()); err == nil {
		t.Fatalf("expected error for non-scalar metadata")
	}
}

func TestValidateMetadataScalars(t *testing.T) {
	ok := map[string]any{"s": "v", "b": true, "i": 3, "f": 1.5, "n": nil}
	if err := ValidateMetadata(ok); err != nil {
		t.Fatalf("scalar metadata rejected: %v", err)
	}
	if err := ValidateMetadata(map[string]any{"l": []string{"a"}}); err == nil {
		t.Fatalf("slice metadata accepted")
	}
}
