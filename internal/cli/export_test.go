package cli

import (
	"testing"
	"time"
)

func TestParseExportWindow(t *testing.T) {
	w, err := parseExportWindow("", "")
	if err != nil {
		t.Fatalf("empty bounds: %v", err)
	}
	if w.Start != 0 || w.End != 0 {
		t.Fatalf("empty bounds should stay unbounded, got %+v", w)
	}

	w, err = parseExportWindow("2026-01-15", "2026-02-01T12:30:00Z")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	wantStart := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC).UnixMilli()
	wantEnd := time.Date(2026, 2, 1, 12, 30, 0, 0, time.UTC).UnixMilli()
	if w.Start != wantStart || w.End != wantEnd {
		t.Fatalf("window = %+v, want %d..%d", w, wantStart, wantEnd)
	}

	if _, err := parseExportWindow("not-a-date", ""); err == nil {
		t.Fatal("expected error for malformed start")
	}
}
