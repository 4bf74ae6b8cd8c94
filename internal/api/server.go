// Package api exposes the analytics engine and the ingest tracker over
// HTTP. Validation failures map to 400, read-path store failures to 503
// (retryable), and ingest always answers 202 once the payload parses.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ClawPulse/ClawPulse/internal/analytics"
	"github.com/ClawPulse/ClawPulse/internal/event"
	"github.com/ClawPulse/ClawPulse/internal/export"
	"github.com/ClawPulse/ClawPulse/internal/ingest"
)

// Server wires the query and ingest surfaces onto a ServeMux.
type Server struct {
	engine  *analytics.Engine
	tracker *ingest.Tracker
}

func NewServer(engine *analytics.Engine, tracker *ingest.Tracker) *Server {
	return &Server{engine: engine, tracker: tracker}
}

// Mux returns the HTTP handler for the analytics API.
func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/events", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var payload event.Payload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "invalid event payload: "+err.Error(), http.StatusBadRequest)
			return
		}
		in, err := payload.Input()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		// Fire and forget: the caller never waits on persistence.
		s.tracker.Track(in)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})
	})

	mux.HandleFunc("/api/v1/summary", func(w http.ResponseWriter, r *http.Request) {
		window, ok := parseWindow(w, r)
		if !ok {
			return
		}
		sum, err := s.engine.Summary(window)
		if err != nil {
			writeError(w, err)
			return
		}
		writeResult(w, r, sum)
	})

	mux.HandleFunc("/api/v1/commands/popular", func(w http.ResponseWriter, r *http.Request) {
		window, ok := parseWindow(w, r)
		if !ok {
			return
		}
		limit, ok := parseLimit(w, r)
		if !ok {
			return
		}
		stats, err := s.engine.PopularCommands(window, limit)
		if err != nil {
			writeError(w, err)
			return
		}
		if stats == nil {
			stats = []analytics.CommandStat{}
		}
		writeResult(w, r, stats)
	})

	mux.HandleFunc("/api/v1/commands/", func(w http.ResponseWriter, r *http.Request) {
		command := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, "/api/v1/commands/"))
		if command == "" {
			http.Error(w, "command required", http.StatusBadRequest)
			return
		}
		window, ok := parseWindow(w, r)
		if !ok {
			return
		}
		stat, err := s.engine.CommandStats(command, window)
		if err != nil {
			writeError(w, err)
			return
		}
		writeResult(w, r, stat)
	})

	mux.HandleFunc("/api/v1/errors", func(w http.ResponseWriter, r *http.Request) {
		window, ok := parseWindow(w, r)
		if !ok {
			return
		}
		limit, ok := parseLimit(w, r)
		if !ok {
			return
		}
		patterns, err := s.engine.ErrorPatterns(r.URL.Query().Get("errorType"), window, limit)
		if err != nil {
			writeError(w, err)
			return
		}
		if patterns == nil {
			patterns = []analytics.ErrorPattern{}
		}
		writeResult(w, r, patterns)
	})

	mux.HandleFunc("/api/v1/activity", func(w http.ResponseWriter, r *http.Request) {
		window, ok := parseWindow(w, r)
		if !ok {
			return
		}
		limit, ok := parseLimit(w, r)
		if !ok {
			return
		}
		events, err := s.engine.UserActivity(r.URL.Query().Get("userId"), window, limit)
		if err != nil {
			writeError(w, err)
			return
		}
		if events == nil {
			events = []event.Record{}
		}
		writeResult(w, r, events)
	})

	mux.HandleFunc("/api/v1/export", func(w http.ResponseWriter, r *http.Request) {
		window, ok := parseWindow(w, r)
		if !ok {
			return
		}
		limit, ok := parseLimit(w, r)
		if !ok {
			return
		}
		report, err := s.buildReport(window, limit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeResult(w, r, report)
	})

	mux.HandleFunc("/api/v1/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":  "ok",
			"queued":  s.tracker.QueueSize(),
			"stored":  s.tracker.Stored(),
			"dropped": s.tracker.Dropped(),
		})
	})

	return mux
}

// buildReport assembles the bulk export bundle for a window.
func (s *Server) buildReport(window analytics.Window, limit int) (*export.Report, error) {
	sum, err := s.engine.Summary(window)
	if err != nil {
		return nil, err
	}
	commands, err := s.engine.PopularCommands(window, limit)
	if err != nil {
		return nil, err
	}
	patterns, err := s.engine.ErrorPatterns("", window, limit)
	if err != nil {
		return nil, err
	}
	return &export.Report{Summary: sum, Commands: commands, Errors: patterns}, nil
}

// parseWindow reads startDate/endDate (epoch millis or ISO date) into a
// window. On a parse failure it writes a 400 and returns ok=false.
func parseWindow(w http.ResponseWriter, r *http.Request) (analytics.Window, bool) {
	var window analytics.Window
	start, ok := parseDate(w, r.URL.Query().Get("startDate"), "startDate")
	if !ok {
		return window, false
	}
	end, ok := parseDate(w, r.URL.Query().Get("endDate"), "endDate")
	if !ok {
		return window, false
	}
	window.Start = start
	window.End = end
	return window, true
}

func parseDate(w http.ResponseWriter, raw, name string) (int64, bool) {
	if raw == "" {
		return 0, true
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return ms, true
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UnixMilli(), true
		}
	}
	http.Error(w, "invalid "+name+": "+raw, http.StatusBadRequest)
	return 0, false
}

const defaultLimit = 50

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultLimit, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		http.Error(w, "invalid limit: "+raw, http.StatusBadRequest)
		return 0, false
	}
	// Non-positive limits reach the engine and come back as a 400.
	return limit, true
}

// writeResult serializes a query result per the format parameter, JSON by
// default. An unknown format is a 400.
func writeResult(w http.ResponseWriter, r *http.Request, result any) {
	kind := r.URL.Query().Get("format")
	if kind == "" {
		kind = export.FormatJSON
	}
	body, err := export.Format(result, kind)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", export.ContentType(kind))
	w.Write(body)
}

func writeError(w http.ResponseWriter, err error) {
	if analytics.IsValidation(err) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	// Read-path store failures are retryable.
	http.Error(w, err.Error(), http.StatusServiceUnavailable)
}
