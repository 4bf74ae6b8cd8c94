// Package export serializes aggregate query results as structured JSON
// or flat CSV tables. JSON is a lossless re-serialization; CSV is a
// tabular projection with one row per leaf record, fixed headers, and
// locale-independent number formatting.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ClawPulse/ClawPulse/internal/analytics"
	"github.com/ClawPulse/ClawPulse/internal/event"
)

const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Report bundles multiple aggregate kinds for bulk export. In CSV each
// populated kind becomes its own section with its own header.
type Report struct {
	Summary  *analytics.DashboardSummary `json:"summary,omitempty"`
	Commands []analytics.CommandStat     `json:"commands,omitempty"`
	Errors   []analytics.ErrorPattern    `json:"errors,omitempty"`
	Events   []event.Record              `json:"events,omitempty"`
}

// ContentType returns the HTTP content type for a format kind.
func ContentType(kind string) string {
	if kind == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/json"
}

// Format serializes result as the given kind. An unsupported kind is a
// caller error, never a silent fallback.
func Format(result any, kind string) ([]byte, error) {
	switch kind {
	case FormatJSON:
		return json.MarshalIndent(result, "", "  ")
	case FormatCSV:
		return formatCSV(result)
	}
	return nil, analytics.Validationf("unsupported export format %q", kind)
}

func formatCSV(result any) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	var err error
	switch v := result.(type) {
	case *analytics.DashboardSummary:
		err = writeSummary(w, v)
	case analytics.DashboardSummary:
		err = writeSummary(w, &v)
	case []analytics.CommandStat:
		err = writeCommands(w, v)
	case *analytics.CommandStat:
		err = writeCommands(w, []analytics.CommandStat{*v})
	case analytics.CommandStat:
		err = writeCommands(w, []analytics.CommandStat{v})
	case []analytics.ErrorPattern:
		err = writeErrors(w, v)
	case []event.Record:
		err = writeEvents(w, v)
	case *Report:
		err = writeReport(&buf, w, *v)
	case Report:
		err = writeReport(&buf, w, v)
	default:
		return nil, analytics.Validationf("cannot export %T as csv", result)
	}
	if err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}

func writeReport(buf *bytes.Buffer, w *csv.Writer, r Report) error {
	first := true
	section := func(write func() error) error {
		if !first {
			// Blank line between sections; readers skip it.
			w.Flush()
			if err := w.Error(); err != nil {
				return err
			}
			buf.WriteByte('\n')
		}
		first = false
		return write()
	}
	if r.Summary != nil {
		if err := section(func() error { return writeSummary(w, r.Summary) }); err != nil {
			return err
		}
	}
	if len(r.Commands) > 0 {
		if err := section(func() error { return writeCommands(w, r.Commands) }); err != nil {
			return err
		}
	}
	if len(r.Errors) > 0 {
		if err := section(func() error { return writeErrors(w, r.Errors) }); err != nil {
			return err
		}
	}
	if len(r.Events) > 0 {
		if err := section(func() error { return writeEvents(w, r.Events) }); err != nil {
			return err
		}
	}
	return nil
}

func writeSummary(w *csv.Writer, s *analytics.DashboardSummary) error {
	if err := w.Write([]string{"total_executions", "success_rate", "avg_duration_ms", "total_errors", "unique_error_types"}); err != nil {
		return err
	}
	return w.Write([]string{
		formatInt(s.TotalExecutions),
		formatFloat(s.SuccessRate),
		formatFloat(s.AvgDurationMs),
		formatInt(s.TotalErrors),
		strconv.Itoa(s.UniqueErrorTypes),
	})
}

func writeCommands(w *csv.Writer, stats []analytics.CommandStat) error {
	if err := w.Write([]string{"command", "execution_count", "success_count", "failure_count", "success_rate", "avg_duration_ms", "last_used_at"}); err != nil {
		return err
	}
	for _, s := range stats {
		row := []string{
			s.Command,
			formatInt(s.ExecutionCount),
			formatInt(s.SuccessCount),
			formatInt(s.FailureCount),
			formatFloat(s.SuccessRate),
			formatFloat(s.AvgDurationMs),
			formatInt(s.LastUsedAt),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func writeErrors(w *csv.Writer, patterns []analytics.ErrorPattern) error {
	if err := w.Write([]string{"error_type", "error_message", "occurrence_count", "first_seen_at", "last_seen_at", "affected_user_count"}); err != nil {
		return err
	}
	for _, p := range patterns {
		row := []string{
			p.ErrorType,
			p.ErrorMessage,
			formatInt(p.OccurrenceCount),
			formatInt(p.FirstSeenAt),
			formatInt(p.LastSeenAt),
			strconv.Itoa(p.AffectedUserCount),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func writeEvents(w *csv.Writer, events []event.Record) error {
	if err := w.Write([]string{"id", "timestamp", "type", "user_id", "command", "success", "duration_ms", "error_type", "error_message", "metadata", "expires_at"}); err != nil {
		return err
	}
	for _, r := range events {
		success := ""
		if r.Success != nil {
			success = strconv.FormatBool(*r.Success)
		}
		duration := ""
		if r.DurationMs != nil {
			duration = formatInt(*r.DurationMs)
		}
		meta := ""
		if len(r.Metadata) > 0 {
			b, err := json.Marshal(r.Metadata)
			if err != nil {
				return fmt.Errorf("encode metadata for %s: %w", r.ID, err)
			}
			meta = string(b)
		}
		row := []string{
			r.ID,
			formatInt(r.Timestamp),
			string(r.Type),
			r.UserID,
			r.Command,
			success,
			duration,
			r.ErrorType,
			r.ErrorMessage,
			meta,
			formatInt(r.ExpiresAt),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func formatInt(n int64) string { return strconv.FormatInt(n, 10) }

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
