// Package analytics computes on-demand aggregates over the event store:
// dashboard summaries, per-command rollups, error-pattern clusters, and
// per-user activity. Aggregates are recomputed per query and never cached.
package analytics

import (
	"sort"

	"github.com/ClawPulse/ClawPulse/internal/event"
	"github.com/ClawPulse/ClawPulse/internal/store"
)

// Store is the read surface the engine needs. The SQLite store satisfies
// it in production; tests may substitute an in-memory double. Every query
// is keyed on a dimension, so the plain range scan is not part of it.
type Store interface {
	ScanDimension(dim store.Dimension, value string, start, end int64, fn func(event.Record) error) error
}

// DashboardSummary is the overall rollup for a time window.
type DashboardSummary struct {
	TotalExecutions  int64   `json:"total_executions"`
	SuccessRate      float64 `json:"success_rate"`
	AvgDurationMs    float64 `json:"avg_duration_ms"`
	TotalErrors      int64   `json:"total_errors"`
	UniqueErrorTypes int     `json:"unique_error_types"`
}

// CommandStat is the per-command rollup for a time window.
type CommandStat struct {
	Command        string  `json:"command"`
	ExecutionCount int64   `json:"execution_count"`
	SuccessCount   int64   `json:"success_count"`
	FailureCount   int64   `json:"failure_count"`
	SuccessRate    float64 `json:"success_rate"`
	AvgDurationMs  float64 `json:"avg_duration_ms"`
	LastUsedAt     int64   `json:"last_used_at"`
}

// ErrorPattern clusters error events by (type, message).
type ErrorPattern struct {
	ErrorType         string `json:"error_type"`
	ErrorMessage      string `json:"error_message"`
	OccurrenceCount   int64  `json:"occurrence_count"`
	FirstSeenAt       int64  `json:"first_seen_at"`
	LastSeenAt        int64  `json:"last_seen_at"`
	AffectedUserCount int    `json:"affected_user_count"`
}

// Engine answers aggregate queries. It is a pure function of the store's
// visible state at call time; concurrent ingestion may or may not be seen.
type Engine struct {
	store Store
}

func New(s Store) *Engine {
	return &Engine{store: s}
}

// Summary computes the dashboard rollup for the window.
func (e *Engine) Summary(w Window) (*DashboardSummary, error) {
	start, end, err := w.resolve()
	if err != nil {
		return nil, err
	}

	var (
		sum           DashboardSummary
		successes     int64
		durationSum   int64
		durationCount int64
	)
	err = e.store.ScanDimension(store.DimensionType, string(event.TypeActionExecuted), start, end, func(r event.Record) error {
		sum.TotalExecutions++
		if r.Success != nil && *r.Success {
			successes++
		}
		if r.DurationMs != nil {
			durationSum += *r.DurationMs
			durationCount++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	errorTypes := make(map[string]struct{})
	err = e.store.ScanDimension(store.DimensionType, string(event.TypeErrorOccurred), start, end, func(r event.Record) error {
		sum.TotalErrors++
		errorTypes[r.ErrorType] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if sum.TotalExecutions > 0 {
		sum.SuccessRate = float64(successes) / float64(sum.TotalExecutions)
	}
	if durationCount > 0 {
		sum.AvgDurationMs = float64(durationSum) / float64(durationCount)
	}
	sum.UniqueErrorTypes = len(errorTypes)
	return &sum, nil
}

// CommandStats computes the rollup for one command. A command with no
// executions in range yields a zeroed stat, not an error.
func (e *Engine) CommandStats(command string, w Window) (*CommandStat, error) {
	if command == "" {
		return nil, Validationf("command name required")
	}
	start, end, err := w.resolve()
	if err != nil {
		return nil, err
	}

	stat := &CommandStat{Command: command}
	var durationSum, durationCount int64
	err = e.store.ScanDimension(store.DimensionCommand, command, start, end, func(r event.Record) error {
		foldCommand(stat, &durationSum, &durationCount, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	finishCommand(stat, durationSum, durationCount)
	return stat, nil
}

// PopularCommands ranks all commands with at least one execution in range
// by execution count descending, command name ascending on ties, capped
// at limit. Truncation happens after the full order is resolved.
func (e *Engine) PopularCommands(w Window, limit int) ([]CommandStat, error) {
	if limit <= 0 {
		return nil, Validationf("limit must be positive, got %d", limit)
	}
	start, end, err := w.resolve()
	if err != nil {
		return nil, err
	}

	type fold struct {
		stat          *CommandStat
		durationSum   int64
		durationCount int64
	}
	byCommand := make(map[string]*fold)
	err = e.store.ScanDimension(store.DimensionType, string(event.TypeActionExecuted), start, end, func(r event.Record) error {
		f := byCommand[r.Command]
		if f == nil {
			f = &fold{stat: &CommandStat{Command: r.Command}}
			byCommand[r.Command] = f
		}
		foldCommand(f.stat, &f.durationSum, &f.durationCount, r)
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]CommandStat, 0, len(byCommand))
	for _, f := range byCommand {
		finishCommand(f.stat, f.durationSum, f.durationCount)
		out = append(out, *f.stat)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ExecutionCount != out[j].ExecutionCount {
			return out[i].ExecutionCount > out[j].ExecutionCount
		}
		return out[i].Command < out[j].Command
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func foldCommand(stat *CommandStat, durationSum, durationCount *int64, r event.Record) {
	stat.ExecutionCount++
	if r.Success != nil && *r.Success {
		stat.SuccessCount++
	} else {
		stat.FailureCount++
	}
	if r.DurationMs != nil {
		*durationSum += *r.DurationMs
		(*durationCount)++
	}
	if r.Timestamp > stat.LastUsedAt {
		stat.LastUsedAt = r.Timestamp
	}
}

func finishCommand(stat *CommandStat, durationSum, durationCount int64) {
	if stat.ExecutionCount > 0 {
		stat.SuccessRate = float64(stat.SuccessCount) / float64(stat.ExecutionCount)
	}
	if durationCount > 0 {
		stat.AvgDurationMs = float64(durationSum) / float64(durationCount)
	}
}

// ErrorPatterns clusters error events by (type, message), optionally
// restricted to one error type, ranked by occurrence count descending
// then last-seen descending, capped at limit.
func (e *Engine) ErrorPatterns(errorType string, w Window, limit int) ([]ErrorPattern, error) {
	if limit <= 0 {
		return nil, Validationf("limit must be positive, got %d", limit)
	}
	start, end, err := w.resolve()
	if err != nil {
		return nil, err
	}

	type key struct{ typ, msg string }
	type fold struct {
		pattern ErrorPattern
		users   map[string]struct{}
	}
	byKey := make(map[key]*fold)
	err = e.store.ScanDimension(store.DimensionType, string(event.TypeErrorOccurred), start, end, func(r event.Record) error {
		if errorType != "" && r.ErrorType != errorType {
			return nil
		}
		k := key{typ: r.ErrorType, msg: r.ErrorMessage}
		f := byKey[k]
		if f == nil {
			f = &fold{
				pattern: ErrorPattern{ErrorType: r.ErrorType, ErrorMessage: r.ErrorMessage, FirstSeenAt: r.Timestamp},
				users:   make(map[string]struct{}),
			}
			byKey[k] = f
		}
		f.pattern.OccurrenceCount++
		if r.Timestamp < f.pattern.FirstSeenAt {
			f.pattern.FirstSeenAt = r.Timestamp
		}
		if r.Timestamp > f.pattern.LastSeenAt {
			f.pattern.LastSeenAt = r.Timestamp
		}
		if r.UserID != "" {
			f.users[r.UserID] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]ErrorPattern, 0, len(byKey))
	for _, f := range byKey {
		f.pattern.AffectedUserCount = len(f.users)
		out = append(out, f.pattern)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OccurrenceCount != out[j].OccurrenceCount {
			return out[i].OccurrenceCount > out[j].OccurrenceCount
		}
		return out[i].LastSeenAt > out[j].LastSeenAt
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UserActivity returns the raw events for one user in the window, newest
// first, capped at limit. Rollups stay derivable from the raw slice.
func (e *Engine) UserActivity(userID string, w Window, limit int) ([]event.Record, error) {
	if userID == "" {
		return nil, Validationf("userId required")
	}
	if limit <= 0 {
		return nil, Validationf("limit must be positive, got %d", limit)
	}
	start, end, err := w.resolve()
	if err != nil {
		return nil, err
	}

	var out []event.Record
	err = e.store.ScanDimension(store.DimensionUser, userID, start, end, func(r event.Record) error {
		out = append(out, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Scan yields ascending order; newest first is the useful view here.
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
