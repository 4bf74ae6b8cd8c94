// Package event defines the usage event model: the closed set of event
// kinds, the typed inputs accepted by the ingestion path, and the stored
// record shape shared by the store and the aggregation engine.
package event

import (
	"fmt"
	"time"
)

// Type identifies the kind of a usage event.
type Type string

const (
	TypeMessageSent      Type = "message_sent"
	TypeActionExecuted   Type = "action_executed"
	TypeErrorOccurred    Type = "error_occurred"
	TypeConnectionOpened Type = "connection_opened"
	TypeConnectionClosed Type = "connection_closed"
	TypeStreaming        Type = "streaming_event"
	TypeMultiStep        Type = "multi_step_execution"
)

// Retention is how long an event stays visible to queries after its
// timestamp. Past it the event is logically expired even if the sweeper
// has not physically removed it yet.
const Retention = 90 * 24 * time.Hour

// KnownType reports whether t is one of the enumerated event kinds.
func KnownType(t Type) bool {
	switch t {
	case TypeMessageSent, TypeActionExecuted, TypeErrorOccurred,
		TypeConnectionOpened, TypeConnectionClosed, TypeStreaming, TypeMultiStep:
		return true
	}
	return false
}

// Record is the stored, immutable form of an event. Timestamps are epoch
// milliseconds. Fields that only apply to some kinds are pointers or
// omitted-when-empty strings.
type Record struct {
	ID           string         `json:"id"`
	Timestamp    int64          `json:"timestamp"`
	Type         Type           `json:"type"`
	UserID       string         `json:"user_id,omitempty"`
	Command      string         `json:"command,omitempty"`
	Success      *bool          `json:"success,omitempty"`
	DurationMs   *int64         `json:"duration_ms,omitempty"`
	ErrorType    string         `json:"error_type,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	ExpiresAt    int64          `json:"expires_at"`
}

// Expired reports whether the record is past its retention window at now.
func (r *Record) Expired(now time.Time) bool {
	return r.ExpiresAt <= now.UnixMilli()
}

// Base carries the fields common to every event input. A zero Timestamp
// means "now" is assigned at ingestion.
type Base struct {
	UserID    string
	Timestamp time.Time
	Metadata  map[string]any
}

func (b Base) base() Base { return b }

// Input is the sealed set of event inputs accepted by the tracker, one
// variant per event kind.
type Input interface {
	Kind() Type
	base() Base
}

// MessageSent records a message being sent through the assistant.
type MessageSent struct{ Base }

func (MessageSent) Kind() Type { return TypeMessageSent }

// ActionExecuted records one command execution and its outcome.
// DurationMs is nil when no duration was measured.
type ActionExecuted struct {
	Base
	Command    string
	Success    bool
	DurationMs *int64
}

func (ActionExecuted) Kind() Type { return TypeActionExecuted }

// ErrorOccurred records a raised error.
type ErrorOccurred struct {
	Base
	ErrorType    string
	ErrorMessage string
}

func (ErrorOccurred) Kind() Type { return TypeErrorOccurred }

// ConnectionOpened records a session or connection starting.
type ConnectionOpened struct{ Base }

func (ConnectionOpened) Kind() Type { return TypeConnectionOpened }

// ConnectionClosed records a session or connection ending.
type ConnectionClosed struct{ Base }

func (ConnectionClosed) Kind() Type { return TypeConnectionClosed }

// Streaming records a streaming lifecycle event.
type Streaming struct{ Base }

func (Streaming) Kind() Type { return TypeStreaming }

// MultiStep records a multi-step execution run.
type MultiStep struct{ Base }

func (MultiStep) Kind() Type { return TypeMultiStep }

// Millis is a convenience for optional duration fields.
func Millis(d time.Duration) *int64 {
	ms := d.Milliseconds()
	return &ms
}

// ValidateMetadata rejects metadata values outside the scalar kinds the
// export path can serialize losslessly.
func ValidateMetadata(m map[string]any) error {
	for k, v := range m {
		switch v.(type) {
		case nil, string, bool, int, int32, int64, float32, float64:
		default:
			return fmt.Errorf("metadata key %q: unsupported value type %T", k, v)
		}
	}
	return nil
}

// NewRecord flattens an input into a stored record, assigning id,
// timestamp (now unless the input carries one), and expiry.
func NewRecord(in Input, id string, now time.Time) (Record, error) {
	if in == nil {
		return Record{}, fmt.Errorf("nil event input")
	}
	if !KnownType(in.Kind()) {
		return Record{}, fmt.Errorf("unknown event type %q", in.Kind())
	}
	b := in.base()
	if err := ValidateMetadata(b.Metadata); err != nil {
		return Record{}, err
	}

	ts := b.Timestamp
	if ts.IsZero() {
		ts = now
	}
	rec := Record{
		ID:        id,
		Timestamp: ts.UnixMilli(),
		Type:      in.Kind(),
		UserID:    b.UserID,
		Metadata:  b.Metadata,
		ExpiresAt: ts.Add(Retention).UnixMilli(),
	}

	switch v := in.(type) {
	case MessageSent, ConnectionOpened, ConnectionClosed, Streaming, MultiStep:
	case ActionExecuted:
		if v.Command == "" {
			return Record{}, fmt.Errorf("action_executed without command")
		}
		rec.Command = v.Command
		success := v.Success
		rec.Success = &success
		rec.DurationMs = v.DurationMs
	case ErrorOccurred:
		if v.ErrorType == "" {
			return Record{}, fmt.Errorf("error_occurred without error type")
		}
		rec.ErrorType = v.ErrorType
		rec.ErrorMessage = v.ErrorMessage
	default:
		return Record{}, fmt.Errorf("unhandled event input %T", in)
	}
	return rec, nil
}
