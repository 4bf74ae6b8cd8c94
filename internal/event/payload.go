package event

import (
	"fmt"
	"time"
)

// Payload is the wire form of an event as accepted by the HTTP ingest
// endpoint and the Kafka intake. Timestamp is optional epoch millis;
// zero means ingestion time.
type Payload struct {
	Type         string         `json:"type"`
	UserID       string         `json:"userId,omitempty"`
	Timestamp    int64          `json:"timestamp,omitempty"`
	Command      string         `json:"command,omitempty"`
	Success      *bool          `json:"success,omitempty"`
	DurationMs   *int64         `json:"durationMs,omitempty"`
	ErrorType    string         `json:"errorType,omitempty"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Input converts the payload into a typed event input, rejecting unknown
// types and malformed metadata before anything reaches the tracker.
func (p Payload) Input() (Input, error) {
	if err := ValidateMetadata(p.Metadata); err != nil {
		return nil, err
	}
	base := Base{UserID: p.UserID, Metadata: p.Metadata}
	if p.Timestamp > 0 {
		base.Timestamp = time.UnixMilli(p.Timestamp)
	}

	switch Type(p.Type) {
	case TypeMessageSent:
		return MessageSent{base}, nil
	case TypeActionExecuted:
		if p.Command == "" {
			return nil, fmt.Errorf("action_executed without command")
		}
		success := p.Success != nil && *p.Success
		return ActionExecuted{Base: base, Command: p.Command, Success: success, DurationMs: p.DurationMs}, nil
	case TypeErrorOccurred:
		if p.ErrorType == "" {
			return nil, fmt.Errorf("error_occurred without error type")
		}
		return ErrorOccurred{Base: base, ErrorType: p.ErrorType, ErrorMessage: p.ErrorMessage}, nil
	case TypeConnectionOpened:
		return ConnectionOpened{base}, nil
	case TypeConnectionClosed:
		return ConnectionClosed{base}, nil
	case TypeStreaming:
		return Streaming{base}, nil
	case TypeMultiStep:
		return MultiStep{base}, nil
	}
	return nil, fmt.Errorf("unknown event type %q", p.Type)
}
