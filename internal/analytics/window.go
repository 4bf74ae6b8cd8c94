package analytics

import (
	"errors"
	"fmt"
	"math"
)

// Window is an inclusive [Start, End] time range in epoch milliseconds.
// A non-positive bound means "unbounded" on that side, so the zero Window
// covers all time.
type Window struct {
	Start int64
	End   int64
}

func (w Window) resolve() (int64, int64, error) {
	start := w.Start
	if start < 0 {
		start = 0
	}
	end := w.End
	if end <= 0 {
		end = math.MaxInt64
	}
	if w.Start > 0 && w.End > 0 && w.Start > w.End {
		return 0, 0, Validationf("invalid range: start %d after end %d", w.Start, w.End)
	}
	return start, end, nil
}

// ValidationError marks a caller fault (malformed range, bad limit). The
// API boundary maps it to a 400 rather than a retryable failure.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

// Validationf builds a ValidationError.
func Validationf(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a caller fault.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
