// Package faults provides the structured failure type used in Pulse log
// lines. Nothing in the library propagates a failure to the host
// application; faults exist so that logs and tests can classify what was
// lost and where.
package faults

import (
	"errors"
	"fmt"
)

// Category classifies a fault by the component that produced it.
type Category string

const (
	CategoryUsage    Category = "USAGE"
	CategoryStartup  Category = "STARTUP"
	CategoryDispatch Category = "DISPATCH"
	CategoryStorage  Category = "STORAGE"
	CategoryState    Category = "STATE"
)

// Fault codes for each category.
const (
	// Usage codes
	CodeTrackBeforeStart = "TRACK_BEFORE_START"
	CodeSetBeforeStart   = "SET_BEFORE_START"
	CodeStartTwice       = "START_TWICE"
	CodeActivateTwice    = "ACTIVATE_TWICE"

	// Startup codes
	CodeSinkStartFailed  = "SINK_START_FAILED"
	CodeSinkStartTimeout = "SINK_START_TIMEOUT"
	CodeSinkStartPanic   = "SINK_START_PANIC"

	// Dispatch codes
	CodeTrackFailed = "TRACK_FAILED"
	CodeSetFailed   = "SET_FAILED"
	CodeSinkPanic   = "SINK_PANIC"

	// Storage codes
	CodeReadFailed  = "READ_FAILED"
	CodeWriteFailed = "WRITE_FAILED"

	// State codes
	CodeMalformedSnapshot = "MALFORMED_SNAPSHOT"
	CodeMalformedCounter  = "MALFORMED_COUNTER"
)

// Fault is the structured failure recorded in log lines. Sink carries the
// identity of the sink involved, when one was.
type Fault struct {
	Category Category
	Code     string
	Sink     string
	Message  string
	Cause    error
}

// Error returns the formatted fault string.
func (f *Fault) Error() string {
	s := fmt.Sprintf("[%s:%s]", f.Category, f.Code)
	if f.Sink != "" {
		s += " sink=" + f.Sink
	}
	s += " " + f.Message
	if f.Cause != nil {
		s += ": " + f.Cause.Error()
	}
	return s
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (f *Fault) Unwrap() error {
	return f.Cause
}

// Is reports whether the target matches this fault's category and code.
func (f *Fault) Is(target error) bool {
	var t *Fault
	if errors.As(target, &t) {
		return f.Category == t.Category && f.Code == t.Code
	}
	return false
}

// New creates a Fault without a sink or cause.
func New(category Category, code, message string) *Fault {
	return &Fault{Category: category, Code: code, Message: message}
}

// Usage creates a usage fault (the caller misused the API; the operation
// became a no-op).
func Usage(code, message string) *Fault {
	return New(CategoryUsage, code, message)
}

// Startup creates a fault for a sink that failed to start.
func Startup(code, sinkName string, cause error) *Fault {
	return &Fault{
		Category: CategoryStartup,
		Code:     code,
		Sink:     sinkName,
		Message:  "sink excluded from this session",
		Cause:    cause,
	}
}

// Dispatch creates a fault for a delivery that one sink rejected.
func Dispatch(code, sinkName string, cause error) *Fault {
	return &Fault{
		Category: CategoryDispatch,
		Code:     code,
		Sink:     sinkName,
		Message:  "delivery lost for this sink",
		Cause:    cause,
	}
}

// Storage creates a fault for a persistent store operation that failed.
func Storage(code, key string, cause error) *Fault {
	return &Fault{
		Category: CategoryStorage,
		Code:     code,
		Message:  fmt.Sprintf("key %q", key),
		Cause:    cause,
	}
}

// State creates a fault for persisted state that could not be parsed and was
// treated as absent.
func State(code, message string) *Fault {
	return New(CategoryState, code, message)
}

// CategoryOf extracts the category from an error chain. Returns the empty
// string when the error is not a Fault.
func CategoryOf(err error) Category {
	var f *Fault
	if errors.As(err, &f) {
		return f.Category
	}
	return ""
}

// CodeOf extracts the code from an error chain. Returns the empty string
// when the error is not a Fault.
func CodeOf(err error) string {
	var f *Fault
	if errors.As(err, &f) {
		return f.Code
	}
	return ""
}
