package faults

import (
	"errors"
	"fmt"
	"testing"
)

func TestFault_Error(t *testing.T) {
	f := Usage(CodeTrackBeforeStart, "track before Start, event dropped")
	expected := "[USAGE:TRACK_BEFORE_START] track before Start, event dropped"
	if f.Error() != expected {
		t.Errorf("got %q, want %q", f.Error(), expected)
	}
}

func TestFault_ErrorWithSinkAndCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	f := Dispatch(CodeTrackFailed, "webhook", cause)
	expected := "[DISPATCH:TRACK_FAILED] sink=webhook delivery lost for this sink: connection refused"
	if f.Error() != expected {
		t.Errorf("got %q, want %q", f.Error(), expected)
	}
}

func TestFault_Unwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	f := Startup(CodeSinkStartFailed, "collector", cause)
	if !errors.Is(f, cause) {
		t.Error("Unwrap should allow errors.Is to find the cause")
	}
}

func TestFault_Is(t *testing.T) {
	f1 := Dispatch(CodeTrackFailed, "console", nil)
	f2 := Dispatch(CodeTrackFailed, "webhook", nil)
	f3 := Dispatch(CodeSetFailed, "console", nil)

	if !errors.Is(f1, f2) {
		t.Error("faults with same category+code should match via Is regardless of sink")
	}
	if errors.Is(f1, f3) {
		t.Error("faults with different codes should not match via Is")
	}
}

func TestCategoryAndCodeOf(t *testing.T) {
	f := State(CodeMalformedCounter, "cold launch counter reset to zero")
	wrapped := fmt.Errorf("while starting: %w", f)

	if got := CategoryOf(wrapped); got != CategoryState {
		t.Errorf("CategoryOf: got %q, want %q", got, CategoryState)
	}
	if got := CodeOf(wrapped); got != CodeMalformedCounter {
		t.Errorf("CodeOf: got %q, want %q", got, CodeMalformedCounter)
	}
	if got := CategoryOf(errors.New("plain")); got != "" {
		t.Errorf("CategoryOf(plain): got %q, want empty", got)
	}
}
