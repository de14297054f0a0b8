package recorder

import (
	"errors"
	"fmt"
)

// Sentinel errors for caller-side errors.Is checks.
var (
	// ErrNotInitialized is returned by operations that require a live engine
	// connection when none was ever established.
	ErrNotInitialized = errors.New("recorder not initialized")

	// ErrNoResolutionsAvailable is returned when the engine offers no
	// resolution candidates to match against.
	ErrNoResolutionsAvailable = errors.New("no resolutions available")
)

// InitError reports a non-zero result code from engine initialization.
type InitError struct {
	Code   int
	Reason string
}

func (e *InitError) Error() string {
	return fmt.Sprintf("engine init failed with code %d: %s", e.Code, e.Reason)
}

// initReason maps known engine init result codes to human-readable reasons.
func initReason(code int) string {
	switch code {
	case -2:
		return "required engine files are missing"
	case -5:
		return "video subsystem failed to initialize"
	default:
		return fmt.Sprintf("unknown error #%d", code)
	}
}

// DisplayNotFoundError reports a configured display index that did not
// resolve to an enumerable physical display.
type DisplayNotFoundError struct {
	Index int // 1-based, as configured
}

func (e *DisplayNotFoundError) Error() string {
	return fmt.Sprintf("display %d not found", e.Index)
}

// InvalidCaptureModeError reports an unrecognized capture mode value.
type InvalidCaptureModeError struct {
	Mode string
}

func (e *InvalidCaptureModeError) Error() string {
	return fmt.Sprintf("invalid capture mode %q", e.Mode)
}

// SignalTimeoutError reports that an awaited output signal did not arrive
// within the wait window.
type SignalTimeoutError struct {
	Expected string
}

func (e *SignalTimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting for %q signal", e.Expected)
}

// UnexpectedSignalTypeError reports a signal whose type is not "recording".
type UnexpectedSignalTypeError struct {
	Got string
}

func (e *UnexpectedSignalTypeError) Error() string {
	return fmt.Sprintf("unexpected signal type %q", e.Got)
}

// UnexpectedSignalValueError reports a signal arriving out of order.
type UnexpectedSignalValueError struct {
	Expected string
	Got      string
}

func (e *UnexpectedSignalValueError) Error() string {
	return fmt.Sprintf("expected %q signal, got %q", e.Expected, e.Got)
}

// ShutdownError wraps a failure from the engine disconnect during shutdown.
type ShutdownError struct {
	Err error
}

func (e *ShutdownError) Error() string {
	return fmt.Sprintf("engine shutdown failed: %v", e.Err)
}

func (e *ShutdownError) Unwrap() error {
	return e.Err
}
