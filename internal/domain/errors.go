package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidURL         = errors.New("invalid URL")
	ErrConfiguration      = errors.New("configuration error")
	ErrExecutableNotSet   = fmt.Errorf("%w: executable not set", ErrConfiguration)
	ErrNoExecutableFound  = fmt.Errorf("%w: no executable found", ErrConfiguration)
	ErrPositionOutOfRange = errors.New("position out of range")
	ErrDuplicateTarget    = errors.New("target already tracked")
)

// LaunchError means the external process could not be started.
type LaunchError struct {
	Executable string
	Err        error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch %s: %v", e.Executable, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// DecodeError means process output could not be decoded with the configured charset.
type DecodeError struct {
	Charset string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode output as %q: %v", e.Charset, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ProcessExitError reports a non-zero exit of the external tool.
type ProcessExitError struct {
	Code   int
	Stderr string
}

func (e *ProcessExitError) Error() string {
	if d := strings.TrimSpace(e.Stderr); d != "" {
		return fmt.Sprintf("exit status %d: %s", e.Code, d)
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Diagnostic returns what the tool printed on stderr, or the exit status when
// it printed nothing.
func (e *ProcessExitError) Diagnostic() string {
	if d := strings.TrimSpace(e.Stderr); d != "" {
		return d
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// InterruptedError means waiting for the process was cut short.
type InterruptedError struct {
	Err error
}

func (e *InterruptedError) Error() string {
	return fmt.Sprintf("interrupted: %v", e.Err)
}

func (e *InterruptedError) Unwrap() error { return e.Err }

// MalformedPayloadError means the tool exited cleanly but its JSON could not be used.
type MalformedPayloadError struct {
	Reason string
	Err    error
}

func (e *MalformedPayloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed payload: %s: %v", e.Reason, e.Err)
	}
	return "malformed payload: " + e.Reason
}

func (e *MalformedPayloadError) Unwrap() error { return e.Err }

// IsTransient reports whether retrying the same operation could succeed.
// Only non-zero exits and interrupted waits qualify.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var exitErr *ProcessExitError
	return errors.As(err, &exitErr) || IsInterrupted(err)
}

// IsInterrupted reports whether err stems from an interrupted wait or a
// cancelled context.
func IsInterrupted(err error) bool {
	var intErr *InterruptedError
	return errors.As(err, &intErr) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// Classify maps the error of a finished task to an outcome. attempts is the
// number of launches made; maxAttempts the budget for the task. A task cut
// short by cancellation is never fatal; any other interruption counts against
// the budget.
func Classify(err error, attempts, maxAttempts int) Outcome {
	switch {
	case err == nil:
		return OutcomeSucceeded
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeFailedTransient
	case IsTransient(err) && attempts < maxAttempts:
		return OutcomeFailedTransient
	default:
		return OutcomeFailedFatal
	}
}

// Diagnostic renders err the way it is shown in failure reports.
func Diagnostic(err error) string {
	if err == nil {
		return ""
	}
	var exitErr *ProcessExitError
	if errors.As(err, &exitErr) {
		return exitErr.Diagnostic()
	}
	return err.Error()
}
