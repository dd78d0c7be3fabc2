package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"process exit", &ProcessExitError{Code: 1}, true},
		{"wrapped process exit", fmt.Errorf("fetch: %w", &ProcessExitError{Code: 2}), true},
		{"interrupted", &InterruptedError{Err: errors.New("signal: killed")}, true},
		{"context cancelled", context.Canceled, true},
		{"launch", &LaunchError{Executable: "x", Err: errors.New("not found")}, false},
		{"decode", &DecodeError{Charset: "gbk"}, false},
		{"malformed payload", &MalformedPayloadError{Reason: "missing title"}, false},
		{"configuration", ErrExecutableNotSet, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestClassify(t *testing.T) {
	exit := &ProcessExitError{Code: 1, Stderr: "boom"}

	assert.Equal(t, OutcomeSucceeded, Classify(nil, 1, 3))
	assert.Equal(t, OutcomeFailedFatal, Classify(exit, 3, 3), "exhausted retries are fatal")
	assert.Equal(t, OutcomeFailedTransient, Classify(exit, 2, 3))
	assert.Equal(t, OutcomeFailedFatal, Classify(&LaunchError{Executable: "x"}, 1, 3))
	assert.Equal(t, OutcomeFailedFatal, Classify(&MalformedPayloadError{Reason: "x"}, 1, 3))
	assert.Equal(t, OutcomeFailedTransient, Classify(context.Canceled, 3, 3), "cancellation is never fatal")
	assert.Equal(t, OutcomeFailedTransient,
		Classify(&InterruptedError{Err: context.DeadlineExceeded}, 3, 3))

	killed := &InterruptedError{Err: errors.New("signal: killed")}
	assert.Equal(t, OutcomeFailedTransient, Classify(killed, 1, 3))
	assert.Equal(t, OutcomeFailedFatal, Classify(killed, 3, 3), "interruption without cancellation exhausts the budget")
	assert.Equal(t, OutcomeFailedFatal, Classify(&ProcessExitError{Code: -1, Stderr: "crashing"}, 3, 3))
}

func TestDiagnostic(t *testing.T) {
	assert.Equal(t, "boom", Diagnostic(&ProcessExitError{Code: 1, Stderr: "  boom\n"}))
	assert.Equal(t, "exit status 2", Diagnostic(&ProcessExitError{Code: 2}))
	assert.Equal(t, "malformed payload: missing title", Diagnostic(&MalformedPayloadError{Reason: "missing title"}))
	assert.Empty(t, Diagnostic(nil))
}

func TestErrExecutableNotSetIsConfiguration(t *testing.T) {
	assert.ErrorIs(t, ErrExecutableNotSet, ErrConfiguration)
}
