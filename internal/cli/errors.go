// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Unified error handling for ecosort commands.
//
// STANDARDIZED PATTERN:
//   - Commands always return errors; Execute prints them once
//   - Structured error types carry the exit code category
//   - Gateway errors map onto exit codes by their type

package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/ecosort/ecosort-tui/internal/backend"
	"github.com/ecosort/ecosort-tui/internal/gateway"
	"github.com/ecosort/ecosort-tui/internal/orchestrator"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates configuration file or settings error
	ExitConfigError = 3
	// ExitAuthError indicates a missing or rejected session
	ExitAuthError = 4
	// ExitNetworkError indicates the backend could not be reached
	ExitNetworkError = 5
	// ExitTimeoutError indicates a request timed out
	ExitTimeoutError = 8
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError represents a CLI command error with context.
type CommandError struct {
	Command string // Command that failed (e.g., "login", "feedback")
	Action  string // Action being performed (e.g., "submit", "delete")
	Reason  string // Human-readable reason
	Err     error  // Underlying error (if any)
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %s: %v", e.Command, e.Action, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Command, e.Action, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ValidationError represents a validation failure for user input.
type ValidationError struct {
	Field   string
	Value   string
	Reason  string
	Example string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (got: %s)", e.Value)
	}
	if e.Example != "" {
		msg += fmt.Sprintf("\nExample: %s", e.Example)
	}
	return msg
}

// configError marks failures loading or saving configuration.
type configError struct {
	err error
}

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

// ErrNotLoggedIn is returned by commands that need a session.
var ErrNotLoggedIn = errors.New("not logged in: run 'ecosort login' first")

// =============================================================================
// ERROR CONSTRUCTION HELPERS
// =============================================================================

// NewCommandError creates a new command error.
func NewCommandError(command, action, reason string, err error) error {
	return &CommandError{
		Command: command,
		Action:  action,
		Reason:  reason,
		Err:     err,
	}
}

// NewValidationError creates a new validation error.
func NewValidationError(field, value, reason string) error {
	return &ValidationError{
		Field:  field,
		Value:  value,
		Reason: reason,
	}
}

// NewValidationErrorWithExample creates a validation error with an example.
func NewValidationErrorWithExample(field, value, reason, example string) error {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Reason:  reason,
		Example: example,
	}
}

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// ExitCode returns the process exit code for err.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var verr *ValidationError
	var cerr *configError
	switch {
	case errors.As(err, &verr),
		errors.Is(err, backend.ErrInvalidFeedback),
		errors.Is(err, orchestrator.ErrNotImage),
		errors.Is(err, orchestrator.ErrTooLarge),
		errors.Is(err, orchestrator.ErrEmptySubmission):
		return ExitUsageError
	case errors.As(err, &cerr):
		return ExitConfigError
	case errors.Is(err, ErrNotLoggedIn),
		gateway.IsUnauthenticated(err),
		gateway.IsUnauthorized(err):
		return ExitAuthError
	case gateway.IsTimeout(err):
		return ExitTimeoutError
	case gateway.IsTransport(err):
		return ExitNetworkError
	default:
		return ExitGeneralError
	}
}

// describe returns the message shown to the user. Backend errors show
// the server's own message when it sent one.
func describe(err error) string {
	var ce *gateway.ClientError
	if errors.As(err, &ce) && ce.Message != "" {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) {
			return fmt.Sprintf("%s %s failed: %s", cmdErr.Command, cmdErr.Action, ce.Message)
		}
		return ce.Message
	}
	return err.Error()
}

// DisplayError prints err in the standard "Error: ..." form.
func DisplayError(w io.Writer, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(w, "Error: %s\n", describe(err))
}
