package core

import (
	"fmt"
)

// ExecutionError represents a structured error with category and details
type ExecutionError struct {
	Category ErrorCategory
	Code     string                 // Machine-readable code: element_not_found, wait_timeout, etc.
	Message  string                 // Human-readable message
	Details  map[string]interface{} // Additional context
	Cause    error                  // Underlying error
}

// Error implements the error interface
func (e *ExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Is matches any ExecutionError with the same code, so derived copies still
// compare equal to the predefined sentinels.
func (e *ExecutionError) Is(target error) bool {
	t, ok := target.(*ExecutionError)
	if !ok || t == nil {
		return false
	}
	return e.Code != "" && e.Code == t.Code
}

// WithCause returns a copy of the error with the given cause
func (e *ExecutionError) WithCause(cause error) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  e.Details,
		Cause:    cause,
	}
}

// WithMessage returns a copy of the error with a custom message
func (e *ExecutionError) WithMessage(msg string) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  msg,
		Details:  e.Details,
		Cause:    e.Cause,
	}
}

// WithDetails returns a copy of the error with additional details
func (e *ExecutionError) WithDetails(details map[string]interface{}) *ExecutionError {
	merged := make(map[string]interface{})
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  merged,
		Cause:    e.Cause,
	}
}

// Predefined errors
var (
	// ErrElementNotFound is the expected-absence condition. Only
	// device.Utils.WaitForElement and ScrollToElement signal it; the Safe*
	// wrappers turn it into false or a default value.
	ErrElementNotFound = &ExecutionError{
		Category: ErrCategoryAssertion,
		Code:     "element_not_found",
		Message:  "element not found",
	}

	// ErrWaitTimeout is returned by wait.Until when the condition never held.
	ErrWaitTimeout = &ExecutionError{
		Category: ErrCategoryTimeout,
		Code:     "wait_timeout",
		Message:  "wait condition timed out",
	}

	// ErrConnection means the session could not be opened.
	ErrConnection = &ExecutionError{
		Category: ErrCategoryConnection,
		Code:     "connection_failed",
		Message:  "could not open device session",
	}

	// ErrSessionClosed is returned for any command issued after Close.
	ErrSessionClosed = &ExecutionError{
		Category: ErrCategoryConnection,
		Code:     "session_closed",
		Message:  "device session is closed",
	}

	// ErrCommand means a device command reached the server and failed.
	ErrCommand = &ExecutionError{
		Category: ErrCategoryCommand,
		Code:     "command_failed",
		Message:  "device command failed",
	}

	// Config errors
	ErrInvalidConfig = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "invalid_config",
		Message:  "invalid configuration",
	}
)

// CommandError wraps a failed device command.
func CommandError(command string, cause error) *ExecutionError {
	return ErrCommand.
		WithMessage(fmt.Sprintf("%s failed", command)).
		WithDetails(map[string]interface{}{"command": command}).
		WithCause(cause)
}
