package core

// TestStatus is the outcome of one test case.
type TestStatus string

// TestStatus values, serialized as in the report schema.
const (
	StatusPassed TestStatus = "PASSED"
	StatusFailed TestStatus = "FAILED"
)

// IsSuccess returns true for StatusPassed.
func (s TestStatus) IsSuccess() bool {
	return s == StatusPassed
}

// ErrorCategory classifies the type of error for better debugging and reporting
type ErrorCategory int

const (
	ErrCategoryNone       ErrorCategory = iota // No error
	ErrCategoryAssertion                       // Element not found
	ErrCategoryTimeout                         // Wait condition timed out
	ErrCategoryConnection                      // Session could not be opened or is gone
	ErrCategoryCommand                         // Device command failed
	ErrCategoryConfig                          // Invalid configuration
)

// String returns the string representation of ErrorCategory
func (c ErrorCategory) String() string {
	switch c {
	case ErrCategoryNone:
		return "none"
	case ErrCategoryAssertion:
		return "assertion"
	case ErrCategoryTimeout:
		return "timeout"
	case ErrCategoryConnection:
		return "connection"
	case ErrCategoryCommand:
		return "command"
	case ErrCategoryConfig:
		return "config"
	default:
		return "unknown"
	}
}
