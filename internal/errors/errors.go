package errors

import (
	"errors"
	"fmt"
)

// MirrorError is the structured error type for fcmirror.
// It carries enough context for logging, CLI output and JSON reporting.
type MirrorError struct {
	// Code is the unique error code (e.g., "ERR_304_HTTP_STATUS").
	Code string

	// Message is the human-readable error message.
	Message string

	Category Category
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates the user may simply run the command again.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *MirrorError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *MirrorError) Unwrap() error {
	return e.Cause
}

// Is matches another MirrorError by code, so sentinel values built with
// New can be used as errors.Is targets.
func (e *MirrorError) Is(target error) bool {
	if t, ok := target.(*MirrorError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *MirrorError) WithDetail(key, value string) *MirrorError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *MirrorError) WithSuggestion(suggestion string) *MirrorError {
	e.Suggestion = suggestion
	return e
}

// New creates a new MirrorError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *MirrorError {
	return &MirrorError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a MirrorError from an existing error.
// The error's message becomes the MirrorError message.
func Wrap(code string, err error) *MirrorError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *MirrorError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// IOError creates a local filesystem error.
func IOError(message string, cause error) *MirrorError {
	return New(ErrCodeFileWrite, message, cause)
}

// NetworkError creates a transport error.
func NetworkError(message string, cause error) *MirrorError {
	return New(ErrCodeNetworkUnavailable, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *MirrorError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *MirrorError {
	return New(ErrCodeInternal, message, cause)
}

// As returns the first MirrorError in err's chain.
func As(err error) (*MirrorError, bool) {
	var me *MirrorError
	if errors.As(err, &me) {
		return me, true
	}
	return nil, false
}

// IsRetryable reports whether err carries a retryable MirrorError.
func IsRetryable(err error) bool {
	if me, ok := As(err); ok {
		return me.Retryable
	}
	return false
}

// IsFatal reports whether err carries a MirrorError with fatal severity.
func IsFatal(err error) bool {
	if me, ok := As(err); ok {
		return me.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a MirrorError.
// Returns empty string if err has none in its chain.
func GetCode(err error) string {
	if me, ok := As(err); ok {
		return me.Code
	}
	return ""
}

// GetCategory extracts the category from a MirrorError.
func GetCategory(err error) Category {
	if me, ok := As(err); ok {
		return me.Category
	}
	return ""
}
