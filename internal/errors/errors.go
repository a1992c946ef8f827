package errors

import (
	"fmt"
)

// GuideError is the structured error type for GuideMCP.
// It provides context for error handling, logging, and tool responses.
type GuideError struct {
	// Code is the unique error code (e.g., "ERR_201_REPO_STATE").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, RepoState, Network, ...).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool
}

// Error implements the error interface.
func (e *GuideError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *GuideError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with GuideError.
func (e *GuideError) Is(target error) bool {
	if t, ok := target.(*GuideError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *GuideError) WithDetail(key, value string) *GuideError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new GuideError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *GuideError {
	return &GuideError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a GuideError from an existing error.
// The error's message becomes the GuideError message.
func Wrap(code string, err error) *GuideError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// RepoStateError creates a fatal local-checkout state error.
// These require external remediation; the engine never force-overwrites.
func RepoStateError(message string, cause error) *GuideError {
	return New(ErrCodeRepoState, message, cause)
}

// NetworkError creates a transient network error. Callers may retry.
func NetworkError(message string, cause error) *GuideError {
	return New(ErrCodeNetworkTimeout, message, cause)
}

// ParseError creates a corpus parse error. Fatal for the rebuild attempt
// only; the previously active generation is retained.
func ParseError(message string, cause error) *GuideError {
	return New(ErrCodeParseFailed, message, cause)
}

// EmbeddingError creates an embedding backend error. Fatal for the rebuild
// attempt only; the previously active generation is retained.
func EmbeddingError(message string, cause error) *GuideError {
	return New(ErrCodeEmbeddingFailed, message, cause)
}

// NotFoundError creates a lookup error for an unknown id or category key.
func NotFoundError(message string) *GuideError {
	return New(ErrCodeNotFound, message, nil)
}

// ValidationError creates an input validation error.
func ValidationError(message string, cause error) *GuideError {
	return New(ErrCodeInvalidInput, message, cause)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *GuideError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *GuideError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable checks if an error is retryable.
// Returns true if the error is a GuideError with Retryable flag set.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if ge, ok := err.(*GuideError); ok {
		return ge.Retryable
	}
	return false
}

// IsNotFound reports whether err is a not-found lookup error.
func IsNotFound(err error) bool {
	return GetCode(err) == ErrCodeNotFound
}

// GetCode extracts the error code from a GuideError.
// Returns empty string if not a GuideError.
func GetCode(err error) string {
	if ge, ok := err.(*GuideError); ok {
		return ge.Code
	}
	return ""
}

// GetCategory extracts the category from a GuideError.
// Returns empty string if not a GuideError.
func GetCategory(err error) Category {
	if ge, ok := err.(*GuideError); ok {
		return ge.Category
	}
	return ""
}
