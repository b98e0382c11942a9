package core

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCategory classifies errors for handling decisions.
type ErrorCategory string

const (
	ErrCatConfig      ErrorCategory = "config"      // Missing credential or invalid setting
	ErrCatValidation  ErrorCategory = "validation"  // Invalid input
	ErrCatExtraction  ErrorCategory = "extraction"  // Model response not usable
	ErrCatTransport   ErrorCategory = "transport"   // Network or provider failure
	ErrCatTimeout     ErrorCategory = "timeout"     // Operation timed out
	ErrCatPersistence ErrorCategory = "persistence" // History could not be written
	ErrCatNotFound    ErrorCategory = "not_found"   // Resource not found
	ErrCatInternal    ErrorCategory = "internal"    // Unexpected internal error
)

// DomainError represents a structured error from the domain layer.
type DomainError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Retryable bool
	Cause     error
	Details   map[string]interface{}
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds contextual information.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ErrConfig creates a configuration error. Raised before any network call.
func ErrConfig(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatConfig,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrValidation creates a validation error.
func ErrValidation(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatValidation,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrExtraction creates an extraction error carrying the raw model response.
func ErrExtraction(message, raw string) *DomainError {
	return &DomainError{
		Category:  ErrCatExtraction,
		Code:      CodeExtractionFailed,
		Message:   message,
		Retryable: false,
		Details: map[string]interface{}{
			"raw_response": raw,
		},
	}
}

// ErrTransport creates a transport error. Retries belong to whoever
// re-invokes the whole run, so the error is flagged retryable for them.
func ErrTransport(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatTransport,
		Code:      CodeTransportFailed,
		Message:   message,
		Retryable: true,
	}
}

// ErrTimeout creates a timeout error.
func ErrTimeout(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatTimeout,
		Code:      "TIMEOUT",
		Message:   message,
		Retryable: true,
	}
}

// ErrPersistence creates a persistence error.
func ErrPersistence(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatPersistence,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrNotFound creates a not found error.
func ErrNotFound(resource, id string) *DomainError {
	return &DomainError{
		Category:  ErrCatNotFound,
		Code:      "NOT_FOUND",
		Message:   fmt.Sprintf("%s not found: %s", resource, id),
		Retryable: false,
	}
}

// ClassifyTransport maps a model-client failure onto the taxonomy.
// Errors that are already domain errors pass through unchanged.
func ClassifyTransport(provider string, err error) error {
	if err == nil {
		return nil
	}
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout(fmt.Sprintf("%s request timed out", provider)).WithCause(err)
	}
	return ErrTransport(fmt.Sprintf("%s request failed", provider)).WithCause(err)
}

// RawResponse returns the raw model response attached to an extraction error.
func RawResponse(err error) (string, bool) {
	var domErr *DomainError
	if !errors.As(err, &domErr) || domErr.Category != ErrCatExtraction {
		return "", false
	}
	raw, ok := domErr.Details["raw_response"].(string)
	return raw, ok
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Retryable
	}
	return false
}

// GetCategory extracts the error category.
func GetCategory(err error) ErrorCategory {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Category
	}
	return ErrCatInternal
}

// IsCategory checks if an error belongs to a category.
func IsCategory(err error, cat ErrorCategory) bool {
	return GetCategory(err) == cat
}

// Predefined error codes
const (
	CodeMissingAPIKey    = "MISSING_API_KEY"
	CodeInvalidConfig    = "INVALID_CONFIG"
	CodeUnknownProvider  = "UNKNOWN_PROVIDER"
	CodeExtractionFailed = "EXTRACTION_FAILED"
	CodeTransportFailed  = "TRANSPORT_FAILED"
	CodeWriteFailed      = "WRITE_FAILED"
	CodeLockHeld         = "LOCK_HELD"
	CodeLockRelease      = "LOCK_RELEASE_FAILED"
	CodeVersionConflict  = "VERSION_CONFLICT"
	CodeEmptyPrompt      = "EMPTY_PROMPT"
	CodeInvalidVersion   = "INVALID_VERSION"
)
