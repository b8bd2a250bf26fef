// Package errors provides custom error types and error handling utilities.
package errors

import (
	"errors"
	"fmt"
)

// Error codes.
const (
	// Fetch errors.
	CodeTransientFetch = "TRANSIENT_FETCH"
	CodePermanentFetch = "PERMANENT_FETCH"
	CodeFetchExhausted = "FETCH_EXHAUSTED"

	// Data gaps. Absorbed by fallbacks, never fatal.
	CodeEstimationDataGap = "ESTIMATION_DATA_GAP"
	CodeScoringDataGap    = "SCORING_DATA_GAP"

	// Everything else.
	CodeValidation = "VALIDATION_ERROR"
	CodeNotFound   = "NOT_FOUND"
	CodeConfig     = "CONFIG_ERROR"
	CodeStorage    = "STORAGE_ERROR"
	CodeImport     = "IMPORT_ERROR"
	CodeInternal   = "INTERNAL_ERROR"
	CodeTimeout    = "TIMEOUT"
)

// AppError represents an application error with code and details.
type AppError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
	Err     error             `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with an AppError.
func Wrap(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithDetail adds a single detail to the error.
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Convenience constructors.

// TransientFetchError marks a retryable fetch failure (timeout, 429, 5xx).
func TransientFetchError(message string, err error) *AppError {
	return Wrap(CodeTransientFetch, message, err)
}

// PermanentFetchError marks a non-retryable fetch failure
// (4xx other than 429, malformed payload).
func PermanentFetchError(message string, err error) *AppError {
	return Wrap(CodePermanentFetch, message, err)
}

// FetchExhaustedError marks a fetch that failed after all retries and
// endpoint rotations. The last underlying error is carried for diagnosis.
func FetchExhaustedError(attempts int, err error) *AppError {
	e := Wrap(CodeFetchExhausted, "all fetch attempts failed", err)
	return e.WithDetail("attempts", fmt.Sprintf("%d", attempts))
}

// EstimationDataGapError marks a missing calibration table for a category.
func EstimationDataGapError(category string) *AppError {
	return New(CodeEstimationDataGap,
		fmt.Sprintf("no calibration table for category %q", category))
}

// ScoringDataGapError marks an unavailable signal category.
func ScoringDataGapError(signal string) *AppError {
	return New(CodeScoringDataGap,
		fmt.Sprintf("signal %q unavailable", signal))
}

// ValidationError creates a validation error.
func ValidationError(message string) *AppError {
	return New(CodeValidation, message)
}

// NotFoundError creates a not found error.
func NotFoundError(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

// ConfigError creates a fatal configuration error.
func ConfigError(message string, err error) *AppError {
	return Wrap(CodeConfig, message, err)
}

// StorageError creates a storage error.
func StorageError(message string, err error) *AppError {
	return Wrap(CodeStorage, message, err)
}

// ImportError creates an import error.
func ImportError(message string, err error) *AppError {
	return Wrap(CodeImport, message, err)
}

// InternalError creates an internal error.
func InternalError(message string, err error) *AppError {
	return Wrap(CodeInternal, message, err)
}

// Is checks whether err carries the given code anywhere in its chain.
func Is(err error, code string) bool {
	var appErr *AppError
	for errors.As(err, &appErr) {
		if appErr.Code == code {
			return true
		}
		err = appErr.Err
		appErr = nil
	}
	return false
}

// IsTransient reports whether err is a retryable fetch error.
func IsTransient(err error) bool {
	return Is(err, CodeTransientFetch)
}

// IsExhausted reports whether err is a fetch exhaustion error.
func IsExhausted(err error) bool {
	return Is(err, CodeFetchExhausted)
}

// IsNotFound reports whether err is a not found error.
func IsNotFound(err error) bool {
	return Is(err, CodeNotFound)
}
