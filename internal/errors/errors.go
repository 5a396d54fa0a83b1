package errors

import (
	stderrors "errors"
	"fmt"
)

// LexError is the structured error type for LexMind.
type LexError struct {
	// Code is the unique error code (e.g., "ERR_203_SOURCE_MISSING").
	Code string

	// Message is the human-readable error message.
	Message string

	Category Category
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error, if any.
	Cause error

	// Retryable indicates the operation may succeed when repeated.
	Retryable bool

	// Suggestion is an actionable hint shown to the user.
	Suggestion string
}

// Error implements the error interface.
func (e *LexError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *LexError) Unwrap() error {
	return e.Cause
}

// Is matches by code so errors.Is works against sentinel values.
func (e *LexError) Is(target error) bool {
	if t, ok := target.(*LexError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail and returns the error for chaining.
func (e *LexError) WithDetail(key, value string) *LexError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion sets an actionable suggestion and returns the error for chaining.
func (e *LexError) WithSuggestion(suggestion string) *LexError {
	e.Suggestion = suggestion
	return e
}

// New creates a LexError. Category, severity and retryability derive from the code.
func New(code string, message string, cause error) *LexError {
	return &LexError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a LexError from an existing error, reusing its message.
func Wrap(code string, err error) *LexError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration error.
func ConfigError(message string, cause error) *LexError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// ValidationError creates an input validation error.
func ValidationError(message string, cause error) *LexError {
	return New(ErrCodeInvalidInput, message, cause)
}

// NetworkError creates a retryable network error.
func NetworkError(message string, cause error) *LexError {
	return New(ErrCodeNetworkTimeout, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *LexError {
	return New(ErrCodeInternal, message, cause)
}

// Sentinels for errors.Is comparisons.
var (
	ErrEmptyCorpus       = &LexError{Code: ErrCodeEmptyCorpus}
	ErrEmbeddingFailed   = &LexError{Code: ErrCodeEmbeddingFailed}
	ErrDimensionMismatch = &LexError{Code: ErrCodeDimensionMismatch}
	ErrSourceMissing     = &LexError{Code: ErrCodeSourceMissing}
	ErrCorpusDirMissing  = &LexError{Code: ErrCodeCorpusDirMissing}
)

// as finds the first LexError in the chain.
func as(err error) (*LexError, bool) {
	var le *LexError
	if stderrors.As(err, &le) {
		return le, true
	}
	return nil, false
}

// IsRetryable reports whether err carries the Retryable flag.
func IsRetryable(err error) bool {
	le, ok := as(err)
	return ok && le.Retryable
}

// IsRecoverable reports whether err belongs to the failures the retrieval
// pipeline degrades on instead of failing (empty corpus, embedding failure,
// dimension mismatch, missing source file).
func IsRecoverable(err error) bool {
	le, ok := as(err)
	return ok && isRecoverableCode(le.Code)
}

// IsFatal reports whether err has fatal severity.
func IsFatal(err error) bool {
	le, ok := as(err)
	return ok && le.Severity == SeverityFatal
}

// GetCode extracts the error code, or "" when err is not a LexError.
func GetCode(err error) string {
	if le, ok := as(err); ok {
		return le.Code
	}
	return ""
}
