// Package errors holds the ambient error taxonomy shared by the breaker
// runtime: structured, code-tagged errors for configuration and validation
// failures, plus thin wrappers around the standard errors package so callers
// never need to import both packages.
package errors

import (
	"errors"
	"fmt"
	"time"

	"github.com/xraph/go-utils/errs"
)

// =============================================================================
// ERROR CODES
// =============================================================================

const (
	CodeConfigError       = "CONFIG_ERROR"
	CodeValidationError   = "VALIDATION_ERROR"
	CodeTimeoutError      = "TIMEOUT_ERROR"
	CodeCircuitOpen       = "CIRCUIT_OPEN"
	CodeInvalidField      = "INVALID_FIELD"
	CodeHealthCheckFailed = "HEALTH_CHECK_FAILED"
)

// =============================================================================
// FORGE-STYLE STRUCTURED ERROR
// =============================================================================

// BreakerError is a structured, code-tagged error with arbitrary context.
type BreakerError = errs.Error

// ErrConfigError wraps a configuration failure.
func ErrConfigError(message string, cause error) *BreakerError {
	return errs.NewError(CodeConfigError, message, cause)
}

// ErrValidationError wraps a validation failure for a named field.
func ErrValidationError(field string, cause error) *BreakerError {
	return errs.NewError(CodeValidationError, fmt.Sprintf("validation error for field '%s'", field), cause)
}

// ErrTimeoutError wraps a deadline exceeded during operation.
func ErrTimeoutError(operation string, timeout time.Duration) *BreakerError {
	return errs.NewError(CodeTimeoutError, "timeout during "+operation+" after "+timeout.String(), nil)
}

// ErrHealthCheckFailed wraps a failed out-of-band health probe.
func ErrHealthCheckFailed(name string, cause error) *BreakerError {
	return errs.NewError(CodeHealthCheckFailed, "health check failed for breaker '"+name+"'", cause)
}

// =============================================================================
// HTTP ERRORS
// =============================================================================

// HTTPError is a status-coded error type for HTTP handlers; it is
// go-utils/errs's own HTTPError, not a local reimplementation. The
// dashboard package writes its own error responses and does not use it.
type HTTPError = errs.HTTPError

func NewHTTPError(code int, message string) HTTPError { return errs.NewHTTPError(code, message) }
func BadRequest(message string) HTTPError              { return errs.BadRequest(message) }
func Unauthorized(message string) HTTPError            { return errs.Unauthorized(message) }
func Forbidden(message string) HTTPError               { return errs.Forbidden(message) }
func NotFound(message string) HTTPError                { return errs.NotFound(message) }
func InternalError(err error) HTTPError                { return errs.InternalError(err) }

// GetHTTPStatusCode extracts the HTTP status from err's chain, defaulting to 500.
func GetHTTPStatusCode(err error) int { return errs.GetHTTPStatusCode(err) }

// =============================================================================
// STANDARD LIBRARY PASSTHROUGH
// =============================================================================

func Is(err, target error) bool  { return errors.Is(err, target) }
func As(err error, target any) bool { return errors.As(err, target) }
func Unwrap(err error) error     { return errors.Unwrap(err) }
func New(text string) error      { return errors.New(text) }
func Join(errs ...error) error   { return errors.Join(errs...) }

// =============================================================================
// SENTINELS
// =============================================================================

var (
	ErrConfigErrorSentinel     = &BreakerError{Code: CodeConfigError}
	ErrValidationErrorSentinel = &BreakerError{Code: CodeValidationError}
	ErrTimeoutErrorSentinel    = &BreakerError{Code: CodeTimeoutError}
)

func IsValidationError(err error) bool { return Is(err, ErrValidationErrorSentinel) }
func IsTimeout(err error) bool         { return Is(err, ErrTimeoutErrorSentinel) }
