// Package errors provides the application error type used across glance.
// Every error that may reach an API client carries a stable code.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"go.uber.org/multierr"
)

// ErrorCode represents application error codes
type ErrorCode string

// Error codes for different error categories
const (
	// General errors (1xxx)
	ErrCodeInternal     ErrorCode = "E1000"
	ErrCodeValidation   ErrorCode = "E1001"
	ErrCodeNotFound     ErrorCode = "E1002"
	ErrCodeConflict     ErrorCode = "E1003"
	ErrCodeForbidden    ErrorCode = "E1004"
	ErrCodeUnauthorized ErrorCode = "E1005"

	// Report errors (2xxx)
	ErrCodeReportNotFound    ErrorCode = "E2001"
	ErrCodeRunNotFound       ErrorCode = "E2002"
	ErrCodeElementNotFound   ErrorCode = "E2003"
	ErrCodeDocumentInvalid   ErrorCode = "E2004"
	ErrCodeExportUnsupported ErrorCode = "E2005"
	ErrCodeExportFailed      ErrorCode = "E2006"

	// Storage errors (5xxx)
	ErrCodeDBConnection     ErrorCode = "E5001"
	ErrCodeDBQuery          ErrorCode = "E5002"
	ErrCodeDBMigration      ErrorCode = "E5003"
	ErrCodeResourceNotFound ErrorCode = "E5004"

	// Configuration errors (6xxx)
	ErrCodeConfigNotFound       ErrorCode = "E6001"
	ErrCodeConfigInvalid        ErrorCode = "E6002"
	ErrCodeConfigParse          ErrorCode = "E6003"
	ErrCodeAuthCredentialsEmpty ErrorCode = "E6004"
	ErrCodeJWTSecretInvalid     ErrorCode = "E6005"

	// Auth errors (7xxx)
	ErrCodeInvalidCredentials ErrorCode = "E7001"
	ErrCodeTokenInvalid       ErrorCode = "E7002"
	ErrCodeTokenExpired       ErrorCode = "E7003"
)

// Exit codes for application startup failures
const (
	// ExitCodeConfigValidation indicates configuration validation failure
	ExitCodeConfigValidation = 2
)

// AppError represents an application-level error with code and context
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
	Details any       `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code for the error
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case ErrCodeNotFound, ErrCodeReportNotFound, ErrCodeRunNotFound,
		ErrCodeElementNotFound, ErrCodeResourceNotFound:
		return http.StatusNotFound
	case ErrCodeValidation, ErrCodeDocumentInvalid, ErrCodeExportUnsupported:
		return http.StatusBadRequest
	case ErrCodeUnauthorized, ErrCodeInvalidCredentials, ErrCodeTokenInvalid, ErrCodeTokenExpired:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with AppError
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// ErrInternal creates an internal server error
func ErrInternal(message string, err error) *AppError {
	return Wrap(ErrCodeInternal, message, err)
}

// ErrValidation creates a validation error
func ErrValidation(message string) *AppError {
	return New(ErrCodeValidation, message)
}

// ErrNotFound creates a not found error
func ErrNotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

// ErrUnauthorized creates an unauthorized error
func ErrUnauthorized(message string) *AppError {
	return New(ErrCodeUnauthorized, message)
}

// ErrForbidden creates a forbidden error
func ErrForbidden(message string) *AppError {
	return New(ErrCodeForbidden, message)
}

// ErrReportNotFound is returned for unknown report ids
func ErrReportNotFound(reportID string) *AppError {
	return New(ErrCodeReportNotFound, fmt.Sprintf("report %q not found", reportID))
}

// ErrRunNotFound is returned for unknown run ids of a known report
func ErrRunNotFound(reportID, runID string) *AppError {
	return New(ErrCodeRunNotFound, fmt.Sprintf("run %q of report %q not found", runID, reportID))
}

// ErrDocumentInvalid is returned when a report document cannot be loaded
func ErrDocumentInvalid(message string, err error) *AppError {
	return Wrap(ErrCodeDocumentInvalid, message, err)
}

// IsAppError checks if err is or wraps an AppError
func IsAppError(err error) bool {
	_, ok := AsAppError(err)
	return ok
}

// AsAppError returns the first AppError in err's chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// Combine merges errors collected during cleanup into one; nil errors are
// dropped and nil is returned if nothing failed.
func Combine(errs ...error) error {
	return multierr.Combine(errs...)
}

// Errors returns the individual errors of a combined error
func Errors(err error) []error {
	return multierr.Errors(err)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}
