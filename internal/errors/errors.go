package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents application-specific error codes
type ErrorCode string

const (
	// Transport errors
	ErrCodeFeedUnavailable  ErrorCode = "FEED_UNAVAILABLE"
	ErrCodeFeedDecodeFailed ErrorCode = "FEED_DECODE_FAILED"
	ErrCodeDeliveryFailed   ErrorCode = "DELIVERY_FAILED"

	// Persistence errors
	ErrCodeLedgerReadFailed  ErrorCode = "LEDGER_READ_FAILED"
	ErrCodeLedgerWriteFailed ErrorCode = "LEDGER_WRITE_FAILED"
	ErrCodeLedgerCorrupt     ErrorCode = "LEDGER_CORRUPT"

	// Lookup miss
	ErrCodeCommitNotFound ErrorCode = "COMMIT_NOT_FOUND"

	// Admin surface errors
	ErrCodeInvalidRequest   ErrorCode = "INVALID_REQUEST"
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeUnauthorized     ErrorCode = "UNAUTHORIZED"
	ErrCodeTooManyRequests  ErrorCode = "TOO_MANY_REQUESTS"
	ErrCodeInternalError    ErrorCode = "INTERNAL_ERROR"
)

// AppError represents an application error with additional context
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"-"`
	Err        error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new application error
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: getStatusCodeForError(code),
	}
}

// Wrap wraps an existing error with application context
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: getStatusCodeForError(code),
		Err:        err,
	}
}

// Wrapf wraps an existing error with formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:       code,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: getStatusCodeForError(code),
		Err:        err,
	}
}

// CodeOf returns the code of the first AppError in err's chain
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternalError
}

// Is reports whether err carries the given code
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr) && appErr.Code == code
}

// getStatusCodeForError maps error codes to HTTP status codes
func getStatusCodeForError(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidRequest, ErrCodeValidationFailed:
		return http.StatusBadRequest
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeCommitNotFound:
		return http.StatusNotFound
	case ErrCodeTooManyRequests:
		return http.StatusTooManyRequests
	case ErrCodeFeedUnavailable, ErrCodeDeliveryFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Common error constructors for convenience

// ValidationError creates a validation error
func ValidationError(message string) *AppError {
	return New(ErrCodeValidationFailed, message)
}

// InvalidRequest creates an invalid request error
func InvalidRequest(message string) *AppError {
	return New(ErrCodeInvalidRequest, message)
}

// FeedUnavailable creates a feed transport error
func FeedUnavailable(err error, page int) *AppError {
	return Wrapf(err, ErrCodeFeedUnavailable, "Failed to fetch commits from page %d", page)
}

// FeedDecodeFailed creates a feed parse error
func FeedDecodeFailed(err error, page int) *AppError {
	return Wrapf(err, ErrCodeFeedDecodeFailed, "Failed to decode commits from page %d", page)
}

// DeliveryFailed creates a webhook delivery error
func DeliveryFailed(err error) *AppError {
	return Wrap(err, ErrCodeDeliveryFailed, "Failed to deliver message")
}

// LedgerReadFailed creates a ledger read error
func LedgerReadFailed(err error, path string) *AppError {
	return Wrapf(err, ErrCodeLedgerReadFailed, "Failed to read commit ledger %s", path)
}

// LedgerWriteFailed creates a ledger write error
func LedgerWriteFailed(err error, path string) *AppError {
	return Wrapf(err, ErrCodeLedgerWriteFailed, "Failed to write commit ledger %s", path)
}

// LedgerCorrupt creates a malformed ledger error
func LedgerCorrupt(err error, path string) *AppError {
	return Wrapf(err, ErrCodeLedgerCorrupt, "Commit ledger %s is not a JSON array of commits", path)
}

// CommitNotFound creates a lookup miss error
func CommitNotFound(id string) *AppError {
	return New(ErrCodeCommitNotFound, fmt.Sprintf("Commit ID %s not found in the ledger", id))
}

// InternalError creates an internal server error
func InternalError(err error) *AppError {
	return Wrap(err, ErrCodeInternalError, "Internal server error")
}
