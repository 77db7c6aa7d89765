// Package apperr defines the coded error type shared by the edit
// pipeline and the agent access layer, plus sentinel errors for
// storage-level dispatch.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
)

// Code identifies one failure category on the wire.
type Code string

const (
	// Input validation. Never retryable.
	CodeContentTooShort   Code = "CONTENT_TOO_SHORT"
	CodeContentTooLong    Code = "CONTENT_TOO_LONG"
	CodeNoOptionsSelected Code = "NO_OPTIONS_SELECTED"
	CodeDangerousContent  Code = "DANGEROUS_CONTENT"

	// Authentication / authorization. Never retryable with the same credential.
	CodeMissingAuthHeader  Code = "MISSING_AUTH_HEADER"
	CodeInvalidTokenFormat Code = "INVALID_TOKEN_FORMAT"
	CodeInvalidToken       Code = "INVALID_TOKEN"
	CodeTokenExpired       Code = "TOKEN_EXPIRED"
	CodeTokenAutoRevoked   Code = "TOKEN_AUTO_REVOKED"
	CodeUnauthorizedNote   Code = "UNAUTHORIZED_NOTE"

	// Concurrency and quota. Retryable after the caller refreshes state or waits.
	CodeVersionConflict        Code = "VERSION_CONFLICT"
	CodeMissingExpectedVersion Code = "MISSING_EXPECTED_VERSION"
	CodeRateLimitExceeded      Code = "RATE_LIMIT_EXCEEDED"

	// Upstream failures. Retryable.
	CodeAPIFailure         Code = "API_FAILURE"
	CodeNetworkError       Code = "NETWORK_ERROR"
	CodeServiceUnavailable Code = "SERVICE_UNAVAILABLE"

	// User initiated. Never retried automatically.
	CodeUserCancelled Code = "USER_CANCELLED"

	CodeNoteNotFound Code = "NOTE_NOT_FOUND"
)

// Error carries a wire code, a human message, and retry semantics.
// RetryAfter is set only for rate-limit errors; CurrentVersion only
// for version conflicts so the caller can retry with fresh state.
type Error struct {
	Code           Code
	Message        string
	Retryable      bool
	RetryAfter     int       // seconds until the rate window resets
	CurrentVersion time.Time // the winning updated_at on VERSION_CONFLICT
	cause          error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error. Retryability is derived from the code.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message, Retryable: retryable(code)}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches an underlying cause to a coded error.
func Wrap(code Code, message string, cause error) *Error {
	e := New(code, message)
	e.cause = cause
	return e
}

func retryable(code Code) bool {
	switch code {
	case CodeVersionConflict, CodeRateLimitExceeded,
		CodeAPIFailure, CodeNetworkError, CodeServiceUnavailable:
		return true
	}
	return false
}

// HTTPStatus maps a code to the response status the API layer uses.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeMissingAuthHeader, CodeInvalidTokenFormat, CodeInvalidToken,
		CodeTokenExpired, CodeTokenAutoRevoked:
		return http.StatusUnauthorized
	case CodeUnauthorizedNote:
		return http.StatusForbidden
	case CodeNoteNotFound:
		return http.StatusNotFound
	case CodeVersionConflict:
		return http.StatusConflict
	case CodeContentTooLong:
		return http.StatusRequestEntityTooLarge
	case CodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case CodeAPIFailure, CodeNetworkError:
		return http.StatusBadGateway
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}

// As extracts a *Error from err's chain, or nil when none is present.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}
