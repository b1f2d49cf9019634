package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeSourceUnavailable   ErrorType = "source_unavailable"
	ErrorTypeTransientFetch      ErrorType = "transient_fetch"
	ErrorTypeUpstreamUnreachable ErrorType = "upstream_unreachable"
	ErrorTypeMalformedRequest    ErrorType = "malformed_request"
	ErrorTypePersistence         ErrorType = "persistence"
	ErrorTypeUnknown             ErrorType = "unknown"
)

// Error represents a classified failure with an optional underlying cause
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Type, e.Message, e.Err)
	}
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a typed error
func New(t ErrorType, msg string, err error) *Error {
	return &Error{Type: t, Message: msg, Err: err}
}

// SourceUnavailable reports a feed source that is closed or unreachable
func SourceUnavailable(msg string, err error) *Error {
	return New(ErrorTypeSourceUnavailable, msg, err)
}

// TransientFetch reports a single item download or resolve failure
func TransientFetch(msg string, code int, err error) *Error {
	e := New(ErrorTypeTransientFetch, msg, err)
	e.Code = code
	return e
}

// UpstreamUnreachable reports that the proxy could not talk to its origin
func UpstreamUnreachable(msg string, err error) *Error {
	return New(ErrorTypeUpstreamUnreachable, msg, err)
}

// MalformedRequest reports a missing or invalid required parameter
func MalformedRequest(msg string) *Error {
	return New(ErrorTypeMalformedRequest, msg, nil)
}

// Persistence reports a manifest or cache write failure
func Persistence(msg string, err error) *Error {
	return New(ErrorTypePersistence, msg, err)
}

// TypeOf returns the type of the first *Error in err's chain
func TypeOf(err error) ErrorType {
	if err == nil {
		return ""
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// Is reports whether err carries the given error type
func Is(err error, t ErrorType) bool {
	return err != nil && TypeOf(err) == t
}

// IsFatal reports whether an error of this type aborts the current operation.
// Item-level failures are recorded and skipped instead.
func IsFatal(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeSourceUnavailable, ErrorTypePersistence:
		return true
	default:
		return false
	}
}

// HTTPStatus maps an error type to the status code surfaced to HTTP clients
func HTTPStatus(errorType ErrorType) int {
	switch errorType {
	case ErrorTypeMalformedRequest:
		return http.StatusBadRequest
	case ErrorTypeUpstreamUnreachable, ErrorTypeTransientFetch:
		return http.StatusBadGateway
	case ErrorTypeSourceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
