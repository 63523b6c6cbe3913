package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeNetwork             ErrorType = "network"
	ErrorTypeStatus              ErrorType = "status"
	ErrorTypeParsing             ErrorType = "parsing"
	ErrorTypeRotationUnavailable ErrorType = "rotation_unavailable"
	ErrorTypeDownload            ErrorType = "download"
	ErrorTypeConflict            ErrorType = "conflict"
	ErrorTypeUnknown             ErrorType = "unknown"
)

var (
	// ErrExhausted means a query returned an empty page: there is nothing more to fetch for it.
	ErrExhausted = stderrors.New("query exhausted")
	// ErrRotationUnavailable means no identity rotation could be performed.
	ErrRotationUnavailable = stderrors.New("identity rotation unavailable")
	// ErrConflict means a filename is already registered to a different item id.
	ErrConflict = stderrors.New("filename registered to a different id")
)

// Error represents a classified crawl error with type information
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error (code %d): %s: %v", e.Type, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match a typed error against the sentinel of its class.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrRotationUnavailable:
		return e.Type == ErrorTypeRotationUnavailable
	case ErrConflict:
		return e.Type == ErrorTypeConflict
	}
	return false
}

// New builds a typed error.
func New(errType ErrorType, message string, code int, err error) *Error {
	return &Error{Type: errType, Message: message, Code: code, Err: err}
}

// Network wraps a transport failure.
func Network(message string, err error) *Error {
	return New(ErrorTypeNetwork, message, 0, err)
}

// Status reports a non-200 HTTP response.
func Status(code int, message string) *Error {
	return New(ErrorTypeStatus, message, code, nil)
}

// Parsing wraps a malformed response body.
func Parsing(message string, err error) *Error {
	return New(ErrorTypeParsing, message, 0, err)
}

// FailureClass tells the crawl driver how to react to a page fetch failure
type FailureClass int

const (
	// Transient failures are retried on the same page after an identity rotation.
	Transient FailureClass = iota
	// Exhausted moves the crawl on to the next query.
	Exhausted
)

func (c FailureClass) String() string {
	switch c {
	case Transient:
		return "transient"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Classify maps a page fetch error to its failure class.
// Anything that is not an exhaustion is transient.
func Classify(err error) FailureClass {
	if stderrors.Is(err, ErrExhausted) {
		return Exhausted
	}
	return Transient
}

// TypeOf returns the ErrorType carried by err, or ErrorTypeUnknown.
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeStatus, ErrorTypeParsing:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable download error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429: // Too Many Requests
		return true
	case 401, 403, 404: // Client errors that won't change
		return false
	default:
		return statusCode >= 500
	}
}
