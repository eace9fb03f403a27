package httpclient

import (
	"errors"
	"fmt"
	"time"
)

// ClientError represents the failures a connector call can return
type ClientError interface {
	error
	Type() ErrorType
}

// StatusError is implemented by HTTP status failures
type StatusError interface {
	ClientError
	URI() string
	StatusCode() int
}

// ErrorType defines the category of client error
type ErrorType string

const (
	NetworkError    ErrorType = "network"
	TimeoutError    ErrorType = "timeout"
	HTTPError       ErrorType = "http"
	ValidationError ErrorType = "validation"
)

var (
	// ErrHTTPRequestFailed matches every non-200 response via errors.Is
	ErrHTTPRequestFailed = errors.New("http request failed")

	// ErrPoolClosed is returned once the connection pool has been released
	ErrPoolClosed = errors.New("connection pool closed")

	// ErrAcquireTimeout is returned when no connection lease frees up in time
	ErrAcquireTimeout = errors.New("timeout waiting for connection from pool")
)

// networkError represents network-related errors
type networkError struct {
	message string
	wrapped error
}

func (e *networkError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("network error: %s: %v", e.message, e.wrapped)
	}
	return fmt.Sprintf("network error: %s", e.message)
}

func (e *networkError) Type() ErrorType {
	return NetworkError
}

func (e *networkError) Unwrap() error {
	return e.wrapped
}

// timeoutError represents interrupted or timed out operations
type timeoutError struct {
	message string
	timeout time.Duration
	wrapped error
}

func (e *timeoutError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("timeout error: %s (timeout: %v): %v", e.message, e.timeout, e.wrapped)
	}
	return fmt.Sprintf("timeout error: %s (timeout: %v)", e.message, e.timeout)
}

func (e *timeoutError) Type() ErrorType {
	return TimeoutError
}

func (e *timeoutError) Unwrap() error {
	return e.wrapped
}

// httpError represents a response whose status was not 200
type httpError struct {
	uri        string
	statusCode int
}

func (e *httpError) Error() string {
	return fmt.Sprintf("HTTP error: request to %s failed (status: %d)", e.uri, e.statusCode)
}

func (e *httpError) Type() ErrorType {
	return HTTPError
}

func (e *httpError) Is(target error) bool {
	return target == ErrHTTPRequestFailed
}

func (e *httpError) URI() string {
	return e.uri
}

func (e *httpError) StatusCode() int {
	return e.statusCode
}

// validationError represents request validation errors
type validationError struct {
	message string
	field   string
}

func (e *validationError) Error() string {
	if e.field != "" {
		return fmt.Sprintf("validation error: %s (field: %s)", e.message, e.field)
	}
	return fmt.Sprintf("validation error: %s", e.message)
}

func (e *validationError) Type() ErrorType {
	return ValidationError
}

// NewNetworkError creates a new network error
func NewNetworkError(message string, wrapped error) ClientError {
	return &networkError{
		message: message,
		wrapped: wrapped,
	}
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(message string, timeout time.Duration, wrapped error) ClientError {
	return &timeoutError{
		message: message,
		timeout: timeout,
		wrapped: wrapped,
	}
}

// NewHTTPError creates the error returned for a non-200 response from uri
func NewHTTPError(uri string, statusCode int) StatusError {
	return &httpError{
		uri:        uri,
		statusCode: statusCode,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message, field string) ClientError {
	return &validationError{
		message: message,
		field:   field,
	}
}

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errorType ErrorType) bool {
	if err == nil {
		return false
	}
	var clientErr ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type() == errorType
	}
	return false
}

// IsHTTPStatusError checks if an error is an HTTP error with a specific status code
func IsHTTPStatusError(err error, statusCode int) bool {
	var statusErr StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode() == statusCode
	}
	return false
}

// IsSuccessStatus checks if a status code represents success (2xx)
func IsSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
