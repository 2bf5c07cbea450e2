// Package errors provides custom error types for the chat client.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	ErrNoBody          = errors.New("response has no body")
	ErrInvalidResponse = errors.New("invalid response format")
	ErrBusy            = errors.New("a request is already in flight")
	ErrEmptyInput      = errors.New("input is empty")
	ErrStreamClosed    = errors.New("stream is closed")
)

// TransportError represents any failure talking to the chat endpoints:
// network failure, non-success status, missing body or an unparsable reply.
type TransportError struct {
	Op         string
	Endpoint   string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	msg := e.Op
	if msg == "" {
		msg = "request"
	}
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s failed [%d]", msg, e.StatusCode)
	} else {
		msg += " failed"
	}
	if e.Endpoint != "" {
		msg += " at " + e.Endpoint
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is matches any other TransportError
func (e *TransportError) Is(target error) bool {
	_, ok := target.(*TransportError)
	return ok
}

// NewTransportError wraps a network level failure
func NewTransportError(op, endpoint string, err error) *TransportError {
	return &TransportError{
		Op:       op,
		Endpoint: endpoint,
		Err:      err,
	}
}

// NewStatusError creates a TransportError for a non-success HTTP status.
// body is truncated to 4KB.
func NewStatusError(op, endpoint string, statusCode int, body string) *TransportError {
	if len(body) > 4096 {
		body = body[:4096]
	}
	return &TransportError{
		Op:         op,
		Endpoint:   endpoint,
		StatusCode: statusCode,
		Body:       body,
		Err:        fmt.Errorf("unexpected status %d", statusCode),
	}
}

// IsTransportError reports whether err is, or wraps, a TransportError
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// GetHTTPStatus returns the HTTP status carried by err, or 0
func GetHTTPStatus(err error) int {
	var te *TransportError
	if errors.As(err, &te) {
		return te.StatusCode
	}
	return 0
}

// GetEndpoint returns the endpoint carried by err, or ""
func GetEndpoint(err error) string {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Endpoint
	}
	return ""
}

// GetResponseBody returns the error body captured for a failed status
func GetResponseBody(err error) string {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Body
	}
	return ""
}
