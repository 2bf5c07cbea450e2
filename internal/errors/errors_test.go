package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestTransportError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewTransportError("chat", "http://localhost:9000/chat", cause)

	expected := "chat failed at http://localhost:9000/chat: connection refused"
	if err.Error() != expected {
		t.Errorf("Error() = %s, want %s", err.Error(), expected)
	}

	if !errors.Is(err, cause) {
		t.Error("Expected error to unwrap to its cause")
	}

	if !err.Is(&TransportError{}) {
		t.Error("Expected error to match another TransportError")
	}

	if err.Is(errors.New("standard error")) {
		t.Error("Expected error not to match standard error")
	}
}

func TestTransportError_EmptyOp(t *testing.T) {
	err := &TransportError{}
	if err.Error() != "request failed" {
		t.Errorf("Error() = %q, want %q", err.Error(), "request failed")
	}
}

func TestNewStatusError(t *testing.T) {
	err := NewStatusError("stream", "/stream", 502, "bad gateway")

	if err.StatusCode != 502 {
		t.Errorf("StatusCode = %d, want 502", err.StatusCode)
	}
	if !strings.Contains(err.Error(), "[502]") {
		t.Errorf("Error() = %s, expected status in message", err.Error())
	}
	if err.Body != "bad gateway" {
		t.Errorf("Body = %q, want %q", err.Body, "bad gateway")
	}
}

func TestNewStatusError_TruncatesBody(t *testing.T) {
	err := NewStatusError("chat", "/chat", 500, strings.Repeat("x", 5000))
	if len(err.Body) != 4096 {
		t.Errorf("len(Body) = %d, want 4096", len(err.Body))
	}
}

func TestHelpers(t *testing.T) {
	wrapped := fmt.Errorf("submit: %w", NewStatusError("chat", "/chat", 404, "not found"))

	tests := []struct {
		name string
		err  error
		ok   bool
		code int
		ep   string
		body string
	}{
		{"wrapped status error", wrapped, true, 404, "/chat", "not found"},
		{"network error", NewTransportError("stream", "/stream", ErrNoBody), true, 0, "/stream", ""},
		{"plain error", errors.New("boom"), false, 0, "", ""},
		{"nil", nil, false, 0, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransportError(tt.err); got != tt.ok {
				t.Errorf("IsTransportError() = %v, want %v", got, tt.ok)
			}
			if got := GetHTTPStatus(tt.err); got != tt.code {
				t.Errorf("GetHTTPStatus() = %d, want %d", got, tt.code)
			}
			if got := GetEndpoint(tt.err); got != tt.ep {
				t.Errorf("GetEndpoint() = %q, want %q", got, tt.ep)
			}
			if got := GetResponseBody(tt.err); got != tt.body {
				t.Errorf("GetResponseBody() = %q, want %q", got, tt.body)
			}
		})
	}
}

func TestSentinelThroughTransportError(t *testing.T) {
	err := NewTransportError("stream", "/stream", ErrNoBody)
	if !errors.Is(err, ErrNoBody) {
		t.Error("Expected errors.Is to find ErrNoBody")
	}
}
