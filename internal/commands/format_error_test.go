package commands

import (
	"errors"
	"strings"
	"testing"

	apierrors "github.com/diogo/chatclient/internal/errors"
)

func TestFormatErrorMessage_Nil(t *testing.T) {
	if got := formatErrorMessage(nil, "ctx"); got != "" {
		t.Fatalf("expected empty for nil error, got %s", got)
	}
}

func TestFormatErrorMessage_StatusWithBody(t *testing.T) {
	e := apierrors.NewStatusError("chat", "http://localhost:9000/chat", 500, "detailed body\nsecond line")
	out := formatErrorMessage(e, "Failed")

	for _, want := range []string{"Failed", "HTTP Status: 500", "Endpoint: http://localhost:9000/chat", "detailed body", "second line"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in message, got: %s", want, out)
		}
	}
	if strings.Contains(out, "Hint") {
		t.Errorf("body should replace the hint, got: %s", out)
	}
}

func TestFormatErrorMessage_Hints(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "network",
			err:  apierrors.NewTransportError("stream", "http://localhost:9000/stream", errors.New("connection refused")),
			want: "Is the chat server running?",
		},
		{
			name: "status without body",
			err:  apierrors.NewStatusError("chat", "http://localhost:9000/chat", 404, ""),
			want: "The server rejected the request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := formatErrorMessage(tt.err, "Request failed")
			if !strings.Contains(out, tt.want) {
				t.Errorf("expected hint %q, got: %s", tt.want, out)
			}
		})
	}
}

func TestFormatErrorMessage_PlainError(t *testing.T) {
	out := formatErrorMessage(errors.New("disk full"), "Export failed")
	if !strings.Contains(out, "Export failed: disk full") {
		t.Errorf("unexpected message: %s", out)
	}
	if strings.Contains(out, "Hint") {
		t.Errorf("plain errors get no transport hint, got: %s", out)
	}
}
