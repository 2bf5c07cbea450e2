package commands

import (
	"io"
	"os"

	"github.com/atotto/clipboard"

	"github.com/diogo/chatclient/internal/api"
	"github.com/diogo/chatclient/internal/tui"
)

// TUIInterface defines the methods required from the TUI package.
type TUIInterface interface {
	RunChat(client api.ChatClientInterface, opts ...tui.Option) error
}

// Dependencies holds the external dependencies for the commands.
// This allows for dependency injection and easier testing.
type Dependencies struct {
	// Client is the chat transport. When nil one is built from the
	// resolved configuration for each command run.
	Client api.ChatClientInterface

	// TUI is the terminal user interface.
	TUI TUIInterface

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Clipboard writes text to the system clipboard.
	Clipboard func(string) error

	// IsTTY reports whether decorated output should be used.
	IsTTY func() bool
}

// DefaultTUI is the production implementation of TUIInterface.
type DefaultTUI struct{}

func (d *DefaultTUI) RunChat(client api.ChatClientInterface, opts ...tui.Option) error {
	return tui.RunChat(client, opts...)
}

// NewDependencies creates a new Dependencies struct with default implementations.
func NewDependencies() *Dependencies {
	return &Dependencies{
		TUI:       &DefaultTUI{},
		Stdin:     os.Stdin,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		Clipboard: clipboard.WriteAll,
		IsTTY:     isStdoutTTY,
	}
}

// withDefaults fills unset fields so tests only set what they need
func (d *Dependencies) withDefaults() *Dependencies {
	out := NewDependencies()
	if d == nil {
		return out
	}
	out.Client = d.Client
	if d.TUI != nil {
		out.TUI = d.TUI
	}
	out.Stdin = d.Stdin
	if d.Stdout != nil {
		out.Stdout = d.Stdout
	}
	if d.Stderr != nil {
		out.Stderr = d.Stderr
	}
	if d.Clipboard != nil {
		out.Clipboard = d.Clipboard
	}
	if d.IsTTY != nil {
		out.IsTTY = d.IsTTY
	}
	return out
}
