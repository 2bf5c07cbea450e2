package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/chatclient/internal/api"
	apierrors "github.com/diogo/chatclient/internal/errors"
	"github.com/diogo/chatclient/internal/history"
	"github.com/diogo/chatclient/internal/tui"
)

var (
	promptStyle = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	noticeStyle = lipgloss.NewStyle().Foreground(colorTextDim).Italic(true)
)

// runREPL reads one message per line until EOF or exit
func runREPL(ctx context.Context, env *runEnv, store *history.Store) error {
	deps := env.deps
	session := api.NewChatSession(env.client,
		api.WithStore(store),
		api.WithStreaming(env.cfg.Stream),
		api.WithSessionLogger(env.logger.Logger),
	)

	fmt.Fprintln(deps.Stdout, noticeStyle.Render(fmt.Sprintf(
		"Chatting with %s. Streaming response %s. Type /stream to toggle, exit to quit.",
		env.client.Host(), onOff(session.Streaming()))))

	if deps.Stdin == nil {
		return nil
	}

	scanner := bufio.NewScanner(deps.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Fprint(deps.Stdout, promptStyle.Render(tui.PlaceholderIdle+" › "))
		if !scanner.Scan() {
			fmt.Fprintln(deps.Stdout)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "exit", "quit", "/exit", "/quit":
			return nil

		case "/stream":
			session.SetStreaming(!session.Streaming())
			fmt.Fprintln(deps.Stdout, noticeStyle.Render("Streaming response "+onOff(session.Streaming())))
			continue

		case "/clear":
			if !store.Reset() {
				fmt.Fprintln(deps.Stdout, noticeStyle.Render("Cannot clear while waiting for a reply"))
				continue
			}
			fmt.Fprintln(deps.Stdout, noticeStyle.Render("Conversation cleared"))
			continue

		case "/copy":
			text := store.LastModelText()
			if text == "" {
				fmt.Fprintln(deps.Stdout, noticeStyle.Render("Nothing to copy yet"))
				continue
			}
			copyToClipboard(deps, text)
			continue

		case "/export":
			if len(fields) < 2 {
				fmt.Fprintln(deps.Stdout, noticeStyle.Render("Usage: /export <file.md|file.json>"))
				continue
			}
			if err := exportTranscript(deps, store, strings.Join(fields[1:], " ")); err != nil {
				fmt.Fprintln(deps.Stderr, formatErrorMessage(err, "Export failed"))
			}
			continue
		}

		if err := replSubmit(ctx, deps, session, scanner.Text()); err != nil {
			return err
		}
	}
}

// replSubmit sends one line and prints the reply
func replSubmit(ctx context.Context, deps *Dependencies, session *api.ChatSession, text string) error {
	fmt.Fprintln(deps.Stdout, assistantLabelStyle.Render("✦ Model"))

	streamed := false
	reply, err := session.Submit(ctx, text, func(fragment, pending string) {
		streamed = true
		fmt.Fprint(deps.Stdout, fragment)
	})
	if errors.Is(err, apierrors.ErrEmptyInput) {
		return nil
	}
	if err != nil {
		return err
	}

	lastErr := session.Store().LastError()
	switch {
	case streamed && lastErr != nil:
		fmt.Fprintln(deps.Stdout)
		fmt.Fprintln(deps.Stdout, reply.Text)
	case streamed:
		fmt.Fprintln(deps.Stdout)
	default:
		fmt.Fprintln(deps.Stdout, reply.Text)
	}

	if lastErr != nil {
		fmt.Fprintln(deps.Stderr, formatErrorMessage(lastErr, "Request failed"))
	}
	return nil
}

func onOff(enabled bool) string {
	if enabled {
		return "On"
	}
	return "Off"
}
