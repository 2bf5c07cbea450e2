package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/diogo/chatclient/internal/api"
	apierrors "github.com/diogo/chatclient/internal/errors"
	"github.com/diogo/chatclient/internal/render"
)

// Gradient colors for animation
var gradientColors = []lipgloss.Color{
	lipgloss.Color("#ff6b6b"), // Red
	lipgloss.Color("#feca57"), // Yellow
	lipgloss.Color("#48dbfb"), // Cyan
	lipgloss.Color("#ff9ff3"), // Pink
	lipgloss.Color("#54a0ff"), // Blue
	lipgloss.Color("#5f27cd"), // Purple
	lipgloss.Color("#00d2d3"), // Teal
	lipgloss.Color("#1dd1a1"), // Green
}

var (
	colorText     = lipgloss.Color("#c0caf5")
	colorTextDim  = lipgloss.Color("#565f89")
	colorTextMute = lipgloss.Color("#3b4261")
	colorSuccess  = lipgloss.Color("#9ece6a")
	colorPrimary  = lipgloss.Color("#7aa2f7")
	colorError    = lipgloss.Color("#f7768e")
)

// Styles matching the chat TUI
var (
	assistantLabelStyle = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true)

	assistantBubbleStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(colorPrimary).
				Foreground(colorText).
				Padding(0, 1).
				MarginTop(1).
				MarginBottom(1)
)

// spinner animates a wait line on out until stopped
type spinner struct {
	out      io.Writer
	message  string
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	frame    int
}

func newSpinner(out io.Writer, message string) *spinner {
	return &spinner{
		out:     out,
		message: message,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (s *spinner) start() {
	go func() {
		defer close(s.done)

		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		fmt.Fprint(s.out, hideCursor)
		defer fmt.Fprint(s.out, clearLine+showCursor)

		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				s.render()
				s.frame++
			}
		}
	}()
}

const (
	hideCursor = "\033[?25l"
	showCursor = "\033[?25h"
	clearLine  = "\r\033[K"
)

var (
	spinnerChars = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}
	barChars     = []string{"█", "█", "█", "█", "█", "█", "▓", "▒", "░"}
)

// render draws one frame; only the spinner goroutine calls it
func (s *spinner) render() {
	paint := func(c lipgloss.Color, text string) string {
		return lipgloss.NewStyle().Foreground(c).Render(text)
	}
	color := func(i int) lipgloss.Color {
		return gradientColors[i%len(gradientColors)]
	}

	var line strings.Builder
	line.WriteString(clearLine)
	line.WriteString(lipgloss.NewStyle().Foreground(color(s.frame)).Bold(true).
		Render(spinnerChars[s.frame%len(spinnerChars)]))
	line.WriteString(" ")

	for i := 0; i < 16; i++ {
		line.WriteString(paint(color(i+s.frame), barChars[(i+s.frame/2)%len(barChars)]))
	}

	line.WriteString(" ")
	line.WriteString(paint(colorText, s.message))
	line.WriteString(" ")

	lit := (s.frame / 3) % 4
	for i := 0; i < 3; i++ {
		if i < lit {
			line.WriteString(paint(color(s.frame+i), "●"))
		} else {
			line.WriteString(paint(colorTextMute, "○"))
		}
	}

	fmt.Fprint(s.out, line.String())
}

// halt stops the animation and waits for the line to be cleared. Safe to
// call more than once.
func (s *spinner) halt() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

func (s *spinner) stopWithSuccess(message string) {
	s.halt()
	fmt.Fprintf(s.out, "%s %s\n",
		lipgloss.NewStyle().Foreground(colorSuccess).Bold(true).Render("✓"),
		lipgloss.NewStyle().Foreground(colorSuccess).Render(message))
}

func (s *spinner) stopWithError() {
	s.halt()
}

// runQuery sends a single prompt and prints the reply.
// Raw mode (the --raw flag, or stdout not a terminal) prints only the text.
func runQuery(ctx context.Context, env *runEnv, prompt string, flags *queryFlags) error {
	if strings.TrimSpace(prompt) == "" {
		return fmt.Errorf("prompt cannot be empty")
	}

	deps := env.deps
	rawOutput := flags.raw || !deps.IsTTY()
	streaming := env.cfg.Stream

	session := api.NewChatSession(env.client,
		api.WithStreaming(streaming),
		api.WithSessionLogger(env.logger.Logger),
	)

	var spin *spinner
	if !rawOutput {
		spin = newSpinner(deps.Stderr, "Waiting for model's response")
		spin.start()
	}

	// Streamed fragments go straight to stdout unless the reply is saved
	var printed bool
	var onFragment api.FragmentFunc
	if streaming && flags.output == "" {
		onFragment = func(fragment, pending string) {
			if !printed {
				if spin != nil {
					spin.stopWithSuccess("Receiving")
					fmt.Fprintln(deps.Stdout, assistantLabelStyle.Render("✦ Model"))
				}
				printed = true
			}
			fmt.Fprint(deps.Stdout, fragment)
		}
	}

	startTime := time.Now()
	reply, err := session.Submit(ctx, prompt, onFragment)
	requestDuration := time.Since(startTime)
	if err != nil {
		if spin != nil {
			spin.stopWithError()
		}
		return err
	}

	lastErr := session.Store().LastError()
	env.logger.Debug().
		Bool("stream", streaming).
		Dur("duration", requestDuration).
		Bool("failed", lastErr != nil).
		Msg("query finished")

	if spin != nil && !printed {
		if lastErr != nil {
			spin.stopWithError()
		} else {
			spin.stopWithSuccess("Done")
		}
	}

	text := reply.Text

	if flags.output != "" {
		if err := os.WriteFile(flags.output, []byte(text), 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if !rawOutput {
			successMsg := lipgloss.NewStyle().Foreground(colorSuccess).Render(
				fmt.Sprintf("✓ Response saved to %s", flags.output),
			)
			fmt.Fprintln(deps.Stderr, successMsg)
		}
		return queryFailure(deps.Stderr, lastErr, rawOutput)
	}

	switch {
	case printed && lastErr != nil:
		// partial text is already out; the fallback follows on its own line
		fmt.Fprintln(deps.Stdout)
		fmt.Fprintln(deps.Stdout, text)
	case printed:
		fmt.Fprintln(deps.Stdout)
	case rawOutput:
		fmt.Fprintln(deps.Stdout, text)
	default:
		printBubble(deps.Stdout, text, env)
	}

	if lastErr == nil && !rawOutput && env.cfg.CopyToClipboard {
		copyToClipboard(deps, text)
	}

	return queryFailure(deps.Stderr, lastErr, rawOutput)
}

// queryFailure reports a failed request after the fallback reply was shown
func queryFailure(stderr io.Writer, lastErr error, rawOutput bool) error {
	if lastErr == nil {
		return nil
	}
	if !rawOutput {
		fmt.Fprintln(stderr, formatErrorMessage(lastErr, "Request failed"))
	}
	return fmt.Errorf("request failed: %w", lastErr)
}

// printBubble renders the reply as markdown inside the assistant bubble
func printBubble(out io.Writer, text string, env *runEnv) {
	termWidth := getTerminalWidth()
	bubbleWidth := termWidth - 4
	if bubbleWidth < 40 {
		bubbleWidth = 40
	}
	if bubbleWidth > 120 {
		bubbleWidth = 120
	}
	contentWidth := bubbleWidth - 4

	fmt.Fprintln(out, assistantLabelStyle.Render("✦ Model"))

	renderOpts := render.LoadOptionsWithWidth(env.cfg, contentWidth)
	rendered := render.MarkdownOrPlain(text, renderOpts)

	fmt.Fprintln(out, assistantBubbleStyle.Width(bubbleWidth).Render(rendered))
}

func copyToClipboard(deps *Dependencies, text string) {
	if err := deps.Clipboard(text); err != nil {
		warnMsg := lipgloss.NewStyle().Foreground(colorError).Render(
			fmt.Sprintf("⚠ Failed to copy to clipboard: %v", err),
		)
		fmt.Fprintln(deps.Stderr, warnMsg)
		return
	}
	clipMsg := lipgloss.NewStyle().Foreground(colorSuccess).Render("✓ Copied to clipboard")
	fmt.Fprintln(deps.Stderr, clipMsg)
}

// getTerminalWidth returns the terminal width or a default value
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80 // default width
	}
	return width
}

// isStdoutTTY returns true if stdout is connected to a terminal
func isStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// formatErrorMessage formats an error with additional context from structured errors
func formatErrorMessage(err error, context string) string {
	if err == nil {
		return ""
	}

	errorStyle := lipgloss.NewStyle().Foreground(colorError)
	dimStyle := lipgloss.NewStyle().Foreground(colorTextDim)

	var sb strings.Builder
	sb.WriteString(errorStyle.Render(fmt.Sprintf("✗ %s: %v", context, err)))

	if status := apierrors.GetHTTPStatus(err); status > 0 {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  HTTP Status: %d", status)))
	}

	if endpoint := apierrors.GetEndpoint(err); endpoint != "" {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  Endpoint: %s", endpoint)))
	}

	// Show response body if available, otherwise a hint for the error kind
	if body := apierrors.GetResponseBody(err); body != "" {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n\n  %s", strings.ReplaceAll(strings.TrimSpace(body), "\n", "\n  "))))
	} else {
		switch {
		case apierrors.IsTransportError(err) && apierrors.GetHTTPStatus(err) > 0:
			sb.WriteString(dimStyle.Render("\n  Hint: The server rejected the request, check its logs"))
		case apierrors.IsTransportError(err):
			sb.WriteString(dimStyle.Render(fmt.Sprintf(
				"\n  Hint: Is the chat server running? Set the address with --host or %s",
				"'chatclient config set host <url>'")))
		}
	}

	return sb.String()
}

