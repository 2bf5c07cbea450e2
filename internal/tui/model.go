// Package tui provides the terminal chat screen.
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/diogo/chatclient/internal/api"
	"github.com/diogo/chatclient/internal/history"
	"github.com/diogo/chatclient/internal/models"
	"github.com/diogo/chatclient/internal/render"
)

// Input placeholders
const (
	PlaceholderIdle    = "Enter a message."
	PlaceholderWaiting = "Waiting for model's response"
)

// Animation tick message
type animationTickMsg time.Time

// Message types for the TUI
type (
	responseMsg struct {
		text string
	}
	errMsg struct {
		err error
	}
	streamOpenedMsg struct {
		stream *api.Stream
	}
	fragmentMsg struct {
		text string
	}
	streamDoneMsg struct {
		err error // nil when the server closed the stream normally
	}
	clipboardMsg struct {
		err error
	}
	exportMsg struct {
		path string
		err  error
	}
)

// Model represents the TUI state
type Model struct {
	client api.ChatClientInterface
	store  *history.Store
	logger zerolog.Logger

	// UI components
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	// State
	streaming      bool
	stream         *api.Stream // open while a streamed reply is arriving
	ready          bool
	err            error // last transport failure, shown under the status bar
	notice         string
	animationFrame int

	renderOpts    render.Options
	autoCopy      bool
	copyClipboard func(string) error

	// Dimensions
	width  int
	height int
}

// Option configures the chat model
type Option func(*Model)

// WithStore shows and extends an existing conversation
func WithStore(store *history.Store) Option {
	return func(m *Model) {
		m.store = store
	}
}

// WithStreaming sets the initial response mode
func WithStreaming(enabled bool) Option {
	return func(m *Model) {
		m.streaming = enabled
	}
}

// WithRenderOptions sets the markdown options for model replies
func WithRenderOptions(opts render.Options) Option {
	return func(m *Model) {
		m.renderOpts = opts
	}
}

// WithLogger sets the logger for submission outcomes
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Model) {
		m.logger = logger
	}
}

// WithAutoCopy copies every successful reply to the clipboard
func WithAutoCopy(enabled bool) Option {
	return func(m *Model) {
		m.autoCopy = enabled
	}
}

// WithClipboard replaces the clipboard writer
func WithClipboard(write func(string) error) Option {
	return func(m *Model) {
		m.copyClipboard = write
	}
}

// NewChatModel creates a new chat TUI model
func NewChatModel(client api.ChatClientInterface, opts ...Option) Model {
	ta := textarea.New()
	ta.Placeholder = PlaceholderIdle
	ta.CharLimit = 4000
	ta.ShowLineNumbers = false
	ta.SetHeight(2)
	ta.Focus()

	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle().Foreground(colorText)
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(colorTextDim)
	ta.BlurredStyle = ta.FocusedStyle

	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = loadingStyle

	m := Model{
		client:        client,
		logger:        zerolog.Nop(),
		textarea:      ta,
		spinner:       s,
		renderOpts:    render.DefaultOptions(),
		copyClipboard: clipboard.WriteAll,
	}
	for _, opt := range opts {
		opt(&m)
	}
	if m.store == nil {
		m.store = history.NewStore()
	}
	return m
}

// Store returns the conversation shown by the model
func (m Model) Store() *history.Store {
	return m.store
}

// Streaming reports whether the next submission is streamed
func (m Model) Streaming() bool {
	return m.streaming
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
	)
}

func animationTick() tea.Cmd {
	return tea.Tick(time.Millisecond*80, func(t time.Time) tea.Msg {
		return animationTickMsg(t)
	})
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 4 // Header panel with border
		inputHeight := 6  // Input panel with border
		statusHeight := 1
		padding := 2

		vpHeight := m.height - headerHeight - inputHeight - statusHeight - padding
		if vpHeight < 5 {
			vpHeight = 5
		}

		contentWidth := m.width - 4

		if !m.ready {
			m.viewport = viewport.New(contentWidth, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = contentWidth
			m.viewport.Height = vpHeight
		}
		m.textarea.SetWidth(contentWidth - 4)
		m.updateViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.closeStream()
			return m, tea.Quit

		case "ctrl+s":
			m.toggleStreaming()
			return m, nil

		case "enter":
			if m.store.Locked() {
				return m, nil
			}
			return m.handleInput(m.textarea.Value())
		}

	case responseMsg:
		m.store.CompleteWithModelMessage(msg.text)
		cmds = append(cmds, m.afterReply())

	case errMsg:
		m.fail(msg.err)
		cmds = append(cmds, m.afterReply())

	case streamOpenedMsg:
		m.stream = msg.stream
		m.store.BeginStream()
		m.updateViewport()
		return m, waitForFragment(msg.stream)

	case fragmentMsg:
		if m.stream == nil {
			return m, nil
		}
		m.store.AppendStreamFragment(msg.text)
		m.updateViewport()
		m.viewport.GotoBottom()
		return m, waitForFragment(m.stream)

	case streamDoneMsg:
		m.closeStream()
		if msg.err != nil {
			// partial text is discarded
			m.fail(msg.err)
		} else {
			m.store.CompleteWithModelMessage(m.store.Pending())
		}
		cmds = append(cmds, m.afterReply())

	case clipboardMsg:
		if msg.err != nil {
			m.notice = "Copy failed: " + msg.err.Error()
		} else {
			m.notice = "Copied last reply to clipboard"
		}

	case exportMsg:
		if msg.err != nil {
			m.notice = "Export failed: " + msg.err.Error()
		} else {
			m.notice = "Conversation exported to " + msg.path
		}

	case spinner.TickMsg:
		if m.store.Locked() {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case animationTickMsg:
		if m.store.Locked() {
			m.animationFrame++
			cmds = append(cmds, animationTick())
		}
	}

	// Only pass KeyMsg to textarea to prevent escape sequence leaks
	if !m.store.Locked() {
		if _, ok := msg.(tea.KeyMsg); ok {
			m.textarea, cmd = m.textarea.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleInput runs a slash command or submits the text
func (m Model) handleInput(raw string) (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(raw)
	if input == "" {
		return m, nil
	}

	fields := strings.Fields(input)
	switch fields[0] {
	case "exit", "quit", "/exit", "/quit":
		return m, tea.Quit

	case "/stream":
		m.textarea.Reset()
		m.toggleStreaming()
		return m, nil

	case "/copy":
		m.textarea.Reset()
		text := m.store.LastModelText()
		if text == "" {
			m.notice = "Nothing to copy yet"
			return m, nil
		}
		return m, m.copyText(text)

	case "/export":
		m.textarea.Reset()
		if len(fields) < 2 {
			m.notice = "Usage: /export <file.md|file.json>"
			return m, nil
		}
		return m, exportConversation(m.store, strings.Join(fields[1:], " "))

	case "/clear":
		m.textarea.Reset()
		if !m.store.Reset() {
			m.notice = "Cannot clear while waiting for a reply"
			return m, nil
		}
		m.err = nil
		m.notice = "Conversation cleared"
		m.updateViewport()
		return m, nil
	}

	return m.submit(raw)
}

// submit appends the user message and starts the request
func (m Model) submit(text string) (tea.Model, tea.Cmd) {
	prior, ok := m.store.BeginRequest(text)
	if !ok {
		return m, nil
	}

	m.err = nil
	m.notice = ""
	m.animationFrame = 0
	m.textarea.Reset()
	m.syncInput()
	m.updateViewport()
	m.viewport.GotoBottom()

	m.logger.Debug().
		Bool("streaming", m.streaming).
		Int("history", len(prior)).
		Msg("submitting message")

	var send tea.Cmd
	if m.streaming {
		send = openStream(m.client, prior, text)
	} else {
		send = sendBuffered(m.client, prior, text)
	}

	return m, tea.Batch(
		send,
		m.spinner.Tick,
		animationTick(),
	)
}

// afterReply unlocks input and shows the committed reply
func (m *Model) afterReply() tea.Cmd {
	m.syncInput()
	m.updateViewport()
	m.viewport.GotoBottom()

	if m.autoCopy && m.store.LastError() == nil {
		if text := m.store.LastModelText(); text != "" {
			return m.copyText(text)
		}
	}
	return nil
}

// fail commits the fallback reply and keeps the cause for the status line
func (m *Model) fail(err error) {
	m.err = err
	m.store.FailWithError(err)
	m.logger.Warn().Err(err).Msg("request failed, committing fallback reply")
}

func (m *Model) toggleStreaming() {
	m.streaming = !m.streaming
	m.notice = "Streaming response " + onOff(m.streaming)
}

// syncInput matches the textarea to the input lock
func (m *Model) syncInput() {
	if m.store.Locked() {
		m.textarea.Placeholder = PlaceholderWaiting
		m.textarea.Blur()
		return
	}
	m.textarea.Placeholder = PlaceholderIdle
	m.textarea.Focus()
}

func (m *Model) closeStream() {
	if m.stream != nil {
		_ = m.stream.Close()
		m.stream = nil
	}
}

func (m Model) copyText(text string) tea.Cmd {
	write := m.copyClipboard
	return func() tea.Msg {
		return clipboardMsg{err: write(text)}
	}
}

func sendBuffered(client api.ChatClientInterface, prior []models.Message, text string) tea.Cmd {
	return func() tea.Msg {
		reply, err := client.SendBuffered(context.Background(), prior, text)
		if err != nil {
			return errMsg{err: err}
		}
		return responseMsg{text: reply}
	}
}

func openStream(client api.ChatClientInterface, prior []models.Message, text string) tea.Cmd {
	return func() tea.Msg {
		stream, err := client.SendStreamed(context.Background(), prior, text)
		if err != nil {
			return errMsg{err: err}
		}
		return streamOpenedMsg{stream: stream}
	}
}

// waitForFragment reads the next fragment off the stream
func waitForFragment(stream *api.Stream) tea.Cmd {
	return func() tea.Msg {
		fragment, err := stream.Next()
		if err == io.EOF {
			return streamDoneMsg{}
		}
		if err != nil {
			return streamDoneMsg{err: err}
		}
		return fragmentMsg{text: fragment}
	}
}

func exportConversation(store *history.Store, path string) tea.Cmd {
	return func() tea.Msg {
		return exportMsg{path: path, err: store.WriteExport(path)}
	}
}

// View renders the TUI
func (m Model) View() string {
	if !m.ready {
		return loadingStyle.Render("  Initializing...")
	}

	var sections []string
	contentWidth := m.width - 4

	headerContent := lipgloss.JoinHorizontal(lipgloss.Center,
		titleStyle.Render("✦ Chat"),
		hintStyle.Render("  •  "),
		subtitleStyle.Render(m.client.Host()),
		hintStyle.Render("  •  "),
		m.renderStreamToggle(),
	)
	sections = append(sections, headerStyle.Width(contentWidth).Render(headerContent))

	var messagesContent string
	if m.store.Len() == 0 {
		messagesContent = m.renderWelcome()
	} else {
		messagesContent = m.viewport.View()
	}
	sections = append(sections, messagesAreaStyle.
		Width(contentWidth).
		Height(m.viewport.Height).
		Render(messagesContent))

	var inputContent string
	if m.store.Locked() {
		inputContent = m.renderLoadingAnimation()
	} else {
		inputContent = lipgloss.JoinVertical(
			lipgloss.Left,
			inputLabelStyle.Render("You"),
			m.textarea.View(),
		)
	}
	sections = append(sections, inputPanelStyle.Width(contentWidth).Render(inputContent))

	sections = append(sections, m.renderStatusBar(contentWidth))

	if m.err != nil {
		sections = append(sections, FormatError(m.err, m.client.Host()))
	} else if m.notice != "" {
		sections = append(sections, noticeStyle.Render(m.notice))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderStreamToggle() string {
	label := "Streaming response " + onOff(m.streaming)
	if m.streaming {
		return toggleOnStyle.Render(label)
	}
	return toggleOffStyle.Render(label)
}

// renderWelcome renders the greeting shown before the first message
func (m Model) renderWelcome() string {
	width := m.viewport.Width - 4
	height := m.viewport.Height

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		"",
		welcomeIconStyle.Width(width).Render("✦"),
		welcomeTitleStyle.Width(width).Render("Hi,"),
		welcomeStyle.Width(width).Render("How can I help you today?"),
		"",
	)

	topPadding := (height - lipgloss.Height(content)) / 2
	if topPadding < 0 {
		topPadding = 0
	}

	return strings.Repeat("\n", topPadding) + content
}

// renderLoadingAnimation renders the animated wait indicator
func (m Model) renderLoadingAnimation() string {
	chars := []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}
	barChars := []string{"█", "█", "█", "█", "█", "█", "█", "█", "▓", "▒", "░"}

	frame := m.animationFrame

	spin := lipgloss.NewStyle().
		Foreground(gradientColors[frame%len(gradientColors)]).
		Bold(true).
		Render(chars[frame%len(chars)])

	barWidth := 20
	if m.store.Streaming() {
		barWidth = 10
	}
	var bar strings.Builder
	for i := 0; i < barWidth; i++ {
		colorIdx := (i + frame) % len(gradientColors)
		charIdx := (i + frame/2) % len(barChars)
		bar.WriteString(lipgloss.NewStyle().Foreground(gradientColors[colorIdx]).Render(barChars[charIdx]))
	}

	var dots strings.Builder
	numDots := (frame / 3) % 4
	for i := 0; i < 3; i++ {
		if i < numDots {
			dots.WriteString(lipgloss.NewStyle().Foreground(gradientColors[(frame+i)%len(gradientColors)]).Render("●"))
		} else {
			dots.WriteString(lipgloss.NewStyle().Foreground(colorTextMute).Render("○"))
		}
	}

	text := lipgloss.NewStyle().Foreground(colorText).Render(" " + PlaceholderWaiting + " ")

	return fmt.Sprintf("%s %s %s %s", spin, bar.String(), text, dots.String())
}

// renderStatusBar renders the bottom status bar with shortcuts
func (m Model) renderStatusBar(width int) string {
	shortcuts := []struct {
		key  string
		desc string
	}{
		{"Enter", "Send"},
		{"Ctrl+S", "Stream"},
		{"Esc", "Quit"},
		{"↑↓", "Scroll"},
	}

	var items []string
	for _, s := range shortcuts {
		items = append(items, lipgloss.JoinHorizontal(
			lipgloss.Center,
			statusKeyStyle.Render(s.key),
			statusDescStyle.Render(" "+s.desc),
		))
	}

	return statusBarStyle.Width(width).Align(lipgloss.Center).Render(strings.Join(items, "  │  "))
}

// updateViewport refreshes the viewport content with styled messages
func (m *Model) updateViewport() {
	if !m.ready {
		return
	}

	var content strings.Builder
	bubbleWidth := m.viewport.Width - 6
	opts := m.renderOpts.WithWidth(bubbleWidth - 4)

	for i, msg := range m.store.Messages() {
		if i > 0 {
			content.WriteString("\n")
		}

		if msg.IsUser() {
			content.WriteString(userLabelStyle.Render("⬤ You"))
			content.WriteString("\n")
			content.WriteString(userBubbleStyle.Width(bubbleWidth).Render(msg.Text))
		} else {
			content.WriteString(modelLabelStyle.Render("✦ Model"))
			content.WriteString("\n")
			content.WriteString(modelBubbleStyle.Width(bubbleWidth).Render(render.MarkdownOrPlain(msg.Text, opts)))
		}
		content.WriteString("\n")
	}

	// The in-progress reply is shown raw; markdown is applied once committed
	if m.store.Streaming() {
		content.WriteString("\n")
		content.WriteString(modelLabelStyle.Render("✦ Model"))
		content.WriteString("\n")
		content.WriteString(pendingBubbleStyle.Width(bubbleWidth).Render(m.store.Pending() + "▍"))
		content.WriteString("\n")
	}

	m.viewport.SetContent(content.String())
}

func onOff(enabled bool) string {
	if enabled {
		return "On"
	}
	return "Off"
}

// RunChat starts the chat TUI and blocks until the user quits
func RunChat(client api.ChatClientInterface, opts ...Option) error {
	p := tea.NewProgram(
		NewChatModel(client, opts...),
		tea.WithAltScreen(),
	)

	_, err := p.Run()
	return err
}
