package tui

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/chatclient/internal/api"
	apierrors "github.com/diogo/chatclient/internal/errors"
	"github.com/diogo/chatclient/internal/history"
	"github.com/diogo/chatclient/internal/models"
)

func newTestModel(t *testing.T, client *api.MockChatClient, opts ...Option) Model {
	t.Helper()
	m := NewChatModel(client, opts...)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return updated.(Model)
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

func typeAndEnter(t *testing.T, m Model, text string) (Model, tea.Cmd) {
	t.Helper()
	m.textarea.SetValue(text)
	return update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
}

// drive feeds msg to the model and follows the commands it returns until
// none of them yields one of the chat messages
func drive(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	queue := []tea.Msg{msg}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]

		var cmd tea.Cmd
		m, cmd = update(t, m, next)
		queue = append(queue, chatMsgs(cmd)...)
	}
	return m
}

// chatMsgs runs cmd and returns the chat messages it produced; spinner and
// animation ticks are dropped
func chatMsgs(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	switch msg := msg.(type) {
	case tea.BatchMsg:
		var out []tea.Msg
		for _, c := range msg {
			if c == nil {
				continue
			}
			out = append(out, chatMsgs(c)...)
		}
		return out
	case responseMsg, errMsg, streamOpenedMsg, fragmentMsg, streamDoneMsg, clipboardMsg, exportMsg:
		return []tea.Msg{msg}
	}
	return nil
}

func TestNewChatModel(t *testing.T) {
	m := NewChatModel(&api.MockChatClient{})

	if m.store == nil {
		t.Fatal("expected a store")
	}
	if m.textarea.Placeholder != PlaceholderIdle {
		t.Errorf("placeholder = %q, want %q", m.textarea.Placeholder, PlaceholderIdle)
	}
	if m.Streaming() {
		t.Error("expected buffered mode by default")
	}
	if m.Init() == nil {
		t.Error("Init() should return a command")
	}
}

func TestView_BeforeResize(t *testing.T) {
	m := NewChatModel(&api.MockChatClient{})
	if !strings.Contains(m.View(), "Initializing") {
		t.Errorf("expected initializing view, got %q", m.View())
	}
}

func TestView_Welcome(t *testing.T) {
	m := newTestModel(t, &api.MockChatClient{})
	view := m.View()

	for _, want := range []string{"Hi,", "How can I help you today?", "Streaming response Off", models.DefaultHost} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestEnter_BlankInputIsNoop(t *testing.T) {
	mock := &api.MockChatClient{}
	m := newTestModel(t, mock)

	for _, input := range []string{"", "   ", "\t"} {
		var cmd tea.Cmd
		m, cmd = typeAndEnter(t, m, input)
		if cmd != nil {
			t.Errorf("blank input %q should not produce a command", input)
		}
	}
	if m.store.Len() != 0 {
		t.Errorf("store length = %d, want 0", m.store.Len())
	}
	if m.store.Locked() {
		t.Error("input should not be locked")
	}
}

func TestSubmit_Buffered(t *testing.T) {
	mock := &api.MockChatClient{BufferedReply: "hello"}
	m := newTestModel(t, mock)

	m, cmd := typeAndEnter(t, m, "hi")
	if cmd == nil {
		t.Fatal("expected a send command")
	}
	if !m.store.Locked() {
		t.Error("input should be locked while waiting")
	}
	if m.textarea.Placeholder != PlaceholderWaiting {
		t.Errorf("placeholder = %q, want %q", m.textarea.Placeholder, PlaceholderWaiting)
	}
	if m.textarea.Value() != "" {
		t.Errorf("textarea should be cleared, got %q", m.textarea.Value())
	}
	if got := m.store.Messages(); len(got) != 1 || got[0] != models.UserMessage("hi") {
		t.Errorf("messages = %+v, want only the user message", got)
	}

	msgs := chatMsgs(cmd)
	if len(msgs) != 1 {
		t.Fatalf("expected one transport message, got %d", len(msgs))
	}
	m = drive(t, m, msgs[0])

	want := []models.Message{models.UserMessage("hi"), models.ModelMessage("hello")}
	got := m.store.Messages()
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("messages = %+v, want %+v", got, want)
	}
	if m.store.Locked() {
		t.Error("input should be unlocked after the reply")
	}
	if m.textarea.Placeholder != PlaceholderIdle {
		t.Errorf("placeholder = %q, want %q", m.textarea.Placeholder, PlaceholderIdle)
	}
	if mock.Calls[0].Streamed || mock.Calls[0].Text != "hi" {
		t.Errorf("unexpected call %+v", mock.Calls[0])
	}
}

func TestSubmit_EnterIgnoredWhileLocked(t *testing.T) {
	mock := &api.MockChatClient{BufferedReply: "hello"}
	m := newTestModel(t, mock)

	m, _ = typeAndEnter(t, m, "first")
	m, cmd := typeAndEnter(t, m, "second")

	if cmd != nil {
		t.Error("enter while locked should not send")
	}
	if m.store.Len() != 1 {
		t.Errorf("store length = %d, want 1", m.store.Len())
	}
}

func TestSubmit_Streamed(t *testing.T) {
	mock := &api.MockChatClient{Fragments: []string{"he", "llo"}}
	m := newTestModel(t, mock, WithStreaming(true))

	m, cmd := typeAndEnter(t, m, "hi")
	msgs := chatMsgs(cmd)
	if len(msgs) != 1 {
		t.Fatalf("expected stream open message, got %d", len(msgs))
	}
	if _, ok := msgs[0].(streamOpenedMsg); !ok {
		t.Fatalf("expected streamOpenedMsg, got %T", msgs[0])
	}

	m, cmd = update(t, m, msgs[0])
	if !m.store.Streaming() {
		t.Fatal("expected streaming state")
	}
	if m.store.Pending() != "" {
		t.Errorf("pending = %q, want empty", m.store.Pending())
	}

	var pending []string
	for {
		next := cmd()
		if _, done := next.(streamDoneMsg); done {
			m, _ = update(t, m, next)
			break
		}
		m, cmd = update(t, m, next)
		pending = append(pending, m.store.Pending())
		if !strings.Contains(m.viewport.View(), m.store.Pending()) {
			t.Errorf("viewport does not show pending text %q", m.store.Pending())
		}
	}

	if strings.Join(pending, "|") != "he|hello" {
		t.Errorf("pending transitions = %v, want [he hello]", pending)
	}
	got := m.store.Messages()
	if len(got) != 2 || got[1] != models.ModelMessage("hello") {
		t.Errorf("messages = %+v", got)
	}
	if m.store.Pending() != "" || m.store.Locked() {
		t.Error("stream should be committed and input unlocked")
	}
	if m.stream != nil {
		t.Error("stream should be released")
	}
}

func TestSubmit_FailureShowsFallback(t *testing.T) {
	cause := apierrors.NewStatusError("chat", "http://localhost:9000/chat", 500, "boom")

	tests := []struct {
		name   string
		mock   *api.MockChatClient
		stream bool
	}{
		{name: "buffered", mock: &api.MockChatClient{BufferedErr: cause}},
		{name: "stream open", mock: &api.MockChatClient{StreamErr: cause}, stream: true},
		{name: "mid stream", mock: &api.MockChatClient{Fragments: []string{"par"}, FragmentErr: errors.New("reset")}, stream: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestModel(t, tt.mock, WithStreaming(tt.stream))

			m, cmd := typeAndEnter(t, m, "hi")
			for _, msg := range chatMsgs(cmd) {
				m = drive(t, m, msg)
			}

			got := m.store.Messages()
			if len(got) != 2 || got[1] != models.ModelMessage(models.FallbackText) {
				t.Errorf("messages = %+v, want fallback reply", got)
			}
			if m.store.Locked() {
				t.Error("input should be unlocked")
			}
			if m.err == nil {
				t.Error("expected the failure to be kept for the status area")
			}
			if !strings.Contains(m.View(), "Request failed") {
				t.Error("view should describe the failure")
			}
		})
	}
}

func TestToggleStreaming(t *testing.T) {
	mock := &api.MockChatClient{BufferedReply: "b", Fragments: []string{"s"}}
	m := newTestModel(t, mock)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	if !m.Streaming() {
		t.Fatal("ctrl+s should enable streaming")
	}
	if !strings.Contains(m.View(), "Streaming response On") {
		t.Error("header should show streaming on")
	}

	m, _ = typeAndEnter(t, m, "/stream")
	if m.Streaming() {
		t.Fatal("/stream should disable streaming")
	}
	if m.store.Len() != 0 {
		t.Error("/stream must not be sent as a message")
	}
}

func TestQuitKeys(t *testing.T) {
	for _, key := range []tea.KeyMsg{{Type: tea.KeyCtrlC}, {Type: tea.KeyEsc}} {
		m := newTestModel(t, &api.MockChatClient{})
		_, cmd := update(t, m, key)
		if cmd == nil {
			t.Fatalf("%s should quit", key.String())
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%s should produce QuitMsg", key.String())
		}
	}

	m := newTestModel(t, &api.MockChatClient{})
	_, cmd := typeAndEnter(t, m, "exit")
	if cmd == nil {
		t.Fatal("exit should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("exit should produce QuitMsg")
	}
}

func TestCopyCommand(t *testing.T) {
	var copied string
	clip := func(s string) error {
		copied = s
		return nil
	}
	mock := &api.MockChatClient{BufferedReply: "answer"}
	m := newTestModel(t, mock, WithClipboard(clip))

	m, cmd := typeAndEnter(t, m, "/copy")
	if cmd != nil {
		t.Error("/copy with no reply should not run a command")
	}
	if !strings.Contains(m.notice, "Nothing to copy") {
		t.Errorf("notice = %q", m.notice)
	}

	m, cmd = typeAndEnter(t, m, "question")
	for _, msg := range chatMsgs(cmd) {
		m = drive(t, m, msg)
	}

	m, cmd = typeAndEnter(t, m, "/copy")
	for _, msg := range chatMsgs(cmd) {
		m = drive(t, m, msg)
	}
	if copied != "answer" {
		t.Errorf("copied = %q, want answer", copied)
	}
	if !strings.Contains(m.notice, "Copied") {
		t.Errorf("notice = %q", m.notice)
	}
}

func TestAutoCopy(t *testing.T) {
	var copied []string
	clip := func(s string) error {
		copied = append(copied, s)
		return nil
	}

	m := newTestModel(t, &api.MockChatClient{BufferedReply: "auto"}, WithAutoCopy(true), WithClipboard(clip))
	m, cmd := typeAndEnter(t, m, "hi")
	for _, msg := range chatMsgs(cmd) {
		m = drive(t, m, msg)
	}
	if len(copied) != 1 || copied[0] != "auto" {
		t.Errorf("copied = %v", copied)
	}

	// failures are not copied
	m = newTestModel(t, &api.MockChatClient{BufferedErr: errors.New("down")}, WithAutoCopy(true), WithClipboard(clip))
	m, cmd = typeAndEnter(t, m, "hi")
	for _, msg := range chatMsgs(cmd) {
		m = drive(t, m, msg)
	}
	if len(copied) != 1 {
		t.Errorf("fallback reply should not be copied, got %v", copied)
	}
}

func TestExportCommand(t *testing.T) {
	m := newTestModel(t, &api.MockChatClient{BufferedReply: "hello"})
	m, cmd := typeAndEnter(t, m, "hi")
	for _, msg := range chatMsgs(cmd) {
		m = drive(t, m, msg)
	}

	m, cmd = typeAndEnter(t, m, "/export")
	if cmd != nil || !strings.Contains(m.notice, "Usage") {
		t.Errorf("/export without path should print usage, notice = %q", m.notice)
	}

	path := filepath.Join(t.TempDir(), "chat.md")
	m, cmd = typeAndEnter(t, m, "/export "+path)
	for _, msg := range chatMsgs(cmd) {
		m = drive(t, m, msg)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("export not written: %v", err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Errorf("export missing reply: %s", data)
	}
	if !strings.Contains(m.notice, "exported") {
		t.Errorf("notice = %q", m.notice)
	}
}

func TestClearCommand(t *testing.T) {
	store := history.NewStore()
	store.AppendUserMessage("old")
	store.CompleteWithModelMessage("reply")

	m := newTestModel(t, &api.MockChatClient{}, WithStore(store))
	m, _ = typeAndEnter(t, m, "/clear")

	if store.Len() != 0 {
		t.Errorf("store length = %d, want 0", store.Len())
	}
	if !strings.Contains(m.View(), "How can I help you today?") {
		t.Error("welcome should be shown after clear")
	}
}

func TestClearRefusedWhileBusy(t *testing.T) {
	m := newTestModel(t, &api.MockChatClient{})
	m.store.AppendUserMessage("pending")

	updated, _ := m.handleInput("/clear")
	m = updated.(Model)
	if m.store.Len() != 1 {
		t.Error("clear should be refused while a request is outstanding")
	}
	if !strings.Contains(m.notice, "Cannot clear") {
		t.Errorf("notice = %q", m.notice)
	}
}

func TestView_Transcript(t *testing.T) {
	store := history.NewStore()
	store.AppendUserMessage("what is go?")
	store.CompleteWithModelMessage("A **language**.")

	m := newTestModel(t, &api.MockChatClient{}, WithStore(store))
	view := m.View()

	for _, want := range []string{"You", "Model", "what is go?", "language"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestFormatError(t *testing.T) {
	if FormatError(nil, "") != "" {
		t.Error("nil error should format to empty string")
	}

	network := apierrors.NewTransportError("chat", "http://localhost:9000/chat", errors.New("connection refused"))
	out := FormatError(network, "http://localhost:9000")
	if !strings.Contains(out, "Is the chat server running at http://localhost:9000?") {
		t.Errorf("network hint missing: %q", out)
	}

	status := apierrors.NewStatusError("chat", "http://localhost:9000/chat", 503, "unavailable")
	out = FormatError(status, "http://localhost:9000")
	if !strings.Contains(out, "HTTP Status: 503") || !strings.Contains(out, "unavailable") {
		t.Errorf("status detail missing: %q", out)
	}
}

func TestApplyTheme(t *testing.T) {
	defer ApplyTheme("tokyonight")

	if !ApplyTheme("dracula") {
		t.Error("dracula should be a known theme")
	}
	if colorUser != lipgloss.Color("#50fa7b") {
		t.Errorf("user color = %v", colorUser)
	}
	if ApplyTheme("nonexistent") {
		t.Error("unknown theme should report false")
	}
}
