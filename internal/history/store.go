// Package history provides the in-memory conversation state for a chat session.
package history

import (
	"strings"
	"sync"

	"github.com/diogo/chatclient/internal/models"
)

// State is the submission state of a conversation
type State int

const (
	// StateIdle accepts a new submission
	StateIdle State = iota
	// StateSending waits for a buffered reply or for a stream to open
	StateSending
	// StateStreaming receives fragments into the pending buffer
	StateStreaming
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// Store owns the message history, the pending stream buffer and the
// submission state. All mutation goes through its methods.
type Store struct {
	mu       sync.RWMutex
	messages []models.Message
	pending  strings.Builder
	state    State
	lastErr  error
}

// NewStore creates an empty conversation
func NewStore() *Store {
	return &Store{
		messages: []models.Message{},
	}
}

// IsBlank reports whether text is empty or whitespace only
func IsBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}

// AppendUserMessage appends a user message and locks input.
// Returns false without changing anything when text is blank or a
// request is already outstanding.
func (s *Store) AppendUserMessage(text string) bool {
	_, ok := s.BeginRequest(text)
	return ok
}

// BeginRequest is AppendUserMessage that also returns the conversation as
// it was before the append, taken under the same lock. The snapshot is the
// history to send with text.
func (s *Store) BeginRequest(text string) ([]models.Message, bool) {
	if IsBlank(text) {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return nil, false
	}

	prior := make([]models.Message, len(s.messages))
	copy(prior, s.messages)

	s.messages = append(s.messages, models.UserMessage(text))
	s.state = StateSending
	s.lastErr = nil
	return prior, true
}

// BeginStream moves a sending conversation into streaming with an empty
// pending buffer
func (s *Store) BeginStream() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateSending {
		return false
	}
	s.pending.Reset()
	s.state = StateStreaming
	return true
}

// AppendStreamFragment concatenates fragment onto the pending buffer
func (s *Store) AppendStreamFragment(fragment string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateStreaming {
		return false
	}
	s.pending.WriteString(fragment)
	return true
}

// ResetStream clears the pending buffer
func (s *Store) ResetStream() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending.Reset()
}

// CompleteWithModelMessage appends the model reply, clears the pending
// buffer and unlocks input. Ignored when no request is outstanding.
func (s *Store) CompleteWithModelMessage(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completeLocked(text)
}

// FailWithError commits the fallback reply and keeps err for diagnostics
func (s *Store) FailWithError(err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.completeLocked(models.FallbackText) {
		return false
	}
	s.lastErr = err
	return true
}

// completeLocked MUST be called with s.mu held
func (s *Store) completeLocked(text string) bool {
	if s.state == StateIdle {
		return false
	}
	s.messages = append(s.messages, models.ModelMessage(text))
	s.pending.Reset()
	s.state = StateIdle
	return true
}

// Reset drops all messages. Only allowed while idle.
func (s *Store) Reset() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return false
	}
	s.messages = []models.Message{}
	s.pending.Reset()
	s.lastErr = nil
	return true
}

// Messages returns a copy of the conversation
func (s *Store) Messages() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of committed messages
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Pending returns the text received so far for the in-progress stream
func (s *Store) Pending() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending.String()
}

// State returns the current submission state
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Locked reports whether input is currently disabled
func (s *Store) Locked() bool {
	return s.State() != StateIdle
}

// Streaming reports whether a stream is in progress
func (s *Store) Streaming() bool {
	return s.State() == StateStreaming
}

// LastModelText returns the text of the most recent model message
func (s *Store) LastModelText() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].Role == models.RoleModel {
			return s.messages[i].Text
		}
	}
	return ""
}

// LastError returns the error behind the most recent fallback reply
func (s *Store) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}
