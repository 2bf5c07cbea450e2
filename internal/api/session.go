package api

import (
	"context"
	"io"
	"sync"

	"github.com/rs/zerolog"

	apierrors "github.com/diogo/chatclient/internal/errors"
	"github.com/diogo/chatclient/internal/history"
	"github.com/diogo/chatclient/internal/models"
)

// FragmentFunc observes a streamed reply. fragment is the text of one read,
// pending is everything received so far.
type FragmentFunc func(fragment, pending string)

// ChatSession runs one submission at a time against a conversation store
type ChatSession struct {
	client    ChatClientInterface
	store     *history.Store
	logger    zerolog.Logger
	mu        sync.RWMutex // Protects streaming
	streaming bool
}

// SessionOption configures a ChatSession
type SessionOption func(*ChatSession)

// WithStore makes the session use an existing conversation
func WithStore(store *history.Store) SessionOption {
	return func(s *ChatSession) {
		s.store = store
	}
}

// WithStreaming selects the initial response mode
func WithStreaming(enabled bool) SessionOption {
	return func(s *ChatSession) {
		s.streaming = enabled
	}
}

// WithSessionLogger sets the logger for submission outcomes
func WithSessionLogger(logger zerolog.Logger) SessionOption {
	return func(s *ChatSession) {
		s.logger = logger
	}
}

// NewChatSession creates a session with an empty conversation unless
// WithStore is given
func NewChatSession(client ChatClientInterface, opts ...SessionOption) *ChatSession {
	s := &ChatSession{
		client: client,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = history.NewStore()
	}
	return s
}

// Store returns the conversation the session mutates
func (s *ChatSession) Store() *history.Store {
	return s.store
}

// SetStreaming toggles between buffered and streamed replies
func (s *ChatSession) SetStreaming(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streaming = enabled
}

// Streaming reports whether replies are streamed
func (s *ChatSession) Streaming() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.streaming
}

// Submit sends input and blocks until the model reply is committed.
//
// Blank input returns ErrEmptyInput and a busy conversation returns ErrBusy;
// neither changes the store. Otherwise exactly one user message and one model
// message are appended. A transport failure is not returned: the committed
// reply is models.FallbackText and the cause is kept in Store().LastError().
func (s *ChatSession) Submit(ctx context.Context, input string, onFragment FragmentFunc) (models.Message, error) {
	if history.IsBlank(input) {
		return models.Message{}, apierrors.ErrEmptyInput
	}

	prior, ok := s.store.BeginRequest(input)
	if !ok {
		return models.Message{}, apierrors.ErrBusy
	}

	if s.Streaming() {
		s.submitStreamed(ctx, prior, input, onFragment)
	} else {
		s.submitBuffered(ctx, prior, input)
	}

	msgs := s.store.Messages()
	return msgs[len(msgs)-1], nil
}

func (s *ChatSession) submitBuffered(ctx context.Context, prior []models.Message, input string) {
	reply, err := s.client.SendBuffered(ctx, prior, input)
	if err != nil {
		s.fail(err)
		return
	}
	s.store.CompleteWithModelMessage(reply)
}

func (s *ChatSession) submitStreamed(ctx context.Context, prior []models.Message, input string, onFragment FragmentFunc) {
	stream, err := s.client.SendStreamed(ctx, prior, input)
	if err != nil {
		s.fail(err)
		return
	}
	defer stream.Close()

	s.store.BeginStream()
	for {
		fragment, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			s.fail(err)
			return
		}

		s.store.AppendStreamFragment(fragment)
		if onFragment != nil {
			onFragment(fragment, s.store.Pending())
		}
	}

	s.store.CompleteWithModelMessage(s.store.Pending())
}

func (s *ChatSession) fail(err error) {
	s.logger.Warn().
		Err(err).
		Int("status", apierrors.GetHTTPStatus(err)).
		Str("endpoint", apierrors.GetEndpoint(err)).
		Msg("request failed, committing fallback reply")
	s.store.FailWithError(err)
}
