package api

import (
	"context"
	"io"
	"sync"

	"github.com/diogo/chatclient/internal/models"
)

// MockCall records one request made through MockChatClient
type MockCall struct {
	Streamed bool
	History  []models.Message
	Text     string
}

// MockChatClient is a mock implementation of ChatClientInterface for testing
type MockChatClient struct {
	// Mock return values
	BufferedReply string
	BufferedErr   error
	Fragments     []string
	StreamErr     error // returned instead of opening a stream
	FragmentErr   error // returned by the stream after all fragments
	HostVal       string

	// OnSend runs inside each request, before the reply is produced
	OnSend func(streamed bool)

	mu          sync.Mutex
	Calls       []MockCall
	CloseCalled bool
}

// Ensure MockChatClient implements ChatClientInterface
var _ ChatClientInterface = (*MockChatClient)(nil)

func (m *MockChatClient) record(streamed bool, history []models.Message, text string) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Streamed: streamed, History: history, Text: text})
	m.mu.Unlock()

	if m.OnSend != nil {
		m.OnSend(streamed)
	}
}

func (m *MockChatClient) SendBuffered(ctx context.Context, history []models.Message, text string) (string, error) {
	m.record(false, history, text)
	if m.BufferedErr != nil {
		return "", m.BufferedErr
	}
	return m.BufferedReply, nil
}

func (m *MockChatClient) SendStreamed(ctx context.Context, history []models.Message, text string) (*Stream, error) {
	m.record(true, history, text)
	if m.StreamErr != nil {
		return nil, m.StreamErr
	}
	return NewStream(NewFragmentReader(m.FragmentErr, m.Fragments...), models.PathStream), nil
}

func (m *MockChatClient) Host() string {
	if m.HostVal == "" {
		return models.DefaultHost
	}
	return m.HostVal
}

func (m *MockChatClient) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CloseCalled = true
}

// CallCount returns the number of requests made so far
func (m *MockChatClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// fragmentReader returns one fragment per Read, then err (or io.EOF)
type fragmentReader struct {
	fragments [][]byte
	err       error
}

// NewFragmentReader builds a body that delivers each fragment in its own
// Read call and then fails with err, or io.EOF when err is nil
func NewFragmentReader(err error, fragments ...string) io.ReadCloser {
	r := &fragmentReader{err: err}
	for _, f := range fragments {
		r.fragments = append(r.fragments, []byte(f))
	}
	return r
}

func (r *fragmentReader) Read(p []byte) (int, error) {
	for len(r.fragments) > 0 && len(r.fragments[0]) == 0 {
		r.fragments = r.fragments[1:]
	}
	if len(r.fragments) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}

	n := copy(p, r.fragments[0])
	r.fragments[0] = r.fragments[0][n:]
	if len(r.fragments[0]) == 0 {
		r.fragments = r.fragments[1:]
	}
	return n, nil
}

func (r *fragmentReader) Close() error {
	return nil
}
