package api

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "github.com/diogo/chatclient/internal/errors"
)

type closeTracker struct {
	io.ReadCloser
	closes int
}

func (c *closeTracker) Close() error {
	c.closes++
	return c.ReadCloser.Close()
}

func drain(t *testing.T, s *Stream) []string {
	t.Helper()
	var out []string
	for {
		f, err := s.Next()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, f)
	}
}

func TestStream_FragmentsInOrder(t *testing.T) {
	s := NewStream(NewFragmentReader(nil, "he", "llo", " world"), "/stream")

	assert.Equal(t, []string{"he", "llo", " world"}, drain(t, s))
	assert.Equal(t, 3, s.Fragments())
}

func TestStream_EmptyStream(t *testing.T) {
	s := NewStream(NewFragmentReader(nil), "/stream")

	f, err := s.Next()
	assert.Equal(t, io.EOF, err)
	assert.Empty(t, f)
	assert.Equal(t, 0, s.Fragments())
}

func TestStream_NextAfterEOF(t *testing.T) {
	s := NewStream(NewFragmentReader(nil, "a"), "/stream")
	drain(t, s)

	for i := 0; i < 3; i++ {
		_, err := s.Next()
		assert.Equal(t, io.EOF, err)
	}
}

func TestStream_SplitMultibyte(t *testing.T) {
	// "héllo ✓" with both multibyte runes cut across reads
	raw := []byte("héllo ✓")
	check := []byte("✓")
	eAt := strings.Index(string(raw), "é")
	checkAt := strings.Index(string(raw), "✓")

	parts := []string{
		string(raw[:eAt+1]),
		string(raw[eAt+1 : checkAt+1]),
		string(raw[checkAt+1 : checkAt+len(check)-1]),
		string(raw[checkAt+len(check)-1:]),
	}

	s := NewStream(NewFragmentReader(nil, parts...), "/stream")
	fragments := drain(t, s)

	assert.Equal(t, "héllo ✓", strings.Join(fragments, ""))
	for _, f := range fragments {
		assert.NotContains(t, f, "�", "fragment %q carries a broken rune", f)
	}
}

func TestStream_SplitRuneDoesNotDelayPrefix(t *testing.T) {
	pr, pw := io.Pipe()
	s := NewStream(pr, "/stream")
	defer s.Close()

	firstRead := make(chan struct{})
	go func() {
		_, _ = pw.Write([]byte("abc\xc3"))
		<-firstRead
		_, _ = pw.Write([]byte("\xa9!"))
		_ = pw.Close()
	}()

	type result struct {
		fragment string
		err      error
	}
	got := make(chan result, 1)
	go func() {
		f, err := s.Next()
		got <- result{f, err}
	}()

	select {
	case r := <-got:
		require.NoError(t, r.err)
		assert.Equal(t, "abc", r.fragment)
	case <-time.After(2 * time.Second):
		close(firstRead)
		t.Fatal("text before a split rune was held until the next read")
	}
	close(firstRead)

	assert.Equal(t, []string{"é!"}, drain(t, s))
}

func TestStream_TruncatedRuneAtEOF(t *testing.T) {
	s := NewStream(NewFragmentReader(nil, "ab\xe2\x9c"), "/stream")

	text, err := s.Collect()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "ab"), "got %q", text)
	assert.Contains(t, text, "\ufffd")
	assert.True(t, utf8.ValidString(text), "got %q", text)
}

func TestStream_InvalidBytesReplaced(t *testing.T) {
	s := NewStream(NewFragmentReader(nil, "ok\xff"), "/stream")

	text, err := s.Collect()
	require.NoError(t, err)
	assert.Equal(t, "ok�", text)
}

func TestStream_MidStreamError(t *testing.T) {
	body := &closeTracker{ReadCloser: NewFragmentReader(errors.New("connection reset"), "he", "llo")}
	s := NewStream(body, "http://chat.test/stream")

	f, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, "he", f)

	f, err = s.Next()
	require.NoError(t, err)
	assert.Equal(t, "llo", f)

	_, err = s.Next()
	require.Error(t, err)
	assert.NotEqual(t, io.EOF, err)
	assert.True(t, apierrors.IsTransportError(err))
	assert.Equal(t, "http://chat.test/stream", apierrors.GetEndpoint(err))
	assert.Contains(t, err.Error(), "connection reset")

	// the error is sticky and the body is released once
	_, again := s.Next()
	assert.Equal(t, err, again)
	assert.Equal(t, 1, body.closes)
}

func TestStream_CloseBeforeEnd(t *testing.T) {
	body := &closeTracker{ReadCloser: NewFragmentReader(nil, "he", "llo")}
	s := NewStream(body, "/stream")

	_, err := s.Next()
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 1, body.closes)

	_, err = s.Next()
	assert.ErrorIs(t, err, apierrors.ErrStreamClosed)
}

func TestStream_CloseAfterEnd(t *testing.T) {
	body := &closeTracker{ReadCloser: NewFragmentReader(nil, "x")}
	s := NewStream(body, "/stream")
	drain(t, s)

	require.NoError(t, s.Close())
	assert.Equal(t, 1, body.closes)

	_, err := s.Next()
	assert.Equal(t, io.EOF, err)
}

func TestStream_Collect(t *testing.T) {
	tests := []struct {
		name      string
		fragments []string
		err       error
		want      string
		wantErr   bool
	}{
		{name: "complete", fragments: []string{"he", "llo"}, want: "hello"},
		{name: "empty", want: ""},
		{name: "broken", fragments: []string{"par", "tial"}, err: errors.New("eof mid body"), want: "partial", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStream(NewFragmentReader(tt.err, tt.fragments...), "/stream")
			got, err := s.Collect()
			assert.Equal(t, tt.want, got)
			if tt.wantErr {
				assert.True(t, apierrors.IsTransportError(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFragmentReader_LargeFragment(t *testing.T) {
	big := strings.Repeat("a", fragmentBufferSize+10)
	s := NewStream(NewFragmentReader(nil, big), "/stream")

	text, err := s.Collect()
	require.NoError(t, err)
	assert.Equal(t, big, text)
	assert.GreaterOrEqual(t, s.Fragments(), 2)
}
