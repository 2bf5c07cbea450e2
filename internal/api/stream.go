package api

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	http "github.com/bogdanfinn/fhttp"
	"github.com/rs/zerolog"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	apierrors "github.com/diogo/chatclient/internal/errors"
	"github.com/diogo/chatclient/internal/models"
)

// fragmentBufferSize bounds a single fragment
const fragmentBufferSize = 4096

// Stream is a finite, non-restartable sequence of decoded text fragments.
// Each call to Next returns the text delivered by one read of the response
// body. Incomplete UTF-8 sequences are held back until the rest arrives.
type Stream struct {
	body     io.ReadCloser
	decoder  transform.Transformer
	buf      []byte
	carry    []byte // undecoded tail of the previous read
	endpoint string
	logger   zerolog.Logger
	started  time.Time

	readMu sync.Mutex // serializes Next

	mu        sync.Mutex // guards the fields below
	fragments int
	bytes     int
	err       error // deferred error returned after the last data
	done      bool
	closed    bool
}

// NewStream wraps a byte stream. endpoint is only used in error reports.
func NewStream(body io.ReadCloser, endpoint string) *Stream {
	return newStream(body, endpoint, zerolog.Nop())
}

func newStream(body io.ReadCloser, endpoint string, logger zerolog.Logger) *Stream {
	return &Stream{
		body:     body,
		decoder:  unicode.UTF8.NewDecoder(),
		buf:      make([]byte, fragmentBufferSize),
		endpoint: endpoint,
		logger:   logger,
		started:  time.Now(),
	}
}

// SendStreamed posts the conversation and the new text to /stream and
// returns the reply as a Stream. The caller must Close the stream.
func (c *Client) SendStreamed(ctx context.Context, history []models.Message, text string) (*Stream, error) {
	resp, log, err := c.post(ctx, "stream", models.PathStream, models.StreamHeaders(), history, text)
	if err != nil {
		log.Warn().Err(err).Int("status", apierrors.GetHTTPStatus(err)).Msg("stream request failed")
		return nil, err
	}

	endpoint := models.Endpoint(c.host, models.PathStream)
	if resp.Body == nil || resp.Body == http.NoBody {
		log.Warn().Msg("stream response has no body")
		return nil, apierrors.NewTransportError("stream", endpoint, apierrors.ErrNoBody)
	}

	log.Debug().Int("status", resp.StatusCode).Str("content_type", resp.Header.Get("Content-Type")).Msg("stream opened")
	return newStream(resp.Body, endpoint, log), nil
}

// Next returns the next fragment, or io.EOF once the remote side has closed
// the stream. Any other error is a TransportError and ends the stream.
// Close may be called from another goroutine to abort a blocked Next.
func (s *Stream) Next() (string, error) {
	s.readMu.Lock()
	defer s.readMu.Unlock()

	for {
		s.mu.Lock()
		if s.done {
			err := s.err
			s.mu.Unlock()
			if err != nil {
				return "", err
			}
			return "", io.EOF
		}
		if s.closed {
			s.mu.Unlock()
			return "", apierrors.NewTransportError("stream", s.endpoint, apierrors.ErrStreamClosed)
		}
		s.mu.Unlock()

		n, err := s.body.Read(s.buf)

		s.mu.Lock()
		if err != nil && s.closed {
			// aborted by Close; the read error is an artifact of that
			s.mu.Unlock()
			return "", apierrors.NewTransportError("stream", s.endpoint, apierrors.ErrStreamClosed)
		}
		s.bytes += n
		decoded := s.decode(s.buf[:n], err != nil)
		if err != nil {
			s.finishLocked(err)
		}
		if len(decoded) > 0 {
			s.fragments++
			s.mu.Unlock()
			return string(decoded), nil
		}
		s.mu.Unlock()
	}
}

// decode converts carry+chunk to UTF-8 text. A trailing incomplete sequence
// is kept in carry for the next read unless atEOF, in which case it becomes
// U+FFFD like any other invalid byte.
func (s *Stream) decode(chunk []byte, atEOF bool) []byte {
	src := append(s.carry, chunk...)
	if len(src) == 0 {
		s.carry = nil
		return nil
	}

	// each invalid byte expands to at most 3 bytes
	dst := make([]byte, 3*len(src)+utf8.UTFMax)
	nDst, nSrc, err := s.decoder.Transform(dst, src, atEOF)
	if err != nil && err != transform.ErrShortSrc {
		s.logger.Debug().Err(err).Msg("decoding stream fragment")
	}

	s.carry = append([]byte(nil), src[nSrc:]...)
	if len(s.carry) == 0 {
		s.carry = nil
	}
	return dst[:nDst]
}

// finishLocked records the terminal read error and releases the body
func (s *Stream) finishLocked(err error) {
	s.done = true
	if err != io.EOF {
		s.err = apierrors.NewTransportError("stream", s.endpoint, err)
	}
	_ = s.closeLocked()

	ev := s.logger.Info()
	if s.err != nil {
		ev = s.logger.Warn().Err(s.err)
	}
	ev.Int("fragments", s.fragments).
		Int("bytes", s.bytes).
		Dur("duration", time.Since(s.started)).
		Msg("stream finished")
}

// Collect drains the stream and returns the concatenated text
func (s *Stream) Collect() (string, error) {
	var sb strings.Builder
	for {
		fragment, err := s.Next()
		if err == io.EOF {
			return sb.String(), nil
		}
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(fragment)
	}
}

// Fragments returns the number of fragments delivered so far
func (s *Stream) Fragments() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fragments
}

// Close releases the response body. It is safe to call more than once.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *Stream) closeLocked() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}
