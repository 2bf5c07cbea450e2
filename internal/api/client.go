// Package api implements the transport to the chat backend and the
// submission lifecycle built on top of it.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	http "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	apierrors "github.com/diogo/chatclient/internal/errors"
	"github.com/diogo/chatclient/internal/models"
)

// RequestIDHeader carries the per-request correlation id
const RequestIDHeader = "X-Request-ID"

// HTTPDoer is the subset of an HTTP client the transport needs
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ChatClientInterface is the transport used by sessions and the TUI
type ChatClientInterface interface {
	SendBuffered(ctx context.Context, history []models.Message, text string) (string, error)
	SendStreamed(ctx context.Context, history []models.Message, text string) (*Stream, error)
	Host() string
	Close()
}

// Ensure Client implements ChatClientInterface
var _ ChatClientInterface = (*Client)(nil)

// Client talks to the /chat and /stream endpoints
type Client struct {
	httpClient HTTPDoer
	host       string
	timeout    time.Duration
	logger     zerolog.Logger
	mu         sync.RWMutex
	closed     bool
}

// ClientOption is a function that configures the client
type ClientOption func(*Client)

// WithHost sets the backend base URL
func WithHost(host string) ClientOption {
	return func(c *Client) {
		if host != "" {
			c.host = host
		}
	}
}

// WithTimeout sets the overall request timeout. Zero means no timeout,
// which streamed replies need since the timeout covers the whole body.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithLogger sets the logger used for request tracing
func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(doer HTTPDoer) ClientOption {
	return func(c *Client) {
		c.httpClient = doer
	}
}

// NewClient creates a new Client
func NewClient(opts ...ClientOption) (*Client, error) {
	client := &Client{
		host:   models.DefaultHost,
		logger: zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.httpClient == nil {
		options := []tls_client.HttpClientOption{
			tls_client.WithTimeoutSeconds(int(client.timeout / time.Second)),
			tls_client.WithClientProfile(profiles.Chrome_120),
		}

		httpClient, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create HTTP client")
		}
		client.httpClient = httpClient
	}

	return client, nil
}

// Host returns the backend base URL
func (c *Client) Host() string {
	return c.host
}

// Close releases idle connections. Further requests fail.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true

	if idle, ok := c.httpClient.(interface{ CloseIdleConnections() }); ok {
		idle.CloseIdleConnections()
	}
}

// IsClosed returns whether the client is closed
func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// post sends a ChatRequest and returns the response when its status is 2xx.
// Any other outcome is reported as a TransportError.
func (c *Client) post(ctx context.Context, op, path string, headers map[string]string, history []models.Message, text string) (*http.Response, zerolog.Logger, error) {
	endpoint := models.Endpoint(c.host, path)
	requestID := uuid.NewString()
	log := c.logger.With().
		Str("op", op).
		Str("endpoint", endpoint).
		Str("request_id", requestID).
		Logger()

	if c.IsClosed() {
		return nil, log, apierrors.NewTransportError(op, endpoint, errors.New("client is closed"))
	}

	payload, err := json.Marshal(models.NewChatRequest(history, text))
	if err != nil {
		return nil, log, apierrors.NewTransportError(op, endpoint, errors.Wrap(err, "failed to encode request"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, log, apierrors.NewTransportError(op, endpoint, errors.Wrap(err, "failed to create request"))
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	req.Header.Set(RequestIDHeader, requestID)

	log.Debug().Int("history", len(history)).Int("bytes", len(payload)).Msg("sending request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, log, apierrors.NewTransportError(op, endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var body []byte
		if resp.Body != nil {
			body, _ = io.ReadAll(io.LimitReader(resp.Body, 4096))
			_ = resp.Body.Close()
		}
		return nil, log, apierrors.NewStatusError(op, endpoint, resp.StatusCode, string(body))
	}

	return resp, log, nil
}
