package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/leofalp/gemkit/internal/utils"
)

const (
	// DefaultBaseURL is the public Gemini API endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com"

	// DefaultMaxResponseBytes caps how much of a reply body is read.
	DefaultMaxResponseBytes int64 = 32 << 20

	apiKeyHeader = "x-goog-api-key"
)

// Request is anything the client can send: it knows its path relative to
// the base URL, its HTTP method, its JSON body and its own time limit.
type Request interface {
	RelativePath() string
	Method() string
	Body() ([]byte, error)
	// Timeout bounds a single attempt. Zero means no limit beyond ctx.
	Timeout() time.Duration
}

// Client performs authenticated JSON calls against the Gemini API.
// It is safe for concurrent use once constructed.
type Client struct {
	baseURL          string
	apiKey           string
	httpClient       *http.Client
	logger           *slog.Logger
	middlewares      []Middleware
	retry            RetryConfig
	maxResponseBytes int64

	send        SendFunc
	sendBackoff SendFunc
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides [DefaultBaseURL]. A trailing slash is dropped.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithAPIKey sets the key sent in the x-goog-api-key header.
func WithAPIKey(apiKey string) Option {
	return func(c *Client) {
		c.apiKey = apiKey
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithLogger sets the logger used for transport-level warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMiddleware appends middlewares to the send chain. The first one given
// is the outermost.
func WithMiddleware(middlewares ...Middleware) Option {
	return func(c *Client) {
		c.middlewares = append(c.middlewares, middlewares...)
	}
}

// WithRetryConfig tunes the backoff used by [Client.SendWithBackoff].
func WithRetryConfig(config RetryConfig) Option {
	return func(c *Client) {
		c.retry = config
	}
}

// WithMaxResponseBytes caps how many reply bytes are read.
func WithMaxResponseBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxResponseBytes = n
		}
	}
}

// New creates a Client. Without options it targets [DefaultBaseURL] with no
// API key, uses http.DefaultClient and slog.Default().
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:          DefaultBaseURL,
		httpClient:       http.DefaultClient,
		logger:           slog.Default(),
		maxResponseBytes: DefaultMaxResponseBytes,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.send = chain(c.do, c.middlewares)
	// retry runs innermost, below every user middleware
	c.sendBackoff = chain(NewRetryMiddleware(c.retry)(c.do), c.middlewares)
	return c
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// HTTPClient returns the underlying http.Client, shared with helpers that
// fetch auxiliary resources such as images.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// Send performs one call through the middleware chain.
func (c *Client) Send(ctx context.Context, request Request) ([]byte, error) {
	return c.send(ctx, request)
}

// SendWithBackoff is Send with retries on retryable failures, as configured
// by [WithRetryConfig].
func (c *Client) SendWithBackoff(ctx context.Context, request Request) ([]byte, error) {
	return c.sendBackoff(ctx, request)
}

// do is the innermost SendFunc: a single HTTP round trip.
func (c *Client) do(ctx context.Context, request Request) ([]byte, error) {
	payload, err := request.Body()
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}

	if timeout := request.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	url := c.baseURL + request.RelativePath()
	httpReq, err := http.NewRequestWithContext(ctx, request.Method(), url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("error sending %s %s: %w", request.Method(), request.RelativePath(), err)
	}
	defer utils.CloseWithLog(resp.Body)

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.logger.WarnContext(ctx, "gemini api returned non-2xx status",
			slog.Int("status", resp.StatusCode),
			slog.String("path", request.RelativePath()),
		)
		return nil, NewStatusError(resp.StatusCode, body)
	}

	return body, nil
}
