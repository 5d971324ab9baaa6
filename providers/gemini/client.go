package gemini

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/leofalp/gemkit/core/transport"
)

// Sender delivers a request and returns the raw reply body.
// *transport.Client implements it.
type Sender interface {
	Send(ctx context.Context, request transport.Request) ([]byte, error)
	SendWithBackoff(ctx context.Context, request transport.Request) ([]byte, error)
}

// Client is the entry point of the package. It is safe for concurrent use;
// every request and run it starts owns its own state.
type Client struct {
	sender     Sender
	httpClient *http.Client
	logger     *slog.Logger
}

type clientOptions struct {
	apiKey      string
	baseURL     string
	httpClient  *http.Client
	logger      *slog.Logger
	retry       transport.RetryConfig
	middlewares []transport.Middleware
	sender      Sender
}

// Option configures a Client.
type Option func(*clientOptions)

// WithAPIKey sets the API key.
func WithAPIKey(apiKey string) Option {
	return func(o *clientOptions) { o.apiKey = apiKey }
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(baseURL string) Option {
	return func(o *clientOptions) { o.baseURL = baseURL }
}

// WithHTTPClient sets the http.Client used for API calls and image fetches.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = httpClient }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *clientOptions) { o.logger = logger }
}

// WithRetryConfig tunes the backoff of ExecuteWithBackoff.
func WithRetryConfig(config transport.RetryConfig) Option {
	return func(o *clientOptions) { o.retry = config }
}

// WithMiddleware adds transport middlewares, outermost first.
func WithMiddleware(middlewares ...transport.Middleware) Option {
	return func(o *clientOptions) { o.middlewares = append(o.middlewares, middlewares...) }
}

// WithSender replaces the transport entirely. API key, base URL, retry and
// middleware options are ignored when a sender is given.
func WithSender(sender Sender) Option {
	return func(o *clientOptions) { o.sender = sender }
}

// NewClient creates a Client.
func NewClient(opts ...Option) *Client {
	o := clientOptions{
		httpClient: http.DefaultClient,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = http.DefaultClient
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	sender := o.sender
	if sender == nil {
		transportOpts := []transport.Option{
			transport.WithAPIKey(o.apiKey),
			transport.WithHTTPClient(o.httpClient),
			transport.WithLogger(o.logger),
			transport.WithRetryConfig(o.retry),
			transport.WithMiddleware(o.middlewares...),
		}
		if o.baseURL != "" {
			transportOpts = append(transportOpts, transport.WithBaseURL(o.baseURL))
		}
		sender = transport.New(transportOpts...)
	}

	return &Client{
		sender:     sender,
		httpClient: o.httpClient,
		logger:     o.logger,
	}
}

// NewRequest starts a request bound to this client, so it can be run with
// Execute and can fetch images with the client's http.Client.
func (c *Client) NewRequest() *RequestBuilder {
	b := NewRequestBuilder()
	b.client = c
	return b
}

// CallHandler returns the orchestration loop bound to this client.
func (c *Client) CallHandler() *CallHandler {
	return &CallHandler{client: c, logger: c.logger}
}

// Send performs a single generateContent call without resolving function
// calls.
func (c *Client) Send(ctx context.Context, req *Request) (*Response, error) {
	return c.send(ctx, req, false)
}

// SendWithBackoff is Send with transport retries.
func (c *Client) SendWithBackoff(ctx context.Context, req *Request) (*Response, error) {
	return c.send(ctx, req, true)
}

func (c *Client) send(ctx context.Context, req *Request, useBackoff bool) (*Response, error) {
	if req == nil {
		return nil, configErrorf("nil request")
	}

	var (
		raw []byte
		err error
	)
	if useBackoff {
		raw, err = c.sender.SendWithBackoff(ctx, req)
	} else {
		raw, err = c.sender.Send(ctx, req)
	}
	if err == nil {
		var resp *Response
		if resp, err = NewResponse(raw, req); err == nil {
			if req.onSuccess != nil {
				req.onSuccess(resp)
			}
			return resp, nil
		}
	}

	if req.onError != nil {
		req.onError(req, err)
	}
	return nil, err
}
