package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRequest struct {
	path    string
	body    []byte
	bodyErr error
	timeout time.Duration
}

func (r fakeRequest) RelativePath() string   { return r.path }
func (r fakeRequest) Method() string         { return http.MethodPost }
func (r fakeRequest) Body() ([]byte, error)  { return r.body, r.bodyErr }
func (r fakeRequest) Timeout() time.Duration { return r.timeout }

func newRequest() fakeRequest {
	return fakeRequest{
		path: "/v1beta/models/gemini-2.0-flash-lite:generateContent",
		body: []byte(`{"contents":[]}`),
	}
}

func TestClient_Send(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/gemini-2.0-flash-lite:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.JSONEq(t, `{"contents":[]}`, string(body))

		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	c := New(WithBaseURL(server.URL+"/"), WithAPIKey("test-key"))
	assert.Equal(t, server.URL, c.BaseURL())

	body, err := c.Send(context.Background(), newRequest())
	require.NoError(t, err)
	assert.JSONEq(t, `{"candidates":[]}`, string(body))
}

func TestClient_Send_OmitsEmptyAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present := r.Header["X-Goog-Api-Key"]
		assert.False(t, present)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	_, err := New(WithBaseURL(server.URL)).Send(context.Background(), newRequest())
	require.NoError(t, err)
}

func TestClient_Send_BodyError(t *testing.T) {
	req := newRequest()
	req.bodyErr = errors.New("boom")

	_, err := New(WithBaseURL("http://127.0.0.1:0")).Send(context.Background(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, req.bodyErr)
}

func TestClient_Send_StatusMapping(t *testing.T) {
	tests := []struct {
		status    int
		sentinel  error
		retryable bool
	}{
		{http.StatusBadRequest, ErrRequestRejected, false},
		{http.StatusForbidden, ErrPermissionDenied, false},
		{http.StatusNotFound, ErrNotFound, false},
		{http.StatusTooManyRequests, ErrRateLimited, true},
		{http.StatusInternalServerError, ErrServerError, true},
		{http.StatusServiceUnavailable, ErrServerUnavailable, true},
		{http.StatusGatewayTimeout, ErrServerTimeout, false},
		{http.StatusTeapot, ErrUnexpectedStatus, false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope"}}`))
			}))
			defer server.Close()

			_, err := New(WithBaseURL(server.URL)).Send(context.Background(), newRequest())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)

			var statusErr *StatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, tt.status, statusErr.StatusCode)
			assert.Equal(t, tt.retryable, statusErr.Retryable)
			assert.Equal(t, tt.retryable, IsRetryable(err))
			assert.Contains(t, statusErr.Error(), "nope")
		})
	}
}

func TestClient_Send_RequestTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer server.Close()
	defer close(release)

	req := newRequest()
	req.timeout = 50 * time.Millisecond

	start := time.Now()
	_, err := New(WithBaseURL(server.URL)).Send(context.Background(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestClient_Send_MaxResponseBytes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(bytes.Repeat([]byte("a"), 64))
	}))
	defer server.Close()

	body, err := New(WithBaseURL(server.URL), WithMaxResponseBytes(16)).Send(context.Background(), newRequest())
	require.NoError(t, err)
	assert.Len(t, body, 16)
}

func TestClient_SendWithBackoff(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	c := New(
		WithBaseURL(server.URL),
		WithRetryConfig(RetryConfig{InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}),
	)

	body, err := c.SendWithBackoff(context.Background(), newRequest())
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_Send_DoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := New(WithBaseURL(server.URL)).Send(context.Background(), newRequest())
	assert.ErrorIs(t, err, ErrServerUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_MiddlewareOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	var order []string
	record := func(name string) Middleware {
		return func(next SendFunc) SendFunc {
			return func(ctx context.Context, request Request) ([]byte, error) {
				order = append(order, name+":in")
				body, err := next(ctx, request)
				order = append(order, name+":out")
				return body, err
			}
		}
	}

	c := New(WithBaseURL(server.URL), WithMiddleware(record("outer"), nil, record("inner")))
	_, err := c.Send(context.Background(), newRequest())
	require.NoError(t, err)
	assert.Equal(t, []string{"outer:in", "inner:in", "inner:out", "outer:out"}, order)
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ok := func(context.Context, Request) ([]byte, error) { return []byte(`{"candidates":[]}`), nil }
	_, err := NewLoggingMiddleware(logger, LogLevelVerbose)(ok)(context.Background(), newRequest())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "gemini send")
	assert.Contains(t, out, "gemini send completed")
	assert.Contains(t, out, "request_bytes=")
	assert.Contains(t, out, "response_body=")

	buf.Reset()
	fail := func(context.Context, Request) ([]byte, error) {
		return nil, NewStatusError(http.StatusTooManyRequests, nil)
	}
	_, err = NewLoggingMiddleware(logger, LogLevelStandard)(fail)(context.Background(), newRequest())
	require.ErrorIs(t, err, ErrRateLimited)

	out = buf.String()
	assert.Contains(t, out, "gemini send failed")
	assert.Contains(t, out, "status=429")
	assert.NotContains(t, out, "request_body=")
}

func TestTimeoutMiddleware(t *testing.T) {
	slow := func(ctx context.Context, _ Request) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	_, err := NewTimeoutMiddleware(10*time.Millisecond)(slow)(context.Background(), newRequest())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
