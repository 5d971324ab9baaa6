package transport

import (
	"context"
	"time"
)

// NewTimeoutMiddleware bounds every call that passes through it, retries
// included when it is placed outside the retry middleware. A shorter
// deadline already on the context wins.
func NewTimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next SendFunc) SendFunc {
		return func(ctx context.Context, request Request) ([]byte, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			return next(ctx, request)
		}
	}
}
