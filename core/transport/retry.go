package transport

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// RetryConfig holds the tuning parameters for the retry middleware. Zero
// values are replaced with the defaults documented on each field.
type RetryConfig struct {
	// MaxRetries is the number of attempts after the first failure.
	// Default: 3.
	MaxRetries int

	// InitialBackoff is the wait before the first retry. Default: 1s.
	InitialBackoff time.Duration

	// MaxBackoff caps the computed backoff. Default: 30s.
	MaxBackoff time.Duration

	// BackoffFactor is the exponential growth multiplier. Default: 2.0.
	BackoffFactor float64

	// JitterFraction adds up to JitterFraction*backoff of random noise.
	// Default: 0.1.
	JitterFraction float64

	// RetryableFunc decides whether an error triggers a retry.
	// Default: [IsRetryable] (HTTP 429, 500 and 503).
	RetryableFunc func(error) bool
}

// withDefaults returns a copy of config with zero fields filled in.
func (config RetryConfig) withDefaults() RetryConfig {
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	if config.InitialBackoff == 0 {
		config.InitialBackoff = time.Second
	}
	if config.MaxBackoff == 0 {
		config.MaxBackoff = 30 * time.Second
	}
	if config.BackoffFactor == 0 {
		config.BackoffFactor = 2.0
	}
	if config.JitterFraction == 0 {
		config.JitterFraction = 0.1
	}
	if config.RetryableFunc == nil {
		config.RetryableFunc = IsRetryable
	}
	return config
}

// computeBackoff returns the wait before retry number attempt (0-indexed):
// min(InitialBackoff * BackoffFactor^attempt, MaxBackoff) + jitter.
func computeBackoff(config RetryConfig, attempt int) time.Duration {
	base := float64(config.InitialBackoff) * math.Pow(config.BackoffFactor, float64(attempt))
	if base > float64(config.MaxBackoff) {
		base = float64(config.MaxBackoff)
	}

	jitter := base * config.JitterFraction * rand.Float64() //nolint:gosec // non-cryptographic jitter
	return time.Duration(base + jitter)
}

// NewRetryMiddleware returns a Middleware that resends failed requests with
// exponential backoff. Non-retryable errors are returned immediately. When
// every attempt fails the error wraps both [ErrRetryExhausted] and the last
// underlying error.
func NewRetryMiddleware(config RetryConfig) Middleware {
	config = config.withDefaults()

	return func(next SendFunc) SendFunc {
		return func(ctx context.Context, request Request) ([]byte, error) {
			var lastErr error

			for attempt := 0; attempt <= config.MaxRetries; attempt++ {
				if attempt > 0 {
					timer := time.NewTimer(computeBackoff(config, attempt-1))
					select {
					case <-ctx.Done():
						timer.Stop()
						return nil, ctx.Err()
					case <-timer.C:
					}
				}

				body, err := next(ctx, request)
				if err == nil {
					return body, nil
				}

				lastErr = err
				if !config.RetryableFunc(err) {
					return nil, err
				}
			}

			return nil, fmt.Errorf("%w after %d retries: %w", ErrRetryExhausted, config.MaxRetries, lastErr)
		}
	}
}
