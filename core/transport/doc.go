// Package transport is the HTTP layer under the Gemini client. A [Client]
// POSTs a [Request] body to the base URL plus the request's relative path,
// authenticates with the x-goog-api-key header and maps non-2xx replies to
// a [*StatusError] that unwraps to a sentinel such as [ErrRateLimited].
//
// # Middleware
//
// Calls travel through a chain of [Middleware] values, outermost first:
//
//	c := transport.New(
//	    transport.WithAPIKey(key),
//	    transport.WithMiddleware(
//	        transport.NewTimeoutMiddleware(2*time.Minute),
//	        transport.NewLoggingMiddleware(slog.Default(), transport.LogLevelStandard),
//	    ),
//	)
//
// [Client.SendWithBackoff] additionally wraps the round trip in
// [NewRetryMiddleware], retrying HTTP 429, 500 and 503 with exponential
// backoff and jitter.
package transport
