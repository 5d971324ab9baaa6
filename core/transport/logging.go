package transport

import (
	"context"
	"log/slog"
	"time"

	"github.com/leofalp/gemkit/internal/utils"
)

// LogLevel controls how much detail the logging middleware emits per call.
type LogLevel int

const (
	// LogLevelMinimal logs the path and duration.
	LogLevelMinimal LogLevel = iota

	// LogLevelStandard adds request and reply sizes and the HTTP status of
	// failures.
	LogLevelStandard

	// LogLevelVerbose adds the request and reply bodies, each truncated.
	//
	// WARNING: verbose logs contain prompts, tool results and model output.
	// Keep it for local debugging.
	LogLevelVerbose
)

// NewLoggingMiddleware returns a Middleware that emits slog entries before
// and after every call. A nil logger falls back to slog.Default().
func NewLoggingMiddleware(logger *slog.Logger, level LogLevel) Middleware {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next SendFunc) SendFunc {
		return func(ctx context.Context, request Request) ([]byte, error) {
			logger.InfoContext(ctx, "gemini send", buildRequestAttrs(request, level)...)

			start := time.Now()
			body, err := next(ctx, request)
			elapsed := time.Since(start)

			if err != nil {
				attrs := []any{
					slog.String("path", request.RelativePath()),
					slog.Duration("duration", elapsed),
					slog.String("error", err.Error()),
				}
				if statusErr, ok := asStatusError(err); ok && level >= LogLevelStandard {
					attrs = append(attrs, slog.Int("status", statusErr.StatusCode))
				}
				logger.ErrorContext(ctx, "gemini send failed", attrs...)
				return nil, err
			}

			attrs := []any{
				slog.String("path", request.RelativePath()),
				slog.Duration("duration", elapsed),
			}
			if level >= LogLevelStandard {
				attrs = append(attrs, slog.Int("response_bytes", len(body)))
			}
			if level >= LogLevelVerbose {
				attrs = append(attrs, slog.String("response_body", utils.TruncateStringDefault(string(body))))
			}
			logger.InfoContext(ctx, "gemini send completed", attrs...)

			return body, nil
		}
	}
}

func buildRequestAttrs(request Request, level LogLevel) []any {
	attrs := []any{
		slog.String("method", request.Method()),
		slog.String("path", request.RelativePath()),
	}

	if level < LogLevelStandard {
		return attrs
	}

	body, err := request.Body()
	if err != nil {
		// the send itself reports the encoding failure
		return attrs
	}
	attrs = append(attrs, slog.Int("request_bytes", len(body)))

	if level >= LogLevelVerbose {
		attrs = append(attrs, slog.String("request_body", utils.TruncateStringDefault(string(body))))
	}
	return attrs
}
