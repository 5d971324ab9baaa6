package utils

import (
	"io"
	"log/slog"
)

// CloseWithLog closes c and logs a warning if closing fails. It is meant for
// deferred calls on response bodies and files, where a close error must not
// override the primary error returned by the caller.
func CloseWithLog(c io.Closer) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		slog.Warn("failed to close resource", "error", err.Error())
	}
}
