package queue

import (
	"context"
	"log/slog"
)

// LogTransport writes alert messages to the process log instead of a real
// delivery channel. Local development and tests only.
type LogTransport struct {
	logger *slog.Logger
}

// NewLogTransport creates the log-backed transport.
func NewLogTransport(logger *slog.Logger) *LogTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogTransport{logger: logger}
}

// Send logs the alert and always succeeds.
func (t *LogTransport) Send(ctx context.Context, contact string, message string) error {
	t.logger.InfoContext(ctx, "alert (log transport)",
		"contact", contact,
		"message", message,
	)
	return nil
}
