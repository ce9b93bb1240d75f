package logbroker

import (
	"context"
	"log/slog"
)

// Producer writes relayed events to the log. Used when no broker is configured.
type Producer struct {
	Logger *slog.Logger
}

func (p Producer) Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "event published",
		"topic", topic,
		"key", key,
		"type", headers["ce-type"],
		"bytes", len(payload),
	)
	return nil
}
