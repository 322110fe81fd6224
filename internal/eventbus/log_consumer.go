package eventbus

import (
	"context"
	"log/slog"

	"github.com/matthewbaird/backoffice/internal/event"
)

// LogConsumer logs all domain events for observability.
type LogConsumer struct {
	logger *slog.Logger
}

func NewLogConsumer(logger *slog.Logger) *LogConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogConsumer{logger: logger}
}

func (c *LogConsumer) HandleEvent(_ context.Context, evt event.DomainEvent) error {
	level := slog.LevelInfo
	if evt.Failed > 0 {
		level = slog.LevelWarn
	}
	c.logger.Log(context.Background(), level, evt.Summary,
		slog.String("event_type", evt.EventType),
		slog.String("tenant", evt.TenantID.String()),
		slog.String("category", evt.Category),
		slog.Int("saved", evt.Saved),
		slog.Int("failed", evt.Failed))
	return nil
}
