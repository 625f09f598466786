package publisher

import (
	"context"
	"log/slog"

	"sportsfest/internal/outbox/models"
)

// Log writes events to the logger instead of a broker. Used when no broker
// is configured so the outbox still drains.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Log{logger: logger}
}

func (p *Log) Publish(ctx context.Context, events []*models.Event) error {
	for _, event := range events {
		p.logger.InfoContext(ctx, "outbox event published",
			"event_id", event.ID,
			"event_type", event.EventType,
			"aggregate_id", event.AggregateID,
		)
	}
	return nil
}
