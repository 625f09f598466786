// Package sender holds delivery backends for notifications. Real email and
// SMS providers plug in behind the service's Sender interface; the log
// sender is the development default.
package sender

import (
	"context"
	"log/slog"

	"sportsfest/internal/notification/models"
	"sportsfest/pkg/email"
)

// Log writes each notification to the logger instead of delivering it. The
// body is not logged: login codes travel in bodies.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Log{logger: logger}
}

func (l *Log) Send(ctx context.Context, n *models.Notification) error {
	l.logger.InfoContext(ctx, "notification delivered",
		slog.String("notification_id", n.ID.String()),
		slog.String("kind", n.Kind.String()),
		slog.String("recipient", email.Mask(n.Recipient)),
		slog.String("subject", n.Subject),
	)
	return nil
}
