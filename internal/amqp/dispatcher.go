package amqp

import (
	"context"
	"log/slog"

	"worklog/internal/worklog"
)

// Dispatcher delivers rejection notifications through the broker. Publish
// failures are logged and swallowed: notifications are best effort and never
// influence a batch result.
type Dispatcher struct {
	client *Client
}

var _ worklog.NotificationDispatcher = (*Dispatcher)(nil)

func NewDispatcher(client *Client) *Dispatcher {
	return &Dispatcher{client: client}
}

func (d *Dispatcher) Notify(ctx context.Context, userID, message string) {
	if err := d.client.PublishNotification(ctx, userID, message); err != nil {
		slog.ErrorContext(ctx, "Failed to publish notification",
			"user", userID,
			"error", err)
	}
}

// LogDispatcher writes notifications to the log. It is the fallback when no
// broker is configured.
type LogDispatcher struct{}

var _ worklog.NotificationDispatcher = LogDispatcher{}

func (LogDispatcher) Notify(ctx context.Context, userID, message string) {
	slog.InfoContext(ctx, "Notification", "user", userID, "message", message)
}
