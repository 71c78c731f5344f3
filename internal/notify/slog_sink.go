package notify

import (
	"context"
	"log/slog"
)

// SlogSink logs the notification; it backs the in-app and channel targets
// until real transports are attached by the delivery layer.
type SlogSink struct{}

func (SlogSink) Deliver(ctx context.Context, event *Event) error {
	slog.InfoContext(ctx, "notification",
		"target", event.Target,
		"kind", event.Kind,
		"task_id", event.Task.ID,
		"actor", event.Actor.DisplayName,
		"message", event.Message,
	)
	return nil
}
