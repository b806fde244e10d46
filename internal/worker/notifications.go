package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"capypay/internal/model"
	"capypay/internal/service"
)

// NotificationWorker listens on the notifications topic and persists
// events to the notifications table. The whole path is best-effort:
// a failure here never affects the transfer that produced the event.
type NotificationWorker struct {
	svc      service.NotificationService
	natsConn *nats.Conn
}

func NewNotificationWorker(svc service.NotificationService, nc *nats.Conn) *NotificationWorker {
	return &NotificationWorker{svc: svc, natsConn: nc}
}

// Run subscribes to the notifications topic and blocks until ctx is
// cancelled. QueueSubscribe keeps each event at exactly one worker
// when several instances run.
func (w *NotificationWorker) Run(ctx context.Context) error {
	sub, err := w.natsConn.QueueSubscribe(service.TopicNotifications, "notification_workers", func(m *nats.Msg) {
		var event model.NotificationEvent
		if err := json.Unmarshal(m.Data, &event); err != nil {
			slog.Error("worker: failed to unmarshal notification event", "error", err)
			return
		}

		if err := w.svc.Record(ctx, event); err != nil {
			slog.Error("worker: failed to persist notification",
				"user_id", event.UserID,
				"type", event.Type,
				"error", err,
			)
			return
		}

		slog.Info("worker: notification stored",
			"user_id", event.UserID,
			"type", event.Type,
		)
	})

	if err != nil {
		return fmt.Errorf("worker: failed to subscribe to NATS: %w", err)
	}

	slog.Info("Notification worker is running")

	<-ctx.Done()

	slog.Info("Worker received shutdown signal, draining subscription...")
	return sub.Drain()
}

// Start implements the infrastructure.Server interface.
func (w *NotificationWorker) Start(ctx context.Context) error {
	return w.Run(ctx)
}

// Stop implements the infrastructure.Server interface (no-op, shutdown is via ctx).
func (w *NotificationWorker) Stop(ctx context.Context) error {
	return nil
}
