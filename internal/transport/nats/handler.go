package nats

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"capypay/internal/service"
)

// Topic the kitchen system publishes on when an order is ready.
const TopicOrderComplete = "orders.complete"

type orderCompleteCommand struct {
	OrderID uuid.UUID `json:"order_id"`
}

// Handler subscribes to kitchen command topics and delegates to the
// order service.
type Handler struct {
	orders service.OrderService
	nc     *nats.Conn
	subs   []*nats.Subscription
}

func NewHandler(orders service.OrderService, nc *nats.Conn) *Handler {
	return &Handler{orders: orders, nc: nc}
}

// Start subscribes to command topics and blocks until ctx is cancelled.
// QueueSubscribe: with several API instances running, each command is
// handled by exactly one of them.
func (h *Handler) Start(ctx context.Context) error {
	sub, err := h.nc.QueueSubscribe(TopicOrderComplete, "kitchen_group", func(m *nats.Msg) {
		var cmd orderCompleteCommand
		if err := json.Unmarshal(m.Data, &cmd); err != nil {
			slog.Error("nats: failed to unmarshal order-complete command", "error", err)
			return
		}
		if err := h.orders.CompleteOrder(ctx, cmd.OrderID); err != nil {
			slog.Error("nats: complete order failed", "order_id", cmd.OrderID, "error", err)
			return
		}
		slog.Info("nats: order completed", "order_id", cmd.OrderID)
	})
	if err != nil {
		return err
	}
	h.subs = append(h.subs, sub)

	slog.Info("NATS kitchen command handler is running")

	<-ctx.Done()
	slog.Info("NATS kitchen command handler shutting down, draining subscriptions...")

	for _, s := range h.subs {
		_ = s.Drain()
	}
	return nil
}

func (h *Handler) Stop(ctx context.Context) error {
	for _, s := range h.subs {
		_ = s.Unsubscribe()
	}
	return nil
}
