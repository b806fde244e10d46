package service

import (
	"context"

	"github.com/google/uuid"

	"capypay/internal/model"
)

const notificationListLimit = 20

type NotificationService interface {
	Record(ctx context.Context, event model.NotificationEvent) error
	List(ctx context.Context, userID uuid.UUID) ([]model.Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
}

// Notifications persists and serves user notifications. Record is
// driven by the worker consuming bus events; end to end the path is
// best-effort.
type Notifications struct {
	store NotificationStore
}

func NewNotifications(store NotificationStore) *Notifications {
	return &Notifications{store: store}
}

func (n *Notifications) Record(ctx context.Context, event model.NotificationEvent) error {
	return n.store.Insert(ctx, &model.Notification{
		UserID:    event.UserID,
		Type:      event.Type,
		Message:   event.Message,
		RelatedID: event.RelatedID,
	})
}

func (n *Notifications) List(ctx context.Context, userID uuid.UUID) ([]model.Notification, error) {
	return n.store.ListByUser(ctx, userID, notificationListLimit)
}

func (n *Notifications) MarkRead(ctx context.Context, id uuid.UUID) error {
	return n.store.MarkRead(ctx, id)
}
