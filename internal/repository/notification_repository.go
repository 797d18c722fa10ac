package repository

import (
	"context"
	"errors"

	"chat-notify-be/internal/model"

	"github.com/google/uuid"
)

// ErrNotFound means the targeted notification does not exist or is not owned
// by the caller. Surfaced to the HTTP layer as a 404.
var ErrNotFound = errors.New("notification not found")

type NotificationRepository interface {
	Create(ctx context.Context, notification *model.Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Notification, error)
	ListByRecipient(ctx context.Context, recipientID uuid.UUID, limit, offset int) ([]model.Notification, int64, error)
	UnreadCount(ctx context.Context, recipientID uuid.UUID) (int64, error)

	// Mutations are keyed by (recipient, id) so a caller can never touch
	// another user's notifications.
	MarkAsRead(ctx context.Context, recipientID, notificationID uuid.UUID) error
	MarkAllAsRead(ctx context.Context, recipientID uuid.UUID) (int64, error)
	Delete(ctx context.Context, recipientID, notificationID uuid.UUID) (*model.Notification, error)

	GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}
