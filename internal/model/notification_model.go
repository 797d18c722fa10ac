package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Notification types. Unknown values are rejected at the DTO layer.
const (
	NotificationTypeMessage       = "message"
	NotificationTypeFriendRequest = "friend_request"
	NotificationTypeSystem        = "system"
)

// Notification stores the durable notification history per recipient.
type Notification struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	RecipientID uuid.UUID      `gorm:"type:uuid;not null;index:idx_notifications_recipient_created,priority:1;index:idx_notifications_recipient_unread,priority:1" json:"recipient_id"`
	SenderID    uuid.UUID      `gorm:"type:uuid;not null" json:"sender_id"`
	Sender      *User          `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Type        string         `gorm:"type:varchar(20);not null;default:'message'" json:"type"`
	Title       string         `gorm:"type:varchar(200);not null" json:"title"`
	Message     string         `gorm:"type:text;not null" json:"message"`
	IsRead      bool           `gorm:"default:false;index:idx_notifications_recipient_unread,priority:2" json:"is_read"`
	ReadAt      *time.Time     `json:"read_at,omitempty"`
	MessageID   *uuid.UUID     `gorm:"type:uuid" json:"message_id,omitempty"`
	Data        datatypes.JSON `gorm:"type:jsonb" json:"data,omitempty"`
	CreatedAt   time.Time      `gorm:"default:CURRENT_TIMESTAMP;index:idx_notifications_recipient_created,priority:2" json:"created_at"`
}
