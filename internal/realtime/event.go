package realtime

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Server -> client event names.
const (
	EventOnlineUsers       = "getOnlineUsers"
	EventNewNotification   = "newNotification"
	EventUnreadCount       = "unreadCountUpdate"
	EventPreferencesEcho   = "notificationPreferencesUpdated"
	EventMarkedAsReadEcho  = "notificationMarkedAsRead"
	EventUserTyping        = "userTyping"
	EventUserStoppedTyping = "userStoppedTyping"
)

// Client -> server event names.
const (
	EventUpdatePreferences = "updateNotificationPreferences"
	EventMarkAsRead        = "markNotificationAsRead"
	EventTyping            = "typing"
	EventStopTyping        = "stopTyping"
)

// Envelope is the wire format in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// EncodeEvent wraps a payload in an envelope ready for a client Send queue.
func EncodeEvent(event string, payload interface{}) ([]byte, error) {
	var data json.RawMessage
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		data = raw
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}

// Inbound payloads.

type TypingPayload struct {
	ReceiverID uuid.UUID `json:"receiverId"`
	SenderName string    `json:"senderName"`
}

type StopTypingPayload struct {
	ReceiverID uuid.UUID `json:"receiverId"`
}

type MarkAsReadPayload struct {
	NotificationID uuid.UUID `json:"notificationId"`
}

// Outbound payloads.

type UserTypingPayload struct {
	SenderID   uuid.UUID `json:"senderId"`
	SenderName string    `json:"senderName"`
}

type UserStoppedTypingPayload struct {
	SenderID uuid.UUID `json:"senderId"`
}
