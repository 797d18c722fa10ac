package dto

import (
	"chat-notify-be/internal/model"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate runs struct-tag validation on a request DTO.
func Validate(s interface{}) error {
	return validate.Struct(s)
}

type ListNotificationsResponse struct {
	Data        []model.Notification `json:"data"`
	UnreadCount int64                `json:"unread_count"`
	Page        int                  `json:"page"`
	TotalPages  int                  `json:"total_pages"`
	Total       int64                `json:"total"`
}

// TriggerEventRequest publishes a domain event onto the bus to exercise the
// notification fan-out path end to end.
type TriggerEventRequest struct {
	Type    string                 `json:"type" validate:"required,oneof=MESSAGE_SENT FRIEND_REQUEST SYSTEM_ANNOUNCEMENT"`
	Payload map[string]interface{} `json:"payload"`
}
