package model

import (
	"time"

	"github.com/google/uuid"
)

// User holds the identity fields the notification domain needs for sender
// enrichment. Account management itself lives in the auth service.
type User struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Email      string    `gorm:"type:varchar(255);unique;not null" json:"email"`
	FullName   string    `gorm:"type:varchar(100);not null" json:"full_name"`
	ProfilePic string    `gorm:"type:text" json:"profile_pic,omitempty"`
	CreatedAt  time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}
