package models

import (
	"time"
)

// Message represents a chat message.
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"message_id"`
	ChatID    uint      `gorm:"not null;index" json:"chat_id"`
	Chat      *Chat     `gorm:"foreignKey:ChatID;constraint:OnDelete:CASCADE" json:"-"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
