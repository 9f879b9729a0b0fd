package models

import (
	"time"
)

// EventType classifies a membership-affecting action in a chat.
type EventType string

const (
	// EventTypeCreated is logged when a chat is created.
	EventTypeCreated EventType = "created"
	// EventTypeJoined is logged when a user joins a chat on their own.
	EventTypeJoined EventType = "joined"
	// EventTypeLeaved is logged when a user leaves a chat.
	EventTypeLeaved EventType = "leaved"
	// EventTypeAdded is logged when the chat owner adds a member.
	EventTypeAdded EventType = "added"
	// EventTypeRemoved is logged when the chat owner removes a member.
	EventTypeRemoved EventType = "removed"
)

// Event is an immutable log entry recording a membership-affecting
// action in a chat. Events are appended by ChatService after the
// membership mutation itself and are never updated or rolled back.
type Event struct {
	ID        uint      `gorm:"primaryKey" json:"event_id"`
	ChatID    uint      `gorm:"not null;index" json:"chat_id"`
	Chat      *Chat     `gorm:"foreignKey:ChatID;constraint:OnDelete:CASCADE" json:"-"`
	EventType EventType `gorm:"type:varchar(16);not null" json:"event_type"`
	// UserID is the acting user; AlteredUserID is the target of an
	// add/remove and is null for create/join/leave.
	UserID        uint      `gorm:"not null;index" json:"user_id"`
	User          *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	AlteredUserID *uint     `json:"altered_user_id,omitempty"`
	AlteredUser   *User     `gorm:"foreignKey:AlteredUserID;constraint:OnDelete:CASCADE" json:"altered_user,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
