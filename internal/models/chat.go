package models

import (
	"time"
)

// Chat represents a group chat room.
type Chat struct {
	ID        uint      `gorm:"primaryKey" json:"chat_id"`
	Title     string    `gorm:"not null" json:"title"`
	IsPrivate bool      `gorm:"default:false" json:"is_private"`
	OwnerID   uint      `gorm:"not null;index" json:"owner_id"`
	Owner     *User     `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"owner,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Members  []User    `gorm:"many2many:chat_members;constraint:OnDelete:CASCADE" json:"members,omitempty"`
	Messages []Message `gorm:"foreignKey:ChatID;constraint:OnDelete:CASCADE" json:"messages,omitempty"`
	Events   []Event   `gorm:"foreignKey:ChatID;constraint:OnDelete:CASCADE" json:"events,omitempty"`
}

// ChatMember is the membership edge between a chat and a user.
// This is the join table GORM uses for the many2many relationship;
// existence of a row is the whole payload.
type ChatMember struct {
	ChatID   uint      `gorm:"primaryKey" json:"chat_id"`
	UserID   uint      `gorm:"primaryKey" json:"user_id"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

// TableName specifies the table name for GORM
func (ChatMember) TableName() string {
	return "chat_members"
}
