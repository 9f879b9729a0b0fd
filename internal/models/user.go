// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// User represents a registered account in the Commune application.
type User struct {
	ID       uint   `gorm:"primaryKey" json:"user_id"`
	Username string `gorm:"unique;not null" json:"username"`
	Password string `gorm:"not null" json:"-"`
	IsAdmin  bool   `gorm:"default:false" json:"is_admin"`
	// SubscribersCount is a denormalized counter kept in sync with the
	// subscriptions table by UserService; never recomputed on read.
	SubscribersCount int       `gorm:"not null;default:0" json:"subscribers_count"`
	HasAvatar        bool      `gorm:"default:false" json:"has_avatar"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	Posts []Post `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"posts,omitempty"`
}
