package models

import (
	"time"
)

// Post represents a user post in the Commune application.
type Post struct {
	ID      uint   `gorm:"primaryKey" json:"post_id"`
	Content string `gorm:"type:text;not null" json:"content"`
	UserID  uint   `gorm:"not null;index" json:"user_id"`
	User    *User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	// Likes and Dislikes are denormalized counters. The like/dislike edge
	// rows are the source of truth; every rating mutation updates the
	// matching counter in the same transaction.
	Likes     int       `gorm:"not null;default:0" json:"likes"`
	Dislikes  int       `gorm:"not null;default:0" json:"dislikes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PostRating is the cached (likes, dislikes) pair of a post.
type PostRating struct {
	PostID   uint `json:"post_id"`
	Likes    int  `json:"likes"`
	Dislikes int  `json:"dislikes"`
}
