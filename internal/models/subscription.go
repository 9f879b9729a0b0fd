package models

import (
	"time"
)

// Subscription is the directed follow edge between two users:
// SubscriberID follows SubscribedID. Self-loops are rejected by
// UserService before the row is ever written.
type Subscription struct {
	SubscriberID uint      `gorm:"primaryKey" json:"subscriber_id"`
	SubscribedID uint      `gorm:"primaryKey" json:"subscribed_id"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for GORM
func (Subscription) TableName() string {
	return "subscriptions"
}
