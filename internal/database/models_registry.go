package database

import "commune/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Post{},
		&models.PostLike{},
		&models.PostDislike{},
		&models.Subscription{},
		&models.Chat{},
		&models.ChatMember{},
		&models.Message{},
		&models.Event{},
	}
}
