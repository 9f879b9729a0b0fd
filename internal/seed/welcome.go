package seed

import (
	"errors"

	"commune/internal/models"

	"gorm.io/gorm"
)

// WelcomeChatTitle is the built-in public chat every deployment gets.
const WelcomeChatTitle = "general"

// EnsureWelcomeChat creates the built-in public chat if it does not
// exist. The chat is owned by the lowest-id admin; with no admin in the
// database yet the call is a no-op.
func EnsureWelcomeChat(db *gorm.DB) error {
	var existing models.Chat
	err := db.Where("title = ?", WelcomeChatTitle).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	var admin models.User
	if err := db.Where("is_admin = ?", true).Order("id").First(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		chat := &models.Chat{Title: WelcomeChatTitle, OwnerID: admin.ID}
		if err := tx.Create(chat).Error; err != nil {
			return err
		}
		if err := tx.Create(&models.ChatMember{ChatID: chat.ID, UserID: admin.ID}).Error; err != nil {
			return err
		}
		event := &models.Event{
			ChatID:    chat.ID,
			UserID:    admin.ID,
			EventType: models.EventTypeCreated,
		}
		return tx.Create(event).Error
	})
}
