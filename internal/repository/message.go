package repository

import (
	"context"

	"commune/internal/cache"
	"commune/internal/models"

	"gorm.io/gorm"
)

// MessageRepository defines the interface for message data operations
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	GetByID(ctx context.Context, id uint) (*models.Message, error)
	ListByChat(ctx context.Context, chatID uint, limit, offset int) ([]*models.Message, error)
	SearchByChat(ctx context.Context, chatID uint, query string, limit, offset int) ([]*models.Message, error)
	Update(ctx context.Context, message *models.Message) error
	Delete(ctx context.Context, id uint) error
	ClearByChat(ctx context.Context, chatID uint) (int64, error)
}

// messageRepository implements MessageRepository
type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, message *models.Message) error {
	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		return err
	}
	cache.Invalidate(ctx, cache.ChatHistoryKey(message.ChatID))
	return nil
}

func (r *messageRepository) GetByID(ctx context.Context, id uint) (*models.Message, error) {
	var message models.Message
	err := r.db.WithContext(ctx).
		Preload("User").
		First(&message, id).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *messageRepository) ListByChat(ctx context.Context, chatID uint, limit, offset int) ([]*models.Message, error) {
	var messages []*models.Message
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("chat_id = ?", chatID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&messages).Error
	return messages, err
}

func (r *messageRepository) SearchByChat(ctx context.Context, chatID uint, query string, limit, offset int) ([]*models.Message, error) {
	var messages []*models.Message
	like := "%" + query + "%"
	// LOWER/LIKE instead of ILIKE so the query also runs on sqlite in tests.
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("chat_id = ? AND LOWER(content) LIKE LOWER(?)", chatID, like).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&messages).Error
	return messages, err
}

func (r *messageRepository) Update(ctx context.Context, message *models.Message) error {
	if err := r.db.WithContext(ctx).Save(message).Error; err != nil {
		return err
	}
	cache.Invalidate(ctx, cache.ChatHistoryKey(message.ChatID))
	return nil
}

func (r *messageRepository) Delete(ctx context.Context, id uint) error {
	var message models.Message
	if err := r.db.WithContext(ctx).First(&message, id).Error; err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Delete(&message).Error; err != nil {
		return err
	}
	cache.Invalidate(ctx, cache.ChatHistoryKey(message.ChatID))
	return nil
}

// ClearByChat deletes every message in the chat and reports how many
// rows were removed.
func (r *messageRepository) ClearByChat(ctx context.Context, chatID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Delete(&models.Message{})
	if res.Error != nil {
		return 0, res.Error
	}
	cache.Invalidate(ctx, cache.ChatHistoryKey(chatID))
	return res.RowsAffected, nil
}
