package repository

import (
	"context"
	"time"

	"commune/internal/cache"
	"commune/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChatRepository defines the interface for chat data operations
type ChatRepository interface {
	Create(ctx context.Context, chat *models.Chat) error
	GetByID(ctx context.Context, id uint) (*models.Chat, error)
	List(ctx context.Context, orderBy string, desc bool, limit, offset int) ([]*models.Chat, error)
	ListForUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Chat, error)
	Search(ctx context.Context, userID uint, query string, limit, offset int) ([]*models.Chat, error)
	Update(ctx context.Context, chat *models.Chat) error
	Delete(ctx context.Context, id uint) error
	IsMember(ctx context.Context, chatID, userID uint) (bool, error)
	AddMember(ctx context.Context, chatID, userID uint) error
	RemoveMember(ctx context.Context, chatID, userID uint) error
	MemberCount(ctx context.Context, chatID uint) (int64, error)
	GetMembers(ctx context.Context, chatID uint) ([]*models.User, error)
	History(ctx context.Context, chatID uint, limit, offset int) ([]models.HistoryItem, error)
}

// chatRepository implements ChatRepository
type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository creates a new chat repository
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

// Create stores the chat and enrolls the owner as its first member in
// one transaction.
func (r *chatRepository) Create(ctx context.Context, chat *models.Chat) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(chat).Error; err != nil {
			return err
		}
		member := models.ChatMember{ChatID: chat.ID, UserID: chat.OwnerID}
		return tx.Create(&member).Error
	})
}

func (r *chatRepository) GetByID(ctx context.Context, id uint) (*models.Chat, error) {
	var chat models.Chat
	key := cache.ChatKey(id)
	err := cache.CacheAside(ctx, key, &chat, cache.ChatTTL, func() error {
		return r.db.WithContext(ctx).
			Preload("Owner").
			Preload("Members").
			First(&chat, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *chatRepository) List(ctx context.Context, orderBy string, desc bool, limit, offset int) ([]*models.Chat, error) {
	var chats []*models.Chat
	err := r.db.WithContext(ctx).
		Where("is_private = ?", false).
		Order(clause.OrderByColumn{Column: clause.Column{Name: orderBy}, Desc: desc}).
		Limit(limit).
		Offset(offset).
		Find(&chats).Error
	return chats, err
}

func (r *chatRepository) ListForUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Chat, error) {
	var chats []*models.Chat
	err := r.db.WithContext(ctx).
		Joins("JOIN chat_members ON chat_members.chat_id = chats.id").
		Where("chat_members.user_id = ?", userID).
		Order("chats.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&chats).Error
	return chats, err
}

// Search matches chat titles case-insensitively. Private chats only
// surface for their own members; public ones for everyone.
func (r *chatRepository) Search(ctx context.Context, userID uint, query string, limit, offset int) ([]*models.Chat, error) {
	var chats []*models.Chat
	like := "%" + query + "%"
	// LOWER/LIKE instead of ILIKE so the query also runs on sqlite in tests.
	err := r.db.WithContext(ctx).
		Where("(is_private = ? OR chats.id IN (SELECT chat_id FROM chat_members WHERE user_id = ?)) AND LOWER(title) LIKE LOWER(?)",
			false, userID, like).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&chats).Error
	return chats, err
}

func (r *chatRepository) Update(ctx context.Context, chat *models.Chat) error {
	// The chat may come from the cache, where association fields are not
	// authoritative. Only the chat row itself is written back.
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(chat).Error; err != nil {
		return err
	}
	cache.InvalidateChat(ctx, chat.ID)
	return nil
}

func (r *chatRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.Chat{}, id).Error; err != nil {
		return err
	}
	cache.InvalidateChat(ctx, id)
	return nil
}

func (r *chatRepository) IsMember(ctx context.Context, chatID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ChatMember{}).
		Where("chat_id = ? AND user_id = ?", chatID, userID).
		Count(&count).Error
	return count > 0, err
}

// AddMember enrolls the user. An existing membership yields ErrAlreadyMember.
func (r *chatRepository) AddMember(ctx context.Context, chatID, userID uint) error {
	member := models.ChatMember{ChatID: chatID, UserID: userID}
	if err := r.db.WithContext(ctx).Create(&member).Error; err != nil {
		if IsUniqueViolation(err) {
			return ErrAlreadyMember
		}
		return err
	}
	cache.InvalidateChat(ctx, chatID)
	return nil
}

// RemoveMember drops the membership row. A missing row yields
// gorm.ErrRecordNotFound.
func (r *chatRepository) RemoveMember(ctx context.Context, chatID, userID uint) error {
	res := r.db.WithContext(ctx).
		Where("chat_id = ? AND user_id = ?", chatID, userID).
		Delete(&models.ChatMember{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	cache.InvalidateChat(ctx, chatID)
	return nil
}

func (r *chatRepository) MemberCount(ctx context.Context, chatID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ChatMember{}).
		Where("chat_id = ?", chatID).
		Count(&count).Error
	return count, err
}

func (r *chatRepository) GetMembers(ctx context.Context, chatID uint) ([]*models.User, error) {
	var users []*models.User
	err := r.db.WithContext(ctx).
		Joins("JOIN chat_members ON chat_members.user_id = users.id").
		Where("chat_members.chat_id = ?", chatID).
		Order("chat_members.joined_at ASC").
		Find(&users).Error
	return users, err
}

// historyRow is the slim projection the merge query selects before the
// full rows are hydrated.
type historyRow struct {
	ID        uint
	Kind      int // 0 = event, 1 = message
	CreatedAt time.Time
}

// DefaultHistoryPageSize is the page size history readers get when they
// don't ask for one. Only this first page is cached.
const DefaultHistoryPageSize = 50

// History returns one page of the chat's merged message/event timeline.
// Both tables are projected to (id, created_at, kind), merged newest
// first with (created_at, kind, id) as the total order, paginated on the
// combined stream, then hydrated and returned oldest first.
func (r *chatRepository) History(ctx context.Context, chatID uint, limit, offset int) ([]models.HistoryItem, error) {
	// The hot path is opening a chat, which reads the default first
	// page. Deeper or resized pages vary by offset/limit and go
	// straight to the database.
	if offset == 0 && limit == DefaultHistoryPageSize {
		items := []models.HistoryItem{}
		err := cache.CacheAside(ctx, cache.ChatHistoryKey(chatID), &items, cache.ChatHistoryTTL, func() error {
			page, err := r.historyPage(ctx, chatID, limit, offset)
			if err != nil {
				return err
			}
			items = page
			return nil
		})
		if err != nil {
			return nil, err
		}
		return items, nil
	}
	return r.historyPage(ctx, chatID, limit, offset)
}

func (r *chatRepository) historyPage(ctx context.Context, chatID uint, limit, offset int) ([]models.HistoryItem, error) {
	var rows []historyRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT id, created_at, 0 AS kind FROM events WHERE chat_id = ?
		UNION ALL
		SELECT id, created_at, 1 AS kind FROM messages WHERE chat_id = ?
		ORDER BY created_at DESC, kind DESC, id DESC
		LIMIT ? OFFSET ?`,
		chatID, chatID, limit, offset,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []models.HistoryItem{}, nil
	}

	var messageIDs, eventIDs []uint
	for _, row := range rows {
		if row.Kind == 1 {
			messageIDs = append(messageIDs, row.ID)
		} else {
			eventIDs = append(eventIDs, row.ID)
		}
	}

	messagesByID := make(map[uint]*models.Message, len(messageIDs))
	if len(messageIDs) > 0 {
		var messages []*models.Message
		if err := r.db.WithContext(ctx).
			Preload("User").
			Where("id IN ?", messageIDs).
			Find(&messages).Error; err != nil {
			return nil, err
		}
		for _, m := range messages {
			messagesByID[m.ID] = m
		}
	}

	eventsByID := make(map[uint]*models.Event, len(eventIDs))
	if len(eventIDs) > 0 {
		var events []*models.Event
		if err := r.db.WithContext(ctx).
			Preload("User").
			Preload("AlteredUser").
			Where("id IN ?", eventIDs).
			Find(&events).Error; err != nil {
			return nil, err
		}
		for _, e := range events {
			eventsByID[e.ID] = e
		}
	}

	// Walk the window in reverse so the page comes back oldest first
	// while keeping the exact order the merge query established.
	items := make([]models.HistoryItem, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]
		if row.Kind == 1 {
			if m := messagesByID[row.ID]; m != nil {
				items = append(items, models.HistoryItem{Kind: models.HistoryKindMessage, Message: m})
			}
		} else {
			if e := eventsByID[row.ID]; e != nil {
				items = append(items, models.HistoryItem{Kind: models.HistoryKindEvent, Event: e})
			}
		}
	}
	return items, nil
}
