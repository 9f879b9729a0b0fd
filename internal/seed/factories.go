// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"fmt"
	"math/rand"
	"time"

	"commune/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db   *gorm.DB
	opts Options
	rng  *rand.Rand
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	seedVal := opts.RandomSeed
	if seedVal == 0 {
		seedVal = time.Now().UnixNano()
	}
	gofakeit.Seed(seedVal)
	return &Factory{db: db, opts: opts, rng: rand.New(rand.NewSource(seedVal))}
}

// backdate spreads created_at over the configured window so feeds and
// history pages look lived-in.
func (f *Factory) backdate() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	daysBack := f.rng.Intn(maxDays)
	hoursBack := f.rng.Intn(24)
	minsBack := f.rng.Intn(60)
	return time.Now().
		Add(-time.Duration(daysBack) * 24 * time.Hour).
		Add(-time.Duration(hoursBack) * time.Hour).
		Add(-time.Duration(minsBack) * time.Minute)
}

// CreateUser constructs and persists a sample `models.User`.
// Optional override functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := &models.User{
		Username: fmt.Sprintf("%s%d", gofakeit.Username(), gofakeit.Number(100, 999)),
	}

	// Password handling: allow skipping bcrypt in dev fast mode
	if f.opts.SkipBcrypt {
		user.Password = "password123"
	} else {
		hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		user.Password = string(hashed)
	}

	for _, override := range overrides {
		override(user)
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreatePost constructs and persists a post for the given user.
func (f *Factory) CreatePost(user *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	post := &models.Post{
		Content:   gofakeit.Paragraph(1, 3, 8, "\n"),
		UserID:    user.ID,
		CreatedAt: f.backdate(),
	}
	for _, override := range overrides {
		override(post)
	}
	if err := f.db.Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// CreateChat persists a chat with the owner enrolled and the creation
// event logged, mirroring what ChatService does at runtime.
func (f *Factory) CreateChat(owner *models.User, title string, overrides ...func(*models.Chat)) (*models.Chat, error) {
	if title == "" {
		title = gofakeit.HipsterWord()
	}
	chat := &models.Chat{
		Title:     title,
		OwnerID:   owner.ID,
		CreatedAt: f.backdate(),
	}
	for _, override := range overrides {
		override(chat)
	}
	if err := f.db.Create(chat).Error; err != nil {
		return nil, err
	}
	if err := f.AddChatMember(chat, owner); err != nil {
		return nil, err
	}
	event := &models.Event{
		ChatID:    chat.ID,
		UserID:    owner.ID,
		EventType: models.EventTypeCreated,
		CreatedAt: chat.CreatedAt,
	}
	if err := f.db.Create(event).Error; err != nil {
		return nil, err
	}
	return chat, nil
}

// AddChatMember enrolls the user and appends a joined event unless the
// user already is a member.
func (f *Factory) AddChatMember(chat *models.Chat, user *models.User) error {
	var count int64
	if err := f.db.Model(&models.ChatMember{}).
		Where("chat_id = ? AND user_id = ?", chat.ID, user.ID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	member := &models.ChatMember{ChatID: chat.ID, UserID: user.ID}
	if err := f.db.Create(member).Error; err != nil {
		return err
	}
	if user.ID != chat.OwnerID {
		event := &models.Event{
			ChatID:    chat.ID,
			UserID:    user.ID,
			EventType: models.EventTypeJoined,
		}
		return f.db.Create(event).Error
	}
	return nil
}

// CreateMessage persists a chat message from the given member.
func (f *Factory) CreateMessage(chat *models.Chat, user *models.User) (*models.Message, error) {
	message := &models.Message{
		ChatID:    chat.ID,
		UserID:    user.ID,
		Content:   gofakeit.Sentence(f.rng.Intn(12) + 3),
		CreatedAt: f.backdate(),
	}
	if err := f.db.Create(message).Error; err != nil {
		return nil, err
	}
	return message, nil
}

// Subscribe inserts the edge and bumps the target's counter, skipping
// duplicates and self-loops.
func (f *Factory) Subscribe(subscriber, target *models.User) error {
	if subscriber.ID == target.ID {
		return nil
	}
	var count int64
	if err := f.db.Model(&models.Subscription{}).
		Where("subscriber_id = ? AND subscribed_id = ?", subscriber.ID, target.ID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return f.db.Transaction(func(tx *gorm.DB) error {
		edge := &models.Subscription{SubscriberID: subscriber.ID, SubscribedID: target.ID}
		if err := tx.Create(edge).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ?", target.ID).
			UpdateColumn("subscribers_count", gorm.Expr("subscribers_count + 1")).Error
	})
}

// RatePost inserts a like or dislike edge and bumps the matching
// counter. A user who already rated the post either way is skipped so
// the one-edge-per-pair invariant holds.
func (f *Factory) RatePost(post *models.Post, user *models.User, like bool) error {
	return f.db.Transaction(func(tx *gorm.DB) error {
		var likes, dislikes int64
		if err := tx.Model(&models.PostLike{}).
			Where("post_id = ? AND user_id = ?", post.ID, user.ID).
			Count(&likes).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.PostDislike{}).
			Where("post_id = ? AND user_id = ?", post.ID, user.ID).
			Count(&dislikes).Error; err != nil {
			return err
		}
		if likes > 0 || dislikes > 0 {
			return nil
		}

		if like {
			if err := tx.Create(&models.PostLike{PostID: post.ID, UserID: user.ID}).Error; err != nil {
				return err
			}
			return tx.Model(&models.Post{}).Where("id = ?", post.ID).
				UpdateColumn("likes", gorm.Expr("likes + 1")).Error
		}
		if err := tx.Create(&models.PostDislike{PostID: post.ID, UserID: user.ID}).Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{}).Where("id = ?", post.ID).
			UpdateColumn("dislikes", gorm.Expr("dislikes + 1")).Error
	})
}
