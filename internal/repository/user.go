package repository

import (
	"context"

	"commune/internal/cache"
	"commune/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context, orderBy string, desc bool, limit, offset int) ([]*models.User, error)
	Search(ctx context.Context, query string, limit, offset int) ([]*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uint) error
	SetHasAvatar(ctx context.Context, id uint, hasAvatar bool) error
	IsSubscribed(ctx context.Context, subscriberID, subscribedID uint) (bool, error)
	Subscribe(ctx context.Context, subscriberID, subscribedID uint) error
	Unsubscribe(ctx context.Context, subscriberID, subscribedID uint) error
	GetSubscriptions(ctx context.Context, subscriberID uint, limit, offset int) ([]*models.User, error)
	GetSubscribers(ctx context.Context, subscribedID uint, limit, offset int) ([]*models.User, error)
}

// userRepository implements UserRepository
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	key := cache.UserKey(id)
	err := cache.CacheAside(ctx, key, &user, cache.UserTTL, func() error {
		return r.db.WithContext(ctx).First(&user, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context, orderBy string, desc bool, limit, offset int) ([]*models.User, error) {
	var users []*models.User
	err := r.db.WithContext(ctx).
		Order(clause.OrderByColumn{Column: clause.Column{Name: orderBy}, Desc: desc}).
		Limit(limit).
		Offset(offset).
		Find(&users).Error
	return users, err
}

func (r *userRepository) Search(ctx context.Context, query string, limit, offset int) ([]*models.User, error) {
	var users []*models.User
	like := "%" + query + "%"
	// LOWER/LIKE instead of ILIKE so the query also runs on sqlite in tests.
	err := r.db.WithContext(ctx).
		Where("LOWER(username) LIKE LOWER(?)", like).
		Order("username ASC").
		Limit(limit).
		Offset(offset).
		Find(&users).Error
	return users, err
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	// The user may come from the cache, which never carries the
	// password hash or authoritative associations. Neither is written
	// back; an empty hash would lock the account out.
	omits := []string{clause.Associations}
	if user.Password == "" {
		omits = append(omits, "password")
	}
	if err := r.db.WithContext(ctx).Omit(omits...).Save(user).Error; err != nil {
		return err
	}
	cache.InvalidateUser(ctx, user.ID)
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.User{}, id).Error; err != nil {
		return err
	}
	cache.InvalidateUser(ctx, id)
	return nil
}

func (r *userRepository) SetHasAvatar(ctx context.Context, id uint, hasAvatar bool) error {
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("has_avatar", hasAvatar).Error
	if err == nil {
		cache.InvalidateUser(ctx, id)
	}
	return err
}

func (r *userRepository) IsSubscribed(ctx context.Context, subscriberID, subscribedID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("subscriber_id = ? AND subscribed_id = ?", subscriberID, subscribedID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Subscribe inserts the follow edge and bumps the target's subscribers
// counter in one transaction. Inserting an existing edge is a no-op.
func (r *userRepository) Subscribe(ctx context.Context, subscriberID, subscribedID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Subscription{}).
			Where("subscriber_id = ? AND subscribed_id = ?", subscriberID, subscribedID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		sub := models.Subscription{SubscriberID: subscriberID, SubscribedID: subscribedID}
		if err := tx.Create(&sub).Error; err != nil {
			if IsUniqueViolation(err) {
				return nil
			}
			return err
		}

		return tx.Model(&models.User{}).
			Where("id = ?", subscribedID).
			Update("subscribers_count", gorm.Expr("subscribers_count + 1")).Error
	})
	if err == nil {
		cache.InvalidateUser(ctx, subscribedID)
	}
	return err
}

// Unsubscribe removes the follow edge and decrements the counter in one
// transaction. A missing edge yields ErrNotSubscribed.
func (r *userRepository) Unsubscribe(ctx context.Context, subscriberID, subscribedID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("subscriber_id = ? AND subscribed_id = ?", subscriberID, subscribedID).
			Delete(&models.Subscription{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotSubscribed
		}

		return tx.Model(&models.User{}).
			Where("id = ? AND subscribers_count > 0", subscribedID).
			Update("subscribers_count", gorm.Expr("subscribers_count - 1")).Error
	})
	if err == nil {
		cache.InvalidateUser(ctx, subscribedID)
	}
	return err
}

func (r *userRepository) GetSubscriptions(ctx context.Context, subscriberID uint, limit, offset int) ([]*models.User, error) {
	var users []*models.User
	err := r.db.WithContext(ctx).
		Joins("JOIN subscriptions ON subscriptions.subscribed_id = users.id").
		Where("subscriptions.subscriber_id = ?", subscriberID).
		Order("subscriptions.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&users).Error
	return users, err
}

func (r *userRepository) GetSubscribers(ctx context.Context, subscribedID uint, limit, offset int) ([]*models.User, error) {
	var users []*models.User
	err := r.db.WithContext(ctx).
		Joins("JOIN subscriptions ON subscriptions.subscriber_id = users.id").
		Where("subscriptions.subscribed_id = ?", subscribedID).
		Order("subscriptions.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&users).Error
	return users, err
}
