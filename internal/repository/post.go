package repository

import (
	"context"

	"commune/internal/cache"
	"commune/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	GetByUserID(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error)
	List(ctx context.Context, orderBy string, desc bool, limit, offset int) ([]*models.Post, error)
	ListSubscribed(ctx context.Context, subscriberID uint, limit, offset int) ([]*models.Post, error)
	Search(ctx context.Context, query string, limit, offset int) ([]*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
	GetRating(ctx context.Context, postID uint) (*models.PostRating, error)
	IsLiked(ctx context.Context, userID, postID uint) (bool, error)
	IsDisliked(ctx context.Context, userID, postID uint) (bool, error)
	Like(ctx context.Context, userID, postID uint) error
	Unlike(ctx context.Context, userID, postID uint) error
	Dislike(ctx context.Context, userID, postID uint) error
	Undislike(ctx context.Context, userID, postID uint) error
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	key := cache.PostKey(id)
	err := cache.CacheAside(ctx, key, &post, cache.PostTTL, func() error {
		return r.db.WithContext(ctx).
			Preload("User").
			First(&post, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) GetByUserID(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) List(ctx context.Context, orderBy string, desc bool, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.db.WithContext(ctx).
		Preload("User").
		Order(clause.OrderByColumn{Column: clause.Column{Name: orderBy}, Desc: desc}).
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	return posts, err
}

// ListSubscribed returns the feed: posts authored by users the
// subscriber follows, newest first.
func (r *postRepository) ListSubscribed(ctx context.Context, subscriberID uint, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.db.WithContext(ctx).
		Preload("User").
		Joins("JOIN subscriptions ON subscriptions.subscribed_id = posts.user_id").
		Where("subscriptions.subscriber_id = ?", subscriberID).
		Order("posts.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) Search(ctx context.Context, query string, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	like := "%" + query + "%"
	// LOWER/LIKE instead of ILIKE so the query also runs on sqlite in tests.
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("LOWER(content) LIKE LOWER(?)", like).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	// The post may come from the cache, where the author association is
	// not authoritative. Only the post row itself is written back.
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(post).Error; err != nil {
		return err
	}
	cache.InvalidatePost(ctx, post.ID)
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.Post{}, id).Error; err != nil {
		return err
	}
	cache.InvalidatePost(ctx, id)
	return nil
}

func (r *postRepository) GetRating(ctx context.Context, postID uint) (*models.PostRating, error) {
	var rating models.PostRating
	key := cache.PostRatingKey(postID)
	err := cache.CacheAside(ctx, key, &rating, cache.PostRatingTTL, func() error {
		return r.db.WithContext(ctx).
			Model(&models.Post{}).
			Select("id AS post_id, likes, dislikes").
			Where("id = ?", postID).
			Take(&rating).Error
	})
	if err != nil {
		return nil, err
	}
	return &rating, nil
}

func (r *postRepository) IsLiked(ctx context.Context, userID, postID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PostLike{}).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&count).Error
	return count > 0, err
}

func (r *postRepository) IsDisliked(ctx context.Context, userID, postID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PostDislike{}).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&count).Error
	return count > 0, err
}

// Like inserts the like edge and bumps the denormalized counter in one
// transaction. An existing like yields ErrAlreadyRated; an existing
// dislike is flipped atomically so the edges stay mutually exclusive.
func (r *postRepository) Like(ctx context.Context, userID, postID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var liked int64
		if err := tx.Model(&models.PostLike{}).
			Where("user_id = ? AND post_id = ?", userID, postID).
			Count(&liked).Error; err != nil {
			return err
		}
		if liked > 0 {
			return ErrAlreadyRated
		}

		res := tx.Where("user_id = ? AND post_id = ?", userID, postID).
			Delete(&models.PostDislike{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			if err := tx.Model(&models.Post{}).
				Where("id = ? AND dislikes > 0", postID).
				Update("dislikes", gorm.Expr("dislikes - 1")).Error; err != nil {
				return err
			}
		}

		like := models.PostLike{PostID: postID, UserID: userID}
		if err := tx.Create(&like).Error; err != nil {
			if IsUniqueViolation(err) {
				return ErrAlreadyRated
			}
			return err
		}

		return tx.Model(&models.Post{}).
			Where("id = ?", postID).
			Update("likes", gorm.Expr("likes + 1")).Error
	})
	if err == nil {
		cache.InvalidatePost(ctx, postID)
	}
	return err
}

// Unlike removes the like edge if present. Removing a missing edge is a
// silent no-op.
func (r *postRepository) Unlike(ctx context.Context, userID, postID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND post_id = ?", userID, postID).
			Delete(&models.PostLike{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		return tx.Model(&models.Post{}).
			Where("id = ? AND likes > 0", postID).
			Update("likes", gorm.Expr("likes - 1")).Error
	})
	if err == nil {
		cache.InvalidatePost(ctx, postID)
	}
	return err
}

// Dislike mirrors Like for the dislike edge.
func (r *postRepository) Dislike(ctx context.Context, userID, postID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var disliked int64
		if err := tx.Model(&models.PostDislike{}).
			Where("user_id = ? AND post_id = ?", userID, postID).
			Count(&disliked).Error; err != nil {
			return err
		}
		if disliked > 0 {
			return ErrAlreadyRated
		}

		res := tx.Where("user_id = ? AND post_id = ?", userID, postID).
			Delete(&models.PostLike{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			if err := tx.Model(&models.Post{}).
				Where("id = ? AND likes > 0", postID).
				Update("likes", gorm.Expr("likes - 1")).Error; err != nil {
				return err
			}
		}

		dislike := models.PostDislike{PostID: postID, UserID: userID}
		if err := tx.Create(&dislike).Error; err != nil {
			if IsUniqueViolation(err) {
				return ErrAlreadyRated
			}
			return err
		}

		return tx.Model(&models.Post{}).
			Where("id = ?", postID).
			Update("dislikes", gorm.Expr("dislikes + 1")).Error
	})
	if err == nil {
		cache.InvalidatePost(ctx, postID)
	}
	return err
}

// Undislike mirrors Unlike for the dislike edge.
func (r *postRepository) Undislike(ctx context.Context, userID, postID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND post_id = ?", userID, postID).
			Delete(&models.PostDislike{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		return tx.Model(&models.Post{}).
			Where("id = ? AND dislikes > 0", postID).
			Update("dislikes", gorm.Expr("dislikes - 1")).Error
	})
	if err == nil {
		cache.InvalidatePost(ctx, postID)
	}
	return err
}
