package service

import (
	"context"
	"errors"
	"strings"

	"commune/internal/models"
	"commune/internal/repository"

	"gorm.io/gorm"
)

// PostService implements post publishing and the rating ledger rules.
type PostService struct {
	postRepo repository.PostRepository
	isAdmin  func(ctx context.Context, userID uint) (bool, error)
}

type CreatePostInput struct {
	UserID  uint
	Content string
}

type UpdatePostInput struct {
	UserID  uint
	PostID  uint
	Content string
}

type DeletePostInput struct {
	UserID uint
	PostID uint
}

func NewPostService(
	postRepo repository.PostRepository,
	isAdmin func(ctx context.Context, userID uint) (bool, error),
) *PostService {
	return &PostService{
		postRepo: postRepo,
		isAdmin:  isAdmin,
	}
}

const maxPostContentLen = 10000

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if len(content) > maxPostContentLen {
		return nil, models.NewValidationError("Content too long (max 10000 characters)")
	}

	post := &models.Post{
		Content: content,
		UserID:  in.UserID,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, post.ID)
}

func (s *PostService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, err
	}
	return post, nil
}

// postOrderColumns are the columns ListPosts accepts for ordering.
var postOrderColumns = map[string]bool{
	"id":         true,
	"created_at": true,
	"likes":      true,
	"dislikes":   true,
}

func (s *PostService) ListPosts(ctx context.Context, orderBy string, desc bool, limit, offset int) ([]*models.Post, error) {
	if orderBy == "" {
		orderBy = "created_at"
	}
	if !postOrderColumns[orderBy] {
		return nil, models.NewValidationError("Cannot order posts by " + orderBy)
	}
	return s.postRepo.List(ctx, orderBy, desc, limit, offset)
}

func (s *PostService) SearchPosts(ctx context.Context, query string, limit, offset int) ([]*models.Post, error) {
	if strings.TrimSpace(query) == "" {
		return nil, models.NewValidationError("Search query is required")
	}
	return s.postRepo.Search(ctx, query, limit, offset)
}

func (s *PostService) GetUserPosts(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error) {
	return s.postRepo.GetByUserID(ctx, userID, limit, offset)
}

// GetFeed returns posts authored by users the caller subscribes to.
func (s *PostService) GetFeed(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error) {
	return s.postRepo.ListSubscribed(ctx, userID, limit, offset)
}

func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.GetPost(ctx, in.PostID)
	if err != nil {
		return nil, err
	}

	if post.UserID != in.UserID {
		return nil, models.NewUnauthorizedError("You can only update your own posts")
	}

	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if len(content) > maxPostContentLen {
		return nil, models.NewValidationError("Content too long (max 10000 characters)")
	}

	post.Content = content
	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *PostService) DeletePost(ctx context.Context, in DeletePostInput) error {
	post, err := s.GetPost(ctx, in.PostID)
	if err != nil {
		return err
	}

	if post.UserID != in.UserID {
		if s.isAdmin == nil {
			return models.NewUnauthorizedError("You can only delete your own posts")
		}
		admin, err := s.isAdmin(ctx, in.UserID)
		if err != nil {
			return err
		}
		if !admin {
			return models.NewUnauthorizedError("You can only delete your own posts")
		}
	}

	return s.postRepo.Delete(ctx, in.PostID)
}

// LikePost records a like for the post. Liking an already-liked post is
// a conflict; an existing dislike is replaced by the like.
func (s *PostService) LikePost(ctx context.Context, userID, postID uint) (*models.PostRating, error) {
	if _, err := s.GetPost(ctx, postID); err != nil {
		return nil, err
	}
	if err := s.postRepo.Like(ctx, userID, postID); err != nil {
		if errors.Is(err, repository.ErrAlreadyRated) {
			return nil, models.NewConflictError("Post already rated")
		}
		return nil, err
	}
	return s.postRepo.GetRating(ctx, postID)
}

// UnlikePost withdraws the user's like. Withdrawing a rating that was
// never given is not an error.
func (s *PostService) UnlikePost(ctx context.Context, userID, postID uint) (*models.PostRating, error) {
	if _, err := s.GetPost(ctx, postID); err != nil {
		return nil, err
	}
	if err := s.postRepo.Unlike(ctx, userID, postID); err != nil {
		return nil, err
	}
	return s.postRepo.GetRating(ctx, postID)
}

// DislikePost mirrors LikePost for the dislike edge.
func (s *PostService) DislikePost(ctx context.Context, userID, postID uint) (*models.PostRating, error) {
	if _, err := s.GetPost(ctx, postID); err != nil {
		return nil, err
	}
	if err := s.postRepo.Dislike(ctx, userID, postID); err != nil {
		if errors.Is(err, repository.ErrAlreadyRated) {
			return nil, models.NewConflictError("Post already rated")
		}
		return nil, err
	}
	return s.postRepo.GetRating(ctx, postID)
}

// UndislikePost mirrors UnlikePost for the dislike edge.
func (s *PostService) UndislikePost(ctx context.Context, userID, postID uint) (*models.PostRating, error) {
	if _, err := s.GetPost(ctx, postID); err != nil {
		return nil, err
	}
	if err := s.postRepo.Undislike(ctx, userID, postID); err != nil {
		return nil, err
	}
	return s.postRepo.GetRating(ctx, postID)
}

func (s *PostService) GetRating(ctx context.Context, postID uint) (*models.PostRating, error) {
	rating, err := s.postRepo.GetRating(ctx, postID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", postID)
		}
		return nil, err
	}
	return rating, nil
}
