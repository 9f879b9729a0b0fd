package server

import (
	"context"

	"commune/internal/models"
	"commune/internal/service"

	"github.com/gofiber/fiber/v2"
)

type postRequest struct {
	Content string `json:"content"`
}

// CreatePost publishes a new post
// @Summary Create post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param post body postRequest true "Post content"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Router /api/posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req postRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		UserID:  currentUserID(c),
		Content: req.Content,
	})
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetPosts lists posts, newest first by default
// @Summary List posts
// @Tags posts
// @Produce json
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Page offset" default(0)
// @Param order query string false "Order column (id, created_at, likes, dislikes)" default(created_at)
// @Param order_desc query bool false "Descending order" default(true)
// @Success 200 {array} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Router /api/posts/list [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	p := parsePagination(c, 20)
	orderBy, desc := parseSorting(c)
	posts, err := s.postService.ListPosts(c.UserContext(), orderBy, desc, p.Limit, p.Offset)
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(posts)
}

// SearchPosts searches post content
// @Summary Search posts
// @Tags posts
// @Produce json
// @Param q query string true "Search query"
// @Success 200 {array} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Router /api/posts/search [get]
func (s *Server) SearchPosts(c *fiber.Ctx) error {
	p := parsePagination(c, 20)
	posts, err := s.postService.SearchPosts(c.UserContext(), c.Query("q"), p.Limit, p.Offset)
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(posts)
}

// GetFeed lists posts from the caller's subscriptions
// @Summary Subscription feed
// @Description Posts authored by users the caller subscribes to, newest first.
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Post
// @Router /api/posts/subscriptions [get]
func (s *Server) GetFeed(c *fiber.Ctx) error {
	p := parsePagination(c, 20)
	posts, err := s.postService.GetFeed(c.UserContext(), currentUserID(c), p.Limit, p.Offset)
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(posts)
}

// GetPost fetches a single post
// @Summary Get post
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.Post
// @Failure 404 {object} models.ErrorResponse
// @Router /api/posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.postService.GetPost(c.UserContext(), id)
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(post)
}

// UpdatePost edits a post's content
// @Summary Update post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param post body postRequest true "New content"
// @Success 200 {object} models.Post
// @Failure 403 {object} models.ErrorResponse
// @Router /api/posts/{id} [put]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	var req postRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.UpdatePost(c.UserContext(), service.UpdatePostInput{
		UserID:  currentUserID(c),
		PostID:  id,
		Content: req.Content,
	})
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(post)
}

// DeletePost removes a post
// @Summary Delete post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} map[string]string
// @Failure 403 {object} models.ErrorResponse
// @Router /api/posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.postService.DeletePost(c.UserContext(), service.DeletePostInput{
		UserID: currentUserID(c),
		PostID: id,
	}); err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post deleted"})
}

// LikePost records a like
// @Summary Like post
// @Description Like a post. Liking twice is a conflict; an existing dislike is replaced.
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} models.PostRating
// @Failure 409 {object} models.ErrorResponse
// @Router /api/posts/{id}/like [post]
func (s *Server) LikePost(c *fiber.Ctx) error {
	return s.ratePost(c, s.postService.LikePost)
}

// UnlikePost withdraws a like
// @Summary Unlike post
// @Description Withdraw a like. Withdrawing a rating that was never given is a no-op.
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} models.PostRating
// @Router /api/posts/{id}/like [delete]
func (s *Server) UnlikePost(c *fiber.Ctx) error {
	return s.ratePost(c, s.postService.UnlikePost)
}

// DislikePost records a dislike
// @Summary Dislike post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} models.PostRating
// @Failure 409 {object} models.ErrorResponse
// @Router /api/posts/{id}/dislike [post]
func (s *Server) DislikePost(c *fiber.Ctx) error {
	return s.ratePost(c, s.postService.DislikePost)
}

// UndislikePost withdraws a dislike
// @Summary Undislike post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} models.PostRating
// @Router /api/posts/{id}/dislike [delete]
func (s *Server) UndislikePost(c *fiber.Ctx) error {
	return s.ratePost(c, s.postService.UndislikePost)
}

// GetPostRating returns the post's like/dislike counters
// @Summary Post rating
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.PostRating
// @Failure 404 {object} models.ErrorResponse
// @Router /api/posts/{id}/rating [get]
func (s *Server) GetPostRating(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	rating, err := s.postService.GetRating(c.UserContext(), id)
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(rating)
}

func (s *Server) ratePost(
	c *fiber.Ctx,
	op func(ctx context.Context, userID, postID uint) (*models.PostRating, error),
) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	rating, err := op(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(rating)
}
