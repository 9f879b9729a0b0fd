package server

import (
	"commune/internal/models"
	"commune/internal/service"
	"commune/internal/storage"

	"github.com/gofiber/fiber/v2"
)

type updateProfileRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Signup handles account creation
// @Summary Create account
// @Description Register a new user with username and password
// @Tags users
// @Accept json
// @Produce json
// @Param credentials body credentialsRequest true "New account credentials"
// @Success 201 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/users [post]
func (s *Server) Signup(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.CreateUser(c.UserContext(), service.CreateUserInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(user)
}

// GetUsers lists users
// @Summary List users
// @Tags users
// @Produce json
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Page offset" default(0)
// @Param order query string false "Order column (id, created_at, username, subscribers_count)" default(created_at)
// @Param order_desc query bool false "Descending order" default(true)
// @Success 200 {array} models.User
// @Failure 400 {object} models.ErrorResponse
// @Router /api/users/list [get]
func (s *Server) GetUsers(c *fiber.Ctx) error {
	p := parsePagination(c, 20)
	orderBy, desc := parseSorting(c)
	users, err := s.userService.ListUsers(c.UserContext(), orderBy, desc, p.Limit, p.Offset)
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(users)
}

// SearchUsers searches users by username
// @Summary Search users
// @Tags users
// @Produce json
// @Param q query string true "Search query"
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Page offset" default(0)
// @Success 200 {array} models.User
// @Failure 400 {object} models.ErrorResponse
// @Router /api/users/search [get]
func (s *Server) SearchUsers(c *fiber.Ctx) error {
	p := parsePagination(c, 20)
	users, err := s.userService.SearchUsers(c.UserContext(), c.Query("q"), p.Limit, p.Offset)
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(users)
}

// GetUser fetches a single user
// @Summary Get user
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} models.User
// @Failure 404 {object} models.ErrorResponse
// @Router /api/users/{id} [get]
func (s *Server) GetUser(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	user, err := s.userService.GetUser(c.UserContext(), id)
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(user)
}

// GetMyProfile returns the authenticated user's profile
// @Summary My profile
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Router /api/users/me [get]
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	user, err := s.userService.GetUser(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(user)
}

// UpdateMyProfile updates username and/or password
// @Summary Update profile
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param profile body updateProfileRequest true "Fields to update"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/users/me [put]
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.UpdateUser(c.UserContext(), service.UpdateUserInput{
		UserID:   currentUserID(c),
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(user)
}

// DeleteMyAccount removes the authenticated user's account
// @Summary Delete account
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Router /api/users/me [delete]
func (s *Server) DeleteMyAccount(c *fiber.Ctx) error {
	userID := currentUserID(c)
	if err := s.userService.DeleteUser(c.UserContext(), userID, userID); err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Account deleted"})
}

// Subscribe adds a user to the caller's subscriptions
// @Summary Subscribe
// @Description Subscribe to another user's posts. Subscribing twice is a no-op.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "Target user ID"
// @Success 200 {object} map[string]string
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/users/{id}/subscribe [post]
func (s *Server) Subscribe(c *fiber.Ctx) error {
	targetID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.userService.Subscribe(c.UserContext(), currentUserID(c), targetID); err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Subscribed"})
}

// Unsubscribe removes a user from the caller's subscriptions
// @Summary Unsubscribe
// @Description Unsubscribe from a user. Removing a subscription that does not exist is an error.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "Target user ID"
// @Success 200 {object} map[string]string
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/users/{id}/unsubscribe [delete]
func (s *Server) Unsubscribe(c *fiber.Ctx) error {
	targetID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.userService.Unsubscribe(c.UserContext(), currentUserID(c), targetID); err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Unsubscribed"})
}

// GetSubscriptions lists the users a user subscribes to
// @Summary Subscriptions
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {array} models.User
// @Router /api/users/{id}/subscriptions [get]
func (s *Server) GetSubscriptions(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	p := parsePagination(c, 20)
	users, err := s.userService.GetSubscriptions(c.UserContext(), id, p.Limit, p.Offset)
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(users)
}

// GetSubscribers lists the users subscribed to a user
// @Summary Subscribers
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {array} models.User
// @Router /api/users/{id}/subscribers [get]
func (s *Server) GetSubscribers(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	p := parsePagination(c, 20)
	users, err := s.userService.GetSubscribers(c.UserContext(), id, p.Limit, p.Offset)
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(users)
}

// GetUserPosts lists a user's posts
// @Summary User posts
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {array} models.Post
// @Router /api/users/{id}/posts [get]
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	p := parsePagination(c, 20)
	posts, err := s.postService.GetUserPosts(c.UserContext(), id, p.Limit, p.Offset)
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(posts)
}

// UpdateAvatar replaces the caller's avatar
// @Summary Upload avatar
// @Description Upload an image (png, jpeg or gif); thumbnail variants are generated server-side.
// @Tags users
// @Accept octet-stream
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Failure 400 {object} models.ErrorResponse
// @Router /api/users/me/avatar [put]
func (s *Server) UpdateAvatar(c *fiber.Ctx) error {
	data := c.Body()
	if file, err := c.FormFile("avatar"); err == nil {
		f, err := file.Open()
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Unreadable upload"))
		}
		defer f.Close()
		buf := make([]byte, file.Size)
		if _, err := f.Read(buf); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Unreadable upload"))
		}
		data = buf
	}

	if len(data) == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Avatar image is required"))
	}

	if err := s.userService.SetAvatar(c.UserContext(), currentUserID(c), data); err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Avatar updated"})
}

// DeleteAvatar removes the caller's avatar
// @Summary Delete avatar
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Router /api/users/me/avatar [delete]
func (s *Server) DeleteAvatar(c *fiber.Ctx) error {
	if err := s.userService.RemoveAvatar(c.UserContext(), currentUserID(c)); err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Avatar removed"})
}

// GetAvatar serves an avatar variant
// @Summary Get avatar
// @Description Serve an avatar thumbnail. Size is one of 80, 160, 240; format is png or webp.
// @Tags users
// @Produce png
// @Param id path int true "User ID"
// @Param size query int false "Variant size" default(160)
// @Param format query string false "Variant format" default(png)
// @Success 200 {file} binary
// @Failure 404 {object} models.ErrorResponse
// @Router /api/users/{id}/avatar [get]
func (s *Server) GetAvatar(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	size := c.QueryInt("size", 160)
	sizeOK := false
	for _, allowed := range storage.AvatarSizes {
		if size == allowed {
			sizeOK = true
			break
		}
	}
	if !sizeOK {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Unsupported avatar size"))
	}

	format := c.Query("format", "png")
	if format != "png" && format != "webp" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Unsupported avatar format"))
	}

	path, err := s.userService.AvatarPath(c.UserContext(), id, size, format)
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.SendFile(path)
}

// GetOnlineUsers lists users with an active WebSocket connection
// @Summary Online users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string][]uint
// @Router /api/users/online [get]
func (s *Server) GetOnlineUsers(c *fiber.Ctx) error {
	ids := s.chatHub.OnlineUserIDs()
	if ids == nil {
		ids = []uint{}
	}
	return c.JSON(fiber.Map{"online_user_ids": ids, "count": len(ids)})
}
