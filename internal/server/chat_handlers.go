package server

import (
	"commune/internal/models"
	"commune/internal/repository"
	"commune/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createChatRequest struct {
	Title     string `json:"title"`
	IsPrivate bool   `json:"is_private"`
	Members   []uint `json:"members"`
}

type updateChatRequest struct {
	Title     string `json:"title"`
	IsPrivate *bool  `json:"is_private"`
}

type memberIDsRequest struct {
	UserIDs []uint `json:"user_ids"`
}

// CreateChat creates a group chat
// @Summary Create chat
// @Description Create a chat. The creator becomes owner and first member and any listed members are enrolled with them; a "created" event is logged.
// @Tags chats
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param chat body createChatRequest true "Chat details"
// @Success 201 {object} models.Chat
// @Failure 400 {object} models.ErrorResponse
// @Router /api/chats [post]
func (s *Server) CreateChat(c *fiber.Ctx) error {
	var req createChatRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	chat, err := s.chatService.CreateChat(c.UserContext(), service.CreateChatInput{
		OwnerID:   currentUserID(c),
		Title:     req.Title,
		IsPrivate: req.IsPrivate,
		Members:   req.Members,
	})
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(chat)
}

// GetChats lists chats
// @Summary List chats
// @Tags chats
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Page offset" default(0)
// @Param order query string false "Order column (id, created_at, title)" default(created_at)
// @Param order_desc query bool false "Descending order" default(true)
// @Success 200 {array} models.Chat
// @Failure 400 {object} models.ErrorResponse
// @Router /api/chats [get]
func (s *Server) GetChats(c *fiber.Ctx) error {
	p := parsePagination(c, 20)
	orderBy, desc := parseSorting(c)
	chats, err := s.chatService.ListChats(c.UserContext(), orderBy, desc, p.Limit, p.Offset)
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(chats)
}

// SearchChats searches chats by title
// @Summary Search chats
// @Description Title search. Private chats appear only for their members.
// @Tags chats
// @Produce json
// @Security BearerAuth
// @Param q query string true "Search query"
// @Success 200 {array} models.Chat
// @Failure 400 {object} models.ErrorResponse
// @Router /api/chats/search [get]
func (s *Server) SearchChats(c *fiber.Ctx) error {
	p := parsePagination(c, 20)
	chats, err := s.chatService.SearchChats(c.UserContext(), currentUserID(c), c.Query("q"), p.Limit, p.Offset)
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(chats)
}

// GetJoinedChats lists the caller's chats
// @Summary My chats
// @Tags chats
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Chat
// @Router /api/chats/user [get]
func (s *Server) GetJoinedChats(c *fiber.Ctx) error {
	p := parsePagination(c, 20)
	chats, err := s.chatService.ListMyChats(c.UserContext(), currentUserID(c), p.Limit, p.Offset)
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(chats)
}

// GetChat fetches a single chat
// @Summary Get chat
// @Description Private chats are visible to members and admins only.
// @Tags chats
// @Produce json
// @Security BearerAuth
// @Param id path int true "Chat ID"
// @Success 200 {object} models.Chat
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/chats/{id} [get]
func (s *Server) GetChat(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	chat, err := s.chatService.GetChat(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(chat)
}

// UpdateChat updates chat settings
// @Summary Update chat
// @Tags chats
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Chat ID"
// @Param chat body updateChatRequest true "Fields to update"
// @Success 200 {object} models.Chat
// @Failure 403 {object} models.ErrorResponse
// @Router /api/chats/{id} [put]
func (s *Server) UpdateChat(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	var req updateChatRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	chat, err := s.chatService.UpdateChat(c.UserContext(), service.UpdateChatInput{
		UserID:    currentUserID(c),
		ChatID:    id,
		Title:     req.Title,
		IsPrivate: req.IsPrivate,
	})
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(chat)
}

// DeleteChat removes a chat and its history
// @Summary Delete chat
// @Tags chats
// @Produce json
// @Security BearerAuth
// @Param id path int true "Chat ID"
// @Success 200 {object} map[string]string
// @Failure 403 {object} models.ErrorResponse
// @Router /api/chats/{id} [delete]
func (s *Server) DeleteChat(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.chatService.DeleteChat(c.UserContext(), currentUserID(c), id); err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Chat deleted"})
}

// JoinChat enrolls the caller in a chat
// @Summary Join chat
// @Description Join a public chat. Private chats require an invitation from the owner.
// @Tags chats
// @Produce json
// @Security BearerAuth
// @Param id path int true "Chat ID"
// @Success 200 {object} map[string]string
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/chats/{id}/join [post]
func (s *Server) JoinChat(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.chatService.JoinChat(c.UserContext(), currentUserID(c), id); err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Joined chat"})
}

// LeaveChat removes the caller from a chat
// @Summary Leave chat
// @Description Leave a chat. When the last member leaves, the chat is deleted.
// @Tags chats
// @Produce json
// @Security BearerAuth
// @Param id path int true "Chat ID"
// @Success 200 {object} map[string]string
// @Failure 400 {object} models.ErrorResponse
// @Router /api/chats/{id}/leave [delete]
func (s *Server) LeaveChat(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.chatService.LeaveChat(c.UserContext(), currentUserID(c), id); err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Left chat"})
}

// AddChatMembers adds users to a chat
// @Summary Add members
// @Description Add users to the chat. Owner only; each addition is logged as an event.
// @Tags chats
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Chat ID"
// @Param members body memberIDsRequest true "User IDs to add"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} models.ErrorResponse
// @Router /api/chats/{id}/add-members [post]
func (s *Server) AddChatMembers(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	var req memberIDsRequest
	if err := c.BodyParser(&req); err != nil || len(req.UserIDs) == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("At least one user ID is required"))
	}

	actorID := currentUserID(c)
	added := make([]uint, 0, len(req.UserIDs))
	for _, targetID := range req.UserIDs {
		err := s.chatService.AddMember(c.UserContext(), service.MembershipInput{
			ActorID:  actorID,
			ChatID:   id,
			TargetID: targetID,
		})
		if err != nil {
			// Partial adds are reported, not rolled back.
			return models.RespondWithError(c, models.StatusForError(err), err)
		}
		added = append(added, targetID)
	}

	return c.JSON(fiber.Map{"message": "Members added", "added": added})
}

// RemoveChatMembers removes users from a chat
// @Summary Remove members
// @Description Remove users from the chat. Owner only; the owner cannot remove themselves.
// @Tags chats
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Chat ID"
// @Param members body memberIDsRequest true "User IDs to remove"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} models.ErrorResponse
// @Router /api/chats/{id}/remove-members [post]
func (s *Server) RemoveChatMembers(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	var req memberIDsRequest
	if err := c.BodyParser(&req); err != nil || len(req.UserIDs) == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("At least one user ID is required"))
	}

	actorID := currentUserID(c)
	removed := make([]uint, 0, len(req.UserIDs))
	for _, targetID := range req.UserIDs {
		err := s.chatService.RemoveMember(c.UserContext(), service.MembershipInput{
			ActorID:  actorID,
			ChatID:   id,
			TargetID: targetID,
		})
		if err != nil {
			return models.RespondWithError(c, models.StatusForError(err), err)
		}
		removed = append(removed, targetID)
	}

	return c.JSON(fiber.Map{"message": "Members removed", "removed": removed})
}

// GetChatMembers lists chat members
// @Summary Chat members
// @Tags chats
// @Produce json
// @Security BearerAuth
// @Param id path int true "Chat ID"
// @Success 200 {array} models.User
// @Failure 403 {object} models.ErrorResponse
// @Router /api/chats/{id}/members [get]
func (s *Server) GetChatMembers(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	members, err := s.chatService.GetMembers(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(members)
}

// GetChatHistory returns merged messages and events
// @Summary Chat history
// @Description Merged message and event timeline, newest page first, items ascending within the page. Members only.
// @Tags chats
// @Produce json
// @Security BearerAuth
// @Param id path int true "Chat ID"
// @Param limit query int false "Page size" default(50)
// @Param offset query int false "Page offset" default(0)
// @Success 200 {array} models.HistoryItem
// @Failure 403 {object} models.ErrorResponse
// @Router /api/chats/{id}/history [get]
func (s *Server) GetChatHistory(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	p := parsePagination(c, repository.DefaultHistoryPageSize)
	history, err := s.chatService.History(c.UserContext(), currentUserID(c), id, p.Limit, p.Offset)
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(history)
}
