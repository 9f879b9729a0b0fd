package server

import (
	"commune/internal/models"
	"commune/internal/service"

	"github.com/gofiber/fiber/v2"
)

type messageContentRequest struct {
	Content string `json:"content"`
}

// GetMessages lists a chat's messages
// @Summary List messages
// @Description Newest window of chat messages, ascending within the page. Members only. Sending happens over the WebSocket endpoint.
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param id path int true "Chat ID"
// @Param limit query int false "Page size" default(50)
// @Param offset query int false "Page offset" default(0)
// @Success 200 {array} models.Message
// @Failure 403 {object} models.ErrorResponse
// @Router /api/chats/{id}/messages [get]
func (s *Server) GetMessages(c *fiber.Ctx) error {
	chatID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	p := parsePagination(c, 50)
	messages, err := s.messageService.ListMessages(c.UserContext(), currentUserID(c), chatID, p.Limit, p.Offset)
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(messages)
}

// SearchMessages searches within a chat's messages
// @Summary Search messages
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param id path int true "Chat ID"
// @Param q query string true "Search query"
// @Success 200 {array} models.Message
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /api/chats/{id}/messages/search [get]
func (s *Server) SearchMessages(c *fiber.Ctx) error {
	chatID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	p := parsePagination(c, 50)
	messages, err := s.messageService.SearchMessages(c.UserContext(), currentUserID(c), chatID, c.Query("q"), p.Limit, p.Offset)
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(messages)
}

// ClearMessages deletes all messages in a chat
// @Summary Clear messages
// @Description Wipe the chat's messages. Owner only; the event log is untouched.
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param id path int true "Chat ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} models.ErrorResponse
// @Router /api/chats/{id}/messages [delete]
func (s *Server) ClearMessages(c *fiber.Ctx) error {
	chatID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	deleted, err := s.messageService.ClearMessages(c.UserContext(), currentUserID(c), chatID)
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Messages cleared", "deleted": deleted})
}

// UpdateMessage edits a message
// @Summary Edit message
// @Description Edit a message's content. Authors only.
// @Tags messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Message ID"
// @Param message body messageContentRequest true "New content"
// @Success 200 {object} models.Message
// @Failure 403 {object} models.ErrorResponse
// @Router /api/messages/{id} [patch]
func (s *Server) UpdateMessage(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	var req messageContentRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	message, err := s.messageService.UpdateMessage(c.UserContext(), service.UpdateMessageInput{
		UserID:    currentUserID(c),
		MessageID: id,
		Content:   req.Content,
	})
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(message)
}

// DeleteMessage removes a message
// @Summary Delete message
// @Description Delete a message. The author, the chat owner and admins may delete.
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param id path int true "Message ID"
// @Success 200 {object} map[string]string
// @Failure 403 {object} models.ErrorResponse
// @Router /api/messages/{id} [delete]
func (s *Server) DeleteMessage(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.messageService.DeleteMessage(c.UserContext(), currentUserID(c), id); err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Message deleted"})
}

// GetEvents lists a chat's membership events
// @Summary List events
// @Description Newest window of the chat's membership event log, ascending within the page. Members only.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param id path int true "Chat ID"
// @Param limit query int false "Page size" default(50)
// @Param offset query int false "Page offset" default(0)
// @Success 200 {array} models.Event
// @Failure 403 {object} models.ErrorResponse
// @Router /api/chats/{id}/events [get]
func (s *Server) GetEvents(c *fiber.Ctx) error {
	chatID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	p := parsePagination(c, 50)
	events, err := s.eventService.ListEvents(c.UserContext(), currentUserID(c), chatID, p.Limit, p.Offset)
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}
	return c.JSON(events)
}
