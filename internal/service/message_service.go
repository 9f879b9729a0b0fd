package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"commune/internal/models"
	"commune/internal/observability"
	"commune/internal/repository"

	"gorm.io/gorm"
)

// MessageService implements chat messaging on top of the membership rules.
type MessageService struct {
	messageRepo repository.MessageRepository
	chatRepo    repository.ChatRepository
	isAdmin     func(ctx context.Context, userID uint) (bool, error)
}

type SendMessageInput struct {
	UserID  uint
	ChatID  uint
	Content string
}

type UpdateMessageInput struct {
	UserID    uint
	MessageID uint
	Content   string
}

func NewMessageService(
	messageRepo repository.MessageRepository,
	chatRepo repository.ChatRepository,
	isAdmin func(ctx context.Context, userID uint) (bool, error),
) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		chatRepo:    chatRepo,
		isAdmin:     isAdmin,
	}
}

const maxMessageContentLen = 5000

func (s *MessageService) requireMembership(ctx context.Context, chatID, userID uint) error {
	if _, err := s.chatRepo.GetByID(ctx, chatID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Chat", chatID)
		}
		return err
	}
	member, err := s.chatRepo.IsMember(ctx, chatID, userID)
	if err != nil {
		return err
	}
	if !member {
		return models.NewUnauthorizedError("You are not a member of this chat")
	}
	return nil
}

// SendMessage persists a message from a chat member.
func (s *MessageService) SendMessage(ctx context.Context, in SendMessageInput) (*models.Message, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, models.NewValidationError("Message content is required")
	}
	if len(content) > maxMessageContentLen {
		return nil, models.NewValidationError("Message too long (max 5000 characters)")
	}

	if err := s.requireMembership(ctx, in.ChatID, in.UserID); err != nil {
		return nil, err
	}

	message := &models.Message{
		ChatID:  in.ChatID,
		UserID:  in.UserID,
		Content: content,
	}
	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, err
	}
	observability.MessageThroughput.
		WithLabelValues(strconv.FormatUint(uint64(in.ChatID), 10), "text").Inc()

	return s.messageRepo.GetByID(ctx, message.ID)
}

func (s *MessageService) GetMessage(ctx context.Context, userID, messageID uint) (*models.Message, error) {
	message, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Message", messageID)
		}
		return nil, err
	}
	if err := s.requireMembership(ctx, message.ChatID, userID); err != nil {
		return nil, err
	}
	return message, nil
}

// ListMessages returns the newest window of chat messages, ascending
// within the page.
func (s *MessageService) ListMessages(ctx context.Context, userID, chatID uint, limit, offset int) ([]*models.Message, error) {
	if err := s.requireMembership(ctx, chatID, userID); err != nil {
		return nil, err
	}
	messages, err := s.messageRepo.ListByChat(ctx, chatID, limit, offset)
	if err != nil {
		return nil, err
	}
	reverseMessages(messages)
	return messages, nil
}

func (s *MessageService) SearchMessages(ctx context.Context, userID, chatID uint, query string, limit, offset int) ([]*models.Message, error) {
	if strings.TrimSpace(query) == "" {
		return nil, models.NewValidationError("Search query is required")
	}
	if err := s.requireMembership(ctx, chatID, userID); err != nil {
		return nil, err
	}
	return s.messageRepo.SearchByChat(ctx, chatID, query, limit, offset)
}

// ClearMessages wipes the chat's messages. Only the chat owner (or an
// admin) may clear; the event log is untouched.
func (s *MessageService) ClearMessages(ctx context.Context, userID, chatID uint) (int64, error) {
	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, models.NewNotFoundError("Chat", chatID)
		}
		return 0, err
	}
	if chat.OwnerID != userID {
		allowed := false
		if s.isAdmin != nil {
			admin, err := s.isAdmin(ctx, userID)
			if err != nil {
				return 0, err
			}
			allowed = admin
		}
		if !allowed {
			return 0, models.NewUnauthorizedError("Only the chat owner can clear messages")
		}
	}
	return s.messageRepo.ClearByChat(ctx, chatID)
}

func reverseMessages(messages []*models.Message) {
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
}

// UpdateMessage edits a message. Only the author may edit.
func (s *MessageService) UpdateMessage(ctx context.Context, in UpdateMessageInput) (*models.Message, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, models.NewValidationError("Message content is required")
	}
	if len(content) > maxMessageContentLen {
		return nil, models.NewValidationError("Message too long (max 5000 characters)")
	}

	message, err := s.messageRepo.GetByID(ctx, in.MessageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Message", in.MessageID)
		}
		return nil, err
	}
	if message.UserID != in.UserID {
		return nil, models.NewUnauthorizedError("You can only edit your own messages")
	}

	message.Content = content
	if err := s.messageRepo.Update(ctx, message); err != nil {
		return nil, err
	}
	return message, nil
}

// DeleteMessage removes a message. The author, the chat owner and admins
// may delete.
func (s *MessageService) DeleteMessage(ctx context.Context, userID, messageID uint) error {
	message, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Message", messageID)
		}
		return err
	}

	if message.UserID != userID {
		chat, err := s.chatRepo.GetByID(ctx, message.ChatID)
		if err != nil {
			return err
		}
		allowed := chat.OwnerID == userID
		if !allowed && s.isAdmin != nil {
			admin, err := s.isAdmin(ctx, userID)
			if err != nil {
				return err
			}
			allowed = admin
		}
		if !allowed {
			return models.NewUnauthorizedError("You can only delete your own messages")
		}
	}

	return s.messageRepo.Delete(ctx, messageID)
}
