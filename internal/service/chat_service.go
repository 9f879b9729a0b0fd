package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"commune/internal/middleware"
	"commune/internal/models"
	"commune/internal/repository"

	"gorm.io/gorm"
)

// ChatService implements group chat lifecycle, membership and the
// merged history timeline.
type ChatService struct {
	chatRepo  repository.ChatRepository
	eventRepo repository.EventRepository
	userRepo  repository.UserRepository
	isAdmin   func(ctx context.Context, userID uint) (bool, error)
}

type CreateChatInput struct {
	OwnerID   uint
	Title     string
	IsPrivate bool
	// Members are enrolled alongside the owner at creation. Unknown or
	// duplicate IDs are skipped, never a creation failure.
	Members []uint
}

type UpdateChatInput struct {
	UserID    uint
	ChatID    uint
	Title     string
	IsPrivate *bool
}

type MembershipInput struct {
	ActorID  uint
	ChatID   uint
	TargetID uint
}

func NewChatService(
	chatRepo repository.ChatRepository,
	eventRepo repository.EventRepository,
	userRepo repository.UserRepository,
	isAdmin func(ctx context.Context, userID uint) (bool, error),
) *ChatService {
	return &ChatService{
		chatRepo:  chatRepo,
		eventRepo: eventRepo,
		userRepo:  userRepo,
		isAdmin:   isAdmin,
	}
}

const maxChatTitleLen = 120

// appendEvent records a membership event after the mutation it
// describes. The log is append-only and best-effort: a failed append is
// logged, never rolled back into the mutation.
func (s *ChatService) appendEvent(ctx context.Context, event *models.Event) {
	if err := s.eventRepo.Create(ctx, event); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to append chat event",
			slog.Uint64("chat_id", uint64(event.ChatID)),
			slog.String("event_type", string(event.EventType)),
			slog.String("error", err.Error()),
		)
	}
}

func (s *ChatService) CreateChat(ctx context.Context, in CreateChatInput) (*models.Chat, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, models.NewValidationError("Title is required")
	}
	if len(title) > maxChatTitleLen {
		return nil, models.NewValidationError("Title too long (max 120 characters)")
	}

	chat := &models.Chat{
		Title:     title,
		IsPrivate: in.IsPrivate,
		OwnerID:   in.OwnerID,
	}
	if err := s.chatRepo.Create(ctx, chat); err != nil {
		return nil, err
	}

	s.appendEvent(ctx, &models.Event{
		ChatID:    chat.ID,
		EventType: models.EventTypeCreated,
		UserID:    in.OwnerID,
	})

	for _, memberID := range in.Members {
		if memberID == in.OwnerID {
			continue
		}
		if _, err := s.userRepo.GetByID(ctx, memberID); err != nil {
			middleware.Logger.WarnContext(ctx, "skipping initial chat member",
				slog.Uint64("chat_id", uint64(chat.ID)),
				slog.Uint64("user_id", uint64(memberID)),
				slog.String("error", err.Error()),
			)
			continue
		}
		if err := s.chatRepo.AddMember(ctx, chat.ID, memberID); err != nil {
			if !errors.Is(err, repository.ErrAlreadyMember) {
				middleware.Logger.WarnContext(ctx, "skipping initial chat member",
					slog.Uint64("chat_id", uint64(chat.ID)),
					slog.Uint64("user_id", uint64(memberID)),
					slog.String("error", err.Error()),
				)
			}
			continue
		}
		altered := memberID
		s.appendEvent(ctx, &models.Event{
			ChatID:        chat.ID,
			EventType:     models.EventTypeAdded,
			UserID:        in.OwnerID,
			AlteredUserID: &altered,
		})
	}

	return s.chatRepo.GetByID(ctx, chat.ID)
}

func (s *ChatService) getChat(ctx context.Context, chatID uint) (*models.Chat, error) {
	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Chat", chatID)
		}
		return nil, err
	}
	return chat, nil
}

// GetChat returns the chat when it is public or the caller belongs to it.
func (s *ChatService) GetChat(ctx context.Context, userID, chatID uint) (*models.Chat, error) {
	chat, err := s.getChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.IsPrivate {
		return chat, nil
	}

	member, err := s.chatRepo.IsMember(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}
	if member {
		return chat, nil
	}
	if s.isAdmin != nil {
		admin, err := s.isAdmin(ctx, userID)
		if err != nil {
			return nil, err
		}
		if admin {
			return chat, nil
		}
	}
	return nil, models.NewUnauthorizedError("Chat is private")
}

// chatOrderColumns are the columns ListChats accepts for ordering.
var chatOrderColumns = map[string]bool{
	"id":         true,
	"created_at": true,
	"title":      true,
}

func (s *ChatService) ListChats(ctx context.Context, orderBy string, desc bool, limit, offset int) ([]*models.Chat, error) {
	if orderBy == "" {
		orderBy = "created_at"
	}
	if !chatOrderColumns[orderBy] {
		return nil, models.NewValidationError("Cannot order chats by " + orderBy)
	}
	return s.chatRepo.List(ctx, orderBy, desc, limit, offset)
}

// SearchChats matches chat titles. The caller's ID scopes the result:
// private chats only show up for their own members.
func (s *ChatService) SearchChats(ctx context.Context, userID uint, query string, limit, offset int) ([]*models.Chat, error) {
	if strings.TrimSpace(query) == "" {
		return nil, models.NewValidationError("Search query is required")
	}
	return s.chatRepo.Search(ctx, userID, query, limit, offset)
}

func (s *ChatService) ListMyChats(ctx context.Context, userID uint, limit, offset int) ([]*models.Chat, error) {
	return s.chatRepo.ListForUser(ctx, userID, limit, offset)
}

func (s *ChatService) UpdateChat(ctx context.Context, in UpdateChatInput) (*models.Chat, error) {
	chat, err := s.getChat(ctx, in.ChatID)
	if err != nil {
		return nil, err
	}
	if chat.OwnerID != in.UserID {
		return nil, models.NewUnauthorizedError("Only the chat owner can update the chat")
	}

	if in.Title != "" {
		title := strings.TrimSpace(in.Title)
		if len(title) > maxChatTitleLen {
			return nil, models.NewValidationError("Title too long (max 120 characters)")
		}
		chat.Title = title
	}
	if in.IsPrivate != nil {
		chat.IsPrivate = *in.IsPrivate
	}

	if err := s.chatRepo.Update(ctx, chat); err != nil {
		return nil, err
	}
	return chat, nil
}

func (s *ChatService) DeleteChat(ctx context.Context, userID, chatID uint) error {
	chat, err := s.getChat(ctx, chatID)
	if err != nil {
		return err
	}
	if chat.OwnerID != userID {
		if s.isAdmin == nil {
			return models.NewUnauthorizedError("Only the chat owner can delete the chat")
		}
		admin, err := s.isAdmin(ctx, userID)
		if err != nil {
			return err
		}
		if !admin {
			return models.NewUnauthorizedError("Only the chat owner can delete the chat")
		}
	}
	return s.chatRepo.Delete(ctx, chatID)
}

// JoinChat enrolls the caller into a public chat. Private chats only
// accept members through the owner; admins may enter anywhere.
func (s *ChatService) JoinChat(ctx context.Context, userID, chatID uint) error {
	chat, err := s.getChat(ctx, chatID)
	if err != nil {
		return err
	}

	if chat.IsPrivate {
		allowed := false
		if s.isAdmin != nil {
			admin, err := s.isAdmin(ctx, userID)
			if err != nil {
				return err
			}
			allowed = admin
		}
		if !allowed {
			return models.NewUnauthorizedError("Chat is private")
		}
	}

	if err := s.chatRepo.AddMember(ctx, chatID, userID); err != nil {
		if errors.Is(err, repository.ErrAlreadyMember) {
			return models.NewConflictError("User already in chat")
		}
		return err
	}

	s.appendEvent(ctx, &models.Event{
		ChatID:    chatID,
		EventType: models.EventTypeJoined,
		UserID:    userID,
	})
	return nil
}

// LeaveChat removes the caller from the chat. When the last member
// leaves, the chat and its history are deleted.
func (s *ChatService) LeaveChat(ctx context.Context, userID, chatID uint) error {
	if _, err := s.getChat(ctx, chatID); err != nil {
		return err
	}

	if err := s.chatRepo.RemoveMember(ctx, chatID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewValidationError("User not in chat")
		}
		return err
	}

	count, err := s.chatRepo.MemberCount(ctx, chatID)
	if err != nil {
		return err
	}
	if count == 0 {
		return s.chatRepo.Delete(ctx, chatID)
	}

	s.appendEvent(ctx, &models.Event{
		ChatID:    chatID,
		EventType: models.EventTypeLeaved,
		UserID:    userID,
	})
	return nil
}

// AddMember lets the chat owner enroll another user.
func (s *ChatService) AddMember(ctx context.Context, in MembershipInput) error {
	chat, err := s.getChat(ctx, in.ChatID)
	if err != nil {
		return err
	}
	if chat.OwnerID != in.ActorID {
		return models.NewUnauthorizedError("Only the chat owner can add members")
	}
	if in.ActorID == in.TargetID {
		return models.NewValidationError("You cannot add yourself")
	}
	if _, err := s.userRepo.GetByID(ctx, in.TargetID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("User", in.TargetID)
		}
		return err
	}

	if err := s.chatRepo.AddMember(ctx, in.ChatID, in.TargetID); err != nil {
		if errors.Is(err, repository.ErrAlreadyMember) {
			return models.NewConflictError("User already in chat")
		}
		return err
	}

	altered := in.TargetID
	s.appendEvent(ctx, &models.Event{
		ChatID:        in.ChatID,
		EventType:     models.EventTypeAdded,
		UserID:        in.ActorID,
		AlteredUserID: &altered,
	})
	return nil
}

// RemoveMember lets the chat owner expel another user. Owners leave via
// LeaveChat, not by removing themselves.
func (s *ChatService) RemoveMember(ctx context.Context, in MembershipInput) error {
	chat, err := s.getChat(ctx, in.ChatID)
	if err != nil {
		return err
	}
	if chat.OwnerID != in.ActorID {
		return models.NewUnauthorizedError("Only the chat owner can remove members")
	}
	if in.ActorID == in.TargetID {
		return models.NewValidationError("You cannot remove yourself, leave the chat instead")
	}

	if err := s.chatRepo.RemoveMember(ctx, in.ChatID, in.TargetID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewValidationError("User not in chat")
		}
		return err
	}

	altered := in.TargetID
	s.appendEvent(ctx, &models.Event{
		ChatID:        in.ChatID,
		EventType:     models.EventTypeRemoved,
		UserID:        in.ActorID,
		AlteredUserID: &altered,
	})
	return nil
}

func (s *ChatService) GetMembers(ctx context.Context, userID, chatID uint) ([]*models.User, error) {
	if _, err := s.GetChat(ctx, userID, chatID); err != nil {
		return nil, err
	}
	return s.chatRepo.GetMembers(ctx, chatID)
}

// History returns one page of the chat's merged message/event timeline,
// oldest first. Only members can read it.
func (s *ChatService) History(ctx context.Context, userID, chatID uint, limit, offset int) ([]models.HistoryItem, error) {
	if _, err := s.getChat(ctx, chatID); err != nil {
		return nil, err
	}

	member, err := s.chatRepo.IsMember(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, models.NewUnauthorizedError("You are not a member of this chat")
	}

	return s.chatRepo.History(ctx, chatID, limit, offset)
}

// IsMember reports whether the user belongs to the chat. Used by the
// WebSocket layer before wiring a connection into a room.
func (s *ChatService) IsMember(ctx context.Context, chatID, userID uint) (bool, error) {
	return s.chatRepo.IsMember(ctx, chatID, userID)
}
