package service

import (
	"context"
	"errors"

	"commune/internal/models"
	"commune/internal/repository"

	"gorm.io/gorm"
)

// EventService exposes read access to the membership event log.
type EventService struct {
	eventRepo repository.EventRepository
	chatRepo  repository.ChatRepository
}

func NewEventService(eventRepo repository.EventRepository, chatRepo repository.ChatRepository) *EventService {
	return &EventService{eventRepo: eventRepo, chatRepo: chatRepo}
}

func (s *EventService) ListEvents(ctx context.Context, userID, chatID uint, limit, offset int) ([]*models.Event, error) {
	if _, err := s.chatRepo.GetByID(ctx, chatID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Chat", chatID)
		}
		return nil, err
	}
	member, err := s.chatRepo.IsMember(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, models.NewUnauthorizedError("You are not a member of this chat")
	}
	events, err := s.eventRepo.ListByChat(ctx, chatID, limit, offset)
	if err != nil {
		return nil, err
	}
	// newest window, ascending within the page
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}

func (s *EventService) GetEvent(ctx context.Context, userID, eventID uint) (*models.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Event", eventID)
		}
		return nil, err
	}
	member, err := s.chatRepo.IsMember(ctx, event.ChatID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, models.NewUnauthorizedError("You are not a member of this chat")
	}
	return event, nil
}
