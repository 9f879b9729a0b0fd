package service

import (
	"context"
	"testing"

	"commune/internal/models"
	"commune/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventService_ListEvents(t *testing.T) {
	db := newTestDB(t)
	chatSvc := newChatService(db, nil)
	evtSvc := NewEventService(repository.NewEventRepository(db), repository.NewChatRepository(db))
	ctx := context.Background()

	owner := newTestUser(t, db, "owner")
	guest := newTestUser(t, db, "guest")

	chat, err := chatSvc.CreateChat(ctx, CreateChatInput{OwnerID: owner.ID, Title: "room"})
	require.NoError(t, err)
	require.NoError(t, chatSvc.JoinChat(ctx, guest.ID, chat.ID))

	t.Run("Members see the log", func(t *testing.T) {
		events, err := evtSvc.ListEvents(ctx, guest.ID, chat.ID, 10, 0)
		require.NoError(t, err)
		require.Len(t, events, 2)
		// newest window, oldest first within the page
		assert.Equal(t, models.EventTypeCreated, events[0].EventType)
		assert.Equal(t, models.EventTypeJoined, events[1].EventType)
	})

	t.Run("Outsiders are rejected", func(t *testing.T) {
		stranger := newTestUser(t, db, "stranger")
		_, err := evtSvc.ListEvents(ctx, stranger.ID, chat.ID, 10, 0)
		assert.Equal(t, "UNAUTHORIZED", appErrCode(t, err))
	})

	t.Run("Missing chat", func(t *testing.T) {
		_, err := evtSvc.ListEvents(ctx, guest.ID, 9999, 10, 0)
		assert.Equal(t, "NOT_FOUND", appErrCode(t, err))
	})
}
