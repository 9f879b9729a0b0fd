package service

import (
	"context"
	"testing"

	"commune/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newMessageFixture(t *testing.T) (*gorm.DB, *ChatService, *MessageService) {
	t.Helper()
	db := newTestDB(t)
	chatSvc := newChatService(db, nil)
	msgSvc := NewMessageService(repository.NewMessageRepository(db), repository.NewChatRepository(db), nil)
	return db, chatSvc, msgSvc
}

func TestMessageService_SendMessage(t *testing.T) {
	db, chatSvc, msgSvc := newMessageFixture(t)
	ctx := context.Background()

	owner := newTestUser(t, db, "owner")
	stranger := newTestUser(t, db, "stranger")

	chat, err := chatSvc.CreateChat(ctx, CreateChatInput{OwnerID: owner.ID, Title: "room"})
	require.NoError(t, err)

	t.Run("Member sends", func(t *testing.T) {
		msg, err := msgSvc.SendMessage(ctx, SendMessageInput{UserID: owner.ID, ChatID: chat.ID, Content: " hello "})
		require.NoError(t, err)
		assert.Equal(t, "hello", msg.Content)
		require.NotNil(t, msg.User)
		assert.Equal(t, "owner", msg.User.Username)
	})

	t.Run("Non-member rejected", func(t *testing.T) {
		_, err := msgSvc.SendMessage(ctx, SendMessageInput{UserID: stranger.ID, ChatID: chat.ID, Content: "hi"})
		assert.Equal(t, "UNAUTHORIZED", appErrCode(t, err))
	})

	t.Run("Empty content", func(t *testing.T) {
		_, err := msgSvc.SendMessage(ctx, SendMessageInput{UserID: owner.ID, ChatID: chat.ID, Content: "   "})
		assert.Equal(t, "VALIDATION_ERROR", appErrCode(t, err))
	})

	t.Run("Missing chat", func(t *testing.T) {
		_, err := msgSvc.SendMessage(ctx, SendMessageInput{UserID: owner.ID, ChatID: 9999, Content: "hi"})
		assert.Equal(t, "NOT_FOUND", appErrCode(t, err))
	})
}

func TestMessageService_UpdateAndDelete(t *testing.T) {
	db, chatSvc, msgSvc := newMessageFixture(t)
	ctx := context.Background()

	owner := newTestUser(t, db, "owner")
	member := newTestUser(t, db, "member")

	chat, err := chatSvc.CreateChat(ctx, CreateChatInput{OwnerID: owner.ID, Title: "room"})
	require.NoError(t, err)
	require.NoError(t, chatSvc.JoinChat(ctx, member.ID, chat.ID))

	msg, err := msgSvc.SendMessage(ctx, SendMessageInput{UserID: member.ID, ChatID: chat.ID, Content: "draft"})
	require.NoError(t, err)

	t.Run("Only the author edits", func(t *testing.T) {
		_, err := msgSvc.UpdateMessage(ctx, UpdateMessageInput{UserID: owner.ID, MessageID: msg.ID, Content: "hijack"})
		assert.Equal(t, "UNAUTHORIZED", appErrCode(t, err))

		updated, err := msgSvc.UpdateMessage(ctx, UpdateMessageInput{UserID: member.ID, MessageID: msg.ID, Content: "final"})
		require.NoError(t, err)
		assert.Equal(t, "final", updated.Content)
	})

	t.Run("Chat owner may delete another member's message", func(t *testing.T) {
		require.NoError(t, msgSvc.DeleteMessage(ctx, owner.ID, msg.ID))

		_, err := msgSvc.GetMessage(ctx, member.ID, msg.ID)
		assert.Equal(t, "NOT_FOUND", appErrCode(t, err))
	})

	t.Run("Stranger may not delete", func(t *testing.T) {
		stranger := newTestUser(t, db, "stranger")
		second, err := msgSvc.SendMessage(ctx, SendMessageInput{UserID: member.ID, ChatID: chat.ID, Content: "again"})
		require.NoError(t, err)

		err = msgSvc.DeleteMessage(ctx, stranger.ID, second.ID)
		assert.Equal(t, "UNAUTHORIZED", appErrCode(t, err))
	})
}

func TestMessageService_ListMessages(t *testing.T) {
	db, chatSvc, msgSvc := newMessageFixture(t)
	ctx := context.Background()

	owner := newTestUser(t, db, "owner")
	chat, err := chatSvc.CreateChat(ctx, CreateChatInput{OwnerID: owner.ID, Title: "room"})
	require.NoError(t, err)

	for _, content := range []string{"one", "two", "three"} {
		_, err := msgSvc.SendMessage(ctx, SendMessageInput{UserID: owner.ID, ChatID: chat.ID, Content: content})
		require.NoError(t, err)
	}

	msgs, err := msgSvc.ListMessages(ctx, owner.ID, chat.ID, 2, 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)

	stranger := newTestUser(t, db, "stranger")
	_, err = msgSvc.ListMessages(ctx, stranger.ID, chat.ID, 10, 0)
	assert.Equal(t, "UNAUTHORIZED", appErrCode(t, err))
}
