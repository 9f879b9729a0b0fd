package repository

import (
	"context"
	"testing"

	"commune/internal/cache"
	"commune/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withTestCache backs the cache package with a miniredis instance for
// the duration of one test.
func withTestCache(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(nil) })
	return mr
}

func TestPostRepository_GetByIDPopulatesCache(t *testing.T) {
	db := setupTestDB(t)
	mr := withTestCache(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author := createTestUser(t, db, "author")
	post := createTestPost(t, db, author.ID, "cached content")

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	require.NotNil(t, got.User)
	assert.True(t, mr.Exists(cache.PostKey(post.ID)))

	// The second read is served from the cache: a direct row change
	// stays invisible until an invalidating write.
	require.NoError(t, db.Model(&models.Post{}).Where("id = ?", post.ID).Update("content", "changed").Error)
	again, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "cached content", again.Content)
	require.NotNil(t, again.User)
	assert.Equal(t, "author", again.User.Username)

	rater := createTestUser(t, db, "rater")
	require.NoError(t, repo.Like(ctx, rater.ID, post.ID))
	assert.False(t, mr.Exists(cache.PostKey(post.ID)))
}

func TestChatRepository_GetByIDPopulatesCache(t *testing.T) {
	db := setupTestDB(t)
	mr := withTestCache(t)
	repo := NewChatRepository(db)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	chat := createTestChat(t, db, owner.ID, "general")

	got, err := repo.GetByID(ctx, chat.ID)
	require.NoError(t, err)
	assert.Len(t, got.Members, 1)
	assert.True(t, mr.Exists(cache.ChatKey(chat.ID)))

	// Membership changes invalidate the cached chat so the member list
	// never goes stale.
	joiner := createTestUser(t, db, "joiner")
	require.NoError(t, repo.AddMember(ctx, chat.ID, joiner.ID))
	assert.False(t, mr.Exists(cache.ChatKey(chat.ID)))

	fresh, err := repo.GetByID(ctx, chat.ID)
	require.NoError(t, err)
	assert.Len(t, fresh.Members, 2)
}

func TestChatRepository_HistoryFirstPageCached(t *testing.T) {
	db := setupTestDB(t)
	mr := withTestCache(t)
	repo := NewChatRepository(db)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	chat := createTestChat(t, db, owner.ID, "general")
	seedHistory(t, db, chat.ID, owner.ID)

	items, err := repo.History(ctx, chat.ID, DefaultHistoryPageSize, 0)
	require.NoError(t, err)
	require.Len(t, items, 4)
	assert.True(t, mr.Exists(cache.ChatHistoryKey(chat.ID)))

	cached, err := repo.History(ctx, chat.ID, DefaultHistoryPageSize, 0)
	require.NoError(t, err)
	require.Len(t, cached, 4)
	assert.Equal(t, models.HistoryKindEvent, cached[0].Kind)
	assert.Equal(t, "second", cached[3].Message.Content)

	// Resized or deeper windows bypass the cached page.
	window, err := repo.History(ctx, chat.ID, 2, 2)
	require.NoError(t, err)
	assert.Len(t, window, 2)

	// A new message invalidates the cached first page.
	msgRepo := NewMessageRepository(db)
	msg := &models.Message{ChatID: chat.ID, UserID: owner.ID, Content: "fresh"}
	require.NoError(t, msgRepo.Create(ctx, msg))
	assert.False(t, mr.Exists(cache.ChatHistoryKey(chat.ID)))

	after, err := repo.History(ctx, chat.ID, DefaultHistoryPageSize, 0)
	require.NoError(t, err)
	require.Len(t, after, 5)
	assert.Equal(t, "fresh", after[4].Message.Content)
}
