package repository

import (
	"context"
	"testing"

	"commune/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createTestPost(t *testing.T, db *gorm.DB, userID uint, content string) *models.Post {
	t.Helper()
	post := &models.Post{Content: content, UserID: userID}
	require.NoError(t, db.Create(post).Error)
	return post
}

func TestPostRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author := createTestUser(t, db, "author")
	post := &models.Post{Content: "hello world", UserID: author.ID}
	require.NoError(t, repo.Create(ctx, post))

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello world", got.Content)
	require.NotNil(t, got.User)
	assert.Equal(t, "author", got.User.Username)
}

func TestPostRepository_Search(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author := createTestUser(t, db, "author")
	createTestPost(t, db, author.ID, "Go generics explained")
	createTestPost(t, db, author.ID, "cooking with gas")

	found, err := repo.Search(ctx, "GENERICS", 10, 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Contains(t, found[0].Content, "generics")
}

func TestPostRepository_ListOrdering(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author := createTestUser(t, db, "author")
	rater := createTestUser(t, db, "rater")
	createTestPost(t, db, author.ID, "ignored")
	hit := createTestPost(t, db, author.ID, "crowd favourite")
	require.NoError(t, repo.Like(ctx, rater.ID, hit.ID))

	byLikes, err := repo.List(ctx, "likes", true, 10, 0)
	require.NoError(t, err)
	require.Len(t, byLikes, 2)
	assert.Equal(t, hit.ID, byLikes[0].ID)

	byID, err := repo.List(ctx, "id", false, 10, 0)
	require.NoError(t, err)
	require.Len(t, byID, 2)
	assert.Equal(t, "ignored", byID[0].Content)
}

func TestPostRepository_LikeBumpsCounterAndEdge(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author := createTestUser(t, db, "author")
	rater := createTestUser(t, db, "rater")
	post := createTestPost(t, db, author.ID, "rate me")

	require.NoError(t, repo.Like(ctx, rater.ID, post.ID))

	rating, err := repo.GetRating(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, rating.Likes)
	assert.Equal(t, 0, rating.Dislikes)

	liked, err := repo.IsLiked(ctx, rater.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, liked)
}

func TestPostRepository_DuplicateLikeRejected(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author := createTestUser(t, db, "author")
	rater := createTestUser(t, db, "rater")
	post := createTestPost(t, db, author.ID, "rate me")

	require.NoError(t, repo.Like(ctx, rater.ID, post.ID))
	err := repo.Like(ctx, rater.ID, post.ID)
	assert.ErrorIs(t, err, ErrAlreadyRated)

	rating, err := repo.GetRating(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, rating.Likes)
}

func TestPostRepository_LikeFlipsExistingDislike(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author := createTestUser(t, db, "author")
	rater := createTestUser(t, db, "rater")
	post := createTestPost(t, db, author.ID, "divisive")

	require.NoError(t, repo.Dislike(ctx, rater.ID, post.ID))
	require.NoError(t, repo.Like(ctx, rater.ID, post.ID))

	rating, err := repo.GetRating(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, rating.Likes)
	assert.Equal(t, 0, rating.Dislikes)

	disliked, err := repo.IsDisliked(ctx, rater.ID, post.ID)
	require.NoError(t, err)
	assert.False(t, disliked)
}

func TestPostRepository_DislikeFlipsExistingLike(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author := createTestUser(t, db, "author")
	rater := createTestUser(t, db, "rater")
	post := createTestPost(t, db, author.ID, "divisive")

	require.NoError(t, repo.Like(ctx, rater.ID, post.ID))
	require.NoError(t, repo.Dislike(ctx, rater.ID, post.ID))

	rating, err := repo.GetRating(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, rating.Likes)
	assert.Equal(t, 1, rating.Dislikes)
}

func TestPostRepository_UnlikeMissingEdgeIsNoop(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author := createTestUser(t, db, "author")
	rater := createTestUser(t, db, "rater")
	post := createTestPost(t, db, author.ID, "rate me")

	require.NoError(t, repo.Unlike(ctx, rater.ID, post.ID))
	require.NoError(t, repo.Undislike(ctx, rater.ID, post.ID))

	rating, err := repo.GetRating(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, rating.Likes)
	assert.Equal(t, 0, rating.Dislikes)
}

func TestPostRepository_UnlikeDecrementsCounter(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author := createTestUser(t, db, "author")
	rater := createTestUser(t, db, "rater")
	post := createTestPost(t, db, author.ID, "rate me")

	require.NoError(t, repo.Like(ctx, rater.ID, post.ID))
	require.NoError(t, repo.Unlike(ctx, rater.ID, post.ID))

	rating, err := repo.GetRating(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, rating.Likes)
}

func TestPostRepository_RatingCountsDistinctUsers(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author := createTestUser(t, db, "author")
	post := createTestPost(t, db, author.ID, "popular")

	for _, name := range []string{"u1", "u2", "u3"} {
		u := createTestUser(t, db, name)
		require.NoError(t, repo.Like(ctx, u.ID, post.ID))
	}
	hater := createTestUser(t, db, "hater")
	require.NoError(t, repo.Dislike(ctx, hater.ID, post.ID))

	rating, err := repo.GetRating(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, rating.Likes)
	assert.Equal(t, 1, rating.Dislikes)
}

func TestPostRepository_Delete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author := createTestUser(t, db, "author")
	post := createTestPost(t, db, author.ID, "short lived")

	require.NoError(t, repo.Delete(ctx, post.ID))
	_, err := repo.GetByID(ctx, post.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
