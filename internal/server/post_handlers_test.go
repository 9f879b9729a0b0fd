package server

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"commune/internal/models"
	"commune/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostCRUD(t *testing.T) {
	s, app := newTestServer(t)
	alice := signupUser(t, s, "alice")
	bob := signupUser(t, s, "bob")
	aliceToken := accessTokenFor(t, s, alice)
	bobToken := accessTokenFor(t, s, bob)

	var postID uint

	t.Run("create", func(t *testing.T) {
		req := jsonRequest(http.MethodPost, "/api/posts/",
			map[string]string{"content": "hello world"}, aliceToken)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		body := decodeBody[models.Post](t, resp)
		assert.Equal(t, "hello world", body.Content)
		assert.Equal(t, alice.ID, body.UserID)
		postID = body.ID
	})

	t.Run("create requires auth", func(t *testing.T) {
		req := jsonRequest(http.MethodPost, "/api/posts/",
			map[string]string{"content": "anon"}, "")
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("empty content", func(t *testing.T) {
		req := jsonRequest(http.MethodPost, "/api/posts/",
			map[string]string{"content": "   "}, aliceToken)
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("public read", func(t *testing.T) {
		req := jsonRequest(http.MethodGet, fmt.Sprintf("/api/posts/%d", postID), nil, "")
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("stranger cannot edit", func(t *testing.T) {
		req := jsonRequest(http.MethodPut, fmt.Sprintf("/api/posts/%d", postID),
			map[string]string{"content": "hijacked"}, bobToken)
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("owner edits", func(t *testing.T) {
		req := jsonRequest(http.MethodPut, fmt.Sprintf("/api/posts/%d", postID),
			map[string]string{"content": "edited"}, aliceToken)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody[models.Post](t, resp)
		assert.Equal(t, "edited", body.Content)
	})

	t.Run("owner deletes", func(t *testing.T) {
		req := jsonRequest(http.MethodDelete, fmt.Sprintf("/api/posts/%d", postID), nil, aliceToken)
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		getReq := jsonRequest(http.MethodGet, fmt.Sprintf("/api/posts/%d", postID), nil, "")
		getResp, err := app.Test(getReq)
		require.NoError(t, err)
		defer func() { _ = getResp.Body.Close() }()
		assert.Equal(t, http.StatusNotFound, getResp.StatusCode)
	})
}

func TestPostRatingRoutes(t *testing.T) {
	s, app := newTestServer(t)
	alice := signupUser(t, s, "alice")
	bob := signupUser(t, s, "bob")
	bobToken := accessTokenFor(t, s, bob)

	post, err := s.postService.CreatePost(context.Background(), service.CreatePostInput{
		UserID:  alice.ID,
		Content: "rate me",
	})
	require.NoError(t, err)
	target := fmt.Sprintf("/api/posts/%d", post.ID)

	t.Run("like", func(t *testing.T) {
		req := jsonRequest(http.MethodPost, target+"/like", nil, bobToken)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody[models.PostRating](t, resp)
		assert.Equal(t, 1, body.Likes)
		assert.Equal(t, 0, body.Dislikes)
	})

	t.Run("double like conflicts", func(t *testing.T) {
		req := jsonRequest(http.MethodPost, target+"/like", nil, bobToken)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)

		body := decodeBody[map[string]string](t, resp)
		assert.Equal(t, "Post already rated", body["error"])
	})

	t.Run("dislike flips the like", func(t *testing.T) {
		req := jsonRequest(http.MethodPost, target+"/dislike", nil, bobToken)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody[models.PostRating](t, resp)
		assert.Equal(t, 0, body.Likes)
		assert.Equal(t, 1, body.Dislikes)
	})

	t.Run("undislike", func(t *testing.T) {
		req := jsonRequest(http.MethodDelete, target+"/dislike", nil, bobToken)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody[models.PostRating](t, resp)
		assert.Equal(t, 0, body.Dislikes)
	})

	t.Run("unlike without a like is a no-op", func(t *testing.T) {
		req := jsonRequest(http.MethodDelete, target+"/like", nil, bobToken)
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("public rating read", func(t *testing.T) {
		req := jsonRequest(http.MethodGet, target+"/rating", nil, "")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody[models.PostRating](t, resp)
		assert.Equal(t, post.ID, body.PostID)
	})
}

func TestSubscriptionFeed(t *testing.T) {
	s, app := newTestServer(t)
	alice := signupUser(t, s, "alice")
	bob := signupUser(t, s, "bob")
	carol := signupUser(t, s, "carol")
	ctx := context.Background()

	_, err := s.postService.CreatePost(ctx, service.CreatePostInput{UserID: bob.ID, Content: "from bob"})
	require.NoError(t, err)
	_, err = s.postService.CreatePost(ctx, service.CreatePostInput{UserID: carol.ID, Content: "from carol"})
	require.NoError(t, err)

	require.NoError(t, s.userService.Subscribe(ctx, alice.ID, bob.ID))

	req := jsonRequest(http.MethodGet, "/api/posts/subscriptions", nil, accessTokenFor(t, s, alice))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[[]models.Post](t, resp)
	require.Len(t, body, 1)
	assert.Equal(t, "from bob", body[0].Content)
}
