package server

import (
	"net/http"
	"testing"

	"commune/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignup(t *testing.T) {
	_, app := newTestServer(t)

	t.Run("creates account", func(t *testing.T) {
		req := jsonRequest(http.MethodPost, "/api/users/",
			map[string]string{"username": "alice", "password": "correct-horse"}, "")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		body := decodeBody[models.User](t, resp)
		assert.Equal(t, "alice", body.Username)
		assert.NotZero(t, body.ID)
	})

	t.Run("duplicate username", func(t *testing.T) {
		req := jsonRequest(http.MethodPost, "/api/users/",
			map[string]string{"username": "alice", "password": "correct-horse"}, "")
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("weak password", func(t *testing.T) {
		req := jsonRequest(http.MethodPost, "/api/users/",
			map[string]string{"username": "bob", "password": "short"}, "")
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("password never serialized", func(t *testing.T) {
		req := jsonRequest(http.MethodPost, "/api/users/",
			map[string]string{"username": "carol", "password": "correct-horse"}, "")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		raw := decodeBody[map[string]any](t, resp)
		_, leaked := raw["password"]
		assert.False(t, leaked)
	})
}

func TestUserListOrdering(t *testing.T) {
	s, app := newTestServer(t)
	signupUser(t, s, "bravo")
	signupUser(t, s, "alpha")
	token := accessTokenFor(t, s, signupUser(t, s, "charlie"))

	t.Run("order by username ascending", func(t *testing.T) {
		req := jsonRequest(http.MethodGet, "/api/users/list?order=username&order_desc=false", nil, token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody[[]models.User](t, resp)
		require.Len(t, body, 3)
		assert.Equal(t, "alpha", body[0].Username)
		assert.Equal(t, "charlie", body[2].Username)
	})

	t.Run("unknown order column", func(t *testing.T) {
		req := jsonRequest(http.MethodGet, "/api/users/list?order=password", nil, token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestProfileRoutes(t *testing.T) {
	s, app := newTestServer(t)
	alice := signupUser(t, s, "alice")
	token := accessTokenFor(t, s, alice)

	t.Run("me", func(t *testing.T) {
		req := jsonRequest(http.MethodGet, "/api/users/me", nil, token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody[models.User](t, resp)
		assert.Equal(t, alice.ID, body.ID)
	})

	t.Run("me requires auth", func(t *testing.T) {
		req := jsonRequest(http.MethodGet, "/api/users/me", nil, "")
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("update username", func(t *testing.T) {
		req := jsonRequest(http.MethodPut, "/api/users/me",
			map[string]string{"username": "alice2"}, token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody[models.User](t, resp)
		assert.Equal(t, "alice2", body.Username)
	})

	t.Run("public lookup", func(t *testing.T) {
		req := jsonRequest(http.MethodGet, "/api/users/1", nil, "")
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("missing user is 404", func(t *testing.T) {
		req := jsonRequest(http.MethodGet, "/api/users/9999", nil, "")
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestSubscriptionRoutes(t *testing.T) {
	s, app := newTestServer(t)
	alice := signupUser(t, s, "alice")
	bob := signupUser(t, s, "bob")
	token := accessTokenFor(t, s, alice)

	t.Run("subscribe", func(t *testing.T) {
		req := jsonRequest(http.MethodPost, "/api/users/2/subscribe", nil, token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("subscribe is idempotent", func(t *testing.T) {
		req := jsonRequest(http.MethodPost, "/api/users/2/subscribe", nil, token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("self subscription rejected", func(t *testing.T) {
		req := jsonRequest(http.MethodPost, "/api/users/1/subscribe", nil, token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("subscriptions list", func(t *testing.T) {
		req := jsonRequest(http.MethodGet, "/api/users/1/subscriptions", nil, token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody[[]models.User](t, resp)
		require.Len(t, body, 1)
		assert.Equal(t, bob.ID, body[0].ID)
	})

	t.Run("unsubscribe", func(t *testing.T) {
		req := jsonRequest(http.MethodDelete, "/api/users/2/unsubscribe", nil, token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("unsubscribe without edge is an error", func(t *testing.T) {
		req := jsonRequest(http.MethodDelete, "/api/users/2/unsubscribe", nil, token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		body := decodeBody[map[string]string](t, resp)
		assert.Equal(t, "User not in subscriptions", body["error"])
	})
}

func TestOnlineUsersEmpty(t *testing.T) {
	s, app := newTestServer(t)
	alice := signupUser(t, s, "alice")

	req := jsonRequest(http.MethodGet, "/api/users/online", nil, accessTokenFor(t, s, alice))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[map[string]any](t, resp)
	assert.Equal(t, float64(0), body["count"])
}
