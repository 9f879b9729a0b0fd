package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToken(t *testing.T) {
	s, app := newTestServer(t)
	signupUser(t, s, "alice")

	t.Run("valid credentials", func(t *testing.T) {
		req := jsonRequest(http.MethodPost, "/api/auth/token",
			map[string]string{"username": "alice", "password": "correct-horse"}, "")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		// Refresh token rides an httponly cookie, never the JSON body.
		cookies := resp.Header.Values("Set-Cookie")
		require.NotEmpty(t, cookies)
		assert.Contains(t, cookies[0], refreshCookieName+"=")
		assert.Contains(t, cookies[0], "HttpOnly")

		body := decodeBody[map[string]string](t, resp)
		assert.NotEmpty(t, body["access_token"])
		assert.Equal(t, "bearer", body["token_type"])
	})

	t.Run("wrong password", func(t *testing.T) {
		req := jsonRequest(http.MethodPost, "/api/auth/token",
			map[string]string{"username": "alice", "password": "wrong"}, "")
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("unknown user", func(t *testing.T) {
		req := jsonRequest(http.MethodPost, "/api/auth/token",
			map[string]string{"username": "nobody", "password": "whatever1"}, "")
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}

func TestCheckToken(t *testing.T) {
	s, app := newTestServer(t)
	alice := signupUser(t, s, "alice")

	t.Run("valid access token", func(t *testing.T) {
		req := jsonRequest(http.MethodGet, "/api/auth/check", nil, accessTokenFor(t, s, alice))
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody[map[string]any](t, resp)
		assert.Equal(t, true, body["valid"])
		assert.Equal(t, float64(alice.ID), body["user_id"])
	})

	t.Run("no token", func(t *testing.T) {
		req := jsonRequest(http.MethodGet, "/api/auth/check", nil, "")
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := jsonRequest(http.MethodGet, "/api/auth/check", nil, "not-a-jwt")
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("refresh token rejected as bearer", func(t *testing.T) {
		refresh, err := s.generateToken(alice.ID, alice.Username, "refresh", s.refreshTTL())
		require.NoError(t, err)

		req := jsonRequest(http.MethodGet, "/api/auth/check", nil, refresh)
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestRefresh(t *testing.T) {
	s, app := newTestServer(t)
	alice := signupUser(t, s, "alice")

	t.Run("valid refresh cookie", func(t *testing.T) {
		refresh, err := s.generateToken(alice.ID, alice.Username, "refresh", s.refreshTTL())
		require.NoError(t, err)

		req := jsonRequest(http.MethodPost, "/api/auth/refresh", nil, "")
		req.AddCookie(&http.Cookie{Name: refreshCookieName, Value: refresh})
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody[map[string]string](t, resp)
		assert.NotEmpty(t, body["access_token"])
	})

	t.Run("missing cookie", func(t *testing.T) {
		req := jsonRequest(http.MethodPost, "/api/auth/refresh", nil, "")
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("access token in cookie rejected", func(t *testing.T) {
		req := jsonRequest(http.MethodPost, "/api/auth/refresh", nil, "")
		req.AddCookie(&http.Cookie{Name: refreshCookieName, Value: accessTokenFor(t, s, alice)})
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestLogoutClearsCookie(t *testing.T) {
	_, app := newTestServer(t)

	req := jsonRequest(http.MethodPost, "/api/auth/logout", nil, "")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	cookies := resp.Header.Values("Set-Cookie")
	require.NotEmpty(t, cookies)
	assert.Contains(t, cookies[0], refreshCookieName+"=")
}
