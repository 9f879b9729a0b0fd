package server

import (
	"fmt"
	"time"

	"commune/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const refreshCookieName = "refresh_token"

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Token handles user login
// @Summary Login
// @Description Exchange username and password for an access token. A refresh token is set as an httponly cookie.
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body credentialsRequest true "User credentials"
// @Success 200 {object} tokenResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /api/auth/token [post]
func (s *Server) Token(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.Authenticate(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return models.RespondWithDomainError(c, err)
	}

	return s.issueTokenPair(c, user.ID, user.Username)
}

// Refresh handles access token renewal
// @Summary Refresh token
// @Description Issue a fresh token pair from the refresh cookie
// @Tags auth
// @Produce json
// @Success 200 {object} tokenResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/auth/refresh [post]
func (s *Server) Refresh(c *fiber.Ctx) error {
	cookie := c.Cookies(refreshCookieName)
	if cookie == "" {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Refresh token required"))
	}

	claims, err := s.parseToken(cookie)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError(err.Error()))
	}
	if tokenType, _ := claims["type"].(string); tokenType != "refresh" {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid token type"))
	}

	userID, err := subjectUserID(claims)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError(err.Error()))
	}

	// Re-read the user so a renamed or deleted account cannot keep
	// refreshing with stale claims.
	user, err := s.userService.GetUser(c.UserContext(), userID)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Account no longer exists"))
	}

	// Rotate: blacklist the old refresh token's JTI for its remaining life.
	s.blacklistClaims(c, claims)

	return s.issueTokenPair(c, user.ID, user.Username)
}

// Logout revokes the current session
// @Summary Logout
// @Description Revoke the refresh cookie and blacklist the presented tokens
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]string
// @Router /api/auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	if cookie := c.Cookies(refreshCookieName); cookie != "" {
		if claims, err := s.parseToken(cookie); err == nil {
			s.blacklistClaims(c, claims)
		}
	}

	c.Cookie(&fiber.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		SameSite: "Strict",
		Path:     "/api/auth",
	})

	return c.JSON(fiber.Map{"message": "Logged out"})
}

// CheckToken reports whether the presented access token is valid
// @Summary Check token
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} models.ErrorResponse
// @Router /api/auth/check [get]
func (s *Server) CheckToken(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"valid":   true,
		"user_id": currentUserID(c),
	})
}

// IssueWSTicket creates a short-lived single-use WebSocket ticket
// @Summary WebSocket ticket
// @Description Issue a single-use ticket for the WebSocket endpoint. Browsers cannot set headers on WS upgrade requests.
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Router /api/ws/ticket [post]
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	if s.redis == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewValidationError("WebSocket tickets are unavailable"))
	}

	userID := currentUserID(c)
	ticket := uuid.NewString()
	key := fmt.Sprintf("ws_ticket:%s", ticket)
	if err := s.redis.SetEx(c.Context(), key, fmt.Sprintf("%d", userID), 30*time.Second).Err(); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{"ticket": ticket})
}

func (s *Server) accessTTL() time.Duration {
	return time.Duration(s.config.AccessTTLMin) * time.Minute
}

func (s *Server) refreshTTL() time.Duration {
	return time.Duration(s.config.RefreshTTLHours) * time.Hour
}

func (s *Server) issueTokenPair(c *fiber.Ctx, userID uint, username string) error {
	accessTTL := s.accessTTL()
	refreshTTL := s.refreshTTL()

	accessToken, err := s.generateToken(userID, username, "access", accessTTL)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}
	refreshToken, err := s.generateToken(userID, username, "refresh", refreshTTL)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	c.Cookie(&fiber.Cookie{
		Name:     refreshCookieName,
		Value:    refreshToken,
		Expires:  time.Now().Add(refreshTTL),
		HTTPOnly: true,
		SameSite: "Strict",
		Path:     "/api/auth",
	})

	return c.JSON(tokenResponse{
		AccessToken: accessToken,
		TokenType:   "bearer",
	})
}

func (s *Server) generateToken(userID uint, username, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      fmt.Sprintf("%d", userID),
		"username": username,
		"type":     tokenType,
		"iss":      tokenIssuer,
		"aud":      tokenAudience,
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"exp":      now.Add(ttl).Unix(),
		"jti":      generateJTI(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

func generateJTI() string {
	return fmt.Sprintf("%d-%s", time.Now().Unix(), uuid.New().String()[:8])
}

// blacklistClaims marks the token's JTI revoked for its remaining
// lifetime. Best-effort: without Redis revocation is a no-op.
func (s *Server) blacklistClaims(c *fiber.Ctx, claims jwt.MapClaims) {
	if s.redis == nil {
		return
	}
	jti, _ := claims["jti"].(string)
	if jti == "" {
		return
	}
	ttl := time.Hour
	if exp, ok := claims["exp"].(float64); ok {
		remaining := time.Until(time.Unix(int64(exp), 0))
		if remaining > 0 {
			ttl = remaining
		}
	}
	s.redis.SetEx(c.Context(), "blacklist:"+jti, "1", ttl)
}
