package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"commune/internal/config"
	"commune/internal/database"
	"commune/internal/featureflags"
	"commune/internal/models"
	"commune/internal/notifications"
	"commune/internal/repository"
	"commune/internal/service"
	"commune/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestServer wires a Server against in-memory sqlite with no Redis.
// Metrics middleware is skipped so repeated registrations cannot collide.
func newTestServer(t *testing.T) (*Server, *fiber.App) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))

	avatars, err := storage.NewAvatarStore(t.TempDir())
	require.NoError(t, err)

	cfg := &config.Config{
		JWTSecret:       "test-secret-0123456789abcdef0123456789ab",
		Port:            "8000",
		Env:             "test",
		AccessTTLMin:    30,
		RefreshTTLHours: 168,
		FeatureFlags:    "new_feed=on,dark_mode=off",
	}

	s := &Server{
		config:      cfg,
		db:          db,
		userRepo:    repository.NewUserRepository(db),
		postRepo:    repository.NewPostRepository(db),
		chatRepo:    repository.NewChatRepository(db),
		messageRepo: repository.NewMessageRepository(db),
		eventRepo:   repository.NewEventRepository(db),
	}
	s.userService = service.NewUserService(s.userRepo, avatars, s.isAdminByUserID)
	s.postService = service.NewPostService(s.postRepo, s.isAdminByUserID)
	s.chatService = service.NewChatService(s.chatRepo, s.eventRepo, s.userRepo, s.isAdminByUserID)
	s.messageService = service.NewMessageService(s.messageRepo, s.chatRepo, s.isAdminByUserID)
	s.eventService = service.NewEventService(s.eventRepo, s.chatRepo)
	s.notifier = notifications.NewNotifier(nil)
	s.chatHub = notifications.NewChatHub(nil)
	s.flags = featureflags.NewManager(cfg.FeatureFlags)

	app := fiber.New()
	s.SetupRoutes(app)
	return s, app
}

// signupUser creates an account through the service layer and returns it.
func signupUser(t *testing.T, s *Server, username string) *models.User {
	t.Helper()
	user, err := s.userService.CreateUser(context.Background(), service.CreateUserInput{
		Username: username,
		Password: "correct-horse",
	})
	require.NoError(t, err)
	return user
}

// accessTokenFor mints a valid bearer token for the user.
func accessTokenFor(t *testing.T, s *Server, user *models.User) string {
	t.Helper()
	token, err := s.generateToken(user.ID, user.Username, "access", 30*time.Minute)
	require.NoError(t, err)
	return token
}

func jsonRequest(method, target string, body any, token string) *http.Request {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}
