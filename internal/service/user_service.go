package service

import (
	"context"
	"errors"
	"strings"

	"commune/internal/models"
	"commune/internal/repository"
	"commune/internal/storage"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserService implements account management and the subscription graph.
type UserService struct {
	userRepo repository.UserRepository
	avatars  *storage.AvatarStore
	isAdmin  func(ctx context.Context, userID uint) (bool, error)
}

type CreateUserInput struct {
	Username string
	Password string
}

type UpdateUserInput struct {
	UserID   uint
	Username string
	Password string
}

func NewUserService(
	userRepo repository.UserRepository,
	avatars *storage.AvatarStore,
	isAdmin func(ctx context.Context, userID uint) (bool, error),
) *UserService {
	return &UserService{
		userRepo: userRepo,
		avatars:  avatars,
		isAdmin:  isAdmin,
	}
}

func validateUsername(username string) error {
	if len(username) < 3 || len(username) > 32 {
		return models.NewValidationError("Username must be between 3 and 32 characters")
	}
	for _, r := range username {
		valid := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '_' || r == '-' || r == '.'
		if !valid {
			return models.NewValidationError("Username contains invalid characters")
		}
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return models.NewValidationError("Password must be at least 8 characters")
	}
	if len(password) > 72 {
		// bcrypt truncates beyond 72 bytes
		return models.NewValidationError("Password must be at most 72 characters")
	}
	return nil
}

func (s *UserService) CreateUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username: username,
		Password: string(hashed),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, models.NewConflictError("Username already taken")
		}
		return nil, err
	}
	return user, nil
}

// Authenticate verifies the credentials and returns the matching user.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewUnauthorizedError("Invalid username or password")
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.NewUnauthorizedError("Invalid username or password")
	}
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, err
	}
	return user, nil
}

// userOrderColumns are the columns ListUsers accepts for ordering.
var userOrderColumns = map[string]bool{
	"id":                true,
	"created_at":        true,
	"username":          true,
	"subscribers_count": true,
}

func (s *UserService) ListUsers(ctx context.Context, orderBy string, desc bool, limit, offset int) ([]*models.User, error) {
	if orderBy == "" {
		orderBy = "created_at"
	}
	if !userOrderColumns[orderBy] {
		return nil, models.NewValidationError("Cannot order users by " + orderBy)
	}
	return s.userRepo.List(ctx, orderBy, desc, limit, offset)
}

func (s *UserService) SearchUsers(ctx context.Context, query string, limit, offset int) ([]*models.User, error) {
	if strings.TrimSpace(query) == "" {
		return nil, models.NewValidationError("Search query is required")
	}
	return s.userRepo.Search(ctx, query, limit, offset)
}

func (s *UserService) UpdateUser(ctx context.Context, in UpdateUserInput) (*models.User, error) {
	user, err := s.GetUser(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	if in.Username != "" && in.Username != user.Username {
		username := strings.TrimSpace(in.Username)
		if err := validateUsername(username); err != nil {
			return nil, err
		}
		user.Username = username
	}
	if in.Password != "" {
		if err := validatePassword(in.Password); err != nil {
			return nil, err
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		user.Password = string(hashed)
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, models.NewConflictError("Username already taken")
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) DeleteUser(ctx context.Context, actorID, targetID uint) error {
	if actorID != targetID {
		if s.isAdmin == nil {
			return models.NewUnauthorizedError("You can only delete your own account")
		}
		admin, err := s.isAdmin(ctx, actorID)
		if err != nil {
			return err
		}
		if !admin {
			return models.NewUnauthorizedError("You can only delete your own account")
		}
	}
	if _, err := s.GetUser(ctx, targetID); err != nil {
		return err
	}
	if s.avatars != nil {
		_ = s.avatars.Remove(targetID)
	}
	return s.userRepo.Delete(ctx, targetID)
}

// Subscribe adds target to the user's subscriptions. Subscribing twice
// is a no-op; self-subscription is rejected.
func (s *UserService) Subscribe(ctx context.Context, userID, targetID uint) error {
	if userID == targetID {
		return models.NewValidationError("You cannot subscribe to yourself")
	}
	if _, err := s.GetUser(ctx, targetID); err != nil {
		return err
	}
	return s.userRepo.Subscribe(ctx, userID, targetID)
}

// Unsubscribe removes target from the user's subscriptions. Unlike the
// rating ledger, withdrawing a missing subscription is an error.
func (s *UserService) Unsubscribe(ctx context.Context, userID, targetID uint) error {
	if _, err := s.GetUser(ctx, targetID); err != nil {
		return err
	}
	if err := s.userRepo.Unsubscribe(ctx, userID, targetID); err != nil {
		if errors.Is(err, repository.ErrNotSubscribed) {
			return models.NewValidationError("User not in subscriptions")
		}
		return err
	}
	return nil
}

func (s *UserService) GetSubscriptions(ctx context.Context, userID uint, limit, offset int) ([]*models.User, error) {
	return s.userRepo.GetSubscriptions(ctx, userID, limit, offset)
}

func (s *UserService) GetSubscribers(ctx context.Context, userID uint, limit, offset int) ([]*models.User, error) {
	return s.userRepo.GetSubscribers(ctx, userID, limit, offset)
}

// SetAvatar decodes the upload, regenerates the thumbnail variants and
// flags the user as having an avatar.
func (s *UserService) SetAvatar(ctx context.Context, userID uint, data []byte) error {
	if s.avatars == nil {
		return models.NewValidationError("Avatar storage is not configured")
	}
	if _, err := s.GetUser(ctx, userID); err != nil {
		return err
	}
	if err := s.avatars.Save(userID, data); err != nil {
		if errors.Is(err, storage.ErrUnsupportedImage) {
			return models.NewValidationError("Unsupported image format")
		}
		return err
	}
	return s.userRepo.SetHasAvatar(ctx, userID, true)
}

// RemoveAvatar deletes all stored variants and clears the flag.
func (s *UserService) RemoveAvatar(ctx context.Context, userID uint) error {
	if s.avatars == nil {
		return models.NewValidationError("Avatar storage is not configured")
	}
	if _, err := s.GetUser(ctx, userID); err != nil {
		return err
	}
	if err := s.avatars.Remove(userID); err != nil {
		return err
	}
	return s.userRepo.SetHasAvatar(ctx, userID, false)
}

// OpenAvatar returns the stored avatar variant path for serving.
func (s *UserService) AvatarPath(ctx context.Context, userID uint, size int, format string) (string, error) {
	if s.avatars == nil {
		return "", models.NewNotFoundError("Avatar", userID)
	}
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if !user.HasAvatar {
		return "", models.NewNotFoundError("Avatar", userID)
	}
	path, err := s.avatars.Path(userID, size, format)
	if err != nil {
		if errors.Is(err, storage.ErrVariantNotFound) {
			return "", models.NewNotFoundError("Avatar", userID)
		}
		return "", err
	}
	return path, nil
}
