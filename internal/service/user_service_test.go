package service

import (
	"context"
	"testing"

	"commune/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_CreateUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(repository.NewUserRepository(db), nil, nil)
	ctx := context.Background()

	t.Run("Valid", func(t *testing.T) {
		user, err := svc.CreateUser(ctx, CreateUserInput{Username: "alice", Password: "supersecret"})
		require.NoError(t, err)
		assert.NotZero(t, user.ID)
		assert.NotEqual(t, "supersecret", user.Password)
	})

	t.Run("Duplicate username", func(t *testing.T) {
		_, err := svc.CreateUser(ctx, CreateUserInput{Username: "alice", Password: "supersecret"})
		assert.Equal(t, "CONFLICT", appErrCode(t, err))
	})

	t.Run("Short username", func(t *testing.T) {
		_, err := svc.CreateUser(ctx, CreateUserInput{Username: "ab", Password: "supersecret"})
		assert.Equal(t, "VALIDATION_ERROR", appErrCode(t, err))
	})

	t.Run("Invalid characters", func(t *testing.T) {
		_, err := svc.CreateUser(ctx, CreateUserInput{Username: "bad name!", Password: "supersecret"})
		assert.Equal(t, "VALIDATION_ERROR", appErrCode(t, err))
	})

	t.Run("Short password", func(t *testing.T) {
		_, err := svc.CreateUser(ctx, CreateUserInput{Username: "bob", Password: "short"})
		assert.Equal(t, "VALIDATION_ERROR", appErrCode(t, err))
	})
}

func TestUserService_Authenticate(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(repository.NewUserRepository(db), nil, nil)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, CreateUserInput{Username: "carol", Password: "correcthorse"})
	require.NoError(t, err)

	t.Run("Correct credentials", func(t *testing.T) {
		user, err := svc.Authenticate(ctx, "carol", "correcthorse")
		require.NoError(t, err)
		assert.Equal(t, "carol", user.Username)
	})

	t.Run("Wrong password", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "carol", "batterystaple")
		assert.Equal(t, "UNAUTHORIZED", appErrCode(t, err))
	})

	t.Run("Unknown user", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "nobody", "whatever")
		assert.Equal(t, "UNAUTHORIZED", appErrCode(t, err))
	})
}

func TestUserService_Subscriptions(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(repository.NewUserRepository(db), nil, nil)
	ctx := context.Background()

	follower := newTestUser(t, db, "follower")
	target := newTestUser(t, db, "target")

	t.Run("Self subscription rejected", func(t *testing.T) {
		err := svc.Subscribe(ctx, follower.ID, follower.ID)
		assert.Equal(t, "VALIDATION_ERROR", appErrCode(t, err))
	})

	t.Run("Subscribe and repeat", func(t *testing.T) {
		require.NoError(t, svc.Subscribe(ctx, follower.ID, target.ID))
		// second subscribe is silently absorbed
		require.NoError(t, svc.Subscribe(ctx, follower.ID, target.ID))

		subs, err := svc.GetSubscriptions(ctx, follower.ID, 10, 0)
		require.NoError(t, err)
		assert.Len(t, subs, 1)
	})

	t.Run("Unsubscribe", func(t *testing.T) {
		require.NoError(t, svc.Unsubscribe(ctx, follower.ID, target.ID))
	})

	t.Run("Unsubscribe without edge", func(t *testing.T) {
		err := svc.Unsubscribe(ctx, follower.ID, target.ID)
		assert.Equal(t, "VALIDATION_ERROR", appErrCode(t, err))
	})

	t.Run("Subscribe to missing user", func(t *testing.T) {
		err := svc.Subscribe(ctx, follower.ID, 9999)
		assert.Equal(t, "NOT_FOUND", appErrCode(t, err))
	})
}

func TestUserService_DeleteUser(t *testing.T) {
	db := newTestDB(t)
	admins := map[uint]bool{}
	isAdmin := func(_ context.Context, userID uint) (bool, error) { return admins[userID], nil }
	svc := NewUserService(repository.NewUserRepository(db), nil, isAdmin)
	ctx := context.Background()

	victim := newTestUser(t, db, "victim")
	bystander := newTestUser(t, db, "bystander")
	moderator := newTestUser(t, db, "moderator")
	admins[moderator.ID] = true

	t.Run("Stranger cannot delete", func(t *testing.T) {
		err := svc.DeleteUser(ctx, bystander.ID, victim.ID)
		assert.Equal(t, "UNAUTHORIZED", appErrCode(t, err))
	})

	t.Run("Admin can delete", func(t *testing.T) {
		require.NoError(t, svc.DeleteUser(ctx, moderator.ID, victim.ID))
		_, err := svc.GetUser(ctx, victim.ID)
		assert.Equal(t, "NOT_FOUND", appErrCode(t, err))
	})
}
