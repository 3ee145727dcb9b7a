package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dental-captcha/internal/pkg/jwtutil"
	"dental-captcha/internal/testutil"
)

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	auth := NewAuthService(store.Users, "test-secret", time.Hour)

	registered, err := auth.Register(ctx, RegisterInput{
		Username:  "alice",
		Email:     "Alice@Example.com",
		Password:  "correct-horse",
		FirstName: " Alice ",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", registered.User.Email)
	assert.Equal(t, "Alice", registered.User.FirstName)
	assert.NotEqual(t, "correct-horse", registered.User.PasswordHash)

	claims, err := jwtutil.ParseToken("test-secret", registered.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, claims.UserID)
	assert.False(t, claims.IsAdmin)

	loggedIn, err := auth.Login(ctx, LoginInput{Username: "alice", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, loggedIn.User.ID)

	_, err = auth.Login(ctx, LoginInput{Username: "alice", Password: "wrong-horse"})
	assert.ErrorIs(t, err, ErrInvalidCredential)
	_, err = auth.Login(ctx, LoginInput{Username: "nobody", Password: "correct-horse"})
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestRegisterConflicts(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	auth := NewAuthService(store.Users, "test-secret", time.Hour)

	_, err := auth.Register(ctx, RegisterInput{Username: "alice", Email: "alice@example.com", Password: "password1"})
	require.NoError(t, err)

	_, err = auth.Register(ctx, RegisterInput{Username: "alice", Email: "other@example.com", Password: "password1"})
	assert.ErrorIs(t, err, ErrUsernameExists)
	_, err = auth.Register(ctx, RegisterInput{Username: "alice2", Email: "ALICE@example.com", Password: "password1"})
	assert.ErrorIs(t, err, ErrEmailExists)
	_, err = auth.Register(ctx, RegisterInput{Username: "bob", Email: "bob@example.com", Password: "short"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateAdminUserCarriesClaim(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	auth := NewAuthService(store.Users, "test-secret", time.Hour)

	_, err := auth.CreateUser(ctx, "admin", "admin@captcha.local", "admin123", true)
	require.NoError(t, err)

	result, err := auth.Login(ctx, LoginInput{Username: "admin", Password: "admin123"})
	require.NoError(t, err)
	claims, err := jwtutil.ParseToken("test-secret", result.Token)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin)
}

func TestPromoteAndDemote(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	auth := NewAuthService(store.Users, "test-secret", time.Hour)
	root := testutil.SeedUser(t, store, "root")
	alice := testutil.SeedUser(t, store, "alice")
	require.NoError(t, store.Users.SetAdmin(ctx, root.ID, true))

	promoted, err := auth.PromoteUser(ctx, " Alice@Captcha.local ")
	require.NoError(t, err)
	assert.True(t, promoted.IsAdmin)
	isAdmin, err := auth.IsAdmin(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, isAdmin)

	_, err = auth.PromoteUser(ctx, "alice@captcha.local")
	assert.ErrorIs(t, err, ErrAlreadyAdmin)
	_, err = auth.PromoteUser(ctx, "nobody@captcha.local")
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = auth.PromoteUser(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = auth.DemoteUser(ctx, root.ID, "root@captcha.local")
	assert.ErrorIs(t, err, ErrCannotDemoteSelf)

	demoted, err := auth.DemoteUser(ctx, root.ID, "alice@captcha.local")
	require.NoError(t, err)
	assert.False(t, demoted.IsAdmin)
	isAdmin, err = auth.IsAdmin(ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, isAdmin)

	_, err = auth.DemoteUser(ctx, root.ID, "alice@captcha.local")
	assert.ErrorIs(t, err, ErrNotAdmin)

	isAdmin, err = auth.IsAdmin(ctx, 9999)
	require.NoError(t, err)
	assert.False(t, isAdmin, "unknown users are never admins")
}

func TestSetDataConsent(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	auth := NewAuthService(store.Users, "test-secret", time.Hour)
	alice := testutil.SeedUser(t, store, "alice")

	user, err := auth.SetDataConsent(ctx, alice.ID, true)
	require.NoError(t, err)
	assert.True(t, user.DataConsent)
	require.NotNil(t, user.ConsentUpdatedAt)

	stored, err := store.Users.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, stored.DataConsent)

	_, err = auth.SetDataConsent(ctx, alice.ID, false)
	require.NoError(t, err)
	stored, err = store.Users.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, stored.DataConsent)

	_, err = auth.SetDataConsent(ctx, 9999, true)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
