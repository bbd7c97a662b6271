package service

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ndatsenko/pulsemon/internal/config"
	"github.com/ndatsenko/pulsemon/internal/hash"
	"github.com/ndatsenko/pulsemon/internal/mykafka"
	"github.com/ndatsenko/pulsemon/internal/rolecache"
	"github.com/ndatsenko/pulsemon/internal/session"
	"github.com/ndatsenko/pulsemon/internal/store"
	"github.com/ndatsenko/pulsemon/internal/token"
)

var testSecret = []byte("test-secret")

func initTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if err := config.Migrate(db); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}
	return db
}

func newService(t *testing.T) *AuthService {
	db := initTestDB(t)
	roles := store.NewRoleStore(db)
	require.NoError(t, roles.EnsureDefaults(context.Background()))
	return &AuthService{
		Users:     store.NewUserStore(db),
		Roles:     roles,
		Sessions:  session.NewStore(db),
		RoleCache: rolecache.New(time.Minute),
		Producer:  &mykafka.Producer{},
		Secret:    testSecret,
		TokenTTL:  time.Hour,
	}
}

func TestRegister(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	user, err := s.Register(ctx, "  alice  ", " alice@example.com ", "password")
	require.NoError(t, err)
	require.NotZero(t, user.ID)
	require.Equal(t, "alice", user.Username)
	require.Equal(t, "alice@example.com", user.Email)
	require.True(t, user.Enabled)
	require.NotEqual(t, "password", user.PasswordHash)
	require.True(t, hash.CheckPassword(user.PasswordHash, "password"))

	roles, err := s.Roles.RolesForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, []string{store.RoleUser}, roles)
}

func TestRegisterValidation(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	for _, tc := range []struct{ username, email, password string }{
		{"", "a@example.com", "password"},
		{"alice", "", "password"},
		{"alice", "a@example.com", ""},
		{"   ", "a@example.com", "password"},
	} {
		_, err := s.Register(ctx, tc.username, tc.email, tc.password)
		require.ErrorIs(t, err, ErrValidation)
	}
}

func TestRegisterConflicts(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	_, err := s.Register(ctx, "alice", "alice@example.com", "password")
	require.NoError(t, err)

	_, err = s.Register(ctx, "alice", "other@example.com", "password")
	require.ErrorIs(t, err, ErrUserExists)

	_, err = s.Register(ctx, "other", "alice@example.com", "password")
	require.ErrorIs(t, err, ErrUserExists)
}

func TestLogin(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	_, err := s.Register(ctx, "alice", "alice@example.com", "password")
	require.NoError(t, err)

	res, err := s.Login(ctx, "alice", "password")
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)
	require.Equal(t, "alice", res.User.Username)
	require.Equal(t, []string{store.RoleUser}, res.Roles)

	// token verifies and its session is live
	claims, err := token.Verify(res.Token, testSecret)
	require.NoError(t, err)
	require.Equal(t, res.User.ID, claims.UserID)
	require.True(t, s.Sessions.IsActive(ctx, res.Token))

	// login by email works the same
	byEmail, err := s.Login(ctx, "alice@example.com", "password")
	require.NoError(t, err)
	require.Equal(t, res.User.ID, byEmail.User.ID)
}

func TestLoginFailuresAreUniform(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	user, err := s.Register(ctx, "alice", "alice@example.com", "password")
	require.NoError(t, err)

	_, err = s.Login(ctx, "nobody", "password")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.Login(ctx, "alice", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.Login(ctx, "", "password")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.Login(ctx, "alice", "")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, s.Users.SetEnabled(ctx, user.ID, false))
	_, err = s.Login(ctx, "alice", "password")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginPrimesRoleCache(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	_, err := s.Register(ctx, "alice", "alice@example.com", "password")
	require.NoError(t, err)

	res, err := s.Login(ctx, "alice", "password")
	require.NoError(t, err)

	cached, ok := s.RoleCache.Get(res.User.ID)
	require.True(t, ok)
	require.Equal(t, []string{store.RoleUser}, cached)
}

func TestLogout(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	_, err := s.Register(ctx, "alice", "alice@example.com", "password")
	require.NoError(t, err)
	res, err := s.Login(ctx, "alice", "password")
	require.NoError(t, err)

	require.True(t, s.Logout(ctx, res.Token))
	require.False(t, s.Sessions.IsActive(ctx, res.Token))

	// second logout is a quiet no-op
	require.False(t, s.Logout(ctx, res.Token))
}

func TestRoleMutationsInvalidateCache(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	user, err := s.Register(ctx, "alice", "alice@example.com", "password")
	require.NoError(t, err)
	_, err = s.Login(ctx, "alice", "password")
	require.NoError(t, err)

	require.NoError(t, s.AssignRole(ctx, user.ID, store.RoleAdmin))
	_, ok := s.RoleCache.Get(user.ID)
	require.False(t, ok)

	roles, err := s.Roles.RolesForUser(ctx, user.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{store.RoleUser, store.RoleAdmin}, roles)

	s.RoleCache.Put(user.ID, roles, 0)
	require.NoError(t, s.RemoveRole(ctx, user.ID, store.RoleAdmin))
	_, ok = s.RoleCache.Get(user.ID)
	require.False(t, ok)

	roles, err = s.Roles.RolesForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, []string{store.RoleUser}, roles)
}

func TestAssignUnknownRole(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	user, err := s.Register(ctx, "alice", "alice@example.com", "password")
	require.NoError(t, err)

	err = s.AssignRole(ctx, user.ID, "superuser")
	require.ErrorIs(t, err, store.ErrNotFound)
}
