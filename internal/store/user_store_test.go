package store

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ndatsenko/pulsemon/internal/config"
	"github.com/ndatsenko/pulsemon/internal/models"
)

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

func newUser(username, email string) *models.User {
	return &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: "irrelevant",
		Enabled:      true,
	}
}

func TestCreateMapsDuplicateKey(t *testing.T) {
	users := NewUserStore(initTestDB(t))
	ctx := context.Background()

	require.NoError(t, users.Create(ctx, newUser("alice", "alice@example.com")))

	// the unique index is the only uniqueness authority, so a duplicate
	// insert surfaces as ErrUserExists rather than a raw constraint error
	err := users.Create(ctx, newUser("alice", "other@example.com"))
	require.ErrorIs(t, err, ErrUserExists)

	err = users.Create(ctx, newUser("other", "alice@example.com"))
	require.ErrorIs(t, err, ErrUserExists)

	require.NoError(t, users.Create(ctx, newUser("bob", "bob@example.com")))
}

func TestFindByIdentifier(t *testing.T) {
	users := NewUserStore(initTestDB(t))
	ctx := context.Background()

	require.NoError(t, users.Create(ctx, newUser("alice", "alice@example.com")))

	byName, err := users.FindByIdentifier(ctx, "alice")
	require.NoError(t, err)
	byEmail, err := users.FindByIdentifier(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, byName.ID, byEmail.ID)

	_, err = users.FindByIdentifier(ctx, "nobody")
	require.ErrorIs(t, err, ErrNotFound)
}
