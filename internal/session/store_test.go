package session

import (
	"context"
	"testing"
	"time"

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

func TestCreateAndIsActive(t *testing.T) {
	store := NewStore(initTestDB(t))
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, "tok-1", 1, time.Hour))
	require.True(t, store.IsActive(ctx, "tok-1"))
	require.False(t, store.IsActive(ctx, "tok-unknown"))
	require.False(t, store.IsActive(ctx, ""))
}

func TestIsActiveEvictsExpired(t *testing.T) {
	db := initTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, "tok-old", 1, -time.Minute))
	require.False(t, store.IsActive(ctx, "tok-old"))

	// the expired row must be gone after the lookup
	var count int64
	require.NoError(t, db.Model(&models.Session{}).Where("token = ?", "tok-old").Count(&count).Error)
	require.Zero(t, count)
}

func TestRevoke(t *testing.T) {
	store := NewStore(initTestDB(t))
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, "tok-1", 1, time.Hour))

	require.True(t, store.Revoke(ctx, "tok-1"))
	require.False(t, store.IsActive(ctx, "tok-1"))

	// second revoke is a no-op, not an error
	require.False(t, store.Revoke(ctx, "tok-1"))
	require.False(t, store.Revoke(ctx, ""))
}

func TestDeleteExpired(t *testing.T) {
	store := NewStore(initTestDB(t))
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, "tok-live", 1, time.Hour))
	require.NoError(t, store.Create(ctx, "tok-dead-1", 2, -time.Minute))
	require.NoError(t, store.Create(ctx, "tok-dead-2", 3, -time.Hour))

	n, err := store.DeleteExpired(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	require.True(t, store.IsActive(ctx, "tok-live"))
}
