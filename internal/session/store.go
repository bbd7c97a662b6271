// Package session persists one row per issued token and answers the single
// question "is this token still accepted". Both the auth middleware and the
// auth service go through this store; nothing else reads the sessions table.
package session

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ndatsenko/pulsemon/internal/logging"
	"github.com/ndatsenko/pulsemon/internal/models"
)

type Store struct {
	DB *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{DB: db}
}

// Create inserts a session row for a freshly issued token.
func (s *Store) Create(ctx context.Context, tokenStr string, userID uint, ttl time.Duration) error {
	now := time.Now()
	row := models.Session{
		Token:     tokenStr,
		UserID:    userID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := s.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("session create: %w", err)
	}
	return nil
}

// IsActive reports whether the token has an unexpired session row. Expired
// rows are deleted on the way out. Storage errors are logged and treated as
// "not active": validity is never assumed when the store cannot answer.
func (s *Store) IsActive(ctx context.Context, tokenStr string) bool {
	if tokenStr == "" {
		return false
	}

	var row models.Session
	err := s.DB.WithContext(ctx).Where("token = ?", tokenStr).First(&row).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			logging.FromContext(ctx).Error("session lookup failed", "error", err)
		}
		return false
	}

	if !row.ExpiresAt.After(time.Now()) {
		// Lazy eviction; the row is dead weight either way.
		if err := s.DB.WithContext(ctx).Delete(&models.Session{}, "token = ?", tokenStr).Error; err != nil {
			logging.FromContext(ctx).Warn("expired session cleanup failed", "error", err)
		}
		return false
	}

	return true
}

// Revoke deletes the session row and reports whether one was deleted.
// Revoking an already-revoked token is not an error; it just returns false.
func (s *Store) Revoke(ctx context.Context, tokenStr string) bool {
	if tokenStr == "" {
		return false
	}
	res := s.DB.WithContext(ctx).Delete(&models.Session{}, "token = ?", tokenStr)
	if res.Error != nil {
		logging.FromContext(ctx).Error("session revoke failed", "error", res.Error)
		return false
	}
	return res.RowsAffected > 0
}

// DeleteExpired removes every session row past its expiry. Run periodically;
// IsActive already evicts lazily, this bounds growth from abandoned tokens.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	res := s.DB.WithContext(ctx).Delete(&models.Session{}, "expires_at <= ?", time.Now())
	if res.Error != nil {
		return 0, fmt.Errorf("session sweep: %w", res.Error)
	}
	return res.RowsAffected, nil
}
