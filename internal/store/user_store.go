package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/ndatsenko/pulsemon/internal/models"
)

var (
	ErrUserExists = errors.New("user already exists")
	ErrNotFound   = errors.New("record not found")
)

type UserStore struct {
	DB *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{DB: db}
}

func (s *UserStore) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("user lookup: %w", err)
	}
	return &user, nil
}

// FindByIdentifier looks a user up by username or email, whichever matches.
func (s *UserStore) FindByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).
		Where("username = ? OR email = ?", identifier, identifier).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("user lookup: %w", err)
	}
	return &user, nil
}

// Create inserts the user, reporting ErrUserExists when the username or
// email is already taken. Uniqueness is enforced by the unique indexes
// alone, so two concurrent registrations cannot both succeed; the loser's
// duplicate-key error maps to ErrUserExists, not a generic failure.
func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	if err := s.DB.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrUserExists
		}
		return fmt.Errorf("user create: %w", err)
	}
	return nil
}

func (s *UserStore) List(ctx context.Context, offset, limit int) ([]models.User, int64, error) {
	var total int64
	if err := s.DB.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("user count: %w", err)
	}

	var users []models.User
	err := s.DB.WithContext(ctx).
		Order("id ASC").Offset(offset).Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("user list: %w", err)
	}
	return users, total, nil
}

// SetEnabled flips the account flag. Disabled users cannot log in; tokens
// they already hold stay valid until logout or expiry.
func (s *UserStore) SetEnabled(ctx context.Context, id uint, enabled bool) error {
	res := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("enabled", enabled)
	if res.Error != nil {
		return fmt.Errorf("user update: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
