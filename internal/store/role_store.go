package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/ndatsenko/pulsemon/internal/models"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type RoleStore struct {
	DB *gorm.DB
}

func NewRoleStore(db *gorm.DB) *RoleStore {
	return &RoleStore{DB: db}
}

// EnsureDefaults seeds the built-in roles. Safe to call on every startup.
func (s *RoleStore) EnsureDefaults(ctx context.Context) error {
	defaults := []models.Role{
		{Name: RoleAdmin, Description: "full administrative access"},
		{Name: RoleUser, Description: "standard authenticated user"},
	}
	for _, role := range defaults {
		err := s.DB.WithContext(ctx).
			Where("name = ?", role.Name).
			FirstOrCreate(&models.Role{}, role).Error
		if err != nil {
			return fmt.Errorf("seeding role %q: %w", role.Name, err)
		}
	}
	return nil
}

func (s *RoleStore) FindByName(ctx context.Context, name string) (*models.Role, error) {
	var role models.Role
	if err := s.DB.WithContext(ctx).Where("name = ?", name).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("role lookup: %w", err)
	}
	return &role, nil
}

// RolesForUser returns the user's role names via the join table.
func (s *RoleStore) RolesForUser(ctx context.Context, userID uint) ([]string, error) {
	var names []string
	err := s.DB.WithContext(ctx).Model(&models.Role{}).
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", userID).
		Order("roles.name ASC").
		Pluck("roles.name", &names).Error
	if err != nil {
		return nil, fmt.Errorf("roles for user: %w", err)
	}
	return names, nil
}

// Assign links the named role to the user. Assigning a role the user already
// has is a no-op.
func (s *RoleStore) Assign(ctx context.Context, userID uint, roleName string) error {
	role, err := s.FindByName(ctx, roleName)
	if err != nil {
		return err
	}
	user := models.User{ID: userID}
	if err := s.DB.WithContext(ctx).Model(&user).Association("Roles").Append(role); err != nil {
		return fmt.Errorf("role assign: %w", err)
	}
	return nil
}

// Remove unlinks the named role from the user.
func (s *RoleStore) Remove(ctx context.Context, userID uint, roleName string) error {
	role, err := s.FindByName(ctx, roleName)
	if err != nil {
		return err
	}
	user := models.User{ID: userID}
	if err := s.DB.WithContext(ctx).Model(&user).Association("Roles").Delete(role); err != nil {
		return fmt.Errorf("role remove: %w", err)
	}
	return nil
}
