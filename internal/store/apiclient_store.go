package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ndatsenko/pulsemon/internal/models"
)

type APIClientStore struct {
	DB *gorm.DB
}

func NewAPIClientStore(db *gorm.DB) *APIClientStore {
	return &APIClientStore{DB: db}
}

// Create mints an API client with a random key. The key is returned once,
// in the created record.
func (s *APIClientStore) Create(ctx context.Context, name string) (*models.APIClient, error) {
	client := models.APIClient{
		Name:   name,
		APIKey: uuid.NewString(),
		Active: true,
	}
	if err := s.DB.WithContext(ctx).Create(&client).Error; err != nil {
		return nil, fmt.Errorf("api client create: %w", err)
	}
	return &client, nil
}

// FindActiveByKey resolves an API key to its client. Inactive clients and
// unknown keys both come back as ErrNotFound.
func (s *APIClientStore) FindActiveByKey(ctx context.Context, key string) (*models.APIClient, error) {
	var client models.APIClient
	err := s.DB.WithContext(ctx).
		Where("api_key = ? AND active = ?", key, true).
		First(&client).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("api client lookup: %w", err)
	}
	return &client, nil
}
