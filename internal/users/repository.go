package users

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/groupcart/groupcart-backend/pkg/db/models"
)

// Repository exposes the minimal user reads the checkout workflow needs.
type Repository interface {
	FindUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindUsers(ctx context.Context, ids []uuid.UUID) ([]models.User, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindUsers(ctx context.Context, ids []uuid.UUID) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.User
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&rows).
		Error
	return rows, err
}
