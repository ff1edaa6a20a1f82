package carts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/groupcart/groupcart-backend/pkg/db/models"
)

// Repository exposes cart reads. Checkout copies cart rows into
// session line items; nothing here mutates a cart.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListByUsersAndVendor(ctx context.Context, userIDs []uuid.UUID, vendorID uuid.UUID) ([]models.CartItem, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

// ListByUsersAndVendor returns cart rows for the given users scoped to
// one vendor, ordered stably for deterministic session assembly.
func (r *repository) ListByUsersAndVendor(ctx context.Context, userIDs []uuid.UUID, vendorID uuid.UUID) ([]models.CartItem, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var rows []models.CartItem
	err := r.db.WithContext(ctx).
		Where("user_id IN ? AND vendor_id = ?", userIDs, vendorID).
		Order("user_id ASC, created_at ASC").
		Find(&rows).
		Error
	return rows, err
}
