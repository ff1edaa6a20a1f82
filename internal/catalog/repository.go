package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/groupcart/groupcart-backend/pkg/db/models"
)

// ProductRepository exposes product reads used by catalog and checkout paths.
type ProductRepository interface {
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindProducts(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	ListVendorProducts(ctx context.Context, vendorID uuid.UUID) ([]models.Product, error)
}

// TierRepository exposes discount tier persistence.
type TierRepository interface {
	CreateTier(ctx context.Context, tier *models.DiscountTier) (*models.DiscountTier, error)
	UpdateTier(ctx context.Context, tier *models.DiscountTier) (*models.DiscountTier, error)
	DeleteTier(ctx context.Context, id uuid.UUID) error
	FindTier(ctx context.Context, id uuid.UUID) (*models.DiscountTier, error)
	ListTiers(ctx context.Context, productID uuid.UUID) ([]models.DiscountTier, error)
}

// Repository wires together catalog persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindProduct loads the product without associations.
func (r *Repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindProducts loads multiple products by ID in one round trip.
func (r *Repository) FindProducts(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&rows).
		Error
	return rows, err
}

// ListVendorProducts lists a vendor's products with tiers preloaded.
func (r *Repository) ListVendorProducts(ctx context.Context, vendorID uuid.UUID) ([]models.Product, error) {
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Preload("DiscountTiers", func(db *gorm.DB) *gorm.DB {
			return db.Order("members_required ASC")
		}).
		Where("vendor_id = ?", vendorID).
		Order("created_at DESC").
		Find(&rows).
		Error
	return rows, err
}

// CreateTier inserts a discount tier row.
func (r *Repository) CreateTier(ctx context.Context, tier *models.DiscountTier) (*models.DiscountTier, error) {
	if err := r.db.WithContext(ctx).Create(tier).Error; err != nil {
		return nil, err
	}
	return tier, nil
}

// UpdateTier saves an existing discount tier row.
func (r *Repository) UpdateTier(ctx context.Context, tier *models.DiscountTier) (*models.DiscountTier, error) {
	if err := r.db.WithContext(ctx).Save(tier).Error; err != nil {
		return nil, err
	}
	return tier, nil
}

// DeleteTier removes a tier row by ID.
func (r *Repository) DeleteTier(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.DiscountTier{}).
		Error
}

// FindTier loads a tier row by ID.
func (r *Repository) FindTier(ctx context.Context, id uuid.UUID) (*models.DiscountTier, error) {
	var tier models.DiscountTier
	if err := r.db.WithContext(ctx).First(&tier, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &tier, nil
}

// ListTiers returns all tiers for a product ordered by members_required ascending.
func (r *Repository) ListTiers(ctx context.Context, productID uuid.UUID) ([]models.DiscountTier, error) {
	var rows []models.DiscountTier
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("members_required ASC").
		Find(&rows).
		Error
	return rows, err
}
