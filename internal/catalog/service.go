package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/groupcart/groupcart-backend/pkg/db"
	"github.com/groupcart/groupcart-backend/pkg/db/models"
	pkgerrors "github.com/groupcart/groupcart-backend/pkg/errors"
	"github.com/groupcart/groupcart-backend/pkg/logger"
)

// Service exposes discount tier management and resolution.
type Service interface {
	ResolveDiscount(ctx context.Context, productID uuid.UUID, memberCount int) (int, error)
	CreateTier(ctx context.Context, vendorID, productID uuid.UUID, input TierInput) (*models.DiscountTier, error)
	UpdateTier(ctx context.Context, vendorID, productID, tierID uuid.UUID, input UpdateTierInput) (*models.DiscountTier, error)
	DeleteTier(ctx context.Context, vendorID, productID, tierID uuid.UUID) error
	ListTiers(ctx context.Context, productID uuid.UUID) ([]models.DiscountTier, error)
}

// TierInput holds the validated payload to create a tier.
type TierInput struct {
	MembersRequired int
	DiscountPercent int
}

// UpdateTierInput holds optional mutation values for a tier.
type UpdateTierInput struct {
	MembersRequired *int
	DiscountPercent *int
}

type productReader interface {
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type tierStore interface {
	CreateTier(ctx context.Context, tier *models.DiscountTier) (*models.DiscountTier, error)
	UpdateTier(ctx context.Context, tier *models.DiscountTier) (*models.DiscountTier, error)
	DeleteTier(ctx context.Context, id uuid.UUID) error
	FindTier(ctx context.Context, id uuid.UUID) (*models.DiscountTier, error)
	ListTiers(ctx context.Context, productID uuid.UUID) ([]models.DiscountTier, error)
}

// ServiceParams wires service dependencies.
type ServiceParams struct {
	Products productReader
	Tiers    tierStore
	Logger   *logger.Logger
}

type service struct {
	products productReader
	tiers    tierStore
	logg     *logger.Logger
}

// NewService constructs a catalog service instance.
func NewService(params ServiceParams) (Service, error) {
	if params.Products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if params.Tiers == nil {
		return nil, fmt.Errorf("tier repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		products: params.Products,
		tiers:    params.Tiers,
		logg:     params.Logger,
	}, nil
}

// ResolveDiscount returns the discount percent for a product at the
// given member count. The highest satisfied members_required tier wins;
// a tie on members_required breaks toward the larger discount. No
// qualifying tier, or an unknown product, resolves to zero.
func (s *service) ResolveDiscount(ctx context.Context, productID uuid.UUID, memberCount int) (int, error) {
	if memberCount <= 0 {
		return 0, nil
	}

	tiers, err := s.tiers.ListTiers(ctx, productID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing discount tiers")
	}

	return resolveFromTiers(tiers, memberCount), nil
}

func resolveFromTiers(tiers []models.DiscountTier, memberCount int) int {
	best := 0
	bestMembers := -1
	for _, tier := range tiers {
		if tier.MembersRequired > memberCount {
			continue
		}
		if tier.MembersRequired > bestMembers ||
			(tier.MembersRequired == bestMembers && tier.DiscountPercent > best) {
			best = tier.DiscountPercent
			bestMembers = tier.MembersRequired
		}
	}
	return best
}

// CreateTier adds a discount tier after validating ownership and
// monotonicity against the product's existing tiers.
func (s *service) CreateTier(ctx context.Context, vendorID, productID uuid.UUID, input TierInput) (*models.DiscountTier, error) {
	if err := validateTierValues(input.MembersRequired, input.DiscountPercent); err != nil {
		return nil, err
	}
	if err := s.ensureVendorOwnsProduct(ctx, vendorID, productID); err != nil {
		return nil, err
	}

	existing, err := s.tiers.ListTiers(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing discount tiers")
	}

	candidate := models.DiscountTier{
		ProductID:       productID,
		MembersRequired: input.MembersRequired,
		DiscountPercent: input.DiscountPercent,
	}
	if err := validateMonotonicity(append(existing, candidate)); err != nil {
		return nil, err
	}
	candidate.TierNumber = nextTierNumber(existing)

	created, err := s.tiers.CreateTier(ctx, &candidate)
	if err != nil {
		if db.IsUniqueViolation(err, "idx_tiers_product_members") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a tier with this member threshold already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating discount tier")
	}
	return created, nil
}

// UpdateTier mutates a tier's threshold or discount and revalidates
// the product's full tier ladder.
func (s *service) UpdateTier(ctx context.Context, vendorID, productID, tierID uuid.UUID, input UpdateTierInput) (*models.DiscountTier, error) {
	if input.MembersRequired == nil && input.DiscountPercent == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no tier fields to update")
	}
	if err := s.ensureVendorOwnsProduct(ctx, vendorID, productID); err != nil {
		return nil, err
	}

	tier, err := s.loadProductTier(ctx, productID, tierID)
	if err != nil {
		return nil, err
	}

	if input.MembersRequired != nil {
		tier.MembersRequired = *input.MembersRequired
	}
	if input.DiscountPercent != nil {
		tier.DiscountPercent = *input.DiscountPercent
	}
	if err := validateTierValues(tier.MembersRequired, tier.DiscountPercent); err != nil {
		return nil, err
	}

	existing, err := s.tiers.ListTiers(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing discount tiers")
	}
	ladder := make([]models.DiscountTier, 0, len(existing))
	for _, row := range existing {
		if row.ID == tier.ID {
			continue
		}
		ladder = append(ladder, row)
	}
	ladder = append(ladder, *tier)
	if err := validateMonotonicity(ladder); err != nil {
		return nil, err
	}

	updated, err := s.tiers.UpdateTier(ctx, tier)
	if err != nil {
		if db.IsUniqueViolation(err, "idx_tiers_product_members") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a tier with this member threshold already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating discount tier")
	}
	return updated, nil
}

// DeleteTier removes a tier. Removal can never break monotonicity, so
// only ownership is checked.
func (s *service) DeleteTier(ctx context.Context, vendorID, productID, tierID uuid.UUID) error {
	if err := s.ensureVendorOwnsProduct(ctx, vendorID, productID); err != nil {
		return err
	}
	if _, err := s.loadProductTier(ctx, productID, tierID); err != nil {
		return err
	}
	if err := s.tiers.DeleteTier(ctx, tierID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting discount tier")
	}
	return nil
}

// ListTiers returns the product's tier ladder ordered by threshold.
func (s *service) ListTiers(ctx context.Context, productID uuid.UUID) ([]models.DiscountTier, error) {
	tiers, err := s.tiers.ListTiers(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing discount tiers")
	}
	return tiers, nil
}

func (s *service) ensureVendorOwnsProduct(ctx context.Context, vendorID, productID uuid.UUID) error {
	product, err := s.products.FindProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading product")
	}
	if product.VendorID != vendorID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the product vendor can manage tiers")
	}
	return nil
}

func (s *service) loadProductTier(ctx context.Context, productID, tierID uuid.UUID) (*models.DiscountTier, error) {
	tier, err := s.tiers.FindTier(ctx, tierID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "discount tier not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading discount tier")
	}
	if tier.ProductID != productID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "discount tier not found")
	}
	return tier, nil
}

func validateTierValues(membersRequired, discountPercent int) error {
	if membersRequired <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "members_required must be positive")
	}
	if discountPercent < 0 || discountPercent > 100 {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount_percent must be within [0,100]")
	}
	return nil
}

// validateMonotonicity enforces: a tier requiring more members never
// offers a smaller discount than any lower tier.
func validateMonotonicity(tiers []models.DiscountTier) error {
	sorted := make([]models.DiscountTier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].MembersRequired != sorted[j].MembersRequired {
			return sorted[i].MembersRequired < sorted[j].MembersRequired
		}
		return sorted[i].DiscountPercent < sorted[j].DiscountPercent
	})

	maxSoFar := -1
	for _, tier := range sorted {
		if tier.DiscountPercent < maxSoFar {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("tier at %d members offers %d%%, below a lower tier's discount",
					tier.MembersRequired, tier.DiscountPercent))
		}
		if tier.DiscountPercent > maxSoFar {
			maxSoFar = tier.DiscountPercent
		}
	}
	return nil
}

func nextTierNumber(existing []models.DiscountTier) int {
	next := 1
	for _, tier := range existing {
		if tier.TierNumber >= next {
			next = tier.TierNumber + 1
		}
	}
	return next
}
