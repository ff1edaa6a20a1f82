package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/groupcart/groupcart-backend/pkg/db/models"
	pkgerrors "github.com/groupcart/groupcart-backend/pkg/errors"
	"github.com/groupcart/groupcart-backend/pkg/logger"
	"github.com/rs/zerolog"
)

type fakeProductReader struct {
	rows map[uuid.UUID]*models.Product
}

func (f *fakeProductReader) FindProduct(_ context.Context, id uuid.UUID) (*models.Product, error) {
	if row, ok := f.rows[id]; ok {
		return row, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeTierStore struct {
	rows      map[uuid.UUID]*models.DiscountTier
	listErr   error
	createErr error
	updateErr error
}

func (f *fakeTierStore) CreateTier(_ context.Context, tier *models.DiscountTier) (*models.DiscountTier, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if tier.ID == uuid.Nil {
		tier.ID = uuid.New()
	}
	if f.rows == nil {
		f.rows = map[uuid.UUID]*models.DiscountTier{}
	}
	f.rows[tier.ID] = tier
	return tier, nil
}

func (f *fakeTierStore) UpdateTier(_ context.Context, tier *models.DiscountTier) (*models.DiscountTier, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.rows[tier.ID] = tier
	return tier, nil
}

func (f *fakeTierStore) DeleteTier(_ context.Context, id uuid.UUID) error {
	delete(f.rows, id)
	return nil
}

func (f *fakeTierStore) FindTier(_ context.Context, id uuid.UUID) (*models.DiscountTier, error) {
	if row, ok := f.rows[id]; ok {
		copied := *row
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeTierStore) ListTiers(_ context.Context, productID uuid.UUID) ([]models.DiscountTier, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.DiscountTier
	for _, row := range f.rows {
		if row.ProductID == productID {
			out = append(out, *row)
		}
	}
	return out, nil
}

func newTestService(t *testing.T, products *fakeProductReader, tiers *fakeTierStore) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Products: products,
		Tiers:    tiers,
		Logger:   logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled}),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestResolveDiscount(t *testing.T) {
	t.Parallel()

	productID := uuid.New()
	tiers := &fakeTierStore{rows: map[uuid.UUID]*models.DiscountTier{}}
	for _, tier := range []models.DiscountTier{
		{ID: uuid.New(), ProductID: productID, TierNumber: 1, MembersRequired: 3, DiscountPercent: 5},
		{ID: uuid.New(), ProductID: productID, TierNumber: 2, MembersRequired: 5, DiscountPercent: 10},
		{ID: uuid.New(), ProductID: productID, TierNumber: 3, MembersRequired: 10, DiscountPercent: 20},
	} {
		copied := tier
		tiers.rows[tier.ID] = &copied
	}
	svc := newTestService(t, &fakeProductReader{}, tiers)

	cases := []struct {
		name        string
		memberCount int
		want        int
	}{
		{"belowLowestTier", 2, 0},
		{"exactThreshold", 3, 5},
		{"betweenTiers", 7, 10},
		{"topTier", 25, 20},
		{"zeroMembers", 0, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := svc.ResolveDiscount(context.Background(), productID, tc.memberCount)
			if err != nil {
				t.Fatalf("resolve discount: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %d%%, got %d%%", tc.want, got)
			}
		})
	}
}

func TestResolveDiscountUnknownProduct(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &fakeProductReader{}, &fakeTierStore{})
	got, err := svc.ResolveDiscount(context.Background(), uuid.New(), 10)
	if err != nil {
		t.Fatalf("resolve discount: %v", err)
	}
	if got != 0 {
		t.Fatalf("expected 0%% for unknown product, got %d%%", got)
	}
}

func TestResolveFromTiersTieBreak(t *testing.T) {
	t.Parallel()

	got := resolveFromTiers([]models.DiscountTier{
		{MembersRequired: 5, DiscountPercent: 10},
		{MembersRequired: 5, DiscountPercent: 15},
	}, 6)
	if got != 15 {
		t.Fatalf("expected tie to break toward larger discount, got %d%%", got)
	}
}

func TestCreateTier(t *testing.T) {
	t.Parallel()

	vendorID := uuid.New()
	productID := uuid.New()
	products := &fakeProductReader{rows: map[uuid.UUID]*models.Product{
		productID: {ID: productID, VendorID: vendorID},
	}}

	t.Run("success", func(t *testing.T) {
		svc := newTestService(t, products, &fakeTierStore{})
		tier, err := svc.CreateTier(context.Background(), vendorID, productID, TierInput{
			MembersRequired: 5,
			DiscountPercent: 10,
		})
		if err != nil {
			t.Fatalf("create tier: %v", err)
		}
		if tier.TierNumber != 1 {
			t.Fatalf("expected tier number 1, got %d", tier.TierNumber)
		}
	})

	t.Run("notVendor", func(t *testing.T) {
		svc := newTestService(t, products, &fakeTierStore{})
		_, err := svc.CreateTier(context.Background(), uuid.New(), productID, TierInput{
			MembersRequired: 5,
			DiscountPercent: 10,
		})
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
			t.Fatalf("expected forbidden, got %v", err)
		}
	})

	t.Run("unknownProduct", func(t *testing.T) {
		svc := newTestService(t, products, &fakeTierStore{})
		_, err := svc.CreateTier(context.Background(), vendorID, uuid.New(), TierInput{
			MembersRequired: 5,
			DiscountPercent: 10,
		})
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("breaksMonotonicity", func(t *testing.T) {
		tiers := &fakeTierStore{rows: map[uuid.UUID]*models.DiscountTier{}}
		seed := &models.DiscountTier{ID: uuid.New(), ProductID: productID, TierNumber: 1, MembersRequired: 5, DiscountPercent: 15}
		tiers.rows[seed.ID] = seed

		svc := newTestService(t, products, tiers)
		_, err := svc.CreateTier(context.Background(), vendorID, productID, TierInput{
			MembersRequired: 10,
			DiscountPercent: 10,
		})
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("invalidPercent", func(t *testing.T) {
		svc := newTestService(t, products, &fakeTierStore{})
		_, err := svc.CreateTier(context.Background(), vendorID, productID, TierInput{
			MembersRequired: 5,
			DiscountPercent: 120,
		})
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
}

func TestUpdateTierRevalidatesLadder(t *testing.T) {
	t.Parallel()

	vendorID := uuid.New()
	productID := uuid.New()
	products := &fakeProductReader{rows: map[uuid.UUID]*models.Product{
		productID: {ID: productID, VendorID: vendorID},
	}}

	low := &models.DiscountTier{ID: uuid.New(), ProductID: productID, TierNumber: 1, MembersRequired: 3, DiscountPercent: 5}
	high := &models.DiscountTier{ID: uuid.New(), ProductID: productID, TierNumber: 2, MembersRequired: 10, DiscountPercent: 20}
	tiers := &fakeTierStore{rows: map[uuid.UUID]*models.DiscountTier{
		low.ID:  low,
		high.ID: high,
	}}
	svc := newTestService(t, products, tiers)

	newDiscount := 2
	_, err := svc.UpdateTier(context.Background(), vendorID, productID, high.ID, UpdateTierInput{
		DiscountPercent: &newDiscount,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	newDiscount = 25
	updated, err := svc.UpdateTier(context.Background(), vendorID, productID, high.ID, UpdateTierInput{
		DiscountPercent: &newDiscount,
	})
	if err != nil {
		t.Fatalf("update tier: %v", err)
	}
	if updated.DiscountPercent != 25 {
		t.Fatalf("expected 25%%, got %d%%", updated.DiscountPercent)
	}
}

func TestDeleteTierWrongProduct(t *testing.T) {
	t.Parallel()

	vendorID := uuid.New()
	productID := uuid.New()
	otherProductID := uuid.New()
	products := &fakeProductReader{rows: map[uuid.UUID]*models.Product{
		productID:      {ID: productID, VendorID: vendorID},
		otherProductID: {ID: otherProductID, VendorID: vendorID},
	}}

	tier := &models.DiscountTier{ID: uuid.New(), ProductID: otherProductID, TierNumber: 1, MembersRequired: 5, DiscountPercent: 10}
	tiers := &fakeTierStore{rows: map[uuid.UUID]*models.DiscountTier{tier.ID: tier}}
	svc := newTestService(t, products, tiers)

	err := svc.DeleteTier(context.Background(), vendorID, productID, tier.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestValidateMonotonicityEqualDiscountsAllowed(t *testing.T) {
	t.Parallel()

	err := validateMonotonicity([]models.DiscountTier{
		{MembersRequired: 3, DiscountPercent: 10},
		{MembersRequired: 5, DiscountPercent: 10},
		{MembersRequired: 10, DiscountPercent: 15},
	})
	if err != nil {
		t.Fatalf("expected equal discounts across tiers to pass, got %v", err)
	}
}
