package sale

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/promo-engine/internal/domain/pricing"
	"github.com/xenking/promo-engine/internal/domain/product"
)

// TargetSpec carries the discount and target sets for a sale create or
// update. Both operations replace the discount and all three sets wholesale.
type TargetSpec struct {
	Discount   pricing.Discount
	Categories []product.CategoryID
	Products   []product.ID
	Excluded   []product.ID
}

// AdminService is the sale administration workflow: it validates eligibility
// and persists the aggregate, all-or-nothing.
type AdminService struct {
	sales       Repository
	eligibility *EligibilityService
}

// NewAdminService creates an AdminService.
func NewAdminService(sales Repository, eligibility *EligibilityService) *AdminService {
	return &AdminService{sales: sales, eligibility: eligibility}
}

// Create builds a new sale from the spec, checks the price floor for every
// directly targeted product, and persists it.
func (s *AdminService) Create(ctx context.Context, spec TargetSpec) (*Sale, error) {
	created, err := New(uuid.New(), spec.Discount, spec.Categories, spec.Products, spec.Excluded)
	if err != nil {
		return nil, err
	}
	if err := s.eligibility.EnsureProductsEligible(ctx, created); err != nil {
		return nil, err
	}
	if err := s.sales.Upsert(ctx, created); err != nil {
		return nil, errors.Wrap(err, "persist sale")
	}
	return created, nil
}

// Update replaces an existing sale's discount and target sets, re-running the
// eligibility check against the new shape.
func (s *AdminService) Update(ctx context.Context, id uuid.UUID, spec TargetSpec) (*Sale, error) {
	existing, err := s.sales.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	updated, err := New(existing.ID, spec.Discount, spec.Categories, spec.Products, spec.Excluded)
	if err != nil {
		return nil, err
	}
	if err := s.eligibility.EnsureProductsEligible(ctx, updated); err != nil {
		return nil, err
	}
	if err := s.sales.Upsert(ctx, updated); err != nil {
		return nil, errors.Wrap(err, "persist sale")
	}
	return updated, nil
}
