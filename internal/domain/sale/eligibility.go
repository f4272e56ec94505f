package sale

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/promo-engine/internal/domain/pricing"
	"github.com/xenking/promo-engine/internal/domain/product"
)

// ProductNotEligibleError indicates that a sale would push a product's
// discounted price below the configured floor.
type ProductNotEligibleError struct {
	ProductID product.ID
}

func (e *ProductNotEligibleError) Error() string {
	return fmt.Sprintf("product %s is not eligible for sale: price would fall below the floor", e.ProductID)
}

// EligibilityService guards sale creation and update against discounting a
// product below a fraction of its base price, counting sales already active
// on that product.
type EligibilityService struct {
	products    product.Repository
	application *ApplicationService

	// minPriceRatio is the floor: after stacking, a product's price must stay
	// at or above minPriceRatio * basePrice.
	minPriceRatio decimal.Decimal
}

// NewEligibilityService creates an EligibilityService with the given floor
// ratio, expected in (0, 1].
func NewEligibilityService(
	products product.Repository,
	application *ApplicationService,
	minPriceRatio decimal.Decimal,
) *EligibilityService {
	return &EligibilityService{
		products:      products,
		application:   application,
		minPriceRatio: minPriceRatio,
	}
}

// EnsureProductsEligible verifies every product the candidate sale directly
// targets. Category-wide effects are checked per product when sales are
// queried; construction-time validation anchors on the explicit product list.
// The first failing product aborts the whole check.
func (s *EligibilityService) EnsureProductsEligible(ctx context.Context, candidate *Sale) error {
	if len(candidate.ProductsOnSale) == 0 {
		return nil
	}

	ids := make([]product.ID, 0, len(candidate.ProductsOnSale))
	for id := range candidate.ProductsOnSale {
		ids = append(ids, id)
	}

	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return errors.Wrap(err, "resolve sale products")
	}

	eligible := make([]EligibleProduct, len(products))
	for i, p := range products {
		eligible[i] = EligibleProduct{ID: p.ID, CategoryIDs: p.CategoryIDs}
	}

	applicable, err := s.application.ApplicableSales(ctx, eligible)
	if err != nil {
		return errors.Wrap(err, "resolve applicable sales")
	}

	for _, p := range products {
		discounts := []pricing.Discount{candidate.Discount}
		for _, existing := range applicable[p.ID] {
			// On update the stored version of the candidate itself may come
			// back from the query; its old discount must not be counted.
			if existing.ID == candidate.ID {
				continue
			}
			discounts = append(discounts, existing.Discount)
		}

		candidatePrice := pricing.Stack(p.BasePrice, discounts)
		floor := p.BasePrice.Mul(s.minPriceRatio)
		if candidatePrice.LessThan(floor) {
			return &ProductNotEligibleError{ProductID: p.ID}
		}
	}
	return nil
}
