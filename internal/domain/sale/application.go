package sale

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/promo-engine/internal/domain/pricing"
	"github.com/xenking/promo-engine/internal/domain/product"
)

// ApplicationService resolves which sales currently apply to which products.
type ApplicationService struct {
	sales Repository
	now   func() time.Time
}

// NewApplicationService creates an ApplicationService backed by the given
// sale repository.
func NewApplicationService(sales Repository) *ApplicationService {
	return &ApplicationService{sales: sales, now: time.Now}
}

// ApplicableSales returns, for every input product, the sales that cover it
// and whose discount is valid right now. Candidate sales are fetched in one
// batched query across all products; the result always contains an entry for
// every input product, possibly empty.
func (s *ApplicationService) ApplicableSales(
	ctx context.Context,
	products []EligibleProduct,
) (map[product.ID][]*Sale, error) {
	result := make(map[product.ID][]*Sale, len(products))
	if len(products) == 0 {
		return result, nil
	}

	productIDs := make([]product.ID, 0, len(products))
	categorySeen := make(map[product.CategoryID]struct{})
	var categoryIDs []product.CategoryID
	for _, p := range products {
		productIDs = append(productIDs, p.ID)
		for _, c := range p.CategoryIDs {
			if _, ok := categorySeen[c]; ok {
				continue
			}
			categorySeen[c] = struct{}{}
			categoryIDs = append(categoryIDs, c)
		}
	}

	candidates, err := s.sales.FindTargeting(ctx, productIDs, categoryIDs)
	if err != nil {
		return nil, errors.Wrap(err, "find targeting sales")
	}

	now := s.now()
	for _, p := range products {
		result[p.ID] = []*Sale{}
		for _, candidate := range candidates {
			if !candidate.Discount.ValidAt(now) {
				continue
			}
			if candidate.AppliesTo(p.ID, p.CategoryIDs) {
				result[p.ID] = append(result[p.ID], candidate)
			}
		}
	}
	return result, nil
}

// Discounts extracts the discounts of the given sales. The sales are assumed
// pre-filtered by ApplicableSales, so no validity check is repeated.
func Discounts(sales []*Sale) []pricing.Discount {
	discounts := make([]pricing.Discount, len(sales))
	for i, s := range sales {
		discounts[i] = s.Discount
	}
	return discounts
}
