package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/promo-engine/internal/domain/pricing"
)

// Service validates coupon applicability and applies coupon batches to order
// totals. It is stateless; the transactional usage-counter consumption lives
// at the storage boundary, not here.
type Service struct {
	coupons Repository
	now     func() time.Time
}

// NewService creates a coupon Service backed by the given repository.
func NewService(coupons Repository) *Service {
	return &Service{coupons: coupons, now: time.Now}
}

// IsApplicable reports whether the coupon may be applied to the order: every
// restriction passes, the coupon is active, its discount window covers now,
// the order total meets the minimum price, and the usage limit is positive.
// The remaining-redemptions comparison happens at redemption commit.
func (s *Service) IsApplicable(c *Coupon, o Order) bool {
	for _, r := range c.Restrictions {
		if !r.Passes(o) {
			return false
		}
	}
	if !c.Active {
		return false
	}
	if !c.Discount.ValidAt(s.now()) {
		return false
	}
	if o.Total.LessThan(c.MinPrice) {
		return false
	}
	return c.UsageLimit > 0
}

// ApplyCoupons fetches the requested coupons and stacks their discounts onto
// the order's pre-coupon total. Any id that does not resolve or fails the
// applicability check rejects the whole batch with InvalidCouponError; no
// partial subset is ever applied.
func (s *Service) ApplyCoupons(ctx context.Context, o Order, ids []uuid.UUID) (decimal.Decimal, error) {
	if len(ids) == 0 {
		return o.Total, nil
	}

	fetched, err := s.coupons.GetByIDs(ctx, ids)
	if err != nil {
		return decimal.Decimal{}, errors.Wrap(err, "fetch coupons")
	}

	byID := make(map[uuid.UUID]*Coupon, len(fetched))
	for _, c := range fetched {
		byID[c.ID] = c
	}

	discounts := make([]pricing.Discount, 0, len(ids))
	for _, id := range ids {
		c, ok := byID[id]
		if !ok || !s.IsApplicable(c, o) {
			return decimal.Decimal{}, &InvalidCouponError{CouponID: id}
		}
		discounts = append(discounts, c.Discount)
	}

	return pricing.Stack(o.Total, discounts), nil
}

// AutoApplicable returns the auto-apply coupons that pass the applicability
// check for the order. Unlike requested coupons, a non-applicable auto-apply
// coupon is silently skipped rather than rejecting anything.
func (s *Service) AutoApplicable(ctx context.Context, o Order) ([]*Coupon, error) {
	candidates, err := s.coupons.FindAutoApply(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "fetch auto-apply coupons")
	}

	applicable := make([]*Coupon, 0, len(candidates))
	for _, c := range candidates {
		if s.IsApplicable(c, o) {
			applicable = append(applicable, c)
		}
	}
	return applicable, nil
}
