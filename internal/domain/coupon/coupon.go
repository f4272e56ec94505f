// Package coupon holds the Coupon aggregate, its restriction predicates, and
// the service that validates and applies coupons to orders.
package coupon

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/promo-engine/internal/domain/pricing"
	"github.com/xenking/promo-engine/internal/domain/product"
)

var (
	// ErrEmptyCode is returned when a coupon code is blank.
	ErrEmptyCode = errors.New("coupon code must not be empty")
	// ErrInvalidUsageLimit is returned when a usage limit is below 1.
	ErrInvalidUsageLimit = errors.New("coupon usage limit must be at least 1")
	// ErrNegativeMinPrice is returned when a minimum order price is negative.
	ErrNegativeMinPrice = errors.New("coupon minimum price must not be negative")
)

// InvalidCouponError indicates a requested coupon cannot be applied: unknown
// id, failed restriction, inactive, expired, order below minimum price, or
// exhausted usage. The whole batch it belongs to is rejected.
type InvalidCouponError struct {
	CouponID uuid.UUID
}

func (e *InvalidCouponError) Error() string {
	return fmt.Sprintf("coupon %s cannot be applied to this order", e.CouponID)
}

// Coupon is a code-redeemable promotion. Usage is tracked externally by
// counting redemptions against UsageLimit; the aggregate stores the limit.
type Coupon struct {
	ID           uuid.UUID
	Code         string
	Discount     pricing.Discount
	UsageLimit   int
	MinPrice     decimal.Decimal
	AutoApply    bool
	Active       bool
	Restrictions []Restriction
}

// New validates and builds a Coupon. The code is normalized to upper case.
func New(
	id uuid.UUID,
	code string,
	discount pricing.Discount,
	usageLimit int,
	minPrice decimal.Decimal,
	autoApply bool,
) (*Coupon, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, ErrEmptyCode
	}
	if usageLimit < 1 {
		return nil, ErrInvalidUsageLimit
	}
	if minPrice.IsNegative() {
		return nil, ErrNegativeMinPrice
	}
	return &Coupon{
		ID:         id,
		Code:       code,
		Discount:   discount,
		UsageLimit: usageLimit,
		MinPrice:   minPrice,
		AutoApply:  autoApply,
		Active:     true,
	}, nil
}

// NormalizeCode trims and upper-cases a coupon code for storage and lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// AddRestriction appends a restriction predicate.
func (c *Coupon) AddRestriction(r Restriction) {
	c.Restrictions = append(c.Restrictions, r)
}

// ClearRestrictions drops all restrictions; combined with AddRestriction it
// replaces the set wholesale.
func (c *Coupon) ClearRestrictions() {
	c.Restrictions = nil
}

// Order is the read-only projection restriction evaluation runs against:
// the order's product/category composition and its pre-coupon total.
type Order struct {
	Products []OrderProduct
	Total    decimal.Decimal
}

// OrderProduct is one order line's product identity and category memberships.
type OrderProduct struct {
	ProductID   product.ID
	CategoryIDs []product.CategoryID
}

// Repository defines persistence for coupons. GetByIDs must resolve the
// whole id set in one query; missing ids are simply absent from the result.
type Repository interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*Coupon, error)
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	FindAutoApply(ctx context.Context) ([]*Coupon, error)
	Upsert(ctx context.Context, c *Coupon) error
}
