package coupon

import (
	"github.com/go-faster/errors"

	"github.com/xenking/promo-engine/internal/domain/product"
)

// ErrEmptyAllowedSet is returned when a restriction is built with no allowed
// products or categories.
var ErrEmptyAllowedSet = errors.New("restriction allowed set must not be empty")

// Restriction is a predicate over an order's product/category composition.
// Exactly two variants exist: ProductRestriction and CategoryRestriction.
// A coupon with zero restrictions passes unconditionally on this axis.
type Restriction interface {
	// Passes reports whether the order satisfies the restriction.
	Passes(o Order) bool
}

// ProductRestriction passes when the order contains at least one allowed
// product.
type ProductRestriction struct {
	Allowed map[product.ID]struct{}
}

// NewProductRestriction builds a ProductRestriction; the allowed set must be
// non-empty.
func NewProductRestriction(allowed []product.ID) (ProductRestriction, error) {
	if len(allowed) == 0 {
		return ProductRestriction{}, ErrEmptyAllowedSet
	}
	set := make(map[product.ID]struct{}, len(allowed))
	for _, id := range allowed {
		set[id] = struct{}{}
	}
	return ProductRestriction{Allowed: set}, nil
}

func (r ProductRestriction) Passes(o Order) bool {
	for _, p := range o.Products {
		if _, ok := r.Allowed[p.ProductID]; ok {
			return true
		}
	}
	return false
}

// CategoryRestriction passes when at least one order line's product belongs
// to an allowed category and is not individually excluded.
type CategoryRestriction struct {
	Allowed  map[product.CategoryID]struct{}
	Excluded map[product.ID]struct{}
}

// NewCategoryRestriction builds a CategoryRestriction; the allowed category
// set must be non-empty, the exclusion set may be empty.
func NewCategoryRestriction(allowed []product.CategoryID, excluded []product.ID) (CategoryRestriction, error) {
	if len(allowed) == 0 {
		return CategoryRestriction{}, ErrEmptyAllowedSet
	}
	allowedSet := make(map[product.CategoryID]struct{}, len(allowed))
	for _, id := range allowed {
		allowedSet[id] = struct{}{}
	}
	excludedSet := make(map[product.ID]struct{}, len(excluded))
	for _, id := range excluded {
		excludedSet[id] = struct{}{}
	}
	return CategoryRestriction{Allowed: allowedSet, Excluded: excludedSet}, nil
}

func (r CategoryRestriction) Passes(o Order) bool {
	for _, p := range o.Products {
		if _, excluded := r.Excluded[p.ProductID]; excluded {
			continue
		}
		for _, c := range p.CategoryIDs {
			if _, ok := r.Allowed[c]; ok {
				return true
			}
		}
	}
	return false
}
