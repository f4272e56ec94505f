// Package sale holds the Sale aggregate and the services that decide which
// sales apply to which products and whether a new sale may be created at all.
package sale

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/promo-engine/internal/domain/pricing"
	"github.com/xenking/promo-engine/internal/domain/product"
)

var (
	// ErrNoTargets is returned when a sale targets no category and no product.
	ErrNoTargets = errors.New("sale must target at least one category or product")
	// ErrNotFound is returned when a requested sale does not exist.
	ErrNotFound = errors.New("sale not found")
)

// Sale is a promotional campaign: one discount plus the category/product sets
// it targets and the products explicitly carved out of it. A sale is never
// deleted; it expires through its discount's validity window.
type Sale struct {
	ID               uuid.UUID
	Discount         pricing.Discount
	CategoriesOnSale map[product.CategoryID]struct{}
	ProductsOnSale   map[product.ID]struct{}
	ProductsExcluded map[product.ID]struct{}
}

// New builds a Sale targeting the given categories and products. A sale with
// no targets at all is rejected.
func New(
	id uuid.UUID,
	discount pricing.Discount,
	categories []product.CategoryID,
	products []product.ID,
	excluded []product.ID,
) (*Sale, error) {
	if len(categories) == 0 && len(products) == 0 {
		return nil, ErrNoTargets
	}
	return &Sale{
		ID:               id,
		Discount:         discount,
		CategoriesOnSale: categorySet(categories),
		ProductsOnSale:   productSet(products),
		ProductsExcluded: productSet(excluded),
	}, nil
}

// Replace swaps the discount and all three target sets wholesale, keeping the
// same invariant as New. On error the sale is left unchanged.
func (s *Sale) Replace(
	discount pricing.Discount,
	categories []product.CategoryID,
	products []product.ID,
	excluded []product.ID,
) error {
	if len(categories) == 0 && len(products) == 0 {
		return ErrNoTargets
	}
	s.Discount = discount
	s.CategoriesOnSale = categorySet(categories)
	s.ProductsOnSale = productSet(products)
	s.ProductsExcluded = productSet(excluded)
	return nil
}

// AppliesTo reports whether the sale covers the given product: directly
// listed or in a targeted category, and not explicitly excluded. Exclusion
// always wins over category inclusion.
func (s *Sale) AppliesTo(id product.ID, categories []product.CategoryID) bool {
	if _, excluded := s.ProductsExcluded[id]; excluded {
		return false
	}
	if _, ok := s.ProductsOnSale[id]; ok {
		return true
	}
	for _, c := range categories {
		if _, ok := s.CategoriesOnSale[c]; ok {
			return true
		}
	}
	return false
}

// EligibleProduct is the projection used to query applicable sales without
// loading full product entities.
type EligibleProduct struct {
	ID          product.ID
	CategoryIDs []product.CategoryID
}

// Repository defines persistence for sales. FindTargeting must resolve all
// sales whose inclusion sets intersect the given ids in a single query.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Sale, error)
	FindTargeting(ctx context.Context, productIDs []product.ID, categoryIDs []product.CategoryID) ([]*Sale, error)
	Upsert(ctx context.Context, s *Sale) error
}

func categorySet(ids []product.CategoryID) map[product.CategoryID]struct{} {
	set := make(map[product.CategoryID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func productSet(ids []product.ID) map[product.ID]struct{} {
	set := make(map[product.ID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
