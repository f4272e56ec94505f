package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// ID identifies a product. Sales and coupons reference products only through
// this opaque id, never through embedded product values.
type ID string

// CategoryID identifies a category a product belongs to.
type CategoryID string

// Product is the catalog projection the pricing engine needs: a base price
// and the category memberships promotions are matched against.
type Product struct {
	ID          ID
	Name        string
	BasePrice   decimal.Decimal
	CategoryIDs []CategoryID
}

// InCategory reports whether the product belongs to the given category.
func (p Product) InCategory(id CategoryID) bool {
	for _, c := range p.CategoryIDs {
		if c == id {
			return true
		}
	}
	return false
}

// Repository defines read operations for the product catalog. Lookups are
// batched by id set; implementations must resolve a whole set in one query.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id ID) (*Product, error)
	GetByIDs(ctx context.Context, ids []ID) ([]Product, error)
}
