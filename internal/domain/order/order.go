package order

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/promo-engine/internal/domain/product"
)

// Sentinel errors for order validation.
var (
	ErrEmptyItems = fmt.Errorf("items required")
)

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID product.ID
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID product.ID
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// LineItem is one priced order line. PurchasedPrice is the product's base
// price with its applicable sales stacked, frozen at placement time: later
// sale changes never alter historical orders.
type LineItem struct {
	ProductID      product.ID
	Quantity       int
	PurchasedPrice decimal.Decimal
}

// Order is a fully priced order. Subtotal covers the line items, Total adds
// shipping and subtracts coupon discounts. Both are frozen once committed.
type Order struct {
	ID               uuid.UUID
	Items            []LineItem
	ShippingMethodID uuid.UUID
	ShippingPrice    decimal.Decimal
	Subtotal         decimal.Decimal
	Total            decimal.Decimal
	CouponIDs        []uuid.UUID
	CreatedAt        time.Time
}

// Repository defines persistence for orders. Create must consume usage for
// every coupon on the order in the same transaction as the order insert and
// report an exhausted counter as coupon.InvalidCouponError.
type Repository interface {
	Create(ctx context.Context, o *Order) error
}
