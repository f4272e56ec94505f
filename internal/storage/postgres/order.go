package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/jx"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/promo-engine/internal/domain/coupon"
	"github.com/xenking/promo-engine/internal/domain/order"
)

const createOrderSQL = `INSERT INTO orders (id, items, shipping_method_id, shipping_price,
		subtotal, total, coupon_ids, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order and consumes one usage of every applied coupon in
// the same transaction. A coupon whose usage counter is already at its limit
// rolls the whole order back and surfaces as coupon.InvalidCouponError; that
// covers the check-then-act race between concurrent placements.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning order transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	couponIDs := make([]string, len(o.CouponIDs))
	for i, id := range o.CouponIDs {
		couponIDs[i] = id.String()
	}

	_, err = tx.Exec(ctx, createOrderSQL,
		o.ID,
		encodeOrderItems(o.Items),
		o.ShippingMethodID,
		o.ShippingPrice,
		o.Subtotal,
		o.Total,
		encodeIDs(couponIDs),
		o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	for _, id := range o.CouponIDs {
		tag, err := tx.Exec(ctx, consumeUsageSQL, id)
		if err != nil {
			return fmt.Errorf("consuming usage of coupon %q: %w", id, err)
		}
		if tag.RowsAffected() == 0 {
			return &coupon.InvalidCouponError{CouponID: id}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order %q: %w", o.ID, err)
	}
	return nil
}

// encodeOrderItems serializes line items for the JSONB column. Purchased
// prices are stored as strings to keep exact decimal representation.
func encodeOrderItems(items []order.LineItem) []byte {
	e := &jx.Encoder{}
	e.ArrStart()
	for _, item := range items {
		e.ObjStart()
		e.FieldStart("product_id")
		e.Str(string(item.ProductID))
		e.FieldStart("quantity")
		e.Int(item.Quantity)
		e.FieldStart("purchased_price")
		e.Str(item.PurchasedPrice.String())
		e.ObjEnd()
	}
	e.ArrEnd()
	return e.Bytes()
}
