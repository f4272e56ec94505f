package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/promo-engine/internal/domain/shipping"
)

const (
	listShippingMethodsSQL = `SELECT id, name, price FROM shipping_methods ORDER BY name`

	getShippingMethodSQL = `SELECT id, name, price FROM shipping_methods WHERE id = $1`
)

var _ shipping.Repository = (*ShippingRepository)(nil)

// ShippingRepository implements shipping.Repository backed by PostgreSQL.
type ShippingRepository struct {
	pool *pgxpool.Pool
}

// NewShippingRepository returns a ShippingRepository that uses the given pool.
func NewShippingRepository(pool *pgxpool.Pool) *ShippingRepository {
	return &ShippingRepository{pool: pool}
}

// List returns all shipping methods ordered by name.
func (r *ShippingRepository) List(ctx context.Context) ([]shipping.Method, error) {
	rows, err := r.pool.Query(ctx, listShippingMethodsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing shipping methods: %w", err)
	}
	return pgx.CollectRows(rows, scanShippingMethod)
}

// GetByID returns a single shipping method by its identifier.
func (r *ShippingRepository) GetByID(ctx context.Context, id uuid.UUID) (*shipping.Method, error) {
	rows, err := r.pool.Query(ctx, getShippingMethodSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting shipping method %q: %w", id, err)
	}

	m, err := pgx.CollectExactlyOneRow(rows, scanShippingMethod)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shipping.ErrNotFound
		}
		return nil, fmt.Errorf("getting shipping method %q: %w", id, err)
	}
	return &m, nil
}

func scanShippingMethod(row pgx.CollectableRow) (shipping.Method, error) {
	var m shipping.Method
	err := row.Scan(&m.ID, &m.Name, &m.Price)
	return m, err
}
