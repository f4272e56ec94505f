package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/promo-engine/internal/domain/product"
)

const (
	listProductsSQL = `SELECT id, name, base_price, category_ids
		FROM products ORDER BY id`

	getProductByIDSQL = `SELECT id, name, base_price, category_ids
		FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT id, name, base_price, category_ids
		FROM products WHERE id = ANY($1)`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all products from the catalog ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id product.ID) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, string(id))
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs in one query.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []product.ID) ([]product.Product, error) {
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = string(id)
	}

	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, raw)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p          product.Product
		id         string
		price      decimal.Decimal
		categories []byte
	)
	if err := row.Scan(&id, &p.Name, &price, &categories); err != nil {
		return product.Product{}, err
	}

	categoryIDs, err := decodeIDs[product.CategoryID](categories)
	if err != nil {
		return product.Product{}, fmt.Errorf("decoding category ids: %w", err)
	}

	p.ID = product.ID(id)
	p.BasePrice = price
	p.CategoryIDs = categoryIDs
	return p, nil
}
