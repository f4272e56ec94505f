package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/promo-engine/internal/domain/pricing"
	"github.com/xenking/promo-engine/internal/domain/product"
	"github.com/xenking/promo-engine/internal/domain/sale"
)

const (
	getSaleByIDSQL = `SELECT id, percentage, description, starting_date, ending_date,
			categories_on_sale, products_on_sale, products_excluded
		FROM sales WHERE id = $1`

	// One batched lookup: a sale is a candidate when its product inclusion
	// set or its category inclusion set intersects the requested ids.
	findTargetingSQL = `SELECT id, percentage, description, starting_date, ending_date,
			categories_on_sale, products_on_sale, products_excluded
		FROM sales
		WHERE products_on_sale ?| $1 OR categories_on_sale ?| $2`

	upsertSaleSQL = `INSERT INTO sales (id, percentage, description, starting_date, ending_date,
			categories_on_sale, products_on_sale, products_excluded)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			percentage = EXCLUDED.percentage,
			description = EXCLUDED.description,
			starting_date = EXCLUDED.starting_date,
			ending_date = EXCLUDED.ending_date,
			categories_on_sale = EXCLUDED.categories_on_sale,
			products_on_sale = EXCLUDED.products_on_sale,
			products_excluded = EXCLUDED.products_excluded`
)

var _ sale.Repository = (*SaleRepository)(nil)

// SaleRepository implements sale.Repository backed by PostgreSQL. Target sets
// are stored as JSONB arrays so inclusion checks can use the ?| operator.
type SaleRepository struct {
	pool *pgxpool.Pool
}

// NewSaleRepository returns a SaleRepository that uses the given pool.
func NewSaleRepository(pool *pgxpool.Pool) *SaleRepository {
	return &SaleRepository{pool: pool}
}

// GetByID returns a single sale by its identifier.
func (r *SaleRepository) GetByID(ctx context.Context, id uuid.UUID) (*sale.Sale, error) {
	rows, err := r.pool.Query(ctx, getSaleByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting sale %q: %w", id, err)
	}

	s, err := pgx.CollectExactlyOneRow(rows, scanSale)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sale.ErrNotFound
		}
		return nil, fmt.Errorf("getting sale %q: %w", id, err)
	}
	return s, nil
}

// FindTargeting returns every sale whose inclusion sets intersect the given
// product or category ids, in a single query.
func (r *SaleRepository) FindTargeting(
	ctx context.Context,
	productIDs []product.ID,
	categoryIDs []product.CategoryID,
) ([]*sale.Sale, error) {
	rawProducts := make([]string, len(productIDs))
	for i, id := range productIDs {
		rawProducts[i] = string(id)
	}
	rawCategories := make([]string, len(categoryIDs))
	for i, id := range categoryIDs {
		rawCategories[i] = string(id)
	}

	rows, err := r.pool.Query(ctx, findTargetingSQL, rawProducts, rawCategories)
	if err != nil {
		return nil, fmt.Errorf("finding targeting sales: %w", err)
	}
	return pgx.CollectRows(rows, scanSale)
}

// Upsert stores the sale as a whole aggregate.
func (r *SaleRepository) Upsert(ctx context.Context, s *sale.Sale) error {
	_, err := r.pool.Exec(ctx, upsertSaleSQL,
		s.ID,
		s.Discount.Percentage,
		s.Discount.Description,
		s.Discount.StartingDate,
		s.Discount.EndingDate,
		encodeIDs(setToSlice(s.CategoriesOnSale)),
		encodeIDs(setToSlice(s.ProductsOnSale)),
		encodeIDs(setToSlice(s.ProductsExcluded)),
	)
	if err != nil {
		return fmt.Errorf("upserting sale %q: %w", s.ID, err)
	}
	return nil
}

func scanSale(row pgx.CollectableRow) (*sale.Sale, error) {
	var (
		id                             uuid.UUID
		percentage                     int
		description                    string
		start, end                     time.Time
		categories, products, excluded []byte
	)
	if err := row.Scan(&id, &percentage, &description, &start, &end,
		&categories, &products, &excluded); err != nil {
		return nil, err
	}

	discount, err := pricing.NewDiscount(percentage, description, start, end)
	if err != nil {
		return nil, fmt.Errorf("sale %s holds an invalid discount: %w", id, err)
	}

	categoryIDs, err := decodeIDs[product.CategoryID](categories)
	if err != nil {
		return nil, fmt.Errorf("decoding sale categories: %w", err)
	}
	productIDs, err := decodeIDs[product.ID](products)
	if err != nil {
		return nil, fmt.Errorf("decoding sale products: %w", err)
	}
	excludedIDs, err := decodeIDs[product.ID](excluded)
	if err != nil {
		return nil, fmt.Errorf("decoding sale exclusions: %w", err)
	}

	return sale.New(id, discount, categoryIDs, productIDs, excludedIDs)
}

func setToSlice[T ~string](set map[T]struct{}) []T {
	out := make([]T, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	return out
}
