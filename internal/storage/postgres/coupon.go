package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/promo-engine/internal/domain/coupon"
	"github.com/xenking/promo-engine/internal/domain/pricing"
	"github.com/xenking/promo-engine/internal/domain/product"
)

const (
	couponColumns = `id, code, percentage, description, starting_date, ending_date,
			usage_limit, min_price, auto_apply, active, restrictions`

	getCouponsByIDsSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE id = ANY($1)`

	getCouponByCodeSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`

	findAutoApplySQL = `SELECT ` + couponColumns + ` FROM coupons WHERE auto_apply AND active`

	upsertCouponSQL = `INSERT INTO coupons (id, code, percentage, description, starting_date,
			ending_date, usage_limit, min_price, auto_apply, active, restrictions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			code = EXCLUDED.code,
			percentage = EXCLUDED.percentage,
			description = EXCLUDED.description,
			starting_date = EXCLUDED.starting_date,
			ending_date = EXCLUDED.ending_date,
			usage_limit = EXCLUDED.usage_limit,
			min_price = EXCLUDED.min_price,
			auto_apply = EXCLUDED.auto_apply,
			active = EXCLUDED.active,
			restrictions = EXCLUDED.restrictions`

	upsertCouponByCodeSQL = `INSERT INTO coupons (id, code, percentage, description, starting_date,
			ending_date, usage_limit, min_price, auto_apply, active, restrictions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (code) DO UPDATE SET
			percentage = EXCLUDED.percentage,
			description = EXCLUDED.description,
			starting_date = EXCLUDED.starting_date,
			ending_date = EXCLUDED.ending_date,
			usage_limit = EXCLUDED.usage_limit,
			min_price = EXCLUDED.min_price,
			auto_apply = EXCLUDED.auto_apply,
			active = EXCLUDED.active,
			restrictions = EXCLUDED.restrictions`

	// Usage consumption is a conditional update: zero rows affected means the
	// limit is exhausted, including when a concurrent transaction won a race.
	consumeUsageSQL = `UPDATE coupons SET uses = uses + 1
		WHERE id = $1 AND uses < usage_limit`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
// Restrictions are stored as a JSONB array of tagged variants.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// GetByIDs returns the coupons matching the given ids in one query. Missing
// ids are absent from the result, not an error.
func (r *CouponRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting coupons by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanCoupon)
}

// FindByCode looks up a coupon by its normalized code.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, coupon.NormalizeCode(code))
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &coupon.InvalidCouponError{}
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return c, nil
}

// FindAutoApply returns all active auto-apply coupons.
func (r *CouponRepository) FindAutoApply(ctx context.Context) ([]*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, findAutoApplySQL)
	if err != nil {
		return nil, fmt.Errorf("finding auto-apply coupons: %w", err)
	}
	return pgx.CollectRows(rows, scanCoupon)
}

// Upsert stores the coupon as a whole aggregate. The usage counter column is
// deliberately untouched on update.
func (r *CouponRepository) Upsert(ctx context.Context, c *coupon.Coupon) error {
	restrictions, err := encodeRestrictions(c.Restrictions)
	if err != nil {
		return fmt.Errorf("encoding restrictions: %w", err)
	}

	_, err = r.pool.Exec(ctx, upsertCouponSQL,
		c.ID,
		c.Code,
		c.Discount.Percentage,
		c.Discount.Description,
		c.Discount.StartingDate,
		c.Discount.EndingDate,
		c.UsageLimit,
		c.MinPrice,
		c.AutoApply,
		c.Active,
		restrictions,
	)
	if err != nil {
		return fmt.Errorf("upserting coupon %q: %w", c.ID, err)
	}
	return nil
}

// UpsertByCode stores the coupon keyed by its code, keeping the existing id
// and usage counter when the code is already present. Bulk ingest uses this
// to stay idempotent across runs.
func (r *CouponRepository) UpsertByCode(ctx context.Context, c *coupon.Coupon) error {
	restrictions, err := encodeRestrictions(c.Restrictions)
	if err != nil {
		return fmt.Errorf("encoding restrictions: %w", err)
	}

	_, err = r.pool.Exec(ctx, upsertCouponByCodeSQL,
		c.ID,
		c.Code,
		c.Discount.Percentage,
		c.Discount.Description,
		c.Discount.StartingDate,
		c.Discount.EndingDate,
		c.UsageLimit,
		c.MinPrice,
		c.AutoApply,
		c.Active,
		restrictions,
	)
	if err != nil {
		return fmt.Errorf("upserting coupon %q: %w", c.Code, err)
	}
	return nil
}

func scanCoupon(row pgx.CollectableRow) (*coupon.Coupon, error) {
	var (
		id           uuid.UUID
		code         string
		percentage   int
		description  string
		start, end   time.Time
		usageLimit   int
		minPrice     decimal.Decimal
		autoApply    bool
		active       bool
		restrictions []byte
	)
	if err := row.Scan(&id, &code, &percentage, &description, &start, &end,
		&usageLimit, &minPrice, &autoApply, &active, &restrictions); err != nil {
		return nil, err
	}

	discount, err := pricing.NewDiscount(percentage, description, start, end)
	if err != nil {
		return nil, fmt.Errorf("coupon %s holds an invalid discount: %w", id, err)
	}

	c, err := coupon.New(id, code, discount, usageLimit, minPrice, autoApply)
	if err != nil {
		return nil, fmt.Errorf("coupon %s failed validation: %w", id, err)
	}
	c.Active = active

	decoded, err := decodeRestrictions(restrictions)
	if err != nil {
		return nil, fmt.Errorf("decoding coupon %s restrictions: %w", id, err)
	}
	c.Restrictions = decoded
	return c, nil
}

// Restriction variants are stored as tagged JSON objects:
//
//	{"type": "product", "products_allowed": [...]}
//	{"type": "category", "categories_allowed": [...], "products_excluded": [...]}
func encodeRestrictions(restrictions []coupon.Restriction) ([]byte, error) {
	e := &jx.Encoder{}
	e.ArrStart()
	for _, r := range restrictions {
		switch v := r.(type) {
		case coupon.ProductRestriction:
			e.ObjStart()
			e.FieldStart("type")
			e.Str("product")
			e.FieldStart("products_allowed")
			e.Raw(encodeIDs(setToSlice(v.Allowed)))
			e.ObjEnd()
		case coupon.CategoryRestriction:
			e.ObjStart()
			e.FieldStart("type")
			e.Str("category")
			e.FieldStart("categories_allowed")
			e.Raw(encodeIDs(setToSlice(v.Allowed)))
			e.FieldStart("products_excluded")
			e.Raw(encodeIDs(setToSlice(v.Excluded)))
			e.ObjEnd()
		default:
			return nil, errors.Errorf("unsupported restriction type %T", r)
		}
	}
	e.ArrEnd()
	return e.Bytes(), nil
}

func decodeRestrictions(data []byte) ([]coupon.Restriction, error) {
	var out []coupon.Restriction
	d := jx.DecodeBytes(data)
	err := d.Arr(func(d *jx.Decoder) error {
		var (
			kind              string
			productsAllowed   []product.ID
			categoriesAllowed []product.CategoryID
			productsExcluded  []product.ID
		)
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "type":
				v, err := d.Str()
				kind = v
				return err
			case "products_allowed":
				raw, err := d.Raw()
				if err != nil {
					return err
				}
				productsAllowed, err = decodeIDs[product.ID](raw)
				return err
			case "categories_allowed":
				raw, err := d.Raw()
				if err != nil {
					return err
				}
				categoriesAllowed, err = decodeIDs[product.CategoryID](raw)
				return err
			case "products_excluded":
				raw, err := d.Raw()
				if err != nil {
					return err
				}
				productsExcluded, err = decodeIDs[product.ID](raw)
				return err
			default:
				return d.Skip()
			}
		}); err != nil {
			return err
		}

		switch kind {
		case "product":
			r, err := coupon.NewProductRestriction(productsAllowed)
			if err != nil {
				return err
			}
			out = append(out, r)
		case "category":
			r, err := coupon.NewCategoryRestriction(categoriesAllowed, productsExcluded)
			if err != nil {
				return err
			}
			out = append(out, r)
		default:
			return errors.Errorf("unknown restriction type %q", kind)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
