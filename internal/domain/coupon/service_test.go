package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/promo-engine/internal/domain/pricing"
	"github.com/xenking/promo-engine/internal/domain/product"
)

type mockCouponRepo struct {
	coupons []*Coupon
	err     error
}

func (m *mockCouponRepo) GetByIDs(_ context.Context, ids []uuid.UUID) ([]*Coupon, error) {
	if m.err != nil {
		return nil, m.err
	}
	wanted := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	var out []*Coupon
	for _, c := range m.coupons {
		if _, ok := wanted[c.ID]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockCouponRepo) FindByCode(_ context.Context, code string) (*Coupon, error) {
	for _, c := range m.coupons {
		if c.Code == code {
			return c, nil
		}
	}
	return nil, &InvalidCouponError{}
}

func (m *mockCouponRepo) FindAutoApply(_ context.Context) ([]*Coupon, error) {
	var out []*Coupon
	for _, c := range m.coupons {
		if c.AutoApply {
			out = append(out, c)
		}
	}
	return out, m.err
}

func (m *mockCouponRepo) Upsert(_ context.Context, c *Coupon) error {
	m.coupons = append(m.coupons, c)
	return nil
}

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func activeDiscount(t *testing.T, percentage int) pricing.Discount {
	t.Helper()
	d, err := pricing.NewDiscount(percentage, "test", fixedNow.Add(-time.Hour), fixedNow.Add(time.Hour))
	require.NoError(t, err)
	return d
}

func expiredDiscount(t *testing.T, percentage int) pricing.Discount {
	t.Helper()
	d, err := pricing.NewDiscount(percentage, "test", fixedNow.Add(-48*time.Hour), fixedNow.Add(-24*time.Hour))
	require.NoError(t, err)
	return d
}

func buildCoupon(t *testing.T, d pricing.Discount, minPrice string, restrictions ...Restriction) *Coupon {
	t.Helper()
	c, err := New(uuid.New(), "TESTCODE-"+uuid.NewString()[:8], d, 10, decimal.RequireFromString(minPrice), false)
	require.NoError(t, err)
	c.Restrictions = restrictions
	return c
}

func newTestService(coupons ...*Coupon) (*Service, *mockCouponRepo) {
	repo := &mockCouponRepo{coupons: coupons}
	svc := NewService(repo)
	svc.now = func() time.Time { return fixedNow }
	return svc, repo
}

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		code       string
		usageLimit int
		minPrice   string
		wantErr    error
	}{
		{name: "valid", code: "save10", usageLimit: 1, minPrice: "0"},
		{name: "blank code", code: "   ", usageLimit: 1, minPrice: "0", wantErr: ErrEmptyCode},
		{name: "zero usage limit", code: "X", usageLimit: 0, minPrice: "0", wantErr: ErrInvalidUsageLimit},
		{name: "negative min price", code: "X", usageLimit: 1, minPrice: "-1", wantErr: ErrNegativeMinPrice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(uuid.New(), tt.code, activeDiscount(t, 10), tt.usageLimit, decimal.RequireFromString(tt.minPrice), false)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "SAVE10", c.Code, "code is upper-normalized")
			assert.True(t, c.Active)
		})
	}
}

func TestService_IsApplicable(t *testing.T) {
	p1Only, err := NewProductRestriction([]product.ID{"p1"})
	require.NoError(t, err)

	orderTotal := func(total string, products ...OrderProduct) Order {
		return Order{Products: products, Total: decimal.RequireFromString(total)}
	}
	p1Line := OrderProduct{ProductID: "p1", CategoryIDs: []product.CategoryID{"c1"}}
	p2Line := OrderProduct{ProductID: "p2", CategoryIDs: []product.CategoryID{"c2"}}

	tests := []struct {
		name   string
		coupon *Coupon
		order  Order
		want   bool
	}{
		{
			name:   "all checks pass",
			coupon: buildCoupon(t, activeDiscount(t, 10), "50", p1Only),
			order:  orderTotal("60", p1Line),
			want:   true,
		},
		{
			name:   "below minimum price",
			coupon: buildCoupon(t, activeDiscount(t, 10), "50", p1Only),
			order:  orderTotal("40", p1Line),
			want:   false,
		},
		{
			name:   "restriction not satisfied",
			coupon: buildCoupon(t, activeDiscount(t, 10), "50", p1Only),
			order:  orderTotal("60", p2Line),
			want:   false,
		},
		{
			name:   "expired discount",
			coupon: buildCoupon(t, expiredDiscount(t, 10), "0"),
			order:  orderTotal("60", p1Line),
			want:   false,
		},
		{
			name:   "no restrictions pass vacuously",
			coupon: buildCoupon(t, activeDiscount(t, 10), "0"),
			order:  orderTotal("60", p2Line),
			want:   true,
		},
		{
			name: "inactive coupon",
			coupon: func() *Coupon {
				c := buildCoupon(t, activeDiscount(t, 10), "0")
				c.Active = false
				return c
			}(),
			order: orderTotal("60", p1Line),
			want:  false,
		},
		{
			name:   "total exactly at minimum price passes",
			coupon: buildCoupon(t, activeDiscount(t, 10), "60"),
			order:  orderTotal("60", p1Line),
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(tt.coupon)
			assert.Equal(t, tt.want, svc.IsApplicable(tt.coupon, tt.order))
		})
	}
}

func TestService_ApplyCoupons(t *testing.T) {
	order := Order{
		Products: []OrderProduct{{ProductID: "p1", CategoryIDs: []product.CategoryID{"c1"}}},
		Total:    decimal.RequireFromString("100"),
	}

	t.Run("no coupons returns total unchanged", func(t *testing.T) {
		svc, _ := newTestService()
		got, err := svc.ApplyCoupons(context.Background(), order, nil)
		require.NoError(t, err)
		assert.True(t, order.Total.Equal(got))
	})

	t.Run("stacks valid coupons descending", func(t *testing.T) {
		twenty := buildCoupon(t, activeDiscount(t, 20), "0")
		ten := buildCoupon(t, activeDiscount(t, 10), "0")
		svc, _ := newTestService(twenty, ten)

		got, err := svc.ApplyCoupons(context.Background(), order, []uuid.UUID{ten.ID, twenty.ID})
		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("72").Equal(got), "got %s", got)
	})

	t.Run("unknown id rejects the whole batch", func(t *testing.T) {
		valid := buildCoupon(t, activeDiscount(t, 20), "0")
		svc, _ := newTestService(valid)
		missing := uuid.New()

		_, err := svc.ApplyCoupons(context.Background(), order, []uuid.UUID{valid.ID, missing})

		var invalid *InvalidCouponError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, missing, invalid.CouponID)
	})

	t.Run("one failing restriction rejects the whole batch", func(t *testing.T) {
		p9Only, err := NewProductRestriction([]product.ID{"p9"})
		require.NoError(t, err)

		valid := buildCoupon(t, activeDiscount(t, 20), "0")
		restricted := buildCoupon(t, activeDiscount(t, 10), "0", p9Only)
		svc, _ := newTestService(valid, restricted)

		_, err = svc.ApplyCoupons(context.Background(), order, []uuid.UUID{valid.ID, restricted.ID})

		var invalid *InvalidCouponError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, restricted.ID, invalid.CouponID)
	})
}

func TestService_AutoApplicable(t *testing.T) {
	order := Order{
		Products: []OrderProduct{{ProductID: "p1"}},
		Total:    decimal.RequireFromString("100"),
	}

	auto := buildCoupon(t, activeDiscount(t, 5), "0")
	auto.AutoApply = true
	autoTooExpensive := buildCoupon(t, activeDiscount(t, 50), "500")
	autoTooExpensive.AutoApply = true
	manual := buildCoupon(t, activeDiscount(t, 10), "0")

	svc, _ := newTestService(auto, autoTooExpensive, manual)

	got, err := svc.AutoApplicable(context.Background(), order)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, auto.ID, got[0].ID)
}
