package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/promo-engine/internal/domain/coupon"
	"github.com/xenking/promo-engine/internal/domain/order"
	"github.com/xenking/promo-engine/internal/domain/product"
	"github.com/xenking/promo-engine/internal/domain/sale"
	"github.com/xenking/promo-engine/internal/domain/shipping"
)

type stubProducts struct {
	products map[product.ID]product.Product
}

func (s *stubProducts) List(_ context.Context) ([]product.Product, error) {
	out := make([]product.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	return out, nil
}

func (s *stubProducts) GetByID(_ context.Context, id product.ID) (*product.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (s *stubProducts) GetByIDs(_ context.Context, ids []product.ID) ([]product.Product, error) {
	out := make([]product.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type stubShipping struct {
	methods map[uuid.UUID]shipping.Method
}

func (s *stubShipping) List(_ context.Context) ([]shipping.Method, error) { return nil, nil }

func (s *stubShipping) GetByID(_ context.Context, id uuid.UUID) (*shipping.Method, error) {
	m, ok := s.methods[id]
	if !ok {
		return nil, shipping.ErrNotFound
	}
	return &m, nil
}

type stubSales struct {
	sales []*sale.Sale
}

func (s *stubSales) GetByID(_ context.Context, id uuid.UUID) (*sale.Sale, error) {
	for _, existing := range s.sales {
		if existing.ID == id {
			return existing, nil
		}
	}
	return nil, sale.ErrNotFound
}

func (s *stubSales) FindTargeting(_ context.Context, _ []product.ID, _ []product.CategoryID) ([]*sale.Sale, error) {
	return s.sales, nil
}

func (s *stubSales) Upsert(_ context.Context, created *sale.Sale) error {
	s.sales = append(s.sales, created)
	return nil
}

type stubCoupons struct {
	coupons []*coupon.Coupon
}

func (s *stubCoupons) GetByIDs(_ context.Context, ids []uuid.UUID) ([]*coupon.Coupon, error) {
	var out []*coupon.Coupon
	for _, c := range s.coupons {
		for _, id := range ids {
			if c.ID == id {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

func (s *stubCoupons) FindByCode(_ context.Context, _ string) (*coupon.Coupon, error) {
	return nil, &coupon.InvalidCouponError{}
}

func (s *stubCoupons) FindAutoApply(_ context.Context) ([]*coupon.Coupon, error) { return nil, nil }

func (s *stubCoupons) Upsert(_ context.Context, c *coupon.Coupon) error {
	s.coupons = append(s.coupons, c)
	return nil
}

type stubOrders struct {
	created []*order.Order
}

func (s *stubOrders) Create(_ context.Context, o *order.Order) error {
	s.created = append(s.created, o)
	return nil
}

type testEnv struct {
	mux        *http.ServeMux
	shippingID uuid.UUID
	orders     *stubOrders
	sales      *stubSales
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()

	products := &stubProducts{products: map[product.ID]product.Product{
		"p1": {ID: "p1", Name: "one", BasePrice: decimal.RequireFromString("100"), CategoryIDs: []product.CategoryID{"c1"}},
	}}
	shippingID := uuid.New()
	methods := &stubShipping{methods: map[uuid.UUID]shipping.Method{
		shippingID: {ID: shippingID, Name: "standard", Price: decimal.RequireFromString("5")},
	}}
	sales := &stubSales{}
	coupons := &stubCoupons{}
	orders := &stubOrders{}

	application := sale.NewApplicationService(sales)
	eligibility := sale.NewEligibilityService(products, application, decimal.RequireFromString("0.5"))
	saleAdmin := sale.NewAdminService(sales, eligibility)
	couponSvc := coupon.NewService(coupons)
	orderSvc := order.NewService(products, methods, application, couponSvc, orders)

	h := NewHandler(products, methods, orderSvc, saleAdmin, coupons, couponSvc)
	mux := http.NewServeMux()
	h.Register(mux)

	return testEnv{mux: mux, shippingID: shippingID, orders: orders, sales: sales}
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestQuoteOrder(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.mux, http.MethodPost, "/api/orders/quote", orderRequest{
		Items:            []orderItemRequest{{ProductID: "p1", Quantity: 2}},
		ShippingMethodID: env.shippingID,
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp orderResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, decimal.RequireFromString("205").Equal(resp.Total), "total %s", resp.Total)
	assert.Empty(t, resp.ID, "a quote is not persisted")
	assert.Empty(t, env.orders.created)
}

func TestPlaceOrder(t *testing.T) {
	env := newTestEnv(t)

	t.Run("created", func(t *testing.T) {
		rec := doJSON(t, env.mux, http.MethodPost, "/api/orders", orderRequest{
			Items:            []orderItemRequest{{ProductID: "p1", Quantity: 1}},
			ShippingMethodID: env.shippingID,
		})

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		require.Len(t, env.orders.created, 1)
	})

	t.Run("unknown product", func(t *testing.T) {
		rec := doJSON(t, env.mux, http.MethodPost, "/api/orders", orderRequest{
			Items:            []orderItemRequest{{ProductID: "p999", Quantity: 1}},
			ShippingMethodID: env.shippingID,
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("empty items", func(t *testing.T) {
		rec := doJSON(t, env.mux, http.MethodPost, "/api/orders", orderRequest{
			ShippingMethodID: env.shippingID,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown coupon", func(t *testing.T) {
		rec := doJSON(t, env.mux, http.MethodPost, "/api/orders", orderRequest{
			Items:            []orderItemRequest{{ProductID: "p1", Quantity: 1}},
			ShippingMethodID: env.shippingID,
			CouponIDs:        []uuid.UUID{uuid.New()},
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewBufferString("{"))
		rec := httptest.NewRecorder()
		env.mux.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCreateSale(t *testing.T) {
	activeWindow := discountRequest{
		Percentage:   20,
		Description:  "spring sale",
		StartingDate: time.Now().Add(-time.Hour),
		EndingDate:   time.Now().Add(time.Hour),
	}

	t.Run("created", func(t *testing.T) {
		env := newTestEnv(t)
		rec := doJSON(t, env.mux, http.MethodPost, "/api/sales", saleRequest{
			Discount:       activeWindow,
			ProductsOnSale: []string{"p1"},
		})

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		require.Len(t, env.sales.sales, 1)
	})

	t.Run("no targets", func(t *testing.T) {
		env := newTestEnv(t)
		rec := doJSON(t, env.mux, http.MethodPost, "/api/sales", saleRequest{Discount: activeWindow})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("price floor breach", func(t *testing.T) {
		env := newTestEnv(t)
		deep := activeWindow
		deep.Percentage = 90

		rec := doJSON(t, env.mux, http.MethodPost, "/api/sales", saleRequest{
			Discount:       deep,
			ProductsOnSale: []string{"p1"},
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Empty(t, env.sales.sales)
	})

	t.Run("invalid discount window", func(t *testing.T) {
		env := newTestEnv(t)
		backwards := activeWindow
		backwards.EndingDate = backwards.StartingDate.Add(-time.Hour)

		rec := doJSON(t, env.mux, http.MethodPost, "/api/sales", saleRequest{
			Discount:       backwards,
			ProductsOnSale: []string{"p1"},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUpdateSale_NotFound(t *testing.T) {
	env := newTestEnv(t)
	rec := doJSON(t, env.mux, http.MethodPut, "/api/sales/"+uuid.NewString(), saleRequest{
		Discount: discountRequest{
			Percentage:   10,
			StartingDate: time.Now().Add(-time.Hour),
			EndingDate:   time.Now().Add(time.Hour),
		},
		ProductsOnSale: []string{"p1"},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateCoupon(t *testing.T) {
	window := discountRequest{
		Percentage:   10,
		Description:  "ten off",
		StartingDate: time.Now().Add(-time.Hour),
		EndingDate:   time.Now().Add(time.Hour),
	}

	t.Run("created with restrictions", func(t *testing.T) {
		env := newTestEnv(t)
		rec := doJSON(t, env.mux, http.MethodPost, "/api/coupons", couponRequest{
			Code:       "save10",
			Discount:   window,
			UsageLimit: 100,
			Restrictions: []restrictionRequest{
				{Type: "product", ProductsAllowed: []string{"p1"}},
				{Type: "category", CategoriesAllowed: []string{"c1"}, ProductsExcluded: []string{"p9"}},
			},
		})

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var resp couponResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "SAVE10", resp.Code)
	})

	t.Run("empty restriction allowed set", func(t *testing.T) {
		env := newTestEnv(t)
		rec := doJSON(t, env.mux, http.MethodPost, "/api/coupons", couponRequest{
			Code:       "save10",
			Discount:   window,
			UsageLimit: 100,
			Restrictions: []restrictionRequest{
				{Type: "product"},
			},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("zero usage limit", func(t *testing.T) {
		env := newTestEnv(t)
		rec := doJSON(t, env.mux, http.MethodPost, "/api/coupons", couponRequest{
			Code:     "save10",
			Discount: window,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
