package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/promo-engine/internal/domain/coupon"
	"github.com/xenking/promo-engine/internal/domain/pricing"
	"github.com/xenking/promo-engine/internal/domain/product"
	"github.com/xenking/promo-engine/internal/domain/sale"
	"github.com/xenking/promo-engine/internal/domain/shipping"
)

var tracer trace.Tracer = otel.Tracer("promo-engine/order")

// DraftItem is an unpriced line in an order request.
type DraftItem struct {
	ProductID product.ID
	Quantity  int
}

// Request holds the input for pricing or placing an order.
type Request struct {
	Items            []DraftItem
	ShippingMethodID uuid.UUID
	CouponIDs        []uuid.UUID
}

// Service composes line-item sale prices, shipping cost, and coupon discounts
// into a final order total.
type Service struct {
	products product.Repository
	shipping shipping.Repository
	sales    *sale.ApplicationService
	coupons  *coupon.Service
	orders   Repository

	now    func() time.Time
	placed metric.Int64Counter
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	products product.Repository,
	shippingMethods shipping.Repository,
	sales *sale.ApplicationService,
	coupons *coupon.Service,
	orders Repository,
) *Service {
	placed, _ := otel.Meter("promo-engine/order").Int64Counter("orders_placed_total",
		metric.WithDescription("Number of successfully placed orders"))

	return &Service{
		products: products,
		shipping: shippingMethods,
		sales:    sales,
		coupons:  coupons,
		orders:   orders,
		now:      time.Now,
		placed:   placed,
	}
}

// PriceOrder computes a fully priced order without persisting anything:
// per-line sale prices, shipping, and coupon discounts. Auto-apply coupons
// that fit the order are included alongside the requested ones.
func (s *Service) PriceOrder(ctx context.Context, req Request) (*Order, error) {
	ctx, span := tracer.Start(ctx, "order.Price")
	defer span.End()

	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	ids := make([]product.ID, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
		ids[i] = item.ProductID
	}

	// Products and the shipping method are independent lookups; fetch them
	// concurrently, each in a single round-trip.
	var (
		fetched []product.Product
		method  *shipping.Method
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		fetched, err = s.products.GetByIDs(gctx, ids)
		return errors.Wrap(err, "get products")
	})
	g.Go(func() error {
		var err error
		method, err = s.shipping.GetByID(gctx, req.ShippingMethodID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	productMap := make(map[product.ID]product.Product, len(fetched))
	for _, p := range fetched {
		productMap[p.ID] = p
	}
	for _, item := range req.Items {
		if _, ok := productMap[item.ProductID]; !ok {
			return nil, &ProductNotFoundError{ProductID: item.ProductID}
		}
	}

	eligible := make([]sale.EligibleProduct, len(fetched))
	for i, p := range fetched {
		eligible[i] = sale.EligibleProduct{ID: p.ID, CategoryIDs: p.CategoryIDs}
	}
	applicable, err := s.sales.ApplicableSales(ctx, eligible)
	if err != nil {
		return nil, errors.Wrap(err, "resolve applicable sales")
	}

	// Freeze per-line purchased prices and build the coupon projection.
	items := make([]LineItem, len(req.Items))
	couponProducts := make([]coupon.OrderProduct, len(req.Items))
	subtotal := decimal.Zero
	for i, item := range req.Items {
		p := productMap[item.ProductID]
		purchased := pricing.Stack(p.BasePrice, sale.Discounts(applicable[p.ID]))

		items[i] = LineItem{
			ProductID:      item.ProductID,
			Quantity:       item.Quantity,
			PurchasedPrice: purchased,
		}
		couponProducts[i] = coupon.OrderProduct{
			ProductID:   p.ID,
			CategoryIDs: p.CategoryIDs,
		}
		subtotal = subtotal.Add(purchased.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	baseTotal := subtotal.Add(method.Price)
	couponOrder := coupon.Order{Products: couponProducts, Total: baseTotal}

	couponIDs, err := s.resolveCouponIDs(ctx, couponOrder, req.CouponIDs)
	if err != nil {
		return nil, err
	}

	total, err := s.coupons.ApplyCoupons(ctx, couponOrder, couponIDs)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("order.items", len(items)),
		attribute.Int("order.coupons", len(couponIDs)),
	)

	return &Order{
		Items:            items,
		ShippingMethodID: method.ID,
		ShippingPrice:    method.Price,
		Subtotal:         subtotal.Round(2),
		Total:            total,
		CouponIDs:        couponIDs,
	}, nil
}

// PlaceOrder prices the order and persists it. Coupon usage is consumed by
// the repository in the same transaction as the order insert, so a lost
// usage-limit race surfaces here as coupon.InvalidCouponError.
func (s *Service) PlaceOrder(ctx context.Context, req Request) (*Order, error) {
	ctx, span := tracer.Start(ctx, "order.Place")
	defer span.End()

	o, err := s.PriceOrder(ctx, req)
	if err != nil {
		return nil, err
	}

	o.ID = uuid.New()
	o.CreatedAt = s.now()

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	s.placed.Add(ctx, 1)
	return o, nil
}

// resolveCouponIDs merges the requested coupon ids with the applicable
// auto-apply coupons, deduplicated, requested first.
func (s *Service) resolveCouponIDs(ctx context.Context, o coupon.Order, requested []uuid.UUID) ([]uuid.UUID, error) {
	auto, err := s.coupons.AutoApplicable(ctx, o)
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]struct{}, len(requested)+len(auto))
	ids := make([]uuid.UUID, 0, len(requested)+len(auto))
	for _, id := range requested {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, c := range auto {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		ids = append(ids, c.ID)
	}
	return ids, nil
}
