// Package handler exposes the pricing engine over a small JSON API: order
// quoting and placement, sale and coupon administration, catalog reads.
package handler

import (
	"net/http"

	"github.com/xenking/promo-engine/internal/domain/coupon"
	"github.com/xenking/promo-engine/internal/domain/order"
	"github.com/xenking/promo-engine/internal/domain/product"
	"github.com/xenking/promo-engine/internal/domain/sale"
	"github.com/xenking/promo-engine/internal/domain/shipping"
)

// Handler holds the domain services the API delegates to.
type Handler struct {
	products  product.Repository
	shipping  shipping.Repository
	orders    *order.Service
	saleAdmin *sale.AdminService
	coupons   coupon.Repository
	couponSvc *coupon.Service
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	products product.Repository,
	shippingMethods shipping.Repository,
	orders *order.Service,
	saleAdmin *sale.AdminService,
	coupons coupon.Repository,
	couponSvc *coupon.Service,
) *Handler {
	return &Handler{
		products:  products,
		shipping:  shippingMethods,
		orders:    orders,
		saleAdmin: saleAdmin,
		coupons:   coupons,
		couponSvc: couponSvc,
	}
}

// Register mounts all API routes on the given mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/shipping-methods", h.ListShippingMethods)
	mux.HandleFunc("POST /api/orders", h.PlaceOrder)
	mux.HandleFunc("POST /api/orders/quote", h.QuoteOrder)
	mux.HandleFunc("POST /api/sales", h.CreateSale)
	mux.HandleFunc("PUT /api/sales/{id}", h.UpdateSale)
	mux.HandleFunc("POST /api/coupons", h.CreateCoupon)
}
