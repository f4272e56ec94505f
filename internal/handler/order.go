package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/promo-engine/internal/domain/coupon"
	"github.com/xenking/promo-engine/internal/domain/order"
	"github.com/xenking/promo-engine/internal/domain/product"
	"github.com/xenking/promo-engine/internal/domain/shipping"
)

type orderItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type orderRequest struct {
	Items            []orderItemRequest `json:"items"`
	ShippingMethodID uuid.UUID          `json:"shippingMethodId"`
	CouponIDs        []uuid.UUID        `json:"couponIds,omitempty"`
}

type orderItemResponse struct {
	ProductID      string          `json:"productId"`
	Quantity       int             `json:"quantity"`
	PurchasedPrice decimal.Decimal `json:"purchasedPrice"`
}

type orderResponse struct {
	ID            string              `json:"id,omitempty"`
	Items         []orderItemResponse `json:"items"`
	ShippingPrice decimal.Decimal     `json:"shippingPrice"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	Total         decimal.Decimal     `json:"total"`
	CouponIDs     []uuid.UUID         `json:"couponIds"`
	CreatedAt     *time.Time          `json:"createdAt,omitempty"`
}

// QuoteOrder prices an order without placing it.
func (h *Handler) QuoteOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	priced, err := h.orders.PriceOrder(r.Context(), toDomainRequest(req))
	if err != nil {
		mapOrderError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toOrderResponse(priced))
}

// PlaceOrder prices and persists an order, consuming coupon usage.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	placed, err := h.orders.PlaceOrder(r.Context(), toDomainRequest(req))
	if err != nil {
		mapOrderError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toOrderResponse(placed))
}

// ListProducts returns the catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	type productResponse struct {
		ID          string          `json:"id"`
		Name        string          `json:"name"`
		BasePrice   decimal.Decimal `json:"basePrice"`
		CategoryIDs []string        `json:"categoryIds"`
	}
	out := make([]productResponse, len(products))
	for i, p := range products {
		categories := make([]string, len(p.CategoryIDs))
		for j, c := range p.CategoryIDs {
			categories[j] = string(c)
		}
		out[i] = productResponse{
			ID:          string(p.ID),
			Name:        p.Name,
			BasePrice:   p.BasePrice,
			CategoryIDs: categories,
		}
	}
	writeJSON(w, r, http.StatusOK, out)
}

// ListShippingMethods returns the available shipping options.
func (h *Handler) ListShippingMethods(w http.ResponseWriter, r *http.Request) {
	methods, err := h.shipping.List(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	type methodResponse struct {
		ID    uuid.UUID       `json:"id"`
		Name  string          `json:"name"`
		Price decimal.Decimal `json:"price"`
	}
	out := make([]methodResponse, len(methods))
	for i, m := range methods {
		out[i] = methodResponse{ID: m.ID, Name: m.Name, Price: m.Price}
	}
	writeJSON(w, r, http.StatusOK, out)
}

func toDomainRequest(req orderRequest) order.Request {
	items := make([]order.DraftItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = order.DraftItem{
			ProductID: product.ID(item.ProductID),
			Quantity:  item.Quantity,
		}
	}
	return order.Request{
		Items:            items,
		ShippingMethodID: req.ShippingMethodID,
		CouponIDs:        req.CouponIDs,
	}
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = orderItemResponse{
			ProductID:      string(item.ProductID),
			Quantity:       item.Quantity,
			PurchasedPrice: item.PurchasedPrice,
		}
	}

	resp := orderResponse{
		Items:         items,
		ShippingPrice: o.ShippingPrice,
		Subtotal:      o.Subtotal,
		Total:         o.Total,
		CouponIDs:     o.CouponIDs,
	}
	if o.ID != uuid.Nil {
		resp.ID = o.ID.String()
		createdAt := o.CreatedAt
		resp.CreatedAt = &createdAt
	}
	return resp
}

// mapOrderError converts domain errors to HTTP error responses.
func mapOrderError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, order.ErrEmptyItems):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, shipping.ErrNotFound):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	default:
		var (
			invalidQty      *order.InvalidQuantityError
			productNotFound *order.ProductNotFoundError
			invalidCoupon   *coupon.InvalidCouponError
		)
		switch {
		case errors.As(err, &invalidQty):
			writeError(w, r, http.StatusUnprocessableEntity, invalidQty.Error())
		case errors.As(err, &productNotFound):
			writeError(w, r, http.StatusUnprocessableEntity, productNotFound.Error())
		case errors.As(err, &invalidCoupon):
			writeError(w, r, http.StatusUnprocessableEntity, invalidCoupon.Error())
		default:
			writeError(w, r, http.StatusInternalServerError, "internal error")
		}
	}
}
