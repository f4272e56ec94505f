package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/promo-engine/internal/domain/coupon"
	"github.com/xenking/promo-engine/internal/domain/pricing"
)

type restrictionRequest struct {
	Type              string   `json:"type"`
	ProductsAllowed   []string `json:"productsAllowed,omitempty"`
	CategoriesAllowed []string `json:"categoriesAllowed,omitempty"`
	ProductsExcluded  []string `json:"productsExcluded,omitempty"`
}

type couponRequest struct {
	Code         string               `json:"code"`
	Discount     discountRequest      `json:"discount"`
	UsageLimit   int                  `json:"usageLimit"`
	MinPrice     decimal.Decimal      `json:"minPrice"`
	AutoApply    bool                 `json:"autoApply"`
	Restrictions []restrictionRequest `json:"restrictions"`
}

type couponResponse struct {
	ID         uuid.UUID `json:"id"`
	Code       string    `json:"code"`
	UsageLimit int       `json:"usageLimit"`
	AutoApply  bool      `json:"autoApply"`
	Active     bool      `json:"active"`
}

// CreateCoupon validates and persists a new coupon with its restrictions.
func (h *Handler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponRequest
	if !decodeBody(w, r, &req) {
		return
	}

	discount, err := pricing.NewDiscount(
		req.Discount.Percentage,
		req.Discount.Description,
		req.Discount.StartingDate,
		req.Discount.EndingDate,
	)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	created, err := coupon.New(uuid.New(), req.Code, discount, req.UsageLimit, req.MinPrice, req.AutoApply)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	for _, restriction := range req.Restrictions {
		built, err := toRestriction(restriction)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		created.AddRestriction(built)
	}

	if err := h.coupons.Upsert(r.Context(), created); err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, r, http.StatusCreated, couponResponse{
		ID:         created.ID,
		Code:       created.Code,
		UsageLimit: created.UsageLimit,
		AutoApply:  created.AutoApply,
		Active:     created.Active,
	})
}

func toRestriction(req restrictionRequest) (coupon.Restriction, error) {
	switch req.Type {
	case "product":
		return coupon.NewProductRestriction(toProductIDs(req.ProductsAllowed))
	case "category":
		return coupon.NewCategoryRestriction(
			toCategoryIDs(req.CategoriesAllowed),
			toProductIDs(req.ProductsExcluded),
		)
	default:
		return nil, errors.Errorf("unknown restriction type %q", req.Type)
	}
}
