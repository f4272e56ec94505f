package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/promo-engine/internal/domain/pricing"
	"github.com/xenking/promo-engine/internal/domain/product"
	"github.com/xenking/promo-engine/internal/domain/sale"
)

type discountRequest struct {
	Percentage   int       `json:"percentage"`
	Description  string    `json:"description"`
	StartingDate time.Time `json:"startingDate"`
	EndingDate   time.Time `json:"endingDate"`
}

type saleRequest struct {
	Discount         discountRequest `json:"discount"`
	CategoriesOnSale []string        `json:"categoriesOnSale"`
	ProductsOnSale   []string        `json:"productsOnSale"`
	ProductsExcluded []string        `json:"productsExcluded"`
}

type saleResponse struct {
	ID               uuid.UUID       `json:"id"`
	Discount         discountRequest `json:"discount"`
	CategoriesOnSale []string        `json:"categoriesOnSale"`
	ProductsOnSale   []string        `json:"productsOnSale"`
	ProductsExcluded []string        `json:"productsExcluded"`
}

// CreateSale validates sale eligibility and persists a new sale.
func (h *Handler) CreateSale(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	spec, ok := toTargetSpec(w, r, req)
	if !ok {
		return
	}

	created, err := h.saleAdmin.Create(r.Context(), spec)
	if err != nil {
		mapSaleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toSaleResponse(created))
}

// UpdateSale replaces an existing sale's discount and target sets.
func (h *Handler) UpdateSale(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid sale id")
		return
	}

	var req saleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	spec, ok := toTargetSpec(w, r, req)
	if !ok {
		return
	}

	updated, err := h.saleAdmin.Update(r.Context(), id, spec)
	if err != nil {
		mapSaleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toSaleResponse(updated))
}

func toTargetSpec(w http.ResponseWriter, r *http.Request, req saleRequest) (sale.TargetSpec, bool) {
	discount, err := pricing.NewDiscount(
		req.Discount.Percentage,
		req.Discount.Description,
		req.Discount.StartingDate,
		req.Discount.EndingDate,
	)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return sale.TargetSpec{}, false
	}

	return sale.TargetSpec{
		Discount:   discount,
		Categories: toCategoryIDs(req.CategoriesOnSale),
		Products:   toProductIDs(req.ProductsOnSale),
		Excluded:   toProductIDs(req.ProductsExcluded),
	}, true
}

func toSaleResponse(s *sale.Sale) saleResponse {
	return saleResponse{
		ID: s.ID,
		Discount: discountRequest{
			Percentage:   s.Discount.Percentage,
			Description:  s.Discount.Description,
			StartingDate: s.Discount.StartingDate,
			EndingDate:   s.Discount.EndingDate,
		},
		CategoriesOnSale: categoryStrings(s.CategoriesOnSale),
		ProductsOnSale:   productStrings(s.ProductsOnSale),
		ProductsExcluded: productStrings(s.ProductsExcluded),
	}
}

func mapSaleError(w http.ResponseWriter, r *http.Request, err error) {
	var notEligible *sale.ProductNotEligibleError
	switch {
	case errors.Is(err, sale.ErrNoTargets):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, sale.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.As(err, &notEligible):
		writeError(w, r, http.StatusUnprocessableEntity, notEligible.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func toProductIDs(raw []string) []product.ID {
	out := make([]product.ID, len(raw))
	for i, v := range raw {
		out[i] = product.ID(v)
	}
	return out
}

func toCategoryIDs(raw []string) []product.CategoryID {
	out := make([]product.CategoryID, len(raw))
	for i, v := range raw {
		out[i] = product.CategoryID(v)
	}
	return out
}

func productStrings(set map[product.ID]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, string(id))
	}
	return out
}

func categoryStrings(set map[product.CategoryID]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, string(id))
	}
	return out
}
