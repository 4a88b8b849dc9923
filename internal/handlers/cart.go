package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"medallion-storefront/internal/cart"
	"medallion-storefront/internal/models"
	"medallion-storefront/internal/pricing"
)

// CartHandler serves the shopper's cart and its priced totals.
type CartHandler struct {
	carts cart.Provider
	calc  *pricing.Calculator
	log   zerolog.Logger
}

func NewCartHandler(carts cart.Provider, calc *pricing.Calculator, log zerolog.Logger) *CartHandler {
	return &CartHandler{carts: carts, calc: calc, log: log}
}

type cartResponse struct {
	Items          []models.CartLineItem `json:"items"`
	ItemCount      int                   `json:"item_count"`
	DeliveryMethod models.DeliveryMethod `json:"delivery_method"`
	Totals         pricing.Totals        `json:"totals"`
	Warning        string                `json:"warning,omitempty"`
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

func deliveryFromQuery(r *http.Request) models.DeliveryMethod {
	method := models.DeliveryMethod(r.URL.Query().Get("delivery_method"))
	if !method.Valid() {
		return models.DeliveryShipping
	}
	return method
}

func (h *CartHandler) respond(w http.ResponseWriter, r *http.Request, items []models.CartLineItem, err error) {
	method := deliveryFromQuery(r)
	resp := cartResponse{
		Items:          items,
		DeliveryMethod: method,
		Totals:         h.calc.ComputeTotals(items, method).Rounded(),
	}
	for _, item := range items {
		resp.ItemCount += item.Quantity
	}

	// the write failed but the cart as it stood is still good to show
	if errors.Is(err, cart.ErrPersist) {
		resp.Warning = "your cart could not be saved, please try again"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetCart handles GET /api/cart?delivery_method=shipping|pickup
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	items := h.carts.For(w, r).Load(r.Context())
	h.respond(w, r, items, nil)
}

// AddItem handles POST /api/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var item models.CartLineItem
	if !decodeJSON(w, r, &item) {
		return
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.Quantity == 0 {
		item.Quantity = 1
	}
	// fundraiser purchases are priced from the fundraiser, not the client
	if item.IsFundraiser {
		v := models.NewValidationError()
		v.Add("is_fundraiser", "fundraiser items are bought through the fundraiser checkout")
		writeServiceError(w, r, h.log, v)
		return
	}

	items, err := h.carts.For(w, r).Add(r.Context(), item)
	if err != nil && !errors.Is(err, cart.ErrPersist) {
		writeServiceError(w, r, h.log, err)
		return
	}
	h.respond(w, r, items, err)
}

// UpdateQuantity handles PATCH /api/cart/items/{itemID}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	items, err := h.carts.For(w, r).SetQuantity(r.Context(), chi.URLParam(r, "itemID"), req.Quantity)
	h.respond(w, r, items, err)
}

// RemoveItem handles DELETE /api/cart/items/{itemID}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	items, err := h.carts.For(w, r).Remove(r.Context(), chi.URLParam(r, "itemID"))
	h.respond(w, r, items, err)
}

// ClearCart handles DELETE /api/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	err := h.carts.For(w, r).Clear(r.Context())
	h.respond(w, r, []models.CartLineItem{}, err)
}
