package handlers

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"medallion-storefront/internal/cart"
	"medallion-storefront/internal/checkout"
	"medallion-storefront/internal/models"
	"medallion-storefront/internal/pricing"
)

// DeliverySettings reports which delivery methods the store offers right now.
type DeliverySettings interface {
	Allows(ctx context.Context, method models.DeliveryMethod) bool
}

// CheckoutHandler opens hosted payment sessions for the cart and for
// single-item buy-now purchases.
type CheckoutHandler struct {
	carts     cart.Provider
	submitter checkout.Submitter
	settings  DeliverySettings
	log       zerolog.Logger
}

func NewCheckoutHandler(carts cart.Provider, submitter checkout.Submitter, settings DeliverySettings, log zerolog.Logger) *CheckoutHandler {
	return &CheckoutHandler{carts: carts, submitter: submitter, settings: settings, log: log}
}

type cartCheckoutRequest struct {
	DeliveryMethod models.DeliveryMethod `json:"delivery_method"`
	CustomerEmail  string                `json:"customer_email"`
}

type buyNowRequest struct {
	ProductName    string                `json:"product_name"`
	Price          decimal.Decimal       `json:"price"`
	Quantity       int                   `json:"quantity"`
	ImageReference string                `json:"image_path"`
	ChainColor     string                `json:"chain_color"`
	TeamName       string                `json:"team_name"`
	Customizations map[string]string     `json:"customizations"`
	DeliveryMethod models.DeliveryMethod `json:"delivery_method"`
	CustomerEmail  string                `json:"customer_email"`
}

// CartCheckout handles POST /api/checkout. On success the cart is emptied.
func (h *CheckoutHandler) CartCheckout(w http.ResponseWriter, r *http.Request) {
	var req cartCheckoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.DeliveryMethod == "" {
		req.DeliveryMethod = models.DeliveryShipping
	}
	if !h.allowed(w, r, req.DeliveryMethod) {
		return
	}

	store := h.carts.For(w, r)
	items := store.Load(r.Context())
	for i := range items {
		items[i].DeliveryMethod = req.DeliveryMethod
	}

	result, ok := h.submit(w, r, &checkout.Request{
		Flow:           pricing.FlowCart,
		Items:          items,
		DeliveryMethod: req.DeliveryMethod,
		CustomerEmail:  req.CustomerEmail,
	})
	if !ok {
		return
	}

	// a stale cart is overwritten on the next load, so this is not fatal
	if err := store.Clear(r.Context()); err != nil {
		h.log.Warn().Err(err).Str("session_id", result.SessionID).Msg("failed to clear cart after checkout")
	}
	writeJSON(w, http.StatusCreated, result)
}

// BuyNow handles POST /api/checkout/buy-now. The cart is left untouched.
func (h *CheckoutHandler) BuyNow(w http.ResponseWriter, r *http.Request) {
	var req buyNowRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.DeliveryMethod == "" {
		req.DeliveryMethod = models.DeliveryShipping
	}
	if !h.allowed(w, r, req.DeliveryMethod) {
		return
	}

	item := models.NewCartLineItem(req.ProductName, req.Price, req.Quantity)
	item.ImageReference = req.ImageReference
	item.ChainColor = req.ChainColor
	item.TeamName = req.TeamName
	item.Customizations = req.Customizations
	item.DeliveryMethod = req.DeliveryMethod

	result, ok := h.submit(w, r, &checkout.Request{
		Flow:           pricing.FlowBuyNow,
		Items:          []models.CartLineItem{item},
		DeliveryMethod: req.DeliveryMethod,
		CustomerEmail:  req.CustomerEmail,
	})
	if !ok {
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *CheckoutHandler) allowed(w http.ResponseWriter, r *http.Request, method models.DeliveryMethod) bool {
	if !method.Valid() {
		v := models.NewValidationError()
		v.Add("delivery_method", "delivery method must be shipping or pickup")
		writeServiceError(w, r, h.log, v)
		return false
	}
	if !h.settings.Allows(r.Context(), method) {
		v := models.NewValidationError()
		v.Add("delivery_method", string(method)+" is currently unavailable")
		writeServiceError(w, r, h.log, v)
		return false
	}
	return true
}

func (h *CheckoutHandler) submit(w http.ResponseWriter, r *http.Request, req *checkout.Request) (*checkout.Result, bool) {
	return submitAttempt(w, r, h.submitter, req, h.log)
}

// submitAttempt runs one checkout attempt for this request and writes the
// error response when it fails.
func submitAttempt(w http.ResponseWriter, r *http.Request, submitter checkout.Submitter, req *checkout.Request, log zerolog.Logger) (*checkout.Result, bool) {
	attempt := checkout.NewAttempt()
	attempt.OnTransition = func(from, to checkout.State) {
		log.Debug().Str("flow", string(req.Flow)).Str("from", string(from)).Str("to", string(to)).Msg("checkout attempt")
	}

	result, err := attempt.Submit(r.Context(), submitter, req)
	if err != nil {
		writeServiceError(w, r, log, err)
		return nil, false
	}
	return result, true
}
