package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"medallion-storefront/internal/checkout"
	"medallion-storefront/internal/models"
	"medallion-storefront/internal/services"
)

// FundraiserCatalog is the public side of the fundraiser service.
type FundraiserCatalog interface {
	ListActive(ctx context.Context) ([]*models.Fundraiser, error)
	GetPublic(ctx context.Context, slug string) (*models.Fundraiser, error)
	PreviewDonation(ctx context.Context, slug string, variationID, quantity int) (*services.DonationPreview, error)
	PrepareCheckout(ctx context.Context, slug string, req *services.FundraiserCheckoutRequest) (*checkout.Request, error)
}

// FundraiserHandler serves fundraiser pages and fundraiser checkouts.
type FundraiserHandler struct {
	fundraisers FundraiserCatalog
	submitter   checkout.Submitter
	log         zerolog.Logger
}

func NewFundraiserHandler(fundraisers FundraiserCatalog, submitter checkout.Submitter, log zerolog.Logger) *FundraiserHandler {
	return &FundraiserHandler{fundraisers: fundraisers, submitter: submitter, log: log}
}

// List handles GET /api/fundraisers
func (h *FundraiserHandler) List(w http.ResponseWriter, r *http.Request) {
	fundraisers, err := h.fundraisers.ListActive(r.Context())
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	if fundraisers == nil {
		fundraisers = []*models.Fundraiser{}
	}
	writeJSON(w, http.StatusOK, fundraisers)
}

// Get handles GET /api/fundraisers/{slug}
func (h *FundraiserHandler) Get(w http.ResponseWriter, r *http.Request) {
	fundraiser, err := h.fundraisers.GetPublic(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, fundraiser)
}

// DonationPreview handles
// GET /api/fundraisers/{slug}/donation-preview?variation_id=&quantity=
func (h *FundraiserHandler) DonationPreview(w http.ResponseWriter, r *http.Request) {
	preview, err := h.fundraisers.PreviewDonation(r.Context(),
		chi.URLParam(r, "slug"),
		queryInt(r, "variation_id", 0),
		queryInt(r, "quantity", 1),
	)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

// Checkout handles POST /api/fundraisers/{slug}/checkout
func (h *FundraiserHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req services.FundraiserCheckoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	checkoutReq, err := h.fundraisers.PrepareCheckout(r.Context(), chi.URLParam(r, "slug"), &req)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	result, ok := submitAttempt(w, r, h.submitter, checkoutReq, h.log)
	if !ok {
		return
	}
	writeJSON(w, http.StatusCreated, result)
}
