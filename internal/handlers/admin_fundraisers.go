package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"medallion-storefront/internal/models"
	"medallion-storefront/internal/services"
)

// FundraiserAdmin is the back-office side of the fundraiser service.
type FundraiserAdmin interface {
	Create(ctx context.Context, req *models.FundraiserCreateRequest) (*models.Fundraiser, error)
	Update(ctx context.Context, id int, req *models.FundraiserUpdateRequest) (*models.Fundraiser, error)
	SetActive(ctx context.Context, id int, active bool) (*models.Fundraiser, error)
	Get(ctx context.Context, id int) (*models.Fundraiser, error)
	ListWithTotals(ctx context.Context) ([]services.FundraiserWithTotals, error)
	UploadImage(ctx context.Context, r io.Reader) (string, error)
}

type AdminFundraiserHandler struct {
	fundraisers FundraiserAdmin
	log         zerolog.Logger
}

func NewAdminFundraiserHandler(fundraisers FundraiserAdmin, log zerolog.Logger) *AdminFundraiserHandler {
	return &AdminFundraiserHandler{fundraisers: fundraisers, log: log}
}

type activeRequest struct {
	Active bool `json:"active"`
}

// List handles GET /admin/fundraisers
func (h *AdminFundraiserHandler) List(w http.ResponseWriter, r *http.Request) {
	fundraisers, err := h.fundraisers.ListWithTotals(r.Context())
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	if fundraisers == nil {
		fundraisers = []services.FundraiserWithTotals{}
	}
	writeJSON(w, http.StatusOK, fundraisers)
}

// Get handles GET /admin/fundraisers/{id}
func (h *AdminFundraiserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	fundraiser, err := h.fundraisers.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, fundraiser)
}

// Create handles POST /admin/fundraisers
func (h *AdminFundraiserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.FundraiserCreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	fundraiser, err := h.fundraisers.Create(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, fundraiser)
}

// Update handles PATCH /admin/fundraisers/{id}
func (h *AdminFundraiserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	var req models.FundraiserUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	fundraiser, err := h.fundraisers.Update(r.Context(), id, &req)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, fundraiser)
}

// SetActive handles PUT /admin/fundraisers/{id}/active
func (h *AdminFundraiserHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	var req activeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	fundraiser, err := h.fundraisers.SetActive(r.Context(), id, req.Active)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, fundraiser)
}

// UploadImage handles POST /admin/fundraisers/images (multipart field
// "image"). The returned URL goes into a create or update payload.
func (h *AdminFundraiserHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, services.MaxImageBytes+(1<<20))
	if err := r.ParseMultipartForm(services.MaxImageBytes); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "image must be at most 10MB")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no image provided")
		return
	}
	defer file.Close()

	url, err := h.fundraisers.UploadImage(r.Context(), file)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	h.log.Info().Str("filename", header.Filename).Str("url", url).Msg("fundraiser image uploaded")
	writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}
