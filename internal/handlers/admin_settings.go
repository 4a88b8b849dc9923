package handlers

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"medallion-storefront/internal/models"
)

// SettingsAdmin reads and changes the store-wide toggles.
type SettingsAdmin interface {
	Get(ctx context.Context) (*models.StoreSettings, error)
	Update(ctx context.Context, req *models.SettingsUpdateRequest) (*models.StoreSettings, error)
}

type AdminSettingsHandler struct {
	settings SettingsAdmin
	log      zerolog.Logger
}

func NewAdminSettingsHandler(settings SettingsAdmin, log zerolog.Logger) *AdminSettingsHandler {
	return &AdminSettingsHandler{settings: settings, log: log}
}

// Get handles GET /api/settings and GET /admin/settings. The storefront
// reads the same toggles to hide unavailable delivery options.
func (h *AdminSettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.Get(r.Context())
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// Update handles PUT /admin/settings
func (h *AdminSettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.SettingsUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	settings, err := h.settings.Update(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}
