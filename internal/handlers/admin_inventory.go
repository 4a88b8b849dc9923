package handlers

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"medallion-storefront/internal/models"
)

type InventoryAdmin interface {
	Create(ctx context.Context, req *models.InventoryCreateRequest) (*models.InventoryItem, error)
	List(ctx context.Context, lowStockOnly bool) ([]*models.InventoryItem, error)
	Adjust(ctx context.Context, id int, req *models.InventoryAdjustRequest) (*models.InventoryItem, error)
}

type AdminInventoryHandler struct {
	inventory InventoryAdmin
	log       zerolog.Logger
}

func NewAdminInventoryHandler(inventory InventoryAdmin, log zerolog.Logger) *AdminInventoryHandler {
	return &AdminInventoryHandler{inventory: inventory, log: log}
}

// List handles GET /admin/inventory?low_stock=true
func (h *AdminInventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.inventory.List(r.Context(), r.URL.Query().Get("low_stock") == "true")
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	if items == nil {
		items = []*models.InventoryItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

// Create handles POST /admin/inventory
func (h *AdminInventoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.InventoryCreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.inventory.Create(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// Adjust handles POST /admin/inventory/{id}/adjust
func (h *AdminInventoryHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	var req models.InventoryAdjustRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.inventory.Adjust(r.Context(), id, &req)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}
