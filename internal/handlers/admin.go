package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"medallion-storefront/internal/models"
	"medallion-storefront/internal/repositories"
)

// OrderAdmin is the back-office view of orders.
type OrderAdmin interface {
	Search(ctx context.Context, filters repositories.OrderSearchFilters) ([]*models.Order, int, error)
	Get(ctx context.Context, id int) (*models.Order, error)
	GetByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	UpdateStatus(ctx context.Context, id int, req *models.OrderStatusUpdateRequest) (*models.Order, error)
}

// AdminHandler serves order management for the back office.
type AdminHandler struct {
	orders OrderAdmin
	log    zerolog.Logger
}

func NewAdminHandler(orders OrderAdmin, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{orders: orders, log: log}
}

type orderListResponse struct {
	Orders []*models.Order `json:"orders"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// orderFilters reads the list filters shared by the order list and the CSV
// export.
func orderFilters(r *http.Request) (repositories.OrderSearchFilters, error) {
	q := r.URL.Query()
	filters := repositories.OrderSearchFilters{
		Status:       models.OrderStatus(q.Get("status")),
		FundraiserID: queryInt(r, "fundraiser_id", 0),
		Email:        q.Get("email"),
		Limit:        queryInt(r, "limit", 50),
		Offset:       queryInt(r, "offset", 0),
		SortBy:       q.Get("sort"),
		SortDesc:     q.Get("order") != "asc",
	}

	v := models.NewValidationError()
	if filters.Status != "" && !filters.Status.Valid() {
		v.Add("status", "invalid order status")
	}
	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"from", &filters.DateFrom}, {"to", &filters.DateTo}} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			v.Add(p.name, "dates must be YYYY-MM-DD")
			continue
		}
		*p.dst = &t
	}
	if filters.Limit < 1 || filters.Limit > 200 {
		filters.Limit = 50
	}
	if filters.Offset < 0 {
		filters.Offset = 0
	}
	return filters, v.OrNil()
}

// ListOrders handles GET /admin/orders
func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	filters, err := orderFilters(r)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	orders, total, err := h.orders.Search(r.Context(), filters)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	if orders == nil {
		orders = []*models.Order{}
	}
	writeJSON(w, http.StatusOK, orderListResponse{Orders: orders, Total: total, Limit: filters.Limit, Offset: filters.Offset})
}

// GetOrder handles GET /admin/orders/{id}
func (h *AdminHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	order, err := h.orders.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// GetOrderByNumber handles GET /admin/orders/number/{number}
func (h *AdminHandler) GetOrderByNumber(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.GetByOrderNumber(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// UpdateOrderStatus handles PUT /admin/orders/{id}/status
func (h *AdminHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	var req models.OrderStatusUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), id, &req)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	h.log.Info().Str("order_number", order.OrderNumber).Str("status", string(order.Status)).Msg("order status updated")
	writeJSON(w, http.StatusOK, order)
}
