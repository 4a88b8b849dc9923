package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"medallion-storefront/internal/models"
	"medallion-storefront/internal/repositories"
	"medallion-storefront/internal/services"
)

type Reports interface {
	SalesReport(ctx context.Context, from, to time.Time) (*services.SalesReport, error)
	ExportOrdersCSV(ctx context.Context, w io.Writer, filters repositories.OrderSearchFilters) error
}

// AnalyticsHandler serves the sales dashboard and order exports.
type AnalyticsHandler struct {
	reports Reports
	log     zerolog.Logger
	now     func() time.Time
}

func NewAnalyticsHandler(reports Reports, log zerolog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{reports: reports, log: log, now: time.Now}
}

// Sales handles GET /admin/analytics/sales?from=YYYY-MM-DD&to=YYYY-MM-DD.
// The window defaults to the last 30 days; to is inclusive.
func (h *AnalyticsHandler) Sales(w http.ResponseWriter, r *http.Request) {
	today := h.now().UTC().Truncate(24 * time.Hour)
	from := today.AddDate(0, 0, -29)
	to := today

	v := models.NewValidationError()
	if raw := r.URL.Query().Get("from"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			v.Add("from", "dates must be YYYY-MM-DD")
		}
		from = t
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			v.Add("to", "dates must be YYYY-MM-DD")
		}
		to = t
	}
	if err := v.OrNil(); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	report, err := h.reports.SalesReport(r.Context(), from, to.AddDate(0, 0, 1))
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ExportOrders handles GET /admin/orders/export.csv with the order list
// filters.
func (h *AnalyticsHandler) ExportOrders(w http.ResponseWriter, r *http.Request) {
	filters, err := orderFilters(r)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	filters.Limit = 500
	filters.Offset = 0

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"orders_%s.csv\"", h.now().UTC().Format("20060102")))

	// headers are already out once rows stream, so a late failure can only
	// be logged
	if err := h.reports.ExportOrdersCSV(r.Context(), w, filters); err != nil {
		h.log.Error().Err(err).Msg("order export failed")
	}
}
