package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"medallion-storefront/internal/models"
	"medallion-storefront/internal/pricing"
	"medallion-storefront/internal/repositories"
)

// SalesReport is the back-office dashboard for a time window.
type SalesReport struct {
	From              time.Time                          `json:"from"`
	To                time.Time                          `json:"to"`
	OrderCount        int                                `json:"order_count"`
	Revenue           decimal.Decimal                    `json:"revenue"`
	AverageOrderValue decimal.Decimal                    `json:"average_order_value"`
	OrdersByStatus    map[models.OrderStatus]int         `json:"orders_by_status"`
	Daily             []repositories.DailySales          `json:"daily"`
	Donations         []models.FundraiserDonationSummary `json:"donations"`
	TotalDonations    decimal.Decimal                    `json:"total_donations"`
}

// AnalyticsService builds sales and donation reports.
type AnalyticsService struct {
	orders    OrderRepository
	donations DonationRepository
}

func NewAnalyticsService(orders OrderRepository, donations DonationRepository) *AnalyticsService {
	return &AnalyticsService{orders: orders, donations: donations}
}

// SalesReport covers orders created in [from, to).
func (s *AnalyticsService) SalesReport(ctx context.Context, from, to time.Time) (*SalesReport, error) {
	if !to.After(from) {
		v := models.NewValidationError()
		v.Add("to", "end of range must be after its start")
		return nil, v
	}

	summary, err := s.orders.SalesSummary(ctx, from, to)
	if err != nil {
		return nil, err
	}
	daily, err := s.orders.DailySales(ctx, from, to)
	if err != nil {
		return nil, err
	}
	donations, err := s.donations.Summaries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get donation summaries: %w", err)
	}

	report := &SalesReport{
		From:              from,
		To:                to,
		OrderCount:        summary.OrderCount,
		Revenue:           pricing.RoundCents(summary.Revenue),
		AverageOrderValue: decimal.Zero,
		OrdersByStatus:    summary.ByStatus,
		Daily:             daily,
		Donations:         donations,
		TotalDonations:    decimal.Zero,
	}
	if summary.OrderCount > 0 {
		report.AverageOrderValue = pricing.RoundCents(summary.Revenue.Div(decimal.NewFromInt(int64(summary.OrderCount))))
	}
	for _, d := range donations {
		report.TotalDonations = report.TotalDonations.Add(d.TotalDonations)
	}
	report.TotalDonations = pricing.RoundCents(report.TotalDonations)

	return report, nil
}

// ExportOrdersCSV writes the orders matching filters as CSV, one row per
// order item.
func (s *AnalyticsService) ExportOrdersCSV(ctx context.Context, w io.Writer, filters repositories.OrderSearchFilters) error {
	writer := csv.NewWriter(w)

	header := []string{"order_number", "created_at", "status", "customer_email", "delivery_method",
		"product", "quantity", "unit_price", "team_name", "chain_color", "order_total"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	if filters.Limit <= 0 {
		filters.Limit = 500
	}
	for {
		orders, total, err := s.orders.Search(ctx, filters)
		if err != nil {
			return err
		}
		for _, order := range orders {
			for _, item := range order.Items {
				record := []string{
					order.OrderNumber,
					order.CreatedAt.UTC().Format(time.RFC3339),
					string(order.Status),
					order.CustomerEmail,
					string(order.DeliveryMethod),
					item.ProductName,
					strconv.Itoa(item.Quantity),
					item.UnitPrice.StringFixed(2),
					item.TeamName,
					item.ChainColor,
					order.Total.StringFixed(2),
				}
				if err := writer.Write(record); err != nil {
					return fmt.Errorf("failed to write CSV record: %w", err)
				}
			}
		}

		filters.Offset += len(orders)
		if len(orders) == 0 || filters.Offset >= total {
			break
		}
	}

	writer.Flush()
	return writer.Error()
}
