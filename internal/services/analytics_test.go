package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"medallion-storefront/internal/models"
	"medallion-storefront/internal/repositories"
)

func TestAnalyticsService_SalesReport(t *testing.T) {
	orders := new(MockOrderRepository)
	donations := new(MockDonationRepository)
	svc := NewAnalyticsService(orders, donations)

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	orders.On("SalesSummary", mock.Anything, from, to).Return(&repositories.SalesSummary{
		OrderCount: 3,
		Revenue:    dec("100"),
		ByStatus:   map[models.OrderStatus]int{models.OrderReceived: 2, models.OrderShipped: 1},
	}, nil)
	orders.On("DailySales", mock.Anything, from, to).Return([]repositories.DailySales{
		{Day: from, Orders: 3, Revenue: dec("100")},
	}, nil)
	donations.On("Summaries", mock.Anything).Return([]models.FundraiserDonationSummary{
		{FundraiserID: 7, TotalDonations: dec("15.00")},
		{FundraiserID: 8, TotalDonations: dec("2.505")},
	}, nil)

	report, err := svc.SalesReport(context.Background(), from, to)
	require.NoError(t, err)

	assert.Equal(t, 3, report.OrderCount)
	assert.True(t, dec("33.33").Equal(report.AverageOrderValue), "got %s", report.AverageOrderValue)
	assert.True(t, dec("17.51").Equal(report.TotalDonations), "got %s", report.TotalDonations)
	assert.Equal(t, 2, report.OrdersByStatus[models.OrderReceived])
	assert.Len(t, report.Daily, 1)
}

func TestAnalyticsService_SalesReportWithoutOrders(t *testing.T) {
	orders := new(MockOrderRepository)
	donations := new(MockDonationRepository)
	svc := NewAnalyticsService(orders, donations)

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 7)

	orders.On("SalesSummary", mock.Anything, from, to).Return(&repositories.SalesSummary{Revenue: dec("0")}, nil)
	orders.On("DailySales", mock.Anything, from, to).Return(nil, nil)
	donations.On("Summaries", mock.Anything).Return(nil, nil)

	report, err := svc.SalesReport(context.Background(), from, to)
	require.NoError(t, err)
	assert.True(t, report.AverageOrderValue.IsZero())
	assert.True(t, report.TotalDonations.IsZero())
}

func TestAnalyticsService_SalesReportRejectsEmptyRange(t *testing.T) {
	svc := NewAnalyticsService(new(MockOrderRepository), new(MockDonationRepository))
	now := time.Now()

	_, err := svc.SalesReport(context.Background(), now, now)

	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "to")
}

func TestAnalyticsService_ExportOrdersCSVPages(t *testing.T) {
	orders := new(MockOrderRepository)
	svc := NewAnalyticsService(orders, new(MockDonationRepository))

	created := time.Date(2024, 3, 2, 15, 4, 5, 0, time.UTC)
	order := func(number string, items ...models.OrderItem) *models.Order {
		return &models.Order{
			OrderNumber: number, CreatedAt: created, Status: models.OrderReceived,
			CustomerEmail: "sam@example.com", DeliveryMethod: models.DeliveryShipping,
			Total: dec("112.98"), Items: items,
		}
	}
	medallion := models.OrderItem{ProductName: "Medallion", Quantity: 2, UnitPrice: dec("49.99"), TeamName: "Eagles", ChainColor: "gold"}
	ribbon := models.OrderItem{ProductName: "Ribbon", Quantity: 1, UnitPrice: dec("3")}

	orders.On("Search", mock.Anything, mock.MatchedBy(func(f repositories.OrderSearchFilters) bool {
		return f.Offset == 0 && f.Limit == 2
	})).Return([]*models.Order{order("MED-20240302-000001", medallion, ribbon), order("MED-20240302-000002", medallion)}, 3, nil).Once()
	orders.On("Search", mock.Anything, mock.MatchedBy(func(f repositories.OrderSearchFilters) bool {
		return f.Offset == 2
	})).Return([]*models.Order{order("MED-20240302-000003", ribbon)}, 3, nil).Once()

	var buf bytes.Buffer
	err := svc.ExportOrdersCSV(context.Background(), &buf, repositories.OrderSearchFilters{Limit: 2})
	require.NoError(t, err)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, "order_number", records[0][0])
	assert.Equal(t, []string{"MED-20240302-000001", "2024-03-02T15:04:05Z", "received", "sam@example.com",
		"shipping", "Medallion", "2", "49.99", "Eagles", "gold", "112.98"}, records[1])
	assert.Equal(t, "MED-20240302-000003", records[4][0])
	orders.AssertExpectations(t)
}

func TestAnalyticsService_ExportOrdersCSVSearchError(t *testing.T) {
	orders := new(MockOrderRepository)
	svc := NewAnalyticsService(orders, new(MockDonationRepository))
	orders.On("Search", mock.Anything, mock.Anything).Return(nil, 0, errors.New("db down"))

	err := svc.ExportOrdersCSV(context.Background(), &bytes.Buffer{}, repositories.OrderSearchFilters{})
	assert.EqualError(t, err, "db down")
}
