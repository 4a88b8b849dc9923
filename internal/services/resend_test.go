package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medallion-storefront/internal/config"
	"medallion-storefront/internal/models"
)

func testOrder() *models.Order {
	return &models.Order{
		OrderNumber:    "MED-20240101-000001",
		CustomerEmail:  "sam@example.com",
		CustomerName:   "Sam <script>",
		DeliveryMethod: models.DeliveryShipping,
		Subtotal:       dec("99.98"),
		ShippingCost:   dec("8"),
		TaxAmount:      dec("4.999"),
		Total:          dec("112.98"),
		ShippingAddress: &models.Address{
			Name: "Sam Shopper", Line1: "1 Main St", City: "Springfield", State: "IL", PostalCode: "62701", Country: "US",
		},
		Items: []models.OrderItem{
			{ProductName: "Custom Medallion", UnitPrice: dec("49.99"), Quantity: 2, TeamName: "Eagles", ChainColor: "gold"},
		},
	}
}

func TestResendEmailService_SendOrderConfirmation(t *testing.T) {
	var got ResendEmailRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"email_123"}`))
	}))
	defer server.Close()

	svc := NewResendEmailService(config.ResendConfig{
		APIKey:    "re_test",
		FromEmail: "orders@medallions.example",
		FromName:  "Medallion Shop",
	}, zerolog.Nop(), WithResendBaseURL(server.URL))

	require.NoError(t, svc.SendOrderConfirmation(context.Background(), testOrder()))

	assert.Equal(t, "Medallion Shop <orders@medallions.example>", got.From)
	assert.Equal(t, []string{"sam@example.com"}, got.To)
	assert.Contains(t, got.Subject, "MED-20240101-000001")
	assert.Contains(t, got.HTML, "$112.98")
	assert.Contains(t, got.HTML, "Eagles, gold chain")
	assert.Contains(t, got.HTML, "Springfield")
	assert.NotContains(t, got.HTML, "<script>")
	assert.Contains(t, got.Text, "Tax: $5.00")
	assert.Contains(t, got.Text, "Custom Medallion: 2 x $49.99 = $99.98")
}

func TestResendEmailService_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"name":"validation_error","message":"invalid to address"}`))
	}))
	defer server.Close()

	svc := NewResendEmailService(config.ResendConfig{APIKey: "re_test", FromEmail: "a@b.co"}, zerolog.Nop(), WithResendBaseURL(server.URL))

	_, err := svc.Send(context.Background(), ResendEmailRequest{To: []string{"x"}, Subject: "s", Text: "t"})

	var apiErr *ResendAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, "failed to send email: invalid to address", err.Error())
}

func TestResendEmailService_BreakerOpensOnOutage(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	svc := NewResendEmailService(config.ResendConfig{APIKey: "re_test", FromEmail: "a@b.co"}, zerolog.Nop(),
		WithResendBaseURL(server.URL),
		WithBreakerSettings(gobreaker.Settings{
			Name:    "resend-test",
			Timeout: time.Minute,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 2
			},
		}),
	)
	req := ResendEmailRequest{To: []string{"sam@example.com"}, Subject: "s", Text: "t"}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := svc.Send(ctx, req)
		require.Error(t, err)
	}
	_, err := svc.Send(ctx, req)

	assert.True(t, errors.Is(err, gobreaker.ErrOpenState), "got %v", err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestResendEmailService_ClientErrorsDoNotTrip(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	svc := NewResendEmailService(config.ResendConfig{APIKey: "re_test", FromEmail: "a@b.co"}, zerolog.Nop(),
		WithResendBaseURL(server.URL),
		WithBreakerSettings(gobreaker.Settings{
			ReadyToTrip: func(counts gobreaker.Counts) bool { return counts.ConsecutiveFailures >= 1 },
		}),
	)

	for i := 0; i < 3; i++ {
		_, err := svc.Send(context.Background(), ResendEmailRequest{To: []string{"x"}, Subject: "s", Text: "t"})
		var apiErr *ResendAPIError
		require.ErrorAs(t, err, &apiErr)
	}
	assert.Equal(t, int32(3), hits.Load())
}

func TestResendEmailService_NotConfigured(t *testing.T) {
	svc := NewResendEmailService(config.ResendConfig{}, zerolog.Nop())

	err := svc.SendOrderConfirmation(context.Background(), testOrder())
	assert.ErrorIs(t, err, ErrEmailNotConfigured)
}
