package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"medallion-storefront/internal/handlers"
	"medallion-storefront/internal/middleware"
	"medallion-storefront/internal/models"
)

type fixedSettings struct{}

func (fixedSettings) Get(ctx context.Context) (*models.StoreSettings, error) {
	return models.DefaultStoreSettings(), nil
}

func (fixedSettings) Update(ctx context.Context, req *models.SettingsUpdateRequest) (*models.StoreSettings, error) {
	return models.DefaultStoreSettings(), nil
}

func testRouter(opts Options) http.Handler {
	log := zerolog.Nop()
	return NewRouter(Handlers{
		Health:   handlers.NewHealthHandler(nil),
		Settings: handlers.NewAdminSettingsHandler(fixedSettings{}, log),
		Admin:    handlers.NewAdminHandler(nil, log),
	}, opts, log)
}

func serve(h http.Handler, method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Health(t *testing.T) {
	rec := serve(testRouter(Options{}), http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","checks":{}}`, rec.Body.String())
}

func TestRouter_AdminRequiresKey(t *testing.T) {
	router := testRouter(Options{AdminKey: "s3cret"})

	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/admin/settings", nil).Code)

	rec := serve(router, http.MethodGet, "/admin/settings", http.Header{middleware.AdminKeyHeader: {"s3cret"}})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_AdminDisabledWithoutKey(t *testing.T) {
	rec := serve(testRouter(Options{}), http.MethodGet, "/admin/orders", http.Header{middleware.AdminKeyHeader: {""}})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouter_PublicAPIIsRateLimited(t *testing.T) {
	router := testRouter(Options{Limiter: middleware.NewMemoryLimiter(1, 2)})

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/api/settings", nil).Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/api/settings", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(router, http.MethodGet, "/api/settings", nil).Code)

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/healthz", nil).Code, "health checks bypass the limiter")
}

func TestRouter_ForwardedForDoesNotResetRateLimit(t *testing.T) {
	router := testRouter(Options{Limiter: middleware.NewMemoryLimiter(1, 1)})

	first := serve(router, http.MethodGet, "/api/settings", http.Header{"X-Forwarded-For": {"203.0.113.1"}})
	second := serve(router, http.MethodGet, "/api/settings", http.Header{"X-Forwarded-For": {"203.0.113.2"}})

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
