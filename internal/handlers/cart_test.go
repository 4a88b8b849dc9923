package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medallion-storefront/internal/models"
)

func cartRouter(carts *memoryCarts) http.Handler {
	h := NewCartHandler(carts, testCalculator(), zerolog.Nop())
	r := chi.NewRouter()
	r.Get("/api/cart", h.GetCart)
	r.Post("/api/cart/items", h.AddItem)
	r.Patch("/api/cart/items/{itemID}", h.UpdateQuantity)
	r.Delete("/api/cart/items/{itemID}", h.RemoveItem)
	r.Delete("/api/cart", h.ClearCart)
	return r
}

func doJSON(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeCart(t *testing.T, rec *httptest.ResponseRecorder) cartResponse {
	t.Helper()
	var resp cartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestCartHandler_AddAndPrice(t *testing.T) {
	carts := newMemoryCarts()
	router := cartRouter(carts)

	rec := doJSON(t, router, http.MethodPost, "/api/cart/items",
		`{"product_name":"Custom Medallion","price":"49.99","quantity":2,"chain_color":"gold"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeCart(t, rec)
	require.Len(t, resp.Items, 1)
	assert.NotEmpty(t, resp.Items[0].ID)
	assert.Equal(t, 2, resp.ItemCount)
	assert.True(t, dec("99.98").Equal(resp.Totals.Subtotal))
	assert.True(t, dec("8.00").Equal(resp.Totals.Shipping))
	assert.True(t, dec("5.00").Equal(resp.Totals.Tax))
	assert.True(t, dec("112.98").Equal(resp.Totals.Total))

	pickup := decodeCart(t, doJSON(t, router, http.MethodGet, "/api/cart?delivery_method=pickup", ""))
	assert.Equal(t, models.DeliveryPickup, pickup.DeliveryMethod)
	assert.True(t, pickup.Totals.Shipping.IsZero())
	assert.True(t, dec("104.98").Equal(pickup.Totals.Total))
}

func TestCartHandler_QuantityAndRemove(t *testing.T) {
	carts := newMemoryCarts()
	item := models.NewCartLineItem("Medallion", dec("10"), 1)
	other := models.NewCartLineItem("Ribbon", dec("2.50"), 1)
	carts.seed(item, other)
	router := cartRouter(carts)

	resp := decodeCart(t, doJSON(t, router, http.MethodPatch, "/api/cart/items/"+item.ID, `{"quantity":0}`))
	assert.Equal(t, 1, resp.Items[0].Quantity, "quantity is clamped to one")

	resp = decodeCart(t, doJSON(t, router, http.MethodPatch, "/api/cart/items/"+item.ID, `{"quantity":4}`))
	assert.Equal(t, 4, resp.Items[0].Quantity)
	assert.True(t, dec("42.50").Equal(resp.Totals.Subtotal))

	resp = decodeCart(t, doJSON(t, router, http.MethodDelete, "/api/cart/items/"+item.ID, ""))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, other.ID, resp.Items[0].ID)

	resp = decodeCart(t, doJSON(t, router, http.MethodDelete, "/api/cart", ""))
	assert.Empty(t, resp.Items)
	assert.Empty(t, carts.items())
}

func TestCartHandler_RejectsInvalidItem(t *testing.T) {
	router := cartRouter(newMemoryCarts())

	rec := doJSON(t, router, http.MethodPost, "/api/cart/items", `{"product_name":"","price":"-1"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Fields, "product_name")
	assert.Contains(t, body.Fields, "price")
}

func TestCartHandler_PersistFailureIsRecoverable(t *testing.T) {
	carts := newMemoryCarts()
	existing := models.NewCartLineItem("Medallion", dec("10"), 1)
	carts.seed(existing)
	carts.backend.WriteErr = errors.New("cookie too large")
	router := cartRouter(carts)

	rec := doJSON(t, router, http.MethodPost, "/api/cart/items", `{"product_name":"Another","price":"5"}`)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resp := decodeCart(t, rec)
	assert.NotEmpty(t, resp.Warning)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, existing.ID, resp.Items[0].ID)
}

func TestCartHandler_MalformedBody(t *testing.T) {
	rec := doJSON(t, cartRouter(newMemoryCarts()), http.MethodPost, "/api/cart/items", `{"product_name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCartHandler_RejectsFundraiserItems(t *testing.T) {
	carts := newMemoryCarts()
	router := cartRouter(carts)

	rec := doJSON(t, router, http.MethodPost, "/api/cart/items",
		`{"product_name":"Eagles Medal","price":"0.01","quantity":5,"is_fundraiser":true,"fundraiser_id":7}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Fields, "is_fundraiser")
	assert.Empty(t, carts.items())
}
