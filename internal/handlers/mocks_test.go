package handlers

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stripe/stripe-go/v79"

	"medallion-storefront/internal/cart"
	"medallion-storefront/internal/checkout"
	"medallion-storefront/internal/models"
	"medallion-storefront/internal/pricing"
	"medallion-storefront/internal/repositories"
	"medallion-storefront/internal/services"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testCalculator() *pricing.Calculator {
	return pricing.NewCalculator(pricing.Rates{
		CatalogShipping:    dec("8.00"),
		FundraiserShipping: dec("5.00"),
		TaxRate:            dec("0.05"),
	})
}

// memoryCarts hands every request the same in-memory cart.
type memoryCarts struct {
	backend *cart.MemoryBackend
}

func newMemoryCarts() *memoryCarts {
	return &memoryCarts{backend: cart.NewMemoryBackend("")}
}

func (p *memoryCarts) For(w http.ResponseWriter, r *http.Request) *cart.Store {
	return cart.NewStore(p.backend, zerolog.Nop())
}

func (p *memoryCarts) seed(items ...models.CartLineItem) {
	_ = cart.NewStore(p.backend, zerolog.Nop()).Save(context.Background(), items)
}

func (p *memoryCarts) items() []models.CartLineItem {
	return cart.NewStore(p.backend, zerolog.Nop()).Load(context.Background())
}

// fakeSessions records the session requests the composer sends.
type fakeSessions struct {
	mu     sync.Mutex
	params []*stripe.CheckoutSessionParams
	err    error
}

func (f *fakeSessions) CreateSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.params = append(f.params, params)
	if f.err != nil {
		return nil, f.err
	}
	return &stripe.CheckoutSession{ID: "cs_test_123", URL: "https://checkout.stripe.com/c/pay/cs_test_123"}, nil
}

func (f *fakeSessions) last() *stripe.CheckoutSessionParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.params) == 0 {
		return nil
	}
	return f.params[len(f.params)-1]
}

func newTestComposer(sessions checkout.SessionAPI) *checkout.Composer {
	return checkout.NewComposer(sessions, testCalculator(), nil, checkout.Options{
		Currency:         "usd",
		SuccessURL:       "https://shop.example/success",
		CancelURL:        "https://shop.example/cart",
		AllowedCountries: []string{"US"},
	}, zerolog.Nop())
}

type staticSettings struct {
	settings models.StoreSettings
}

func (s staticSettings) Allows(ctx context.Context, method models.DeliveryMethod) bool {
	return s.settings.Allows(method)
}

func allDelivery() staticSettings {
	return staticSettings{settings: models.StoreSettings{ShippingEnabled: true, PickupEnabled: true}}
}

type MockSubmitter struct {
	mock.Mock
}

func (m *MockSubmitter) Submit(ctx context.Context, req *checkout.Request) (*checkout.Result, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*checkout.Result), args.Error(1)
}

type MockFundraiserCatalog struct {
	mock.Mock
}

func (m *MockFundraiserCatalog) ListActive(ctx context.Context) ([]*models.Fundraiser, error) {
	args := m.Called(ctx)
	fundraisers, _ := args.Get(0).([]*models.Fundraiser)
	return fundraisers, args.Error(1)
}

func (m *MockFundraiserCatalog) GetPublic(ctx context.Context, slug string) (*models.Fundraiser, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Fundraiser), args.Error(1)
}

func (m *MockFundraiserCatalog) PreviewDonation(ctx context.Context, slug string, variationID, quantity int) (*services.DonationPreview, error) {
	args := m.Called(ctx, slug, variationID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.DonationPreview), args.Error(1)
}

func (m *MockFundraiserCatalog) PrepareCheckout(ctx context.Context, slug string, req *services.FundraiserCheckoutRequest) (*checkout.Request, error) {
	args := m.Called(ctx, slug, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*checkout.Request), args.Error(1)
}

type MockCheckoutRecorder struct {
	mock.Mock
}

func (m *MockCheckoutRecorder) RecordCheckout(ctx context.Context, sessionID string) (*models.Order, bool, error) {
	args := m.Called(ctx, sessionID)
	order, _ := args.Get(0).(*models.Order)
	return order, args.Bool(1), args.Error(2)
}

type MockOrderAdmin struct {
	mock.Mock
}

func (m *MockOrderAdmin) Search(ctx context.Context, filters repositories.OrderSearchFilters) ([]*models.Order, int, error) {
	args := m.Called(ctx, filters)
	orders, _ := args.Get(0).([]*models.Order)
	return orders, args.Int(1), args.Error(2)
}

func (m *MockOrderAdmin) Get(ctx context.Context, id int) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderAdmin) GetByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	args := m.Called(ctx, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderAdmin) UpdateStatus(ctx context.Context, id int, req *models.OrderStatusUpdateRequest) (*models.Order, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

type MockSettingsAdmin struct {
	mock.Mock
}

func (m *MockSettingsAdmin) Get(ctx context.Context) (*models.StoreSettings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StoreSettings), args.Error(1)
}

func (m *MockSettingsAdmin) Update(ctx context.Context, req *models.SettingsUpdateRequest) (*models.StoreSettings, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StoreSettings), args.Error(1)
}

type MockInventoryAdmin struct {
	mock.Mock
}

func (m *MockInventoryAdmin) Create(ctx context.Context, req *models.InventoryCreateRequest) (*models.InventoryItem, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InventoryItem), args.Error(1)
}

func (m *MockInventoryAdmin) List(ctx context.Context, lowStockOnly bool) ([]*models.InventoryItem, error) {
	args := m.Called(ctx, lowStockOnly)
	items, _ := args.Get(0).([]*models.InventoryItem)
	return items, args.Error(1)
}

func (m *MockInventoryAdmin) Adjust(ctx context.Context, id int, req *models.InventoryAdjustRequest) (*models.InventoryItem, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InventoryItem), args.Error(1)
}

type MockReports struct {
	mock.Mock
}

func (m *MockReports) SalesReport(ctx context.Context, from, to time.Time) (*services.SalesReport, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.SalesReport), args.Error(1)
}

func (m *MockReports) ExportOrdersCSV(ctx context.Context, w io.Writer, filters repositories.OrderSearchFilters) error {
	args := m.Called(ctx, w, filters)
	if fn, ok := args.Get(0).(func(io.Writer)); ok {
		fn(w)
	}
	return args.Error(1)
}
