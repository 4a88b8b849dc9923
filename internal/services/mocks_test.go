package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stripe/stripe-go/v79"

	"medallion-storefront/internal/models"
	"medallion-storefront/internal/repositories"
)

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, req *models.OrderCreateRequest, donations []models.DonationEntry) (*models.Order, error) {
	args := m.Called(ctx, req, donations)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id int) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByStripeSessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	args := m.Called(ctx, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, id int, from, to models.OrderStatus) error {
	return m.Called(ctx, id, from, to).Error(0)
}

func (m *MockOrderRepository) Search(ctx context.Context, filters repositories.OrderSearchFilters) ([]*models.Order, int, error) {
	args := m.Called(ctx, filters)
	orders, _ := args.Get(0).([]*models.Order)
	return orders, args.Int(1), args.Error(2)
}

func (m *MockOrderRepository) SalesSummary(ctx context.Context, from, to time.Time) (*repositories.SalesSummary, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repositories.SalesSummary), args.Error(1)
}

func (m *MockOrderRepository) DailySales(ctx context.Context, from, to time.Time) ([]repositories.DailySales, error) {
	args := m.Called(ctx, from, to)
	days, _ := args.Get(0).([]repositories.DailySales)
	return days, args.Error(1)
}

type MockFundraiserRepository struct {
	mock.Mock
}

func (m *MockFundraiserRepository) Create(ctx context.Context, req *models.FundraiserCreateRequest) (*models.Fundraiser, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Fundraiser), args.Error(1)
}

func (m *MockFundraiserRepository) GetByID(ctx context.Context, id int) (*models.Fundraiser, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Fundraiser), args.Error(1)
}

func (m *MockFundraiserRepository) GetBySlug(ctx context.Context, slug string) (*models.Fundraiser, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Fundraiser), args.Error(1)
}

func (m *MockFundraiserRepository) List(ctx context.Context, activeOnly bool) ([]*models.Fundraiser, error) {
	args := m.Called(ctx, activeOnly)
	list, _ := args.Get(0).([]*models.Fundraiser)
	return list, args.Error(1)
}

func (m *MockFundraiserRepository) Update(ctx context.Context, id int, req *models.FundraiserUpdateRequest) (*models.Fundraiser, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Fundraiser), args.Error(1)
}

func (m *MockFundraiserRepository) SetActive(ctx context.Context, id int, active bool) error {
	return m.Called(ctx, id, active).Error(0)
}

type MockDonationRepository struct {
	mock.Mock
}

func (m *MockDonationRepository) ListByFundraiser(ctx context.Context, fundraiserID int) ([]models.DonationEntry, error) {
	args := m.Called(ctx, fundraiserID)
	entries, _ := args.Get(0).([]models.DonationEntry)
	return entries, args.Error(1)
}

func (m *MockDonationRepository) TotalForFundraiser(ctx context.Context, fundraiserID int) (decimal.Decimal, error) {
	args := m.Called(ctx, fundraiserID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockDonationRepository) Summaries(ctx context.Context) ([]models.FundraiserDonationSummary, error) {
	args := m.Called(ctx)
	summaries, _ := args.Get(0).([]models.FundraiserDonationSummary)
	return summaries, args.Error(1)
}

type MockInventoryRepository struct {
	mock.Mock
}

func (m *MockInventoryRepository) Create(ctx context.Context, req *models.InventoryCreateRequest) (*models.InventoryItem, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InventoryItem), args.Error(1)
}

func (m *MockInventoryRepository) GetByID(ctx context.Context, id int) (*models.InventoryItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InventoryItem), args.Error(1)
}

func (m *MockInventoryRepository) List(ctx context.Context, lowStockOnly bool) ([]*models.InventoryItem, error) {
	args := m.Called(ctx, lowStockOnly)
	items, _ := args.Get(0).([]*models.InventoryItem)
	return items, args.Error(1)
}

func (m *MockInventoryRepository) Adjust(ctx context.Context, id int, delta int) (*models.InventoryItem, error) {
	args := m.Called(ctx, id, delta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InventoryItem), args.Error(1)
}

type MockSettingsRepository struct {
	mock.Mock
}

func (m *MockSettingsRepository) Get(ctx context.Context) (*models.StoreSettings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StoreSettings), args.Error(1)
}

func (m *MockSettingsRepository) Update(ctx context.Context, req *models.SettingsUpdateRequest) (*models.StoreSettings, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StoreSettings), args.Error(1)
}

type MockSessionFetcher struct {
	mock.Mock
}

func (m *MockSessionFetcher) GetSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.CheckoutSession), args.Error(1)
}

func (m *MockSessionFetcher) ListLineItems(ctx context.Context, id string) ([]*stripe.LineItem, error) {
	args := m.Called(ctx, id)
	lines, _ := args.Get(0).([]*stripe.LineItem)
	return lines, args.Error(1)
}

type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendOrderConfirmation(ctx context.Context, order *models.Order) error {
	return m.Called(ctx, order).Error(0)
}

type recordingNotifier struct {
	published []string
	err       error
}

func (n *recordingNotifier) Publish(ctx context.Context, topic string, payload interface{}) error {
	n.published = append(n.published, topic)
	return n.err
}

func (n *recordingNotifier) Subscribe(ctx context.Context, topic string) (<-chan Notification, error) {
	ch := make(chan Notification)
	close(ch)
	return ch, nil
}
