package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v79"

	"medallion-storefront/internal/models"
	"medallion-storefront/internal/repositories"
)

// OrderRepository is the order persistence the services need.
type OrderRepository interface {
	Create(ctx context.Context, req *models.OrderCreateRequest, donations []models.DonationEntry) (*models.Order, error)
	GetByID(ctx context.Context, id int) (*models.Order, error)
	GetByStripeSessionID(ctx context.Context, sessionID string) (*models.Order, error)
	GetByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	UpdateStatus(ctx context.Context, id int, from, to models.OrderStatus) error
	Search(ctx context.Context, filters repositories.OrderSearchFilters) ([]*models.Order, int, error)
	SalesSummary(ctx context.Context, from, to time.Time) (*repositories.SalesSummary, error)
	DailySales(ctx context.Context, from, to time.Time) ([]repositories.DailySales, error)
}

type FundraiserRepository interface {
	Create(ctx context.Context, req *models.FundraiserCreateRequest) (*models.Fundraiser, error)
	GetByID(ctx context.Context, id int) (*models.Fundraiser, error)
	GetBySlug(ctx context.Context, slug string) (*models.Fundraiser, error)
	List(ctx context.Context, activeOnly bool) ([]*models.Fundraiser, error)
	Update(ctx context.Context, id int, req *models.FundraiserUpdateRequest) (*models.Fundraiser, error)
	SetActive(ctx context.Context, id int, active bool) error
}

type DonationRepository interface {
	ListByFundraiser(ctx context.Context, fundraiserID int) ([]models.DonationEntry, error)
	TotalForFundraiser(ctx context.Context, fundraiserID int) (decimal.Decimal, error)
	Summaries(ctx context.Context) ([]models.FundraiserDonationSummary, error)
}

type SettingsRepository interface {
	Get(ctx context.Context) (*models.StoreSettings, error)
	Update(ctx context.Context, req *models.SettingsUpdateRequest) (*models.StoreSettings, error)
}

type InventoryRepository interface {
	Create(ctx context.Context, req *models.InventoryCreateRequest) (*models.InventoryItem, error)
	GetByID(ctx context.Context, id int) (*models.InventoryItem, error)
	List(ctx context.Context, lowStockOnly bool) ([]*models.InventoryItem, error)
	Adjust(ctx context.Context, id int, delta int) (*models.InventoryItem, error)
}

// SessionFetcher loads a checkout session with its line items expanded.
// ListLineItems returns all of them when the expanded page is incomplete.
type SessionFetcher interface {
	GetSession(ctx context.Context, id string) (*stripe.CheckoutSession, error)
	ListLineItems(ctx context.Context, id string) ([]*stripe.LineItem, error)
}

var (
	_ OrderRepository      = (*repositories.OrderRepository)(nil)
	_ FundraiserRepository = (*repositories.FundraiserRepository)(nil)
	_ DonationRepository   = (*repositories.DonationRepository)(nil)
	_ SettingsRepository   = (*repositories.SettingsRepository)(nil)
	_ InventoryRepository  = (*repositories.InventoryRepository)(nil)
)
