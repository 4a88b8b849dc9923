package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"medallion-storefront/internal/config"
	"medallion-storefront/internal/database"
	"medallion-storefront/internal/logger"
	"medallion-storefront/internal/models"
	"medallion-storefront/internal/pricing"
	"medallion-storefront/internal/repositories"
	"medallion-storefront/internal/services"
)

// seed creates a demo fundraiser and starter inventory. Running it twice is
// harmless; existing rows are skipped.
func main() {
	log := logger.New("info", true)
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := database.NewConnection(ctx, database.Config{
		URL:      cfg.Database.URL,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	notifier := services.NewMemoryNotifier(log)
	calc := pricing.NewCalculator(pricing.Rates{
		CatalogShipping:    cfg.Pricing.CatalogShipping,
		FundraiserShipping: cfg.Pricing.FundraiserShipping,
		TaxRate:            cfg.Pricing.TaxRate,
	})
	settings := services.NewSettingsService(repositories.NewSettingsRepository(db.DB), notifier, log)
	fundraisers := services.NewFundraiserService(
		repositories.NewFundraiserRepository(db.DB),
		repositories.NewDonationRepository(db.DB),
		settings, calc, nil, notifier, log,
	)
	inventory := services.NewInventoryService(repositories.NewInventoryRepository(db.DB), log)

	f, err := fundraisers.Create(ctx, &models.FundraiserCreateRequest{
		Slug:        "eagles-spring-2024",
		Title:       "Eagles Spring Season",
		TeamName:    "Springfield Eagles",
		Description: "Every medallion sold sends 15% back to the team for travel and equipment.",
		Policy: models.DonationPolicy{
			Type:       models.DonationPercentage,
			Percentage: decimal.NewFromInt(15),
		},
		BasePrice:       decimal.RequireFromString("20.00"),
		ShippingEnabled: true,
		PickupEnabled:   true,
		Variations: []models.FundraiserVariationRequest{
			{Name: "Gold chain", Price: decimal.RequireFromString("20.00")},
			{Name: "Silver chain", Price: decimal.RequireFromString("18.00")},
		},
	})
	switch {
	case errors.Is(err, models.ErrDuplicateEntry):
		log.Info().Msg("demo fundraiser already exists")
	case err != nil:
		log.Fatal().Err(err).Msg("failed to create demo fundraiser")
	default:
		fmt.Printf("created fundraiser %q at /api/fundraisers/%s\n", f.Title, f.Slug)
	}

	for _, item := range []models.InventoryCreateRequest{
		{SKU: "MED-BLANK-GOLD", ProductName: "Medallion blank", Variant: "gold", Quantity: 200, LowStockThreshold: 25},
		{SKU: "MED-BLANK-SILVER", ProductName: "Medallion blank", Variant: "silver", Quantity: 150, LowStockThreshold: 25},
		{SKU: "CHAIN-GOLD", ProductName: "Chain", Variant: "gold", Quantity: 300, LowStockThreshold: 50},
	} {
		created, err := inventory.Create(ctx, &item)
		if errors.Is(err, models.ErrDuplicateEntry) {
			continue
		}
		if err != nil {
			log.Fatal().Err(err).Str("sku", item.SKU).Msg("failed to create inventory item")
		}
		fmt.Printf("stocked %s x%d\n", created.SKU, created.Quantity)
	}
}
