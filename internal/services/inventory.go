package services

import (
	"context"

	"github.com/rs/zerolog"

	"medallion-storefront/internal/models"
)

// InventoryService manages stock counts for the catalog.
type InventoryService struct {
	inventory InventoryRepository
	log       zerolog.Logger
}

func NewInventoryService(inventory InventoryRepository, log zerolog.Logger) *InventoryService {
	return &InventoryService{inventory: inventory, log: log}
}

func (s *InventoryService) Create(ctx context.Context, req *models.InventoryCreateRequest) (*models.InventoryItem, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.inventory.Create(ctx, req)
}

func (s *InventoryService) List(ctx context.Context, lowStockOnly bool) ([]*models.InventoryItem, error) {
	return s.inventory.List(ctx, lowStockOnly)
}

// Adjust changes stock by a signed delta. Stock never goes below zero.
func (s *InventoryService) Adjust(ctx context.Context, id int, req *models.InventoryAdjustRequest) (*models.InventoryItem, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	item, err := s.inventory.Adjust(ctx, id, req.Delta)
	if err != nil {
		return nil, err
	}

	event := s.log.Info()
	if item.IsLowStock() {
		event = s.log.Warn()
	}
	event.Str("sku", item.SKU).Int("delta", req.Delta).Int("quantity", item.Quantity).
		Str("reason", req.Reason).Msg("inventory adjusted")
	return item, nil
}
