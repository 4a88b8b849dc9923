package models

import (
	"strings"
	"time"
)

// InventoryItem tracks stock for one sellable product variant.
type InventoryItem struct {
	ID                int       `json:"id" db:"id"`
	SKU               string    `json:"sku" db:"sku"`
	ProductName       string    `json:"product_name" db:"product_name"`
	Variant           string    `json:"variant" db:"variant"`
	Quantity          int       `json:"quantity" db:"quantity"`
	LowStockThreshold int       `json:"low_stock_threshold" db:"low_stock_threshold"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

func (i *InventoryItem) IsLowStock() bool {
	return i.Quantity <= i.LowStockThreshold
}

// InventoryCreateRequest registers a new stock keeping unit.
type InventoryCreateRequest struct {
	SKU               string `json:"sku"`
	ProductName       string `json:"product_name"`
	Variant           string `json:"variant"`
	Quantity          int    `json:"quantity"`
	LowStockThreshold int    `json:"low_stock_threshold"`
}

func (req *InventoryCreateRequest) Validate() error {
	v := NewValidationError()
	if strings.TrimSpace(req.SKU) == "" {
		v.Add("sku", "sku is required")
	}
	if strings.TrimSpace(req.ProductName) == "" {
		v.Add("product_name", "product name is required")
	}
	if req.Quantity < 0 {
		v.Add("quantity", "quantity cannot be negative")
	}
	if req.LowStockThreshold < 0 {
		v.Add("low_stock_threshold", "threshold cannot be negative")
	}
	return v.OrNil()
}

// InventoryAdjustRequest changes stock by a signed delta.
type InventoryAdjustRequest struct {
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

func (req *InventoryAdjustRequest) Validate() error {
	if req.Delta == 0 {
		v := NewValidationError()
		v.Add("delta", "delta cannot be zero")
		return v
	}
	return nil
}
