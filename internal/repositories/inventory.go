package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"medallion-storefront/internal/models"
)

// InventoryRepository handles stock levels
type InventoryRepository struct {
	db *sql.DB
}

func NewInventoryRepository(db *sql.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

const inventoryColumns = `id, sku, product_name, variant, quantity, low_stock_threshold, updated_at`

func scanInventory(row rowScanner) (*models.InventoryItem, error) {
	item := &models.InventoryItem{}
	err := row.Scan(&item.ID, &item.SKU, &item.ProductName, &item.Variant,
		&item.Quantity, &item.LowStockThreshold, &item.UpdatedAt)
	return item, err
}

func (r *InventoryRepository) Create(ctx context.Context, req *models.InventoryCreateRequest) (*models.InventoryItem, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	item, err := scanInventory(r.db.QueryRowContext(ctx, `
		INSERT INTO inventory_items (sku, product_name, variant, quantity, low_stock_threshold)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+inventoryColumns,
		strings.TrimSpace(req.SKU), strings.TrimSpace(req.ProductName), req.Variant, req.Quantity, req.LowStockThreshold,
	))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, fmt.Errorf("sku %q: %w", req.SKU, models.ErrDuplicateEntry)
		}
		return nil, fmt.Errorf("failed to create inventory item: %w", err)
	}
	return item, nil
}

func (r *InventoryRepository) GetByID(ctx context.Context, id int) (*models.InventoryItem, error) {
	item, err := scanInventory(r.db.QueryRowContext(ctx,
		`SELECT `+inventoryColumns+` FROM inventory_items WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrInventoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory item: %w", err)
	}
	return item, nil
}

// List returns all items, or only those at or below their threshold.
func (r *InventoryRepository) List(ctx context.Context, lowStockOnly bool) ([]*models.InventoryItem, error) {
	query := `SELECT ` + inventoryColumns + ` FROM inventory_items`
	if lowStockOnly {
		query += ` WHERE quantity <= low_stock_threshold`
	}
	query += ` ORDER BY product_name, variant`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}
	defer rows.Close()

	var items []*models.InventoryItem
	for rows.Next() {
		item, err := scanInventory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inventory item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Adjust changes stock by delta in a single statement. Stock never goes
// below zero: such an adjustment fails with ErrInsufficientStock.
func (r *InventoryRepository) Adjust(ctx context.Context, id int, delta int) (*models.InventoryItem, error) {
	item, err := scanInventory(r.db.QueryRowContext(ctx, `
		UPDATE inventory_items
		SET quantity = quantity + $1, updated_at = NOW()
		WHERE id = $2 AND quantity + $1 >= 0
		RETURNING `+inventoryColumns, delta, id))
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to adjust inventory: %w", err)
	}

	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, models.ErrInsufficientStock
}
