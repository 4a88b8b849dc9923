package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"medallion-storefront/internal/models"
)

// SettingsRepository handles the single store settings row
type SettingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get retrieves the current store settings, falling back to defaults when
// the row is missing.
func (r *SettingsRepository) Get(ctx context.Context) (*models.StoreSettings, error) {
	settings := &models.StoreSettings{}
	err := r.db.QueryRowContext(ctx,
		`SELECT shipping_enabled, pickup_enabled, updated_at FROM store_settings WHERE id = 1`,
	).Scan(&settings.ShippingEnabled, &settings.PickupEnabled, &settings.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return models.DefaultStoreSettings(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return settings, nil
}

// Update applies req on top of the current settings. The merged result must
// still offer at least one delivery method.
func (r *SettingsRepository) Update(ctx context.Context, req *models.SettingsUpdateRequest) (*models.StoreSettings, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	current, err := r.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current settings: %w", err)
	}

	if req.ShippingEnabled != nil {
		current.ShippingEnabled = *req.ShippingEnabled
	}
	if req.PickupEnabled != nil {
		current.PickupEnabled = *req.PickupEnabled
	}
	if !current.ShippingEnabled && !current.PickupEnabled {
		v := models.NewValidationError()
		v.Add("settings", "shipping and pickup cannot both be disabled")
		return nil, v
	}
	current.UpdatedAt = time.Now()

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO store_settings (id, shipping_enabled, pickup_enabled, updated_at)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET shipping_enabled = EXCLUDED.shipping_enabled,
		    pickup_enabled = EXCLUDED.pickup_enabled,
		    updated_at = EXCLUDED.updated_at`,
		current.ShippingEnabled, current.PickupEnabled, current.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}
	return current, nil
}
