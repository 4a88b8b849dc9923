package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"medallion-storefront/internal/models"
)

// SettingsService manages the storefront-wide delivery toggles.
type SettingsService struct {
	settings SettingsRepository
	notifier Notifier
	log      zerolog.Logger
}

func NewSettingsService(settings SettingsRepository, notifier Notifier, log zerolog.Logger) *SettingsService {
	return &SettingsService{settings: settings, notifier: notifier, log: log}
}

func (s *SettingsService) Get(ctx context.Context) (*models.StoreSettings, error) {
	return s.settings.Get(ctx)
}

// Update saves the toggles and tells live clients about the change. A failed
// notification does not fail the update.
func (s *SettingsService) Update(ctx context.Context, req *models.SettingsUpdateRequest) (*models.StoreSettings, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	updated, err := s.settings.Update(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}

	if err := s.notifier.Publish(ctx, TopicSettings, updated); err != nil {
		s.log.Warn().Err(err).Msg("failed to publish settings change")
	}
	s.log.Info().Bool("shipping_enabled", updated.ShippingEnabled).Bool("pickup_enabled", updated.PickupEnabled).Msg("store settings updated")
	return updated, nil
}

// Allows reports whether the store currently offers method. Lookup failures
// fall back to the defaults so checkout keeps working.
func (s *SettingsService) Allows(ctx context.Context, method models.DeliveryMethod) bool {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to load store settings, using defaults")
		settings = models.DefaultStoreSettings()
	}
	return settings.Allows(method)
}
