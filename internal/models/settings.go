package models

import (
	"time"
)

// StoreSettings are the storefront-wide toggles admins flip at runtime.
type StoreSettings struct {
	ShippingEnabled bool      `json:"shipping_enabled" db:"shipping_enabled"`
	PickupEnabled   bool      `json:"pickup_enabled" db:"pickup_enabled"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// SettingsUpdateRequest represents a request to update store settings
type SettingsUpdateRequest struct {
	ShippingEnabled *bool `json:"shipping_enabled"`
	PickupEnabled   *bool `json:"pickup_enabled"`
}

func (req *SettingsUpdateRequest) Validate() error {
	v := NewValidationError()
	if req.ShippingEnabled == nil && req.PickupEnabled == nil {
		v.Add("settings", "nothing to update")
	}
	if req.ShippingEnabled != nil && req.PickupEnabled != nil && !*req.ShippingEnabled && !*req.PickupEnabled {
		v.Add("settings", "shipping and pickup cannot both be disabled")
	}
	return v.OrNil()
}

// DefaultStoreSettings returns the settings used before an admin changes them
func DefaultStoreSettings() *StoreSettings {
	return &StoreSettings{
		ShippingEnabled: true,
		PickupEnabled:   true,
		UpdatedAt:       time.Now(),
	}
}

// Allows reports whether the store currently offers a delivery method.
func (s *StoreSettings) Allows(method DeliveryMethod) bool {
	switch method {
	case DeliveryShipping:
		return s.ShippingEnabled
	case DeliveryPickup:
		return s.PickupEnabled
	}
	return false
}
