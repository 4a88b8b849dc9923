package models

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DonationType selects which field of a DonationPolicy is authoritative.
type DonationType string

const (
	DonationPercentage DonationType = "percentage"
	DonationFixed      DonationType = "fixed"
)

var hundred = decimal.NewFromInt(100)

// DonationPolicy describes how much of each fundraiser sale goes to the team.
// Only the field selected by Type is read; the other is ignored.
type DonationPolicy struct {
	Type       DonationType    `json:"donation_type"`
	Percentage decimal.Decimal `json:"donation_percentage"`
	Amount     decimal.Decimal `json:"donation_amount"`
}

// Validate rejects out-of-range policies. Donation math never clamps, so a
// policy has to be checked here, when it is created or edited.
func (p DonationPolicy) Validate() error {
	v := NewValidationError()

	switch p.Type {
	case DonationPercentage:
		if p.Percentage.IsNegative() || p.Percentage.GreaterThan(hundred) {
			v.Add("donation_percentage", "donation percentage must be between 0 and 100")
		}
	case DonationFixed:
		if p.Amount.IsNegative() {
			v.Add("donation_amount", "donation amount cannot be negative")
		}
	default:
		v.Add("donation_type", "donation type must be percentage or fixed")
	}

	return v.OrNil()
}

// Fundraiser is a team campaign selling medallions with part of each sale
// donated back to the team.
type Fundraiser struct {
	ID              int                   `json:"id" db:"id"`
	Slug            string                `json:"slug" db:"slug"`
	Title           string                `json:"title" db:"title"`
	TeamName        string                `json:"team_name" db:"team_name"`
	Description     string                `json:"description" db:"description"`
	ImageURL        string                `json:"image_url" db:"image_url"`
	Policy          DonationPolicy        `json:"donation_policy"`
	BasePrice       decimal.Decimal       `json:"base_price" db:"base_price"`
	Active          bool                  `json:"active" db:"active"`
	ShippingEnabled bool                  `json:"shipping_enabled" db:"shipping_enabled"`
	PickupEnabled   bool                  `json:"pickup_enabled" db:"pickup_enabled"`
	EndsAt          *time.Time            `json:"ends_at,omitempty" db:"ends_at"`
	Variations      []FundraiserVariation `json:"variations"`
	CreatedAt       time.Time             `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at" db:"updated_at"`
}

// FundraiserVariation is a purchasable option of a fundraiser (size, finish…).
type FundraiserVariation struct {
	ID           int             `json:"id" db:"id"`
	FundraiserID int             `json:"fundraiser_id" db:"fundraiser_id"`
	Name         string          `json:"name" db:"name"`
	Price        decimal.Decimal `json:"price" db:"price"`
	Active       bool            `json:"active" db:"active"`
}

// FundraiserCreateRequest is the admin payload for a new fundraiser.
type FundraiserCreateRequest struct {
	Slug            string                       `json:"slug"`
	Title           string                       `json:"title"`
	TeamName        string                       `json:"team_name"`
	Description     string                       `json:"description"`
	ImageURL        string                       `json:"image_url"`
	Policy          DonationPolicy               `json:"donation_policy"`
	BasePrice       decimal.Decimal              `json:"base_price"`
	ShippingEnabled bool                         `json:"shipping_enabled"`
	PickupEnabled   bool                         `json:"pickup_enabled"`
	EndsAt          *time.Time                   `json:"ends_at,omitempty"`
	Variations      []FundraiserVariationRequest `json:"variations"`
}

type FundraiserVariationRequest struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// FundraiserUpdateRequest carries the editable fields; nil means unchanged.
type FundraiserUpdateRequest struct {
	Title           *string          `json:"title"`
	Description     *string          `json:"description"`
	ImageURL        *string          `json:"image_url"`
	Policy          *DonationPolicy  `json:"donation_policy"`
	BasePrice       *decimal.Decimal `json:"base_price"`
	Active          *bool            `json:"active"`
	ShippingEnabled *bool            `json:"shipping_enabled"`
	PickupEnabled   *bool            `json:"pickup_enabled"`
	EndsAt          *time.Time       `json:"ends_at"`
}

var slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

func (req *FundraiserCreateRequest) Validate() error {
	v := NewValidationError()

	if !slugRegex.MatchString(req.Slug) {
		v.Add("slug", "slug must be lowercase letters, digits and dashes")
	}
	if strings.TrimSpace(req.Title) == "" {
		v.Add("title", "title is required")
	}
	if strings.TrimSpace(req.TeamName) == "" {
		v.Add("team_name", "team name is required")
	}
	if req.BasePrice.IsNegative() {
		v.Add("base_price", "base price cannot be negative")
	}
	if !req.ShippingEnabled && !req.PickupEnabled {
		v.Add("delivery", "at least one of shipping or pickup must be enabled")
	}
	mergeValidation(v, req.Policy.Validate())
	for _, variation := range req.Variations {
		if strings.TrimSpace(variation.Name) == "" {
			v.Add("variations", "variation name is required")
		}
		if variation.Price.IsNegative() {
			v.Add("variations", "variation price cannot be negative")
		}
	}

	return v.OrNil()
}

func (req *FundraiserUpdateRequest) Validate() error {
	v := NewValidationError()

	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		v.Add("title", "title cannot be empty")
	}
	if req.BasePrice != nil && req.BasePrice.IsNegative() {
		v.Add("base_price", "base price cannot be negative")
	}
	if req.Policy != nil {
		mergeValidation(v, req.Policy.Validate())
	}

	return v.OrNil()
}

// IsOpen reports whether the fundraiser accepts orders at the given time.
func (f *Fundraiser) IsOpen(now time.Time) bool {
	if !f.Active {
		return false
	}
	return f.EndsAt == nil || now.Before(*f.EndsAt)
}

// AllowsDelivery reports whether the fundraiser offers the delivery method.
func (f *Fundraiser) AllowsDelivery(method DeliveryMethod) bool {
	switch method {
	case DeliveryShipping:
		return f.ShippingEnabled
	case DeliveryPickup:
		return f.PickupEnabled
	}
	return false
}

// Variation finds an active variation by id.
func (f *Fundraiser) Variation(id int) (*FundraiserVariation, bool) {
	for i := range f.Variations {
		if f.Variations[i].ID == id && f.Variations[i].Active {
			return &f.Variations[i], true
		}
	}
	return nil, false
}

// PriceFor returns the unit price of a variation, or the base price when the
// fundraiser has no variations.
func (f *Fundraiser) PriceFor(variationID int) (decimal.Decimal, error) {
	if variationID == 0 {
		if len(f.Variations) > 0 {
			return decimal.Zero, ErrVariationNotFound
		}
		return f.BasePrice, nil
	}
	variation, ok := f.Variation(variationID)
	if !ok {
		return decimal.Zero, ErrVariationNotFound
	}
	return variation.Price, nil
}

func mergeValidation(dst *ValidationError, err error) {
	src, ok := err.(*ValidationError)
	if !ok {
		return
	}
	for field, messages := range src.Fields {
		for _, m := range messages {
			dst.Add(field, m)
		}
	}
}
