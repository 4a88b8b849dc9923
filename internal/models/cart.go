package models

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DeliveryMethod is how a purchase reaches the customer.
type DeliveryMethod string

const (
	DeliveryShipping DeliveryMethod = "shipping"
	DeliveryPickup   DeliveryMethod = "pickup"
)

func (d DeliveryMethod) Valid() bool {
	return d == DeliveryShipping || d == DeliveryPickup
}

// CartLineItem is one entry of a shopper's cart. It is the unit persisted by
// the cart store and later mapped into a checkout line item.
type CartLineItem struct {
	ID             string            `json:"id"`
	ProductName    string            `json:"product_name"`
	Price          decimal.Decimal   `json:"price"`
	Quantity       int               `json:"quantity"`
	// ImageReference is sent as image_path: a remote URL or an inline data URL.
	ImageReference string            `json:"image_path,omitempty"`
	IsFundraiser   bool              `json:"is_fundraiser,omitempty"`
	DeliveryMethod DeliveryMethod    `json:"delivery_method,omitempty"`
	FundraiserID   int               `json:"fundraiser_id,omitempty"`
	VariationID    int               `json:"variation_id,omitempty"`
	TeamName       string            `json:"team_name,omitempty"`
	ChainColor     string            `json:"chain_color,omitempty"`
	AgeDivision    string            `json:"age_division,omitempty"`
	Customizations map[string]string `json:"customizations,omitempty"`
}

// NewCartLineItem creates a line item with a fresh id. A zero quantity
// defaults to one.
func NewCartLineItem(productName string, price decimal.Decimal, quantity int) CartLineItem {
	if quantity == 0 {
		quantity = 1
	}
	return CartLineItem{
		ID:          uuid.NewString(),
		ProductName: productName,
		Price:       price,
		Quantity:    quantity,
	}
}

// Validate checks the invariants every stored line item must satisfy.
func (i CartLineItem) Validate() error {
	v := NewValidationError()

	if strings.TrimSpace(i.ProductName) == "" {
		v.Add("product_name", "product name is required")
	}
	if i.Price.IsNegative() {
		v.Add("price", "price cannot be negative")
	}
	if i.Quantity < 1 {
		v.Add("quantity", "quantity must be at least 1")
	}
	if i.DeliveryMethod != "" && !i.DeliveryMethod.Valid() {
		v.Add("delivery_method", "delivery method must be shipping or pickup")
	}
	if i.IsFundraiser && i.FundraiserID == 0 {
		v.Add("fundraiser_id", "fundraiser items must reference a fundraiser")
	}

	return v.OrNil()
}

// Subtotal returns price × quantity.
func (i CartLineItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// HasInlineImage reports whether the image reference is an encoded image that
// still has to be uploaded.
func (i CartLineItem) HasInlineImage() bool {
	return strings.HasPrefix(i.ImageReference, "data:image/")
}

// HasRemoteImage reports whether the image reference is already a URL.
func (i CartLineItem) HasRemoteImage() bool {
	return strings.HasPrefix(i.ImageReference, "https://") || strings.HasPrefix(i.ImageReference, "http://")
}
