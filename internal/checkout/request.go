package checkout

import (
	"github.com/shopspring/decimal"

	"medallion-storefront/internal/models"
	"medallion-storefront/internal/pricing"
)

// Request is everything needed to open a hosted checkout session.
type Request struct {
	Flow           pricing.Flow
	Items          []models.CartLineItem
	DeliveryMethod models.DeliveryMethod

	// Fundraiser context, set only for fundraiser checkouts.
	Policy       *models.DonationPolicy
	FundraiserID int
	VariationID  int

	CustomerEmail   string
	ShippingAddress *models.Address

	// ShippingCost overrides the calculator's shipping amount. Fundraiser
	// flows always pass it.
	ShippingCost *decimal.Decimal

	Metadata map[string]string
}

func (r *Request) Validate() error {
	if len(r.Items) == 0 {
		return models.ErrEmptyCart
	}

	v := models.NewValidationError()
	for _, item := range r.Items {
		if err := item.Validate(); err != nil {
			v.Add("items", err.Error())
		}
		if item.IsFundraiser && (r.Flow == "" || r.Flow == pricing.FlowCart) {
			v.Add("items", item.ProductName+": fundraiser items cannot be checked out from the cart")
		}
	}
	if r.DeliveryMethod != "" && !r.DeliveryMethod.Valid() {
		v.Add("delivery_method", "delivery method must be shipping or pickup")
	}
	if r.CustomerEmail != "" && !models.ValidEmail(r.CustomerEmail) {
		v.Add("customer_email", "customer email format is invalid")
	}
	if r.ShippingCost != nil && r.ShippingCost.IsNegative() {
		v.Add("shipping_cost", "shipping cost cannot be negative")
	}
	if r.Policy != nil {
		if err := r.Policy.Validate(); err != nil {
			v.Add("donation_policy", err.Error())
		}
	}
	return v.OrNil()
}

// collectsShipping reports whether the provider should collect an address
// and charge a shipping rate: true as soon as one catalog item is present.
func (r *Request) collectsShipping() bool {
	for _, item := range r.Items {
		if !item.IsFundraiser {
			return true
		}
	}
	return false
}
