// Package pricing holds the storefront's money rules: cart totals, shipping,
// the local tax estimate, fundraiser donations and conversion to the minor
// units the payment provider charges in.
package pricing

import (
	"github.com/shopspring/decimal"

	"medallion-storefront/internal/models"
)

// Flow identifies which checkout path a cart is priced for. The direct cart
// shows a local tax estimate; buy-now and fundraiser checkouts leave tax to
// the payment provider and must not add a local tax line.
type Flow string

const (
	FlowCart       Flow = "cart"
	FlowBuyNow     Flow = "buy_now"
	FlowFundraiser Flow = "fundraiser"
)

var (
	hundred = decimal.NewFromInt(100)
)

// Rates are the configured money constants.
type Rates struct {
	CatalogShipping    decimal.Decimal
	FundraiserShipping decimal.Decimal
	TaxRate            decimal.Decimal
}

// Totals is a priced breakdown of a cart. Amounts are exact; use Rounded for
// display.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
	// TaxDeferred is set when tax is computed by the payment provider at
	// checkout; Tax is zero and Total excludes it.
	TaxDeferred bool `json:"tax_deferred"`
}

// Rounded returns the totals rounded to cents, half up.
func (t Totals) Rounded() Totals {
	return Totals{
		Subtotal:    RoundCents(t.Subtotal),
		Shipping:    RoundCents(t.Shipping),
		Tax:         RoundCents(t.Tax),
		Total:       RoundCents(t.Total),
		TaxDeferred: t.TaxDeferred,
	}
}

// Calculator prices carts with a fixed set of rates.
type Calculator struct {
	rates Rates
}

func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

func (c *Calculator) Rates() Rates {
	return c.rates
}

// ComputeTotals prices a direct-catalog cart: subtotal, flat shipping when
// shipping is selected, and the local tax estimate on the subtotal.
func (c *Calculator) ComputeTotals(items []models.CartLineItem, method models.DeliveryMethod) Totals {
	return c.ComputeTotalsFor(FlowCart, items, method)
}

// ComputeTotalsFor prices items for a specific checkout flow.
func (c *Calculator) ComputeTotalsFor(flow Flow, items []models.CartLineItem, method models.DeliveryMethod) Totals {
	subtotal := Subtotal(items)
	shipping := c.ShippingFor(flow, method)

	if flow != FlowCart {
		return Totals{
			Subtotal:    subtotal,
			Shipping:    shipping,
			Tax:         decimal.Zero,
			Total:       subtotal.Add(shipping),
			TaxDeferred: true,
		}
	}

	tax := subtotal.Mul(c.rates.TaxRate)
	return Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    subtotal.Add(shipping).Add(tax),
	}
}

// ShippingFor returns the per-order shipping charge. Pickup is always free;
// shipping is a flat amount that depends only on the flow.
func (c *Calculator) ShippingFor(flow Flow, method models.DeliveryMethod) decimal.Decimal {
	if method != models.DeliveryShipping {
		return decimal.Zero
	}
	if flow == FlowFundraiser {
		return c.rates.FundraiserShipping
	}
	return c.rates.CatalogShipping
}

// Subtotal sums price × quantity over items.
func Subtotal(items []models.CartLineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// ComputeDonation returns the donated portion of a fundraiser sale. A
// percentage policy donates that share of each unit's price; a fixed policy
// donates its amount per unit. Both scale with quantity.
//
// Preview endpoints and the order ledger both call this; there is no second
// implementation.
func ComputeDonation(policy models.DonationPolicy, unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	var perItem decimal.Decimal

	switch policy.Type {
	case models.DonationPercentage:
		perItem = unitPrice.Mul(policy.Percentage).Div(hundred)
	case models.DonationFixed:
		perItem = policy.Amount
	default:
		return decimal.Zero
	}

	return perItem.Mul(decimal.NewFromInt(int64(quantity)))
}

// RoundCents rounds to two decimal places, half up.
func RoundCents(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// ToMinorUnits converts an amount to integer cents, rounding half up first.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return RoundCents(amount).Mul(hundred).IntPart()
}

// FromMinorUnits converts integer cents back to a decimal amount.
func FromMinorUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
