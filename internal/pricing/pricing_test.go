package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"medallion-storefront/internal/models"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testRates() Rates {
	return Rates{
		CatalogShipping:    d("8.00"),
		FundraiserShipping: d("5.00"),
		TaxRate:            d("0.05"),
	}
}

func item(price string, qty int) models.CartLineItem {
	return models.NewCartLineItem("Medallion", d(price), qty)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, d(want).Equal(got), "want %s, got %s", want, got)
}

func TestComputeTotals_SubtotalIsOrderIndependent(t *testing.T) {
	calc := NewCalculator(testRates())
	items := []models.CartLineItem{item("12.50", 2), item("3.99", 3), item("100", 1)}
	reversed := []models.CartLineItem{items[2], items[1], items[0]}

	a := calc.ComputeTotals(items, models.DeliveryPickup)
	b := calc.ComputeTotals(reversed, models.DeliveryPickup)

	assertDecimal(t, "136.97", a.Subtotal)
	assert.True(t, a.Subtotal.Equal(b.Subtotal))
}

func TestComputeTotals_ShippingGating(t *testing.T) {
	calc := NewCalculator(testRates())

	tests := []struct {
		name   string
		items  []models.CartLineItem
		method models.DeliveryMethod
		want   string
	}{
		{"pickup is free", []models.CartLineItem{item("10", 1)}, models.DeliveryPickup, "0"},
		{"shipping is flat", []models.CartLineItem{item("10", 1)}, models.DeliveryShipping, "8.00"},
		{"flat regardless of quantity", []models.CartLineItem{item("10", 40), item("1", 9)}, models.DeliveryShipping, "8.00"},
		{"flat for an empty cart", nil, models.DeliveryShipping, "8.00"},
		{"unknown method ships free", []models.CartLineItem{item("10", 1)}, "", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			totals := calc.ComputeTotals(tt.items, tt.method)
			assertDecimal(t, tt.want, totals.Shipping)
		})
	}
}

func TestComputeTotals_EndToEndCartScenario(t *testing.T) {
	calc := NewCalculator(testRates())

	totals := calc.ComputeTotals([]models.CartLineItem{item("49.99", 2)}, models.DeliveryShipping)

	assertDecimal(t, "99.98", totals.Subtotal)
	assertDecimal(t, "8.00", totals.Shipping)
	assertDecimal(t, "4.999", totals.Tax)
	assertDecimal(t, "112.979", totals.Total)
	assert.False(t, totals.TaxDeferred)

	rounded := totals.Rounded()
	assertDecimal(t, "5.00", rounded.Tax)
	assertDecimal(t, "112.98", rounded.Total)
}

func TestComputeTotalsFor_ProviderTaxFlows(t *testing.T) {
	calc := NewCalculator(testRates())
	items := []models.CartLineItem{item("20.00", 5)}

	fundraiser := calc.ComputeTotalsFor(FlowFundraiser, items, models.DeliveryShipping)
	assertDecimal(t, "100", fundraiser.Subtotal)
	assertDecimal(t, "5.00", fundraiser.Shipping)
	assertDecimal(t, "0", fundraiser.Tax)
	assertDecimal(t, "105", fundraiser.Total)
	assert.True(t, fundraiser.TaxDeferred)

	buyNow := calc.ComputeTotalsFor(FlowBuyNow, items, models.DeliveryShipping)
	assertDecimal(t, "8.00", buyNow.Shipping)
	assertDecimal(t, "0", buyNow.Tax)
	assertDecimal(t, "108", buyNow.Total)
	assert.True(t, buyNow.TaxDeferred)

	pickup := calc.ComputeTotalsFor(FlowFundraiser, items, models.DeliveryPickup)
	assertDecimal(t, "0", pickup.Shipping)
	assertDecimal(t, "100", pickup.Total)
}

func TestComputeDonation(t *testing.T) {
	tests := []struct {
		name      string
		policy    models.DonationPolicy
		unitPrice string
		quantity  int
		want      string
	}{
		{
			name:      "percentage",
			policy:    models.DonationPolicy{Type: models.DonationPercentage, Percentage: d("20")},
			unitPrice: "10",
			quantity:  3,
			want:      "6.00",
		},
		{
			name:      "fixed amount is per unit",
			policy:    models.DonationPolicy{Type: models.DonationFixed, Amount: d("2")},
			unitPrice: "999.99",
			quantity:  4,
			want:      "8.00",
		},
		{
			name:      "fundraiser scenario",
			policy:    models.DonationPolicy{Type: models.DonationPercentage, Percentage: d("15")},
			unitPrice: "20.00",
			quantity:  5,
			want:      "15.00",
		},
		{
			name:      "percentage ignores amount",
			policy:    models.DonationPolicy{Type: models.DonationPercentage, Percentage: d("10"), Amount: d("50")},
			unitPrice: "30",
			quantity:  1,
			want:      "3",
		},
		{
			name:      "fixed ignores percentage",
			policy:    models.DonationPolicy{Type: models.DonationFixed, Percentage: d("90"), Amount: d("1.25")},
			unitPrice: "30",
			quantity:  2,
			want:      "2.50",
		},
		{
			name:      "unknown type donates nothing",
			policy:    models.DonationPolicy{Type: "raffle", Amount: d("5")},
			unitPrice: "30",
			quantity:  2,
			want:      "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeDonation(tt.policy, d(tt.unitPrice), tt.quantity)
			assertDecimal(t, tt.want, got)
		})
	}
}

func TestComputeDonation_ZeroPercentage(t *testing.T) {
	policy := models.DonationPolicy{Type: models.DonationPercentage, Percentage: decimal.Zero}
	for n := 1; n <= 25; n++ {
		assert.True(t, ComputeDonation(policy, d("49.99"), n).IsZero())
	}
}

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		amount string
		want   int64
	}{
		{"49.99", 4999},
		{"8", 800},
		{"4.999", 500},
		{"0.005", 1},
		{"0.004", 0},
		{"10.125", 1013},
		{"0", 0},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			assert.Equal(t, tt.want, ToMinorUnits(d(tt.amount)))
		})
	}
}

func TestFromMinorUnits(t *testing.T) {
	assertDecimal(t, "112.98", FromMinorUnits(11298))
	assertDecimal(t, "0.05", FromMinorUnits(5))
}
