package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DonationEntry is the authoritative ledger row for the donated portion of
// one fundraiser sale.
type DonationEntry struct {
	ID           int             `json:"id" db:"id"`
	FundraiserID int             `json:"fundraiser_id" db:"fundraiser_id"`
	OrderID      int             `json:"order_id" db:"order_id"`
	VariationID  *int            `json:"variation_id,omitempty" db:"variation_id"`
	PolicyType   DonationType    `json:"policy_type" db:"policy_type"`
	UnitPrice    decimal.Decimal `json:"unit_price" db:"unit_price"`
	Quantity     int             `json:"quantity" db:"quantity"`
	Amount       decimal.Decimal `json:"amount" db:"amount"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// FundraiserDonationSummary aggregates the ledger for one fundraiser.
type FundraiserDonationSummary struct {
	FundraiserID   int             `json:"fundraiser_id"`
	Title          string          `json:"title"`
	TeamName       string          `json:"team_name"`
	TotalDonations decimal.Decimal `json:"total_donations"`
	ItemsSold      int             `json:"items_sold"`
	OrderCount     int             `json:"order_count"`
}
