package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"medallion-storefront/internal/models"
)

// DonationRepository reads the donation ledger. Entries are written together
// with their order by OrderRepository.Create.
type DonationRepository struct {
	db *sql.DB
}

func NewDonationRepository(db *sql.DB) *DonationRepository {
	return &DonationRepository{db: db}
}

// ListByFundraiser returns the ledger entries of one fundraiser, newest first.
func (r *DonationRepository) ListByFundraiser(ctx context.Context, fundraiserID int) ([]models.DonationEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, fundraiser_id, order_id, variation_id, policy_type, unit_price, quantity, amount, created_at
		FROM donation_entries
		WHERE fundraiser_id = $1
		ORDER BY created_at DESC, id DESC`, fundraiserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list donations: %w", err)
	}
	defer rows.Close()

	entries := []models.DonationEntry{}
	for rows.Next() {
		var e models.DonationEntry
		var variationID sql.NullInt64
		err := rows.Scan(&e.ID, &e.FundraiserID, &e.OrderID, &variationID, &e.PolicyType,
			&e.UnitPrice, &e.Quantity, &e.Amount, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan donation: %w", err)
		}
		e.VariationID = intPtr(variationID)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// TotalForFundraiser sums the ledger of one fundraiser, excluding entries
// whose order was cancelled.
func (r *DonationRepository) TotalForFundraiser(ctx context.Context, fundraiserID int) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(d.amount), 0)
		FROM donation_entries d
		JOIN orders o ON o.id = d.order_id
		WHERE d.fundraiser_id = $1 AND o.status <> 'cancelled'`, fundraiserID).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to total donations: %w", err)
	}
	return total, nil
}

// Summaries aggregates donations per fundraiser, including fundraisers that
// have not sold anything yet.
func (r *DonationRepository) Summaries(ctx context.Context) ([]models.FundraiserDonationSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT f.id, f.title, f.team_name,
			COALESCE(SUM(d.amount) FILTER (WHERE o.status <> 'cancelled'), 0),
			COALESCE(SUM(d.quantity) FILTER (WHERE o.status <> 'cancelled'), 0),
			COUNT(DISTINCT d.order_id) FILTER (WHERE o.status <> 'cancelled')
		FROM fundraisers f
		LEFT JOIN donation_entries d ON d.fundraiser_id = f.id
		LEFT JOIN orders o ON o.id = d.order_id
		GROUP BY f.id, f.title, f.team_name
		ORDER BY f.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize donations: %w", err)
	}
	defer rows.Close()

	summaries := []models.FundraiserDonationSummary{}
	for rows.Next() {
		var s models.FundraiserDonationSummary
		if err := rows.Scan(&s.FundraiserID, &s.Title, &s.TeamName, &s.TotalDonations, &s.ItemsSold, &s.OrderCount); err != nil {
			return nil, fmt.Errorf("failed to scan donation summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}
