package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"medallion-storefront/internal/models"
)

// FundraiserRepository handles fundraiser and variation data operations
type FundraiserRepository struct {
	db *sql.DB
}

func NewFundraiserRepository(db *sql.DB) *FundraiserRepository {
	return &FundraiserRepository{db: db}
}

const fundraiserColumns = `id, slug, title, team_name, description, image_url,
	donation_type, donation_percentage, donation_amount, base_price,
	active, shipping_enabled, pickup_enabled, ends_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFundraiser(row rowScanner) (*models.Fundraiser, error) {
	f := &models.Fundraiser{}
	var endsAt sql.NullTime
	err := row.Scan(
		&f.ID,
		&f.Slug,
		&f.Title,
		&f.TeamName,
		&f.Description,
		&f.ImageURL,
		&f.Policy.Type,
		&f.Policy.Percentage,
		&f.Policy.Amount,
		&f.BasePrice,
		&f.Active,
		&f.ShippingEnabled,
		&f.PickupEnabled,
		&endsAt,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if endsAt.Valid {
		f.EndsAt = &endsAt.Time
	}
	return f, nil
}

// Create inserts a fundraiser and its variations in one transaction.
func (r *FundraiserRepository) Create(ctx context.Context, req *models.FundraiserCreateRequest) (*models.Fundraiser, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO fundraisers (slug, title, team_name, description, image_url,
			donation_type, donation_percentage, donation_amount, base_price,
			shipping_enabled, pickup_enabled, ends_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + fundraiserColumns

	f, err := scanFundraiser(tx.QueryRowContext(ctx, query,
		req.Slug,
		strings.TrimSpace(req.Title),
		strings.TrimSpace(req.TeamName),
		req.Description,
		req.ImageURL,
		req.Policy.Type,
		req.Policy.Percentage,
		req.Policy.Amount,
		req.BasePrice,
		req.ShippingEnabled,
		req.PickupEnabled,
		req.EndsAt,
	))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, fmt.Errorf("fundraiser slug %q: %w", req.Slug, models.ErrDuplicateEntry)
		}
		return nil, fmt.Errorf("failed to create fundraiser: %w", err)
	}

	for _, v := range req.Variations {
		variation := models.FundraiserVariation{FundraiserID: f.ID, Name: strings.TrimSpace(v.Name), Price: v.Price, Active: true}
		err := tx.QueryRowContext(ctx,
			`INSERT INTO fundraiser_variations (fundraiser_id, name, price) VALUES ($1, $2, $3) RETURNING id`,
			f.ID, variation.Name, variation.Price,
		).Scan(&variation.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to create fundraiser variation: %w", err)
		}
		f.Variations = append(f.Variations, variation)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit fundraiser creation: %w", err)
	}
	return f, nil
}

// GetByID retrieves a fundraiser with its variations
func (r *FundraiserRepository) GetByID(ctx context.Context, id int) (*models.Fundraiser, error) {
	return r.getOne(ctx, "id = $1", id)
}

// GetBySlug retrieves a fundraiser with its variations
func (r *FundraiserRepository) GetBySlug(ctx context.Context, slug string) (*models.Fundraiser, error) {
	return r.getOne(ctx, "slug = $1", slug)
}

func (r *FundraiserRepository) getOne(ctx context.Context, where string, arg interface{}) (*models.Fundraiser, error) {
	query := `SELECT ` + fundraiserColumns + ` FROM fundraisers WHERE ` + where

	f, err := scanFundraiser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrFundraiserNotFound
		}
		return nil, fmt.Errorf("failed to get fundraiser: %w", err)
	}

	variations, err := r.variations(ctx, f.ID)
	if err != nil {
		return nil, err
	}
	f.Variations = variations
	return f, nil
}

func (r *FundraiserRepository) variations(ctx context.Context, fundraiserID int) ([]models.FundraiserVariation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, fundraiser_id, name, price, active
		FROM fundraiser_variations
		WHERE fundraiser_id = $1
		ORDER BY id`, fundraiserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get fundraiser variations: %w", err)
	}
	defer rows.Close()

	variations := []models.FundraiserVariation{}
	for rows.Next() {
		var v models.FundraiserVariation
		if err := rows.Scan(&v.ID, &v.FundraiserID, &v.Name, &v.Price, &v.Active); err != nil {
			return nil, fmt.Errorf("failed to scan fundraiser variation: %w", err)
		}
		variations = append(variations, v)
	}
	return variations, rows.Err()
}

// List returns fundraisers newest first, optionally only the active ones.
// Variations are not loaded.
func (r *FundraiserRepository) List(ctx context.Context, activeOnly bool) ([]*models.Fundraiser, error) {
	query := `SELECT ` + fundraiserColumns + ` FROM fundraisers`
	if activeOnly {
		query += ` WHERE active = TRUE`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list fundraisers: %w", err)
	}
	defer rows.Close()

	var fundraisers []*models.Fundraiser
	for rows.Next() {
		f, err := scanFundraiser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fundraiser: %w", err)
		}
		fundraisers = append(fundraisers, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fundraisers: %w", err)
	}
	return fundraisers, nil
}

// Update applies the non-nil fields of req.
func (r *FundraiserRepository) Update(ctx context.Context, id int, req *models.FundraiserUpdateRequest) (*models.Fundraiser, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var sets []string
	var args []interface{}
	argIndex := 1
	add := func(column string, value interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argIndex))
		args = append(args, value)
		argIndex++
	}

	if req.Title != nil {
		add("title", strings.TrimSpace(*req.Title))
	}
	if req.Description != nil {
		add("description", *req.Description)
	}
	if req.ImageURL != nil {
		add("image_url", *req.ImageURL)
	}
	if req.Policy != nil {
		add("donation_type", req.Policy.Type)
		add("donation_percentage", req.Policy.Percentage)
		add("donation_amount", req.Policy.Amount)
	}
	if req.BasePrice != nil {
		add("base_price", *req.BasePrice)
	}
	if req.Active != nil {
		add("active", *req.Active)
	}
	if req.ShippingEnabled != nil {
		add("shipping_enabled", *req.ShippingEnabled)
	}
	if req.PickupEnabled != nil {
		add("pickup_enabled", *req.PickupEnabled)
	}
	if req.EndsAt != nil {
		add("ends_at", *req.EndsAt)
	}
	add("updated_at", time.Now())

	query := fmt.Sprintf(`UPDATE fundraisers SET %s WHERE id = $%d`, strings.Join(sets, ", "), argIndex)
	args = append(args, id)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update fundraiser: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, models.ErrFundraiserNotFound
	}

	return r.GetByID(ctx, id)
}

// SetActive opens or closes a fundraiser.
func (r *FundraiserRepository) SetActive(ctx context.Context, id int, active bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE fundraisers SET active = $1, updated_at = $2 WHERE id = $3`,
		active, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update fundraiser status: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return models.ErrFundraiserNotFound
	}
	return nil
}
