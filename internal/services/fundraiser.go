package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"medallion-storefront/internal/checkout"
	"medallion-storefront/internal/models"
	"medallion-storefront/internal/pricing"
)

// FundraiserWithTotals is a fundraiser as listed in the back office.
type FundraiserWithTotals struct {
	*models.Fundraiser
	TotalDonations decimal.Decimal `json:"total_donations"`
}

// DonationPreview is what a prospective fundraiser purchase would donate.
type DonationPreview struct {
	UnitPrice decimal.Decimal     `json:"unit_price"`
	Quantity  int                 `json:"quantity"`
	Subtotal  decimal.Decimal     `json:"subtotal"`
	Donation  decimal.Decimal     `json:"donation"`
	Policy    models.DonationType `json:"donation_type"`
}

// FundraiserCheckoutRequest is the public payload for buying from a
// fundraiser page.
type FundraiserCheckoutRequest struct {
	VariationID    int                   `json:"variation_id"`
	Quantity       int                   `json:"quantity"`
	DeliveryMethod models.DeliveryMethod `json:"delivery_method"`
	TeamName       string                `json:"team_name"`
	AgeDivision    string                `json:"age_division"`
	ChainColor     string                `json:"chain_color"`
	CustomerEmail  string                `json:"customer_email"`
}

// FundraiserService runs fundraiser campaigns: admin edits, public pages,
// donation previews and fundraiser checkouts.
type FundraiserService struct {
	fundraisers FundraiserRepository
	donations   DonationRepository
	settings    *SettingsService
	calc        *pricing.Calculator
	images      *ImageService
	notifier    Notifier
	log         zerolog.Logger
	now         func() time.Time
}

func NewFundraiserService(
	fundraisers FundraiserRepository,
	donations DonationRepository,
	settings *SettingsService,
	calc *pricing.Calculator,
	images *ImageService,
	notifier Notifier,
	log zerolog.Logger,
) *FundraiserService {
	return &FundraiserService{
		fundraisers: fundraisers,
		donations:   donations,
		settings:    settings,
		calc:        calc,
		images:      images,
		notifier:    notifier,
		log:         log,
		now:         time.Now,
	}
}

func (s *FundraiserService) Create(ctx context.Context, req *models.FundraiserCreateRequest) (*models.Fundraiser, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	f, err := s.fundraisers.Create(ctx, req)
	if err != nil {
		return nil, err
	}

	s.log.Info().Int("fundraiser_id", f.ID).Str("slug", f.Slug).Msg("fundraiser created")
	s.publish(ctx, "created", f)
	return f, nil
}

func (s *FundraiserService) Update(ctx context.Context, id int, req *models.FundraiserUpdateRequest) (*models.Fundraiser, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	f, err := s.fundraisers.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "updated", f)
	return f, nil
}

func (s *FundraiserService) SetActive(ctx context.Context, id int, active bool) (*models.Fundraiser, error) {
	if err := s.fundraisers.SetActive(ctx, id, active); err != nil {
		return nil, err
	}

	f, err := s.fundraisers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.log.Info().Int("fundraiser_id", id).Bool("active", active).Msg("fundraiser activation changed")
	s.publish(ctx, "updated", f)
	return f, nil
}

// UploadImage stores a campaign image and returns its URL.
func (s *FundraiserService) UploadImage(ctx context.Context, r io.Reader) (string, error) {
	return s.images.Upload(ctx, "fundraisers", r)
}

func (s *FundraiserService) publish(ctx context.Context, action string, f *models.Fundraiser) {
	payload := map[string]interface{}{"action": action, "id": f.ID, "slug": f.Slug, "active": f.Active}
	if err := s.notifier.Publish(ctx, TopicFundraisers, payload); err != nil {
		s.log.Warn().Err(err).Int("fundraiser_id", f.ID).Msg("failed to publish fundraiser change")
	}
}

// GetPublic returns an open fundraiser by slug. Closed fundraisers are
// reported as not found.
func (s *FundraiserService) GetPublic(ctx context.Context, slug string) (*models.Fundraiser, error) {
	f, err := s.fundraisers.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !f.Active {
		return nil, models.ErrFundraiserNotFound
	}
	return f, nil
}

func (s *FundraiserService) Get(ctx context.Context, id int) (*models.Fundraiser, error) {
	return s.fundraisers.GetByID(ctx, id)
}

func (s *FundraiserService) ListActive(ctx context.Context) ([]*models.Fundraiser, error) {
	return s.fundraisers.List(ctx, true)
}

// ListWithTotals lists every fundraiser with its donation ledger total.
func (s *FundraiserService) ListWithTotals(ctx context.Context) ([]FundraiserWithTotals, error) {
	fundraisers, err := s.fundraisers.List(ctx, false)
	if err != nil {
		return nil, err
	}

	out := make([]FundraiserWithTotals, 0, len(fundraisers))
	for _, f := range fundraisers {
		total, err := s.donations.TotalForFundraiser(ctx, f.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to total donations for fundraiser %d: %w", f.ID, err)
		}
		out = append(out, FundraiserWithTotals{Fundraiser: f, TotalDonations: total})
	}
	return out, nil
}

// PreviewDonation computes the donation a purchase would generate, with the
// same function the order ledger uses.
func (s *FundraiserService) PreviewDonation(ctx context.Context, slug string, variationID, quantity int) (*DonationPreview, error) {
	if quantity < 1 {
		return nil, quantityError()
	}

	f, err := s.GetPublic(ctx, slug)
	if err != nil {
		return nil, err
	}
	price, err := f.PriceFor(variationID)
	if err != nil {
		return nil, err
	}

	return &DonationPreview{
		UnitPrice: price,
		Quantity:  quantity,
		Subtotal:  price.Mul(decimal.NewFromInt(int64(quantity))),
		Donation:  pricing.ComputeDonation(f.Policy, price, quantity),
		Policy:    f.Policy.Type,
	}, nil
}

// PrepareCheckout turns a fundraiser purchase into a checkout request. The
// fundraiser must be open and offer the delivery method, and the store must
// not have switched that method off.
func (s *FundraiserService) PrepareCheckout(ctx context.Context, slug string, req *FundraiserCheckoutRequest) (*checkout.Request, error) {
	if req.Quantity < 1 {
		return nil, quantityError()
	}
	if !req.DeliveryMethod.Valid() {
		v := models.NewValidationError()
		v.Add("delivery_method", "delivery method must be shipping or pickup")
		return nil, v
	}

	f, err := s.fundraisers.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !f.IsOpen(s.now()) {
		return nil, models.ErrFundraiserClosed
	}
	if !f.AllowsDelivery(req.DeliveryMethod) || !s.settings.Allows(ctx, req.DeliveryMethod) {
		v := models.NewValidationError()
		v.Add("delivery_method", fmt.Sprintf("%s is not available for this fundraiser", req.DeliveryMethod))
		return nil, v
	}

	price, err := f.PriceFor(req.VariationID)
	if err != nil {
		return nil, err
	}

	name := f.Title
	if variation, ok := f.Variation(req.VariationID); ok {
		name = fmt.Sprintf("%s (%s)", f.Title, variation.Name)
	}
	teamName := strings.TrimSpace(req.TeamName)
	if teamName == "" {
		teamName = f.TeamName
	}

	item := models.NewCartLineItem(name, price, req.Quantity)
	item.IsFundraiser = true
	item.FundraiserID = f.ID
	item.VariationID = req.VariationID
	item.DeliveryMethod = req.DeliveryMethod
	item.TeamName = teamName
	item.AgeDivision = strings.TrimSpace(req.AgeDivision)
	item.ChainColor = strings.TrimSpace(req.ChainColor)
	item.ImageReference = f.ImageURL

	shipping := s.calc.ShippingFor(pricing.FlowFundraiser, req.DeliveryMethod)
	policy := f.Policy

	meta := map[string]string{checkout.MetaTeamName: teamName}
	if item.AgeDivision != "" {
		meta[checkout.MetaAgeDivision] = item.AgeDivision
	}

	return &checkout.Request{
		Flow:           pricing.FlowFundraiser,
		Items:          []models.CartLineItem{item},
		DeliveryMethod: req.DeliveryMethod,
		Policy:         &policy,
		FundraiserID:   f.ID,
		VariationID:    req.VariationID,
		CustomerEmail:  strings.TrimSpace(req.CustomerEmail),
		ShippingCost:   &shipping,
		Metadata:       meta,
	}, nil
}

func quantityError() error {
	v := models.NewValidationError()
	v.Add("quantity", "quantity must be at least 1")
	return v
}
