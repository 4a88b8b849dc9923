package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v79"

	"medallion-storefront/internal/checkout"
	"medallion-storefront/internal/models"
	"medallion-storefront/internal/pricing"
	"medallion-storefront/internal/repositories"
)

// ErrPaymentPending is returned for sessions whose payment has not cleared;
// they are recorded when the async payment succeeds.
var ErrPaymentPending = errors.New("checkout payment not yet completed")

// OrderService records completed checkouts and moves orders through
// fulfilment.
type OrderService struct {
	orders      OrderRepository
	fundraisers FundraiserRepository
	sessions    SessionFetcher
	email       EmailService
	log         zerolog.Logger
}

func NewOrderService(orders OrderRepository, fundraisers FundraiserRepository, sessions SessionFetcher, email EmailService, log zerolog.Logger) *OrderService {
	return &OrderService{
		orders:      orders,
		fundraisers: fundraisers,
		sessions:    sessions,
		email:       email,
		log:         log,
	}
}

// RecordCheckout stores the order for a completed checkout session. The
// session is re-fetched with its line items; the webhook payload does not
// carry them. Replays of the same session return the existing order.
func (s *OrderService) RecordCheckout(ctx context.Context, sessionID string) (*models.Order, bool, error) {
	if existing, err := s.orders.GetByStripeSessionID(ctx, sessionID); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, false, fmt.Errorf("failed to look up order: %w", err)
	}

	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to fetch checkout session: %w", err)
	}
	if session.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
		return nil, false, ErrPaymentPending
	}
	if session.LineItems == nil || session.LineItems.HasMore {
		lines, err := s.sessions.ListLineItems(ctx, sessionID)
		if err != nil {
			return nil, false, fmt.Errorf("failed to list checkout line items: %w", err)
		}
		session.LineItems = &stripe.LineItemList{Data: lines}
	}

	req := orderFromSession(session)
	donations, err := s.donationsFor(ctx, req.Items)
	if err != nil {
		return nil, false, err
	}

	order, err := s.orders.Create(ctx, req, donations)
	if errors.Is(err, models.ErrDuplicateEntry) {
		// lost a race with a concurrent delivery of the same event
		existing, gerr := s.orders.GetByStripeSessionID(ctx, sessionID)
		if gerr != nil {
			return nil, false, fmt.Errorf("failed to load existing order: %w", gerr)
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to record order: %w", err)
	}

	s.log.Info().
		Str("order_number", order.OrderNumber).
		Str("session_id", sessionID).
		Str("total", order.Total.StringFixed(2)).
		Int("donations", len(donations)).
		Msg("order recorded")

	if err := s.email.SendOrderConfirmation(ctx, order); err != nil {
		s.log.Warn().Err(err).Str("order_number", order.OrderNumber).Msg("failed to send order confirmation")
	}

	return order, true, nil
}

// donationsFor computes the ledger entries for the fundraiser items of an
// order with the fundraiser's current donation policy.
func (s *OrderService) donationsFor(ctx context.Context, items []models.OrderItem) ([]models.DonationEntry, error) {
	var entries []models.DonationEntry
	policies := make(map[int]models.DonationPolicy)

	for _, item := range items {
		if !item.IsFundraiser {
			continue
		}
		fundraiserID, err := strconv.Atoi(item.Metadata[checkout.MetaFundraiserID])
		if err != nil || fundraiserID == 0 {
			s.log.Warn().Str("product", item.ProductName).Msg("fundraiser item without fundraiser id, no donation recorded")
			continue
		}

		policy, ok := policies[fundraiserID]
		if !ok {
			fundraiser, err := s.fundraisers.GetByID(ctx, fundraiserID)
			if err != nil {
				return nil, fmt.Errorf("failed to load fundraiser %d: %w", fundraiserID, err)
			}
			policy = fundraiser.Policy
			policies[fundraiserID] = policy
		}

		entries = append(entries, models.DonationEntry{
			FundraiserID: fundraiserID,
			VariationID:  item.VariationID,
			PolicyType:   policy.Type,
			UnitPrice:    item.UnitPrice,
			Quantity:     item.Quantity,
			Amount:       pricing.ComputeDonation(policy, item.UnitPrice, item.Quantity),
		})
	}

	return entries, nil
}

// orderFromSession snapshots a paid session. Fee lines added by the composer
// are folded back into shipping and tax.
func orderFromSession(session *stripe.CheckoutSession) *models.OrderCreateRequest {
	req := &models.OrderCreateRequest{
		StripeSessionID: session.ID,
		Currency:        string(session.Currency),
		DeliveryMethod:  models.DeliveryMethod(session.Metadata[checkout.MetaDeliveryMethod]),
		Metadata:        session.Metadata,
		Total:           pricing.FromMinorUnits(session.AmountTotal),
	}
	if session.PaymentIntent != nil {
		req.PaymentIntentID = session.PaymentIntent.ID
	}
	if session.CustomerDetails != nil {
		req.CustomerEmail = session.CustomerDetails.Email
		req.CustomerName = session.CustomerDetails.Name
	}
	if req.CustomerEmail == "" {
		req.CustomerEmail = session.CustomerEmail
	}
	if id, err := strconv.Atoi(session.Metadata[checkout.MetaFundraiserID]); err == nil && id > 0 {
		req.FundraiserID = &id
	}
	if session.ShippingDetails != nil && session.ShippingDetails.Address != nil {
		addr := session.ShippingDetails.Address
		req.ShippingAddress = &models.Address{
			Name:       session.ShippingDetails.Name,
			Line1:      addr.Line1,
			Line2:      addr.Line2,
			City:       addr.City,
			State:      addr.State,
			PostalCode: addr.PostalCode,
			Country:    addr.Country,
		}
	}

	subtotal, shipping, tax := decimal.Zero, decimal.Zero, decimal.Zero
	if session.TotalDetails != nil {
		shipping = pricing.FromMinorUnits(session.TotalDetails.AmountShipping)
		tax = pricing.FromMinorUnits(session.TotalDetails.AmountTax)
	}

	if session.LineItems != nil {
		for _, line := range session.LineItems.Data {
			amount := pricing.FromMinorUnits(line.AmountSubtotal)
			var product *stripe.Product
			if line.Price != nil {
				product = line.Price.Product
			}
			meta := map[string]string{}
			if product != nil && product.Metadata != nil {
				meta = product.Metadata
			}

			switch meta[checkout.MetaLineKind] {
			case checkout.LineKindShipping:
				shipping = shipping.Add(amount)
				continue
			case checkout.LineKindTax:
				tax = tax.Add(amount)
				continue
			}

			subtotal = subtotal.Add(amount)
			req.Items = append(req.Items, orderItemFromLine(line, product, meta))
		}
	}

	req.Subtotal = subtotal
	req.ShippingCost = shipping
	req.TaxAmount = tax
	return req
}

func orderItemFromLine(line *stripe.LineItem, product *stripe.Product, meta map[string]string) models.OrderItem {
	item := models.OrderItem{
		ProductName:  line.Description,
		Quantity:     int(line.Quantity),
		ChainColor:   meta[checkout.MetaChainColor],
		TeamName:     meta[checkout.MetaTeamName],
		ImageURL:     meta[checkout.MetaImagePath],
		IsFundraiser: meta[checkout.MetaIsFundraiser] == "true",
		Metadata:     map[string]string{},
	}
	if line.Price != nil {
		item.UnitPrice = pricing.FromMinorUnits(line.Price.UnitAmount)
	}
	if product != nil {
		if product.Name != "" {
			item.ProductName = product.Name
		}
		if item.ImageURL == "" && len(product.Images) > 0 {
			item.ImageURL = product.Images[0]
		}
	}
	if id, err := strconv.Atoi(meta[checkout.MetaVariationID]); err == nil && id > 0 {
		item.VariationID = &id
	}
	for k, v := range meta {
		if k == checkout.MetaItemID || k == checkout.MetaFundraiserID || k == checkout.MetaAgeDivision ||
			k == checkout.MetaDeliveryMethod || strings.HasPrefix(k, checkout.MetaCustomPrefix) {
			item.Metadata[k] = v
		}
	}
	return item
}

// UpdateStatus moves an order along its lifecycle.
func (s *OrderService) UpdateStatus(ctx context.Context, id int, req *models.OrderStatusUpdateRequest) (*models.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.CanTransitionTo(req.Status) {
		return nil, fmt.Errorf("%s to %s: %w", order.Status, req.Status, models.ErrIllegalTransition)
	}

	if err := s.orders.UpdateStatus(ctx, id, order.Status, req.Status); err != nil {
		return nil, err
	}

	s.log.Info().Str("order_number", order.OrderNumber).
		Str("from", string(order.Status)).Str("to", string(req.Status)).
		Msg("order status updated")

	order.Status = req.Status
	return order, nil
}

func (s *OrderService) Get(ctx context.Context, id int) (*models.Order, error) {
	return s.orders.GetByID(ctx, id)
}

func (s *OrderService) GetByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	if !models.ValidOrderNumber(orderNumber) {
		return nil, models.ErrOrderNotFound
	}
	return s.orders.GetByOrderNumber(ctx, orderNumber)
}

func (s *OrderService) Search(ctx context.Context, filters repositories.OrderSearchFilters) ([]*models.Order, int, error) {
	return s.orders.Search(ctx, filters)
}
