package checkout

import (
	"context"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
)

// StripeSessions is the live payment provider backed by the Stripe API.
type StripeSessions struct {
	client session.Client
}

func NewStripeSessions(secretKey string) *StripeSessions {
	return &StripeSessions{
		client: session.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey},
	}
}

func (s *StripeSessions) CreateSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	params.Context = ctx
	return s.client.New(params)
}

// GetSession fetches a session with its line items and their products, which
// carry the per-item metadata written at composition time. The expanded list
// holds only the first page; see ListLineItems.
func (s *StripeSessions) GetSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("line_items.data.price.product")
	return s.client.Get(id, params)
}

// ListLineItems pages through every line item of a session, products
// expanded.
func (s *StripeSessions) ListLineItems(ctx context.Context, id string) ([]*stripe.LineItem, error) {
	params := &stripe.CheckoutSessionListLineItemsParams{Session: stripe.String(id)}
	params.Context = ctx
	params.Limit = stripe.Int64(100)
	params.AddExpand("data.price.product")

	var lines []*stripe.LineItem
	iter := s.client.ListLineItems(params)
	for iter.Next() {
		lines = append(lines, iter.LineItem())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
