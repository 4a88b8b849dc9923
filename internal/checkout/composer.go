// Package checkout turns a cart into a hosted payment session and tracks the
// lifecycle of one submission.
package checkout

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v79"

	"medallion-storefront/internal/models"
	"medallion-storefront/internal/pricing"
)

// Metadata keys shared with the webhook that reads them back.
const (
	MetaOrderStatus    = "order_status"
	MetaFlow           = "flow"
	MetaDeliveryMethod = "delivery_method"
	MetaFundraiserID   = "fundraiser_id"
	MetaVariationID    = "variation_id"

	MetaItemID       = "item_id"
	MetaChainColor   = "chain_color"
	MetaTeamName     = "team_name"
	MetaImagePath    = "image_path"
	MetaAgeDivision  = "age_division"
	MetaIsFundraiser = "is_fundraiser"
	MetaLineKind     = "line_kind"
	MetaCustomPrefix = "custom_"

	LineKindShipping = "shipping"
	LineKindTax      = "tax"
)

// provider limits on metadata
const (
	maxMetadataKeys  = 50
	maxMetadataKey   = 40
	maxMetadataValue = 500
)

var (
	itemMetaKeys = []string{
		MetaItemID, MetaIsFundraiser, MetaFundraiserID, MetaVariationID,
		MetaTeamName, MetaChainColor, MetaAgeDivision, MetaDeliveryMethod, MetaImagePath,
	}
	sessionMetaKeys = []string{MetaOrderStatus, MetaFlow, MetaDeliveryMethod, MetaFundraiserID, MetaVariationID}
)

// SessionAPI is the slice of the payment provider the composer talks to.
type SessionAPI interface {
	CreateSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// ImageResolver returns the durable URL for a line item's image. For inline
// images it starts the upload in the background and returns the URL the
// object will have once uploaded; it must not block on the upload.
type ImageResolver interface {
	Resolve(ctx context.Context, item models.CartLineItem) string
}

// Options are the provider-facing settings.
type Options struct {
	Currency         string
	SuccessURL       string
	CancelURL        string
	AllowedCountries []string
}

// Result is a successfully opened checkout session.
type Result struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

type Composer struct {
	sessions SessionAPI
	calc     *pricing.Calculator
	images   ImageResolver
	opts     Options
	log      zerolog.Logger
}

func NewComposer(sessions SessionAPI, calc *pricing.Calculator, images ImageResolver, opts Options, log zerolog.Logger) *Composer {
	if opts.Currency == "" {
		opts.Currency = "usd"
	}
	return &Composer{sessions: sessions, calc: calc, images: images, opts: opts, log: log}
}

// Compose builds the provider request for req. It performs no I/O apart from
// handing inline images to the resolver.
func (c *Composer) Compose(ctx context.Context, req *Request) (*stripe.CheckoutSessionParams, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	flow := req.Flow
	if flow == "" {
		flow = pricing.FlowCart
	}
	method := req.DeliveryMethod
	if method == "" {
		method = models.DeliveryShipping
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(c.opts.SuccessURL),
		CancelURL:  stripe.String(c.opts.CancelURL),
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(strings.TrimSpace(req.CustomerEmail))
	}

	for _, item := range req.Items {
		params.LineItems = append(params.LineItems, c.lineItem(ctx, item))
	}

	shipping := c.calc.ShippingFor(flow, method)
	if req.ShippingCost != nil {
		shipping = *req.ShippingCost
	}

	if req.collectsShipping() {
		params.ShippingAddressCollection = &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(c.opts.AllowedCountries),
		}
		params.ShippingOptions = []*stripe.CheckoutSessionShippingOptionParams{
			c.shippingOption(shipping, method),
		}
	} else if shipping.IsPositive() {
		params.LineItems = append(params.LineItems, c.feeLine("Shipping", LineKindShipping, shipping))
	}

	// The direct cart charges the tax it displayed; every other flow lets
	// the provider compute tax.
	if flow == pricing.FlowCart {
		totals := c.calc.ComputeTotalsFor(flow, req.Items, method)
		if totals.Tax.IsPositive() {
			params.LineItems = append(params.LineItems, c.feeLine("Sales tax", LineKindTax, totals.Tax))
		}
	} else {
		params.AutomaticTax = &stripe.CheckoutSessionAutomaticTaxParams{Enabled: stripe.Bool(true)}
	}

	for k, v := range c.metadata(req, flow, method) {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	return params, nil
}

// Submit composes req, opens the session and returns its hosted URL. Failures
// are returned once; nothing is retried.
func (c *Composer) Submit(ctx context.Context, req *Request) (*Result, error) {
	params, err := c.Compose(ctx, req)
	if err != nil {
		return nil, err
	}

	session, err := c.sessions.CreateSession(ctx, params)
	if err != nil {
		c.log.Warn().Err(err).Str("flow", string(req.Flow)).Msg("payment provider rejected checkout session")
		return nil, newCompositionError(err)
	}
	if session == nil || session.URL == "" {
		c.log.Warn().Str("flow", string(req.Flow)).Msg("payment provider returned no checkout url")
		return nil, &CompositionError{Message: "payment provider returned no checkout URL"}
	}

	c.log.Info().
		Str("session_id", session.ID).
		Str("flow", string(req.Flow)).
		Int("items", len(req.Items)).
		Msg("checkout session created")

	return &Result{SessionID: session.ID, URL: session.URL}, nil
}

func (c *Composer) lineItem(ctx context.Context, item models.CartLineItem) *stripe.CheckoutSessionLineItemParams {
	product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
		Name: stripe.String(item.ProductName),
	}

	imageURL := ""
	switch {
	case item.HasRemoteImage():
		imageURL = item.ImageReference
	case item.HasInlineImage() && c.images != nil:
		imageURL = c.images.Resolve(ctx, item)
	}
	if item.HasRemoteImage() {
		product.Images = stripe.StringSlice([]string{imageURL})
	}

	meta := map[string]string{MetaItemID: item.ID}
	setIf(meta, MetaChainColor, item.ChainColor)
	setIf(meta, MetaTeamName, item.TeamName)
	setIf(meta, MetaImagePath, imageURL)
	setIf(meta, MetaAgeDivision, item.AgeDivision)
	setIf(meta, MetaDeliveryMethod, string(item.DeliveryMethod))
	if item.IsFundraiser {
		meta[MetaIsFundraiser] = "true"
		meta[MetaFundraiserID] = strconv.Itoa(item.FundraiserID)
		if item.VariationID != 0 {
			meta[MetaVariationID] = strconv.Itoa(item.VariationID)
		}
	}
	for k, v := range item.Customizations {
		setIf(meta, MetaCustomPrefix+k, v)
	}
	product.Metadata = clampMetadata(meta, itemMetaKeys...)

	return &stripe.CheckoutSessionLineItemParams{
		PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:    stripe.String(c.opts.Currency),
			ProductData: product,
			UnitAmount:  stripe.Int64(pricing.ToMinorUnits(item.Price)),
		},
		Quantity: stripe.Int64(int64(item.Quantity)),
	}
}

func (c *Composer) feeLine(name, kind string, amount decimal.Decimal) *stripe.CheckoutSessionLineItemParams {
	return &stripe.CheckoutSessionLineItemParams{
		PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency: stripe.String(c.opts.Currency),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name:     stripe.String(name),
				Metadata: map[string]string{MetaLineKind: kind},
			},
			UnitAmount: stripe.Int64(pricing.ToMinorUnits(amount)),
		},
		Quantity: stripe.Int64(1),
	}
}

func (c *Composer) shippingOption(amount decimal.Decimal, method models.DeliveryMethod) *stripe.CheckoutSessionShippingOptionParams {
	name := "Standard shipping"
	if method == models.DeliveryPickup {
		name = "Local pickup"
	}
	return &stripe.CheckoutSessionShippingOptionParams{
		ShippingRateData: &stripe.CheckoutSessionShippingOptionShippingRateDataParams{
			Type:        stripe.String("fixed_amount"),
			DisplayName: stripe.String(name),
			FixedAmount: &stripe.CheckoutSessionShippingOptionShippingRateDataFixedAmountParams{
				Amount:   stripe.Int64(pricing.ToMinorUnits(amount)),
				Currency: stripe.String(c.opts.Currency),
			},
		},
	}
}

// metadata merges caller metadata with the order context. order_status is
// always "received" regardless of what the caller passed.
func (c *Composer) metadata(req *Request, flow pricing.Flow, method models.DeliveryMethod) map[string]string {
	meta := make(map[string]string, len(req.Metadata)+5)
	for k, v := range req.Metadata {
		meta[k] = v
	}

	meta[MetaFlow] = string(flow)
	meta[MetaDeliveryMethod] = string(method)
	if req.FundraiserID != 0 {
		meta[MetaFundraiserID] = strconv.Itoa(req.FundraiserID)
	}
	if req.VariationID != 0 {
		meta[MetaVariationID] = strconv.Itoa(req.VariationID)
	}
	meta[MetaOrderStatus] = string(models.InitialOrderStatus)

	return clampMetadata(meta, sessionMetaKeys...)
}

func setIf(m map[string]string, key, value string) {
	if value != "" {
		m[key] = value
	}
}

// clampMetadata drops keys and truncates values the provider would reject.
// When there are too many keys, the keep keys win and the rest are taken in
// sorted order.
func clampMetadata(m map[string]string, keep ...string) map[string]string {
	keys := make([]string, 0, len(m))
	seen := make(map[string]bool, len(keep))
	for _, k := range keep {
		if _, ok := m[k]; ok && !seen[k] {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	rest := make([]string, 0, len(m))
	for k := range m {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	keys = append(keys, rest...)

	out := make(map[string]string, len(m))
	for _, k := range keys {
		if len(out) == maxMetadataKeys {
			break
		}
		if len(k) > maxMetadataKey {
			continue
		}
		out[k] = truncateUTF8(m[k], maxMetadataValue)
	}
	return out
}

// truncateUTF8 cuts s to at most max bytes without splitting a rune.
func truncateUTF8(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
