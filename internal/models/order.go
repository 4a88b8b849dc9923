package models

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents the lifecycle state of an order
type OrderStatus string

const (
	OrderReceived       OrderStatus = "received"
	OrderProcessing     OrderStatus = "processing"
	OrderShipped        OrderStatus = "shipped"
	OrderReadyForPickup OrderStatus = "ready_for_pickup"
	OrderDelivered      OrderStatus = "delivered"
	OrderCancelled      OrderStatus = "cancelled"
)

// Every order starts as received; the value also travels in checkout metadata.
const InitialOrderStatus = OrderReceived

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderReceived:       {OrderProcessing, OrderCancelled},
	OrderProcessing:     {OrderShipped, OrderReadyForPickup, OrderCancelled},
	OrderShipped:        {OrderDelivered},
	OrderReadyForPickup: {OrderDelivered},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderReceived, OrderProcessing, OrderShipped, OrderReadyForPickup, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// Address is a postal address captured by the payment provider.
type Address struct {
	Name       string `json:"name,omitempty"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Order is the durable record of a completed checkout.
type Order struct {
	ID              int               `json:"id" db:"id"`
	OrderNumber     string            `json:"order_number" db:"order_number"`
	StripeSessionID string            `json:"stripe_session_id" db:"stripe_session_id"`
	PaymentIntentID string            `json:"payment_intent_id,omitempty" db:"payment_intent_id"`
	CustomerEmail   string            `json:"customer_email" db:"customer_email"`
	CustomerName    string            `json:"customer_name" db:"customer_name"`
	Status          OrderStatus       `json:"status" db:"status"`
	DeliveryMethod  DeliveryMethod    `json:"delivery_method" db:"delivery_method"`
	FundraiserID    *int              `json:"fundraiser_id,omitempty" db:"fundraiser_id"`
	Subtotal        decimal.Decimal   `json:"subtotal" db:"subtotal"`
	ShippingCost    decimal.Decimal   `json:"shipping_cost" db:"shipping_cost"`
	TaxAmount       decimal.Decimal   `json:"tax_amount" db:"tax_amount"`
	Total           decimal.Decimal   `json:"total" db:"total"`
	Currency        string            `json:"currency" db:"currency"`
	ShippingAddress *Address          `json:"shipping_address,omitempty" db:"shipping_address"`
	Metadata        map[string]string `json:"metadata,omitempty" db:"metadata"`
	Items           []OrderItem       `json:"items"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at" db:"updated_at"`
}

// OrderItem is a line of an order, snapshotted at checkout time.
type OrderItem struct {
	ID           int               `json:"id" db:"id"`
	OrderID      int               `json:"order_id" db:"order_id"`
	ProductName  string            `json:"product_name" db:"product_name"`
	UnitPrice    decimal.Decimal   `json:"unit_price" db:"unit_price"`
	Quantity     int               `json:"quantity" db:"quantity"`
	ImageURL     string            `json:"image_url,omitempty" db:"image_url"`
	ChainColor   string            `json:"chain_color,omitempty" db:"chain_color"`
	TeamName     string            `json:"team_name,omitempty" db:"team_name"`
	IsFundraiser bool              `json:"is_fundraiser" db:"is_fundraiser"`
	VariationID  *int              `json:"variation_id,omitempty" db:"variation_id"`
	Metadata     map[string]string `json:"metadata,omitempty" db:"metadata"`
}

// OrderCreateRequest represents the data needed to record an order
type OrderCreateRequest struct {
	StripeSessionID string
	PaymentIntentID string
	CustomerEmail   string
	CustomerName    string
	DeliveryMethod  DeliveryMethod
	FundraiserID    *int
	Subtotal        decimal.Decimal
	ShippingCost    decimal.Decimal
	TaxAmount       decimal.Decimal
	Total           decimal.Decimal
	Currency        string
	ShippingAddress *Address
	Metadata        map[string]string
	Items           []OrderItem
}

// OrderStatusUpdateRequest is the admin payload for moving an order along.
type OrderStatusUpdateRequest struct {
	Status OrderStatus `json:"status"`
}

var (
	// Order number format: MED-YYYYMMDD-XXXXXX (e.g., MED-20240101-123456)
	orderNumberRegex = regexp.MustCompile(`^MED-\d{8}-\d{6}$`)
	emailRegex       = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

func (req *OrderCreateRequest) Validate() error {
	v := NewValidationError()

	if req.StripeSessionID == "" {
		v.Add("stripe_session_id", "payment session id is required")
	}
	if req.CustomerEmail != "" && !emailRegex.MatchString(req.CustomerEmail) {
		v.Add("customer_email", "customer email format is invalid")
	}
	if req.DeliveryMethod != "" && !req.DeliveryMethod.Valid() {
		v.Add("delivery_method", "delivery method must be shipping or pickup")
	}
	if req.Total.IsNegative() || req.Subtotal.IsNegative() {
		v.Add("total", "order amounts cannot be negative")
	}
	if len(req.Items) == 0 {
		v.Add("items", "an order needs at least one item")
	}
	for _, item := range req.Items {
		if item.Quantity < 1 {
			v.Add("items", fmt.Sprintf("%s: quantity must be at least 1", item.ProductName))
		}
		if item.UnitPrice.IsNegative() {
			v.Add("items", fmt.Sprintf("%s: price cannot be negative", item.ProductName))
		}
	}

	return v.OrNil()
}

func (req *OrderStatusUpdateRequest) Validate() error {
	if !req.Status.Valid() {
		v := NewValidationError()
		v.Add("status", "invalid order status")
		return v
	}
	return nil
}

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool {
	return emailRegex.MatchString(strings.TrimSpace(s))
}

// ValidOrderNumber reports whether s has the order number format.
func ValidOrderNumber(s string) bool {
	return orderNumberRegex.MatchString(s)
}

// CanTransitionTo reports whether the order may move to next. Pickup orders
// become ready_for_pickup instead of shipped.
func (o *Order) CanTransitionTo(next OrderStatus) bool {
	if o.DeliveryMethod == DeliveryPickup && next == OrderShipped {
		return false
	}
	if o.DeliveryMethod != DeliveryPickup && next == OrderReadyForPickup {
		return false
	}
	for _, allowed := range orderTransitions[o.Status] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ItemCount returns the number of units across all items.
func (o *Order) ItemCount() int {
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}

// GenerateOrderNumber generates a unique order number
func GenerateOrderNumber() string {
	now := time.Now()
	dateStr := now.Format("20060102")

	randomNum, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return fmt.Sprintf("MED-%s-%06d", dateStr, now.UnixNano()%1000000)
	}

	return fmt.Sprintf("MED-%s-%06d", dateStr, randomNum.Int64())
}
