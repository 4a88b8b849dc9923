package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"medallion-storefront/internal/models"
)

// OrderRepository handles order data operations
type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// OrderSearchFilters represents filters for order search
type OrderSearchFilters struct {
	Status       models.OrderStatus
	FundraiserID int
	Email        string
	DateFrom     *time.Time
	DateTo       *time.Time
	Limit        int
	Offset       int
	SortBy       string // "created_at", "total", "status"
	SortDesc     bool
}

const orderColumns = `id, order_number, stripe_session_id, payment_intent_id, customer_email, customer_name,
	status, delivery_method, fundraiser_id, subtotal, shipping_cost, tax_amount, total, currency,
	shipping_address, metadata, created_at, updated_at`

func scanOrder(row rowScanner) (*models.Order, error) {
	o := &models.Order{}
	var fundraiserID sql.NullInt64
	var address, metadata []byte

	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.StripeSessionID,
		&o.PaymentIntentID,
		&o.CustomerEmail,
		&o.CustomerName,
		&o.Status,
		&o.DeliveryMethod,
		&fundraiserID,
		&o.Subtotal,
		&o.ShippingCost,
		&o.TaxAmount,
		&o.Total,
		&o.Currency,
		&address,
		&metadata,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	o.FundraiserID = intPtr(fundraiserID)
	if len(address) > 0 {
		o.ShippingAddress = &models.Address{}
		if err := json.Unmarshal(address, o.ShippingAddress); err != nil {
			return nil, fmt.Errorf("failed to decode shipping address: %w", err)
		}
	}
	if o.Metadata, err = unmarshalMetadata(metadata); err != nil {
		return nil, err
	}
	return o, nil
}

// Create records an order, its items and its donation ledger entries in one
// transaction. A second order for the same payment session returns
// ErrDuplicateEntry and writes nothing.
func (r *OrderRepository) Create(ctx context.Context, req *models.OrderCreateRequest, donations []models.DonationEntry) (*models.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	metadata, err := marshalMetadata(req.Metadata)
	if err != nil {
		return nil, err
	}
	var address interface{}
	if req.ShippingAddress != nil {
		data, err := json.Marshal(req.ShippingAddress)
		if err != nil {
			return nil, fmt.Errorf("failed to encode shipping address: %w", err)
		}
		address = string(data)
	}
	deliveryMethod := req.DeliveryMethod
	if deliveryMethod == "" {
		deliveryMethod = models.DeliveryShipping
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Ensure order number is unique (retry if collision)
	orderNumber := models.GenerateOrderNumber()
	for i := 0; i < 5; i++ {
		var exists bool
		err = tx.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM orders WHERE order_number = $1)", orderNumber).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("failed to check order number uniqueness: %w", err)
		}
		if !exists {
			break
		}
		orderNumber = models.GenerateOrderNumber()
	}

	query := `
		INSERT INTO orders (order_number, stripe_session_id, payment_intent_id, customer_email, customer_name,
			status, delivery_method, fundraiser_id, subtotal, shipping_cost, tax_amount, total, currency,
			shipping_address, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (stripe_session_id) DO NOTHING
		RETURNING ` + orderColumns

	currency := req.Currency
	if currency == "" {
		currency = "usd"
	}

	order, err := scanOrder(tx.QueryRowContext(ctx, query,
		orderNumber,
		req.StripeSessionID,
		req.PaymentIntentID,
		strings.TrimSpace(req.CustomerEmail),
		req.CustomerName,
		models.InitialOrderStatus,
		deliveryMethod,
		nullableInt(req.FundraiserID),
		req.Subtotal,
		req.ShippingCost,
		req.TaxAmount,
		req.Total,
		strings.ToLower(currency),
		address,
		string(metadata),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order for session %s: %w", req.StripeSessionID, models.ErrDuplicateEntry)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	for _, item := range req.Items {
		itemMeta, err := marshalMetadata(item.Metadata)
		if err != nil {
			return nil, err
		}
		item.OrderID = order.ID
		err = tx.QueryRowContext(ctx, `
			INSERT INTO order_items (order_id, product_name, unit_price, quantity, image_url, chain_color,
				team_name, is_fundraiser, variation_id, metadata)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id`,
			order.ID, item.ProductName, item.UnitPrice, item.Quantity, item.ImageURL, item.ChainColor,
			item.TeamName, item.IsFundraiser, nullableInt(item.VariationID), string(itemMeta),
		).Scan(&item.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to create order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}

	for _, entry := range donations {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO donation_entries (fundraiser_id, order_id, variation_id, policy_type, unit_price, quantity, amount)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			entry.FundraiserID, order.ID, nullableInt(entry.VariationID), entry.PolicyType,
			entry.UnitPrice, entry.Quantity, entry.Amount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to record donation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit order creation: %w", err)
	}
	return order, nil
}

// GetByID retrieves an order with its items
func (r *OrderRepository) GetByID(ctx context.Context, id int) (*models.Order, error) {
	return r.getOne(ctx, "id = $1", id)
}

// GetByStripeSessionID retrieves the order recorded for a payment session
func (r *OrderRepository) GetByStripeSessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	return r.getOne(ctx, "stripe_session_id = $1", sessionID)
}

// GetByOrderNumber retrieves an order by its customer-facing number
func (r *OrderRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	return r.getOne(ctx, "order_number = $1", orderNumber)
}

func (r *OrderRepository) getOne(ctx context.Context, where string, arg interface{}) (*models.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	items, err := r.items(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func (r *OrderRepository) items(ctx context.Context, orderID int) ([]models.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, product_name, unit_price, quantity, image_url, chain_color,
			team_name, is_fundraiser, variation_id, metadata
		FROM order_items
		WHERE order_id = $1
		ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}
	defer rows.Close()

	items := []models.OrderItem{}
	for rows.Next() {
		var item models.OrderItem
		var variationID sql.NullInt64
		var metadata []byte
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductName,
			&item.UnitPrice,
			&item.Quantity,
			&item.ImageURL,
			&item.ChainColor,
			&item.TeamName,
			&item.IsFundraiser,
			&variationID,
			&metadata,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		item.VariationID = intPtr(variationID)
		if item.Metadata, err = unmarshalMetadata(metadata); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// UpdateStatus moves an order to status, but only if it is still in the
// expected state. A concurrent change surfaces as ErrIllegalTransition.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id int, from, to models.OrderStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		to, time.Now(), id, from)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("order %d is no longer %s: %w", id, from, models.ErrIllegalTransition)
	}
	return nil
}

// Search returns a page of orders and the total matching count. Items are
// not loaded.
func (r *OrderRepository) Search(ctx context.Context, filters OrderSearchFilters) ([]*models.Order, int, error) {
	var conditions []string
	var args []interface{}
	argIndex := 1

	if filters.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, filters.Status)
		argIndex++
	}

	if filters.FundraiserID > 0 {
		conditions = append(conditions, fmt.Sprintf("fundraiser_id = $%d", argIndex))
		args = append(args, filters.FundraiserID)
		argIndex++
	}

	if filters.Email != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(customer_email) = LOWER($%d)", argIndex))
		args = append(args, filters.Email)
		argIndex++
	}

	if filters.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argIndex))
		args = append(args, *filters.DateFrom)
		argIndex++
	}

	if filters.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argIndex))
		args = append(args, *filters.DateTo)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	orderBy := "ORDER BY created_at DESC, id DESC"
	if filters.SortBy != "" {
		direction := "ASC"
		if filters.SortDesc {
			direction = "DESC"
		}

		switch filters.SortBy {
		case "created_at", "total", "status":
			orderBy = fmt.Sprintf("ORDER BY %s %s, id %s", filters.SortBy, direction, direction)
		}
	}

	if filters.Limit <= 0 {
		filters.Limit = 20
	}
	if filters.Offset < 0 {
		filters.Offset = 0
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM orders %s", whereClause)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to get order count: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM orders %s %s LIMIT $%d OFFSET $%d`,
		orderColumns, whereClause, orderBy, argIndex, argIndex+1)
	args = append(args, filters.Limit, filters.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, total, nil
}

// SalesSummary aggregates non-cancelled orders created in [from, to).
type SalesSummary struct {
	OrderCount int                        `json:"order_count"`
	Revenue    decimal.Decimal            `json:"revenue"`
	ByStatus   map[models.OrderStatus]int `json:"by_status"`
}

func (r *OrderRepository) SalesSummary(ctx context.Context, from, to time.Time) (*SalesSummary, error) {
	summary := &SalesSummary{ByStatus: map[models.OrderStatus]int{}}

	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total), 0)
		FROM orders
		WHERE created_at >= $1 AND created_at < $2 AND status <> 'cancelled'`,
		from, to,
	).Scan(&summary.OrderCount, &summary.Revenue)
	if err != nil {
		return nil, fmt.Errorf("failed to get sales summary: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*)
		FROM orders
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY status`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get orders by status: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status models.OrderStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		summary.ByStatus[status] = count
	}
	return summary, rows.Err()
}

// DailySales is revenue and order count for one calendar day (UTC).
type DailySales struct {
	Day     time.Time       `json:"day"`
	Orders  int             `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

func (r *OrderRepository) DailySales(ctx context.Context, from, to time.Time) ([]DailySales, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT date_trunc('day', created_at AT TIME ZONE 'UTC') AS day, COUNT(*), COALESCE(SUM(total), 0)
		FROM orders
		WHERE created_at >= $1 AND created_at < $2 AND status <> 'cancelled'
		GROUP BY day
		ORDER BY day`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily sales: %w", err)
	}
	defer rows.Close()

	var days []DailySales
	for rows.Next() {
		var d DailySales
		if err := rows.Scan(&d.Day, &d.Orders, &d.Revenue); err != nil {
			return nil, fmt.Errorf("failed to scan daily sales: %w", err)
		}
		days = append(days, d)
	}
	return days, rows.Err()
}
