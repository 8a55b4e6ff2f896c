package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Order repository errors
var (
	ErrOrderNotFound = errors.New("order not found")
)

// OrderRepository defines the read interface for a customer's order history
type OrderRepository interface {
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]OrderWithItems, error)
	GetByID(ctx context.Context, id uuid.UUID) (*OrderWithItems, error)
}

// orderRepository implements OrderRepository using PostgreSQL
type orderRepository struct {
	db DB
}

// NewOrderRepository creates a new OrderRepository instance
func NewOrderRepository(db DB) OrderRepository {
	return &orderRepository{db: db}
}

// ListByUser returns the user's orders with items, newest first
func (r *orderRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]OrderWithItems, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := `
		SELECT id, user_id, status, total_cents, currency, placed_at
		FROM orders
		WHERE user_id = $1
		ORDER BY placed_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []OrderWithItems
	for rows.Next() {
		var o OrderWithItems
		if err := rows.Scan(&o.ID, &o.UserID, &o.Status, &o.TotalCents, &o.Currency, &o.PlacedAt); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		items, err := r.listItems(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}

	return orders, nil
}

// GetByID retrieves a single order with its items
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*OrderWithItems, error) {
	query := `
		SELECT id, user_id, status, total_cents, currency, placed_at
		FROM orders
		WHERE id = $1
	`

	o := &OrderWithItems{}
	err := r.db.QueryRow(ctx, query, id).Scan(&o.ID, &o.UserID, &o.Status, &o.TotalCents, &o.Currency, &o.PlacedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	items, err := r.listItems(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items

	return o, nil
}

func (r *orderRepository) listItems(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, product_name, unit_price_cents, quantity
		FROM order_items
		WHERE order_id = $1
	`

	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.UnitPriceCents, &it.Quantity); err != nil {
			return nil, err
		}
		items = append(items, it)
	}

	return items, rows.Err()
}
