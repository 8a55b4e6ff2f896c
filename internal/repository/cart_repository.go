package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Cart repository errors
var (
	ErrCartItemNotFound = errors.New("cart item not found")
)

// CartRepository defines the interface for cart data access
type CartRepository interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]CartLine, error)
	// Upsert adds the product to the cart or increments its quantity when the
	// product is already present.
	Upsert(ctx context.Context, userID, productID uuid.UUID, quantity int) error
	UpdateQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) error
	Remove(ctx context.Context, userID, productID uuid.UUID) error
}

// cartRepository implements CartRepository using PostgreSQL
type cartRepository struct {
	db DB
}

// NewCartRepository creates a new CartRepository instance
func NewCartRepository(db DB) CartRepository {
	return &cartRepository{db: db}
}

// ListByUser returns the user's cart lines joined with product data
func (r *cartRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]CartLine, error) {
	query := `
		SELECT ci.id, ci.user_id, ci.product_id, ci.quantity, ci.added_at, ci.updated_at,
		       p.name AS product_name, p.price_cents, p.currency
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.user_id = $1
		ORDER BY ci.added_at DESC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []CartLine
	for rows.Next() {
		var l CartLine
		if err := rows.Scan(
			&l.ID,
			&l.UserID,
			&l.ProductID,
			&l.Quantity,
			&l.AddedAt,
			&l.UpdatedAt,
			&l.ProductName,
			&l.PriceCents,
			&l.Currency,
		); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}

	return lines, rows.Err()
}

// Upsert inserts the cart line or increments the existing quantity
func (r *cartRepository) Upsert(ctx context.Context, userID, productID uuid.UUID, quantity int) error {
	query := `
		INSERT INTO cart_items (user_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = NOW()
	`

	_, err := r.db.Exec(ctx, query, userID, productID, quantity)
	return err
}

// UpdateQuantity sets the quantity of an existing cart line
func (r *cartRepository) UpdateQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) error {
	query := `
		UPDATE cart_items
		SET quantity = $3, updated_at = NOW()
		WHERE user_id = $1 AND product_id = $2
	`

	result, err := r.db.Exec(ctx, query, userID, productID, quantity)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

// Remove deletes a cart line
func (r *cartRepository) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	query := `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`

	result, err := r.db.Exec(ctx, query, userID, productID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrCartItemNotFound
	}
	return nil
}
