// Package cart manages the authenticated customer's shopping cart.
package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/andriwardana/storefront/backend/internal/repository"
)

// Service errors
var (
	ErrProductUnavailable = errors.New("product is unavailable")
	ErrInvalidQuantity    = errors.New("quantity must be at least 1")
	ErrInsufficientStock  = errors.New("not enough stock")
	ErrItemNotFound       = errors.New("cart item not found")
)

// MaxQuantityPerLine caps how many units of one product a cart may hold
const MaxQuantityPerLine = 99

// Line is a cart line as served to clients
type Line struct {
	ProductID     uuid.UUID `json:"productId"`
	ProductName   string    `json:"productName"`
	PriceCents    int64     `json:"priceCents"`
	Currency      string    `json:"currency"`
	Quantity      int       `json:"quantity"`
	SubtotalCents int64     `json:"subtotalCents"`
}

// View is the full cart as served to clients
type View struct {
	Lines      []Line `json:"items"`
	TotalCents int64  `json:"totalCents"`
	Currency   string `json:"currency,omitempty"`
}

// Service implements cart operations on top of the cart and catalog
// repositories.
type Service struct {
	carts   repository.CartRepository
	catalog repository.CatalogRepository
	logger  *slog.Logger
}

// NewService creates a new cart service
func NewService(carts repository.CartRepository, catalog repository.CatalogRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		carts:   carts,
		catalog: catalog,
		logger:  logger,
	}
}

// ViewCart returns the user's cart with line subtotals and a grand total
func (s *Service) ViewCart(ctx context.Context, userID uuid.UUID) (*View, error) {
	lines, err := s.carts.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	view := &View{Lines: make([]Line, 0, len(lines))}
	for _, l := range lines {
		subtotal := l.PriceCents * int64(l.Quantity)
		view.Lines = append(view.Lines, Line{
			ProductID:     l.ProductID,
			ProductName:   l.ProductName,
			PriceCents:    l.PriceCents,
			Currency:      l.Currency,
			Quantity:      l.Quantity,
			SubtotalCents: subtotal,
		})
		view.TotalCents += subtotal
		if view.Currency == "" {
			view.Currency = l.Currency
		}
	}

	return view, nil
}

// AddItem puts a product into the cart, stacking on top of any existing
// quantity for the same product.
func (s *Service) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) error {
	if quantity < 1 || quantity > MaxQuantityPerLine {
		return ErrInvalidQuantity
	}

	product, err := s.catalog.GetProductByID(ctx, productID.String())
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return ErrProductUnavailable
		}
		return fmt.Errorf("failed to check product: %w", err)
	}
	if !product.IsActive {
		return ErrProductUnavailable
	}
	if product.Stock < quantity {
		return ErrInsufficientStock
	}

	if err := s.carts.Upsert(ctx, userID, productID, quantity); err != nil {
		return fmt.Errorf("failed to add cart item: %w", err)
	}

	return nil
}

// UpdateItem sets the quantity for a cart line. Quantity zero removes
// the line.
func (s *Service) UpdateItem(ctx context.Context, userID, productID uuid.UUID, quantity int) error {
	if quantity < 0 || quantity > MaxQuantityPerLine {
		return ErrInvalidQuantity
	}

	if quantity == 0 {
		return s.RemoveItem(ctx, userID, productID)
	}

	err := s.carts.UpdateQuantity(ctx, userID, productID, quantity)
	if err != nil {
		if errors.Is(err, repository.ErrCartItemNotFound) {
			return ErrItemNotFound
		}
		return fmt.Errorf("failed to update cart item: %w", err)
	}

	return nil
}

// RemoveItem deletes a cart line. Removing an absent line is not an error.
func (s *Service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) error {
	err := s.carts.Remove(ctx, userID, productID)
	if err != nil && !errors.Is(err, repository.ErrCartItemNotFound) {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	return nil
}
