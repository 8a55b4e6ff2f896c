// Package order serves a customer's order history.
package order

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	appctx "github.com/andriwardana/storefront/backend/internal/context"
	"github.com/andriwardana/storefront/backend/internal/repository"
)

// DefaultHistoryLimit caps how many orders a single request returns
const DefaultHistoryLimit = 50

// itemView is an order line as served to clients
type itemView struct {
	ProductID      *uuid.UUID `json:"productId,omitempty"`
	ProductName    string     `json:"productName"`
	UnitPriceCents int64      `json:"unitPriceCents"`
	Quantity       int        `json:"quantity"`
}

// orderView is an order as served to clients
type orderView struct {
	ID         uuid.UUID  `json:"id"`
	Status     string     `json:"status"`
	TotalCents int64      `json:"totalCents"`
	Currency   string     `json:"currency"`
	PlacedAt   time.Time  `json:"placedAt"`
	Items      []itemView `json:"items"`
}

// Handler exposes order history over HTTP. All routes require the
// session middleware to have injected the user identity.
type Handler struct {
	orders repository.OrderRepository
	logger *slog.Logger
}

// NewHandler creates a new order history handler
func NewHandler(orders repository.OrderRepository, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		orders: orders,
		logger: logger,
	}
}

// List handles GET /orders
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := appctx.ExtractUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	limit := DefaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= DefaultHistoryLimit {
			limit = n
		}
	}

	orders, err := h.orders.ListByUser(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error("Failed to list orders",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	views := make([]orderView, 0, len(orders))
	for i := range orders {
		views = append(views, toView(&orders[i]))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"orders":  views,
	})
}

// Get handles GET /orders/{orderId}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := appctx.ExtractUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid order id")
		return
	}

	order, err := h.orders.GetByID(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			writeError(w, http.StatusNotFound, "Order not found")
			return
		}
		h.logger.Error("Failed to get order",
			slog.String("order_id", orderID.String()),
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	// Another customer's order looks exactly like a missing one
	if order.UserID != userID {
		writeError(w, http.StatusNotFound, "Order not found")
		return
	}

	view := toView(order)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"order":   view,
	})
}

func toView(o *repository.OrderWithItems) orderView {
	items := make([]itemView, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, itemView{
			ProductID:      it.ProductID,
			ProductName:    it.ProductName,
			UnitPriceCents: it.UnitPriceCents,
			Quantity:       it.Quantity,
		})
	}
	return orderView{
		ID:         o.ID,
		Status:     o.Status,
		TotalCents: o.TotalCents,
		Currency:   o.Currency,
		PlacedAt:   o.PlacedAt,
		Items:      items,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   message,
	})
}
