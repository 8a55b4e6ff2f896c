package cart

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	appctx "github.com/andriwardana/storefront/backend/internal/context"
)

// Handler exposes the cart over HTTP. All routes require the session
// middleware to have injected the user identity.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler creates a new cart handler
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service: service,
		logger:  logger,
	}
}

type addItemPayload struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type updateItemPayload struct {
	Quantity int `json:"quantity"`
}

// View handles GET /cart
func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	userID, ok := appctx.ExtractUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	view, err := h.service.ViewCart(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to load cart",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"items":      view.Lines,
		"totalCents": view.TotalCents,
		"currency":   view.Currency,
	})
}

// AddItem handles POST /cart/items
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := appctx.ExtractUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var payload addItemPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	productID, err := uuid.Parse(payload.ProductID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid product id")
		return
	}

	if err := h.service.AddItem(r.Context(), userID, productID, payload.Quantity); err != nil {
		h.writeServiceError(w, userID, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Item added to cart",
	})
}

// UpdateItem handles PUT /cart/items/{productId}
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := appctx.ExtractUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	productID, err := uuid.Parse(chi.URLParam(r, "productId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid product id")
		return
	}

	var payload updateItemPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.service.UpdateItem(r.Context(), userID, productID, payload.Quantity); err != nil {
		h.writeServiceError(w, userID, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Cart updated",
	})
}

// RemoveItem handles DELETE /cart/items/{productId}
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := appctx.ExtractUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	productID, err := uuid.Parse(chi.URLParam(r, "productId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid product id")
		return
	}

	if err := h.service.RemoveItem(r.Context(), userID, productID); err != nil {
		h.writeServiceError(w, userID, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Item removed from cart",
	})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, userID uuid.UUID, err error) {
	switch {
	case errors.Is(err, ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, "Invalid quantity")
	case errors.Is(err, ErrProductUnavailable):
		writeError(w, http.StatusNotFound, "Product is unavailable")
	case errors.Is(err, ErrInsufficientStock):
		writeError(w, http.StatusConflict, "Not enough stock")
	case errors.Is(err, ErrItemNotFound):
		writeError(w, http.StatusNotFound, "Cart item not found")
	default:
		h.logger.Error("Cart operation failed",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "Internal server error")
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
