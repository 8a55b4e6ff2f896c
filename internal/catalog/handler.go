package catalog

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/andriwardana/storefront/backend/internal/repository"
)

// Handler exposes the catalog over HTTP
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler creates a new catalog handler
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Categories handles GET /catalog/categories
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		h.logger.Error("Failed to list categories", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"categories": categories,
	})
}

// Products handles GET /catalog/products with optional page, limit and
// category query parameters.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", DefaultPageSize)
	categorySlug := r.URL.Query().Get("category")

	result, err := h.service.ListProducts(r.Context(), page, limit, categorySlug)
	if err != nil {
		h.logger.Error("Failed to list products", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"products":   result.Products,
		"page":       result.Page,
		"limit":      result.Limit,
		"totalCount": result.TotalCount,
	})
}

// Product handles GET /catalog/products/{slug}
func (h *Handler) Product(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		writeError(w, http.StatusBadRequest, "Product slug is required")
		return
	}

	product, err := h.service.GetProduct(r.Context(), slug)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			writeError(w, http.StatusNotFound, "Product not found")
			return
		}
		h.logger.Error("Failed to get product",
			slog.String("slug", slug),
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"product": product,
	})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
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
