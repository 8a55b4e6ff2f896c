package order

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the order history routes. authenticate must
// inject the session identity into the request context.
func RegisterRoutes(r chi.Router, handler *Handler, authenticate func(http.Handler) http.Handler) {
	r.Route("/orders", func(r chi.Router) {
		r.Use(authenticate)
		r.Get("/", handler.List)
		r.Get("/{orderId}", handler.Get)
	})
}
