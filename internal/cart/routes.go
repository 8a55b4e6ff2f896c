package cart

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the cart routes. authenticate must inject
// the session identity into the request context.
func RegisterRoutes(r chi.Router, handler *Handler, authenticate func(http.Handler) http.Handler) {
	r.Route("/cart", func(r chi.Router) {
		r.Use(authenticate)
		r.Get("/", handler.View)
		r.Post("/items", handler.AddItem)
		r.Put("/items/{productId}", handler.UpdateItem)
		r.Delete("/items/{productId}", handler.RemoveItem)
	})
}
