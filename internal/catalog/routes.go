package catalog

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the public catalog routes with the chi router
func RegisterRoutes(r chi.Router, handler *Handler) {
	r.Route("/catalog", func(r chi.Router) {
		r.Get("/categories", handler.Categories)
		r.Get("/products", handler.Products)
		r.Get("/products/{slug}", handler.Product)
	})
}
