package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Middleware is an interface for HTTP middleware
type Middleware func(http.Handler) http.Handler

// RegisterRoutes registers the authentication routes with the chi router.
// All routes are public: logout and user-sessions carry their own session
// token and authenticate themselves. resetLimiter throttles the two
// credential-recovery endpoints; pass nil to disable.
func RegisterRoutes(r chi.Router, handler *Handler, resetLimiter Middleware) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", handler.Register)
		r.Post("/login", handler.Login)
		r.Post("/logout", handler.Logout)
		r.Get("/user-sessions", handler.UserSessions)
		r.Get("/security-activity", handler.SecurityActivity)

		r.Group(func(r chi.Router) {
			if resetLimiter != nil {
				r.Use(resetLimiter)
			}
			r.Post("/forgot-password", handler.ForgotPassword)
			r.Post("/reset-password", handler.ResetPassword)
		})
	})
}
