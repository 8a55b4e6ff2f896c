package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/andriwardana/storefront/backend/internal/auth"
	appctx "github.com/andriwardana/storefront/backend/internal/context"
)

// SessionValidator is the slice of the auth service the middleware needs
type SessionValidator interface {
	Validate(ctx context.Context, token string) (*auth.SessionInfo, error)
	TouchActivity(ctx context.Context, sessionID uuid.UUID)
}

// AuthMiddleware authenticates requests using an opaque session token.
// Every validation is a storage lookup, so a terminated session is
// rejected immediately rather than at some future expiry.
type AuthMiddleware struct {
	service SessionValidator
}

// NewAuthMiddleware creates a new AuthMiddleware instance
func NewAuthMiddleware(service SessionValidator) *AuthMiddleware {
	return &AuthMiddleware{
		service: service,
	}
}

// Authenticate validates the session token from the Authorization header
// and injects the session identity into the request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			m.writeError(w, http.StatusUnauthorized, "Authorization header is required")
			return
		}

		info, err := m.service.Validate(r.Context(), token)
		if err != nil {
			m.writeError(w, http.StatusUnauthorized, "Invalid or expired session")
			return
		}

		ctx := appctx.WithSession(r.Context(), info.UserID, info.SessionID)

		// Best effort. A failed touch never blocks the request.
		m.service.TouchActivity(ctx, info.SessionID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func (m *AuthMiddleware) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   message,
	})
}
