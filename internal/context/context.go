package context

import (
	"context"

	"github.com/google/uuid"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// UserIDKey is the context key for the authenticated user ID
	UserIDKey ContextKey = "user_id"
	// SessionIDKey is the context key for the authenticated session ID
	SessionIDKey ContextKey = "session_id"
)

// WithSession stores the authenticated user and session IDs in the context
func WithSession(ctx context.Context, userID, sessionID uuid.UUID) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	return context.WithValue(ctx, SessionIDKey, sessionID)
}

// ExtractUserID extracts the authenticated user ID from the request context
func ExtractUserID(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return userID, ok
}

// ExtractSessionID extracts the authenticated session ID from the request context
func ExtractSessionID(ctx context.Context) (uuid.UUID, bool) {
	sessionID, ok := ctx.Value(SessionIDKey).(uuid.UUID)
	return sessionID, ok
}
