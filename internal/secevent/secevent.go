// Package secevent records authentication-relevant actions in an append-only
// audit trail. Recording is best-effort: a failed write is logged server-side
// and swallowed so it never blocks the primary response.
package secevent

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/andriwardana/storefront/backend/internal/repository"
)

// Event types
const (
	TypeLogin              = "login"
	TypeLoginFailed        = "login_failed"
	TypeLogout             = "user_logout"
	TypeResetRequest       = "password_reset_request"
	TypeResetComplete      = "password_reset_complete"
	TypeSuspiciousActivity = "suspicious_activity"
)

// Severities
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// RequestContext carries the client context captured from the HTTP request
type RequestContext struct {
	IPAddress string
	UserAgent string
}

// Event describes a security-relevant action to record
type Event struct {
	UserID      *uuid.UUID
	SessionID   *uuid.UUID
	Type        string
	Severity    string
	Description string
	Request     RequestContext
}

// Recorder appends security events to the durable audit trail
type Recorder interface {
	Record(ctx context.Context, event Event)
}

// recorder implements Recorder on top of the event repository
type recorder struct {
	repo   repository.EventRepository
	logger *slog.Logger
}

// NewRecorder creates a new Recorder instance
func NewRecorder(repo repository.EventRepository, logger *slog.Logger) Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &recorder{repo: repo, logger: logger}
}

// Record appends the event; failures are logged and swallowed
func (r *recorder) Record(ctx context.Context, event Event) {
	row := &repository.SecurityEvent{
		UserID:      event.UserID,
		SessionID:   event.SessionID,
		EventType:   event.Type,
		Severity:    event.Severity,
		Description: event.Description,
	}
	if event.Request.IPAddress != "" {
		ip := event.Request.IPAddress
		row.IPAddress = &ip
	}
	if event.Request.UserAgent != "" {
		ua := event.Request.UserAgent
		row.UserAgent = &ua
	}

	if err := r.repo.Record(ctx, row); err != nil {
		r.logger.Warn("failed to record security event",
			"event_type", event.Type,
			"severity", event.Severity,
			"error", err,
		)
	}
}
