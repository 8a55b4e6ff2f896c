package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/andriwardana/storefront/backend/internal/metrics"
	"github.com/andriwardana/storefront/backend/internal/repository"
	"github.com/andriwardana/storefront/backend/internal/secevent"
)

// Auth service errors
var (
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrEmailExists        = errors.New("email already exists")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrPasswordTooShort   = errors.New("password is too short")
	ErrMissingFields      = errors.New("missing required fields")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrTooManyAttempts    = errors.New("too many failed login attempts")
	// ErrInvalidSession covers not-found, inactive, and storage failures
	// alike: callers must not be able to distinguish them.
	ErrInvalidSession = errors.New("invalid or expired session")
	// ErrInvalidResetToken deliberately merges used and expired so the
	// response cannot be used as an oracle.
	ErrInvalidResetToken = errors.New("invalid or expired token")
	ErrMissingIdentifier = errors.New("session token or session id required")
)

// Brute force protection constants
const (
	MaxFailedAttempts   = 5
	FailedAttemptWindow = 15 * time.Minute
)

// ResetTokenTTL is how long a password reset token stays usable
const ResetTokenTTL = 30 * time.Minute

// DefaultLogoutReason is stamped when the client does not supply one
const DefaultLogoutReason = "user_logout"

// MaxActivityEvents caps the security activity listing
const MaxActivityEvents = 50

// SessionInfo is the identity and metadata returned by a successful
// session validation
type SessionInfo struct {
	SessionID      uuid.UUID
	UserID         uuid.UUID
	DeviceType     string
	Browser        string
	IPAddress      *string
	LoginAt        time.Time
	LastActivityAt time.Time
}

// LogoutParams selects the session to terminate. Exactly one of Token or
// SessionID must be usable.
type LogoutParams struct {
	Token     string
	SessionID *uuid.UUID
	Reason    string
}

// ResetIssued is the outcome of a reset request. Token is empty when the
// email did not resolve to an active account; callers must not reveal which
// branch was taken beyond the presence of the token itself.
type ResetIssued struct {
	Token string
}

// EventLog reads back a user's recorded security events for the account
// activity view
type EventLog interface {
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]repository.SecurityEvent, error)
}

// Service owns the session and credential lifecycle: login, logout, session
// validation and password reset token issuance and consumption.
type Service struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	resets   repository.ResetTokenRepository
	events   secevent.Recorder
	eventLog EventLog
	logger   *slog.Logger
}

// NewService creates a new auth Service instance
func NewService(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	resets repository.ResetTokenRepository,
	events secevent.Recorder,
	eventLog EventLog,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:    users,
		sessions: sessions,
		resets:   resets,
		events:   events,
		eventLog: eventLog,
		logger:   logger,
	}
}

// Validate checks a bearer token and returns the session identity and
// metadata. Every failure mode collapses to ErrInvalidSession: the caller
// contract is a uniform 401, and storage errors must not leak a distinct
// error class.
func (s *Service) Validate(ctx context.Context, token string) (*SessionInfo, error) {
	if !IsWellFormedToken(token) {
		return nil, ErrInvalidSession
	}

	session, err := s.sessions.GetActiveByToken(ctx, token)
	if err != nil {
		if !errors.Is(err, repository.ErrSessionNotFound) {
			s.logger.Error("session lookup failed", "error", err)
		}
		return nil, ErrInvalidSession
	}

	return &SessionInfo{
		SessionID:      session.ID,
		UserID:         session.UserID,
		DeviceType:     session.DeviceType,
		Browser:        session.Browser,
		IPAddress:      session.IPAddress,
		LoginAt:        session.LoginAt,
		LastActivityAt: session.LastActivityAt,
	}, nil
}

// Logout terminates a session selected by token or by session ID.
//
// By session ID the operation is idempotent: a second call observes no
// active session, succeeds silently and emits no duplicate event. By token
// the absence of an active session is a soft failure (false, nil) so that
// logging out an already-expired session does not surface a hard error.
func (s *Service) Logout(ctx context.Context, params LogoutParams, reqCtx secevent.RequestContext) (bool, error) {
	reason := params.Reason
	if reason == "" {
		reason = DefaultLogoutReason
	}

	switch {
	case params.SessionID != nil:
		deactivated, err := s.sessions.DeactivateByID(ctx, *params.SessionID, reason)
		if err != nil {
			return false, err
		}
		if deactivated {
			s.recordLogout(ctx, *params.SessionID, reason, reqCtx)
			metrics.AuthLogoutsTotal.Inc()
		}
		return true, nil

	case params.Token != "":
		if !IsWellFormedToken(params.Token) {
			return false, nil
		}
		session, err := s.sessions.DeactivateByToken(ctx, params.Token, reason)
		if err != nil {
			if errors.Is(err, repository.ErrSessionNotFound) {
				return false, nil
			}
			return false, err
		}
		s.events.Record(ctx, secevent.Event{
			UserID:      &session.UserID,
			SessionID:   &session.ID,
			Type:        secevent.TypeLogout,
			Severity:    secevent.SeverityLow,
			Description: "session terminated: " + reason,
			Request:     reqCtx,
		})
		metrics.AuthLogoutsTotal.Inc()
		return true, nil

	default:
		return false, ErrMissingIdentifier
	}
}

// recordLogout attributes the logout event to the session owner when the row
// is still resolvable
func (s *Service) recordLogout(ctx context.Context, sessionID uuid.UUID, reason string, reqCtx secevent.RequestContext) {
	event := secevent.Event{
		SessionID:   &sessionID,
		Type:        secevent.TypeLogout,
		Severity:    secevent.SeverityLow,
		Description: "session terminated: " + reason,
		Request:     reqCtx,
	}
	if session, err := s.sessions.GetByID(ctx, sessionID); err == nil {
		event.UserID = &session.UserID
	}
	s.events.Record(ctx, event)
}

// ListSessions returns every session for the user, newest login first. The
// caller is responsible for having validated the requesting token; this
// method does not re-authenticate.
func (s *Service) ListSessions(ctx context.Context, userID uuid.UUID) ([]repository.Session, error) {
	return s.sessions.ListByUser(ctx, userID)
}

// ListSecurityActivity returns the user's recent security events, newest
// first. As with ListSessions, the caller must have validated the
// requesting token.
func (s *Service) ListSecurityActivity(ctx context.Context, userID uuid.UUID, limit int) ([]repository.SecurityEvent, error) {
	if limit <= 0 || limit > MaxActivityEvents {
		limit = MaxActivityEvents
	}
	return s.eventLog.ListByUser(ctx, userID, limit)
}

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserInfo represents account data in responses
type UserInfo struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

// AuthResult is the outcome of a successful registration or login
type AuthResult struct {
	User         UserInfo
	SessionToken string
	SessionID    uuid.UUID
}

// Register creates a new customer account and an initial session
func (s *Service) Register(ctx context.Context, req RegisterRequest, reqCtx secevent.RequestContext) (*AuthResult, error) {
	email := normalizeEmail(req.Email)
	if !isValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	if req.Password != req.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}
	if len(req.Password) < MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	exists, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailExists
	}

	passwordHash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &repository.User{
		Email:        email,
		PasswordHash: passwordHash,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailAlreadyExists) {
			return nil, ErrEmailExists
		}
		return nil, err
	}

	return s.openSession(ctx, user, reqCtx)
}

// Login authenticates a customer and opens a new session
func (s *Service) Login(ctx context.Context, req LoginRequest, reqCtx secevent.RequestContext) (*AuthResult, error) {
	email := normalizeEmail(req.Email)

	since := time.Now().UTC().Add(-FailedAttemptWindow)
	failedAttempts, err := s.sessions.CountFailedAttempts(ctx, email, since)
	if err != nil {
		return nil, err
	}
	if failedAttempts >= MaxFailedAttempts {
		return nil, ErrTooManyAttempts
	}

	user, err := s.users.GetActiveByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.recordLoginFailure(ctx, email, reqCtx)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := VerifyPassword(req.Password, user.PasswordHash); err != nil {
		s.recordLoginFailure(ctx, email, reqCtx)
		return nil, ErrInvalidCredentials
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		return nil, err
	}

	return s.openSession(ctx, user, reqCtx)
}

// openSession creates the session row and records the login event
func (s *Service) openSession(ctx context.Context, user *repository.User, reqCtx secevent.RequestContext) (*AuthResult, error) {
	token, err := NewToken()
	if err != nil {
		return nil, err
	}

	deviceType, browser := ClassifyUserAgent(reqCtx.UserAgent)
	session := &repository.Session{
		UserID:     user.ID,
		Token:      token,
		DeviceType: deviceType,
		Browser:    browser,
	}
	if reqCtx.IPAddress != "" {
		ip := reqCtx.IPAddress
		session.IPAddress = &ip
	}
	if reqCtx.UserAgent != "" {
		ua := reqCtx.UserAgent
		session.UserAgent = &ua
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	s.events.Record(ctx, secevent.Event{
		UserID:      &user.ID,
		SessionID:   &session.ID,
		Type:        secevent.TypeLogin,
		Severity:    secevent.SeverityLow,
		Description: "login from " + deviceType + "/" + browser,
		Request:     reqCtx,
	})
	metrics.AuthLoginsTotal.Inc()

	return &AuthResult{
		User: UserInfo{
			ID:          user.ID.String(),
			Email:       user.Email,
			CreatedAt:   user.CreatedAt,
			LastLoginAt: user.LastLoginAt,
		},
		SessionToken: token,
		SessionID:    session.ID,
	}, nil
}

func (s *Service) recordLoginFailure(ctx context.Context, email string, reqCtx secevent.RequestContext) {
	if err := s.sessions.RecordFailedAttempt(ctx, email, reqCtx.IPAddress); err != nil {
		s.logger.Warn("failed to record login attempt", "error", err)
	}
	s.events.Record(ctx, secevent.Event{
		Type:        secevent.TypeLoginFailed,
		Severity:    secevent.SeverityMedium,
		Description: "failed login attempt",
		Request:     reqCtx,
	})
}

// TouchActivity stamps the session's last activity time; best-effort
func (s *Service) TouchActivity(ctx context.Context, sessionID uuid.UUID) {
	if err := s.sessions.TouchActivity(ctx, sessionID); err != nil {
		s.logger.Warn("failed to touch session activity", "session_id", sessionID, "error", err)
	}
}

// normalizeEmail lower-cases and trims an email address
func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// isValidEmail checks if the email format is valid
func isValidEmail(email string) bool {
	if email == "" {
		return false
	}
	_, err := mail.ParseAddress(email)
	return err == nil
}
