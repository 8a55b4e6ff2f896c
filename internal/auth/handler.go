package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/andriwardana/storefront/backend/internal/repository"
	"github.com/andriwardana/storefront/backend/internal/secevent"
)

// Request validation instance shared by the handlers
var validate = validator.New()

// Handler handles HTTP requests for the authentication endpoints. All
// responses use a flat envelope: {"success": true, ...} on success and
// {"success": false, "error": "..."} on failure.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler creates a new auth Handler instance
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

type forgotPasswordPayload struct {
	Email string `json:"email"`
}

type resetPasswordPayload struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type logoutPayload struct {
	SessionToken string `json:"sessionToken"`
	SessionID    string `json:"sessionId"`
	Reason       string `json:"reason"`
}

// sessionSummary is one row of the "manage your devices" view. The bearer
// token itself is never echoed back.
type sessionSummary struct {
	ID             string     `json:"id"`
	DeviceType     string     `json:"deviceType"`
	Browser        string     `json:"browser"`
	IPAddress      *string    `json:"ipAddress,omitempty"`
	IsActive       bool       `json:"isActive"`
	LoginAt        time.Time  `json:"loginAt"`
	LastActivityAt time.Time  `json:"lastActivityAt"`
	LoggedOutAt    *time.Time `json:"loggedOutAt,omitempty"`
	LogoutReason   *string    `json:"logoutReason,omitempty"`
}

// Register handles account creation
// POST /api/v1/auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		h.writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	result, err := h.service.Register(r.Context(), req, requestContext(r))
	if err != nil {
		switch {
		case errors.Is(err, ErrEmailExists):
			h.writeError(w, http.StatusConflict, "An account with this email already exists")
		case errors.Is(err, ErrInvalidEmail):
			h.writeError(w, http.StatusBadRequest, "Invalid email format")
		case errors.Is(err, ErrPasswordMismatch):
			h.writeError(w, http.StatusBadRequest, "Passwords do not match")
		case errors.Is(err, ErrPasswordTooShort):
			h.writeError(w, http.StatusBadRequest, "Password must be at least 6 characters")
		default:
			h.logger.Error("registration failed", "error", err)
			h.writeError(w, http.StatusInternalServerError, "An unexpected error occurred")
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":      true,
		"user":         result.User,
		"sessionToken": result.SessionToken,
	})
}

// Login handles customer authentication
// POST /api/v1/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		h.writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	result, err := h.service.Login(r.Context(), req, requestContext(r))
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			h.writeError(w, http.StatusUnauthorized, "Invalid email or password")
		case errors.Is(err, ErrTooManyAttempts):
			h.writeError(w, http.StatusTooManyRequests, "Too many failed login attempts. Please try again later.")
		default:
			h.logger.Error("login failed", "error", err)
			h.writeError(w, http.StatusInternalServerError, "An unexpected error occurred")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"user":         result.User,
		"sessionToken": result.SessionToken,
	})
}

// ForgotPassword handles reset token issuance
// POST /api/v1/auth/forgot-password
//
// The response is identical whether or not the email resolves, except that a
// resolved account also receives the token value.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		h.writeError(w, http.StatusBadRequest, "Email is required")
		return
	}

	issued, err := h.service.RequestReset(r.Context(), req.Email, requestContext(r))
	if err != nil {
		h.logger.Error("reset request failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to process reset request")
		return
	}

	response := map[string]interface{}{
		"success": true,
		"message": "If an account exists for this email, a reset token has been issued",
	}
	if issued.Token != "" {
		response["token"] = issued.Token
	}
	h.writeJSON(w, http.StatusOK, response)
}

// ResetPassword handles reset token consumption
// POST /api/v1/auth/reset-password
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.service.ResetPassword(r.Context(), req.Token, req.Password, req.ConfirmPassword, requestContext(r))
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingFields):
			h.writeError(w, http.StatusBadRequest, "Token, password and confirmPassword are required")
		case errors.Is(err, ErrPasswordMismatch):
			h.writeError(w, http.StatusBadRequest, "Passwords do not match")
		case errors.Is(err, ErrPasswordTooShort):
			h.writeError(w, http.StatusBadRequest, "Password must be at least 6 characters")
		case errors.Is(err, ErrInvalidResetToken):
			h.writeError(w, http.StatusBadRequest, "Invalid or expired token")
		default:
			h.logger.Error("password reset failed", "error", err)
			h.writeError(w, http.StatusInternalServerError, "Failed to reset password")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Password has been reset successfully",
	})
}

// Logout handles session termination
// POST /api/v1/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req logoutPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	params := LogoutParams{Token: req.SessionToken, Reason: req.Reason}
	if req.SessionID != "" {
		id, err := uuid.Parse(req.SessionID)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid session id")
			return
		}
		params.SessionID = &id
	}
	if params.Token == "" && params.SessionID == nil {
		h.writeError(w, http.StatusBadRequest, "Session token or session id is required")
		return
	}

	ok, err := h.service.Logout(r.Context(), params, requestContext(r))
	if err != nil {
		if errors.Is(err, ErrMissingIdentifier) {
			h.writeError(w, http.StatusBadRequest, "Session token or session id is required")
			return
		}
		h.logger.Error("logout failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "Logout failed")
		return
	}
	if !ok {
		// Soft failure: the token matched no active session. The envelope
		// carries the outcome; this is not a transport-level error.
		h.writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": false,
			"error":   "No active session found",
		})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Successfully logged out",
	})
}

// UserSessions handles the "manage your devices" listing
// GET /api/v1/auth/user-sessions?sessionToken=...
func (h *Handler) UserSessions(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("sessionToken")
	if token == "" {
		h.writeError(w, http.StatusBadRequest, "Session token is required")
		return
	}

	info, err := h.service.Validate(r.Context(), token)
	if err != nil {
		h.writeError(w, http.StatusUnauthorized, "Invalid or expired session")
		return
	}

	sessions, err := h.service.ListSessions(r.Context(), info.UserID)
	if err != nil {
		h.logger.Error("session listing failed", "user_id", info.UserID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	summaries := make([]sessionSummary, 0, len(sessions))
	var current *sessionSummary
	for i := range sessions {
		summary := summarize(&sessions[i])
		summaries = append(summaries, summary)
		if sessions[i].ID == info.SessionID {
			current = &summaries[len(summaries)-1]
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"sessions":       summaries,
		"currentSession": current,
	})
}

// eventSummary is one row of the account security activity view
type eventSummary struct {
	Type        string    `json:"type"`
	Severity    string    `json:"severity"`
	Description string    `json:"description"`
	IPAddress   *string   `json:"ipAddress,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// SecurityActivity handles the account security activity listing
// GET /api/v1/auth/security-activity?sessionToken=...&limit=...
func (h *Handler) SecurityActivity(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("sessionToken")
	if token == "" {
		h.writeError(w, http.StatusBadRequest, "Session token is required")
		return
	}

	info, err := h.service.Validate(r.Context(), token)
	if err != nil {
		h.writeError(w, http.StatusUnauthorized, "Invalid or expired session")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	events, err := h.service.ListSecurityActivity(r.Context(), info.UserID, limit)
	if err != nil {
		h.logger.Error("security activity listing failed", "user_id", info.UserID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to list security activity")
		return
	}

	summaries := make([]eventSummary, 0, len(events))
	for i := range events {
		summaries = append(summaries, eventSummary{
			Type:        events[i].EventType,
			Severity:    events[i].Severity,
			Description: events[i].Description,
			IPAddress:   events[i].IPAddress,
			CreatedAt:   events[i].CreatedAt,
		})
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"events":  summaries,
	})
}

func summarize(s *repository.Session) sessionSummary {
	return sessionSummary{
		ID:             s.ID.String(),
		DeviceType:     s.DeviceType,
		Browser:        s.Browser,
		IPAddress:      s.IPAddress,
		IsActive:       s.IsActive,
		LoginAt:        s.LoginAt,
		LastActivityAt: s.LastActivityAt,
		LoggedOutAt:    s.LoggedOutAt,
		LogoutReason:   s.LogoutReason,
	}
}

// requestContext captures the client IP and user agent for event logging
func requestContext(r *http.Request) secevent.RequestContext {
	return secevent.RequestContext{
		IPAddress: getClientIP(r),
		UserAgent: r.UserAgent(),
	}
}

// getClientIP extracts the originating client address, preferring proxy headers
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if first := strings.TrimSpace(parts[0]); first != "" {
			return first
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// validationMessage flattens a validator error into a single client message
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		switch fe.Tag() {
		case "required":
			return fe.Field() + " is required"
		case "email":
			return "Invalid email format"
		case "min":
			return fe.Field() + " must be at least " + fe.Param() + " characters"
		}
	}
	return "Request validation failed"
}

// writeJSON writes a JSON response with the given status code
func (h *Handler) writeJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeError writes a flat error envelope
func (h *Handler) writeError(w http.ResponseWriter, statusCode int, message string) {
	h.writeJSON(w, statusCode, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
