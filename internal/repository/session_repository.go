package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Session repository errors
var (
	ErrSessionNotFound = errors.New("session not found")
)

// SessionRepository defines the interface for session data access.
// Sessions are only ever deactivated, never deleted; the rows remain for the
// security audit trail and the "manage your devices" view.
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	GetActiveByToken(ctx context.Context, token string) (*Session, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Session, error)
	// DeactivateByID marks the session inactive and stamps the logout time
	// and reason. Returns false without error when the session was already
	// inactive or does not exist, so repeated logouts stay idempotent.
	DeactivateByID(ctx context.Context, id uuid.UUID, reason string) (bool, error)
	// DeactivateByToken deactivates the active session carrying the token and
	// returns it. Returns ErrSessionNotFound when no active session matches.
	DeactivateByToken(ctx context.Context, token string, reason string) (*Session, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Session, error)
	TouchActivity(ctx context.Context, id uuid.UUID) error
	CountFailedAttempts(ctx context.Context, email string, since time.Time) (int, error)
	RecordFailedAttempt(ctx context.Context, email string, ip string) error
	CleanupOldFailedAttempts(ctx context.Context, before time.Time) (int64, error)
}

const sessionColumns = `id, user_id, token, device_type, browser, ip_address, user_agent,
		       is_active, login_at, last_activity_at, logged_out_at, logout_reason`

// sessionRepository implements SessionRepository using PostgreSQL
type sessionRepository struct {
	db DB
}

// NewSessionRepository creates a new SessionRepository instance
func NewSessionRepository(db DB) SessionRepository {
	return &sessionRepository{db: db}
}

// Create inserts a new session row
func (r *sessionRepository) Create(ctx context.Context, session *Session) error {
	query := `
		INSERT INTO sessions (user_id, token, device_type, browser, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, is_active, login_at, last_activity_at
	`

	return r.db.QueryRow(ctx, query,
		session.UserID,
		session.Token,
		session.DeviceType,
		session.Browser,
		session.IPAddress,
		session.UserAgent,
	).Scan(&session.ID, &session.IsActive, &session.LoginAt, &session.LastActivityAt)
}

// GetActiveByToken retrieves the active session carrying the token
func (r *sessionRepository) GetActiveByToken(ctx context.Context, token string) (*Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE token = $1 AND is_active
	`

	return r.scanSession(r.db.QueryRow(ctx, query, token))
}

// GetByID retrieves a session regardless of its active flag
func (r *sessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`

	return r.scanSession(r.db.QueryRow(ctx, query, id))
}

// DeactivateByID marks the session inactive; a no-op on already-inactive rows
func (r *sessionRepository) DeactivateByID(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	query := `
		UPDATE sessions
		SET is_active = FALSE, logged_out_at = NOW(), logout_reason = $2
		WHERE id = $1 AND is_active
	`

	result, err := r.db.Exec(ctx, query, id, reason)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

// DeactivateByToken deactivates the active session for the token and returns it
func (r *sessionRepository) DeactivateByToken(ctx context.Context, token string, reason string) (*Session, error) {
	query := `
		UPDATE sessions
		SET is_active = FALSE, logged_out_at = NOW(), logout_reason = $2
		WHERE token = $1 AND is_active
		RETURNING ` + sessionColumns + `
	`

	return r.scanSession(r.db.QueryRow(ctx, query, token, reason))
}

// ListByUser returns every session for the user, most recent login first
func (r *sessionRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE user_id = $1
		ORDER BY login_at DESC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(
			&s.ID,
			&s.UserID,
			&s.Token,
			&s.DeviceType,
			&s.Browser,
			&s.IPAddress,
			&s.UserAgent,
			&s.IsActive,
			&s.LoginAt,
			&s.LastActivityAt,
			&s.LoggedOutAt,
			&s.LogoutReason,
		); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

// TouchActivity stamps the session's last activity time
func (r *sessionRepository) TouchActivity(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE sessions SET last_activity_at = NOW() WHERE id = $1 AND is_active`

	_, err := r.db.Exec(ctx, query, id)
	return err
}

// CountFailedAttempts counts failed login attempts for an email since a given time
func (r *sessionRepository) CountFailedAttempts(ctx context.Context, email string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM failed_login_attempts
		WHERE LOWER(email) = LOWER($1) AND attempted_at >= $2
	`

	var count int
	if err := r.db.QueryRow(ctx, query, strings.ToLower(email), since).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// RecordFailedAttempt records a failed login attempt
func (r *sessionRepository) RecordFailedAttempt(ctx context.Context, email string, ip string) error {
	query := `
		INSERT INTO failed_login_attempts (email, ip_address)
		VALUES ($1, $2)
	`

	_, err := r.db.Exec(ctx, query, strings.ToLower(email), ip)
	return err
}

// CleanupOldFailedAttempts removes failed login attempts older than the specified time
func (r *sessionRepository) CleanupOldFailedAttempts(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM failed_login_attempts WHERE attempted_at < $1`

	result, err := r.db.Exec(ctx, query, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

func (r *sessionRepository) scanSession(row pgx.Row) (*Session, error) {
	s := &Session{}
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.Token,
		&s.DeviceType,
		&s.Browser,
		&s.IPAddress,
		&s.UserAgent,
		&s.IsActive,
		&s.LoginAt,
		&s.LastActivityAt,
		&s.LoggedOutAt,
		&s.LogoutReason,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return s, nil
}
