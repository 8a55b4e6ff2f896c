package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Reset token repository errors
var (
	ErrResetTokenNotFound = errors.New("reset token not found")
	ErrResetTokenConsumed = errors.New("reset token already consumed")
)

// ResetTokenRepository defines the interface for password reset token data
// access. The invariant it protects: at most one unused, unexpired token per
// user at any time, and a token is consumable exactly once.
type ResetTokenRepository interface {
	// Issue invalidates every unused token for the user and inserts a fresh
	// one inside a single transaction. Interleaved issuance for the same user
	// serializes on the partial unique index over (user_id) WHERE NOT used.
	Issue(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) (*PasswordResetToken, error)
	GetByToken(ctx context.Context, token string) (*PasswordResetToken, error)
	// Consume atomically overwrites the user's credential and marks the token
	// used. A crash between the two writes cannot leave a usable token whose
	// credential update did not apply.
	Consume(ctx context.Context, tokenID uuid.UUID, userID uuid.UUID, passwordHash string) error
}

// resetTokenRepository implements ResetTokenRepository using PostgreSQL
type resetTokenRepository struct {
	db DB
}

// NewResetTokenRepository creates a new ResetTokenRepository instance
func NewResetTokenRepository(db DB) ResetTokenRepository {
	return &resetTokenRepository{db: db}
}

// Issue invalidates prior unused tokens and inserts the new one transactionally
func (r *resetTokenRepository) Issue(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) (*PasswordResetToken, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin issue tx: %w", err)
	}
	defer tx.Rollback(ctx)

	invalidate := `UPDATE password_reset_tokens SET used = TRUE WHERE user_id = $1 AND NOT used`
	if _, err := tx.Exec(ctx, invalidate, userID); err != nil {
		return nil, fmt.Errorf("invalidate prior tokens: %w", err)
	}

	insert := `
		INSERT INTO password_reset_tokens (user_id, token, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, used, created_at
	`

	prt := &PasswordResetToken{
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
	}
	if err := tx.QueryRow(ctx, insert, userID, token, expiresAt).Scan(&prt.ID, &prt.Used, &prt.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert reset token: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit issue tx: %w", err)
	}
	return prt, nil
}

// GetByToken retrieves a reset token row by its token value
func (r *resetTokenRepository) GetByToken(ctx context.Context, token string) (*PasswordResetToken, error) {
	query := `
		SELECT id, user_id, token, expires_at, used, created_at
		FROM password_reset_tokens
		WHERE token = $1
	`

	prt := &PasswordResetToken{}
	err := r.db.QueryRow(ctx, query, token).Scan(
		&prt.ID,
		&prt.UserID,
		&prt.Token,
		&prt.ExpiresAt,
		&prt.Used,
		&prt.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrResetTokenNotFound
		}
		return nil, err
	}
	return prt, nil
}

// Consume updates the credential and marks the token used in one transaction
func (r *resetTokenRepository) Consume(ctx context.Context, tokenID uuid.UUID, userID uuid.UUID, passwordHash string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin consume tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Guard against a concurrent consumer: the token must still be unused.
	mark := `UPDATE password_reset_tokens SET used = TRUE WHERE id = $1 AND NOT used`
	result, err := tx.Exec(ctx, mark, tokenID)
	if err != nil {
		return fmt.Errorf("mark token used: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrResetTokenConsumed
	}

	update := `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`
	result, err = tx.Exec(ctx, update, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("update credential: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit consume tx: %w", err)
	}
	return nil
}
