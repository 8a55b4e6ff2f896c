package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResetTokenRepository_Issue_InvalidatesPriorInOneTx(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewResetTokenRepository(mock)
	userID := uuid.New()
	tokenID := uuid.New()
	expiresAt := time.Now().UTC().Add(30 * time.Minute)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE password_reset_tokens SET used = TRUE WHERE user_id = \$1 AND NOT used`).
		WithArgs(userID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))
	mock.ExpectQuery(`INSERT INTO password_reset_tokens`).
		WithArgs(userID, "tok", expiresAt).
		WillReturnRows(pgxmock.NewRows([]string{"id", "used", "created_at"}).
			AddRow(tokenID, false, now))
	mock.ExpectCommit()
	mock.ExpectRollback()

	prt, err := repo.Issue(context.Background(), userID, "tok", expiresAt)
	require.NoError(t, err)
	assert.Equal(t, tokenID, prt.ID)
	assert.Equal(t, userID, prt.UserID)
	assert.False(t, prt.Used)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetTokenRepository_Issue_RollsBackOnInsertFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewResetTokenRepository(mock)
	userID := uuid.New()
	expiresAt := time.Now().UTC().Add(30 * time.Minute)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE password_reset_tokens SET used = TRUE`).
		WithArgs(userID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(`INSERT INTO password_reset_tokens`).
		WithArgs(userID, "tok", expiresAt).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err = repo.Issue(context.Background(), userID, "tok", expiresAt)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetTokenRepository_GetByToken_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewResetTokenRepository(mock)

	mock.ExpectQuery(`SELECT id, user_id, token, expires_at, used, created_at\s+FROM password_reset_tokens`).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "token", "expires_at", "used", "created_at"}))

	_, err = repo.GetByToken(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrResetTokenNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetTokenRepository_Consume_AtomicCredentialUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewResetTokenRepository(mock)
	tokenID := uuid.New()
	userID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE password_reset_tokens SET used = TRUE WHERE id = \$1 AND NOT used`).
		WithArgs(tokenID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE users SET password_hash = \$2`).
		WithArgs(userID, "new-hash").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()

	err = repo.Consume(context.Background(), tokenID, userID, "new-hash")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetTokenRepository_Consume_AlreadyUsed(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewResetTokenRepository(mock)
	tokenID := uuid.New()
	userID := uuid.New()

	// A concurrent consumer already flipped the flag: no credential write
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE password_reset_tokens SET used = TRUE WHERE id = \$1 AND NOT used`).
		WithArgs(tokenID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err = repo.Consume(context.Background(), tokenID, userID, "new-hash")
	assert.ErrorIs(t, err, ErrResetTokenConsumed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
