package auth

import (
	"context"
	"errors"
	"time"

	"github.com/andriwardana/storefront/backend/internal/metrics"
	"github.com/andriwardana/storefront/backend/internal/repository"
	"github.com/andriwardana/storefront/backend/internal/secevent"
)

// RequestReset issues a single-use, time-limited password reset token for
// the email's account.
//
// When the email does not resolve to an active, non-deleted account the call
// still succeeds with an empty token and performs no storage mutation, so a
// caller cannot distinguish "account exists" from "account does not exist".
// Issuing a fresh token invalidates every prior unused token for the account
// inside the same transaction.
func (s *Service) RequestReset(ctx context.Context, email string, reqCtx secevent.RequestContext) (*ResetIssued, error) {
	email = normalizeEmail(email)

	user, err := s.users.GetActiveByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			metrics.AuthResetRequestsTotal.WithLabelValues("unknown_email").Inc()
			return &ResetIssued{}, nil
		}
		return nil, err
	}

	token, err := NewToken()
	if err != nil {
		return nil, err
	}

	expiresAt := time.Now().UTC().Add(ResetTokenTTL)
	if _, err := s.resets.Issue(ctx, user.ID, token, expiresAt); err != nil {
		return nil, err
	}

	s.events.Record(ctx, secevent.Event{
		UserID:      &user.ID,
		Type:        secevent.TypeResetRequest,
		Severity:    secevent.SeverityMedium,
		Description: "password reset requested",
		Request:     reqCtx,
	})
	metrics.AuthResetRequestsTotal.WithLabelValues("issued").Inc()

	return &ResetIssued{Token: token}, nil
}

// ResetPassword consumes a reset token and overwrites the account credential.
//
// Checks run in a fixed order: field presence, password confirmation, minimum
// length, token existence, then token liveness. Used and expired collapse to
// the same ErrInvalidResetToken so the response cannot reveal which check
// failed. The credential overwrite and the used flag are committed in one
// transaction.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword, confirmPassword string, reqCtx secevent.RequestContext) error {
	if token == "" || newPassword == "" || confirmPassword == "" {
		return ErrMissingFields
	}
	if newPassword != confirmPassword {
		return ErrPasswordMismatch
	}
	if len(newPassword) < MinPasswordLength {
		return ErrPasswordTooShort
	}

	prt, err := s.resets.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrResetTokenNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}

	// Expiry is judged now, at consumption time, not at issuance.
	if prt.Used || time.Now().UTC().After(prt.ExpiresAt) {
		return ErrInvalidResetToken
	}

	passwordHash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.resets.Consume(ctx, prt.ID, prt.UserID, passwordHash); err != nil {
		if errors.Is(err, repository.ErrResetTokenConsumed) {
			return ErrInvalidResetToken
		}
		return err
	}

	s.events.Record(ctx, secevent.Event{
		UserID:      &prt.UserID,
		Type:        secevent.TypeResetComplete,
		Severity:    secevent.SeverityMedium,
		Description: "password reset completed",
		Request:     reqCtx,
	})
	metrics.AuthResetCompletionsTotal.Inc()

	return nil
}
