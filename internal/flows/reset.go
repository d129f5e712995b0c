// Copyright 2025 RapidRide Contributors
// Licensed under the EUPL-1.2

package flows

import (
	"context"
	"errors"
	"fmt"

	"github.com/rapidride/verifyd/internal/otp"
	"github.com/rapidride/verifyd/internal/repository"
)

// Reset drives the password-reset flow: prove control of the mailbox
// with a code, then set the new password.
type Reset struct {
	cfg Config
}

// NewReset builds the password-reset state machine.
func NewReset(cfg Config) *Reset {
	return &Reset{cfg: cfg}
}

// Initiate issues a reset code to a registered email. An unknown email
// answers ErrUserNotFound; callers surface that as-is rather than
// pretending a mail was sent.
func (r *Reset) Initiate(ctx context.Context, email string) (string, error) {
	email = NormalizeEmail(email)

	if _, err := r.cfg.Repo.GetUserByEmail(ctx, email); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("look up account: %w", err)
	}

	code, err := r.cfg.Engine.Issue(ctx, otp.PurposePasswordReset, email)
	if err != nil {
		return "", err
	}

	ttl := r.cfg.Engine.TTL(otp.PurposePasswordReset)
	if err := r.cfg.Pending.Put(ctx, kindReset, email, PendingReset{Email: email}, ttl); err != nil {
		return "", fmt.Errorf("stash pending reset: %w", err)
	}

	if err := r.cfg.deliverCode(ctx, otp.PurposePasswordReset, email, code); err != nil {
		return "", err
	}

	r.cfg.logger().Info("password_reset_initiated", "email", email)
	return code, nil
}

// Complete verifies the reset code and sets the new password. Every
// outstanding refresh token of the account is revoked, so stolen
// sessions die with the old password.
func (r *Reset) Complete(ctx context.Context, email, code, newPassword string) error {
	email = NormalizeEmail(email)

	var pending PendingReset
	if err := r.cfg.Pending.Get(ctx, kindReset, email, &pending); err != nil {
		if errors.Is(err, ErrPendingNotFound) {
			return ErrNoSession
		}
		return fmt.Errorf("load pending reset: %w", err)
	}

	validation := r.cfg.validator().Validate(newPassword, email)
	if !validation.Valid {
		return &PasswordValidationError{Errors: validation.Errors}
	}

	result, err := r.cfg.Engine.Verify(ctx, otp.PurposePasswordReset, email, code)
	if err != nil {
		return err
	}
	switch result {
	case otp.ResultInvalid:
		return ErrCodeInvalid
	case otp.ResultExpired:
		_ = r.cfg.Pending.Delete(ctx, kindReset, email)
		return ErrCodeExpired
	case otp.ResultNotFound:
		return ErrCodeNotFound
	}

	// Re-fetch: the account could have vanished while the code was in
	// flight.
	user, err := r.cfg.Repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("look up account: %w", err)
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := r.cfg.Repo.UpdateUserPassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	_ = r.cfg.Pending.Delete(ctx, kindReset, email)

	if err := r.cfg.Tokens.RevokeAll(ctx, user.ID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}

	if err := r.cfg.Notifier.SendPasswordChanged(ctx, user.Email, user.Name); err != nil {
		r.cfg.logger().Warn("password_changed_notice_failed", "email", user.Email, "error", err)
	}

	r.cfg.logger().Info("password_reset_completed", "user_id", user.ID)
	return nil
}
