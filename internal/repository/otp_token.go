// Copyright 2025 RapidRide Contributors
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"github.com/rapidride/verifyd/internal/models"
)

// UpsertOTPToken writes the active code for (identity, purpose), replacing
// any previous row so at most one active code exists per key.
func (r *Repository) UpsertOTPToken(ctx context.Context, token *models.OTPToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO otp_tokens (identity, purpose, code_hash, attempts, created_at, expires_at)
		 VALUES (?, ?, ?, 0, ?, ?)
		 ON CONFLICT (identity, purpose) DO UPDATE SET
		   code_hash = excluded.code_hash,
		   attempts = 0,
		   created_at = excluded.created_at,
		   expires_at = excluded.expires_at`,
		token.Identity, token.Purpose, token.CodeHash, token.CreatedAt, token.ExpiresAt)
	return wrapError(err)
}

// GetOTPToken retrieves the active code row for (identity, purpose),
// including expired rows; expiry is the caller's concern.
func (r *Repository) GetOTPToken(ctx context.Context, identity, purpose string) (*models.OTPToken, error) {
	var token models.OTPToken
	err := r.db.GetContext(ctx, &token,
		`SELECT * FROM otp_tokens WHERE identity = ? AND purpose = ?`, identity, purpose)
	if err != nil {
		return nil, wrapError(err)
	}
	return &token, nil
}

// DeleteOTPToken removes the code row for (identity, purpose). Idempotent.
func (r *Repository) DeleteOTPToken(ctx context.Context, identity, purpose string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM otp_tokens WHERE identity = ? AND purpose = ?`, identity, purpose)
	return err
}

// BumpOTPAttempts increments the wrong-submission counter and returns the
// new value.
func (r *Repository) BumpOTPAttempts(ctx context.Context, identity, purpose string) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE otp_tokens SET attempts = attempts + 1 WHERE identity = ? AND purpose = ?`,
		identity, purpose)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		return 0, ErrNotFound
	}

	var attempts int
	err = r.db.GetContext(ctx, &attempts,
		`SELECT attempts FROM otp_tokens WHERE identity = ? AND purpose = ?`, identity, purpose)
	if err != nil {
		return 0, wrapError(err)
	}
	return attempts, nil
}

// DeleteExpiredOTPTokens removes rows past their expiry. Run periodically;
// correctness does not depend on it since reads check expiry themselves.
func (r *Repository) DeleteExpiredOTPTokens(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM otp_tokens WHERE expires_at < ?`, now)
	return err
}
