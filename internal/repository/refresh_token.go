// Copyright 2025 RapidRide Contributors
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"github.com/rapidride/verifyd/internal/models"
)

// CreateRefreshToken stores the hash of an issued refresh token.
func (r *Repository) CreateRefreshToken(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?, ?, ?)`,
		userID, tokenHash, expiresAt)
	return wrapError(err)
}

// GetRefreshToken retrieves a refresh token row by hash. Revoked and
// expired rows are not returned.
func (r *Repository) GetRefreshToken(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	err := r.db.GetContext(ctx, &token,
		`SELECT * FROM refresh_tokens
		 WHERE token_hash = ? AND revoked_at IS NULL AND expires_at > ?`,
		tokenHash, time.Now().UTC())
	if err != nil {
		return nil, wrapError(err)
	}
	return &token, nil
}

// RevokeRefreshToken marks a refresh token as revoked. Idempotent.
func (r *Repository) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = ? WHERE token_hash = ? AND revoked_at IS NULL`,
		time.Now().UTC(), tokenHash)
	return err
}

// RevokeUserRefreshTokens revokes every live refresh token of a user.
// Called after a completed password reset.
func (r *Repository) RevokeUserRefreshTokens(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = ? WHERE user_id = ? AND revoked_at IS NULL`,
		time.Now().UTC(), userID)
	return err
}

// DeleteExpiredRefreshTokens removes rows past expiry.
func (r *Repository) DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at < ?`, now)
	return err
}
