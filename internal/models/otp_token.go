// Copyright 2025 RapidRide Contributors
// Licensed under the EUPL-1.2

package models

import "time"

// OTPToken is the durable form of an active verification code. Only the
// SHA-256 hash of the code is stored; the UNIQUE(identity, purpose) index
// enforces the one-active-code invariant structurally.
type OTPToken struct { //nolint:govet // fieldalignment: readability over optimization
	ID        int64     `db:"id" json:"id"`
	Identity  string    `db:"identity" json:"identity"`
	Purpose   string    `db:"purpose" json:"purpose"`
	CodeHash  string    `db:"code_hash" json:"-"` // SHA256 hash
	Attempts  int       `db:"attempts" json:"attempts"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
}

// RefreshToken stores a hashed opaque refresh token for session renewal.
type RefreshToken struct { //nolint:govet // fieldalignment: readability over optimization
	ID        int64      `db:"id" json:"id"`
	UserID    int64      `db:"user_id" json:"user_id"`
	TokenHash string     `db:"token_hash" json:"-"` // SHA256 hash
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	ExpiresAt time.Time  `db:"expires_at" json:"expires_at"`
	RevokedAt *time.Time `db:"revoked_at" json:"-"`
}
