// Copyright 2025 RapidRide Contributors
// Licensed under the EUPL-1.2

package otp

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound means no code exists for the identity and purpose.
	ErrNotFound = errors.New("code not found")

	// ErrExpired means a code existed but its lifetime has passed. Stores
	// delete the entry before returning this.
	ErrExpired = errors.New("code expired")

	// ErrStoreUnavailable means the backend could not be reached at all.
	ErrStoreUnavailable = errors.New("code store unavailable")
)

// Record is a stored verification code. Secret is either the code itself
// or its SHA-256 hex digest; Hashed tells the engine which comparison to
// run. Attempts counts failed verifications against this code.
type Record struct {
	Secret    string    `json:"secret"`
	Hashed    bool      `json:"hashed"`
	ExpiresAt time.Time `json:"expires_at"`
	Attempts  int       `json:"attempts"`
}

// Expired reports whether the record's lifetime has passed at now.
func (r Record) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Store holds at most one active code per (identity, purpose). Put
// replaces any existing entry. Get returns ErrExpired for entries past
// their lifetime and removes them. Fail bumps the failed-attempt counter
// and returns the new count.
type Store interface {
	Put(ctx context.Context, purpose Purpose, identity string, rec Record) error
	Get(ctx context.Context, purpose Purpose, identity string) (Record, error)
	Delete(ctx context.Context, purpose Purpose, identity string) error
	Fail(ctx context.Context, purpose Purpose, identity string) (int, error)
}
