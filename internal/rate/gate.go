// Copyright 2025 RapidRide Contributors
// Licensed under the EUPL-1.2

// Package rate provides fixed-window issuance limiting for verification
// codes, keyed by identity and purpose.
package rate

import (
	"context"
	"errors"
)

// ErrRateLimited means the key has exhausted its window allowance.
var ErrRateLimited = errors.New("rate limit exceeded")

// Gate admits or rejects an action under a key. Allow counts the attempt
// and returns ErrRateLimited once the window allowance is spent.
type Gate interface {
	Allow(ctx context.Context, key string) error
}

// NopGate admits everything. Used in tests and when limiting is disabled.
type NopGate struct{}

func (NopGate) Allow(context.Context, string) error { return nil }
