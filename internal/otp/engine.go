// Copyright 2025 RapidRide Contributors
// Licensed under the EUPL-1.2

package otp

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rapidride/verifyd/internal/rate"
)

// Result is the outcome of a verification attempt.
type Result int

const (
	// ResultConsumed means the code matched and has been removed.
	ResultConsumed Result = iota
	// ResultInvalid means a live code exists but the submission did not match.
	ResultInvalid
	// ResultExpired means the code's lifetime had already passed.
	ResultExpired
	// ResultNotFound means no code exists for the identity and purpose.
	ResultNotFound
)

func (r Result) String() string {
	switch r {
	case ResultConsumed:
		return "consumed"
	case ResultInvalid:
		return "invalid"
	case ResultExpired:
		return "expired"
	case ResultNotFound:
		return "not_found"
	}
	return "unknown"
}

// ErrRateLimited is re-exported so engine callers need not import rate.
var ErrRateLimited = rate.ErrRateLimited

// Engine issues and verifies single-use codes. One code is live per
// (identity, purpose) at any time; issuing replaces, verifying consumes.
type Engine struct {
	gen         *Generator
	store       Store
	gate        rate.Gate
	ttls        map[Purpose]time.Duration
	defaultTTL  time.Duration
	maxAttempts int
	logger      *slog.Logger
	now         func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithTTL overrides the lifetime for one purpose.
func WithTTL(purpose Purpose, ttl time.Duration) EngineOption {
	return func(e *Engine) { e.ttls[purpose] = ttl }
}

// WithGate installs an issuance limiter. Without one, issuance is unlimited.
func WithGate(gate rate.Gate) EngineOption {
	return func(e *Engine) { e.gate = gate }
}

// WithMaxAttempts sets how many failed verifications kill a code.
func WithMaxAttempts(n int) EngineOption {
	return func(e *Engine) { e.maxAttempts = n }
}

// WithClock replaces the engine's time source.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine builds an engine over the given code store. The default code
// lifetime is 10 minutes and codes die after 5 failed attempts.
func NewEngine(gen *Generator, store Store, logger *slog.Logger, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		gen:         gen,
		store:       store,
		gate:        rate.NopGate{},
		ttls:        make(map[Purpose]time.Duration),
		defaultTTL:  10 * time.Minute,
		maxAttempts: 5,
		logger:      logger,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// TTL returns the configured lifetime for a purpose.
func (e *Engine) TTL(purpose Purpose) time.Duration {
	if ttl, ok := e.ttls[purpose]; ok {
		return ttl
	}
	return e.defaultTTL
}

// Issue generates a fresh code for (identity, purpose) and stores it,
// replacing any code already live for that key. The plaintext code is
// returned once, for delivery; it is never readable again.
func (e *Engine) Issue(ctx context.Context, purpose Purpose, identity string) (string, error) {
	return e.IssueWithTTL(ctx, purpose, identity, e.TTL(purpose))
}

// IssueWithTTL is Issue with an explicit lifetime instead of the
// purpose's configured one.
func (e *Engine) IssueWithTTL(ctx context.Context, purpose Purpose, identity string, ttl time.Duration) (string, error) {
	if !purpose.Valid() {
		return "", fmt.Errorf("unknown purpose %q", purpose)
	}
	if err := e.gate.Allow(ctx, purpose.Key(identity)); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			e.logger.Info("code_issue_limited", "purpose", purpose, "identity", identity)
		}
		return "", err
	}

	code, err := e.gen.Generate()
	if err != nil {
		return "", err
	}
	rec := Record{
		Secret:    code,
		ExpiresAt: e.now().Add(ttl),
	}
	if err := e.store.Put(ctx, purpose, identity, rec); err != nil {
		return "", fmt.Errorf("store code: %w", err)
	}

	e.logger.Info("code_issued", "purpose", purpose, "identity", identity, "expires_at", rec.ExpiresAt)
	return code, nil
}

// Reissue is Issue under another name: the old code, if any, is replaced
// and stops verifying the moment the new one is stored.
func (e *Engine) Reissue(ctx context.Context, purpose Purpose, identity string) (string, error) {
	return e.Issue(ctx, purpose, identity)
}

// Verify checks a submitted code. A match consumes the code; it can never
// verify twice. A mismatch counts against the code's attempt allowance,
// and the code is withdrawn once the allowance is spent. Only backend
// failures surface as a non-nil error.
func (e *Engine) Verify(ctx context.Context, purpose Purpose, identity, submitted string) (Result, error) {
	rec, err := e.store.Get(ctx, purpose, identity)
	switch {
	case errors.Is(err, ErrNotFound):
		e.logger.Info("code_rejected", "purpose", purpose, "identity", identity, "reason", "not_found")
		return ResultNotFound, nil
	case errors.Is(err, ErrExpired):
		e.logger.Info("code_rejected", "purpose", purpose, "identity", identity, "reason", "expired")
		return ResultExpired, nil
	case err != nil:
		return ResultNotFound, fmt.Errorf("load code: %w", err)
	}

	if !e.matches(rec, submitted) {
		attempts, ferr := e.store.Fail(ctx, purpose, identity)
		if ferr != nil && !errors.Is(ferr, ErrNotFound) && !errors.Is(ferr, ErrExpired) {
			return ResultInvalid, fmt.Errorf("record failed attempt: %w", ferr)
		}
		if attempts >= e.maxAttempts {
			if derr := e.store.Delete(ctx, purpose, identity); derr != nil {
				return ResultInvalid, fmt.Errorf("withdraw code: %w", derr)
			}
			e.logger.Warn("code_withdrawn", "purpose", purpose, "identity", identity, "attempts", attempts)
		}
		e.logger.Info("code_rejected", "purpose", purpose, "identity", identity, "reason", "mismatch", "attempts", attempts)
		return ResultInvalid, nil
	}

	if err := e.store.Delete(ctx, purpose, identity); err != nil {
		return ResultInvalid, fmt.Errorf("consume code: %w", err)
	}
	e.logger.Info("code_consumed", "purpose", purpose, "identity", identity)
	return ResultConsumed, nil
}

func (e *Engine) matches(rec Record, submitted string) bool {
	stored := rec.Secret
	if rec.Hashed {
		submitted = HashCode(submitted)
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(submitted)) == 1
}
