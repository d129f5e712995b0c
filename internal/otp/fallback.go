// Copyright 2025 RapidRide Contributors
// Licensed under the EUPL-1.2

package otp

import (
	"context"
	"errors"
	"log/slog"
)

// FallbackStore chains a primary store with a fallback. Backend failures
// on the primary are absorbed with a warning and the call retried on the
// fallback; callers only see an error when every backend is down. When a
// Put lands on the primary, any stale entry in the fallback is cleared so
// a dead code cannot resurface after a failover.
type FallbackStore struct {
	primary  Store
	fallback Store
	logger   *slog.Logger
}

// NewFallbackStore chains primary and fallback.
func NewFallbackStore(primary, fallback Store, logger *slog.Logger) *FallbackStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackStore{primary: primary, fallback: fallback, logger: logger}
}

func (s *FallbackStore) degraded(op string, err error) {
	s.logger.Warn("code_store_degraded", "op", op, "error", err)
}

// Put writes to the primary, falling back on backend failure.
func (s *FallbackStore) Put(ctx context.Context, purpose Purpose, identity string, rec Record) error {
	err := s.primary.Put(ctx, purpose, identity, rec)
	if err == nil {
		// An older code may still sit in the fallback from a previous
		// degradation; it must not stay verifiable.
		if derr := s.fallback.Delete(ctx, purpose, identity); derr != nil && !errors.Is(derr, ErrNotFound) {
			s.degraded("put_cleanup", derr)
		}
		return nil
	}
	if !errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	s.degraded("put", err)
	return s.fallback.Put(ctx, purpose, identity, rec)
}

// Get reads from the primary, falling back on backend failure. A miss on
// the primary also consults the fallback, so a code issued during an
// outage still verifies once the primary is back.
func (s *FallbackStore) Get(ctx context.Context, purpose Purpose, identity string) (Record, error) {
	rec, err := s.primary.Get(ctx, purpose, identity)
	switch {
	case err == nil:
		return rec, nil
	case errors.Is(err, ErrStoreUnavailable):
		s.degraded("get", err)
		return s.fallback.Get(ctx, purpose, identity)
	case errors.Is(err, ErrNotFound):
		if rec, ferr := s.fallback.Get(ctx, purpose, identity); ferr == nil {
			return rec, nil
		}
		return Record{}, err
	default:
		return rec, err
	}
}

// Delete removes the entry from every backend that will answer.
func (s *FallbackStore) Delete(ctx context.Context, purpose Purpose, identity string) error {
	perr := s.primary.Delete(ctx, purpose, identity)
	if perr != nil && errors.Is(perr, ErrStoreUnavailable) {
		s.degraded("delete", perr)
		perr = nil
	}
	ferr := s.fallback.Delete(ctx, purpose, identity)
	if ferr != nil && errors.Is(ferr, ErrStoreUnavailable) {
		s.degraded("delete_fallback", ferr)
		ferr = nil
	}
	if perr != nil {
		return perr
	}
	return ferr
}

// Fail bumps the counter on whichever backend holds the code.
func (s *FallbackStore) Fail(ctx context.Context, purpose Purpose, identity string) (int, error) {
	n, err := s.primary.Fail(ctx, purpose, identity)
	switch {
	case err == nil:
		return n, nil
	case errors.Is(err, ErrStoreUnavailable):
		s.degraded("fail", err)
		return s.fallback.Fail(ctx, purpose, identity)
	case errors.Is(err, ErrNotFound):
		if n, ferr := s.fallback.Fail(ctx, purpose, identity); ferr == nil {
			return n, nil
		}
		return 0, err
	default:
		return n, err
	}
}
