// Copyright 2025 RapidRide Contributors
// Licensed under the EUPL-1.2

package otp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rapidride/verifyd/internal/models"
	"github.com/rapidride/verifyd/internal/repository"
)

// SQLStore persists codes in the otp_tokens table. Only the SHA-256 of
// the code is written; records read back carry Hashed=true so the engine
// hashes the submitted code before comparing.
type SQLStore struct {
	repo *repository.Repository
	now  func() time.Time
}

// NewSQLStore returns a store backed by the given repository.
func NewSQLStore(repo *repository.Repository) *SQLStore {
	return &SQLStore{repo: repo, now: time.Now}
}

// Put stores the record, replacing any existing row for the same key.
// Plaintext secrets are hashed before they hit the database.
func (s *SQLStore) Put(ctx context.Context, purpose Purpose, identity string, rec Record) error {
	secret := rec.Secret
	if !rec.Hashed {
		secret = HashCode(secret)
	}
	token := &models.OTPToken{
		Identity:  identity,
		Purpose:   purpose.String(),
		CodeHash:  secret,
		Attempts:  rec.Attempts,
		CreatedAt: s.now(),
		ExpiresAt: rec.ExpiresAt,
	}
	if err := s.repo.UpsertOTPToken(ctx, token); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Get returns the stored record, removing and reporting rows whose
// lifetime has passed as ErrExpired.
func (s *SQLStore) Get(ctx context.Context, purpose Purpose, identity string) (Record, error) {
	token, err := s.repo.GetOTPToken(ctx, identity, purpose.String())
	if errors.Is(err, repository.ErrNotFound) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	rec := Record{
		Secret:    token.CodeHash,
		Hashed:    true,
		ExpiresAt: token.ExpiresAt,
		Attempts:  token.Attempts,
	}
	if rec.Expired(s.now()) {
		_ = s.repo.DeleteOTPToken(ctx, identity, purpose.String())
		return Record{}, ErrExpired
	}
	return rec, nil
}

// Delete removes the row. Deleting a missing row is not an error.
func (s *SQLStore) Delete(ctx context.Context, purpose Purpose, identity string) error {
	if err := s.repo.DeleteOTPToken(ctx, identity, purpose.String()); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Fail increments the failed-attempt counter and returns the new count.
func (s *SQLStore) Fail(ctx context.Context, purpose Purpose, identity string) (int, error) {
	n, err := s.repo.BumpOTPAttempts(ctx, identity, purpose.String())
	if errors.Is(err, repository.ErrNotFound) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return n, nil
}

// StartSweeper deletes expired rows every interval until ctx is done.
func (s *SQLStore) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = s.repo.DeleteExpiredOTPTokens(ctx, s.now())
			}
		}
	}()
}
