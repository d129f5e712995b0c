// Copyright 2025 RapidRide Contributors
// Licensed under the EUPL-1.2

package otp

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps codes in a mutex-guarded map. Expiry is enforced on
// read; a background sweeper reclaims entries nobody reads again.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Record
	now     func() time.Time
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]Record),
		now:     time.Now,
	}
}

// Put stores rec under (purpose, identity), replacing any existing entry.
func (s *MemoryStore) Put(_ context.Context, purpose Purpose, identity string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[purpose.Key(identity)] = rec
	return nil
}

// Get returns the stored record. Entries past their lifetime are removed
// and reported as ErrExpired.
func (s *MemoryStore) Get(_ context.Context, purpose Purpose, identity string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := purpose.Key(identity)
	rec, ok := s.entries[key]
	if !ok {
		return Record{}, ErrNotFound
	}
	if rec.Expired(s.now()) {
		delete(s.entries, key)
		return Record{}, ErrExpired
	}
	return rec, nil
}

// Delete removes the entry. Deleting a missing entry is not an error.
func (s *MemoryStore) Delete(_ context.Context, purpose Purpose, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, purpose.Key(identity))
	return nil
}

// Fail increments the failed-attempt counter and returns the new count.
func (s *MemoryStore) Fail(_ context.Context, purpose Purpose, identity string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := purpose.Key(identity)
	rec, ok := s.entries[key]
	if !ok {
		return 0, ErrNotFound
	}
	if rec.Expired(s.now()) {
		delete(s.entries, key)
		return 0, ErrExpired
	}
	rec.Attempts++
	s.entries[key] = rec
	return rec.Attempts, nil
}

// StartSweeper removes expired entries every interval until ctx is done.
func (s *MemoryStore) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	}()
}

func (s *MemoryStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for key, rec := range s.entries {
		if rec.Expired(now) {
			delete(s.entries, key)
		}
	}
}

// Len reports the number of live entries, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
