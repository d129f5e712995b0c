// Copyright 2025 RapidRide Contributors
// Licensed under the EUPL-1.2

package flows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrPendingNotFound means no pending payload exists for the key, or it
// has lapsed.
var ErrPendingNotFound = errors.New("pending payload not found")

// PendingSignup is the flow-local payload stashed between the signup
// send-otp and verify-complete steps. The password stays plaintext until
// completion hashes it; the payload lives only in the pending store and
// dies with the flow.
type PendingSignup struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password"`
}

// PendingReset marks an in-flight password reset.
type PendingReset struct {
	Email string `json:"email"`
}

const (
	kindSignup = "signup"
	kindReset  = "reset"
)

// PendingStore holds flow-local payloads under a TTL, keyed by kind and
// identity. Payloads are JSON round-tripped so memory and redis backends
// behave identically.
type PendingStore interface {
	Put(ctx context.Context, kind, key string, payload any, ttl time.Duration) error
	Get(ctx context.Context, kind, key string, out any) error
	Delete(ctx context.Context, kind, key string) error
}

type pendingEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryPending keeps pending payloads in process.
type MemoryPending struct {
	mu      sync.Mutex
	entries map[string]pendingEntry
	now     func() time.Time
}

// NewMemoryPending returns an empty in-process pending store.
func NewMemoryPending() *MemoryPending {
	return &MemoryPending{
		entries: make(map[string]pendingEntry),
		now:     time.Now,
	}
}

func pendingKey(kind, key string) string {
	return kind + ":" + key
}

func (s *MemoryPending) Put(_ context.Context, kind, key string, payload any, ttl time.Duration) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal pending payload: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[pendingKey(kind, key)] = pendingEntry{data: data, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryPending) Get(_ context.Context, kind, key string, out any) error {
	s.mu.Lock()
	entry, ok := s.entries[pendingKey(kind, key)]
	if ok && s.now().After(entry.expiresAt) {
		delete(s.entries, pendingKey(kind, key))
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		return ErrPendingNotFound
	}
	return json.Unmarshal(entry.data, out)
}

func (s *MemoryPending) Delete(_ context.Context, kind, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, pendingKey(kind, key))
	return nil
}

// StartSweeper removes lapsed payloads every interval until ctx is done.
func (s *MemoryPending) StartSweeper(ctx context.Context, interval time.Duration) {
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

func (s *MemoryPending) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for key, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, key)
		}
	}
}

// RedisPending keeps pending payloads in redis, letting its key TTLs do
// the eviction.
type RedisPending struct {
	client *redis.Client
}

// NewRedisPending returns a redis-backed pending store.
func NewRedisPending(client *redis.Client) *RedisPending {
	return &RedisPending{client: client}
}

func (s *RedisPending) Put(ctx context.Context, kind, key string, payload any, ttl time.Duration) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal pending payload: %w", err)
	}
	return s.client.Set(ctx, "pending:"+pendingKey(kind, key), data, ttl).Err()
}

func (s *RedisPending) Get(ctx context.Context, kind, key string, out any) error {
	data, err := s.client.Get(ctx, "pending:"+pendingKey(kind, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrPendingNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func (s *RedisPending) Delete(ctx context.Context, kind, key string) error {
	return s.client.Del(ctx, "pending:"+pendingKey(kind, key)).Err()
}
