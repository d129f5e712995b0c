// Copyright 2025 RapidRide Contributors
// Licensed under the EUPL-1.2

package otp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "otp:"

// expiredGrace keeps a key in redis past its logical lifetime so a late
// verification can be told "expired" instead of "not found".
const expiredGrace = time.Hour

// failScript bumps the attempt counter inside the JSON record without
// touching the key's remaining TTL.
var failScript = redis.NewScript(`
local raw = redis.call("GET", KEYS[1])
if not raw then
	return redis.error_reply("NOTFOUND")
end
local rec = cjson.decode(raw)
rec.attempts = rec.attempts + 1
redis.call("SET", KEYS[1], cjson.encode(rec), "KEEPTTL")
return rec.attempts
`)

// RedisStore keeps codes in redis with a TTL slightly past the code's
// logical lifetime. Logical expiry is checked on read.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisStore returns a store backed by the given redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func (s *RedisStore) key(purpose Purpose, identity string) string {
	return redisKeyPrefix + purpose.Key(identity)
}

// Put stores rec, replacing any existing entry for the same key.
func (s *RedisStore) Put(ctx context.Context, purpose Purpose, identity string, rec Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal code record: %w", err)
	}
	ttl := rec.ExpiresAt.Sub(s.now()) + expiredGrace
	if ttl <= 0 {
		ttl = expiredGrace
	}
	if err := s.client.Set(ctx, s.key(purpose, identity), raw, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Get returns the stored record, removing and reporting entries whose
// logical lifetime has passed as ErrExpired.
func (s *RedisStore) Get(ctx context.Context, purpose Purpose, identity string) (Record, error) {
	raw, err := s.client.Get(ctx, s.key(purpose, identity)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, fmt.Errorf("unmarshal code record: %w", err)
	}
	if rec.Expired(s.now()) {
		_ = s.client.Del(ctx, s.key(purpose, identity)).Err()
		return Record{}, ErrExpired
	}
	return rec, nil
}

// Delete removes the entry. Deleting a missing entry is not an error.
func (s *RedisStore) Delete(ctx context.Context, purpose Purpose, identity string) error {
	if err := s.client.Del(ctx, s.key(purpose, identity)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Fail atomically increments the failed-attempt counter and returns the
// new count. The key's remaining TTL is preserved.
func (s *RedisStore) Fail(ctx context.Context, purpose Purpose, identity string) (int, error) {
	n, err := failScript.Run(ctx, s.client, []string{s.key(purpose, identity)}).Int()
	if err != nil {
		if strings.Contains(err.Error(), "NOTFOUND") {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return n, nil
}

// Ping reports whether the backing redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
