// Copyright 2025 RapidRide Contributors
// Licensed under the EUPL-1.2

package rate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisGate(t *testing.T, limit int, span time.Duration) (*RedisGate, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisGate(client, limit, span), mr
}

func TestRedisGateAllowsWithinLimit(t *testing.T) {
	ctx := context.Background()
	gate, _ := newTestRedisGate(t, 3, time.Minute)

	for range 3 {
		require.NoError(t, gate.Allow(ctx, "signup:a@b.com"))
	}
	assert.ErrorIs(t, gate.Allow(ctx, "signup:a@b.com"), ErrRateLimited)
}

func TestRedisGateKeysIndependent(t *testing.T) {
	ctx := context.Background()
	gate, _ := newTestRedisGate(t, 1, time.Minute)

	require.NoError(t, gate.Allow(ctx, "signup:a@b.com"))
	assert.ErrorIs(t, gate.Allow(ctx, "signup:a@b.com"), ErrRateLimited)
	assert.NoError(t, gate.Allow(ctx, "signup:c@d.com"))
}

func TestRedisGateWindowExpires(t *testing.T) {
	ctx := context.Background()
	gate, mr := newTestRedisGate(t, 1, time.Minute)

	require.NoError(t, gate.Allow(ctx, "signup:a@b.com"))
	assert.ErrorIs(t, gate.Allow(ctx, "signup:a@b.com"), ErrRateLimited)

	mr.FastForward(2 * time.Minute)
	assert.NoError(t, gate.Allow(ctx, "signup:a@b.com"))
}

func TestRedisGateFailsOpenWhenUnavailable(t *testing.T) {
	ctx := context.Background()
	gate, mr := newTestRedisGate(t, 1, time.Minute)
	mr.Close()

	// An outage must not block issuance; the limiter degrades instead.
	for range 3 {
		assert.NoError(t, gate.Allow(ctx, "signup:a@b.com"))
	}
}
