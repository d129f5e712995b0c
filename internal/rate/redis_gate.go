// Copyright 2025 RapidRide Contributors
// Licensed under the EUPL-1.2

package rate

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// allowScript implements a fixed window: the first call sets the counter
// with the window as TTL, later calls increment until the limit is hit.
var allowScript = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if current == false then
	redis.call("SET", KEYS[1], 1, "EX", ARGV[2])
	return 1
end
current = tonumber(current)
if current < tonumber(ARGV[1]) then
	return redis.call("INCR", KEYS[1])
end
return 0
`)

// RedisGate is a fixed-window limiter shared across processes.
type RedisGate struct {
	client *redis.Client
	limit  int
	span   time.Duration
}

// NewRedisGate returns a gate admitting limit calls per key per span.
func NewRedisGate(client *redis.Client, limit int, span time.Duration) *RedisGate {
	return &RedisGate{client: client, limit: limit, span: span}
}

// Allow counts one attempt for key, returning ErrRateLimited once the
// window allowance is spent. A Redis outage fails open: throttling is a
// protection, not a correctness requirement, and the code store has its
// own fallback for the same outage.
func (g *RedisGate) Allow(ctx context.Context, key string) error {
	n, err := allowScript.Run(ctx, g.client,
		[]string{"gate:" + key},
		g.limit, int(g.span.Seconds()),
	).Int()
	if err != nil {
		slog.Warn("rate_gate_degraded", "key", key, "error", err)
		return nil
	}
	if n == 0 {
		return ErrRateLimited
	}
	return nil
}
