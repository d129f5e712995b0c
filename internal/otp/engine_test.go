// Copyright 2025 RapidRide Contributors
// Licensed under the EUPL-1.2

package otp

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rapidride/verifyd/internal/rate"
)

func newTestEngine(t *testing.T, opts ...EngineOption) (*Engine, *MemoryStore) {
	t.Helper()

	store := NewMemoryStore()
	engine := NewEngine(NewGenerator(6), store, slog.Default(), opts...)
	return engine, store
}

func TestEngineIssueVerifyConsume(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, _ := newTestEngine(t)

	code, err := engine.IssueWithTTL(ctx, PurposeSignup, "a@b.com", 300*time.Second)
	require.NoError(t, err)
	assert.Len(t, code, 6)

	result, err := engine.Verify(ctx, PurposeSignup, "a@b.com", code)
	require.NoError(t, err)
	assert.Equal(t, ResultConsumed, result)

	// A consumed code never verifies a second time.
	result, err = engine.Verify(ctx, PurposeSignup, "a@b.com", code)
	require.NoError(t, err)
	assert.Equal(t, ResultNotFound, result)
}

func TestEngineVerifyExpired(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	current := time.Now()
	engine, store := newTestEngine(t, WithClock(func() time.Time { return current }))
	store.now = func() time.Time { return current }

	code, err := engine.IssueWithTTL(ctx, PurposeSignup, "a@b.com", time.Second)
	require.NoError(t, err)

	current = current.Add(1500 * time.Millisecond)

	result, err := engine.Verify(ctx, PurposeSignup, "a@b.com", code)
	require.NoError(t, err)
	assert.Equal(t, ResultExpired, result)

	// The expired record was removed during the check.
	result, err = engine.Verify(ctx, PurposeSignup, "a@b.com", code)
	require.NoError(t, err)
	assert.Equal(t, ResultNotFound, result)
}

func TestEngineReissueInvalidatesOldCode(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, _ := newTestEngine(t)

	code1, err := engine.Issue(ctx, PurposeSignup, "a@b.com")
	require.NoError(t, err)

	code2, err := engine.Reissue(ctx, PurposeSignup, "a@b.com")
	require.NoError(t, err)

	if code1 == code2 {
		t.Skipf("generator produced the same code twice (p = 1e-6); rerun")
	}

	result, err := engine.Verify(ctx, PurposeSignup, "a@b.com", code1)
	require.NoError(t, err)
	assert.Equal(t, ResultInvalid, result)

	result, err = engine.Verify(ctx, PurposeSignup, "a@b.com", code2)
	require.NoError(t, err)
	assert.Equal(t, ResultConsumed, result)
}

func TestEngineConcurrentReissue(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, _ := newTestEngine(t)

	var wg sync.WaitGroup
	codes := make([]string, 2)
	for i := range codes {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			code, err := engine.Reissue(ctx, PurposeSignup, "a@b.com")
			assert.NoError(t, err)
			codes[n] = code
		}(i)
	}
	wg.Wait()

	if codes[0] == codes[1] {
		t.Skipf("generator produced the same code twice (p = 1e-6); rerun")
	}

	// Exactly one of the two codes is live afterward.
	consumed := 0
	for _, code := range codes {
		result, err := engine.Verify(ctx, PurposeSignup, "a@b.com", code)
		require.NoError(t, err)
		if result == ResultConsumed {
			consumed++
		}
	}
	assert.Equal(t, 1, consumed)
}

func TestEngineExactMatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, _ := newTestEngine(t)

	code, err := engine.Issue(ctx, PurposeSignup, "a@b.com")
	require.NoError(t, err)

	// Whitespace, truncation, or a flipped digit never verify.
	for _, wrong := range []string{code + " ", " " + code, code[:5], code[:5] + "x"} {
		result, err := engine.Verify(ctx, PurposeSignup, "a@b.com", wrong)
		require.NoError(t, err)
		assert.Equal(t, ResultInvalid, result, "submission %q", wrong)
	}

	result, err := engine.Verify(ctx, PurposeSignup, "a@b.com", code)
	require.NoError(t, err)
	assert.Equal(t, ResultConsumed, result)
}

func TestEngineNoCrossPurposeVerify(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, _ := newTestEngine(t)

	code, err := engine.Issue(ctx, PurposeSignup, "a@b.com")
	require.NoError(t, err)

	result, err := engine.Verify(ctx, PurposeLogin, "a@b.com", code)
	require.NoError(t, err)
	assert.Equal(t, ResultNotFound, result)

	result, err = engine.Verify(ctx, PurposeSignup, "a@b.com", code)
	require.NoError(t, err)
	assert.Equal(t, ResultConsumed, result)
}

func TestEngineMaxAttemptsWithdrawsCode(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, _ := newTestEngine(t, WithMaxAttempts(3))

	code, err := engine.Issue(ctx, PurposeSignup, "a@b.com")
	require.NoError(t, err)

	for range 3 {
		result, err := engine.Verify(ctx, PurposeSignup, "a@b.com", "000000x")
		require.NoError(t, err)
		assert.Equal(t, ResultInvalid, result)
	}

	// The allowance is spent; even the right code is dead now.
	result, err := engine.Verify(ctx, PurposeSignup, "a@b.com", code)
	require.NoError(t, err)
	assert.Equal(t, ResultNotFound, result)
}

func TestEngineHashedBackend(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	engine := NewEngine(NewGenerator(6), store, slog.Default())

	// Simulate a backend that only holds the hash.
	require.NoError(t, store.Put(ctx, PurposeSignup, "a@b.com", Record{
		Secret:    HashCode("123456"),
		Hashed:    true,
		ExpiresAt: time.Now().Add(time.Minute),
	}))

	result, err := engine.Verify(ctx, PurposeSignup, "a@b.com", "654321")
	require.NoError(t, err)
	assert.Equal(t, ResultInvalid, result)

	result, err = engine.Verify(ctx, PurposeSignup, "a@b.com", "123456")
	require.NoError(t, err)
	assert.Equal(t, ResultConsumed, result)
}

func TestEngineIssueRateLimited(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	gate := rate.NewMemoryGate(2, time.Minute)
	engine, _ := newTestEngine(t, WithGate(gate))

	_, err := engine.Issue(ctx, PurposeSignup, "a@b.com")
	require.NoError(t, err)
	_, err = engine.Issue(ctx, PurposeSignup, "a@b.com")
	require.NoError(t, err)

	_, err = engine.Issue(ctx, PurposeSignup, "a@b.com")
	assert.ErrorIs(t, err, ErrRateLimited)

	// Another identity is unaffected.
	_, err = engine.Issue(ctx, PurposeSignup, "c@d.com")
	assert.NoError(t, err)
}

func TestEngineFallbackTransparency(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewFallbackStore(brokenStore{}, NewMemoryStore(), slog.Default())
	engine := NewEngine(NewGenerator(6), store, slog.Default())

	// With the primary down the round trip behaves exactly as if it
	// were up.
	code, err := engine.Issue(ctx, PurposeSignup, "a@b.com")
	require.NoError(t, err)

	result, err := engine.Verify(ctx, PurposeSignup, "a@b.com", code)
	require.NoError(t, err)
	assert.Equal(t, ResultConsumed, result)

	result, err = engine.Verify(ctx, PurposeSignup, "a@b.com", code)
	require.NoError(t, err)
	assert.Equal(t, ResultNotFound, result)
}

func TestEngineRejectsUnknownPurpose(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, _ := newTestEngine(t)

	_, err := engine.Issue(ctx, Purpose("mystery"), "a@b.com")
	assert.Error(t, err)
}

func TestEnginePurposeTTLs(t *testing.T) {
	t.Parallel()

	engine, _ := newTestEngine(t,
		WithTTL(PurposeSignup, 10*time.Minute),
		WithTTL(PurposePasswordReset, 5*time.Minute),
	)

	assert.Equal(t, 10*time.Minute, engine.TTL(PurposeSignup))
	assert.Equal(t, 5*time.Minute, engine.TTL(PurposePasswordReset))
	assert.Equal(t, 10*time.Minute, engine.TTL(PurposeLogin)) // default
}
