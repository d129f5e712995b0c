// Copyright 2025 RapidRide Contributors
// Licensed under the EUPL-1.2

package otp

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorePutGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	rec := Record{Secret: "123456", ExpiresAt: time.Now().Add(time.Minute)}

	require.NoError(t, store.Put(ctx, PurposeSignup, "a@b.com", rec))

	got, err := store.Get(ctx, PurposeSignup, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "123456", got.Secret)
	assert.False(t, got.Hashed)
}

func TestMemoryStorePutReplaces(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	expires := time.Now().Add(time.Minute)

	require.NoError(t, store.Put(ctx, PurposeSignup, "a@b.com", Record{Secret: "111111", ExpiresAt: expires}))
	require.NoError(t, store.Put(ctx, PurposeSignup, "a@b.com", Record{Secret: "222222", ExpiresAt: expires}))

	got, err := store.Get(ctx, PurposeSignup, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "222222", got.Secret)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStorePurposesIsolated(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	expires := time.Now().Add(time.Minute)

	require.NoError(t, store.Put(ctx, PurposeSignup, "a@b.com", Record{Secret: "111111", ExpiresAt: expires}))
	require.NoError(t, store.Put(ctx, PurposeLogin, "a@b.com", Record{Secret: "222222", ExpiresAt: expires}))

	got, err := store.Get(ctx, PurposeSignup, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "111111", got.Secret)

	got, err = store.Get(ctx, PurposeLogin, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "222222", got.Secret)
}

func TestMemoryStoreExpiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()

	current := time.Now()
	store.now = func() time.Time { return current }

	require.NoError(t, store.Put(ctx, PurposeSignup, "a@b.com", Record{
		Secret:    "123456",
		ExpiresAt: current.Add(time.Minute),
	}))

	current = current.Add(2 * time.Minute)

	_, err := store.Get(ctx, PurposeSignup, "a@b.com")
	assert.ErrorIs(t, err, ErrExpired)

	// The expired entry is gone; a second read no longer knows it existed.
	_, err = store.Get(ctx, PurposeSignup, "a@b.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Put(ctx, PurposeSignup, "a@b.com", Record{
		Secret:    "123456",
		ExpiresAt: time.Now().Add(time.Minute),
	}))
	require.NoError(t, store.Delete(ctx, PurposeSignup, "a@b.com"))

	_, err := store.Get(ctx, PurposeSignup, "a@b.com")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting again is a no-op.
	require.NoError(t, store.Delete(ctx, PurposeSignup, "a@b.com"))
}

func TestMemoryStoreFail(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Put(ctx, PurposeSignup, "a@b.com", Record{
		Secret:    "123456",
		ExpiresAt: time.Now().Add(time.Minute),
	}))

	n, err := store.Fail(ctx, PurposeSignup, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = store.Fail(ctx, PurposeSignup, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = store.Fail(ctx, PurposeSignup, "missing@b.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreSweep(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()

	current := time.Now()
	store.now = func() time.Time { return current }

	require.NoError(t, store.Put(ctx, PurposeSignup, "a@b.com", Record{Secret: "111111", ExpiresAt: current.Add(time.Minute)}))
	require.NoError(t, store.Put(ctx, PurposeSignup, "b@b.com", Record{Secret: "222222", ExpiresAt: current.Add(time.Hour)}))

	current = current.Add(30 * time.Minute)
	store.sweep()

	assert.Equal(t, 1, store.Len())
	_, err := store.Get(ctx, PurposeSignup, "b@b.com")
	assert.NoError(t, err)
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	expires := time.Now().Add(time.Minute)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			identity := string(rune('a'+n%5)) + "@b.com"
			_ = store.Put(ctx, PurposeSignup, identity, Record{Secret: "123456", ExpiresAt: expires})
			_, _ = store.Get(ctx, PurposeSignup, identity)
			_, _ = store.Fail(ctx, PurposeSignup, identity)
			_ = store.Delete(ctx, PurposeSignup, identity)
		}(i)
	}
	wg.Wait()
}
