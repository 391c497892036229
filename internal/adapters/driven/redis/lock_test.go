package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := Connect(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, NewLock(client).Ping(context.Background()))
}

func TestConnect_BadURL(t *testing.T) {
	_, err := Connect(context.Background(), "not a url")
	assert.Error(t, err)
}

func TestNewLock_UniqueOwners(t *testing.T) {
	_, client := newTestRedis(t)

	a, b := NewLock(client), NewLock(client)
	assert.NotEmpty(t, a.Owner())
	assert.NotEqual(t, a.Owner(), b.Owner())
}

func TestLock_AcquireWritesOwnerWithTTL(t *testing.T) {
	mr, client := newTestRedis(t)
	lock := NewLock(client)

	ok, err := lock.Acquire(context.Background(), "sync-run", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := mr.Get(keyPrefix + "sync-run")
	require.NoError(t, err)
	assert.Equal(t, lock.Owner(), got)
	assert.Equal(t, time.Minute, mr.TTL(keyPrefix+"sync-run"))
}

func TestLock_AcquireHeldElsewhere(t *testing.T) {
	_, client := newTestRedis(t)
	ctx := context.Background()
	first, second := NewLock(client), NewLock(client)

	ok, err := first.Acquire(ctx, "sync-run", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = second.Acquire(ctx, "sync-run", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// not reentrant either
	ok, err = first.Acquire(ctx, "sync-run", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLock_ExpiresAfterTTL(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()
	first, second := NewLock(client), NewLock(client)

	ok, err := first.Acquire(ctx, "sync-run", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	ok, err = second.Acquire(ctx, "sync-run", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLock_Release(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()
	lock := NewLock(client)

	_, err := lock.Acquire(ctx, "sync-run", time.Minute)
	require.NoError(t, err)
	require.NoError(t, lock.Release(ctx, "sync-run"))
	assert.False(t, mr.Exists(keyPrefix+"sync-run"))

	// releasing again is harmless
	assert.NoError(t, lock.Release(ctx, "sync-run"))
}

func TestLock_ReleaseByOtherOwnerIsIgnored(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()
	owner, other := NewLock(client), NewLock(client)

	_, err := owner.Acquire(ctx, "sync-run", time.Minute)
	require.NoError(t, err)

	require.NoError(t, other.Release(ctx, "sync-run"))
	assert.True(t, mr.Exists(keyPrefix+"sync-run"))
}

func TestLock_Extend(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()
	lock := NewLock(client)

	_, err := lock.Acquire(ctx, "sync-run", time.Second)
	require.NoError(t, err)

	require.NoError(t, lock.Extend(ctx, "sync-run", time.Minute))
	assert.Equal(t, time.Minute, mr.TTL(keyPrefix+"sync-run"))
}

func TestLock_ExtendNotHeld(t *testing.T) {
	_, client := newTestRedis(t)
	ctx := context.Background()
	owner, other := NewLock(client), NewLock(client)

	err := owner.Extend(ctx, "sync-run", time.Minute)
	assert.ErrorIs(t, err, ErrNotHeld)

	_, err = owner.Acquire(ctx, "sync-run", time.Minute)
	require.NoError(t, err)
	assert.ErrorIs(t, other.Extend(ctx, "sync-run", time.Minute), ErrNotHeld)
}

func TestLock_IndependentNames(t *testing.T) {
	_, client := newTestRedis(t)
	ctx := context.Background()
	lock := NewLock(client)

	ok, err := lock.Acquire(ctx, "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = lock.Acquire(ctx, "b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
