package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/esports-prediction-poc/internal/market"
)

func newLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	r := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = r.Close() })
	return NewRedisLocker(r), mr
}

func TestAcquire_Exclusive(t *testing.T) {
	l, mr := newLocker(t)
	ctx := context.Background()

	unlock, err := l.Acquire(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	assert.True(t, mr.Exists(Key("sweep")))

	_, err = l.Acquire(ctx, "sweep", time.Minute)
	assert.ErrorIs(t, err, market.ErrLockHeld)

	unlock()
	unlock()
	assert.False(t, mr.Exists(Key("sweep")))

	again, err := l.Acquire(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	again()
}

func TestAcquire_ExpiresWithTTL(t *testing.T) {
	l, mr := newLocker(t)
	ctx := context.Background()

	_, err := l.Acquire(ctx, "sweep", 10*time.Second)
	require.NoError(t, err)

	mr.FastForward(11 * time.Second)
	_, err = l.Acquire(ctx, "sweep", 10*time.Second)
	assert.NoError(t, err)
}

func TestUnlock_KeepsForeignToken(t *testing.T) {
	l, mr := newLocker(t)

	unlock, err := l.Acquire(context.Background(), "sweep", time.Minute)
	require.NoError(t, err)

	// TTL venceu e outro processo pegou o lock
	require.NoError(t, mr.Set(Key("sweep"), "other-owner"))
	unlock()

	got, err := mr.Get(Key("sweep"))
	require.NoError(t, err)
	assert.Equal(t, "other-owner", got)
}
