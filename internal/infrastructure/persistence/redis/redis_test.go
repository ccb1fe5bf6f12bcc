package redis

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/xiebiao/library/internal/infrastructure/config"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// testClient connects to LIBRARY_TEST_REDIS_ADDR, e.g. localhost:6379 from
// docker compose, and skips otherwise.
func testClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("LIBRARY_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("LIBRARY_TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	ctx := context.Background()
	require.NoError(t, client.Ping(ctx).Err())
	t.Cleanup(func() {
		client.FlushDB(ctx)
		_ = client.Close()
	})
	return client
}

func TestBookLocker_MutualExclusion(t *testing.T) {
	client := testClient(t)
	locker := NewBookLocker(client, config.LockConfig{
		TTL:        5 * time.Second,
		RetryDelay: 5 * time.Millisecond,
		WaitLimit:  5 * time.Second,
	})

	var inside, maxInside int32
	var g errgroup.Group
	for i := 0; i < 10; i++ {
		g.Go(func() error {
			unlock, err := locker.Lock(context.Background(), 1)
			if err != nil {
				return err
			}
			defer unlock()

			n := atomic.AddInt32(&inside, 1)
			if n > atomic.LoadInt32(&maxInside) {
				atomic.StoreInt32(&maxInside, n)
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.EqualValues(t, 1, maxInside)

	exists, err := client.Exists(context.Background(), bookLockKey(1)).Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}

func TestBookLocker_WaitLimit(t *testing.T) {
	client := testClient(t)
	locker := NewBookLocker(client, config.LockConfig{
		TTL:        5 * time.Second,
		RetryDelay: 5 * time.Millisecond,
		WaitLimit:  30 * time.Millisecond,
	})

	unlock, err := locker.Lock(context.Background(), 2)
	require.NoError(t, err)
	defer unlock()

	_, err = locker.Lock(context.Background(), 2)
	assert.ErrorIs(t, err, apperrors.ErrLockTimeout)
}

func TestBookLocker_ReleaseKeepsForeignToken(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()
	locker := NewBookLocker(client, config.LockConfig{TTL: time.Second, RetryDelay: time.Millisecond, WaitLimit: time.Second})

	unlock, err := locker.Lock(ctx, 3)
	require.NoError(t, err)

	// simulate expiry followed by another holder
	require.NoError(t, client.Set(ctx, bookLockKey(3), "someone-else", time.Second).Err())
	unlock()

	val, err := client.Get(ctx, bookLockKey(3)).Result()
	require.NoError(t, err)
	assert.Equal(t, "someone-else", val)
}

func TestSessionStore(t *testing.T) {
	client := testClient(t)
	store := NewSessionStore(client)
	ctx := context.Background()

	_, err := store.GetSession(ctx, 7)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	require.NoError(t, store.SaveSession(ctx, 7, map[string]interface{}{"email": "a@example.com"}, time.Minute))
	data, err := store.GetSession(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", data["email"])

	require.NoError(t, store.AddToBlacklist(ctx, "tok", time.Minute))
	revoked, err := store.IsInBlacklist(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, revoked)

	require.NoError(t, store.DeleteSession(ctx, 7))
	_, err = store.GetSession(ctx, 7)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}
