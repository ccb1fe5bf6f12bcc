package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/infrastructure/config"
	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/logger"
)

// releaseScript deletes the key only while it still holds our token, so an
// expired lock that someone else re-acquired is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// BookLocker is a per-book mutex shared by every API instance through Redis.
// The TTL bounds how long a crashed holder can block a book.
type BookLocker struct {
	client     *redis.Client
	ttl        time.Duration
	retryDelay time.Duration
	waitLimit  time.Duration
}

// NewBookLocker creates a distributed book lock.
func NewBookLocker(client *redis.Client, cfg config.LockConfig) *BookLocker {
	return &BookLocker{
		client:     client,
		ttl:        cfg.TTL,
		retryDelay: cfg.RetryDelay,
		waitLimit:  cfg.WaitLimit,
	}
}

func bookLockKey(bookID uint) string {
	return fmt.Sprintf("lock:book:%d", bookID)
}

// Lock polls SET NX PX until it wins, ctx ends or the wait limit passes.
// The wait limit yields ErrLockTimeout.
func (l *BookLocker) Lock(ctx context.Context, bookID uint) (func(), error) {
	key := bookLockKey(bookID)
	token := uuid.NewString()
	deadline := time.Now().Add(l.waitLimit)

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, apperrors.WrapCode(err, apperrors.ErrCodeRedisError, "acquire book lock failed")
		}
		if ok {
			break
		}
		if !time.Now().Before(deadline) {
			return nil, apperrors.ErrLockTimeout
		}

		timer := time.NewTimer(l.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(key, token) })
	}, nil
}

// release runs detached from the request context; a cancelled request must
// still free the book.
func (l *BookLocker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
		logger.L().Warn("release book lock failed, waiting for ttl",
			zap.String("key", key),
			zap.Duration("ttl", l.ttl),
			zap.Error(err),
		)
	}
}
