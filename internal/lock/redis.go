package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrNotObtained is returned when a Redis lock could not be taken before the
// context deadline.
var ErrNotObtained = errors.New("lock not obtained")

// Redis serializes holders of the same key across processes sharing a Redis server.
type Redis struct {
	client *redislock.Client
	ttl    time.Duration
	retry  time.Duration
	logger *zap.Logger
}

// NewRedis wraps rdb. ttl bounds how long a crashed holder can keep a key locked.
func NewRedis(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Redis {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{
		client: redislock.New(rdb),
		ttl:    ttl,
		retry:  200 * time.Millisecond,
		logger: logger,
	}
}

// Acquire retries until the lock is obtained or ctx is done.
func (r *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	lock, err := r.client.Obtain(ctx, "lock:"+key, r.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(r.retry),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", ErrNotObtained, key)
	}
	if err != nil {
		return nil, fmt.Errorf("obtain redis lock %s: %w", key, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := lock.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				r.logger.Warn("failed to release redis lock", zap.String("key", key), zap.Error(err))
			}
		})
	}, nil
}
