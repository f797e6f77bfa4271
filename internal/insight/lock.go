package insight

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker serializes the check-generate-insert sequence for one industry
// across service replicas. The returned release func is safe to call once.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// redisLockClient is the subset of *redis.Client the locker needs.
type redisLockClient interface {
	redis.Scripter
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// releaseScript deletes the lock only if it still holds our token, so a
// holder whose TTL expired cannot remove a successor's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker is an advisory lock built on SET NX PX.
type RedisLocker struct {
	rdb    redisLockClient
	prefix string
	ttl    time.Duration
	retry  time.Duration
}

// NewRedisLocker returns a Locker whose locks expire after ttl, so a crashed
// holder cannot block an industry forever.
func NewRedisLocker(rdb redisLockClient, ttl time.Duration) *RedisLocker {
	return &RedisLocker{
		rdb:    rdb,
		prefix: "lock:industry-insight:",
		ttl:    ttl,
		retry:  100 * time.Millisecond,
	}
}

// Acquire blocks until the lock for key is held or ctx is done.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	lockKey := l.prefix + key
	token := uuid.NewString()

	for {
		ok, err := l.rdb.SetNX(ctx, lockKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis SETNX %s: %w", lockKey, err)
		}
		if ok {
			return func() { _ = l.release(lockKey, token) }, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}
}

// release runs on its own short deadline: the caller's context may already
// be cancelled when the deferred release fires. A failed release is left to
// the TTL.
func (l *RedisLocker) release(lockKey, token string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := releaseScript.Run(ctx, l.rdb, []string{lockKey}, token).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis release %s: %w", lockKey, err)
	}
	return nil
}
