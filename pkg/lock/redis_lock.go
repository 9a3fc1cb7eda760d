package lock

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// PreLocker is the distributed half of the idempotency guard.
// Best-effort: implementations must degrade to "acquired" when the lock
// service is unreachable, because the persistent uniqueness constraint is
// the correctness backstop, not the lock.
type PreLocker interface {
	// Acquire returns true if the caller now holds the key, false if
	// another holder is active.
	Acquire(ctx context.Context, key string, ttl time.Duration) bool
	Release(ctx context.Context, key string)
}

// RedisPreLock implements PreLocker with SET NX EX. The TTL bounds how
// long a crashed holder can block retries.
type RedisPreLock struct {
	client *redis.Client
}

func NewRedisPreLock(client *redis.Client) *RedisPreLock {
	return &RedisPreLock{client: client}
}

func (r *RedisPreLock) Acquire(ctx context.Context, key string, ttl time.Duration) bool {
	ok, err := r.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		// Redis down: fall through to the local mutex and the unique
		// constraint rather than failing the purchase.
		return true
	}
	return ok
}

func (r *RedisPreLock) Release(ctx context.Context, key string) {
	// Eager delete so a completed purchase does not block retries for the
	// remainder of the TTL. Errors are ignored; TTL expiry cleans up.
	_ = r.client.Del(ctx, key).Err()
}
