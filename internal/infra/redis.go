package infra

import (
	"context"
	"log"
	"os"

	"github.com/redis/go-redis/v9"
)

// InitRedis connects the pre-lock client. Purchases survive without it
// (the local mutex and the unique constraint still hold), so a failed
// ping is a warning, not a fatal.
func InitRedis() *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Printf("Redis unreachable at %s, idempotency pre-lock degraded: %v", addr, err)
	}

	return rdb
}
