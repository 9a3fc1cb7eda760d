package redis_fx

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"goldshop/internal/infra"
	"goldshop/pkg/lock"
)

var Module = fx.Provide(
	provideRedis, providePreLocker,
)

func provideRedis() *redis.Client {
	return infra.InitRedis()
}

func providePreLocker(client *redis.Client) lock.PreLocker {
	return lock.NewRedisPreLock(client)
}
