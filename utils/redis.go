package utils

import (
	"context"
	"strings"
	"time"

	"yanfarm/config"
	"yanfarm/logger"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisClient is shared by token revocation and the claim rate limiter. It
// stays nil when REDIS_ADDR is not configured.
var RedisClient *redis.Client

func InitRedis(c config.RedisConfig) {
	addr := strings.ReplaceAll(strings.TrimSpace(c.Addr), " ", "")
	if addr == "" {
		return
	}
	rc := redis.NewClient(&redis.Options{Addr: addr, Password: c.Password, DB: c.DB})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping failed, using database fallbacks", zap.String("addr", addr), zap.Error(err))
		_ = rc.Close()
		return
	}
	RedisClient = rc
}
