package middleware

import (
	"context"
	"strings"
	"sync"
	"time"

	"yanfarm/logger"
	"yanfarm/utils"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
)

// Failed logins are tracked per email. After freeAttempts failures the
// account is locked for a growing period: 1, 5, 15 and then 30 minutes.

const (
	freeAttempts  = 5
	failureMemory = 30 * time.Minute
)

type loginState struct {
	failures  int
	lockUntil time.Time
	seen      time.Time
}

var (
	loginMu       sync.Mutex
	loginCache, _ = lru.New(localEntries)
)

func lockDuration(failures int) time.Duration {
	switch over := failures - freeAttempts; {
	case over <= 0:
		return 0
	case over == 1:
		return time.Minute
	case over == 2:
		return 5 * time.Minute
	case over == 3:
		return 15 * time.Minute
	default:
		return 30 * time.Minute
	}
}

func loginKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsAccountLocked reports whether logins for email are currently refused and
// for how long.
func IsAccountLocked(ctx context.Context, email string) (bool, time.Duration) {
	key := loginKey(email)
	if utils.RedisClient != nil {
		ttl, err := utils.RedisClient.TTL(ctx, "login:lock:"+key).Result()
		if err == nil {
			return ttl > 0, max(ttl, 0)
		}
		logger.Warn("login lock lookup failed, using memory", zap.Error(err))
	}

	loginMu.Lock()
	defer loginMu.Unlock()
	v, ok := loginCache.Get(key)
	if !ok {
		return false, 0
	}
	left := time.Until(v.(*loginState).lockUntil)
	return left > 0, max(left, 0)
}

func RecordFailedLogin(ctx context.Context, email string) {
	key := loginKey(email)
	if utils.RedisClient != nil {
		failKey := "login:fail:" + key
		failures, err := utils.RedisClient.Incr(ctx, failKey).Result()
		if err == nil {
			utils.RedisClient.Expire(ctx, failKey, failureMemory)
			if d := lockDuration(int(failures)); d > 0 {
				utils.RedisClient.Set(ctx, "login:lock:"+key, "1", d)
			}
			return
		}
		logger.Warn("login failure counter failed, using memory", zap.Error(err))
	}

	now := time.Now()
	loginMu.Lock()
	defer loginMu.Unlock()
	st := &loginState{}
	if v, ok := loginCache.Get(key); ok && now.Sub(v.(*loginState).seen) < failureMemory {
		st = v.(*loginState)
	}
	st.failures++
	st.seen = now
	if d := lockDuration(st.failures); d > 0 {
		st.lockUntil = now.Add(d)
		logger.Warn("login locked", zap.String("email", key), zap.Int("failures", st.failures), zap.Duration("for", d))
	}
	loginCache.Add(key, st)
}

func ResetFailedLogin(ctx context.Context, email string) {
	key := loginKey(email)
	if utils.RedisClient != nil {
		if err := utils.RedisClient.Del(ctx, "login:fail:"+key, "login:lock:"+key).Err(); err == nil {
			return
		}
	}
	loginMu.Lock()
	defer loginMu.Unlock()
	loginCache.Remove(key)
}
