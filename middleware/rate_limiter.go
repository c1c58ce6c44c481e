package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"yanfarm/logger"
	"yanfarm/utils"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
)

// Counters live in Redis when it is configured so every instance shares
// them. Without Redis, or while Redis is failing, a bounded in-process LRU
// takes over.

const localEntries = 10000

type timestamps []int64 // unix nanos

func nowUnix() int64 { return time.Now().UnixNano() }

func tooManyRequests(w http.ResponseWriter, retryAfter int) {
	if retryAfter < 1 {
		retryAfter = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	msg := "Too many requests, please try again later"
	utils.WriteJSON(w, http.StatusTooManyRequests, utils.APIResponse{
		Success: false,
		Message: msg,
		Error:   msg,
		Data:    map[string]interface{}{"retry_after_seconds": retryAfter},
	})
}

func setLimitHeaders(w http.ResponseWriter, limit, count int) {
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
}

// IPRateLimiter is a sliding window per client IP, used in front of the
// unauthenticated endpoints.
type IPRateLimiter struct {
	max         int
	window      time.Duration
	trustedCIDR []string

	mu    sync.Mutex
	state *lru.Cache // ip -> timestamps
}

func NewIPRateLimiter(maxReq int, window time.Duration, trustedProxies []string) *IPRateLimiter {
	state, _ := lru.New(localEntries)
	return &IPRateLimiter{
		max:         maxReq,
		window:      window,
		trustedCIDR: trustedProxies,
		state:       state,
	}
}

// clientIPGeneric returns the client IP string. If trustedCIDR is provided,
// X-Forwarded-For / X-Real-IP headers are honored when remote addr is inside
// one of the trusted CIDRs or IPs.
func clientIPGeneric(r *http.Request, trustedCIDR []string) string {
	remoteHost, _, _ := net.SplitHostPort(r.RemoteAddr)
	remoteIP := net.ParseIP(remoteHost)
	trusted := false
	for _, cidr := range trustedCIDR {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" {
			continue
		}
		if strings.Contains(cidr, "/") {
			if _, ipnet, err := net.ParseCIDR(cidr); err == nil {
				if remoteIP != nil && ipnet.Contains(remoteIP) {
					trusted = true
					break
				}
			}
			continue
		}
		if ip := net.ParseIP(cidr); ip != nil && remoteIP != nil && ip.Equal(remoteIP) {
			trusted = true
			break
		}
	}
	if trusted {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			if len(parts) > 0 {
				return strings.TrimSpace(parts[0])
			}
		}
		if xr := r.Header.Get("X-Real-IP"); xr != "" {
			return strings.TrimSpace(xr)
		}
	}
	if remoteHost == "" {
		return r.RemoteAddr
	}
	return remoteHost
}

// hit records a request from ip and returns how many fall inside the window
// plus the oldest of them.
func (l *IPRateLimiter) hit(ip string, now int64) (int, int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now - int64(l.window)
	var filtered timestamps
	if v, ok := l.state.Get(ip); ok {
		for _, ts := range v.(timestamps) {
			if ts >= cutoff {
				filtered = append(filtered, ts)
			}
		}
	}
	filtered = append(filtered, now)
	l.state.Add(ip, filtered)
	return len(filtered), filtered[0]
}

// Middleware applies per-IP limits and sets rate-limit headers.
func (l *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := nowUnix()
		count, oldest := l.hit(clientIPGeneric(r, l.trustedCIDR), now)
		setLimitHeaders(w, l.max, count)
		if count > l.max {
			retry := time.Duration(oldest + int64(l.window) - now)
			tooManyRequests(w, int(retry.Seconds()))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UserRateLimiter is a fixed window per authenticated user and route group.
// It guards the claim endpoint against scripted slot grabbing.
type UserRateLimiter struct {
	group  string
	limit  int
	window time.Duration
	now    func() time.Time

	mu    sync.Mutex
	local *lru.Cache // key -> *windowCount
}

type windowCount struct {
	start int64
	n     int
}

func NewUserRateLimiter(group string, limit int, window time.Duration) *UserRateLimiter {
	local, _ := lru.New(localEntries)
	if window <= 0 {
		window = time.Minute
	}
	return &UserRateLimiter{group: group, limit: limit, window: window, now: time.Now, local: local}
}

// Allow counts one request for userID and reports the count in the current
// window and the seconds until the window resets.
func (l *UserRateLimiter) Allow(ctx context.Context, userID uint) (int, int) {
	now := l.now()
	slot := now.UnixNano() / int64(l.window)
	resetIn := int(time.Unix(0, (slot+1)*int64(l.window)).Sub(now).Seconds())

	if utils.RedisClient != nil {
		key := fmt.Sprintf("rl:%s:u:%d:%d", l.group, userID, slot)
		n, err := utils.RedisClient.Incr(ctx, key).Result()
		if err == nil {
			if n == 1 {
				utils.RedisClient.Expire(ctx, key, 2*l.window)
			}
			return int(n), resetIn
		}
		logger.Warn("rate limiter falling back to memory", zap.String("group", l.group), zap.Error(err))
	}

	key := fmt.Sprintf("%s:%d", l.group, userID)
	l.mu.Lock()
	defer l.mu.Unlock()
	wc, _ := l.local.Get(key)
	c, ok := wc.(*windowCount)
	if !ok || c.start != slot {
		c = &windowCount{start: slot}
		l.local.Add(key, c)
	}
	c.n++
	return c.n, resetIn
}

// Middleware must run after AuthMiddleware. Requests without a user pass.
func (l *UserRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, ok := utils.GetUserID(r)
		if !ok || l.limit <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		count, resetIn := l.Allow(r.Context(), uid)
		setLimitHeaders(w, l.limit, count)
		if count > l.limit {
			logger.Warn("user rate limited", zap.String("group", l.group), zap.Uint("user_id", uid), zap.Int("count", count))
			tooManyRequests(w, resetIn)
			return
		}
		next.ServeHTTP(w, r)
	})
}
