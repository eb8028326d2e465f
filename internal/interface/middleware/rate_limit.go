package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-tour-booking/pkg/response"
)

// ipFromCtx prefers the address stored by RealIP.
func ipFromCtx(c *gin.Context) string {
	if ip := c.GetString(CtxRealIPKey); ip != "" {
		return ip
	}
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}

// KeyFunc builds a rate-limit key from the request
type KeyFunc func(c *gin.Context) string

// KeyByIP counts per client IP within scope, so separately limited route
// groups do not share a budget.
func KeyByIP(scope string) KeyFunc {
	return func(c *gin.Context) string {
		return "rl:" + scope + ":" + ipFromCtx(c)
	}
}

// hit increments the window counter and reports it together with the
// remaining window in one round trip.
var hit = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {n, redis.call("PTTL", KEYS[1])}
`)

type window struct {
	count int64
	reset time.Duration
}

func countHit(ctx context.Context, rdb *redis.Client, key string, size time.Duration) (window, error) {
	vals, err := hit.Run(ctx, rdb, []string{key}, size.Milliseconds()).Int64Slice()
	if err != nil {
		return window{}, err
	}
	w := window{count: vals[0]}
	if len(vals) > 1 && vals[1] > 0 {
		w.reset = time.Duration(vals[1]) * time.Millisecond
	}
	return w, nil
}

// RateLimit is a fixed window limiter backed by redis. Without redis, or
// when redis errors, requests pass.
func RateLimit(rdb *redis.Client, max int, size time.Duration, keyFn KeyFunc, logger *logrus.Logger) gin.HandlerFunc {
	if rdb == nil || max <= 0 || size <= 0 || keyFn == nil {
		return func(c *gin.Context) { c.Next() }
	}
	limit := strconv.Itoa(max)
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		key := keyFn(c)
		w, err := countHit(c.Request.Context(), rdb, key, size)
		if err != nil {
			if logger != nil {
				logger.WithError(err).WithField("key", key).Warn("rate limit check failed")
			}
			c.Next()
			return
		}

		resetSec := int((w.reset + time.Second - 1) / time.Second)
		c.Header("X-RateLimit-Limit", limit)
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(max64(int64(max)-w.count, 0), 10))
		c.Header("X-RateLimit-Reset", strconv.Itoa(resetSec))

		if w.count > int64(max) {
			c.Header("Retry-After", strconv.Itoa(resetSec))
			response.Error[any](c, http.StatusTooManyRequests, "too many requests from this IP, please try again later", response.ErrorBody{Kind: "rate_limited"})
			return
		}
		c.Next()
	}
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
