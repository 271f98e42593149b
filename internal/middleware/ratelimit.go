package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/labsphere/environment-reservation/internal/config"
)

// tokenBucketScript implements a refilling token bucket atomically in
// Redis.  KEYS[1] bucket key; ARGV: capacity, refill tokens, refill
// interval ms, now ms, ttl ms.  Returns {allowed, remaining,
// retry_after_ms}.
const tokenBucketScript = `
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refill = tonumber(ARGV[2])
local interval = tonumber(ARGV[3])
local now = tonumber(ARGV[4])
local ttl = tonumber(ARGV[5])

local data = redis.call('HMGET', key, 'tokens', 'ts')
local tokens = tonumber(data[1])
local ts = tonumber(data[2])
if tokens == nil then
  tokens = capacity
  ts = now
end

local elapsed = now - ts
if elapsed >= interval then
  local ticks = math.floor(elapsed / interval)
  tokens = math.min(capacity, tokens + ticks * refill)
  ts = ts + ticks * interval
end

local allowed = 0
local retry = 0
if tokens > 0 then
  allowed = 1
  tokens = tokens - 1
else
  retry = interval - (now - ts)
  if retry < 0 then retry = 0 end
end

redis.call('HMSET', key, 'tokens', tokens, 'ts', ts)
redis.call('PEXPIRE', key, ttl)
return {allowed, tokens, retry}
`

// NewTokenBucket rate limits requests per client IP using the Lua
// token bucket above.  Fails open when Redis is unavailable so an
// outage never blocks logins.
func NewTokenBucket(client *redis.Client, cfg config.RateLimitConfig) echo.MiddlewareFunc {
	script := redis.NewScript(tokenBucketScript)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if client == nil || !cfg.Enabled {
				return next(c)
			}

			key := fmt.Sprintf("%s:%s", cfg.Prefix, c.RealIP())
			now := time.Now().UnixMilli()
			res, err := script.Run(c.Request().Context(), client, []string{key},
				cfg.Capacity, cfg.RefillTokens, cfg.RefillInterval.Milliseconds(),
				now, cfg.TTL.Milliseconds()).Result()
			if err != nil {
				return next(c)
			}

			vals, ok := res.([]interface{})
			if !ok || len(vals) != 3 {
				return next(c)
			}
			allowed := asInt64(vals[0])
			remaining := asInt64(vals[1])
			retryMs := asInt64(vals[2])

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if allowed != 1 {
				retrySec := (retryMs + 999) / 1000
				h.Set("Retry-After", strconv.FormatInt(retrySec, 10))
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":       "rate limit exceeded",
					"retry_after": retrySec,
				})
			}
			return next(c)
		}
	}
}

func asInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case string:
		parsed, _ := strconv.ParseInt(n, 10, 64)
		return parsed
	default:
		return 0
	}
}
