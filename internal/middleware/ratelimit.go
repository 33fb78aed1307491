package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/restaurant-table-sessions/internal/config"
)

// takeToken refills the bucket in whole intervals, then spends one token.
// KEYS[1] bucket hash; ARGV now_ms, capacity, refill_tokens, interval_ms,
// ttl_seconds.  Returns {allowed, tokens_left, retry_after_ms}.
var takeToken = redis.NewScript(`
local now = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill = tonumber(ARGV[3])
local interval = tonumber(ARGV[4])

local state = redis.call('HMGET', KEYS[1], 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1]) or capacity
local last = tonumber(state[2]) or now

local steps = math.floor(math.max(0, now - last) / interval)
if steps > 0 then
  tokens = math.min(capacity, tokens + steps * refill)
  last = last + steps * interval
end

local allowed, retry = 0, 0
if tokens > 0 then
  allowed = 1
  tokens = tokens - 1
else
  retry = math.max(0, interval - (now - last))
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'last_refill_ms', last)
redis.call('EXPIRE', KEYS[1], tonumber(ARGV[5]))
return {allowed, tokens, retry}
`)

// bucketResult is the decoded reply of takeToken.
type bucketResult struct {
	allowed   bool
	remaining int64
	retry     time.Duration
}

func parseBucketResult(v interface{}) (bucketResult, bool) {
	arr, ok := v.([]interface{})
	if !ok || len(arr) != 3 {
		return bucketResult{}, false
	}
	nums := make([]int64, 3)
	for i, x := range arr {
		n, ok := x.(int64)
		if !ok {
			return bucketResult{}, false
		}
		nums[i] = n
	}
	return bucketResult{
		allowed:   nums[0] == 1,
		remaining: nums[1],
		retry:     time.Duration(nums[2]) * time.Millisecond,
	}, true
}

// bucket spends one token for key at now.
type bucket interface {
	take(ctx context.Context, key string, now time.Time) (bucketResult, error)
}

type redisBucket struct {
	rdb *redis.Client
	cfg config.RateLimitConfig
}

func (b redisBucket) take(ctx context.Context, key string, now time.Time) (bucketResult, error) {
	reply, err := takeToken.Run(ctx, b.rdb, []string{key},
		now.UnixMilli(),
		b.cfg.Capacity,
		b.cfg.RefillTokens,
		b.cfg.RefillInterval.Milliseconds(),
		int64(b.cfg.TTL/time.Second),
	).Result()
	if err != nil {
		return bucketResult{}, err
	}
	res, ok := parseBucketResult(reply)
	if !ok {
		return bucketResult{}, fmt.Errorf("unexpected limiter reply %v", reply)
	}
	return res, nil
}

// NewTokenBucket limits requests with a token bucket per key.  With Redis
// the bucket lives in a hash updated atomically by a Lua script, so
// several replicas share one budget per tablet; Redis errors let the
// request through.  Without Redis each process keeps its own buckets.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, clock clockwork.Clock, logger zerolog.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	log := logger.With().Str("component", "rate_limit").Logger()
	limit := strconv.Itoa(cfg.Capacity)

	var b bucket
	if rdb != nil {
		b = redisBucket{rdb: rdb, cfg: cfg}
	} else {
		log.Info().Msg("redis not configured; rate limiting per process")
		b = newMemoryBucket(cfg)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := rateKey(cfg, c)
			res, err := b.take(c.Request().Context(), key, clock.Now())
			if err != nil {
				log.Warn().Err(err).Str("key", key).Msg("limiter unavailable; allowing request")
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(res.remaining, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if res.allowed {
				return next(c)
			}

			secs := int((res.retry + time.Second - 1) / time.Second)
			h.Set("Retry-After", strconv.Itoa(secs))
			if cfg.Debug {
				log.Info().Str("key", key).Dur("retry", res.retry).Msg("request throttled")
			}
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":       "too_many_requests",
				"retry_after": secs,
			})
		}
	}
}

// rateKey builds the bucket key for cfg.KeyStrategy.  The default keys
// by device address and staff member together.
func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	user := "anon"
	if uid, ok := c.Get("user_id").(string); ok && uid != "" {
		user = uid
	} else if uid, ok := c.Get("user_id").(float64); ok {
		user = strconv.FormatFloat(uid, 'f', -1, 64)
	}
	route := c.Request().Method + " " + c.Path()

	var parts []string
	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		parts = []string{"ip", ip}
	case "user":
		parts = []string{"user", user}
	case "ip_route":
		parts = []string{"ip", ip, "route", route}
	case "user_route":
		parts = []string{"user", user, "route", route}
	default:
		parts = []string{"ip", ip, "user", user}
	}
	return cfg.Prefix + ":" + strings.Join(parts, ":")
}
