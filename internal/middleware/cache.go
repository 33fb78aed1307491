package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/restaurant-table-sessions/internal/config"
	"github.com/iliyamo/restaurant-table-sessions/internal/kv"
)

// cachedResponse is what a cache entry holds in Redis.
type cachedResponse struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

// bodyRecorder tees the response body into buf until limit bytes have
// been written.  overflow is set once the body outgrows limit.
type bodyRecorder struct {
	http.ResponseWriter
	status   int
	buf      bytes.Buffer
	limit    int
	overflow bool
}

func (r *bodyRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	if !r.overflow {
		if r.limit > 0 && r.buf.Len()+len(b) > r.limit {
			r.overflow = true
			r.buf.Reset()
		} else {
			r.buf.Write(b)
		}
	}
	return r.ResponseWriter.Write(b)
}

// cacheKey hashes the parts selected by cfg.KeyStrategy under cfg.Prefix.
func cacheKey(cfg config.CacheConfig, c echo.Context) string {
	req := c.Request()
	var parts []string
	switch strings.ToLower(cfg.KeyStrategy) {
	case "route":
		parts = []string{"route", c.Path()}
	case "method_route":
		parts = []string{"method", req.Method, "route", c.Path()}
	case "method_route_query":
		parts = []string{"method", req.Method, "route", c.Path(), "q", req.URL.RawQuery}
	default:
		parts = []string{"route", c.Path(), "q", req.URL.RawQuery}
	}
	sum := sha1.Sum([]byte(strings.Join(parts, ":")))
	return cfg.Prefix + ":" + hex.EncodeToString(sum[:])
}

// NewRedisCache caches successful responses of the slot listing routes.
// Headers and body are stored together so a hit replays the exact bytes.
// Only complete 200 responses are stored; a cache write failure is logged
// and the response is still served.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client, logger zerolog.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	log := logger.With().Str("component", "response_cache").Logger()

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return next(c)
			}
			key := cacheKey(cfg, c)
			res := c.Response()

			if raw, err := rdb.Get(c.Request().Context(), key).Bytes(); err == nil {
				var hit cachedResponse
				if json.Unmarshal(raw, &hit) == nil {
					for k, vals := range hit.Header {
						if strings.EqualFold(k, echo.HeaderContentLength) {
							continue
						}
						for _, v := range vals {
							res.Header().Add(k, v)
						}
					}
					res.Header().Set("X-Cache", "HIT")
					res.WriteHeader(hit.Status)
					_, _ = res.Write(hit.Body)
					return nil
				}
				log.Warn().Str("key", key).Msg("dropping unreadable cache entry")
			} else if !errors.Is(err, redis.Nil) {
				log.Warn().Err(err).Msg("cache read failed")
			}

			rec := &bodyRecorder{ResponseWriter: res.Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
			res.Writer = rec
			res.Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if rec.status != http.StatusOK || rec.overflow {
				return nil
			}

			header := res.Header().Clone()
			header.Del("X-Cache")
			payload, err := json.Marshal(cachedResponse{Status: rec.status, Header: header, Body: rec.buf.Bytes()})
			if err != nil {
				log.Warn().Err(err).Str("key", key).Msg("cache encode failed")
				return nil
			}
			wctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := rdb.Set(wctx, key, payload, ttl).Err(); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("cache write failed")
			}
			return nil
		}
	}
}

// NewCachePurger returns a function that drops every entry written by
// NewRedisCache with the same cfg.  Only slot listings are cached, so the
// slot refresh handler calls it once the new list is loaded.  With
// caching off it does nothing.
func NewCachePurger(cfg config.CacheConfig, rdb *redis.Client, logger zerolog.Logger) func(ctx context.Context) error {
	if !cfg.Enabled || rdb == nil {
		return func(context.Context) error { return nil }
	}
	log := logger.With().Str("component", "response_cache").Logger()
	store := kv.NewRedis(rdb)
	return func(ctx context.Context) error {
		keys, err := store.Keys(ctx, cfg.Prefix+":")
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			return nil
		}
		if err := store.Delete(ctx, keys...); err != nil {
			return err
		}
		log.Debug().Int("count", len(keys)).Msg("response cache purged")
		return nil
	}
}
