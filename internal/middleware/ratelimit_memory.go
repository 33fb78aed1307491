package middleware

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/iliyamo/restaurant-table-sessions/internal/config"
)

// memoryBucket is the per-process fallback used when Redis is not
// configured.  Idle keys are dropped after cfg.TTL.
type memoryBucket struct {
	every    rate.Limit
	burst    int
	ttl      time.Duration
	mu       sync.Mutex
	limiters map[string]*memoryEntry
	swept    time.Time
}

type memoryEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newMemoryBucket(cfg config.RateLimitConfig) *memoryBucket {
	interval, refill, burst := cfg.RefillInterval, cfg.RefillTokens, cfg.Capacity
	if interval <= 0 {
		interval = time.Second
	}
	if refill < 1 {
		refill = 1
	}
	if burst < 1 {
		burst = 1
	}
	ttl := cfg.TTL
	if ttl < 5*interval {
		ttl = 5 * interval
	}
	return &memoryBucket{
		every:    rate.Every(interval / time.Duration(refill)),
		burst:    burst,
		ttl:      ttl,
		limiters: make(map[string]*memoryEntry),
	}
}

func (m *memoryBucket) take(_ context.Context, key string, now time.Time) (bucketResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if now.Sub(m.swept) > m.ttl {
		for k, e := range m.limiters {
			if now.Sub(e.lastSeen) > m.ttl {
				delete(m.limiters, k)
			}
		}
		m.swept = now
	}

	e, ok := m.limiters[key]
	if !ok {
		e = &memoryEntry{lim: rate.NewLimiter(m.every, m.burst)}
		m.limiters[key] = e
	}
	e.lastSeen = now

	r := e.lim.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return bucketResult{retry: delay}, nil
	}
	return bucketResult{allowed: true, remaining: int64(e.lim.TokensAt(now))}, nil
}
