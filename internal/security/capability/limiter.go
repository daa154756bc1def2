// Package capability implements the Capability Check Engine (C3):
// per-(trust_level, capability) rate limiting plus the audit-on-denial
// policy of spec.md §4.3. The limiter is adapted from the teacher's
// internal/middleware.RateLimiter sliding-window algorithm, generalized
// from an (agentID, tenantID) key to a (TrustLevel, Capability) key.
package capability

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rizome-dev/next-rc/internal/core"
)

// Limits configures the sliding window per key. Zero values fall back to
// DefaultLimits.
type Limits struct {
	MaxPerMinute int
	BurstSize    int
}

// DefaultLimits allows 600 calls per minute with a 2x burst (1200).
var DefaultLimits = Limits{MaxPerMinute: 600, BurstSize: 1200}

// window's count is an atomic counter: the map lookup that finds a
// window is protected by RateLimiter.mu, but the fast path only takes
// a shared RLock, so concurrent callers for the same key must not race
// on a plain int increment.
type window struct {
	count atomic.Int64
	start time.Time
}

// RateLimiter enforces a sliding-window call limit per (trust_level,
// capability) key. The in-memory fast path always runs; when a Redis
// client is configured it also posts windowed counters to Redis so
// multiple controller processes on one host can share the limit without
// violating the "no persistence" non-goal — every Redis key carries a
// TTL no longer than the window, so nothing survives a restart.
type RateLimiter struct {
	mu      sync.RWMutex
	windows map[string]*window
	limits  Limits
	redis   *redis.Client
	logger  *slog.Logger
}

// NewRateLimiter creates a limiter. redisClient may be nil, in which case
// only the in-memory window is used.
func NewRateLimiter(limits Limits, redisClient *redis.Client, logger *slog.Logger) *RateLimiter {
	if limits.MaxPerMinute == 0 {
		limits = DefaultLimits
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimiter{
		windows: make(map[string]*window),
		limits:  limits,
		redis:   redisClient,
		logger:  logger.With("component", "capability.rate_limiter"),
	}
}

func key(trust core.TrustLevel, cap core.Capability) string {
	return string(trust) + ":" + string(cap)
}

// Allow reports whether a call for (trust, cap) is within the sliding
// window. It always consults the in-memory window first (fast path under
// RLock, slow path under Lock only when a new window must be created),
// matching the teacher's read-first discipline; when Redis is configured
// it is consulted as well and the call is denied if either source is
// over limit.
func (r *RateLimiter) Allow(ctx context.Context, trust core.TrustLevel, cap core.Capability) bool {
	k := key(trust, cap)
	now := time.Now()

	r.mu.RLock()
	w, ok := r.windows[k]
	r.mu.RUnlock()
	if ok && now.Sub(w.start) <= time.Minute {
		count := w.count.Add(1)
		if count > int64(r.limits.BurstSize) {
			return false
		}
		if !r.allowRedis(ctx, k) {
			return false
		}
		return count <= int64(r.limits.MaxPerMinute)
	}

	r.mu.Lock()
	w, ok = r.windows[k]
	if ok && now.Sub(w.start) <= time.Minute {
		r.mu.Unlock()
		count := w.count.Add(1)
		if count > int64(r.limits.BurstSize) {
			return false
		}
		return r.allowRedis(ctx, k) && count <= int64(r.limits.MaxPerMinute)
	}
	nw := &window{start: now}
	nw.count.Store(1)
	r.windows[k] = nw
	r.mu.Unlock()
	return r.allowRedis(ctx, k)
}

// allowRedis increments a windowed counter in Redis, if configured. A
// Redis error never fails the call closed — it logs and falls back to
// the in-memory verdict, mirroring the teacher's "wrap, fall back to
// in-memory on connection failure" adapter pattern.
func (r *RateLimiter) allowRedis(ctx context.Context, k string) bool {
	if r.redis == nil {
		return true
	}
	redisKey := "nextrc:ratelimit:" + k
	count, err := r.redis.Incr(ctx, redisKey).Result()
	if err != nil {
		r.logger.Warn("redis rate counter unavailable, falling back to in-memory window", "key", k, "error", err)
		return true
	}
	if count == 1 {
		r.redis.Expire(ctx, redisKey, time.Minute)
	}
	return int(count) <= r.limits.BurstSize
}

// Stats reports the number of active in-memory windows, for the metrics
// snapshot.
func (r *RateLimiter) Stats() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return map[string]any{
		"active_windows": len(r.windows),
		"max_per_minute": r.limits.MaxPerMinute,
		"burst_size":     r.limits.BurstSize,
	}
}

// Sweep removes windows idle for more than two minutes. Callers run this
// from a periodic goroutine, mirroring the teacher's background cleanup
// ticker.
func (r *RateLimiter) Sweep() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for k, w := range r.windows {
		if now.Sub(w.start) > 2*time.Minute {
			delete(r.windows, k)
		}
	}
}
