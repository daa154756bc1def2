package capability

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rizome-dev/next-rc/internal/core"
)

func TestRateLimiterAllowsWithinBurst(t *testing.T) {
	l := NewRateLimiter(Limits{MaxPerMinute: 100, BurstSize: 3}, nil, nil)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow(ctx, core.TrustLow, core.CapabilitySystemTime))
	}
}

func TestRateLimiterDeniesAboveBurst(t *testing.T) {
	l := NewRateLimiter(Limits{MaxPerMinute: 100, BurstSize: 2}, nil, nil)
	ctx := context.Background()
	assert.True(t, l.Allow(ctx, core.TrustLow, core.CapabilitySystemTime))
	assert.True(t, l.Allow(ctx, core.TrustLow, core.CapabilitySystemTime))
	assert.False(t, l.Allow(ctx, core.TrustLow, core.CapabilitySystemTime))
}

func TestRateLimiterDeniesAbovePerMinuteEvenUnderBurst(t *testing.T) {
	l := NewRateLimiter(Limits{MaxPerMinute: 1, BurstSize: 10}, nil, nil)
	ctx := context.Background()
	assert.True(t, l.Allow(ctx, core.TrustLow, core.CapabilitySystemTime))
	assert.False(t, l.Allow(ctx, core.TrustLow, core.CapabilitySystemTime))
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	l := NewRateLimiter(Limits{MaxPerMinute: 1, BurstSize: 1}, nil, nil)
	ctx := context.Background()
	assert.True(t, l.Allow(ctx, core.TrustLow, core.CapabilitySystemTime))
	assert.True(t, l.Allow(ctx, core.TrustLow, core.CapabilityEnvironmentVariables), "different capability key must have its own window")
	assert.True(t, l.Allow(ctx, core.TrustHigh, core.CapabilitySystemTime), "different trust level must have its own window")
}

func TestRateLimiterNoRedisClientIsNoop(t *testing.T) {
	l := NewRateLimiter(DefaultLimits, nil, nil)
	assert.True(t, l.allowRedis(context.Background(), "some-key"))
}

func TestRateLimiterConcurrentCallsDoNotLoseIncrements(t *testing.T) {
	const callers = 100
	l := NewRateLimiter(Limits{MaxPerMinute: 100000, BurstSize: 100000}, nil, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			l.Allow(ctx, core.TrustLow, core.CapabilitySystemTime)
		}()
	}
	wg.Wait()

	l.mu.RLock()
	w := l.windows[key(core.TrustLow, core.CapabilitySystemTime)]
	l.mu.RUnlock()
	assert.Equal(t, int64(callers), w.count.Load(), "every concurrent call must advance the window count exactly once")
}

func TestRateLimiterSweepRemovesIdleWindows(t *testing.T) {
	l := NewRateLimiter(DefaultLimits, nil, nil)
	l.Allow(context.Background(), core.TrustLow, core.CapabilitySystemTime)
	assert.Equal(t, 1, l.Stats()["active_windows"])

	// Force the window to look idle by rewriting its start time directly.
	l.mu.Lock()
	for _, w := range l.windows {
		w.start = w.start.Add(-3 * time.Minute)
	}
	l.mu.Unlock()

	l.Sweep()
	assert.Equal(t, 0, l.Stats()["active_windows"])
}
