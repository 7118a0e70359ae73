package connection

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_BurstThenRefill(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewRateLimiter(1, 2, clock)

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"), "burst exhausted")
	assert.True(t, l.Allow("10.0.0.2"), "other IPs have their own bucket")

	clock.Advance(time.Second)
	assert.True(t, l.Allow("10.0.0.1"))
}

func TestRateLimiter_CleansUpIdleEntries(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewRateLimiter(1, 1, clock)

	l.Allow("10.0.0.1")
	l.Allow("10.0.0.2")
	assert.Equal(t, 2, l.ActiveLimiters())

	clock.Advance(limiterIdleTTL + time.Minute)
	l.Allow("10.0.0.3")

	assert.Equal(t, 1, l.ActiveLimiters())
}

func TestRateLimiter_MinimumBurst(t *testing.T) {
	l := NewRateLimiter(5, 0, clockwork.NewFakeClock())
	assert.Equal(t, 1, l.Burst())
	assert.Equal(t, 5.0, l.Rate())
}
