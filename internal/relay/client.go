package relay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/n2kbridge/internal/platform/retry"
	goredis "github.com/redis/go-redis/v9"
)

var connectPolicy = retry.Policy{
	MaxAttempts:    5,
	InitialBackoff: 500 * time.Millisecond,
	MaxBackoff:     5 * time.Second,
}

// NewClient creates a Redis client from a URL (e.g. "redis://localhost:6379")
// with metrics and circuit breaker hooks installed.
func NewClient(redisURL string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	rdb := goredis.NewClient(opts)
	rdb.AddHook(&MetricsHook{})
	rdb.AddHook(NewCircuitBreakerHook())
	return rdb, nil
}

// Connect pings Redis until it answers, retrying transient network errors.
func Connect(ctx context.Context, rdb *goredis.Client, clock clockwork.Clock) error {
	policy := connectPolicy
	policy.Clock = clock
	policy.OnRetry = func(attempt int, err error, backoff time.Duration) {
		slog.Warn("Redis ping failed, retrying", "attempt", attempt, "backoff", backoff, "error", err)
	}

	if err := retry.DoVoid(ctx, policy, retry.Network, func() error {
		return rdb.Ping(ctx).Err()
	}); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	return nil
}
