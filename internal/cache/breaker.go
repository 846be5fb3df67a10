package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"

	"cvcraft/internal/config"
	"cvcraft/internal/errors"
)

// BreakerCache wraps a remote cache with a circuit breaker so a failing
// backend is skipped instead of slowing every request.
type BreakerCache struct {
	next Cache
	cb   *gobreaker.CircuitBreaker[bool]
}

// NewBreakerCache returns next unchanged when the breaker is disabled.
func NewBreakerCache(next Cache, cfg config.CircuitBreakerConfig, logger *errors.Logger) Cache {
	if !cfg.Enabled {
		return next
	}

	settings := gobreaker.Settings{
		Name:        fmt.Sprintf("Cache-%s", next.Backend()),
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests && failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if logger == nil {
				return
			}
			logger.Warn("Circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
				"failure_threshold", cfg.FailureThreshold)
		},
	}

	return &BreakerCache{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[bool](settings),
	}
}

func (b *BreakerCache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	return b.cb.Execute(func() (bool, error) {
		return b.next.GetJSON(ctx, key, dst)
	})
}

func (b *BreakerCache) SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error {
	_, err := b.cb.Execute(func() (bool, error) {
		return true, b.next.SetJSON(ctx, key, val, ttl)
	})
	return err
}

func (b *BreakerCache) Del(ctx context.Context, keys ...string) error {
	_, err := b.cb.Execute(func() (bool, error) {
		return true, b.next.Del(ctx, keys...)
	})
	return err
}

func (b *BreakerCache) Backend() string {
	return b.next.Backend()
}

// GetStats returns circuit breaker statistics
func (b *BreakerCache) GetStats() map[string]any {
	return map[string]any{
		"name":    b.cb.Name(),
		"state":   b.cb.State().String(),
		"counts":  b.cb.Counts(),
		"enabled": true,
	}
}

// IsHealthy returns true if the circuit breaker is in closed state
func (b *BreakerCache) IsHealthy() bool {
	return b.cb.State() == gobreaker.StateClosed
}
