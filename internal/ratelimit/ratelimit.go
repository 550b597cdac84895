// Package ratelimit provides per-client token bucket limits for the HTTP API.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ConfabulousDev/chat-insights/internal/logger"
)

// RateLimiter decides whether a request identified by key may proceed.
type RateLimiter interface {
	Allow(ctx context.Context, key string) bool
	AllowN(ctx context.Context, key string, n int) bool
}

// InMemoryRateLimiter keeps one token bucket per key. Suitable for a single
// server instance.
type InMemoryRateLimiter struct {
	rate  rate.Limit
	burst int

	limiters   sync.Map // map[string]*rate.Limiter
	lastAccess sync.Map // map[string]time.Time

	cleanupInterval time.Duration
	maxAge          time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
}

// NewInMemoryRateLimiter creates a limiter allowing rps requests per second
// with bursts up to burst. Call Stop to end the cleanup goroutine.
func NewInMemoryRateLimiter(rps float64, burst int) *InMemoryRateLimiter {
	limiter := &InMemoryRateLimiter{
		rate:            rate.Limit(rps),
		burst:           burst,
		cleanupInterval: 5 * time.Minute,
		maxAge:          10 * time.Minute,
		stopCleanup:     make(chan struct{}),
	}
	go limiter.cleanup()
	return limiter
}

// Allow checks whether a single request is allowed.
func (l *InMemoryRateLimiter) Allow(ctx context.Context, key string) bool {
	return l.AllowN(ctx, key, 1)
}

// AllowN checks whether n requests are allowed.
func (l *InMemoryRateLimiter) AllowN(_ context.Context, key string, n int) bool {
	now := time.Now().UTC()
	l.lastAccess.Store(key, now)
	return l.getLimiter(key).AllowN(now, n)
}

func (l *InMemoryRateLimiter) getLimiter(key string) *rate.Limiter {
	if limiter, ok := l.limiters.Load(key); ok {
		return limiter.(*rate.Limiter)
	}
	actual, _ := l.limiters.LoadOrStore(key, rate.NewLimiter(l.rate, l.burst))
	return actual.(*rate.Limiter)
}

func (l *InMemoryRateLimiter) cleanup() {
	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.sweep(time.Now().UTC())
		case <-l.stopCleanup:
			return
		}
	}
}

// sweep runs one cleanup pass, logging the limiter state at debug level.
func (l *InMemoryRateLimiter) sweep(now time.Time) {
	removed := l.cleanupOldLimiters(now)
	if logger.IsDebug() {
		logger.Debug("rate limiter cleanup", "removed", removed, "stats", l.Stats())
	}
}

// cleanupOldLimiters drops limiters idle for longer than maxAge.
func (l *InMemoryRateLimiter) cleanupOldLimiters(now time.Time) int {
	cutoff := now.Add(-l.maxAge)
	var stale []string
	l.lastAccess.Range(func(key, value any) bool {
		if value.(time.Time).Before(cutoff) {
			stale = append(stale, key.(string))
		}
		return true
	})
	for _, key := range stale {
		l.limiters.Delete(key)
		l.lastAccess.Delete(key)
	}
	return len(stale)
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (l *InMemoryRateLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCleanup) })
}

// Stats reports the limiter configuration and number of tracked keys.
func (l *InMemoryRateLimiter) Stats() map[string]any {
	var count int
	l.limiters.Range(func(_, _ any) bool {
		count++
		return true
	})
	return map[string]any{
		"type":            "in-memory",
		"active_limiters": count,
		"rate_per_second": float64(l.rate),
		"burst":           l.burst,
	}
}
