// Package ratelimit provides per-endpoint token-bucket rate limiting for
// outbound calls the x402 client and the Stacks API client make.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter rate-limits requests per endpoint key.
type Limiter struct {
	limiters   map[string]*rate.Limiter
	mu         sync.RWMutex
	rateLimit  rate.Limit
	burstLimit int
}

// New creates a Limiter allowing ratePerSecond requests/second per
// endpoint, with the given burst.
func New(ratePerSecond float64, burst int) *Limiter {
	return &Limiter{
		limiters:   make(map[string]*rate.Limiter),
		rateLimit:  rate.Limit(ratePerSecond),
		burstLimit: burst,
	}
}

// Default returns a limiter allowing 5 requests/second, burst 10 — the
// conservative default for calls to Hiro/mempool.space.
func Default() *Limiter {
	return New(5, 10)
}

// Allow reports whether a request to endpoint may proceed now.
func (l *Limiter) Allow(endpoint string) bool {
	return l.getLimiter(endpoint).Allow()
}

// Wait blocks until a request to endpoint is allowed or ctx is canceled.
func (l *Limiter) Wait(ctx context.Context, endpoint string) error {
	return l.getLimiter(endpoint).Wait(ctx)
}

func (l *Limiter) getLimiter(endpoint string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[endpoint]
	l.mu.RUnlock()
	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if limiter, exists = l.limiters[endpoint]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(l.rateLimit, l.burstLimit)
	l.limiters[endpoint] = limiter
	return limiter
}
