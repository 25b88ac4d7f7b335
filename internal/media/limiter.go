package media

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

const (
	hostLimiterSize = 1024
	hostLimiterTTL  = 10 * time.Minute
)

// hostLimiter spaces requests to the same upstream host. Idle hosts are
// evicted after hostLimiterTTL.
type hostLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	limiters *expirable.LRU[string, *rate.Limiter]
}

func newHostLimiter(interval time.Duration) *hostLimiter {
	return newHostLimiterWithCache(interval, hostLimiterSize, hostLimiterTTL)
}

func newHostLimiterWithCache(interval time.Duration, size int, ttl time.Duration) *hostLimiter {
	if ttl < interval {
		ttl = interval
	}
	return &hostLimiter{
		interval: interval,
		limiters: expirable.NewLRU[string, *rate.Limiter](size, nil, ttl),
	}
}

func (h *hostLimiter) Wait(ctx context.Context, host string) error {
	if h == nil || h.interval <= 0 || host == "" {
		return nil
	}
	h.mu.Lock()
	limiter, ok := h.limiters.Get(host)
	if !ok {
		limiter = rate.NewLimiter(rate.Every(h.interval), 1)
	}
	// re-adding refreshes the expiry of an active host
	h.limiters.Add(host, limiter)
	h.mu.Unlock()
	return limiter.Wait(ctx)
}

func (h *hostLimiter) Len() int {
	return h.limiters.Len()
}
