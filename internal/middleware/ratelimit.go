package middleware

import (
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// idleLimiterTTL is how long a key's limiter survives without traffic.
const idleLimiterTTL = 30 * time.Minute

// RateLimiter holds one token bucket per key (an owner id).
type RateLimiter struct {
	limiters *cache.Cache
	// Rate is the number of events per second.
	rate rate.Limit
	// Burst is the burst size.
	burst int
}

// NewRateLimiter creates a RateLimiter.
func NewRateLimiter(r rate.Limit, b int) *RateLimiter {
	return &RateLimiter{
		limiters: cache.New(idleLimiterTTL, 2*idleLimiterTTL),
		rate:     r,
		burst:    b,
	}
}

// PerMinute builds a limiter allowing n events per minute with a burst of n.
func PerMinute(n int) *RateLimiter {
	if n <= 0 {
		return NewRateLimiter(rate.Inf, 0)
	}
	return NewRateLimiter(rate.Every(time.Minute/time.Duration(n)), n)
}

// Allow reports whether key may perform one more event now.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.limiter(key).Allow()
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	if l, ok := rl.limiters.Get(key); ok {
		rl.limiters.SetDefault(key, l)
		return l.(*rate.Limiter)
	}
	l := rate.NewLimiter(rl.rate, rl.burst)
	if err := rl.limiters.Add(key, l, cache.DefaultExpiration); err != nil {
		// Lost a race with a concurrent request for the same key.
		if existing, ok := rl.limiters.Get(key); ok {
			return existing.(*rate.Limiter)
		}
	}
	return l
}
