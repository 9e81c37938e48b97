package auth

import (
	"fmt"
	"sync"
	"time"

	"budget-ledger-go/internal/models"
	"budget-ledger-go/internal/store"

	"golang.org/x/time/rate"
)

// MaxWeight is the heaviest action weight; the burst is never smaller
const MaxWeight = 5

// RateLimiter is the security boundary: a token bucket per identity plus a block list
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	blocked  map[string]bool
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

func NewRateLimiter(cfg models.RateLimitConfig) *RateLimiter {
	perMinute := cfg.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = 60
	}
	burst := cfg.Burst
	if burst < MaxWeight {
		burst = MaxWeight
	}

	blocked := make(map[string]bool, len(cfg.BlockedIdentities))
	for _, id := range cfg.BlockedIdentities {
		blocked[id] = true
	}

	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		blocked:  blocked,
		limit:    rate.Limit(float64(perMinute) / 60),
		burst:    burst,
		now:      time.Now,
	}
}

// Allow charges weight tokens to identity. It fails with ErrBlocked for
// blocked identities and ErrRateLimited when the bucket is empty.
func (l *RateLimiter) Allow(identity string, weight int) error {
	if weight <= 0 {
		weight = 1
	}

	l.mu.Lock()
	if l.blocked[identity] {
		l.mu.Unlock()
		return fmt.Errorf("%w: %s", store.ErrBlocked, identity)
	}
	limiter, ok := l.limiters[identity]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[identity] = limiter
	}
	l.mu.Unlock()

	if !limiter.AllowN(l.now(), weight) {
		return fmt.Errorf("%w: try again later", store.ErrRateLimited)
	}
	return nil
}
