package server

import (
	"log"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter applies a per-owner token-bucket limit to orchestration
// calls. Provider round trips are expensive; a stuck retry loop in a
// client must not burn through the provider quota.
type RateLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*ownerLimiter
}

type ownerLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

func NewRateLimiter(perMinute, burst int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 120
	}
	if burst <= 0 {
		burst = perMinute
	}
	return &RateLimiter{
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    burst,
		limiters: make(map[string]*ownerLimiter),
	}
}

// Allow reports whether the owner may proceed, refreshing the owner's
// bucket access time.
func (rl *RateLimiter) Allow(ownerID string) bool {
	rl.mu.Lock()
	ol, ok := rl.limiters[ownerID]
	if !ok {
		ol = &ownerLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[ownerID] = ol
	}
	ol.lastAccess = time.Now()
	rl.mu.Unlock()

	return ol.limiter.Allow()
}

// Cleanup drops limiters idle for longer than maxIdle.
func (rl *RateLimiter) Cleanup(maxIdle time.Duration) {
	cutoff := time.Now().Add(-maxIdle)
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for owner, ol := range rl.limiters {
		if ol.lastAccess.Before(cutoff) {
			delete(rl.limiters, owner)
		}
	}
}

// Len returns the number of tracked owners. Tests only.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

// rateLimited wraps a handler that already ran requireAuth.
func rateLimited(rl *RateLimiter, next http.HandlerFunc) http.HandlerFunc {
	if rl == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		owner := ownerFromContext(r.Context())
		if !rl.Allow(owner) {
			log.Printf("rate limit exceeded for owner %s", owner)
			writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(w, r)
	}
}
