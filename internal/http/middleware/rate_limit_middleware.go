package middleware

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/probelink/probelink/internal/http/response"
)

// RateLimiter is a per-client fixed-window limiter for the HTTP API. It is
// deliberately local: the relay is a single logical service, and the login
// guard (not this limiter) owns brute-force semantics.
type RateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	hits    map[string][]time.Time
	cleanup time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		limit:   limit,
		window:  window,
		hits:    make(map[string][]time.Time),
		cleanup: time.Now().Add(window),
	}
}

func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, retryAfter := rl.allow(clientIPKey(r), time.Now())
			if !allowed {
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(retryAfter.Seconds())+1))
				response.Fail(w, r, http.StatusTooManyRequests, "rate_limited")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) allow(key string, now time.Time) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.After(rl.cleanup) {
		cutoff := now.Add(-rl.window)
		for k, hits := range rl.hits {
			if len(hits) == 0 || !hits[len(hits)-1].After(cutoff) {
				delete(rl.hits, k)
			}
		}
		rl.cleanup = now.Add(rl.window)
	}

	cutoff := now.Add(-rl.window)
	kept := rl.hits[key][:0]
	for _, hit := range rl.hits[key] {
		if hit.After(cutoff) {
			kept = append(kept, hit)
		}
	}

	if len(kept) >= rl.limit {
		rl.hits[key] = kept
		return false, kept[0].Add(rl.window).Sub(now)
	}
	rl.hits[key] = append(kept, now)
	return true, 0
}

func clientIPKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
