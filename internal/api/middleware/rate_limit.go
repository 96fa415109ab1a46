package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/pratik-mahalle/alertroute/internal/pkg/errors"
	"github.com/pratik-mahalle/alertroute/internal/pkg/utils"
)

const (
	limiterIdleTTL  = 10 * time.Minute
	limiterSweepGap = time.Minute
)

// unlimitedPaths are probe and scrape endpoints that never count against a client
var unlimitedPaths = map[string]bool{
	"/healthz": true,
	"/readyz":  true,
	"/metrics": true,
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client host. Buckets idle for
// longer than limiterIdleTTL are dropped on the next sweep.
type RateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*clientBucket
	rate      rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		buckets: make(map[string]*clientBucket),
		rate:    rate.Limit(requestsPerSecond),
		burst:   burst,
		now:     time.Now,
	}
}

// Allow reports whether a request for key may proceed
func (rl *RateLimiter) Allow(key string) bool {
	now := rl.now()

	rl.mu.Lock()
	if now.Sub(rl.lastSweep) >= limiterSweepGap {
		rl.sweep(now)
	}
	b, ok := rl.buckets[key]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	rl.mu.Unlock()

	return b.limiter.AllowN(now, 1)
}

// Len returns the number of tracked clients
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

func (rl *RateLimiter) sweep(now time.Time) {
	for key, b := range rl.buckets {
		if now.Sub(b.lastSeen) > limiterIdleTTL {
			delete(rl.buckets, key)
		}
	}
	rl.lastSweep = now
}

// retryAfter is the whole number of seconds until one token is back
func (rl *RateLimiter) retryAfter() int {
	secs := int(1/float64(rl.rate) + 0.999)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// clientKey drops the port so every connection from one host shares a bucket
func clientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// RateLimit returns a middleware that rate limits requests per client host.
// A non-positive rate disables limiting.
func RateLimit(requestsPerSecond float64, burst int) func(http.Handler) http.Handler {
	if requestsPerSecond <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	limiter := NewRateLimiter(requestsPerSecond, burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if unlimitedPaths[r.URL.Path] || limiter.Allow(clientKey(r)) {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Retry-After", strconv.Itoa(limiter.retryAfter()))
			_ = utils.WriteError(w, errors.RateLimited("Too many requests. Please try again later."))
		})
	}
}
