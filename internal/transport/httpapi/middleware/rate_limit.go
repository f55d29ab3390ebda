package middleware

import (
	"net"
	"net/http"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// RateLimiter implements an IP-based rate limiter. Visitors idle for longer
// than the idle window are forgotten.
type RateLimiter struct {
	visitors *gocache.Cache
	r        rate.Limit
	b        int
}

// NewRateLimiter creates a new rate limiter
// r: requests per second
// b: burst size
func NewRateLimiter(r rate.Limit, b int, idle time.Duration) *RateLimiter {
	return &RateLimiter{
		visitors: gocache.New(idle, idle),
		r:        r,
		b:        b,
	}
}

// getVisitor retrieves or creates a limiter for an IP address and extends
// its lifetime
func (rl *RateLimiter) getVisitor(ip string) *rate.Limiter {
	if v, ok := rl.visitors.Get(ip); ok {
		limiter := v.(*rate.Limiter)
		rl.visitors.SetDefault(ip, limiter)
		return limiter
	}

	limiter := rate.NewLimiter(rl.r, rl.b)
	if err := rl.visitors.Add(ip, limiter, gocache.DefaultExpiration); err != nil {
		// lost the race to another request from the same ip
		if v, ok := rl.visitors.Get(ip); ok {
			return v.(*rate.Limiter)
		}
	}
	return limiter
}

// Middleware returns the rate limiting middleware
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.getVisitor(clientIP(r)).Allow() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"rate limit exceeded, please try again later"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RateLimit returns a rate limiting middleware
// Default: 100 requests per second with burst of 20
func RateLimit() func(http.Handler) http.Handler {
	return NewRateLimiter(100, 20, 10*time.Minute).Middleware
}

// clientIP honours the first X-Forwarded-For hop
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
