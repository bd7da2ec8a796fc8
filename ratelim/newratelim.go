package ratelim

import (
	"net"
	"net/http"
	"sync"
	"time"

	"lifeassistant/utils"

	"github.com/julienschmidt/httprouter"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands every client address its own token bucket.
type RateLimiter struct {
	visitors map[string]*visitor
	mu       sync.Mutex
	rate      rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
}

// NewRateLimiter allows perMinute requests a minute with the given burst.
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    burst,
		idle:     10 * time.Minute,
	}
}

// Get or create a rate limiter for an IP
func (rl *RateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.lastSweep) >= sweepInterval {
		rl.sweep(now)
	}
	v, exists := rl.visitors[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

// sweepInterval spaces out the scans for idle visitors.
const sweepInterval = time.Minute

// sweep forgets visitors idle for longer than rl.idle. Callers hold rl.mu.
func (rl *RateLimiter) sweep(now time.Time) {
	for key, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.idle {
			delete(rl.visitors, key)
		}
	}
	rl.lastSweep = now
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Middleware to enforce rate limiting
func (rl *RateLimiter) Limit(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if !rl.getLimiter(clientIP(r)).Allow() {
			utils.RespondWithError(w, http.StatusTooManyRequests, "Too many requests")
			return
		}
		next(w, r, ps)
	}
}
